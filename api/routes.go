package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/gorilla/mux"

	"reelist/handlers"
)

// corsMiddleware handles CORS for API routes
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleOptions handles OPTIONS requests for CORS preflight
func handleOptions(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// pinAuthMiddleware guards mutating routes with the startup PIN. The PIN is
// read through a closure so a settings reload takes effect without
// re-registering routes.
func pinAuthMiddleware(getPIN func() string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pin := getPIN()
			if pin == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get("X-API-PIN")
			if provided == "" {
				provided = r.URL.Query().Get("pin")
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(pin)) != 1 {
				http.Error(w, "invalid or missing PIN", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Register mounts API endpoints onto the provided router.
func Register(
	r *mux.Router,
	watchlistHandler *handlers.WatchlistHandler,
	queueHandler *handlers.QueueHandler,
	searchHandler *handlers.SearchHandler,
	syncHandler *handlers.SyncHandler,
	settingsHandler *handlers.SettingsHandler,
	getPIN func() string,
) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware)

	// Read endpoints (no PIN required)
	api.HandleFunc("/watchlist", watchlistHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/watchlist/random", watchlistHandler.Random).Methods(http.MethodGet)
	api.HandleFunc("/queue", queueHandler.GetQueue).Methods(http.MethodGet)
	api.HandleFunc("/search", searchHandler.Search).Methods(http.MethodGet)
	api.HandleFunc("/genres", searchHandler.Genres).Methods(http.MethodGet)
	api.HandleFunc("/sync/status", syncHandler.Status).Methods(http.MethodGet)
	api.HandleFunc("/settings", settingsHandler.GetSettings).Methods(http.MethodGet)

	// CORS preflight for paths whose mutating methods sit behind the PIN
	for _, path := range []string{
		"/watchlist", "/watchlist/backfill-genres", "/watchlist/{id}",
		"/watchlist/{id}/toggle-watched", "/watchlist/{id}/refresh",
		"/watchlist/{id}/queue", "/queue/order", "/sync", "/settings",
	} {
		api.HandleFunc(path, handleOptions).Methods(http.MethodOptions)
	}

	// Mutating endpoints require the startup PIN
	protected := api.PathPrefix("").Subrouter()
	protected.Use(pinAuthMiddleware(getPIN))
	protected.HandleFunc("/watchlist", watchlistHandler.Add).Methods(http.MethodPost)
	protected.HandleFunc("/watchlist/backfill-genres", watchlistHandler.BackfillGenres).Methods(http.MethodPost)
	protected.HandleFunc("/watchlist/{id}", watchlistHandler.Remove).Methods(http.MethodDelete)
	protected.HandleFunc("/watchlist/{id}/toggle-watched", watchlistHandler.ToggleWatched).Methods(http.MethodPost)
	protected.HandleFunc("/watchlist/{id}/refresh", watchlistHandler.RefreshDetails).Methods(http.MethodPost)
	protected.HandleFunc("/watchlist/{id}/queue", queueHandler.Enqueue).Methods(http.MethodPost)
	protected.HandleFunc("/watchlist/{id}/queue", queueHandler.Dequeue).Methods(http.MethodDelete)
	protected.HandleFunc("/queue/order", queueHandler.Reorder).Methods(http.MethodPut)
	protected.HandleFunc("/sync", syncHandler.TriggerSync).Methods(http.MethodPost)
	protected.HandleFunc("/settings", settingsHandler.PutSettings).Methods(http.MethodPut)
}
