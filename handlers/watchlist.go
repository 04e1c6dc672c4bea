package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"reelist/models"
	"reelist/services/catalog"
	"reelist/services/watchlist"
)

type watchlistService interface {
	Add(ctx context.Context, input models.EntryUpsert) (models.Entry, error)
	Get(ctx context.Context, id int64) (models.Entry, error)
	Remove(ctx context.Context, id int64) error
	List(ctx context.Context, filter models.FilterConfig) ([]models.Entry, error)
	ToggleWatched(ctx context.Context, id int64) (models.Entry, error)
	RefreshDetails(ctx context.Context, id int64) (models.Entry, error)
	BackfillGenres(ctx context.Context) (watchlist.BackfillResult, error)
	PickRandom(ctx context.Context, filter models.FilterConfig) (models.Entry, bool, error)
}

var _ watchlistService = (*watchlist.Service)(nil)

type WatchlistHandler struct {
	Service watchlistService
}

func NewWatchlistHandler(service watchlistService) *WatchlistHandler {
	return &WatchlistHandler{Service: service}
}

func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entries, err := h.Service.List(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []models.Entry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

func (h *WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	var input models.EntryUpsert
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	entry, err := h.Service.Add(r.Context(), input)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, watchlist.ErrAlreadyExists):
			status = http.StatusConflict
		case errors.Is(err, watchlist.ErrExternalIDRequired),
			errors.Is(err, watchlist.ErrTitleRequired),
			errors.Is(err, watchlist.ErrInvalidMediaType):
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(entry)
}

func (h *WatchlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	if err := h.Service.Remove(r.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, watchlist.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *WatchlistHandler) ToggleWatched(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	entry, err := h.Service.ToggleWatched(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, watchlist.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

func (h *WatchlistHandler) RefreshDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	entry, err := h.Service.RefreshDetails(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, watchlist.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, watchlist.ErrCatalogRequired):
			status = http.StatusServiceUnavailable
		case errors.Is(err, catalog.ErrUnavailable):
			status = http.StatusBadGateway
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

// BackfillGenres re-fetches genres for every entry missing them, counting
// per-entry failures instead of aborting.
func (h *WatchlistHandler) BackfillGenres(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.BackfillGenres(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, watchlist.ErrCatalogRequired) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (h *WatchlistHandler) Random(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry, found, err := h.Service.PickRandom(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "no entries match the filter", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

// entryID parses the {id} route variable, writing a 400 on garbage input.
func entryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(mux.Vars(r)["id"])
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid entry id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// filterFromQuery builds the listing filter from query parameters. Unknown
// enum values are rejected rather than silently widened to "all".
func filterFromQuery(r *http.Request) (models.FilterConfig, error) {
	q := r.URL.Query()

	filter := models.FilterConfig{
		MediaType:    models.MediaType(q.Get("type")),
		Watched:      models.WatchedFilter(q.Get("watched")),
		Availability: models.AvailabilityFilter(q.Get("availability")),
		Search:       strings.TrimSpace(q.Get("search")),
		Sort:         models.SortOrder(q.Get("sort")),
	}

	// genres is a comma-separated list of TMDB genre ids; an entry must carry
	// every requested id to match
	for _, raw := range strings.Split(q.Get("genres"), ",") {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, err := strconv.Atoi(id); err != nil {
			return models.FilterConfig{}, fmt.Errorf("invalid genre id %q", id)
		}
		filter.Genres = append(filter.Genres, id)
	}

	if filter.MediaType != "" && !filter.MediaType.Valid() {
		return models.FilterConfig{}, fmt.Errorf("invalid type %q", filter.MediaType)
	}
	switch filter.Watched {
	case "", models.WatchedAll, models.WatchedOnly, models.WatchedUnwatched:
	default:
		return models.FilterConfig{}, fmt.Errorf("invalid watched filter %q", filter.Watched)
	}
	switch filter.Availability {
	case "", models.AvailabilityAll, models.AvailabilityAvailable, models.AvailabilityMissing:
	default:
		return models.FilterConfig{}, fmt.Errorf("invalid availability filter %q", filter.Availability)
	}
	switch filter.Sort {
	case "", models.SortCreatedDesc, models.SortCreatedAsc, models.SortTitleAsc, models.SortTitleDesc:
	default:
		return models.FilterConfig{}, fmt.Errorf("invalid sort %q", filter.Sort)
	}

	return filter, nil
}
