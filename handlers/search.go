package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"reelist/models"
	"reelist/services/catalog"
)

type catalogService interface {
	Search(ctx context.Context, query string, mediaType models.MediaType) ([]models.Candidate, error)
	GenreList(ctx context.Context, mediaType models.MediaType) ([]models.Genre, error)
}

var _ catalogService = (*catalog.Client)(nil)

type SearchHandler struct {
	Catalog catalogService
}

func NewSearchHandler(c catalogService) *SearchHandler {
	return &SearchHandler{Catalog: c}
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		http.Error(w, "query parameter q is required", http.StatusBadRequest)
		return
	}

	mediaType := models.MediaType(r.URL.Query().Get("type"))
	if mediaType != "" && !mediaType.Valid() {
		http.Error(w, "type must be movie or series", http.StatusBadRequest)
		return
	}

	candidates, err := h.Catalog.Search(r.Context(), query, mediaType)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, catalog.ErrUnavailable) {
			status = http.StatusBadGateway
		}
		http.Error(w, err.Error(), status)
		return
	}
	if candidates == nil {
		candidates = []models.Candidate{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(candidates)
}

func (h *SearchHandler) Genres(w http.ResponseWriter, r *http.Request) {
	mediaType := models.MediaType(r.URL.Query().Get("type"))
	if mediaType != "" && !mediaType.Valid() {
		http.Error(w, "type must be movie or series", http.StatusBadRequest)
		return
	}

	genres, err := h.Catalog.GenreList(r.Context(), mediaType)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, catalog.ErrUnavailable) {
			status = http.StatusBadGateway
		}
		http.Error(w, err.Error(), status)
		return
	}
	if genres == nil {
		genres = []models.Genre{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(genres)
}
