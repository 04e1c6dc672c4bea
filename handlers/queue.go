package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"reelist/models"
	"reelist/services/queue"
)

type queueService interface {
	Enqueue(ctx context.Context, entryID int64) (models.Entry, error)
	Dequeue(ctx context.Context, entryID int64) (models.Entry, error)
	Reorder(ctx context.Context, positions map[int64]int) error
	ListOrdered(ctx context.Context) ([]models.Entry, error)
}

var _ queueService = (*queue.Service)(nil)

type QueueHandler struct {
	Service queueService
}

func NewQueueHandler(service queueService) *QueueHandler {
	return &QueueHandler{Service: service}
}

func (h *QueueHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.ListOrdered(r.Context())
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

func (h *QueueHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	entry, err := h.Service.Enqueue(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, queue.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, queue.ErrAlreadyQueued):
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

func (h *QueueHandler) Dequeue(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	entry, err := h.Service.Dequeue(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, queue.ErrNotFound) || errors.Is(err, queue.ErrNotQueued) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

type reorderRequest struct {
	Order []struct {
		ID       int64 `json:"id"`
		Position int   `json:"position"`
	} `json:"order"`
}

// Reorder applies a full permutation of the queue. The body must list every
// queued entry exactly once with its new position.
func (h *QueueHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	positions := make(map[int64]int, len(req.Order))
	for _, item := range req.Order {
		if _, dup := positions[item.ID]; dup {
			http.Error(w, queue.ErrInvalidPermutation.Error(), http.StatusConflict)
			return
		}
		positions[item.ID] = item.Position
	}

	if err := h.Service.Reorder(r.Context(), positions); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, queue.ErrInvalidPermutation) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}

	entries, err := h.Service.ListOrdered(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}
