package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"reelist/models"
	"reelist/services/syncsvc"
)

type syncService interface {
	Trigger(trigger models.SyncTrigger) error
	Status() models.SyncStatus
}

var _ syncService = (*syncsvc.Orchestrator)(nil)

type SyncHandler struct {
	Service syncService
}

func NewSyncHandler(service syncService) *SyncHandler {
	return &SyncHandler{Service: service}
}

// TriggerSync starts a manual pass. 202 means the pass is running; polling
// GET /api/sync/status follows its progress.
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Trigger(models.SyncTriggerManual); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, syncsvc.ErrSyncRunning) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(h.Service.Status())
}

func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Service.Status())
}
