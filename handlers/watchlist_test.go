package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"reelist/handlers"
	"reelist/internal/database"
	"reelist/models"
	"reelist/services/queue"
	"reelist/services/watchlist"
)

func newTestServices(t *testing.T) (*watchlist.Service, *queue.Service) {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := database.NewRepository(db)
	return watchlist.NewService(repo, nil), queue.NewService(repo)
}

func addEntry(t *testing.T, svc *watchlist.Service, externalID, title string) models.Entry {
	t.Helper()
	entry, err := svc.Add(context.Background(), models.EntryUpsert{
		ExternalID: externalID,
		MediaType:  models.MediaTypeMovie,
		Title:      title,
	})
	if err != nil {
		t.Fatalf("seed entry %s: %v", title, err)
	}
	return entry
}

func TestWatchlistAddAndList(t *testing.T) {
	svc, _ := newTestServices(t)
	h := handlers.NewWatchlistHandler(svc)

	payload, _ := json.Marshal(models.EntryUpsert{
		ExternalID: "603",
		MediaType:  models.MediaTypeMovie,
		Title:      "The Matrix",
		ReleaseDate: "1999-03-31",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/watchlist", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	h.Add(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	recList := httptest.NewRecorder()
	h.List(recList, httptest.NewRequest(http.MethodGet, "/api/watchlist", nil))

	if recList.Code != http.StatusOK {
		t.Fatalf("expected list status 200, got %d", recList.Code)
	}

	var entries []models.Entry
	if err := json.Unmarshal(recList.Body.Bytes(), &entries); err != nil {
		t.Fatalf("failed to decode list response: %v", err)
	}
	if len(entries) != 1 || entries[0].Title != "The Matrix" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestWatchlistAddDuplicateConflicts(t *testing.T) {
	svc, _ := newTestServices(t)
	h := handlers.NewWatchlistHandler(svc)
	addEntry(t, svc, "603", "The Matrix")

	payload, _ := json.Marshal(models.EntryUpsert{
		ExternalID: "603",
		MediaType:  models.MediaTypeMovie,
		Title:      "The Matrix",
	})
	rec := httptest.NewRecorder()
	h.Add(rec, httptest.NewRequest(http.MethodPost, "/api/watchlist", bytes.NewReader(payload)))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate, got %d", rec.Code)
	}
}

func TestWatchlistListRejectsBadFilter(t *testing.T) {
	svc, _ := newTestServices(t)
	h := handlers.NewWatchlistHandler(svc)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/watchlist?watched=maybe", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on bad filter, got %d", rec.Code)
	}

	recGenres := httptest.NewRecorder()
	h.List(recGenres, httptest.NewRequest(http.MethodGet, "/api/watchlist?genres=28,action", nil))

	if recGenres.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on non-numeric genre id, got %d", recGenres.Code)
	}
}

func TestWatchlistListFiltersByGenres(t *testing.T) {
	svc, _ := newTestServices(t)
	h := handlers.NewWatchlistHandler(svc)

	if _, err := svc.Add(context.Background(), models.EntryUpsert{
		ExternalID: "603", MediaType: models.MediaTypeMovie, Title: "The Matrix", Genres: "28,878",
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.Add(context.Background(), models.EntryUpsert{
		ExternalID: "680", MediaType: models.MediaTypeMovie, Title: "Pulp Fiction", Genres: "80,53",
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/watchlist?genres=28,%20878", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var entries []models.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(entries) != 1 || entries[0].Title != "The Matrix" {
		t.Fatalf("expected only the entry carrying both genres, got %+v", entries)
	}
}

func TestWatchlistToggleWatchedAndRemove(t *testing.T) {
	svc, _ := newTestServices(t)
	h := handlers.NewWatchlistHandler(svc)
	entry := addEntry(t, svc, "603", "The Matrix")

	req := httptest.NewRequest(http.MethodPost, "/api/watchlist/1/toggle-watched", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "1"})
	rec := httptest.NewRecorder()
	h.ToggleWatched(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var toggled models.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &toggled); err != nil {
		t.Fatalf("decode toggle response: %v", err)
	}
	if !toggled.IsWatched || toggled.ID != entry.ID {
		t.Fatalf("unexpected toggle result: %+v", toggled)
	}

	reqDel := httptest.NewRequest(http.MethodDelete, "/api/watchlist/1", nil)
	reqDel = mux.SetURLVars(reqDel, map[string]string{"id": "1"})
	recDel := httptest.NewRecorder()
	h.Remove(recDel, reqDel)

	if recDel.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", recDel.Code)
	}

	reqMissing := httptest.NewRequest(http.MethodDelete, "/api/watchlist/1", nil)
	reqMissing = mux.SetURLVars(reqMissing, map[string]string{"id": "1"})
	recMissing := httptest.NewRecorder()
	h.Remove(recMissing, reqMissing)

	if recMissing.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", recMissing.Code)
	}
}

func TestWatchlistRandom(t *testing.T) {
	svc, _ := newTestServices(t)
	h := handlers.NewWatchlistHandler(svc)

	rec := httptest.NewRecorder()
	h.Random(rec, httptest.NewRequest(http.MethodGet, "/api/watchlist/random", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for empty watchlist, got %d", rec.Code)
	}

	addEntry(t, svc, "603", "The Matrix")

	recHit := httptest.NewRecorder()
	h.Random(recHit, httptest.NewRequest(http.MethodGet, "/api/watchlist/random", nil))
	if recHit.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recHit.Code)
	}
	var picked models.Entry
	if err := json.Unmarshal(recHit.Body.Bytes(), &picked); err != nil {
		t.Fatalf("decode random response: %v", err)
	}
	if picked.Title != "The Matrix" {
		t.Fatalf("unexpected pick: %+v", picked)
	}
}
