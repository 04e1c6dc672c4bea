// Package watchlist implements the watchlist store operations and the random
// selector on top of the SQLite repository.
package watchlist

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"strings"

	"reelist/internal/database"
	"reelist/models"
)

var (
	ErrNotFound           = database.ErrNotFound
	ErrAlreadyExists      = database.ErrDuplicateEntry
	ErrExternalIDRequired = errors.New("external id is required")
	ErrTitleRequired      = errors.New("title is required")
	ErrInvalidMediaType   = errors.New("media type must be movie or series")
	ErrCatalogRequired    = errors.New("catalog is not configured")
)

// catalogDetails is the optional catalog enrichment hook; a nil client is fine.
type catalogDetails interface {
	Genres(ctx context.Context, externalID string, mediaType models.MediaType) (string, error)
	Details(ctx context.Context, externalID string, mediaType models.MediaType) (models.Candidate, error)
}

// Service exposes watchlist CRUD, filtered listings and the random selector.
type Service struct {
	repo    *database.Repository
	catalog catalogDetails
}

func NewService(repo *database.Repository, catalog catalogDetails) *Service {
	return &Service{repo: repo, catalog: catalog}
}

// Add promotes a catalog candidate into the watchlist. Adding an entry whose
// (external id, media type) pair is already present fails with
// ErrAlreadyExists and leaves the store untouched.
func (s *Service) Add(ctx context.Context, input models.EntryUpsert) (models.Entry, error) {
	input.ExternalID = strings.TrimSpace(input.ExternalID)
	input.Title = strings.TrimSpace(input.Title)

	if input.ExternalID == "" {
		return models.Entry{}, ErrExternalIDRequired
	}
	if input.Title == "" {
		return models.Entry{}, ErrTitleRequired
	}
	if !input.MediaType.Valid() {
		return models.Entry{}, ErrInvalidMediaType
	}

	// Genres are display-only enrichment; a catalog failure never blocks the add.
	if input.Genres == "" && s.catalog != nil {
		genres, err := s.catalog.Genres(ctx, input.ExternalID, input.MediaType)
		if err != nil {
			log.Printf("[watchlist] genre lookup failed for %s %s: %v", input.MediaType, input.ExternalID, err)
		} else {
			input.Genres = genres
		}
	}

	return s.repo.Insert(ctx, input)
}

// Get returns one entry by id.
func (s *Service) Get(ctx context.Context, id int64) (models.Entry, error) {
	return s.repo.Get(ctx, id)
}

// Remove deletes an entry, dropping it from the queue first if present.
func (s *Service) Remove(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// List returns entries matching the filter.
func (s *Service) List(ctx context.Context, filter models.FilterConfig) ([]models.Entry, error) {
	return s.repo.List(ctx, filter)
}

// RefreshDetails re-fetches an entry's display cache (title, poster,
// overview, release date, genres) from the catalog and overwrites the stored
// copy. Identity and sync state are untouched.
func (s *Service) RefreshDetails(ctx context.Context, id int64) (models.Entry, error) {
	if s.catalog == nil {
		return models.Entry{}, ErrCatalogRequired
	}

	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.Entry{}, err
	}

	details, err := s.catalog.Details(ctx, entry.ExternalID, entry.MediaType)
	if err != nil {
		return models.Entry{}, err
	}
	if strings.TrimSpace(details.Title) == "" {
		// keep the stored title rather than blanking it on a thin response
		details.Title = entry.Title
	}

	return s.repo.RefreshDetails(ctx, id, models.EntryUpsert{
		Title:       details.Title,
		PosterRef:   details.PosterRef,
		Overview:    details.Overview,
		ReleaseDate: details.ReleaseDate,
		Genres:      details.Genres,
	})
}

// BackfillResult summarizes a genre backfill run.
type BackfillResult struct {
	Total   int `json:"total"`
	Updated int `json:"updated"`
	Errors  int `json:"errors"`
}

// BackfillGenres fills in genres for entries that were added while the
// catalog was unreachable. Per-entry failures are counted and skipped; the
// run only fails outright when the store cannot be read.
func (s *Service) BackfillGenres(ctx context.Context) (BackfillResult, error) {
	if s.catalog == nil {
		return BackfillResult{}, ErrCatalogRequired
	}

	entries, err := s.repo.All(ctx)
	if err != nil {
		return BackfillResult{}, err
	}

	var result BackfillResult
	for _, entry := range entries {
		if entry.Genres != "" {
			continue
		}
		result.Total++

		genres, err := s.catalog.Genres(ctx, entry.ExternalID, entry.MediaType)
		if err != nil {
			result.Errors++
			log.Printf("[watchlist] genre backfill failed for %s %s: %v", entry.MediaType, entry.ExternalID, err)
			continue
		}
		if genres == "" {
			continue
		}

		if _, err := s.repo.RefreshDetails(ctx, entry.ID, models.EntryUpsert{
			Title:       entry.Title,
			PosterRef:   entry.PosterRef,
			Overview:    entry.Overview,
			ReleaseDate: entry.ReleaseDate,
			Genres:      genres,
		}); err != nil {
			result.Errors++
			log.Printf("[watchlist] genre backfill write failed for entry %d: %v", entry.ID, err)
			continue
		}
		result.Updated++
	}

	log.Printf("[watchlist] genre backfill: %d candidates, %d updated, %d errors", result.Total, result.Updated, result.Errors)
	return result, nil
}

// ToggleWatched flips the watched flag as a manual override. The override
// holds across sync passes until the entry becomes available, after which the
// resolver's state wins.
func (s *Service) ToggleWatched(ctx context.Context, id int64) (models.Entry, error) {
	return s.repo.ToggleWatched(ctx, id)
}

// PickRandom applies the same filter as List and returns a uniformly random
// surviving entry. The second return is false when nothing matched; that is
// not an error.
func (s *Service) PickRandom(ctx context.Context, filter models.FilterConfig) (models.Entry, bool, error) {
	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return models.Entry{}, false, err
	}
	if len(entries) == 0 {
		return models.Entry{}, false, nil
	}

	return entries[rand.Intn(len(entries))], true, nil
}
