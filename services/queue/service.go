// Package queue maintains the user-ordered "up next" subset of the watchlist.
// Queued entries always hold a contiguous 1..N position range.
package queue

import (
	"context"
	"sync"

	"reelist/internal/database"
	"reelist/models"
)

var (
	ErrNotFound           = database.ErrNotFound
	ErrAlreadyQueued      = database.ErrAlreadyQueued
	ErrNotQueued          = database.ErrNotQueued
	ErrInvalidPermutation = database.ErrInvalidPermutation
)

// Service serializes queue mutations. Each operation also runs in its own
// transaction, but the mutex keeps interleaved enqueue/dequeue/reorder calls
// from observing each other's intermediate positions.
type Service struct {
	mu   sync.Mutex
	repo *database.Repository
}

func NewService(repo *database.Repository) *Service {
	return &Service{repo: repo}
}

// Enqueue appends an entry to the end of the queue (position 1 when empty).
func (s *Service) Enqueue(ctx context.Context, entryID int64) (models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Enqueue(ctx, entryID)
}

// Dequeue removes an entry from the queue, compacting later positions so the
// remaining entries keep their relative order.
func (s *Service) Dequeue(ctx context.Context, entryID int64) (models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Dequeue(ctx, entryID)
}

// Reorder applies a full permutation of the queued entries. The permutation
// must cover exactly the queued ids and map onto 1..N; invalid permutations
// are rejected with no positions changed.
func (s *Service) Reorder(ctx context.Context, positions map[int64]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Reorder(ctx, positions)
}

// ListOrdered returns queued entries by ascending position.
func (s *Service) ListOrdered(ctx context.Context) ([]models.Entry, error) {
	return s.repo.ListQueued(ctx)
}
