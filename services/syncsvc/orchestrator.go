package syncsvc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"reelist/internal/database"
	"reelist/models"
	"reelist/services/library"
)

// ErrSyncRunning is returned to a manual trigger while a pass is in flight.
// The scheduler treats it as a skip, not a failure.
var ErrSyncRunning = errors.New("sync pass already running")

type store interface {
	All(ctx context.Context) ([]models.Entry, error)
	ApplySyncResult(ctx context.Context, id int64, result database.SyncResult) error
}

type snapshotSource interface {
	FetchSnapshot(ctx context.Context) (*library.Snapshot, error)
}

// Orchestrator runs reconciliation passes. At most one pass runs at a time;
// the gate is an atomic flag taken before any work starts.
type Orchestrator struct {
	store    store
	library  snapshotSource
	resolver *Resolver
	timeout  time.Duration

	running atomic.Bool

	mu     sync.Mutex
	status models.SyncStatus
}

func NewOrchestrator(store store, lib snapshotSource, resolver *Resolver, snapshotTimeout time.Duration) *Orchestrator {
	if snapshotTimeout <= 0 {
		snapshotTimeout = 60 * time.Second
	}
	return &Orchestrator{
		store:    store,
		library:  lib,
		resolver: resolver,
		timeout:  snapshotTimeout,
		status:   models.SyncStatus{State: models.SyncIdle},
	}
}

// Status returns a copy of the latest pass status.
func (o *Orchestrator) Status() models.SyncStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	status := o.status
	status.Failures = append([]models.EntryFailure(nil), o.status.Failures...)
	return status
}

func (o *Orchestrator) setStatus(status models.SyncStatus) {
	o.mu.Lock()
	o.status = status
	o.mu.Unlock()
}

// Run executes one pass synchronously. A concurrent caller gets
// ErrSyncRunning and the in-flight pass's status.
func (o *Orchestrator) Run(ctx context.Context, trigger models.SyncTrigger) (models.SyncStatus, error) {
	if !o.running.CompareAndSwap(false, true) {
		return o.Status(), ErrSyncRunning
	}
	defer o.running.Store(false)

	return o.pass(ctx, trigger), nil
}

// Trigger starts a pass in the background. It takes the gate before
// returning, so a nil return means the pass is running.
func (o *Orchestrator) Trigger(trigger models.SyncTrigger) error {
	if !o.running.CompareAndSwap(false, true) {
		return ErrSyncRunning
	}
	go func() {
		defer o.running.Store(false)
		o.pass(context.Background(), trigger)
	}()
	return nil
}

// pass assumes the caller holds the running gate.
func (o *Orchestrator) pass(ctx context.Context, trigger models.SyncTrigger) models.SyncStatus {
	passID := uuid.NewString()
	started := time.Now().UTC()
	status := models.SyncStatus{
		PassID:    passID,
		State:     models.SyncRunning,
		Trigger:   trigger,
		StartedAt: &started,
	}
	o.setStatus(status)
	log.Printf("[sync] pass %s started (%s)", passID, trigger)

	snapCtx, cancel := context.WithTimeout(ctx, o.timeout)
	snapshot, err := o.library.FetchSnapshot(snapCtx)
	cancel()
	if err != nil {
		return o.finish(status, fmt.Errorf("fetch library snapshot: %w", err))
	}

	entries, err := o.store.All(ctx)
	if err != nil {
		return o.finish(status, fmt.Errorf("load watchlist: %w", err))
	}

	for _, entry := range entries {
		status.Processed++
		matched, err := o.reconcile(ctx, entry, snapshot)
		if matched {
			status.Matched++
		}
		if err != nil {
			status.Failures = append(status.Failures, models.EntryFailure{
				EntryID: entry.ID,
				Title:   entry.Title,
				Error:   err.Error(),
			})
			log.Printf("[sync] pass %s: entry %d (%s): %v", passID, entry.ID, entry.Title, err)
		}
	}

	return o.finish(status, nil)
}

func (o *Orchestrator) finish(status models.SyncStatus, passErr error) models.SyncStatus {
	finished := time.Now().UTC()
	status.FinishedAt = &finished

	switch {
	case passErr != nil:
		status.State = models.SyncFailed
		status.Error = passErr.Error()
	case len(status.Failures) > 0:
		status.State = models.SyncPartiallyFailed
	default:
		status.State = models.SyncSucceeded
	}

	o.setStatus(status)
	log.Printf("[sync] pass %s finished: %s (%d processed, %d matched, %d failed)",
		status.PassID, status.State, status.Processed, status.Matched, len(status.Failures))
	return status
}

// reconcile applies one entry's delta. Unchanged entries are skipped so a
// pass over an unchanged snapshot writes nothing.
func (o *Orchestrator) reconcile(ctx context.Context, entry models.Entry, snapshot *library.Snapshot) (bool, error) {
	match := Match(entry, snapshot)

	if !match.Found {
		// while an entry is missing from the library its watched state is
		// left alone, including a manual override
		if !entry.IsAvailable && entry.LibraryRef == "" {
			return false, nil
		}
		result := database.SyncResult{
			IsAvailable:        false,
			IsWatched:          entry.IsWatched,
			WatchedManuallySet: entry.WatchedManuallySet,
		}
		return false, o.store.ApplySyncResult(ctx, entry.ID, result)
	}

	watched, err := o.resolver.Resolve(ctx, match.LibraryRef, entry.MediaType)
	if err != nil {
		return true, fmt.Errorf("resolve watched state: %w", err)
	}

	// once the item is available the server's playback record wins and any
	// manual override is retired
	if entry.IsAvailable && entry.LibraryRef == match.LibraryRef &&
		entry.IsWatched == watched && !entry.WatchedManuallySet {
		return true, nil
	}

	result := database.SyncResult{
		IsAvailable: true,
		LibraryRef:  match.LibraryRef,
		IsWatched:   watched,
	}
	return true, o.store.ApplySyncResult(ctx, entry.ID, result)
}
