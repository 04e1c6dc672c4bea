// Package scheduler fires the periodic reconciliation pass.
package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"reelist/models"
	"reelist/services/syncsvc"
)

type syncTrigger interface {
	Trigger(trigger models.SyncTrigger) error
}

// Service runs the sync trigger on a fixed interval. The first fire waits a
// startup delay so the HTTP server is reachable before the initial pass
// hammers the library server.
type Service struct {
	sync         syncTrigger
	interval     time.Duration
	startupDelay time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewService(sync syncTrigger, interval, startupDelay time.Duration) *Service {
	if interval < time.Minute {
		interval = 5 * time.Minute
	}
	if startupDelay < 0 {
		startupDelay = 0
	}
	return &Service{
		sync:         sync,
		interval:     interval,
		startupDelay: startupDelay,
	}
}

// Start begins the scheduler background loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.loop(loopCtx)

	log.Printf("[scheduler] started (interval %s, startup delay %s)", s.interval, s.startupDelay)
	return nil
}

// Stop gracefully stops the scheduler.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("[scheduler] stopped")
	case <-ctx.Done():
		log.Println("[scheduler] stopped (timeout)")
	}

	s.running = false
	return nil
}

func (s *Service) loop(ctx context.Context) {
	defer s.wg.Done()

	if s.startupDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.startupDelay):
		}
	}
	s.fire()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fire()
		}
	}
}

// fire triggers one scheduled pass. A pass already in flight is skipped
// silently, not queued.
func (s *Service) fire() {
	if err := s.sync.Trigger(models.SyncTriggerScheduled); err != nil {
		if errors.Is(err, syncsvc.ErrSyncRunning) {
			log.Println("[scheduler] pass already running, skipping tick")
			return
		}
		log.Printf("[scheduler] trigger failed: %v", err)
	}
}
