package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrRateLimited is returned when the sync API rate limit is exceeded.
var ErrRateLimited = errors.New("rate limit exceeded")

// apiCooldown is the minimum time between API-triggered syncs.
const apiCooldown = 30 * time.Second

// SyncResult contains the result of a sync operation.
type SyncResult struct {
	DocumentsAdded   int       `json:"documents_added"`
	DocumentsRemoved int       `json:"documents_removed"`
	FeaturesImported int       `json:"features_imported"`
	FeaturesTotal    int       `json:"features_total"`
	SyncedAt         time.Time `json:"synced_at"`
	NextScheduledAt  time.Time `json:"next_scheduled_at,omitempty"`
}

// LibrarySync runs the library sync periodically and on demand.
type LibrarySync struct {
	library  *Library
	interval time.Duration
	logger   *slog.Logger

	// Lifecycle management
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Rate limiting for API triggers
	lastAPISync time.Time
	apiMutex    sync.Mutex

	// Prevents concurrent sync operations
	syncOpMutex sync.Mutex

	// Track next scheduled sync for reporting
	nextSync time.Time
	syncMu   sync.RWMutex
}

// NewLibrarySync creates a new library sync.
func NewLibrarySync(library *Library, interval time.Duration, logger *slog.Logger) *LibrarySync {
	return &LibrarySync{
		library:  library,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
		// Initialize to past time to allow immediate first API call
		lastAPISync: time.Now().Add(-apiCooldown - time.Second),
	}
}

// Start begins the periodic sync scheduler.
func (s *LibrarySync) Start(ctx context.Context) {
	s.logger.Info("starting library sync", "interval", s.interval)

	s.wg.Add(1)
	go s.run(ctx)
}

// run is the main sync loop.
func (s *LibrarySync) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.setNextSync(time.Now().Add(s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("library sync stopped: context canceled")
			return
		case <-s.stopCh:
			s.logger.Info("library sync stopped")
			return
		case <-ticker.C:
			s.logger.Debug("scheduled sync triggered")
			if _, err := s.SyncNow(ctx); err != nil {
				s.logger.Error("sync failed", "error", err)
			}
			s.setNextSync(time.Now().Add(s.interval))
		}
	}
}

// Stop gracefully stops the library sync. It is safe to call twice.
func (s *LibrarySync) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("stopping library sync")
		close(s.stopCh)
	})
	s.wg.Wait()
}

// TriggerSync runs a sync for an API caller. Calls within 30 seconds of
// the previous one return ErrRateLimited.
func (s *LibrarySync) TriggerSync(ctx context.Context) (SyncResult, error) {
	s.apiMutex.Lock()
	defer s.apiMutex.Unlock()

	if time.Since(s.lastAPISync) < apiCooldown {
		return SyncResult{}, ErrRateLimited
	}
	s.lastAPISync = time.Now()

	return s.SyncNow(ctx)
}

// SyncNow runs one sync immediately.
func (s *LibrarySync) SyncNow(ctx context.Context) (SyncResult, error) {
	s.syncOpMutex.Lock()
	defer s.syncOpMutex.Unlock()

	stats, err := s.library.Sync(ctx)
	if err != nil {
		return SyncResult{}, err
	}

	return SyncResult{
		DocumentsAdded:   stats.Added,
		DocumentsRemoved: stats.Removed,
		FeaturesImported: stats.Features,
		FeaturesTotal:    s.library.store.Count(),
		SyncedAt:         time.Now(),
		NextScheduledAt:  s.getNextSync(),
	}, nil
}

// Publish uploads the current export through the library.
func (s *LibrarySync) Publish(ctx context.Context) (string, error) {
	s.syncOpMutex.Lock()
	defer s.syncOpMutex.Unlock()
	return s.library.Publish(ctx)
}

func (s *LibrarySync) setNextSync(t time.Time) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	s.nextSync = t
}

func (s *LibrarySync) getNextSync() time.Time {
	s.syncMu.RLock()
	defer s.syncMu.RUnlock()
	return s.nextSync
}

// Interval returns the sync interval.
func (s *LibrarySync) Interval() time.Duration {
	return s.interval
}
