package jobstore

import (
	"context"
	"log/slog"
	"time"
)

// CleanupService periodically removes terminal jobs older than MaxAge.
// All operations are idempotent and safe to run from a single frontend
// instance.
type CleanupService struct {
	store    *Store
	maxAge   time.Duration
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewCleanupService builds a cleanup loop over store, removing jobs older
// than maxAge every interval.
func NewCleanupService(store *Store, maxAge, interval time.Duration) *CleanupService {
	return &CleanupService{store: store, maxAge: maxAge, interval: interval}
}

// Start launches the background cleanup loop.
func (s *CleanupService) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("job cleanup service started", "max_age", s.maxAge, "interval", s.interval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *CleanupService) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("job cleanup service stopped")
}

func (s *CleanupService) run(ctx context.Context) {
	defer close(s.done)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *CleanupService) runOnce(ctx context.Context) {
	count, err := s.store.CleanupOld(ctx, s.maxAge)
	if err != nil {
		slog.Error("job cleanup failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("cleaned up old jobs", "count", count)
	}
}
