package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// stuckState tracks periodic stuck-job sweep metrics (thread-safe), exposed
// through Scheduler.Health.
type stuckState struct {
	mu        sync.Mutex
	lastSweep time.Time
	recovered int
}

// runStuckSweep periodically resets jobs that have been running longer than
// Config.StuckJobThreshold back to pending. A job can be left running
// indefinitely only if the goroutine that claimed it died without updating
// the row (process crash, OOM kill); this recovers it for another attempt.
func (s *Scheduler) runStuckSweep(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.StuckSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweepStuckJobs(ctx)
		}
	}
}

func (s *Scheduler) sweepStuckJobs(ctx context.Context) {
	n, err := s.store.ResetStuckJobs(ctx, s.cfg.StuckJobThreshold)
	if err != nil {
		slog.Error("queue: stuck-job sweep failed", "error", err)
		return
	}
	if n > 0 {
		slog.Warn("queue: recovered stuck jobs", "count", n, "threshold", s.cfg.StuckJobThreshold)
	}

	s.stuck.mu.Lock()
	s.stuck.lastSweep = time.Now()
	s.stuck.recovered += int(n)
	s.stuck.mu.Unlock()
}
