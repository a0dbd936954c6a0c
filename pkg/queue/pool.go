package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/evercatalog/catalog/pkg/jobs"
	"github.com/evercatalog/catalog/pkg/store"
)

// Scheduler polls the store for due jobs and dispatches each to the handler
// registered for its kind, bounded to Config.MaxConcurrent in-flight jobs at
// once.
type Scheduler struct {
	store    *store.Store
	handlers map[string]jobs.HandlerFunc
	cfg      Config
	recorder JobRecorder

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu     sync.RWMutex
	active map[string]struct{}

	stuck stuckState
}

// New builds a Scheduler. deps.Handlers() supplies the job-kind → handler
// map used to dispatch claimed work.
func New(st *store.Store, deps *jobs.Deps, cfg Config) *Scheduler {
	handlers := make(map[string]jobs.HandlerFunc, 8)
	for kind, fn := range deps.Handlers() {
		handlers[string(kind)] = fn
	}
	return &Scheduler{
		store:    st,
		handlers: handlers,
		cfg:      cfg.withDefaults(),
		stopCh:   make(chan struct{}),
		active:   make(map[string]struct{}),
	}
}

// Start resets any jobs left running from a previous process, then spawns
// the poll loop and the periodic stuck-job sweep. It returns immediately;
// both run in background goroutines until Stop is called or ctx is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("queue: starting scheduler",
		"poll_interval", s.cfg.PollInterval, "max_concurrent", s.cfg.MaxConcurrent)

	if n, err := s.store.ResetStuckJobs(ctx, 0); err != nil {
		slog.Error("queue: startup stuck-job reset failed", "error", err)
	} else if n > 0 {
		slog.Warn("queue: reset jobs left running by a previous process", "count", n)
	}

	s.wg.Add(2)
	go s.runSupervisor(ctx)
	go s.runStuckSweep(ctx)
}

// Stop signals the scheduler to stop polling and waits for all in-flight
// jobs to finish (graceful shutdown); it is safe to call multiple times.
func (s *Scheduler) Stop() {
	slog.Info("queue: stopping scheduler")
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	slog.Info("queue: scheduler stopped")
}

// SetRecorder attaches a JobRecorder notified on every job's terminal
// transition. Optional; unset by default so tests that construct a
// Scheduler directly don't need a store-backed recorder.
func (s *Scheduler) SetRecorder(r JobRecorder) {
	s.recorder = r
}

func (s *Scheduler) register(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[jobID] = struct{}{}
}

func (s *Scheduler) unregister(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, jobID)
}

func (s *Scheduler) activeIDs() (ids []string, count int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids = make([]string, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	return ids, len(ids)
}

// Health reports the scheduler's current state for an operator health
// endpoint.
func (s *Scheduler) Health(ctx context.Context) Health {
	_, active := s.activeIDs()

	depth, err := s.store.CountPendingJobs(ctx)
	dbReachable := err == nil
	var dbError string
	if err != nil {
		dbError = err.Error()
	}

	s.stuck.mu.Lock()
	lastSweep := s.stuck.lastSweep
	recovered := s.stuck.recovered
	s.stuck.mu.Unlock()

	return Health{
		IsHealthy:          dbReachable && active <= s.cfg.MaxConcurrent,
		DBReachable:        dbReachable,
		DBError:            dbError,
		ActiveJobs:         active,
		MaxConcurrent:      s.cfg.MaxConcurrent,
		QueueDepth:         depth,
		LastStuckSweep:     lastSweep,
		StuckJobsRecovered: recovered,
	}
}

func (s *Scheduler) sleep(d time.Duration) {
	select {
	case <-s.stopCh:
	case <-time.After(d):
	}
}
