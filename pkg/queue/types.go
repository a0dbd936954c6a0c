// Package queue implements C9: a polling supervisor that claims due catalog
// jobs and runs each through its pkg/jobs handler, retrying on failure and
// recovering jobs orphaned by a crashed process (spec §4.9).
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/evercatalog/catalog/pkg/models"
)

// ErrAtCapacity indicates the scheduler's concurrency ceiling is reached and
// a poll tick was skipped.
var ErrAtCapacity = errors.New("queue: at capacity")

// JobRecorder is notified whenever a claimed job reaches a terminal state.
// Satisfied by *events.Recorder; a Scheduler with no recorder set simply
// skips the call.
type JobRecorder interface {
	JobTransitioned(ctx context.Context, orgID string, job models.Job, from models.JobStatus) error
}

// Config tunes a Scheduler. Zero values are replaced by sane defaults in
// New, mirroring the donor's config.QueueConfig.
type Config struct {
	// PollInterval is how often the supervisor checks for claimable jobs.
	PollInterval time.Duration
	// PollIntervalJitter randomizes PollInterval by ±jitter so multiple
	// scheduler instances don't all poll in lockstep.
	PollIntervalJitter time.Duration
	// MaxConcurrent caps the number of jobs this scheduler runs at once.
	MaxConcurrent int
	// StuckJobThreshold is how long a job may sit in running before the
	// periodic sweep treats it as orphaned and resets it to pending.
	StuckJobThreshold time.Duration
	// StuckSweepInterval is how often the periodic stuck-job sweep runs.
	StuckSweepInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 3
	}
	if c.StuckJobThreshold <= 0 {
		c.StuckJobThreshold = 10 * time.Minute
	}
	if c.StuckSweepInterval <= 0 {
		c.StuckSweepInterval = 5 * time.Minute
	}
	return c
}

// Health reports the scheduler's current state, mirroring the donor pool's
// PoolHealth shape.
type Health struct {
	IsHealthy          bool      `json:"is_healthy"`
	DBReachable        bool      `json:"db_reachable"`
	DBError            string    `json:"db_error,omitempty"`
	ActiveJobs         int       `json:"active_jobs"`
	MaxConcurrent      int       `json:"max_concurrent"`
	QueueDepth         int64     `json:"queue_depth"`
	LastStuckSweep     time.Time `json:"last_stuck_sweep"`
	StuckJobsRecovered int       `json:"stuck_jobs_recovered"`
}
