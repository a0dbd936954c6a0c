package models

import "time"

// JobKind identifies which handler (see pkg/jobs) processes a job.
type JobKind string

const (
	JobKindScan              JobKind = "scan"
	JobKindRefresh           JobKind = "refresh"
	JobKindHealthCheck       JobKind = "health_check"
	JobKindLLMAnalysis       JobKind = "llm_analysis"
	JobKindEmbeddingIndex    JobKind = "embedding_index"
	JobKindQualityAssessment JobKind = "quality_assessment"
)

// JobStatus is the lifecycle state of a Job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether s is a terminal status (no further transitions).
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// DefaultMaxAttempts is the default retry ceiling for a new job.
const DefaultMaxAttempts = 3

// JobError is the structured shape stored in Job.LastError.
type JobError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Job is a unit of catalog work in the queue.
type Job struct {
	ID        string  `db:"id" json:"id"`
	OrgID     string  `db:"organization_id" json:"organization_id"`
	ProjectID *string `db:"project_id" json:"project_id,omitempty"`

	Kind   JobKind   `db:"job_type" json:"job_type"`
	Status JobStatus `db:"status" json:"status"`

	Priority    int `db:"priority" json:"priority"`
	Attempts    int `db:"attempts" json:"attempts"`
	MaxAttempts int `db:"max_attempts" json:"max_attempts"`

	RunAfter time.Time `db:"run_after" json:"run_after"`

	Result    JSONMap `db:"result" json:"result,omitempty"`
	LastError JSONMap `db:"last_error" json:"last_error,omitempty"`

	StartedAt   *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CanRetry reports whether the job has attempts remaining.
func (j *Job) CanRetry() bool {
	return j.Attempts < j.MaxAttempts
}

// JobRunStatus is the lifecycle state of a single execution attempt.
type JobRunStatus string

const (
	JobRunStatusRunning   JobRunStatus = "running"
	JobRunStatusSucceeded JobRunStatus = "succeeded"
	JobRunStatusFailed    JobRunStatus = "failed"
)

// JobRun is an append-only record of one execution attempt of a Job.
type JobRun struct {
	ID    string `db:"id" json:"id"`
	JobID string `db:"job_id" json:"job_id"`

	Status JobRunStatus `db:"status" json:"status"`

	StartedAt  time.Time  `db:"started_at" json:"started_at"`
	FinishedAt *time.Time `db:"finished_at" json:"finished_at,omitempty"`

	Result JSONMap `db:"result" json:"result,omitempty"`
	Error  *string `db:"error" json:"error,omitempty"`
}

// RetryBackoff returns the run_after delay to apply after the job's attempts
// counter reaches attempts, per spec.md §4.9: min(300s, 2^attempts · 5s),
// with attempts below 1 treated as 1.
func RetryBackoff(attempts int) time.Duration {
	const capDelay = 300 * time.Second
	if attempts < 1 {
		attempts = 1
	}
	delay := 5 * time.Second
	for i := 0; i < attempts; i++ {
		delay *= 2
		if delay >= capDelay {
			return capDelay
		}
	}
	return delay
}
