package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evercatalog/catalog/pkg/catalogerr"
	"github.com/evercatalog/catalog/pkg/models"
)

const jobColumns = `id, organization_id, project_id, job_type, status, priority, attempts,
	max_attempts, run_after, result, last_error, started_at, completed_at, created_at, updated_at`

// CreateJob enqueues a new job in pending status.
func (s *Store) CreateJob(ctx context.Context, j *models.Job) error {
	if j.OrgID == "" || j.Kind == "" {
		return catalogerr.NewValidationError("job", "organization_id and job_type are required")
	}
	if j.MaxAttempts == 0 {
		j.MaxAttempts = models.DefaultMaxAttempts
	}
	if j.Status == "" {
		j.Status = models.JobStatusPending
	}

	query := `INSERT INTO catalog_jobs (` + jobColumns + `)
		VALUES (:id, :organization_id, :project_id, :job_type, :status, :priority, :attempts,
			:max_attempts, :run_after, :result, :last_error, :started_at, :completed_at, now(), now())`
	_, err := s.db.NamedExecContext(ctx, query, j)
	return wrapWriteErr("create job", err)
}

// GetJob fetches a single job scoped to org.
func (s *Store) GetJob(ctx context.Context, orgID, id string) (*models.Job, error) {
	var j models.Job
	err := s.db.GetContext(ctx, &j,
		`SELECT `+jobColumns+` FROM catalog_jobs WHERE organization_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("store: get job: %w", catalogerr.ErrNotFound)
		}
		return nil, fmt.Errorf("store: get job: %w", err)
	}
	return &j, nil
}

// ListJobsForProject returns every job attached to projectID, newest first.
func (s *Store) ListJobsForProject(ctx context.Context, orgID, projectID string) ([]models.Job, error) {
	var jobs []models.Job
	err := s.db.SelectContext(ctx, &jobs,
		`SELECT `+jobColumns+` FROM catalog_jobs
		 WHERE organization_id = $1 AND project_id = $2 ORDER BY created_at DESC`,
		orgID, projectID)
	if err != nil {
		return nil, fmt.Errorf("store: list jobs for project: %w", err)
	}
	return jobs, nil
}

// UpdateJob persists every mutable field of j (status, attempts, result,
// last_error, timestamps). It does not change run_after or priority by
// itself — callers set those explicitly before calling, e.g. via
// RetryBackoff on failure.
func (s *Store) UpdateJob(ctx context.Context, j *models.Job) error {
	query := `UPDATE catalog_jobs SET
		status = :status, priority = :priority, attempts = :attempts, max_attempts = :max_attempts,
		run_after = :run_after, result = :result, last_error = :last_error,
		started_at = :started_at, completed_at = :completed_at, updated_at = now()
		WHERE id = :id AND organization_id = :organization_id`
	res, err := s.db.NamedExecContext(ctx, query, j)
	if err != nil {
		return fmt.Errorf("store: update job: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("store: update job: %w", catalogerr.ErrNotFound)
	}
	return nil
}

// ClaimPendingJobs atomically claims up to limit pending/due jobs across all
// organizations, marking them running and bumping attempts, using
// SELECT ... FOR UPDATE SKIP LOCKED so concurrent workers never double-claim
// a row (spec §4.9). Rows already excluded by id are skipped, letting a
// caller retry a batch without re-claiming jobs it gave up on this round.
func (s *Store) ClaimPendingJobs(ctx context.Context, limit int, excludeIDs []string) ([]models.Job, error) {
	if limit <= 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: claim pending jobs: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if excludeIDs == nil {
		excludeIDs = []string{}
	}

	var candidates []models.Job
	selectQuery := `SELECT ` + jobColumns + ` FROM catalog_jobs
		WHERE status = 'pending' AND run_after <= now() AND NOT (id = ANY($1))
		ORDER BY priority ASC, created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED`
	if err := tx.SelectContext(ctx, &candidates, selectQuery, pqStringArray(excludeIDs), limit); err != nil {
		return nil, fmt.Errorf("store: claim pending jobs: select: %w", err)
	}
	if len(candidates) == 0 {
		return nil, tx.Commit()
	}

	ids := make([]string, len(candidates))
	for i, j := range candidates {
		ids[i] = j.ID
	}

	updateQuery := `UPDATE catalog_jobs
		SET status = 'running', attempts = attempts + 1, started_at = now(), updated_at = now()
		WHERE id = ANY($1)
		RETURNING ` + jobColumns
	var claimed []models.Job
	if err := tx.SelectContext(ctx, &claimed, updateQuery, pqStringArray(ids)); err != nil {
		return nil, fmt.Errorf("store: claim pending jobs: update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: claim pending jobs: commit: %w", err)
	}
	return claimed, nil
}

// CountPendingJobs returns the number of jobs currently due to run
// (pending, run_after elapsed), used by the scheduler's health report.
func (s *Store) CountPendingJobs(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n,
		`SELECT count(*) FROM catalog_jobs WHERE status = 'pending' AND run_after <= now()`)
	if err != nil {
		return 0, fmt.Errorf("store: count pending jobs: %w", err)
	}
	return n, nil
}

// ResetStuckJobs reverts every job still running with started_at older than
// olderThan (or unset) back to pending, bumping attempts and clearing
// started_at. Called with olderThan=0 once at scheduler startup (a job left
// running across a process restart has no worker left to finish it) and
// again on a recurring interval with a real threshold, mirroring the
// donor's startup-sweep-plus-periodic-sweep orphan detection (Open Question
// §9 decision).
func (s *Store) ResetStuckJobs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res, err := s.db.ExecContext(ctx,
		`UPDATE catalog_jobs SET status = 'pending', attempts = attempts + 1,
			started_at = NULL, updated_at = now()
		 WHERE status = 'running' AND (started_at IS NULL OR started_at <= $1)`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: reset stuck jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// CreateJobRun appends a new execution-attempt record.
func (s *Store) CreateJobRun(ctx context.Context, r *models.JobRun) error {
	query := `INSERT INTO catalog_job_runs (id, job_id, status, started_at, finished_at, result, error)
		VALUES (:id, :job_id, :status, :started_at, :finished_at, :result, :error)`
	_, err := s.db.NamedExecContext(ctx, query, r)
	if err != nil {
		return fmt.Errorf("store: create job run: %w", err)
	}
	return nil
}

// UpdateJobRun persists the terminal fields of a job run (status,
// finished_at, result, error).
func (s *Store) UpdateJobRun(ctx context.Context, r *models.JobRun) error {
	query := `UPDATE catalog_job_runs SET status = :status, finished_at = :finished_at,
		result = :result, error = :error WHERE id = :id`
	res, err := s.db.NamedExecContext(ctx, query, r)
	if err != nil {
		return fmt.Errorf("store: update job run: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("store: update job run: %w", catalogerr.ErrNotFound)
	}
	return nil
}

// ListJobRuns returns every run recorded for jobID, oldest first.
func (s *Store) ListJobRuns(ctx context.Context, jobID string) ([]models.JobRun, error) {
	var runs []models.JobRun
	err := s.db.SelectContext(ctx, &runs,
		`SELECT id, job_id, status, started_at, finished_at, result, error
		 FROM catalog_job_runs WHERE job_id = $1 ORDER BY started_at ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("store: list job runs: %w", err)
	}
	return runs, nil
}

// pqStringArray renders a Go string slice as a Postgres text array literal
// for use with = ANY($n), avoiding a dependency on the lib/pq array helpers
// the donor used (this module talks to Postgres exclusively through pgx).
func pqStringArray(ss []string) string {
	out := "{"
	for i, s := range ss {
		if i > 0 {
			out += ","
		}
		out += `"` + escapeArrayElem(s) + `"`
	}
	return out + "}"
}

func escapeArrayElem(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			b = append(b, '\\')
		}
		b = append(b, c)
	}
	return string(b)
}
