package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/evercatalog/catalog/pkg/jobs"
	"github.com/evercatalog/catalog/pkg/models"
)

// runSupervisor is the main poll loop: on each tick it claims as many due
// jobs as there is spare capacity for and spawns one goroutine per claimed
// job.
func (s *Scheduler) runSupervisor(ctx context.Context) {
	defer s.wg.Done()

	log := slog.With("component", "queue")
	log.Info("supervisor started")

	for {
		select {
		case <-s.stopCh:
			log.Info("supervisor shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, supervisor shutting down")
			return
		default:
			if err := s.pollAndDispatch(ctx); err != nil {
				if errors.Is(err, ErrAtCapacity) {
					s.sleep(s.pollInterval())
					continue
				}
				log.Error("poll failed", "error", err)
				s.sleep(time.Second)
				continue
			}
			s.sleep(s.pollInterval())
		}
	}
}

// pollInterval returns Config.PollInterval jittered by ±PollIntervalJitter
// so multiple scheduler instances don't poll in lockstep.
func (s *Scheduler) pollInterval() time.Duration {
	base := s.cfg.PollInterval
	jitter := s.cfg.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

// pollAndDispatch claims up to the scheduler's spare capacity and starts a
// goroutine to run each claimed job.
func (s *Scheduler) pollAndDispatch(ctx context.Context) error {
	exclude, active := s.activeIDs()
	available := s.cfg.MaxConcurrent - active
	if available <= 0 {
		return ErrAtCapacity
	}

	claimed, err := s.store.ClaimPendingJobs(ctx, available, exclude)
	if err != nil {
		return fmt.Errorf("queue: claim pending jobs: %w", err)
	}

	for i := range claimed {
		job := claimed[i]
		s.register(job.ID)
		s.wg.Add(1)
		go func(j models.Job) {
			defer s.wg.Done()
			defer s.unregister(j.ID)
			s.runJob(ctx, &j)
		}(job)
	}
	return nil
}

// runJob executes one claimed job through its registered handler, records a
// JobRun for the attempt, and persists the terminal state of the Job —
// completed on success, or pending-with-backoff/failed on error depending
// on whether attempts remain (spec §4.9).
func (s *Scheduler) runJob(ctx context.Context, job *models.Job) {
	log := slog.With("job_id", job.ID, "org_id", job.OrgID, "job_kind", job.Kind)
	log.Info("job claimed")
	from := job.Status

	run := &models.JobRun{
		ID:        uuid.NewString(),
		JobID:     job.ID,
		Status:    models.JobRunStatusRunning,
		StartedAt: time.Now(),
	}
	if err := s.store.CreateJobRun(ctx, run); err != nil {
		log.Error("create job run failed", "error", err)
	}

	handler, ok := s.handlers[string(job.Kind)]
	var result models.JSONMap
	var handlerErr error
	if !ok {
		handlerErr = fmt.Errorf("queue: no handler registered for job kind %q", job.Kind)
	} else {
		result, handlerErr = handler(ctx, job)
	}

	finishedAt := time.Now()
	run.FinishedAt = &finishedAt
	if handlerErr != nil {
		run.Status = models.JobRunStatusFailed
		msg := handlerErr.Error()
		run.Error = &msg
	} else {
		run.Status = models.JobRunStatusSucceeded
		run.Result = result
	}
	if err := s.store.UpdateJobRun(ctx, run); err != nil {
		log.Error("update job run failed", "error", err)
	}

	if handlerErr == nil {
		job.Status = models.JobStatusCompleted
		job.Result = result
		job.LastError = nil
		job.CompletedAt = &finishedAt
		if err := s.store.UpdateJob(ctx, job); err != nil {
			log.Error("mark job completed failed", "error", err)
		}
		s.recordTransition(ctx, log, *job, from)
		log.Info("job completed")
		return
	}

	job.LastError = jobs.ErrorPayload(handlerErr)
	if job.CanRetry() {
		job.Status = models.JobStatusPending
		job.RunAfter = time.Now().Add(models.RetryBackoff(job.Attempts))
		log.Warn("job failed, scheduled for retry",
			"error", handlerErr, "attempts", job.Attempts, "max_attempts", job.MaxAttempts,
			"retry_after", job.RunAfter)
	} else {
		job.Status = models.JobStatusFailed
		job.CompletedAt = &finishedAt
		log.Error("job failed, attempts exhausted", "error", handlerErr, "attempts", job.Attempts)
	}
	if err := s.store.UpdateJob(ctx, job); err != nil {
		log.Error("persist job failure failed", "error", err)
	}
	if job.Status == models.JobStatusFailed {
		s.recordTransition(ctx, log, *job, from)
	}
}

// recordTransition notifies the scheduler's JobRecorder, if any, that job
// reached a terminal state. Failures to record are logged, not propagated —
// the audit trail is best-effort and must never roll back a completed job.
func (s *Scheduler) recordTransition(ctx context.Context, log *slog.Logger, job models.Job, from models.JobStatus) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.JobTransitioned(ctx, job.OrgID, job, from); err != nil {
		log.Error("record job transition failed", "error", err)
	}
}
