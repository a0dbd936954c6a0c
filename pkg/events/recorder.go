package events

import (
	"context"
	"fmt"

	"github.com/evercatalog/catalog/pkg/models"
)

// eventStore is the persistence dependency Recorder needs, satisfied by
// *store.Store. A narrow interface keeps this package unit-testable without
// a live database.
type eventStore interface {
	RecordEvent(ctx context.Context, e *models.CatalogEvent) error
}

// Recorder appends CatalogEvent rows for C1–C12's mutations. Persisting a
// row is enough to publish it: the catalog_notify_event trigger fires
// pg_notify(Channel, id) on insert, so Recorder has no separate notify step
// — contrast the donor's EventPublisher, which issues pg_notify itself
// inside the same transaction as the insert because its events table has
// no such trigger.
type Recorder struct {
	store eventStore
}

// NewRecorder wraps store, typically a *store.Store.
func NewRecorder(store eventStore) *Recorder {
	return &Recorder{store: store}
}

// ProjectCreated records a project.created event.
func (r *Recorder) ProjectCreated(ctx context.Context, orgID string, p models.Project) error {
	payload, err := toJSONMap(ProjectCreatedPayload{ProjectID: p.ID, Name: p.Name, Path: p.Path, Type: p.Type})
	if err != nil {
		return err
	}
	return r.record(ctx, &models.CatalogEvent{
		OrgID: orgID, ProjectID: &p.ID,
		EventType: models.EventTypeProjectCreated, Payload: payload,
	})
}

// ProjectUpdated records a project.updated event naming which fields changed.
func (r *Recorder) ProjectUpdated(ctx context.Context, orgID, projectID string, fields []string) error {
	payload, err := toJSONMap(ProjectUpdatedPayload{ProjectID: projectID, Fields: fields})
	if err != nil {
		return err
	}
	return r.record(ctx, &models.CatalogEvent{
		OrgID: orgID, ProjectID: &projectID,
		EventType: models.EventTypeProjectUpdated, Payload: payload,
	})
}

// ProjectDeleted records a project.deleted event.
func (r *Recorder) ProjectDeleted(ctx context.Context, orgID, projectID string) error {
	payload, err := toJSONMap(ProjectDeletedPayload{ProjectID: projectID})
	if err != nil {
		return err
	}
	return r.record(ctx, &models.CatalogEvent{
		OrgID: orgID, ProjectID: &projectID,
		EventType: models.EventTypeProjectDeleted, Payload: payload,
	})
}

// JobTransitioned records a job.transitioned event when job's status moves
// away from from.
func (r *Recorder) JobTransitioned(ctx context.Context, orgID string, job models.Job, from models.JobStatus) error {
	payload, err := toJSONMap(JobTransitionedPayload{
		JobID: job.ID, ProjectID: derefOrEmpty(job.ProjectID),
		Kind: job.Kind, From: from, To: job.Status,
	})
	if err != nil {
		return err
	}
	jobID := job.ID
	return r.record(ctx, &models.CatalogEvent{
		OrgID: orgID, ProjectID: job.ProjectID, JobID: &jobID,
		EventType: models.EventTypeJobTransitioned, Payload: payload,
	})
}

func (r *Recorder) record(ctx context.Context, e *models.CatalogEvent) error {
	if err := r.store.RecordEvent(ctx, e); err != nil {
		return fmt.Errorf("events: record: %w", err)
	}
	return nil
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
