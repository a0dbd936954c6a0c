package models

import "time"

// EventType identifies what kind of mutation a CatalogEvent records.
type EventType string

const (
	EventTypeProjectCreated  EventType = "project.created"
	EventTypeProjectUpdated  EventType = "project.updated"
	EventTypeProjectDeleted  EventType = "project.deleted"
	EventTypeJobTransitioned EventType = "job.transitioned"
)

// CatalogEvent is an append-only audit row recording a catalog mutation.
// Inserting one triggers a `pg_notify('catalog_events', id)` via the
// catalog_notify_event trigger (see 0001_init.up.sql), fanning the row out
// to any process LISTENing on that channel.
type CatalogEvent struct {
	ID        int64     `db:"id"`
	OrgID     string    `db:"organization_id"`
	ProjectID *string   `db:"project_id"`
	JobID     *string   `db:"job_id"`
	EventType EventType `db:"event_type"`
	Payload   JSONMap   `db:"payload"`
	CreatedAt time.Time `db:"created_at"`
}
