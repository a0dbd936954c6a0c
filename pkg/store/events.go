package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/evercatalog/catalog/pkg/catalogerr"
	"github.com/evercatalog/catalog/pkg/models"
)

const catalogEventColumns = `id, organization_id, project_id, job_id, event_type, payload, created_at`

// RecordEvent appends a CatalogEvent row. The catalog_notify_event trigger
// fires pg_notify('catalog_events', id) on insert, so callers don't notify
// explicitly — see pkg/events.Recorder.
func (s *Store) RecordEvent(ctx context.Context, e *models.CatalogEvent) error {
	if e.OrgID == "" || e.EventType == "" {
		return catalogerr.NewValidationError("catalog_event", "organization_id and event_type are required")
	}

	query := `INSERT INTO catalog_events (organization_id, project_id, job_id, event_type, payload, created_at)
		VALUES (:organization_id, :project_id, :job_id, :event_type, :payload, now())
		RETURNING id, created_at`
	rows, err := s.db.NamedQueryContext(ctx, query, e)
	if err != nil {
		return fmt.Errorf("store: record event: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&e.ID, &e.CreatedAt); err != nil {
			return fmt.Errorf("store: record event: scan id: %w", err)
		}
	}
	return nil
}

// GetEvent fetches a single event by id, used by the listener to resolve the
// row a NOTIFY payload points at.
func (s *Store) GetEvent(ctx context.Context, id int64) (*models.CatalogEvent, error) {
	var e models.CatalogEvent
	err := s.db.GetContext(ctx, &e, `SELECT `+catalogEventColumns+` FROM catalog_events WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("store: get event: %w", catalogerr.ErrNotFound)
		}
		return nil, fmt.Errorf("store: get event: %w", err)
	}
	return &e, nil
}

// EventsSince returns every event for org with id > sinceID, oldest first,
// capped at limit. Used to catch a consumer up on events it missed while
// its listener connection was down.
func (s *Store) EventsSince(ctx context.Context, orgID string, sinceID int64, limit int) ([]models.CatalogEvent, error) {
	var events []models.CatalogEvent
	err := s.db.SelectContext(ctx, &events,
		`SELECT `+catalogEventColumns+` FROM catalog_events
		 WHERE organization_id = $1 AND id > $2
		 ORDER BY id ASC LIMIT $3`,
		orgID, sinceID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: events since: %w", err)
	}
	return events, nil
}
