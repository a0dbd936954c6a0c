package events

import (
	"encoding/json"
	"fmt"

	"github.com/evercatalog/catalog/pkg/models"
)

// ProjectCreatedPayload is the payload for EventTypeProjectCreated.
type ProjectCreatedPayload struct {
	ProjectID string              `json:"project_id"`
	Name      string              `json:"name"`
	Path      string              `json:"path"`
	Type      models.ProjectType `json:"type"`
}

// ProjectUpdatedPayload is the payload for EventTypeProjectUpdated.
// Fields lists which columns changed, matching the donor's practice of
// naming the delta rather than embedding the full before/after record.
type ProjectUpdatedPayload struct {
	ProjectID string   `json:"project_id"`
	Fields    []string `json:"fields"`
}

// ProjectDeletedPayload is the payload for EventTypeProjectDeleted.
type ProjectDeletedPayload struct {
	ProjectID string `json:"project_id"`
}

// JobTransitionedPayload is the payload for EventTypeJobTransitioned.
type JobTransitionedPayload struct {
	JobID     string           `json:"job_id"`
	ProjectID string           `json:"project_id,omitempty"`
	Kind      models.JobKind   `json:"kind"`
	From      models.JobStatus `json:"from"`
	To        models.JobStatus `json:"to"`
}

// toJSONMap round-trips v through JSON into a models.JSONMap, the shape
// CatalogEvent.Payload stores. Payload structs are small and this runs once
// per mutation, so the extra marshal pass costs nothing a hand-written
// field-by-field conversion would save.
func toJSONMap(v any) (models.JSONMap, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("events: marshal payload: %w", err)
	}
	var m models.JSONMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("events: decode payload: %w", err)
	}
	return m, nil
}
