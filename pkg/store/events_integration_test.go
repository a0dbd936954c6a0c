//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testdb "github.com/evercatalog/catalog/test/database"

	"github.com/evercatalog/catalog/pkg/catalogerr"
	"github.com/evercatalog/catalog/pkg/models"
)

func TestStoreRecordEventAssignsIDAndCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	projectID := "proj-1"
	e := &models.CatalogEvent{
		OrgID: "org-1", ProjectID: &projectID,
		EventType: models.EventTypeProjectCreated,
		Payload:   models.JSONMap{"name": "catalog-core"},
	}
	require.NoError(t, s.RecordEvent(ctx, e))
	assert.NotZero(t, e.ID)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestStoreRecordEventRejectsMissingRequiredFields(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.RecordEvent(ctx, &models.CatalogEvent{EventType: models.EventTypeProjectCreated})
	require.Error(t, err)
	assert.True(t, catalogerr.IsValidationError(err))
}

func TestStoreGetEventReturnsNotFoundForMissingID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetEvent(ctx, 999999)
	require.Error(t, err)
	assert.ErrorIs(t, err, catalogerr.ErrNotFound)
}

func TestStoreEventsSinceReturnsOrgScopedOrderedEvents(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var firstID int64
	for i, org := range []string{"org-1", "org-2", "org-1"} {
		e := &models.CatalogEvent{OrgID: org, EventType: models.EventTypeProjectDeleted, Payload: models.JSONMap{"i": i}}
		require.NoError(t, s.RecordEvent(ctx, e))
		if i == 0 {
			firstID = e.ID
		}
	}

	events, err := s.EventsSince(ctx, "org-1", firstID-1, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, "org-1", e.OrgID)
	}
	assert.True(t, events[0].ID < events[1].ID)
}
