package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evercatalog/catalog/pkg/models"
)

func TestToJSONMapRoundTripsStruct(t *testing.T) {
	m, err := toJSONMap(ProjectCreatedPayload{
		ProjectID: "proj-1", Name: "catalog-core", Path: "/repos/catalog-core", Type: models.ProjectTypeLibrary,
	})
	require.NoError(t, err)
	assert.Equal(t, "proj-1", m["project_id"])
	assert.Equal(t, "catalog-core", m["name"])
	assert.Equal(t, string(models.ProjectTypeLibrary), m["type"])
}

func TestToJSONMapOmitsEmptyProjectID(t *testing.T) {
	m, err := toJSONMap(JobTransitionedPayload{
		JobID: "job-1", Kind: models.JobKindScan, From: models.JobStatusPending, To: models.JobStatusRunning,
	})
	require.NoError(t, err)
	assert.NotContains(t, m, "project_id")
	assert.Equal(t, "job-1", m["job_id"])
}
