//go:build integration

package search

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	testdb "github.com/evercatalog/catalog/test/database"

	"github.com/evercatalog/catalog/pkg/models"
	"github.com/evercatalog/catalog/pkg/store"
)

func newTestStore(t *testing.T) *store.Store {
	client := testdb.NewTestClient(t)
	return store.New(client.DB)
}

func seedProject(t *testing.T, st *store.Store, orgID string, mutate func(*models.Project)) models.Project {
	t.Helper()
	p := models.Project{
		ID:        uuid.NewString(),
		OrgID:     orgID,
		Name:      "project-" + uuid.NewString()[:8],
		Path:      "/repos/" + uuid.NewString(),
		Type:      models.ProjectTypeOther,
		Lifecycle: models.LifecycleActive,
	}
	if mutate != nil {
		mutate(&p)
	}
	require.NoError(t, st.CreateProject(context.Background(), &p))
	return p
}

func TestSearchFindsKeywordMatchViaFTS(t *testing.T) {
	st := newTestStore(t)
	orgID := uuid.NewString()
	title := "payments gateway integration"
	seedProject(t, st, orgID, func(p *models.Project) {
		p.Title = &title
	})
	seedProject(t, st, orgID, func(p *models.Project) {
		other := "unrelated static site generator"
		p.Title = &other
	})

	svc := New(st, nil, nil, Config{})
	results, err := svc.Search(context.Background(), orgID, "payments gateway", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.NotNil(t, results[0].Project.Title)
	require.Contains(t, *results[0].Project.Title, title)
}

func TestSearchIsScopedToOrganization(t *testing.T) {
	st := newTestStore(t)
	title := "billing reconciliation service"
	seedProject(t, st, uuid.NewString(), func(p *models.Project) { p.Title = &title })

	svc := New(st, nil, nil, Config{})
	results, err := svc.Search(context.Background(), uuid.NewString(), "billing reconciliation", 10)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestQueryRelaxesFiltersWhenTooFewMatch(t *testing.T) {
	st := newTestStore(t)
	orgID := uuid.NewString()
	title := "inventory tracking tool"
	p := seedProject(t, st, orgID, func(p *models.Project) {
		p.Title = &title
		p.Languages = models.StringSlice{"go"}
		p.Type = models.ProjectTypeAPI
	})

	svc := New(st, nil, nil, Config{})
	// A type filter the seeded project doesn't satisfy forces relaxation;
	// the language-matching project should still surface.
	parsed := ParsedQuery{
		Keywords: []string{"inventory", "tracking"},
		Filters:  Filters{Languages: []string{"go"}, Type: models.ProjectTypeCLI},
	}
	fused, err := svc.Search(context.Background(), orgID, "inventory tracking", candidatePoolSize(10))
	require.NoError(t, err)
	out := relax(fused, parsed.Filters, 10)
	require.NotEmpty(t, out)
	require.Equal(t, p.ID, out[0].Project.ID)
}

func TestProjectsByIDsFetchesOnlyRequestedOrg(t *testing.T) {
	st := newTestStore(t)
	orgA := uuid.NewString()
	orgB := uuid.NewString()
	pa := seedProject(t, st, orgA, nil)
	seedProject(t, st, orgB, nil)

	got, err := st.ProjectsByIDs(context.Background(), orgA, []string{pa.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, pa.ID, got[0].ID)
}
