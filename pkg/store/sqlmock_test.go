package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evercatalog/catalog/pkg/catalogerr"
	"github.com/evercatalog/catalog/pkg/models"
)

// newMockStore wires a sqlmock connection into a *Store, letting these tests
// assert the exact SQL a call site issues without a live database.
func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sqlxDB := sqlx.NewDb(db, "postgres")
	return New(sqlxDB), mock
}

func TestStoreGetProjectReturnsNotFoundWhenRowMissing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM catalog_projects WHERE organization_id = \$1 AND id = \$2`).
		WithArgs("org1", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetProject(context.Background(), "org1", "missing")
	assert.ErrorIs(t, err, catalogerr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGetProjectScansExistingRow(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now()
	cols := []string{
		"id", "organization_id", "name", "title", "description", "path", "type", "lifecycle",
		"languages", "frameworks", "tags", "repository_url", "default_branch", "license_spdx",
		"health_score", "quality_score", "loc_total", "file_count", "avg_complexity", "test_coverage",
		"production_readiness", "quality_assessment", "quality_indicators",
		"last_synced_at", "last_commit_at", "last_commit_sha", "last_quality_check_at",
		"extra_metadata", "created_at", "updated_at",
	}
	rows := sqlmock.NewRows(cols).AddRow(
		"p1", "org1", "widget", nil, nil, "/src/widget", "library", "active",
		"{}", "{}", "{}", nil, nil, nil,
		nil, nil, nil, nil, nil, nil,
		"unknown", nil, nil,
		nil, nil, nil, nil,
		nil, now, now,
	)
	mock.ExpectQuery(`SELECT .+ FROM catalog_projects WHERE organization_id = \$1 AND id = \$2`).
		WithArgs("org1", "p1").
		WillReturnRows(rows)

	p, err := s.GetProject(context.Background(), "org1", "p1")
	require.NoError(t, err)
	assert.Equal(t, "widget", p.Name)
	assert.Equal(t, "/src/widget", p.Path)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGetEventWrapsDriverError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM catalog_events WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnError(errors.New("connection reset"))

	_, err := s.GetEvent(context.Background(), 7)
	require.Error(t, err)
	assert.NotErrorIs(t, err, catalogerr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreCreateProjectPropagatesDriverError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO catalog_projects`).
		WillReturnError(driver.ErrBadConn)

	p := &models.Project{ID: "p1", OrgID: "org1", Name: "widget", Path: "/src/widget"}
	err := s.CreateProject(context.Background(), p)
	require.Error(t, err)
}
