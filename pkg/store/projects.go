package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/evercatalog/catalog/pkg/catalogerr"
	"github.com/evercatalog/catalog/pkg/models"
)

const projectColumns = `id, organization_id, name, title, description, path, type, lifecycle,
	languages, frameworks, tags, repository_url, default_branch, license_spdx,
	health_score, quality_score, loc_total, file_count, avg_complexity, test_coverage,
	production_readiness, quality_assessment, quality_indicators,
	last_synced_at, last_commit_at, last_commit_sha, last_quality_check_at,
	extra_metadata, created_at, updated_at`

// CreateProject inserts p, returning catalogerr.ErrAlreadyExists if the
// (organization_id, name) or (organization_id, path) uniqueness invariant is
// violated.
func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	if p.OrgID == "" || p.Name == "" || p.Path == "" {
		return catalogerr.NewValidationError("project", "organization_id, name, and path are required")
	}
	p.NormalizeTechTags()

	query := `INSERT INTO catalog_projects (` + projectColumns + `)
		VALUES (:id, :organization_id, :name, :title, :description, :path, :type, :lifecycle,
			:languages, :frameworks, :tags, :repository_url, :default_branch, :license_spdx,
			:health_score, :quality_score, :loc_total, :file_count, :avg_complexity, :test_coverage,
			:production_readiness, :quality_assessment, :quality_indicators,
			:last_synced_at, :last_commit_at, :last_commit_sha, :last_quality_check_at,
			:extra_metadata, now(), now())`

	_, err := s.db.NamedExecContext(ctx, query, p)
	return wrapWriteErr("create project", err)
}

// GetProject fetches a single project scoped to org, returning
// catalogerr.ErrNotFound if absent.
func (s *Store) GetProject(ctx context.Context, orgID, id string) (*models.Project, error) {
	var p models.Project
	err := s.db.GetContext(ctx, &p,
		`SELECT `+projectColumns+` FROM catalog_projects WHERE organization_id = $1 AND id = $2`,
		orgID, id)
	return wrapProjectGet(&p, err)
}

// GetProjectByPath fetches a project by its unique (org, path) key.
func (s *Store) GetProjectByPath(ctx context.Context, orgID, path string) (*models.Project, error) {
	var p models.Project
	err := s.db.GetContext(ctx, &p,
		`SELECT `+projectColumns+` FROM catalog_projects WHERE organization_id = $1 AND path = $2`,
		orgID, path)
	return wrapProjectGet(&p, err)
}

func wrapProjectGet(p *models.Project, err error) (*models.Project, error) {
	if err == nil {
		return p, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: get project: %w", catalogerr.ErrNotFound)
	}
	return nil, fmt.Errorf("store: get project: %w", err)
}

// ListProjectNames returns every project name for org, used by the scan
// handler to synthesize unique names within a batch.
func (s *Store) ListProjectNames(ctx context.Context, orgID string) ([]string, error) {
	var names []string
	err := s.db.SelectContext(ctx, &names,
		`SELECT name FROM catalog_projects WHERE organization_id = $1`, orgID)
	if err != nil {
		return nil, fmt.Errorf("store: list project names: %w", err)
	}
	return names, nil
}

// ListProjects returns every project for org.
func (s *Store) ListProjects(ctx context.Context, orgID string) ([]models.Project, error) {
	var projects []models.Project
	err := s.db.SelectContext(ctx, &projects,
		`SELECT `+projectColumns+` FROM catalog_projects WHERE organization_id = $1 ORDER BY name`, orgID)
	if err != nil {
		return nil, fmt.Errorf("store: list projects: %w", err)
	}
	return projects, nil
}

// ListProjectsWithExistingPath returns every project for org whose path
// still exists on disk, used by the health_check handler.
func (s *Store) ListProjectsWithExistingPath(ctx context.Context, orgID string, exists func(path string) bool) ([]models.Project, error) {
	all, err := s.ListProjects(ctx, orgID)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if exists(p.Path) {
			out = append(out, p)
		}
	}
	return out, nil
}

// ListProjectsMissingQualityScore returns every project for org whose
// quality_score is still null, used by quality_assessment when
// force_refresh is false.
func (s *Store) ListProjectsMissingQualityScore(ctx context.Context, orgID string) ([]models.Project, error) {
	var projects []models.Project
	err := s.db.SelectContext(ctx, &projects,
		`SELECT `+projectColumns+` FROM catalog_projects WHERE organization_id = $1 AND quality_score IS NULL ORDER BY name`, orgID)
	if err != nil {
		return nil, fmt.Errorf("store: list projects missing quality score: %w", err)
	}
	return projects, nil
}

// ProjectsByIDs fetches every project in ids scoped to org, in no
// particular order, used by C10 to resolve semantic-search hits back into
// full Project records. A nil or empty ids returns an empty slice without
// querying.
func (s *Store) ProjectsByIDs(ctx context.Context, orgID string, ids []string) ([]models.Project, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		`SELECT `+projectColumns+` FROM catalog_projects WHERE organization_id = ? AND id IN (?)`,
		orgID, ids)
	if err != nil {
		return nil, fmt.Errorf("store: build projects-by-ids query: %w", err)
	}
	query = s.db.Rebind(query)

	var projects []models.Project
	if err := s.db.SelectContext(ctx, &projects, query, args...); err != nil {
		return nil, fmt.Errorf("store: projects by ids: %w", err)
	}
	return projects, nil
}

// UpdateProject writes every mutable field of p, normalizing tech tags
// first per the language/framework normalization invariant observed by
// every handler.
func (s *Store) UpdateProject(ctx context.Context, p *models.Project) error {
	if p.ID == "" || p.OrgID == "" {
		return catalogerr.NewValidationError("project", "id and organization_id are required")
	}
	p.NormalizeTechTags()

	query := `UPDATE catalog_projects SET
		name = :name, title = :title, description = :description, path = :path,
		type = :type, lifecycle = :lifecycle, languages = :languages, frameworks = :frameworks,
		tags = :tags, repository_url = :repository_url, default_branch = :default_branch,
		license_spdx = :license_spdx, health_score = :health_score, quality_score = :quality_score,
		loc_total = :loc_total, file_count = :file_count, avg_complexity = :avg_complexity,
		test_coverage = :test_coverage, production_readiness = :production_readiness,
		quality_assessment = :quality_assessment, quality_indicators = :quality_indicators,
		last_synced_at = :last_synced_at, last_commit_at = :last_commit_at,
		last_commit_sha = :last_commit_sha, last_quality_check_at = :last_quality_check_at,
		extra_metadata = :extra_metadata, updated_at = now()
		WHERE id = :id AND organization_id = :organization_id`

	res, err := s.db.NamedExecContext(ctx, query, p)
	if err != nil {
		return wrapWriteErr("update project", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("store: update project: %w", catalogerr.ErrNotFound)
	}
	return nil
}

// DeleteProject removes a project and its jobs/job runs (cascade), scoped to
// org. Project deletion is the only way a Project is destroyed (§3).
func (s *Store) DeleteProject(ctx context.Context, orgID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM catalog_projects WHERE organization_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("store: delete project: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("store: delete project: %w", catalogerr.ErrNotFound)
	}
	return nil
}
