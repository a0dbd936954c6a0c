package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/evercatalog/catalog/pkg/catalogerr"
	"github.com/evercatalog/catalog/pkg/discovery"
	"github.com/evercatalog/catalog/pkg/embedding"
	"github.com/evercatalog/catalog/pkg/manifest"
	"github.com/evercatalog/catalog/pkg/models"
	"github.com/evercatalog/catalog/pkg/ports"
	"github.com/evercatalog/catalog/pkg/quality"
	"github.com/evercatalog/catalog/pkg/store"
)

// embeddingReadmeChars bounds the README excerpt folded into an embedding
// document, matching the budget IndexProject itself trims to.
const embeddingReadmeChars = 2000

// ProjectRecorder is notified whenever a handler creates or meaningfully
// updates a project. Satisfied by *events.Recorder; a Deps with no recorder
// set simply skips the call.
type ProjectRecorder interface {
	ProjectCreated(ctx context.Context, orgID string, p models.Project) error
	ProjectUpdated(ctx context.Context, orgID, projectID string, fields []string) error
}

// Deps bundles everything a handler needs to do its work. One Deps is shared
// by every handler invocation a worker makes (spec §4.6).
type Deps struct {
	Store     *store.Store
	Embedding *embedding.Service
	Generator ports.Generator
	Recorder  ProjectRecorder
}

// recordCreated notifies Recorder, if any, that p was created. Failures are
// logged, not propagated — the audit trail must never roll back a handler
// that already persisted its result.
func (d *Deps) recordCreated(ctx context.Context, orgID string, p models.Project) {
	if d.Recorder == nil {
		return
	}
	if err := d.Recorder.ProjectCreated(ctx, orgID, p); err != nil {
		slog.Error("jobs: record project created failed", "project_id", p.ID, "error", err)
	}
}

// recordUpdated notifies Recorder, if any, that projectID's fields changed.
func (d *Deps) recordUpdated(ctx context.Context, orgID, projectID string, fields []string) {
	if d.Recorder == nil {
		return
	}
	if err := d.Recorder.ProjectUpdated(ctx, orgID, projectID, fields); err != nil {
		slog.Error("jobs: record project updated failed", "project_id", projectID, "error", err)
	}
}

// HandlerFunc processes one job, returning the result payload to store on
// Job.Result, or an error to be classified and recorded on Job.LastError.
type HandlerFunc func(ctx context.Context, job *models.Job) (models.JSONMap, error)

// Handlers returns the fixed table of job-kind handlers, keyed by
// models.JobKind, closing over d.
func (d *Deps) Handlers() map[models.JobKind]HandlerFunc {
	return map[models.JobKind]HandlerFunc{
		models.JobKindScan:              d.handleScan,
		models.JobKindRefresh:           d.handleRefresh,
		models.JobKindHealthCheck:       d.handleHealthCheck,
		models.JobKindLLMAnalysis:       d.handleLLMAnalysis,
		models.JobKindEmbeddingIndex:    d.handleEmbeddingIndex,
		models.JobKindQualityAssessment: d.handleQualityAssessment,
	}
}

// handleScan walks every path in job.Result["paths"], creating or updating a
// Project for each discovered manifest (spec §4.6).
func (d *Deps) handleScan(ctx context.Context, job *models.Job) (models.JSONMap, error) {
	paths := job.Result.GetStringSlice("paths")
	if len(paths) == 0 {
		return models.JSONMap{"discovered": 0, "created": 0, "updated": 0, "errors": []string{}}, nil
	}

	names, err := d.Store.ListProjectNames(ctx, job.OrgID)
	if err != nil {
		return nil, fmt.Errorf("jobs: scan: list existing names: %w", err)
	}
	taken := make(map[string]struct{}, len(names))
	for _, n := range names {
		taken[n] = struct{}{}
	}

	var discovered, created, updated int
	var scanErrors []string

	for _, root := range paths {
		for _, f := range discovery.Discover(root, discovery.Options{}) {
			discovered++
			wasCreate, err := d.upsertDiscoveredProject(ctx, job.OrgID, f, taken)
			if err != nil {
				slog.Warn("jobs: scan: upsert failed", "path", f.Path, "error", err)
				if len(scanErrors) < 10 {
					scanErrors = append(scanErrors, fmt.Sprintf("%s: %v", f.Path, err))
				}
				continue
			}
			if wasCreate {
				created++
			} else {
				updated++
			}
		}
	}

	return models.JSONMap{
		"discovered": discovered,
		"created":    created,
		"updated":    updated,
		"errors":     scanErrors,
	}, nil
}

// upsertDiscoveredProject creates or updates the Project for one discovered
// manifest, reporting whether a new row was created.
func (d *Deps) upsertDiscoveredProject(ctx context.Context, orgID string, f discovery.Found, taken map[string]struct{}) (bool, error) {
	existing, err := d.Store.GetProjectByPath(ctx, orgID, f.Path)
	if err != nil && !isNotFound(err) {
		return false, err
	}

	ind := quality.ScanIndicators(f.Path)
	health := quality.ComputeHealth(quality.HealthInput{
		Indicators:  ind,
		Description: f.Manifest.Description,
		Languages:   f.Manifest.Languages,
		Frameworks:  f.Manifest.Frameworks,
	})

	if existing != nil {
		applyManifest(existing, f.Manifest)
		existing.HealthScore = &health
		if err := d.Store.UpdateProject(ctx, existing); err != nil {
			return false, err
		}
		d.recordUpdated(ctx, orgID, existing.ID, []string{"health_score", "languages", "frameworks"})
		return false, nil
	}

	name := uniqueProjectName(f.Manifest.Name, f.Path, taken)
	taken[name] = struct{}{}

	p := &models.Project{
		ID:          uuid.NewString(),
		OrgID:       orgID,
		Path:        f.Path,
		Name:        name,
		Type:        models.ProjectTypeOther,
		Lifecycle:   models.LifecycleActive,
		Languages:   f.Manifest.Languages,
		Frameworks:  f.Manifest.Frameworks,
		HealthScore: &health,
	}
	applyManifest(p, f.Manifest)
	if err := d.Store.CreateProject(ctx, p); err != nil {
		return false, err
	}
	d.recordCreated(ctx, orgID, *p)
	return true, nil
}

// applyManifest copies manifest-sourced fields onto p, leaving fields the
// manifest has no opinion on untouched.
func applyManifest(p *models.Project, m *models.Manifest) {
	if m.Title != "" {
		p.Title = &m.Title
	}
	if m.Description != "" {
		p.Description = &m.Description
	}
	if len(m.Languages) > 0 {
		p.Languages = m.Languages
	}
	if len(m.Frameworks) > 0 {
		p.Frameworks = m.Frameworks
	}
	if m.RepositoryURL != "" {
		p.RepositoryURL = &m.RepositoryURL
	}
	if m.License != "" {
		p.LicenseSPDX = &m.License
	}
	if len(m.Keywords) > 0 {
		p.Tags = models.NormalizeStringSet(append([]string(p.Tags), m.Keywords...))
	}
}

// handleRefresh re-reads one project's manifest from disk and recomputes its
// health score (spec §4.6).
func (d *Deps) handleRefresh(ctx context.Context, job *models.Job) (models.JSONMap, error) {
	if job.ProjectID == nil {
		return nil, fmt.Errorf("jobs: refresh: project_id is required")
	}
	p, err := d.Store.GetProject(ctx, job.OrgID, *job.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("jobs: refresh: %w", err)
	}

	if path, _, ok := manifest.Best(p.Path); ok {
		applyManifest(p, manifest.Read(path))
	}

	ind := quality.ScanIndicators(p.Path)
	description := ""
	if p.Description != nil {
		description = *p.Description
	}
	health := quality.ComputeHealth(quality.HealthInput{
		Indicators:   ind,
		Description:  description,
		Languages:    p.Languages,
		Frameworks:   p.Frameworks,
		LastCommitAt: p.LastCommitAt,
	})
	p.HealthScore = &health

	if err := d.Store.UpdateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("jobs: refresh: %w", err)
	}
	d.recordUpdated(ctx, job.OrgID, p.ID, []string{"health_score"})
	return models.JSONMap{"project_id": p.ID, "health_score": health}, nil
}

// handleHealthCheck recomputes HealthScore for every org project whose path
// still exists on disk (spec §4.6).
func (d *Deps) handleHealthCheck(ctx context.Context, job *models.Job) (models.JSONMap, error) {
	projects, err := d.Store.ListProjectsWithExistingPath(ctx, job.OrgID, dirExists)
	if err != nil {
		return nil, fmt.Errorf("jobs: health_check: list projects: %w", err)
	}

	var checked, updated int
	for i := range projects {
		p := &projects[i]
		ind := quality.ScanIndicators(p.Path)
		description := ""
		if p.Description != nil {
			description = *p.Description
		}
		health := quality.ComputeHealth(quality.HealthInput{
			Indicators:   ind,
			Description:  description,
			Languages:    p.Languages,
			Frameworks:   p.Frameworks,
			LastCommitAt: p.LastCommitAt,
		})
		p.HealthScore = &health
		checked++
		if err := d.Store.UpdateProject(ctx, p); err != nil {
			slog.Warn("jobs: health_check: update failed", "project_id", p.ID, "error", err)
			continue
		}
		d.recordUpdated(ctx, job.OrgID, p.ID, []string{"health_score"})
		updated++
	}

	return models.JSONMap{"checked": checked, "updated": updated}, nil
}

// handleLLMAnalysis enriches one project, or every org project when
// job.ProjectID is unset, with an LLM-derived description/type/tags/metadata,
// then indexes it for semantic search (spec §4.6).
func (d *Deps) handleLLMAnalysis(ctx context.Context, job *models.Job) (models.JSONMap, error) {
	projects, err := d.projectsInScope(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("jobs: llm_analysis: %w", err)
	}

	var analyzed, errored int
	for i := range projects {
		p := &projects[i]
		if err := d.analyzeAndIndex(ctx, p); err != nil {
			slog.Warn("jobs: llm_analysis: project failed, continuing", "project_id", p.ID, "error", err)
			errored++
			continue
		}
		analyzed++
	}

	if err := d.Embedding.Save(false); err != nil {
		slog.Warn("jobs: llm_analysis: vector store save failed", "error", err)
	}

	return models.JSONMap{"analyzed": analyzed, "errors": errored, "total": len(projects)}, nil
}

func (d *Deps) analyzeAndIndex(ctx context.Context, p *models.Project) error {
	readme := readReadmeExcerpt(p.Path, readmeAnalysisChars)
	files := listShallowFileNames(p.Path, 50)

	out := analyzeProject(ctx, d.Generator, analysisInput{
		Name:      p.Name,
		Readme:    readme,
		FileNames: files,
	})

	if p.Description == nil || *p.Description == "" {
		if out.Description != "" {
			p.Description = &out.Description
		}
	}
	if len(out.Tags) > 0 {
		merged := append(append([]string{}, p.Tags...), out.Tags...)
		tags := models.NormalizeStringSet(merged)
		if len(tags) > 10 {
			tags = tags[:10]
		}
		p.Tags = tags
	}
	if p.Type == models.ProjectTypeOther && out.Type != "" {
		p.Type = out.Type
	}
	if len(out.Frameworks) > 0 {
		p.Frameworks = models.NormalizeStringSet(append(append([]string{}, p.Frameworks...), out.Frameworks...))
	}

	if p.ExtraMetadata == nil {
		p.ExtraMetadata = models.JSONMap{}
	}
	if out.Complexity != "" {
		p.ExtraMetadata["complexity"] = out.Complexity
	}
	if len(out.KeyFeatures) > 0 {
		p.ExtraMetadata["key_features"] = out.KeyFeatures
	}
	if len(out.ImprovementSuggestions) > 0 {
		p.ExtraMetadata["improvement_suggestions"] = out.ImprovementSuggestions
	}

	if err := d.Store.UpdateProject(ctx, p); err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	d.recordUpdated(ctx, p.OrgID, p.ID, []string{"description", "tags", "type", "frameworks", "extra_metadata"})

	description := ""
	if p.Description != nil {
		description = *p.Description
	}
	if err := d.Embedding.IndexProject(ctx, embedding.IndexProjectParams{
		ProjectID:   p.ID,
		OrgID:       p.OrgID,
		Name:        p.Name,
		Description: description,
		Readme:      readme,
		Tags:        p.Tags,
		Languages:   p.Languages,
		Frameworks:  p.Frameworks,
		Lifecycle:   string(p.Lifecycle),
	}); err != nil {
		return fmt.Errorf("index project: %w", err)
	}
	return nil
}

// handleEmbeddingIndex (re)embeds every org project's canonical document text
// into the vector store (spec §4.6).
func (d *Deps) handleEmbeddingIndex(ctx context.Context, job *models.Job) (models.JSONMap, error) {
	projects, err := d.projectsInScope(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("jobs: embedding_index: %w", err)
	}

	var indexed, errored int
	for i := range projects {
		p := &projects[i]
		description := ""
		if p.Description != nil {
			description = *p.Description
		}
		readme := readReadmeExcerpt(p.Path, embeddingReadmeChars)
		if err := d.Embedding.IndexProject(ctx, embedding.IndexProjectParams{
			ProjectID:   p.ID,
			OrgID:       p.OrgID,
			Name:        p.Name,
			Description: description,
			Readme:      readme,
			Tags:        p.Tags,
			Languages:   p.Languages,
			Frameworks:  p.Frameworks,
			Lifecycle:   string(p.Lifecycle),
		}); err != nil {
			slog.Warn("jobs: embedding_index: project failed, continuing", "project_id", p.ID, "error", err)
			errored++
			continue
		}
		indexed++
	}

	if err := d.Embedding.Save(false); err != nil {
		slog.Warn("jobs: embedding_index: vector store save failed", "error", err)
	}

	return models.JSONMap{"indexed": indexed, "errors": errored, "total": len(projects)}, nil
}

// handleQualityAssessment runs the LLM-or-fallback quality pass (C5) over
// every project missing a score, or every project when force_refresh is set,
// persisting progress on the job row as it goes so observers can poll
// (spec §4.6).
func (d *Deps) handleQualityAssessment(ctx context.Context, job *models.Job) (models.JSONMap, error) {
	forceRefresh := job.Result.GetBool("force_refresh")

	var projects []models.Project
	var err error
	if forceRefresh {
		projects, err = d.Store.ListProjects(ctx, job.OrgID)
	} else {
		projects, err = d.Store.ListProjectsMissingQualityScore(ctx, job.OrgID)
	}
	if err != nil {
		return nil, fmt.Errorf("jobs: quality_assessment: list projects: %w", err)
	}

	total := len(projects)
	var assessed, errored int
	for i := range projects {
		p := &projects[i]
		if err := d.assessOne(ctx, p); err != nil {
			slog.Warn("jobs: quality_assessment: project failed, continuing", "project_id", p.ID, "error", err)
			errored++
		} else {
			assessed++
		}

		job.Result = models.JSONMap{
			"assessed":      assessed,
			"errors":        errored,
			"total":         total,
			"force_refresh": forceRefresh,
		}
		if err := d.Store.UpdateJob(ctx, job); err != nil {
			slog.Warn("jobs: quality_assessment: progress update failed", "job_id", job.ID, "error", err)
		}
	}

	return job.Result, nil
}

func (d *Deps) assessOne(ctx context.Context, p *models.Project) error {
	ind := quality.ScanIndicators(p.Path)
	description := ""
	if p.Description != nil {
		description = *p.Description
	}

	a := quality.Assess(ctx, d.Generator, quality.AssessInput{
		Name:        p.Name,
		Description: description,
		Languages:   p.Languages,
		Frameworks:  p.Frameworks,
		Indicators:  ind,
		Readme:      readReadmeExcerpt(p.Path, readmeAnalysisChars),
		FileNames:   listShallowFileNames(p.Path, 50),
	})

	p.ProductionReadiness = a.ProductionReadiness
	p.QualityScore = &a.QualityScore
	p.QualityAssessment = models.JSONMap{
		"code_quality":             a.CodeQuality,
		"documentation":            a.Documentation,
		"tests":                    a.Tests,
		"security":                 a.Security,
		"maintainability":          a.Maintainability,
		"key_features":             a.KeyFeatures,
		"strengths":                a.Strengths,
		"weaknesses":               a.Weaknesses,
		"production_blockers":      a.ProductionBlockers,
		"recommended_improvements": a.RecommendedImprovements,
		"technology_stack":         a.TechnologyStack,
		"use_cases":                a.UseCases,
		"fallback":                 a.Fallback,
	}
	p.QualityIndicators = models.JSONMap(ind.AsMap())
	now := time.Now()
	p.LastQualityCheckAt = &now

	if err := d.Store.UpdateProject(ctx, p); err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	d.recordUpdated(ctx, p.OrgID, p.ID, []string{"production_readiness", "quality_score", "quality_assessment", "quality_indicators"})
	return nil
}

// projectsInScope returns the single project named by job.ProjectID, or every
// org project if it is unset.
func (d *Deps) projectsInScope(ctx context.Context, job *models.Job) ([]models.Project, error) {
	if job.ProjectID != nil {
		p, err := d.Store.GetProject(ctx, job.OrgID, *job.ProjectID)
		if err != nil {
			return nil, err
		}
		return []models.Project{*p}, nil
	}
	return d.Store.ListProjects(ctx, job.OrgID)
}

func isNotFound(err error) bool {
	return err != nil && catalogerr.IsNotFound(err)
}
