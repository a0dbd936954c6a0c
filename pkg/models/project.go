// Package models defines the catalog's persistent and transient data types.
package models

import "time"

// ProjectType classifies what kind of software a project is.
type ProjectType string

// Recognised project types. Anything else written by an untrusted source
// (e.g. the LLM analysis handler) must be validated against this set.
const (
	ProjectTypeLibrary     ProjectType = "library"
	ProjectTypeAPI         ProjectType = "api"
	ProjectTypeCLI         ProjectType = "cli"
	ProjectTypeWeb         ProjectType = "web"
	ProjectTypeService     ProjectType = "service"
	ProjectTypeApplication ProjectType = "application"
	ProjectTypeTool        ProjectType = "tool"
	ProjectTypeFramework   ProjectType = "framework"
	ProjectTypePlugin      ProjectType = "plugin"
	ProjectTypeScript      ProjectType = "script"
	ProjectTypeDocs        ProjectType = "docs"
	ProjectTypeBot         ProjectType = "bot"
	ProjectTypeGame        ProjectType = "game"
	ProjectTypeData        ProjectType = "data"
	ProjectTypeTemplate    ProjectType = "template"
	ProjectTypeOther       ProjectType = "other"
)

// IsValidProjectType reports whether t is one of the recognised project types.
func IsValidProjectType(t ProjectType) bool {
	switch t {
	case ProjectTypeLibrary, ProjectTypeAPI, ProjectTypeCLI, ProjectTypeWeb, ProjectTypeService,
		ProjectTypeApplication, ProjectTypeTool, ProjectTypeFramework, ProjectTypePlugin,
		ProjectTypeScript, ProjectTypeDocs, ProjectTypeBot, ProjectTypeGame, ProjectTypeData,
		ProjectTypeTemplate, ProjectTypeOther:
		return true
	}
	return false
}

// Lifecycle describes where a project sits in its maintenance lifecycle.
type Lifecycle string

const (
	LifecycleActive      Lifecycle = "active"
	LifecycleMaintenance Lifecycle = "maintenance"
	LifecycleDeprecated  Lifecycle = "deprecated"
	LifecycleArchived    Lifecycle = "archived"
)

// ProductionReadiness is an ordered quality classification, from prototype to
// mature, plus the side states legacy, deprecated, and unknown.
type ProductionReadiness string

const (
	ReadinessUnknown    ProductionReadiness = "unknown"
	ReadinessPrototype  ProductionReadiness = "prototype"
	ReadinessAlpha      ProductionReadiness = "alpha"
	ReadinessBeta       ProductionReadiness = "beta"
	ReadinessProduction ProductionReadiness = "production"
	ReadinessMature     ProductionReadiness = "mature"
	ReadinessLegacy     ProductionReadiness = "legacy"
	ReadinessDeprecated ProductionReadiness = "deprecated"
)

// IsValidReadiness reports whether r is one of the recognised readiness states.
func IsValidReadiness(r ProductionReadiness) bool {
	switch r {
	case ReadinessUnknown, ReadinessPrototype, ReadinessAlpha, ReadinessBeta,
		ReadinessProduction, ReadinessMature, ReadinessLegacy, ReadinessDeprecated:
		return true
	}
	return false
}

// Project is the canonical catalog record for a discovered source-code project.
type Project struct {
	ID    string `db:"id" json:"id"`
	OrgID string `db:"organization_id" json:"organization_id"`

	Path        string  `db:"path" json:"path"`
	Name        string  `db:"name" json:"name"`
	Title       *string `db:"title" json:"title,omitempty"`
	Description *string `db:"description" json:"description,omitempty"`

	Type      ProjectType `db:"type" json:"type"`
	Lifecycle Lifecycle   `db:"lifecycle" json:"lifecycle"`

	Languages  StringSlice `db:"languages" json:"languages"`
	Frameworks StringSlice `db:"frameworks" json:"frameworks"`
	Tags       StringSlice `db:"tags" json:"tags"`

	HealthScore *float64 `db:"health_score" json:"health_score,omitempty"`

	ProductionReadiness ProductionReadiness `db:"production_readiness" json:"production_readiness"`
	QualityScore        *float64            `db:"quality_score" json:"quality_score,omitempty"`
	QualityAssessment   JSONMap             `db:"quality_assessment" json:"quality_assessment,omitempty"`
	QualityIndicators   JSONMap             `db:"quality_indicators" json:"quality_indicators,omitempty"`
	LastQualityCheckAt  *time.Time          `db:"last_quality_check_at" json:"last_quality_check_at,omitempty"`

	LoCTotal      *int     `db:"loc_total" json:"loc_total,omitempty"`
	FileCount     *int     `db:"file_count" json:"file_count,omitempty"`
	AvgComplexity *float64 `db:"avg_complexity" json:"avg_complexity,omitempty"`
	TestCoverage  *float64 `db:"test_coverage" json:"test_coverage,omitempty"`

	RepositoryURL  *string    `db:"repository_url" json:"repository_url,omitempty"`
	DefaultBranch  *string    `db:"default_branch" json:"default_branch,omitempty"`
	LicenseSPDX    *string    `db:"license_spdx" json:"license_spdx,omitempty"`
	LastSyncedAt   *time.Time `db:"last_synced_at" json:"last_synced_at,omitempty"`
	LastCommitAt   *time.Time `db:"last_commit_at" json:"last_commit_at,omitempty"`
	LastCommitSHA  *string    `db:"last_commit_sha" json:"last_commit_sha,omitempty"`

	ExtraMetadata JSONMap `db:"extra_metadata" json:"extra_metadata,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NormalizeTechTags lowercases, trims, and deduplicates Languages and
// Frameworks in place, as required by the §3 invariant. Empty entries are
// dropped.
func (p *Project) NormalizeTechTags() {
	p.Languages = NormalizeStringSet(p.Languages)
	p.Frameworks = NormalizeStringSet(p.Frameworks)
}
