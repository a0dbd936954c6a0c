package quality

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evercatalog/catalog/pkg/ports"
)

func mkfile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestScanIndicatorsDetectsPresentFiles(t *testing.T) {
	dir := t.TempDir()
	mkfile(t, filepath.Join(dir, "README.md"))
	mkfile(t, filepath.Join(dir, "LICENSE"))
	mkfile(t, filepath.Join(dir, "tests", "test_x.py"))
	mkfile(t, filepath.Join(dir, ".github", "workflows", "ci.yml"))

	ind := ScanIndicators(dir)
	assert.True(t, ind.README)
	assert.True(t, ind.License)
	assert.True(t, ind.Tests)
	assert.True(t, ind.CI)
	assert.False(t, ind.Docker)
}

func TestCompletenessScoreClampedTo100(t *testing.T) {
	ind := Indicators{
		README: true, License: true, Tests: true, CI: true, Docs: true,
		Changelog: true, Contributing: true, Security: true, PackageJSON: true,
		Docker: true, Linting: true,
	}
	assert.Equal(t, 100.0, CompletenessScore(ind))
}

func TestCompletenessScoreNoIndicatorsIsZero(t *testing.T) {
	assert.Equal(t, 0.0, CompletenessScore(Indicators{}))
}

func TestComputeHealthRecentCommitAndDescription(t *testing.T) {
	now := time.Now()
	h := ComputeHealth(HealthInput{
		Description:  "Demo",
		Languages:    []string{"rust"},
		LastCommitAt: &now,
	})
	// description(10) + languages(5) + recent-commit(20) = 35 of 90
	assert.InDelta(t, 35.0/90.0*100, h, 0.01)
}

func TestComputeHealthZeroEvidence(t *testing.T) {
	assert.Equal(t, 0.0, ComputeHealth(HealthInput{}))
}

type scriptedGenerator struct {
	text string
	err  error
}

func (g *scriptedGenerator) Generate(context.Context, ports.GenerateRequest) (string, error) {
	return g.text, g.err
}

func TestAssessParsesValidJSON(t *testing.T) {
	gen := &scriptedGenerator{text: `{
		"production_readiness": "beta",
		"code_quality": 80, "documentation": 60, "tests": 70, "security": 50, "maintainability": 90,
		"key_features": ["a"], "strengths": ["b"], "weaknesses": [], "production_blockers": [],
		"recommended_improvements": [], "technology_stack": ["go"], "use_cases": ["x"]
	}`}
	a := Assess(context.Background(), gen, AssessInput{Name: "demo", Indicators: Indicators{README: true}})
	assert.False(t, a.Fallback)
	assert.EqualValues(t, "beta", a.ProductionReadiness)
	assert.InDelta(t, (80.0+60+70+50+90)/5+0.1*15, a.QualityScore, 0.01)
}

func TestAssessStripsCodeFence(t *testing.T) {
	gen := &scriptedGenerator{text: "```json\n{\"production_readiness\":\"alpha\",\"code_quality\":10,\"documentation\":10,\"tests\":10,\"security\":10,\"maintainability\":10}\n```"}
	a := Assess(context.Background(), gen, AssessInput{Name: "demo"})
	assert.False(t, a.Fallback)
	assert.EqualValues(t, "alpha", a.ProductionReadiness)
}

func TestAssessFallsBackOnGenerateError(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("down")}
	a := Assess(context.Background(), gen, AssessInput{Name: "demo", Indicators: Indicators{README: true, Tests: true, CI: true}})
	assert.True(t, a.Fallback)
}

func TestAssessFallsBackOnInvalidJSON(t *testing.T) {
	gen := &scriptedGenerator{text: "not json at all"}
	a := Assess(context.Background(), gen, AssessInput{Name: "demo"})
	assert.True(t, a.Fallback)
}

func TestAssessMapsUnknownReadinessValueToUnknown(t *testing.T) {
	gen := &scriptedGenerator{text: `{"production_readiness":"totally-amazing","code_quality":1,"documentation":1,"tests":1,"security":1,"maintainability":1}`}
	a := Assess(context.Background(), gen, AssessInput{Name: "demo"})
	require.False(t, a.Fallback)
	assert.EqualValues(t, "unknown", a.ProductionReadiness)
}

func TestAssessNilGeneratorUsesFallback(t *testing.T) {
	a := Assess(context.Background(), nil, AssessInput{Name: "demo"})
	assert.True(t, a.Fallback)
}
