package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evercatalog/catalog/pkg/models"
	"github.com/evercatalog/catalog/pkg/ports"
)

type scriptedGenerator struct {
	text string
	err  error
}

func (g *scriptedGenerator) Generate(context.Context, ports.GenerateRequest) (string, error) {
	return g.text, g.err
}

func TestParseQueryNilGeneratorFallsBackToTokenize(t *testing.T) {
	parsed := ParseQuery(context.Background(), nil, "Go web services!")
	assert.Equal(t, []string{"go", "web", "services"}, parsed.Keywords)
	assert.Equal(t, "search", parsed.Intent)
	assert.True(t, parsed.Filters.isEmpty())
}

func TestParseQueryGeneratorErrorFallsBackToTokenize(t *testing.T) {
	gen := &scriptedGenerator{err: assert.AnError}
	parsed := ParseQuery(context.Background(), gen, "rust cli tools")
	assert.Equal(t, []string{"rust", "cli", "tools"}, parsed.Keywords)
}

func TestParseQueryUnparsableResponseFallsBackToTokenize(t *testing.T) {
	gen := &scriptedGenerator{text: "not json"}
	parsed := ParseQuery(context.Background(), gen, "python libraries")
	assert.Equal(t, []string{"python", "libraries"}, parsed.Keywords)
}

func TestParseQueryParsesValidStructuredResponse(t *testing.T) {
	gen := &scriptedGenerator{text: `{
		"keywords": ["payments", "api"],
		"filters": {"languages": ["go"], "type": "api", "lifecycle": "active", "has_tests": true, "min_health_score": 70},
		"intent": "browse"
	}`}
	parsed := ParseQuery(context.Background(), gen, "go payment apis with tests")
	require.Equal(t, []string{"payments", "api"}, parsed.Keywords)
	assert.Equal(t, "browse", parsed.Intent)
	assert.Equal(t, []string{"go"}, parsed.Filters.Languages)
	assert.EqualValues(t, "api", parsed.Filters.Type)
	assert.EqualValues(t, "active", parsed.Filters.Lifecycle)
	require.NotNil(t, parsed.Filters.HasTests)
	assert.True(t, *parsed.Filters.HasTests)
	require.NotNil(t, parsed.Filters.MinHealthScore)
	assert.Equal(t, 70.0, *parsed.Filters.MinHealthScore)
}

func TestParseQueryDiscardsInvalidProjectType(t *testing.T) {
	gen := &scriptedGenerator{text: `{"keywords": ["x"], "filters": {"type": "not_a_real_type"}, "intent": "search"}`}
	parsed := ParseQuery(context.Background(), gen, "x")
	assert.Equal(t, models.ProjectType(""), parsed.Filters.Type)
}

func TestParseQueryStripsCodeFence(t *testing.T) {
	gen := &scriptedGenerator{text: "```json\n{\"keywords\": [\"a\"], \"filters\": {}, \"intent\": \"search\"}\n```"}
	parsed := ParseQuery(context.Background(), gen, "a")
	assert.Equal(t, []string{"a"}, parsed.Keywords)
}

func TestTokenizeLowercasesAndSplitsOnPunctuation(t *testing.T) {
	assert.Equal(t, []string{"hello", "world"}, tokenize("Hello, World!"))
	assert.Empty(t, tokenize("???"))
}

func TestMinResultsFor(t *testing.T) {
	assert.Equal(t, 3, minResultsFor(4))
	assert.Equal(t, 5, minResultsFor(10))
	assert.Equal(t, 3, minResultsFor(0))
}

func TestCandidatePoolSizeHasAMinimumFloor(t *testing.T) {
	assert.Equal(t, 40, candidatePoolSize(5))
	assert.Equal(t, 80, candidatePoolSize(20))
}

func proj(id string, langs ...string) SearchResult {
	return SearchResult{Project: models.Project{ID: id, Languages: models.StringSlice(langs)}, RelevanceScore: 1}
}

func TestRelaxReturnsFilteredWhenThresholdMet(t *testing.T) {
	fused := []SearchResult{proj("a", "go"), proj("b", "go"), proj("c", "go"), proj("d", "rust")}
	out := relax(fused, Filters{Languages: []string{"go"}}, 4)
	require.Len(t, out, 3)
}

func TestRelaxDropsTypeWhenFilteredCountBelowThreshold(t *testing.T) {
	fused := []SearchResult{
		{Project: models.Project{ID: "a", Languages: models.StringSlice{"go"}, Type: "api"}, RelevanceScore: 1},
		{Project: models.Project{ID: "b", Languages: models.StringSlice{"go"}, Type: "cli"}, RelevanceScore: 1},
		{Project: models.Project{ID: "c", Languages: models.StringSlice{"go"}, Type: "web"}, RelevanceScore: 1},
	}
	filters := Filters{Languages: []string{"go"}, Type: "api"}
	out := relax(fused, filters, 4)
	assert.Len(t, out, 3, "dropping type should surface all three go projects")
}

func TestRelaxFallsBackToUnfilteredFusedList(t *testing.T) {
	fused := []SearchResult{proj("a", "go"), proj("b", "rust")}
	filters := Filters{Languages: []string{"java"}}
	out := relax(fused, filters, 4)
	assert.Len(t, out, 2, "no project satisfies the java filter at any stage, so the unfiltered list is returned")
}

func TestRelaxTruncatesToLimit(t *testing.T) {
	fused := []SearchResult{proj("a"), proj("b"), proj("c")}
	out := relax(fused, Filters{}, 2)
	assert.Len(t, out, 2)
}
