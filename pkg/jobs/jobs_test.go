package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evercatalog/catalog/pkg/catalogerr"
	"github.com/evercatalog/catalog/pkg/models"
	"github.com/evercatalog/catalog/pkg/ports"
)

func TestUniqueProjectNamePrefersBareName(t *testing.T) {
	name := uniqueProjectName("Widget", "/repos/widget", map[string]struct{}{})
	assert.Equal(t, "widget", name)
}

func TestUniqueProjectNameFallsBackToParentSuffix(t *testing.T) {
	existing := map[string]struct{}{"widget": {}}
	name := uniqueProjectName("widget", "/repos/acme/widget", existing)
	assert.Equal(t, "widget-acme", name)
}

func TestUniqueProjectNameFallsBackToCounter(t *testing.T) {
	existing := map[string]struct{}{"widget": {}, "widget-acme": {}}
	name := uniqueProjectName("widget", "/repos/acme/widget", existing)
	assert.Equal(t, "widget-acme-2", name)
}

func TestUniqueProjectNameFallsBackToHash(t *testing.T) {
	existing := map[string]struct{}{"widget": {}, "widget-acme": {}}
	for n := 2; n <= 10; n++ {
		existing[fmt.Sprintf("widget-acme-%d", n)] = struct{}{}
	}

	name := uniqueProjectName("widget", "/repos/acme/widget", existing)
	assert.NotEqual(t, "widget", name)
	assert.NotEqual(t, "widget-acme", name)
	assert.Contains(t, name, "widget-")
	assert.Len(t, name, len("widget-")+8)
}

func TestUniqueProjectNameEmptyBaseUsesPathBase(t *testing.T) {
	name := uniqueProjectName("", "/repos/acme/widget", map[string]struct{}{})
	assert.Equal(t, "widget", name)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ClassNotFound, Classify(catalogerr.ErrNotFound))
	assert.Equal(t, ClassValidation, Classify(catalogerr.NewValidationError("name", "required")))
	assert.Equal(t, ClassTransient, Classify(catalogerr.NewTransient("embed", errors.New("timeout"))))
	assert.Equal(t, ClassHandlerFailure, Classify(errors.New("boom")))
	assert.Equal(t, ErrorClass(""), Classify(nil))
}

func TestReadReadmeExcerptTruncates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("0123456789"), 0o644))
	assert.Equal(t, "01234", readReadmeExcerpt(dir, 5))
}

func TestReadReadmeExcerptMissingReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", readReadmeExcerpt(t.TempDir(), 100))
}

func TestListShallowFileNamesSkipsDirsAndHidden(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	names := listShallowFileNames(dir, 10)
	assert.Equal(t, []string{"main.go"}, names)
}

func TestApplyManifestOnlyOverwritesPresentFields(t *testing.T) {
	p := &models.Project{Name: "widget", Type: models.ProjectTypeOther}
	applyManifest(p, &models.Manifest{Description: "A widget", License: "MIT"})
	require.NotNil(t, p.Description)
	assert.Equal(t, "A widget", *p.Description)
	require.NotNil(t, p.LicenseSPDX)
	assert.Equal(t, "MIT", *p.LicenseSPDX)
	assert.Nil(t, p.Title)
}

func TestApplyManifestMergesKeywordsIntoTags(t *testing.T) {
	p := &models.Project{Name: "widget", Tags: models.StringSlice{"existing"}}
	applyManifest(p, &models.Manifest{Keywords: []string{"Existing", "New"}})
	assert.ElementsMatch(t, []string{"existing", "new"}, []string(p.Tags))
}

type scriptedGenerator struct {
	text string
	err  error
}

func (g *scriptedGenerator) Generate(context.Context, ports.GenerateRequest) (string, error) {
	return g.text, g.err
}

func TestAnalyzeProjectNilGeneratorReturnsZeroValue(t *testing.T) {
	out := analyzeProject(context.Background(), nil, analysisInput{Name: "widget"})
	assert.Equal(t, analysisOutput{}, out)
}

func TestAnalyzeProjectParsesValidJSON(t *testing.T) {
	gen := &scriptedGenerator{text: `{
		"description": "A widget factory",
		"type": "library",
		"frameworks": ["gin"],
		"tags": ["go", "http"],
		"complexity": "medium",
		"key_features": ["routing"],
		"improvement_suggestions": ["add tests"]
	}`}
	out := analyzeProject(context.Background(), gen, analysisInput{Name: "widget"})
	assert.Equal(t, "A widget factory", out.Description)
	assert.EqualValues(t, "library", out.Type)
	assert.Equal(t, []string{"gin"}, out.Frameworks)
}

func TestAnalyzeProjectInvalidTypeIsDropped(t *testing.T) {
	gen := &scriptedGenerator{text: `{"type": "not-a-real-type"}`}
	out := analyzeProject(context.Background(), gen, analysisInput{Name: "widget"})
	assert.Equal(t, models.ProjectType(""), out.Type)
}

func TestAnalyzeProjectCapsTagsAtTen(t *testing.T) {
	gen := &scriptedGenerator{text: `{"tags": ["a","b","c","d","e","f","g","h","i","j","k","l"]}`}
	out := analyzeProject(context.Background(), gen, analysisInput{Name: "widget"})
	assert.Len(t, out.Tags, 10)
}

func TestAnalyzeProjectUnparsableResponseReturnsZeroValue(t *testing.T) {
	gen := &scriptedGenerator{text: "not json"}
	out := analyzeProject(context.Background(), gen, analysisInput{Name: "widget"})
	assert.Equal(t, analysisOutput{}, out)
}

func TestAnalyzeProjectGenerateErrorReturnsZeroValue(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("down")}
	out := analyzeProject(context.Background(), gen, analysisInput{Name: "widget"})
	assert.Equal(t, analysisOutput{}, out)
}
