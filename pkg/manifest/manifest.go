// Package manifest parses project manifest files into a normalized
// models.Manifest record (spec §4.1).
package manifest

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/evercatalog/catalog/pkg/models"
)

// candidate is one recognised manifest file pattern, ranked by priority.
// Higher priority wins when several candidates exist in the same directory.
type candidate struct {
	pattern  string
	priority int
	parse    func(data []byte) (*models.Manifest, error)
}

// candidates is checked in the order below; Best picks the highest-priority
// match present on disk, not the first one tried.
var candidates = []candidate{
	{"catalog-info.yaml", 100, parseBackstage},
	{"catalog-info.yml", 100, parseBackstage},
	{"pyproject.toml", 90, parsePyProjectTOML},
	{"package.json", 85, parseNodeJSON},
	{"Cargo.toml", 80, parseCargoTOML},
	{"go.mod", 75, parseGoMod},
	{"setup.py", 50, parseSetupPy},
	{"Pipfile", 50, parsePipfile},
	{"*.csproj", 60, parseCsproj},
	{"pom.xml", 55, parsePomXML},
	{"build.gradle", 55, parseGradle},
	{"build.gradle.kts", 55, parseGradle},
	{"Gemfile", 50, parseGemfile},
}

// Best returns the path and priority of the highest-priority manifest
// present directly in dir, or ok=false if none is found.
func Best(dir string) (path string, priority int, ok bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", 0, false
	}
	names := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names[e.Name()] = struct{}{}
		}
	}

	bestPriority := -1
	var bestName string
	for _, c := range candidates {
		if c.pattern[0] == '*' {
			suffix := c.pattern[1:]
			for name := range names {
				if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix && c.priority > bestPriority {
					bestPriority = c.priority
					bestName = name
				}
			}
			continue
		}
		if _, ok := names[c.pattern]; ok && c.priority > bestPriority {
			bestPriority = c.priority
			bestName = c.pattern
		}
	}
	if bestName == "" {
		return "", 0, false
	}
	return filepath.Join(dir, bestName), bestPriority, true
}

// Read parses the manifest at path. It never returns an error: on any parse
// failure it logs a warning and falls back to a bare Manifest keyed off the
// file's parent directory name, per §4.1's "never fails the enclosing job"
// policy.
func Read(path string) *models.Manifest {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("manifest: read failed, falling back to bare manifest",
			"path", path, "error", err)
		return fallback(path)
	}

	parse := parserFor(filepath.Base(path))
	if parse == nil {
		slog.Warn("manifest: unrecognised format, falling back to bare manifest",
			"path", path)
		return fallback(path)
	}

	m, err := parse(data)
	if err != nil {
		slog.Warn("manifest: parse failed, falling back to bare manifest",
			"path", path, "error", err)
		return fallback(path)
	}
	if m.Name == "" {
		m.Name = filepath.Base(filepath.Dir(path))
	}
	applyFrameworkDetection(m)
	if len(m.Languages) == 0 {
		m.Languages = detectLanguagesBySuffix(filepath.Dir(path))
	}
	return m
}

func parserFor(base string) func([]byte) (*models.Manifest, error) {
	for _, c := range candidates {
		if c.pattern[0] == '*' {
			suffix := c.pattern[1:]
			if len(base) > len(suffix) && base[len(base)-len(suffix):] == suffix {
				return c.parse
			}
			continue
		}
		if c.pattern == base {
			return c.parse
		}
	}
	return nil
}

func fallback(path string) *models.Manifest {
	return &models.Manifest{
		Name:       filepath.Base(filepath.Dir(path)),
		Languages:  []string{},
		Frameworks: []string{},
	}
}
