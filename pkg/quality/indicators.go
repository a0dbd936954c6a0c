// Package quality implements C5: deterministic filesystem-indicator health
// and completeness scoring, plus an LLM-backed quality assessment with an
// indicator-only fallback (spec §4.5).
package quality

import (
	"os"
	"path/filepath"
	"strings"
)

// Indicators is the boolean presence bundle scanned from a project's
// filesystem contents.
type Indicators struct {
	README       bool
	License      bool
	Tests        bool
	CI           bool
	Docs         bool
	Changelog    bool
	Contributing bool
	Security     bool
	PackageJSON  bool
	Docker       bool
	Linting      bool
	TypeHints    bool
}

var testDirNames = []string{"tests", "test", "spec", "__tests__"}
var ciMarkers = []string{".gitlab-ci.yml", "Jenkinsfile", ".circleci"}
var dockerMarkers = []string{"Dockerfile", "docker-compose.yml", "docker-compose.yaml"}
var lintMarkers = []string{".eslintrc", ".eslintrc.json", ".eslintrc.js", ".flake8", ".pylintrc", "ruff.toml", ".golangci.yml", ".golangci.yaml"}

// ScanIndicators inspects the immediate contents of path (and a couple of
// well-known subdirectories) for the quality-indicator bundle.
func ScanIndicators(path string) Indicators {
	names := dirEntryNames(path)
	lowerSet := make(map[string]struct{}, len(names))
	for _, n := range names {
		lowerSet[strings.ToLower(n)] = struct{}{}
	}
	has := func(prefix string) bool {
		for name := range lowerSet {
			if strings.HasPrefix(name, prefix) {
				return true
			}
		}
		return false
	}
	hasAny := func(candidates []string) bool {
		for _, c := range candidates {
			if _, ok := lowerSet[strings.ToLower(c)]; ok {
				return true
			}
		}
		return false
	}

	var ind Indicators
	ind.README = has("readme")
	ind.License = has("license") || has("licence")
	ind.Changelog = has("changelog")
	ind.Contributing = has("contributing")
	ind.Security = has("security")
	ind.PackageJSON = hasAny([]string{"package.json"})
	ind.Docker = hasAny(dockerMarkers)
	ind.Linting = hasAny(lintMarkers)
	ind.TypeHints = hasAny([]string{"py.typed", "tsconfig.json"})
	ind.Docs = dirExists(filepath.Join(path, "docs")) || dirExists(filepath.Join(path, "doc"))

	for _, t := range testDirNames {
		if dirExists(filepath.Join(path, t)) {
			ind.Tests = true
			break
		}
	}

	ind.CI = dirExists(filepath.Join(path, ".github", "workflows")) || hasAny(ciMarkers)

	return ind
}

func dirEntryNames(path string) []string {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// completenessWeights assigns each indicator its contribution toward the
// 0-100 completeness score (§4.5).
var completenessWeights = map[string]float64{
	"readme":       15,
	"license":      10,
	"tests":        20,
	"ci":           15,
	"docs":         10,
	"changelog":    5,
	"contributing": 5,
	"security":     5,
	"package_json": 5,
	"docker":       5,
	"linting":      5,
}

// CompletenessScore computes the weighted sum of indicator presence,
// clamped to 100.
func CompletenessScore(ind Indicators) float64 {
	var score float64
	if ind.README {
		score += completenessWeights["readme"]
	}
	if ind.License {
		score += completenessWeights["license"]
	}
	if ind.Tests {
		score += completenessWeights["tests"]
	}
	if ind.CI {
		score += completenessWeights["ci"]
	}
	if ind.Docs {
		score += completenessWeights["docs"]
	}
	if ind.Changelog {
		score += completenessWeights["changelog"]
	}
	if ind.Contributing {
		score += completenessWeights["contributing"]
	}
	if ind.Security {
		score += completenessWeights["security"]
	}
	if ind.PackageJSON {
		score += completenessWeights["package_json"]
	}
	if ind.Docker {
		score += completenessWeights["docker"]
	}
	if ind.Linting {
		score += completenessWeights["linting"]
	}
	if score > 100 {
		score = 100
	}
	return score
}

// AsMap renders the bundle as the opaque map persisted in
// Project.QualityIndicators.
func (ind Indicators) AsMap() map[string]any {
	return map[string]any{
		"readme":       ind.README,
		"license":      ind.License,
		"tests":        ind.Tests,
		"ci":           ind.CI,
		"docs":         ind.Docs,
		"changelog":    ind.Changelog,
		"contributing": ind.Contributing,
		"security":     ind.Security,
		"package_json": ind.PackageJSON,
		"docker":       ind.Docker,
		"linting":      ind.Linting,
		"type_hints":   ind.TypeHints,
	}
}
