package manifest

import (
	"path/filepath"
	"strings"

	"github.com/evercatalog/catalog/pkg/models"
)

// frameworkByDependency maps a lowercase dependency name to its display
// framework name. Checked against both Dependencies and DevDependencies.
var frameworkByDependency = map[string]string{
	"fastapi":     "FastAPI",
	"django":      "Django",
	"flask":       "Flask",
	"react":       "React",
	"react-dom":   "React",
	"vue":         "Vue",
	"@angular/core": "Angular",
	"next":        "Next.js",
	"nuxt":        "Nuxt",
	"express":     "Express",
	"nestjs":      "NestJS",
	"@nestjs/core": "NestJS",
	"tokio":       "Tokio",
	"actix-web":   "Actix",
	"axum":        "Axum",
	"rocket":      "Rocket",
	"gin-gonic/gin": "Gin",
	"gin":         "Gin",
	"echo":        "Echo",
	"spring-boot-starter": "Spring Boot",
	"spring-core": "Spring",
	"rails":       "Rails",
	"sinatra":     "Sinatra",
	"laravel/framework": "Laravel",
	"symfony/framework-bundle": "Symfony",
	"pytest":      "pytest",
	"jest":        "Jest",
}

// applyFrameworkDetection scans m.Dependencies/DevDependencies for known
// ecosystem packages and appends the corresponding framework names.
func applyFrameworkDetection(m *models.Manifest) {
	seen := make(map[string]struct{}, len(m.Frameworks))
	for _, f := range m.Frameworks {
		seen[strings.ToLower(f)] = struct{}{}
	}
	add := func(name string) {
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		m.Frameworks = append(m.Frameworks, name)
	}
	for _, dep := range m.AllDependencyNames() {
		if fw, ok := frameworkByDependency[strings.ToLower(dep)]; ok {
			add(fw)
		}
	}
}

// languageByExtension is a closed suffix -> language table used only when no
// manifest recognised the project (§4.1 "language detection when no
// manifest recognised").
var languageByExtension = map[string]string{
	".go":   "go",
	".py":   "python",
	".rs":   "rust",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".java": "java",
	".kt":   "kotlin",
	".rb":   "ruby",
	".cs":   "c#",
	".cpp":  "c++",
	".cc":   "c++",
	".c":    "c",
	".php":  "php",
	".swift": "swift",
	".scala": "scala",
	".ex":   "elixir",
	".exs":  "elixir",
}

// detectLanguagesBySuffix scans the immediate contents of dir (non-recursive)
// for up to three distinct recognised languages by extension, in the order
// first encountered.
func detectLanguagesBySuffix(dir string) []string {
	entries, err := readDirNames(dir)
	if err != nil {
		return nil
	}
	var langs []string
	seen := make(map[string]struct{})
	for _, name := range entries {
		lang, ok := languageByExtension[strings.ToLower(filepath.Ext(name))]
		if !ok {
			continue
		}
		if _, ok := seen[lang]; ok {
			continue
		}
		seen[lang] = struct{}{}
		langs = append(langs, lang)
		if len(langs) == 3 {
			break
		}
	}
	return langs
}
