package manifest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/evercatalog/catalog/pkg/models"
)

// backstageManifest mirrors the subset of catalog-info.yaml this reader
// cares about; unrecognised fields fall through to Manifest.Extra.
type backstageManifest struct {
	APIVersion string `yaml:"apiVersion"`
	Kind       string `yaml:"kind"`
	Metadata   struct {
		Name        string            `yaml:"name"`
		Title       string            `yaml:"title"`
		Description string            `yaml:"description"`
		Tags        []string          `yaml:"tags"`
		Annotations map[string]string `yaml:"annotations"`
	} `yaml:"metadata"`
	Spec struct {
		Type    string `yaml:"type"`
		Lifecycle string `yaml:"lifecycle"`
	} `yaml:"spec"`
}

func parseBackstage(data []byte) (*models.Manifest, error) {
	var b backstageManifest
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("backstage yaml: %w", err)
	}
	if b.Metadata.Name == "" {
		return nil, fmt.Errorf("backstage yaml: missing metadata.name")
	}
	m := &models.Manifest{
		Name:        b.Metadata.Name,
		Title:       b.Metadata.Title,
		Description: b.Metadata.Description,
		Keywords:    b.Metadata.Tags,
		Extra:       map[string]any{"backstage_kind": b.Kind, "backstage_type": b.Spec.Type},
	}
	return m, nil
}

// pyProjectTOML covers both PEP 621 [project] tables and Poetry's
// [tool.poetry] table.
type pyProjectTOML struct {
	Project struct {
		Name            string   `toml:"name"`
		Description     string   `toml:"description"`
		Version         string   `toml:"version"`
		Keywords        []string `toml:"keywords"`
		License         any      `toml:"license"`
		Dependencies    []string `toml:"dependencies"`
		URLs            map[string]string `toml:"urls"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Name         string            `toml:"name"`
			Description  string            `toml:"description"`
			Version      string            `toml:"version"`
			License      string            `toml:"license"`
			Keywords     []string          `toml:"keywords"`
			Repository   string            `toml:"repository"`
			Dependencies map[string]any    `toml:"dependencies"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

func parsePyProjectTOML(data []byte) (*models.Manifest, error) {
	var p pyProjectTOML
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("pyproject.toml: %w", err)
	}
	m := &models.Manifest{Languages: []string{"python"}}
	if p.Project.Name != "" {
		m.Name = p.Project.Name
		m.Description = p.Project.Description
		m.Version = p.Project.Version
		m.Keywords = p.Project.Keywords
		m.Dependencies = make(map[string]string, len(p.Project.Dependencies))
		for _, dep := range p.Project.Dependencies {
			name, version := splitRequirement(dep)
			m.Dependencies[name] = version
		}
		if lic, ok := p.Project.License.(string); ok {
			m.License = lic
		}
		if u, ok := p.Project.URLs["repository"]; ok {
			m.RepositoryURL = u
		}
		return m, nil
	}
	if p.Tool.Poetry.Name != "" {
		m.Name = p.Tool.Poetry.Name
		m.Description = p.Tool.Poetry.Description
		m.Version = p.Tool.Poetry.Version
		m.License = p.Tool.Poetry.License
		m.Keywords = p.Tool.Poetry.Keywords
		m.RepositoryURL = p.Tool.Poetry.Repository
		m.Dependencies = make(map[string]string, len(p.Tool.Poetry.Dependencies))
		for name, v := range p.Tool.Poetry.Dependencies {
			if s, ok := v.(string); ok {
				m.Dependencies[name] = s
			} else {
				m.Dependencies[name] = ""
			}
		}
		return m, nil
	}
	return nil, fmt.Errorf("pyproject.toml: no [project] or [tool.poetry] table")
}

func splitRequirement(spec string) (name, version string) {
	for i, r := range spec {
		if r == '=' || r == '>' || r == '<' || r == '~' || r == '!' || r == ' ' {
			return strings.TrimSpace(spec[:i]), strings.TrimSpace(spec[i:])
		}
	}
	return spec, ""
}

type nodeManifest struct {
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	Version         string            `json:"version"`
	License         string            `json:"license"`
	Keywords        []string          `json:"keywords"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Repository      any               `json:"repository"`
}

func parseNodeJSON(data []byte) (*models.Manifest, error) {
	var n nodeManifest
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("package.json: %w", err)
	}
	if n.Name == "" {
		return nil, fmt.Errorf("package.json: missing name")
	}
	m := &models.Manifest{
		Name:            n.Name,
		Description:     n.Description,
		Version:         n.Version,
		License:         n.License,
		Keywords:        n.Keywords,
		Dependencies:    n.Dependencies,
		DevDependencies: n.DevDependencies,
		Languages:       []string{"javascript"},
	}
	switch repo := n.Repository.(type) {
	case string:
		m.RepositoryURL = repo
	case map[string]any:
		if u, ok := repo["url"].(string); ok {
			m.RepositoryURL = u
		}
	}
	return m, nil
}

type cargoTOML struct {
	Package struct {
		Name        string `toml:"name"`
		Description string `toml:"description"`
		Version     string `toml:"version"`
		License     string `toml:"license"`
		Repository  string `toml:"repository"`
		Keywords    []string `toml:"keywords"`
	} `toml:"package"`
	Dependencies map[string]any `toml:"dependencies"`
}

func parseCargoTOML(data []byte) (*models.Manifest, error) {
	var c cargoTOML
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("Cargo.toml: %w", err)
	}
	if c.Package.Name == "" {
		return nil, fmt.Errorf("Cargo.toml: missing [package].name")
	}
	deps := make(map[string]string, len(c.Dependencies))
	for name, v := range c.Dependencies {
		switch val := v.(type) {
		case string:
			deps[name] = val
		case map[string]any:
			if ver, ok := val["version"].(string); ok {
				deps[name] = ver
			} else {
				deps[name] = ""
			}
		default:
			deps[name] = ""
		}
	}
	return &models.Manifest{
		Name:          c.Package.Name,
		Description:   c.Package.Description,
		Version:       c.Package.Version,
		License:       c.Package.License,
		RepositoryURL: c.Package.Repository,
		Keywords:      c.Package.Keywords,
		Dependencies:  deps,
		Languages:     []string{"rust"},
	}, nil
}

// parseGoMod hand-parses the handful of directives this reader needs
// (module, require) rather than importing golang.org/x/mod/modfile, which
// none of this module's dependency surface otherwise touches.
func parseGoMod(data []byte) (*models.Manifest, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	var modulePath string
	deps := map[string]string{}
	inRequireBlock := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "module "):
			modulePath = strings.TrimSpace(strings.TrimPrefix(line, "module "))
		case line == "require (":
			inRequireBlock = true
		case inRequireBlock && line == ")":
			inRequireBlock = false
		case inRequireBlock || strings.HasPrefix(line, "require "):
			fields := strings.Fields(strings.TrimPrefix(line, "require "))
			if len(fields) >= 2 {
				deps[fields[0]] = fields[1]
			}
		}
	}
	if modulePath == "" {
		return nil, fmt.Errorf("go.mod: missing module directive")
	}
	parts := strings.Split(modulePath, "/")
	return &models.Manifest{
		Name:         parts[len(parts)-1],
		Dependencies: deps,
		Languages:    []string{"go"},
		Extra:        map[string]any{"module_path": modulePath},
	}, nil
}

// parseSetupPy extracts name/description from a setuptools setup.py call by
// regex-free substring scanning of its simple `key="value"` kwargs; this
// reader does not execute Python.
func parseSetupPy(data []byte) (*models.Manifest, error) {
	name := extractPyKwarg(string(data), "name")
	if name == "" {
		return nil, fmt.Errorf("setup.py: could not locate name=")
	}
	return &models.Manifest{
		Name:        name,
		Description: extractPyKwarg(string(data), "description"),
		Version:     extractPyKwarg(string(data), "version"),
		Languages:   []string{"python"},
	}, nil
}

func extractPyKwarg(src, key string) string {
	marker := key + "="
	idx := strings.Index(src, marker)
	if idx == -1 {
		return ""
	}
	rest := src[idx+len(marker):]
	rest = strings.TrimLeft(rest, " \t")
	if len(rest) == 0 {
		return ""
	}
	quote := rest[0]
	if quote != '"' && quote != '\'' {
		return ""
	}
	end := strings.IndexByte(rest[1:], quote)
	if end == -1 {
		return ""
	}
	return rest[1 : end+1]
}

func parsePipfile(data []byte) (*models.Manifest, error) {
	var p struct {
		Packages map[string]any `toml:"packages"`
	}
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("Pipfile: %w", err)
	}
	deps := make(map[string]string, len(p.Packages))
	for name := range p.Packages {
		deps[name] = ""
	}
	return &models.Manifest{Languages: []string{"python"}, Dependencies: deps}, nil
}

type csprojFile struct {
	XMLName  xml.Name `xml:"Project"`
	ItemGroup []struct {
		PackageReference []struct {
			Include string `xml:"Include,attr"`
			Version string `xml:"Version,attr"`
		} `xml:"PackageReference"`
	} `xml:"ItemGroup"`
	PropertyGroup []struct {
		AssemblyName string `xml:"AssemblyName"`
		Description  string `xml:"Description"`
		Version      string `xml:"Version"`
	} `xml:"PropertyGroup"`
}

func parseCsproj(data []byte) (*models.Manifest, error) {
	var c csprojFile
	if err := xml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf(".csproj: %w", err)
	}
	m := &models.Manifest{Languages: []string{"c#"}, Dependencies: map[string]string{}}
	for _, pg := range c.PropertyGroup {
		if pg.AssemblyName != "" {
			m.Name = pg.AssemblyName
		}
		if pg.Description != "" {
			m.Description = pg.Description
		}
		if pg.Version != "" {
			m.Version = pg.Version
		}
	}
	for _, ig := range c.ItemGroup {
		for _, ref := range ig.PackageReference {
			m.Dependencies[ref.Include] = ref.Version
		}
	}
	return m, nil
}

type pomXML struct {
	XMLName      xml.Name `xml:"project"`
	ArtifactID   string   `xml:"artifactId"`
	Description  string   `xml:"description"`
	Version      string   `xml:"version"`
	Dependencies struct {
		Dependency []struct {
			ArtifactID string `xml:"artifactId"`
			Version    string `xml:"version"`
		} `xml:"dependency"`
	} `xml:"dependencies"`
}

func parsePomXML(data []byte) (*models.Manifest, error) {
	var p pomXML
	if err := xml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("pom.xml: %w", err)
	}
	if p.ArtifactID == "" {
		return nil, fmt.Errorf("pom.xml: missing artifactId")
	}
	deps := make(map[string]string, len(p.Dependencies.Dependency))
	for _, d := range p.Dependencies.Dependency {
		deps[d.ArtifactID] = d.Version
	}
	return &models.Manifest{
		Name:        p.ArtifactID,
		Description: p.Description,
		Version:     p.Version,
		Dependencies: deps,
		Languages:   []string{"java"},
	}, nil
}

// parseGradle scans build.gradle(.kts) for the implementation/api
// dependency declarations; Groovy/Kotlin DSL is not executed.
func parseGradle(data []byte) (*models.Manifest, error) {
	deps := map[string]string{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		for _, prefix := range []string{"implementation", "api", "compile", "testImplementation"} {
			if strings.HasPrefix(line, prefix) {
				coord := extractQuoted(line)
				if coord != "" {
					parts := strings.Split(coord, ":")
					if len(parts) >= 2 {
						name := parts[0] + ":" + parts[1]
						version := ""
						if len(parts) >= 3 {
							version = parts[2]
						}
						deps[name] = version
					}
				}
			}
		}
	}
	if len(deps) == 0 {
		return nil, fmt.Errorf("build.gradle: no dependencies found")
	}
	return &models.Manifest{Languages: []string{"java"}, Dependencies: deps}, nil
}

func extractQuoted(s string) string {
	start := strings.IndexAny(s, "'\"")
	if start == -1 {
		return ""
	}
	quote := s[start]
	end := strings.IndexByte(s[start+1:], quote)
	if end == -1 {
		return ""
	}
	return s[start+1 : start+1+end]
}

func parseGemfile(data []byte) (*models.Manifest, error) {
	deps := map[string]string{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "gem ") {
			continue
		}
		name := extractQuoted(line)
		if name != "" {
			deps[name] = ""
		}
	}
	if len(deps) == 0 {
		return nil, fmt.Errorf("Gemfile: no gems found")
	}
	return &models.Manifest{Languages: []string{"ruby"}, Dependencies: deps}, nil
}
