package models

// Manifest is the transient, normalized record produced by pkg/manifest from
// a single project manifest file (package.json, Cargo.toml, go.mod, ...).
type Manifest struct {
	Name        string
	Title       string
	Description string
	Version     string

	Languages  []string
	Frameworks []string

	License         string
	RepositoryURL   string
	Keywords        []string
	Dependencies    map[string]string
	DevDependencies map[string]string

	// Extra carries format-specific fields that don't map onto the
	// normalized shape above (e.g. Backstage annotations).
	Extra map[string]any
}

// AllDependencyNames returns the union of Dependencies and DevDependencies
// keys, used for framework-ecosystem lookups.
func (m *Manifest) AllDependencyNames() []string {
	names := make([]string, 0, len(m.Dependencies)+len(m.DevDependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	for name := range m.DevDependencies {
		names = append(names, name)
	}
	return names
}
