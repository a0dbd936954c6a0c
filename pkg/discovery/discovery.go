// Package discovery walks a filesystem root and emits discovered project
// roots with their parsed manifests (spec §4.2).
package discovery

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/evercatalog/catalog/pkg/manifest"
	"github.com/evercatalog/catalog/pkg/models"
)

// DefaultMaxDepth is the default walk depth ceiling.
const DefaultMaxDepth = 10

// skipDirs is the fixed set of directory names never descended into,
// regardless of depth.
var skipDirs = map[string]struct{}{
	"node_modules":  {},
	".git":          {},
	".hg":           {},
	".svn":          {},
	"__pycache__":   {},
	".venv":         {},
	"venv":          {},
	"env":           {},
	".tox":          {},
	"dist":          {},
	"build":         {},
	"target":        {},
	".cache":        {},
	".mypy_cache":   {},
	".pytest_cache": {},
	"vendor":        {},
	".idea":         {},
	".vscode":       {},
}

// Found is one discovered project: its root path and parsed manifest.
type Found struct {
	Path     string
	Manifest *models.Manifest
}

// Options configures a Walk.
type Options struct {
	MaxDepth   int
	SkipHidden bool
}

func (o Options) withDefaults() Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	return o
}

// Walk performs a depth-first traversal of root, invoking visit for each
// discovered project. It guarantees: every visited path is unique; no
// project is an ancestor of another visited project (discovery does not
// recurse into a detected project root); unreadable directories are skipped
// silently (logged at warn level).
func Walk(root string, opts Options, visit func(Found)) {
	opts = opts.withDefaults()
	walk(root, 0, opts, visit)
}

// Discover is the slice-returning convenience form of Walk.
func Discover(root string, opts Options) []Found {
	var found []Found
	Walk(root, opts, func(f Found) {
		found = append(found, f)
	})
	return found
}

func walk(dir string, depth int, opts Options, visit func(Found)) {
	if depth > opts.MaxDepth {
		return
	}

	base := filepath.Base(dir)
	if opts.SkipHidden && depth > 0 && len(base) > 1 && base[0] == '.' {
		return
	}
	if _, skip := skipDirs[base]; skip && depth > 0 {
		return
	}

	if path, _, ok := manifest.Best(dir); ok {
		visit(Found{Path: dir, Manifest: manifest.Read(path)})
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("discovery: cannot read directory, skipping", "path", dir, "error", err)
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		walk(filepath.Join(dir, entry.Name()), depth+1, opts, visit)
	}
}
