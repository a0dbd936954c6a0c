package watch

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"github.com/evercatalog/catalog/pkg/ports"
)

// DefaultIgnoreDirs is the fixed set of directory names never watched,
// matching the directories C2 project discovery never descends into.
var DefaultIgnoreDirs = map[string]struct{}{
	"node_modules": {}, ".git": {}, ".hg": {}, ".svn": {},
	"__pycache__": {}, ".venv": {}, "venv": {}, "env": {}, ".tox": {},
	"dist": {}, "build": {}, "target": {}, ".cache": {},
	".mypy_cache": {}, ".pytest_cache": {}, "vendor": {}, ".idea": {}, ".vscode": {},
}

// DefaultIgnoreFilePatterns is the default glob set of file names never
// surfaced as change events (editor swap/backup files).
var DefaultIgnoreFilePatterns = []string{"*.swp", "*.tmp", "*~", "#*#"}

type subscription struct {
	root     string
	callback ports.FsWatcherCallback
}

// Watcher is an fsnotify-backed implementation of ports.FsWatcher: it
// recursively watches one or more roots, filters directory events and
// ignored paths, and forwards surviving events to whichever subscribed
// root's callback is the closest ancestor of the changed path (spec §4.8).
type Watcher struct {
	fsw         *fsnotify.Watcher
	ignoreDirs  map[string]struct{}
	ignoreGlobs []glob.Glob

	mu   sync.RWMutex
	subs []subscription

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWatcher builds a Watcher and starts its event loop. ignoreDirs and
// ignoreFilePatterns default to DefaultIgnoreDirs/DefaultIgnoreFilePatterns
// when nil.
func NewWatcher(ignoreDirs map[string]struct{}, ignoreFilePatterns []string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	if ignoreDirs == nil {
		ignoreDirs = DefaultIgnoreDirs
	}
	if ignoreFilePatterns == nil {
		ignoreFilePatterns = DefaultIgnoreFilePatterns
	}
	globs := make([]glob.Glob, 0, len(ignoreFilePatterns))
	for _, pattern := range ignoreFilePatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watch: compile ignore pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}

	w := &Watcher{
		fsw:         fsw,
		ignoreDirs:  ignoreDirs,
		ignoreGlobs: globs,
		stopCh:      make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Subscribe registers callback for every surviving event under root and
// starts watching root recursively.
func (w *Watcher) Subscribe(root string, callback ports.FsWatcherCallback) error {
	root = filepath.Clean(root)
	w.mu.Lock()
	w.subs = append(w.subs, subscription{root: root, callback: callback})
	w.mu.Unlock()
	return w.AddWatchPath(root)
}

// AddWatchPath recursively adds fsnotify watches under root, skipping
// ignored directories. It may be called after Subscribe/Start.
func (w *Watcher) AddWatchPath(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("watch: cannot walk path, skipping", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.isIgnoredDir(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add watch on %q: %w", path, err)
		}
		return nil
	})
}

// RemoveWatchPath unsubscribes every callback registered for root and
// removes the underlying fsnotify watches under it.
func (w *Watcher) RemoveWatchPath(root string) error {
	root = filepath.Clean(root)
	w.mu.Lock()
	kept := w.subs[:0]
	for _, s := range w.subs {
		if s.root != root {
			kept = append(kept, s)
		}
	}
	w.subs = kept
	w.mu.Unlock()

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		_ = w.fsw.Remove(path)
		return nil
	})
}

// Stop shuts down the event loop and closes the underlying fsnotify watcher.
// It is safe to call multiple times.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	return w.fsw.Close()
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("watch: fsnotify error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	isDir := dirExists(ev.Name)

	if ev.Op&fsnotify.Create != 0 && isDir && !w.isIgnoredDir(ev.Name) {
		if err := w.fsw.Add(ev.Name); err != nil {
			slog.Warn("watch: failed to watch new directory", "path", ev.Name, "error", err)
		}
	}
	if isDir {
		return
	}
	if w.isIgnoredPath(ev.Name) {
		return
	}

	cb := w.callbackFor(ev.Name)
	if cb != nil {
		cb(ev.Name)
	}
}

func (w *Watcher) callbackFor(path string) ports.FsWatcherCallback {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var best ports.FsWatcherCallback
	bestLen := -1
	for _, s := range w.subs {
		if (path == s.root || strings.HasPrefix(path, s.root+string(filepath.Separator))) && len(s.root) > bestLen {
			best = s.callback
			bestLen = len(s.root)
		}
	}
	return best
}

func (w *Watcher) isIgnoredDir(path string) bool {
	_, ignored := w.ignoreDirs[filepath.Base(path)]
	return ignored
}

func (w *Watcher) isIgnoredPath(path string) bool {
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if _, ignored := w.ignoreDirs[part]; ignored {
			return true
		}
	}
	base := filepath.Base(path)
	for _, g := range w.ignoreGlobs {
		if g.Match(base) {
			return true
		}
	}
	return false
}
