// Package watch implements C7 (root debouncer) and C8 (filesystem watcher):
// fsnotify-backed recursive directory watching that collapses bursts of
// filesystem events into one refresh trigger per project root (spec §4.7,
// §4.8).
package watch

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/evercatalog/catalog/pkg/manifest"
)

// DefaultDebounceWindow is the quiet period after the last event in a burst
// before a refresh fires.
const DefaultDebounceWindow = 5 * time.Second

// DefaultMaxWait caps debounce latency: a refresh fires even if events keep
// arriving once this much time has passed since the first event in the
// burst.
const DefaultMaxWait = 30 * time.Second

// maxRootWalkDepth bounds how far Debouncer walks up from a changed path
// looking for a project root marker, guarding against unbounded loops on
// unusual filesystem layouts.
const maxRootWalkDepth = 64

// RefreshTrigger is invoked once per collapsed burst of filesystem events
// under a project root. Implementations decide their own scheduling: a
// trigger that blocks makes Debouncer synchronous for that root, one that
// spawns a goroutine makes it asynchronous.
type RefreshTrigger interface {
	Trigger(root string)
}

// RefreshTriggerFunc adapts a plain function to RefreshTrigger.
type RefreshTriggerFunc func(root string)

// Trigger calls f(root).
func (f RefreshTriggerFunc) Trigger(root string) { f(root) }

type pendingRefresh struct {
	firstEventAt time.Time
	lastEventAt  time.Time
	eventCount   int
	timer        *time.Timer
}

type rootLookup struct {
	root  string
	found bool
}

// Debouncer collapses bursts of filesystem events into one refresh per
// project root, bounded by a quiet window and a hard upper wait.
type Debouncer struct {
	debounceWindow time.Duration
	maxWait        time.Duration
	trigger        RefreshTrigger

	mu      sync.Mutex
	pending map[string]*pendingRefresh

	rootMu    sync.Mutex
	rootCache map[string]rootLookup
}

// New builds a Debouncer. Zero durations fall back to the package defaults.
func New(debounceWindow, maxWait time.Duration, trigger RefreshTrigger) *Debouncer {
	if debounceWindow <= 0 {
		debounceWindow = DefaultDebounceWindow
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &Debouncer{
		debounceWindow: debounceWindow,
		maxWait:        maxWait,
		trigger:        trigger,
		pending:        make(map[string]*pendingRefresh),
		rootCache:      make(map[string]rootLookup),
	}
}

// Enqueue records one filesystem event at path, resolving it to a project
// root and arming or extending that root's debounce timer. Paths outside
// any recognised project root are dropped.
func (d *Debouncer) Enqueue(path string) {
	root, ok := d.resolveRoot(path)
	if !ok {
		return
	}

	d.mu.Lock()
	now := time.Now()
	p, exists := d.pending[root]
	switch {
	case !exists:
		p = &pendingRefresh{firstEventAt: now}
		p.timer = time.AfterFunc(d.debounceWindow, func() { d.fire(root) })
		d.pending[root] = p
	case now.Sub(p.firstEventAt) >= d.maxWait:
		p.timer.Stop()
		delete(d.pending, root)
		d.mu.Unlock()
		d.invoke(root)
		return
	default:
		p.timer.Reset(d.debounceWindow)
	}
	p.lastEventAt = now
	p.eventCount++
	d.mu.Unlock()
}

func (d *Debouncer) fire(root string) {
	d.mu.Lock()
	if _, ok := d.pending[root]; !ok {
		d.mu.Unlock()
		return
	}
	delete(d.pending, root)
	d.mu.Unlock()
	d.invoke(root)
}

// Flush forces every pending root to fire immediately, in arbitrary order.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	roots := make([]string, 0, len(d.pending))
	for root, p := range d.pending {
		p.timer.Stop()
		roots = append(roots, root)
	}
	d.pending = make(map[string]*pendingRefresh)
	d.mu.Unlock()

	for _, root := range roots {
		d.invoke(root)
	}
}

// ClearCache drops the path→root memoization, forcing the next Enqueue for
// each path to re-walk the filesystem. Useful after projects are added or
// removed so stale root lookups don't linger.
func (d *Debouncer) ClearCache() {
	d.rootMu.Lock()
	defer d.rootMu.Unlock()
	d.rootCache = make(map[string]rootLookup)
}

func (d *Debouncer) invoke(root string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("watch: on_refresh panicked", "root", root, "panic", r)
		}
	}()
	d.trigger.Trigger(root)
}

func (d *Debouncer) resolveRoot(path string) (string, bool) {
	d.rootMu.Lock()
	defer d.rootMu.Unlock()
	if cached, ok := d.rootCache[path]; ok {
		return cached.root, cached.found
	}
	root, found := findProjectRoot(path)
	d.rootCache[path] = rootLookup{root: root, found: found}
	return root, found
}

// findProjectRoot walks up from path's directory looking for the same
// marker files C2 project discovery recognises, plus a bare .git directory
// (spec §4.7: "same set as C2 plus .git").
func findProjectRoot(path string) (string, bool) {
	dir := filepath.Dir(path)
	for i := 0; i < maxRootWalkDepth; i++ {
		if _, _, ok := manifest.Best(dir); ok {
			return dir, true
		}
		if dirExists(filepath.Join(dir, ".git")) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}
