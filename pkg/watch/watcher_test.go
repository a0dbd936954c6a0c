package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evercatalog/catalog/pkg/ports"
)

type eventRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *eventRecorder) callback() ports.FsWatcherCallback {
	return func(path string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.paths = append(r.paths, path)
	}
}

func (r *eventRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.paths))
	copy(out, r.paths)
	return out
}

func newTestWatcher(t *testing.T) *Watcher {
	t.Helper()
	w, err := NewWatcher(nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func TestWatcherSubscribeForwardsFileWriteEvents(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t)
	rec := &eventRecorder{}

	require.NoError(t, w.Subscribe(root, rec.callback()))

	file := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("hello"), 0o644))

	require.Eventually(t, func() bool { return len(rec.snapshot()) > 0 }, time.Second, 10*time.Millisecond)
	assert.Contains(t, rec.snapshot(), file)
}

func TestWatcherFiltersIgnoredDirectoryContents(t *testing.T) {
	root := t.TempDir()
	ignored := filepath.Join(root, "node_modules")
	require.NoError(t, os.Mkdir(ignored, 0o755))

	w := newTestWatcher(t)
	rec := &eventRecorder{}
	require.NoError(t, w.Subscribe(root, rec.callback()))

	require.NoError(t, os.WriteFile(filepath.Join(ignored, "pkg.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "real.txt"), []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		for _, p := range rec.snapshot() {
			if p == filepath.Join(root, "real.txt") {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)

	for _, p := range rec.snapshot() {
		assert.NotContains(t, p, "node_modules")
	}
}

func TestWatcherFiltersIgnoredFilePatterns(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t)
	rec := &eventRecorder{}
	require.NoError(t, w.Subscribe(root, rec.callback()))

	require.NoError(t, os.WriteFile(filepath.Join(root, "keep.go"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "scratch.swp"), []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		for _, p := range rec.snapshot() {
			if p == filepath.Join(root, "keep.go") {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)

	for _, p := range rec.snapshot() {
		assert.NotContains(t, p, ".swp")
	}
}

func TestWatcherRecursivelyWatchesNewlyCreatedDirectories(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t)
	rec := &eventRecorder{}
	require.NoError(t, w.Subscribe(root, rec.callback()))

	nested := filepath.Join(root, "nested")
	require.NoError(t, os.Mkdir(nested, 0o755))
	time.Sleep(50 * time.Millisecond)

	file := filepath.Join(nested, "inner.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	require.Eventually(t, func() bool { return len(rec.snapshot()) > 0 }, time.Second, 10*time.Millisecond)
	assert.Contains(t, rec.snapshot(), file)
}

func TestWatcherRemoveWatchPathUnsubscribesCallback(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t)
	rec := &eventRecorder{}
	require.NoError(t, w.Subscribe(root, rec.callback()))
	require.NoError(t, w.RemoveWatchPath(root))

	require.NoError(t, os.WriteFile(filepath.Join(root, "after-remove.txt"), []byte("x"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestWatcherCallbackForPicksLongestMatchingRoot(t *testing.T) {
	w := newTestWatcher(t)

	outer := t.TempDir()
	inner := filepath.Join(outer, "child")
	require.NoError(t, os.Mkdir(inner, 0o755))

	var outerHit, innerHit bool
	require.NoError(t, w.Subscribe(outer, func(string) { outerHit = true }))
	require.NoError(t, w.Subscribe(inner, func(string) { innerHit = true }))

	cb := w.callbackFor(filepath.Join(inner, "f.txt"))
	require.NotNil(t, cb)
	cb(filepath.Join(inner, "f.txt"))

	assert.True(t, innerHit)
	assert.False(t, outerHit)
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	w, err := NewWatcher(nil, nil)
	require.NoError(t, err)
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestIsIgnoredPathMatchesAnyPathComponent(t *testing.T) {
	w := newTestWatcher(t)
	assert.True(t, w.isIgnoredPath(filepath.Join("a", "b", ".git", "HEAD")))
	assert.False(t, w.isIgnoredPath(filepath.Join("a", "b", "c.go")))
}

func TestIsIgnoredPathMatchesGlobPatterns(t *testing.T) {
	w := newTestWatcher(t)
	assert.True(t, w.isIgnoredPath(filepath.Join("a", "b", "file.swp")))
	assert.False(t, w.isIgnoredPath(filepath.Join("a", "b", "file.go")))
}
