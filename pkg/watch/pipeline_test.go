package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineDebouncesWatcherEventsIntoSingleTrigger(t *testing.T) {
	root := newGitRoot(t)
	w := newTestWatcher(t)
	trigger := &recordingTrigger{}
	d := New(30*time.Millisecond, time.Second, trigger)
	p := NewPipeline(w, d)

	require.NoError(t, p.AddRoot(root))

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "file.txt"), []byte("x"), 0o644))
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return trigger.count() == 1 }, time.Second, 10*time.Millisecond)
	trigger.mu.Lock()
	defer trigger.mu.Unlock()
	assert.Equal(t, root, trigger.calls[0])
}

func TestPipelineStopFlushesBeforeStoppingWatcher(t *testing.T) {
	root := newGitRoot(t)
	w := newTestWatcher(t)
	trigger := &recordingTrigger{}
	d := New(time.Hour, time.Hour, trigger)
	p := NewPipeline(w, d)

	require.NoError(t, p.AddRoot(root))
	require.NoError(t, os.WriteFile(filepath.Join(root, "file.txt"), []byte("x"), 0o644))
	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return len(d.pending) == 1
	}, time.Second, 10*time.Millisecond)

	assert.NoError(t, p.Stop())
	assert.Equal(t, 1, trigger.count())
}
