package queue

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 3, cfg.MaxConcurrent)
	assert.Equal(t, 10*time.Minute, cfg.StuckJobThreshold)
	assert.Equal(t, 5*time.Minute, cfg.StuckSweepInterval)
}

func TestConfigWithDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := Config{MaxConcurrent: 8, PollInterval: time.Second}.withDefaults()
	assert.Equal(t, 8, cfg.MaxConcurrent)
	assert.Equal(t, time.Second, cfg.PollInterval)
}

func TestSchedulerRegisterAndUnregister(t *testing.T) {
	s := &Scheduler{active: make(map[string]struct{})}

	s.register("job-1")
	ids, count := s.activeIDs()
	assert.Equal(t, 1, count)
	assert.Contains(t, ids, "job-1")

	s.unregister("job-1")
	_, count = s.activeIDs()
	assert.Equal(t, 0, count)
}

func TestSchedulerUnregisterUnknownIsNoop(t *testing.T) {
	s := &Scheduler{active: make(map[string]struct{})}
	assert.NotPanics(t, func() { s.unregister("never-registered") })
}

func TestSchedulerRegisterConcurrency(t *testing.T) {
	s := &Scheduler{active: make(map[string]struct{})}

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.register(fmt.Sprintf("job-%d", i))
		}(i)
	}
	wg.Wait()

	_, count := s.activeIDs()
	assert.Equal(t, n, count)
}

func TestSchedulerStopTwiceDoesNotPanic(t *testing.T) {
	s := &Scheduler{
		stopCh: make(chan struct{}),
		active: make(map[string]struct{}),
	}
	assert.NotPanics(t, s.Stop)
	assert.NotPanics(t, s.Stop)
}

func TestSchedulerSleepReturnsOnStop(t *testing.T) {
	s := &Scheduler{stopCh: make(chan struct{})}
	close(s.stopCh)

	start := time.Now()
	s.sleep(time.Hour)
	assert.Less(t, time.Since(start), time.Second, "sleep should return immediately once stopCh is closed")
}

func TestSchedulerSleepWaitsForDuration(t *testing.T) {
	s := &Scheduler{stopCh: make(chan struct{})}

	start := time.Now()
	s.sleep(20 * time.Millisecond)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
