package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evercatalog/catalog/pkg/models"
)

func TestDispatcherBroadcastDeliversToAllSubscribers(t *testing.T) {
	d := NewDispatcher()

	var mu sync.Mutex
	var gotA, gotB []int64

	d.Subscribe(func(e models.CatalogEvent) {
		mu.Lock()
		defer mu.Unlock()
		gotA = append(gotA, e.ID)
	})
	d.Subscribe(func(e models.CatalogEvent) {
		mu.Lock()
		defer mu.Unlock()
		gotB = append(gotB, e.ID)
	})

	d.Broadcast(models.CatalogEvent{ID: 1})
	d.Broadcast(models.CatalogEvent{ID: 2})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{1, 2}, gotA)
	assert.Equal(t, []int64{1, 2}, gotB)
}

func TestDispatcherUnsubscribeStopsDelivery(t *testing.T) {
	d := NewDispatcher()

	var mu sync.Mutex
	var got []int64
	unsubscribe := d.Subscribe(func(e models.CatalogEvent) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.ID)
	})

	d.Broadcast(models.CatalogEvent{ID: 1})
	unsubscribe()
	d.Broadcast(models.CatalogEvent{ID: 2})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{1}, got)
}

func TestDispatcherBroadcastSurvivesPanickingSubscriber(t *testing.T) {
	d := NewDispatcher()

	var delivered bool
	d.Subscribe(func(models.CatalogEvent) { panic("boom") })
	d.Subscribe(func(models.CatalogEvent) { delivered = true })

	require.NotPanics(t, func() { d.Broadcast(models.CatalogEvent{ID: 1}) })
	assert.True(t, delivered)
}

func TestDispatcherBroadcastIsConcurrencySafe(t *testing.T) {
	d := NewDispatcher()
	var counter int64
	var mu sync.Mutex
	d.Subscribe(func(models.CatalogEvent) {
		mu.Lock()
		counter++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			d.Broadcast(models.CatalogEvent{ID: id})
		}(int64(i))
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, int64(50), counter)
}
