package events

import (
	"log/slog"
	"sync"

	"github.com/evercatalog/catalog/pkg/models"
)

// Handler receives every CatalogEvent the Dispatcher broadcasts. Handlers
// run synchronously on the Listener's goroutine, so a slow handler delays
// delivery to the rest — callers wanting their own pace should hand the
// event to a buffered channel or goroutine pool of their own.
type Handler func(models.CatalogEvent)

// Dispatcher fans a CatalogEvent out to every registered in-process
// subscriber. It plays the role of the donor's ConnectionManager, but there
// is no client-facing WebSocket transport for this service — subscribers
// are Go callbacks (a cache invalidator, a metrics counter, a future
// webhook forwarder) rather than browser connections, so there is no
// per-connection channel-subscription bookkeeping to do: every Handler
// sees every event and filters for itself if it only cares about some.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	nextID   int
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[int]Handler)}
}

// Subscribe registers handler and returns a function that removes it.
// Safe to call concurrently with Broadcast.
func (d *Dispatcher) Subscribe(handler Handler) (unsubscribe func()) {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.handlers[id] = handler
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.handlers, id)
		d.mu.Unlock()
	}
}

// Broadcast delivers event to every current subscriber. A handler that
// panics is recovered and logged so one bad subscriber can't take down the
// Listener's receive loop.
func (d *Dispatcher) Broadcast(event models.CatalogEvent) {
	d.mu.RLock()
	handlers := make([]Handler, 0, len(d.handlers))
	for _, h := range d.handlers {
		handlers = append(handlers, h)
	}
	d.mu.RUnlock()

	for _, h := range handlers {
		d.invoke(h, event)
	}
}

func (d *Dispatcher) invoke(h Handler, event models.CatalogEvent) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("events: subscriber panicked", "event_id", event.ID, "event_type", event.EventType, "panic", r)
		}
	}()
	h(event)
}
