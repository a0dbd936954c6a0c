package watch

// Pipeline wires C8's filesystem Watcher into C7's Debouncer: every raw
// filesystem event for a subscribed root is enqueued into the debouncer
// instead of triggering a refresh directly.
type Pipeline struct {
	watcher   *Watcher
	debouncer *Debouncer
}

// NewPipeline composes an already-constructed Watcher and Debouncer.
func NewPipeline(w *Watcher, d *Debouncer) *Pipeline {
	return &Pipeline{watcher: w, debouncer: d}
}

// AddRoot subscribes root with the watcher, routing every surviving event
// under it into the debouncer.
func (p *Pipeline) AddRoot(root string) error {
	return p.watcher.Subscribe(root, func(path string) {
		p.debouncer.Enqueue(path)
	})
}

// RemoveRoot unsubscribes root from the watcher.
func (p *Pipeline) RemoveRoot(root string) error {
	return p.watcher.RemoveWatchPath(root)
}

// Stop flushes any pending debounced refreshes before unsubscribing from
// the filesystem watcher, so a shutdown never silently drops a burst of
// events that hadn't yet reached its quiet period (spec §4.8).
func (p *Pipeline) Stop() error {
	p.debouncer.Flush()
	return p.watcher.Stop()
}
