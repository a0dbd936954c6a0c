// Package ports defines the interfaces through which the catalog core
// consumes its external collaborators (spec §6: "Ports to external
// collaborators"). The core depends on these interfaces only; concrete
// adapters live in pkg/llmclient.
package ports

import "context"

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	// Embed returns the embedding for text, or an error if the backend is
	// unreachable or returns a malformed response.
	Embed(ctx context.Context, text string) ([]float32, error)
	// ListModels reports the model ids served by the backend, used by
	// callers to probe availability.
	ListModels(ctx context.Context) ([]string, error)
}

// Generator produces free text from a prompt, used for LLM analysis,
// quality assessment, and natural-language query parsing.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GenerateRequest is the input to Generator.Generate.
type GenerateRequest struct {
	Prompt      string
	System      string
	Temperature float64
	MaxTokens   int
}

// FsWatcherCallback receives a single filesystem change notification.
type FsWatcherCallback func(path string)

// FsWatcher subscribes to recursive filesystem notifications.
type FsWatcher interface {
	Subscribe(root string, callback FsWatcherCallback) error
	AddWatchPath(root string) error
	RemoveWatchPath(root string) error
	Stop() error
}
