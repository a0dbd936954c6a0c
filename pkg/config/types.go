package config

import "time"

// Config holds the fully-resolved runtime configuration for catalogd: the
// watch/debounce tuning for C7/C8, the job supervisor's polling and
// concurrency limits for C9, and the hybrid-search weights for C10/C11.
// It is produced by Load, which layers catalog.yaml over built-in defaults
// and CATALOG_* environment overrides over both.
type Config struct {
	// WatchPaths are the project roots C8 recursively watches.
	WatchPaths []string

	// DebounceWindow is C7's quiet period: the time a root must go
	// without a new event before a refresh fires.
	DebounceWindow time.Duration
	// MaxWait is C7's hard ceiling: a refresh fires no later than this
	// long after the first event in a burst, regardless of quiet time.
	MaxWait time.Duration

	// WorkerPollInterval is how often the C9 supervisor polls for
	// claimable jobs.
	WorkerPollInterval time.Duration
	// WorkerMaxConcurrent bounds the number of jobs C9 runs at once.
	WorkerMaxConcurrent int

	// FTSWeight and SemanticWeight are the RRF list weights C10 assigns
	// to the full-text and semantic candidate lists.
	FTSWeight      float64
	SemanticWeight float64
	// SemanticAuto enables the semantic side of hybrid search whenever
	// an embedder is configured and available; false forces FTS-only.
	SemanticAuto bool

	// EmbeddingModel and LLMModel select the model ids passed to the
	// configured Embedder and Generator ports.
	EmbeddingModel string
	LLMModel       string

	// VectorCachePath is where the in-memory vector store persists its
	// snapshot between restarts.
	VectorCachePath string

	// LogFormat selects "json" (production) or "text" (local dev)
	// slog handlers in cmd/catalogd.
	LogFormat string
}

// CatalogYAMLConfig is the shape of catalog.yaml. Every field is optional;
// anything left unset falls through to built-in defaults and then to
// CATALOG_* environment overrides.
type CatalogYAMLConfig struct {
	Watch       *WatchYAMLConfig  `yaml:"watch,omitempty"`
	Worker      *WorkerYAMLConfig `yaml:"worker,omitempty"`
	Search      *SearchYAMLConfig `yaml:"search,omitempty"`
	Models      *ModelsYAMLConfig `yaml:"models,omitempty"`
	VectorCache string            `yaml:"vector_cache,omitempty"`
	LogFormat   string            `yaml:"log_format,omitempty"`
}

// WatchYAMLConfig configures C8's roots and C7's debounce tuning.
type WatchYAMLConfig struct {
	Paths           []string `yaml:"paths,omitempty"`
	DebounceSeconds *float64 `yaml:"debounce_seconds,omitempty"`
	MaxWaitSeconds  *float64 `yaml:"max_wait_seconds,omitempty"`
}

// WorkerYAMLConfig configures the C9 job supervisor.
type WorkerYAMLConfig struct {
	PollIntervalSeconds *float64 `yaml:"poll_interval_seconds,omitempty"`
	MaxConcurrent       *int     `yaml:"max_concurrent,omitempty"`
}

// SearchYAMLConfig configures C10's RRF weights and semantic toggle.
type SearchYAMLConfig struct {
	FTSWeight      *float64 `yaml:"fts_weight,omitempty"`
	SemanticWeight *float64 `yaml:"semantic_weight,omitempty"`
	SemanticAuto   *bool    `yaml:"semantic_auto,omitempty"`
}

// ModelsYAMLConfig names the embedding and generation models in use.
type ModelsYAMLConfig struct {
	Embedding string `yaml:"embedding,omitempty"`
	LLM       string `yaml:"llm,omitempty"`
}
