package config

import "time"

// Built-in defaults, matching spec.md §6's stated defaults for every
// CATALOG_* environment variable.
const (
	DefaultDebounceSeconds           = 5.0
	DefaultMaxWaitSeconds            = 30.0
	DefaultWorkerPollIntervalSeconds = 5.0
	DefaultWorkerMaxConcurrent       = 3
	DefaultFTSWeight                 = 0.6
	DefaultSemanticWeight            = 0.4
	DefaultSemanticAuto              = true
	DefaultLogFormat                 = "json"
)

// Defaults returns the built-in configuration applied before catalog.yaml
// and CATALOG_* overrides are layered on top.
func Defaults() Config {
	return Config{
		DebounceWindow:      secondsToDuration(DefaultDebounceSeconds),
		MaxWait:             secondsToDuration(DefaultMaxWaitSeconds),
		WorkerPollInterval:  secondsToDuration(DefaultWorkerPollIntervalSeconds),
		WorkerMaxConcurrent: DefaultWorkerMaxConcurrent,
		FTSWeight:           DefaultFTSWeight,
		SemanticWeight:      DefaultSemanticWeight,
		SemanticAuto:        DefaultSemanticAuto,
		LogFormat:           DefaultLogFormat,
	}
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
