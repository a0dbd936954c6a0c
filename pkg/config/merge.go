package config

import (
	"fmt"

	"dario.cat/mergo"
)

// mergeFileConfig layers the settings present in y on top of base, using
// mergo.WithOverride so only fields y actually sets replace base's values.
// User-defined settings override built-in defaults with the same shape as
// the donor's queue-config merge.
func mergeFileConfig(base Config, y *CatalogYAMLConfig) (Config, error) {
	if y == nil {
		return base, nil
	}

	merged := base
	overrides := fileConfig(y)
	if err := mergo.Merge(&merged, overrides, mergo.WithOverride); err != nil {
		return Config{}, fmt.Errorf("config: merge catalog.yaml: %w", err)
	}

	// mergo treats a bool's zero value (false) as "empty", so an explicit
	// "semantic_auto: false" in the file would never override a true
	// default via the merge above. Apply it directly when present.
	if y.Search != nil && y.Search.SemanticAuto != nil {
		merged.SemanticAuto = *y.Search.SemanticAuto
	}

	return merged, nil
}

// fileConfig translates the YAML shape into a Config whose unset fields are
// left at their zero value, so mergo.WithOverride only touches what the file
// actually specifies.
func fileConfig(y *CatalogYAMLConfig) Config {
	var c Config
	if y == nil {
		return c
	}

	if y.Watch != nil {
		c.WatchPaths = y.Watch.Paths
		if y.Watch.DebounceSeconds != nil {
			c.DebounceWindow = secondsToDuration(*y.Watch.DebounceSeconds)
		}
		if y.Watch.MaxWaitSeconds != nil {
			c.MaxWait = secondsToDuration(*y.Watch.MaxWaitSeconds)
		}
	}

	if y.Worker != nil {
		if y.Worker.PollIntervalSeconds != nil {
			c.WorkerPollInterval = secondsToDuration(*y.Worker.PollIntervalSeconds)
		}
		if y.Worker.MaxConcurrent != nil {
			c.WorkerMaxConcurrent = *y.Worker.MaxConcurrent
		}
	}

	if y.Search != nil {
		if y.Search.FTSWeight != nil {
			c.FTSWeight = *y.Search.FTSWeight
		}
		if y.Search.SemanticWeight != nil {
			c.SemanticWeight = *y.Search.SemanticWeight
		}
	}

	if y.Models != nil {
		c.EmbeddingModel = y.Models.Embedding
		c.LLMModel = y.Models.LLM
	}

	c.VectorCachePath = y.VectorCache
	c.LogFormat = y.LogFormat

	return c
}
