package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load builds the catalog's runtime Config: built-in defaults, layered with
// catalog.yaml at path (if present), layered with CATALOG_* environment
// overrides, then validated. A missing file at path is not an error — Load
// falls back to defaults plus whatever CATALOG_* variables are set, which is
// the only configuration surface a container deployment typically needs.
func Load(path string) (Config, error) {
	yamlCfg, err := loadYAMLFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg, err := mergeFileConfig(Defaults(), yamlCfg)
	if err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := NewValidator(cfg).ValidateAll(); err != nil {
		return Config{}, fmt.Errorf("config: validate: %w", err)
	}

	slog.Info("catalog configuration loaded",
		"watch_paths", len(cfg.WatchPaths),
		"debounce", cfg.DebounceWindow,
		"max_wait", cfg.MaxWait,
		"worker_poll_interval", cfg.WorkerPollInterval,
		"worker_max_concurrent", cfg.WorkerMaxConcurrent,
		"fts_weight", cfg.FTSWeight,
		"semantic_weight", cfg.SemanticWeight,
		"semantic_auto", cfg.SemanticAuto,
	)

	return cfg, nil
}

func loadYAMLFile(path string) (*CatalogYAMLConfig, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, NewLoadError(path, err)
	}

	data = ExpandEnv(data)

	var cfg CatalogYAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}

	return &cfg, nil
}

// applyEnvOverrides applies every CATALOG_* environment variable from
// spec.md §6 directly onto cfg, taking precedence over catalog.yaml — the
// donor's "env wins over file" rule.
func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("CATALOG_WATCH_PATHS"); ok {
		cfg.WatchPaths = splitCSV(v)
	}
	if v, ok := envFloat("CATALOG_DEBOUNCE_SECONDS"); ok {
		cfg.DebounceWindow = secondsToDuration(v)
	}
	if v, ok := envFloat("CATALOG_MAX_WAIT_SECONDS"); ok {
		cfg.MaxWait = secondsToDuration(v)
	}
	if v, ok := envFloat("CATALOG_WORKER_POLL_INTERVAL"); ok {
		cfg.WorkerPollInterval = secondsToDuration(v)
	}
	if v, ok := envInt("CATALOG_WORKER_MAX_CONCURRENT"); ok {
		cfg.WorkerMaxConcurrent = v
	}
	if v, ok := envFloat("CATALOG_SEMANTIC_WEIGHT"); ok {
		cfg.SemanticWeight = v
	}
	if v, ok := envFloat("CATALOG_FTS_WEIGHT"); ok {
		cfg.FTSWeight = v
	}
	if v, ok := envBool("CATALOG_SEMANTIC_AUTO"); ok {
		cfg.SemanticAuto = v
	}
	if v, ok := os.LookupEnv("CATALOG_EMBEDDING_MODEL"); ok {
		cfg.EmbeddingModel = v
	}
	if v, ok := os.LookupEnv("CATALOG_LLM_MODEL"); ok {
		cfg.LLMModel = v
	}
	if v, ok := os.LookupEnv("CATALOG_VECTOR_CACHE"); ok {
		cfg.VectorCachePath = v
	}
	if v, ok := os.LookupEnv("CATALOG_LOG_FORMAT"); ok {
		cfg.LogFormat = v
	}
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envFloat(key string) (float64, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("ignoring invalid environment override", "var", key, "value", v, "error", err)
		return 0, false
	}
	return f, true
}

func envInt(key string) (int, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("ignoring invalid environment override", "var", key, "value", v, "error", err)
		return 0, false
	}
	return n, true
}

func envBool(key string) (bool, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("ignoring invalid environment override", "var", key, "value", v, "error", err)
		return false, false
	}
	return b, true
}
