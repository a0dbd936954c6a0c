package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesBuiltinDefaultsWithNoFileAndNoEnv(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadAppliesFileOverrides(t *testing.T) {
	path := writeYAML(t, `
watch:
  paths: ["/repos/a", "/repos/b"]
  debounce_seconds: 2.5
worker:
  max_concurrent: 7
search:
  semantic_auto: false
models:
  embedding: text-embedding-3-small
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/repos/a", "/repos/b"}, cfg.WatchPaths)
	assert.Equal(t, secondsToDuration(2.5), cfg.DebounceWindow)
	assert.Equal(t, 7, cfg.WorkerMaxConcurrent)
	assert.False(t, cfg.SemanticAuto)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	// Untouched fields keep their defaults.
	assert.Equal(t, Defaults().MaxWait, cfg.MaxWait)
}

func TestLoadExpandsEnvVarsInFile(t *testing.T) {
	t.Setenv("TEST_CATALOG_MODEL", "claude-haiku")
	path := writeYAML(t, "models:\n  llm: ${TEST_CATALOG_MODEL}\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "claude-haiku", cfg.LLMModel)
}

func TestLoadInvalidYAMLReturnsLoadError(t *testing.T) {
	path := writeYAML(t, "watch: [this is not a mapping")
	_, err := Load(path)
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestLoadEnvOverridesWinOverFile(t *testing.T) {
	path := writeYAML(t, "worker:\n  max_concurrent: 2\n")
	t.Setenv("CATALOG_WORKER_MAX_CONCURRENT", "9")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.WorkerMaxConcurrent)
}

func TestLoadEnvOverridesAppliedWithoutAnyFile(t *testing.T) {
	t.Setenv("CATALOG_WATCH_PATHS", "/a, /b ,/c")
	t.Setenv("CATALOG_SEMANTIC_AUTO", "false")
	t.Setenv("CATALOG_FTS_WEIGHT", "0.9")
	t.Setenv("CATALOG_SEMANTIC_WEIGHT", "0.1")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/b", "/c"}, cfg.WatchPaths)
	assert.False(t, cfg.SemanticAuto)
	assert.Equal(t, 0.9, cfg.FTSWeight)
	assert.Equal(t, 0.1, cfg.SemanticWeight)
}

func TestLoadIgnoresInvalidEnvOverrideAndKeepsDefault(t *testing.T) {
	t.Setenv("CATALOG_WORKER_MAX_CONCURRENT", "not-a-number")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultWorkerMaxConcurrent, cfg.WorkerMaxConcurrent)
}

func TestLoadRejectsInvalidMergedConfig(t *testing.T) {
	t.Setenv("CATALOG_FTS_WEIGHT", "0")
	t.Setenv("CATALOG_SEMANTIC_WEIGHT", "0")
	_, err := Load("")
	require.Error(t, err)
}
