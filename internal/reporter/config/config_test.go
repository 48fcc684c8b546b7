package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paudley/git-ai-reporter/internal/reporter/config"
	"github.com/paudley/git-ai-reporter/internal/reporter/llm"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.TierModels.Fast)
	assert.Equal(t, 2048, cfg.MaxTokens.Fast)
	assert.Equal(t, 8, cfg.Concurrency.T1)
	assert.Equal(t, 4, cfg.Concurrency.T2)
	assert.Equal(t, 1, cfg.Concurrency.T3)
	assert.Equal(t, []string{"style", "chore"}, cfg.TrivialPrefixes)
	assert.InDelta(t, 0.1, cfg.ChunkOverlap, 1e-9)
	assert.Equal(t, uint(5), cfg.Retries.Max)
	assert.Equal(t, ".reporter-cache", cfg.CacheDir)
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	configContent := `
tier_models:
  fast: "custom-fast"
  balanced: "custom-balanced"
  quality: "custom-quality"

concurrency:
  t1: 16
  t2: 8
  t3: 2

cache_dir: "/tmp/custom-cache"
`

	tmpDir := t.TempDir()

	tmpFile, err := os.CreateTemp(tmpDir, "reporter-*.yaml")
	require.NoError(t, err)

	_, writeErr := tmpFile.WriteString(configContent)
	require.NoError(t, writeErr)

	require.NoError(t, tmpFile.Close())

	cfg, loadErr := config.Load(tmpFile.Name())
	require.NoError(t, loadErr)

	assert.Equal(t, "custom-fast", cfg.TierModels.Fast)
	assert.Equal(t, 16, cfg.Concurrency.T1)
	assert.Equal(t, 8, cfg.Concurrency.T2)
	assert.Equal(t, 2, cfg.Concurrency.T3)
	assert.Equal(t, "/tmp/custom-cache", cfg.CacheDir)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("REPORTER_TIER_MODELS_FAST", "env-fast")
	t.Setenv("REPORTER_CONCURRENCY_T1", "3")
	t.Setenv("REPORTER_CACHE_DIR", "/tmp/env-cache")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "env-fast", cfg.TierModels.Fast)
	assert.Equal(t, 3, cfg.Concurrency.T1)
	assert.Equal(t, "/tmp/env-cache", cfg.CacheDir)
}

func TestValidate_RejectsNonPositiveConcurrency(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load("")
	require.NoError(t, err)

	cfg.Concurrency.T1 = 0
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidConcurrency)
}

func TestValidate_RejectsOutOfRangeChunkOverlap(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load("")
	require.NoError(t, err)

	cfg.ChunkOverlap = 1.0
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidChunkOverlap)

	cfg.ChunkOverlap = -0.1
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidChunkOverlap)
}

func TestValidate_RejectsMissingTierModel(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load("")
	require.NoError(t, err)

	cfg.TierModels.Quality = ""
	assert.ErrorIs(t, cfg.Validate(), config.ErrMissingTierModel)
}

func TestGatewayConfig_ProjectsTierMaps(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load("")
	require.NoError(t, err)

	gwCfg := cfg.GatewayConfig()

	require.Len(t, gwCfg.Models, 3)
	assert.Equal(t, cfg.TierModels.Balanced, gwCfg.Models[llm.BALANCED].Model)
	assert.Equal(t, cfg.Retries.Max, gwCfg.Retry.MaxAttempts)
}
