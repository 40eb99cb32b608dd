package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEnvOverridesPrecedence(t *testing.T) {
	t.Setenv("NERDMEM_SQLITE_PATH", "/tmp/custom.db")
	t.Setenv("NERDMEM_EMBEDDING_DIM", "512")
	t.Setenv("NERDMEM_SEMANTIC_THRESHOLD", "0.8")
	t.Setenv("NERDMEM_ONNX_ENABLED", "false")
	t.Setenv("NERDMEM_LEARNING_RATE", "0.3")
	t.Setenv("NERDMEM_Q_LEARNING_ALGORITHM", "ppo")
	t.Setenv("NERDMEM_HOOK_TIMEOUT", "2000")
	t.Setenv("NERDMEM_SONA_ENABLED", "false")
	t.Setenv("NERDMEM_VERBOSE", "true")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "/tmp/custom.db", cfg.Store.Path)
	assert.Equal(t, 512, cfg.Embedding.Dimension)
	assert.Equal(t, 0.8, cfg.Embedding.SemanticThreshold)
	assert.False(t, cfg.Embedding.OnnxEnabled)
	assert.Equal(t, 0.3, cfg.RL.LearningRate)
	assert.Equal(t, "ppo", cfg.RL.Algorithm)
	assert.Equal(t, 2000, cfg.Hook.TimeoutMs)
	assert.False(t, cfg.Sona.Enabled)
	assert.True(t, cfg.Verbose)
	assert.True(t, cfg.Logging.DebugMode)
}

func TestApplyEnvOverridesLeavesUnsetFieldsAlone(t *testing.T) {
	cfg := DefaultConfig()
	before := cfg
	cfg.applyEnvOverrides()
	assert.Equal(t, before, cfg)
}

func TestApplyEnvOverridesIgnoresMalformedValues(t *testing.T) {
	t.Setenv("NERDMEM_EMBEDDING_DIM", "not-a-number")
	t.Setenv("NERDMEM_ONNX_ENABLED", "not-a-bool")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, DefaultEmbeddingConfig().Dimension, cfg.Embedding.Dimension)
	assert.Equal(t, DefaultEmbeddingConfig().OnnxEnabled, cfg.Embedding.OnnxEnabled)
}

func TestLoadIntegratesEnvOverrides(t *testing.T) {
	t.Setenv("NERDMEM_Q_LEARNING_ALGORITHM", "monte-carlo")
	root := t.TempDir()

	cfg, err := Load(root, ConfigPath(root))
	require.NoError(t, err)
	assert.Equal(t, "monte-carlo", cfg.RL.Algorithm)
}
