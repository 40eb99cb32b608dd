package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	root := t.TempDir()
	cfg, err := Load(root, ConfigPath(root))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, 384, cfg.Embedding.Dimension)
	assert.Equal(t, "double-q", cfg.RL.Algorithm)

	// the logging cache should have been written as a side effect
	cache := filepath.Join(root, ".nerdmem", "config.json")
	assert.FileExists(t, cache)
}

func TestLoadParsesYAMLOverrides(t *testing.T) {
	root := t.TempDir()
	path := ConfigPath(root)
	require.NoError(t, (&Config{
		Store:     StoreConfig{Backend: "sqlite", Enabled: true},
		Embedding: EmbeddingConfig{Model: "x", Dimension: 512, SemanticThreshold: 0.7, OnnxEnabled: true, SemanticEmbeddings: true},
		RL:        RLConfig{Enabled: true, LearningRate: 0.2, Algorithm: "sarsa"},
		Sona:      DefaultSonaConfig(),
		Hook:      HookConfig{TimeoutMs: 5000},
		Logging:   DefaultLoggingConfig(),
	}).Save(path))

	cfg, err := Load(root, path)
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.Embedding.Dimension)
	assert.Equal(t, "sarsa", cfg.RL.Algorithm)
	assert.Equal(t, 5000, cfg.Hook.TimeoutMs)
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	root := t.TempDir()
	path := ConfigPath(root)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("not: [valid yaml"), 0644))

	_, err := Load(root, path)
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
	}{
		{"bad backend", func(c *Config) { c.Store.Backend = "postgres" }},
		{"zero dimension", func(c *Config) { c.Embedding.Dimension = 0 }},
		{"threshold out of range", func(c *Config) { c.Embedding.SemanticThreshold = 2 }},
		{"learning rate zero", func(c *Config) { c.RL.LearningRate = 0 }},
		{"learning rate too high", func(c *Config) { c.RL.LearningRate = 1.5 }},
		{"zero timeout", func(c *Config) { c.Hook.TimeoutMs = 0 }},
		{"unknown algorithm", func(c *Config) { c.RL.Algorithm = "genetic" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestFindWorkspaceRootWalksUpward(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".nerdmem"), 0755))
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0755))

	found, err := FindWorkspaceRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, root, found)
}

func TestFindWorkspaceRootFallsBackToStart(t *testing.T) {
	start := t.TempDir()
	found, err := FindWorkspaceRoot(start)
	require.NoError(t, err)
	assert.Equal(t, start, found)
}
