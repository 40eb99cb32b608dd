// Package config loads and validates nerdmem's configuration: one struct per
// concern composed into a root Config, serialized as YAML on disk and
// overridable via NERDMEM_* environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"nerdmem/internal/errs"
)

// Config is the root configuration object, composed of one struct per
// concern so each package can depend on just the slice it needs.
type Config struct {
	Root       string          `yaml:"-"` // workspace root; not serialized, derived at load time
	Store      StoreConfig     `yaml:"store"`
	Embedding  EmbeddingConfig `yaml:"embedding"`
	RL         RLConfig        `yaml:"rl"`
	Sona       SonaConfig      `yaml:"sona"`
	Hook       HookConfig      `yaml:"hook"`
	Logging    LoggingConfig   `yaml:"logging"`
	Verbose    bool            `yaml:"verbose"`
	PretrainDone bool          `yaml:"pretrain_done"`
}

// DefaultConfig returns the configuration documented as defaults: sqlite
// store, hash-fallback embeddings disabled in favor of onnx/semantic when
// available, double-q as the default RL algorithm, sona and dream-cycle on.
func DefaultConfig() Config {
	return Config{
		Store:     DefaultStoreConfig(),
		Embedding: DefaultEmbeddingConfig(),
		RL:        DefaultRLConfig(),
		Sona:      DefaultSonaConfig(),
		Hook:      DefaultHookConfig(),
		Logging:   DefaultLoggingConfig(),
	}
}

// Load reads a YAML config file at path, applies environment overrides, and
// validates the result. If path does not exist, defaults are used.
func Load(root, path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Root = root

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, errs.Wrap(errs.KindConfigError, "failed to read config file", err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errs.Wrap(errs.KindConfigError, "failed to parse config YAML", err)
	}
	cfg.Root = root

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.writeLoggingCache(); err != nil {
		// The logging cache is read-path convenience for the logging
		// package; a failure to write it must not abort startup.
		fmt.Fprintf(os.Stderr, "[config] warning: could not write logging cache: %v\n", err)
	}

	return &cfg, nil
}

// Validate checks cross-field invariants the YAML/env layer can't enforce
// structurally (e.g. that embedding_dim is positive).
func (c *Config) Validate() error {
	if c.Store.Backend != "sqlite" {
		return errs.New(errs.KindConfigError, fmt.Sprintf("unsupported memory_backend %q (only sqlite is supported)", c.Store.Backend))
	}
	if c.Embedding.Dimension <= 0 {
		return errs.New(errs.KindConfigError, "embedding_dim must be positive")
	}
	if c.Embedding.SemanticThreshold < -1 || c.Embedding.SemanticThreshold > 1 {
		return errs.New(errs.KindConfigError, "semantic_threshold must be in [-1, 1]")
	}
	if c.RL.LearningRate <= 0 || c.RL.LearningRate > 1 {
		return errs.New(errs.KindConfigError, "learning_rate must be in (0, 1]")
	}
	if c.Hook.TimeoutMs <= 0 {
		return errs.New(errs.KindConfigError, "hook_timeout must be positive")
	}
	if _, ok := validAlgorithms[c.RL.Algorithm]; !ok {
		return errs.New(errs.KindConfigError, fmt.Sprintf("unknown q_learning_algorithm %q", c.RL.Algorithm))
	}
	return nil
}

var validAlgorithms = map[string]bool{
	"double-q":             true,
	"q-learning":           true,
	"sarsa":                true,
	"actor-critic":         true,
	"ppo":                  true,
	"decision-transformer": true,
	"monte-carlo":          true,
	"td-lambda":            true,
	"dqn":                  true,
}

// Save writes cfg as YAML to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errs.Wrap(errs.KindConfigError, "failed to marshal config", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errs.Wrap(errs.KindConfigError, "failed to create config directory", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errs.Wrap(errs.KindConfigError, "failed to write config file", err)
	}
	return nil
}

// loggingCacheFile mirrors logging.configFile's JSON shape without importing
// the logging package, avoiding a config<->logging import cycle while still
// letting the logging package pick up debug_mode/categories at Initialize time.
type loggingCacheFile struct {
	Logging struct {
		DebugMode  bool            `json:"debug_mode"`
		Categories map[string]bool `json:"categories"`
		Level      string          `json:"level"`
		JSONFormat bool            `json:"json_format"`
	} `json:"logging"`
}

// writeLoggingCache writes .nerdmem/config.json, the small JSON projection
// the logging package reads at Initialize time.
func (c *Config) writeLoggingCache() error {
	var cache loggingCacheFile
	cache.Logging.DebugMode = c.Logging.DebugMode
	cache.Logging.Categories = c.Logging.Categories
	cache.Logging.Level = c.Logging.Level
	cache.Logging.JSONFormat = c.Logging.JSONFormat

	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Join(c.Root, ".nerdmem")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// FindWorkspaceRoot walks upward from start looking for a .nerdmem
// directory, falling back to start itself if none is found (a fresh
// workspace that has not yet been initialized).
func FindWorkspaceRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", errs.Wrap(errs.KindConfigError, "failed to resolve start path", err)
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, ".nerdmem")); err == nil && info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return filepath.Abs(start)
		}
		dir = parent
	}
}

// ConfigPath returns the YAML config file path under root.
func ConfigPath(root string) string {
	return filepath.Join(root, ".nerdmem", "config.yaml")
}
