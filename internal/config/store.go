package config

import "path/filepath"

// StoreConfig configures the SQL store (C1) and its sibling files.
type StoreConfig struct {
	Backend  string `yaml:"memory_backend"` // "sqlite" (only supported)
	Path     string `yaml:"sqlite_path"`
	Enabled  bool   `yaml:"intelligence_enabled"` // master on/off
}

// DefaultStoreConfig returns the documented defaults for C1.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Backend: "sqlite",
		Enabled: true,
	}
}

// ResolvedPath returns the sqlite path, defaulting to
// <root>/intelligence.db when Path is unset.
func (s StoreConfig) ResolvedPath(root string) string {
	if s.Path != "" {
		return s.Path
	}
	return filepath.Join(root, "intelligence.db")
}

// MirrorPath returns the JSON mirror path, sibling to the database.
func (s StoreConfig) MirrorPath(root string) string {
	return filepath.Join(root, "intelligence.json")
}

// KVPath returns the key-value scratchpad mirror path.
func (s StoreConfig) KVPath(root string) string {
	return filepath.Join(root, "kv.json")
}
