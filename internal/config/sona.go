package config

// SonaConfig configures the compressed-pattern layer (C6).
type SonaConfig struct {
	Enabled          bool `yaml:"sona_enabled"`
	HNSWEnabled      bool `yaml:"hnsw_enabled"`      // prefer native backend
	AttentionEnabled bool `yaml:"attention_enabled"` // reserved
	DreamCycleEnabled bool `yaml:"dream_cycle_enabled"`
	MaxPatterns      int  `yaml:"max_patterns"`
}

// DefaultSonaConfig returns the spec's documented defaults.
func DefaultSonaConfig() SonaConfig {
	return SonaConfig{
		Enabled:           true,
		HNSWEnabled:       true,
		AttentionEnabled:  true,
		DreamCycleEnabled: true,
		MaxPatterns:       1000,
	}
}
