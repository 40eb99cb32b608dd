package config

// RLConfig configures the reinforcement-learning core (C4).
type RLConfig struct {
	Enabled      bool    `yaml:"learning_enabled"`
	LearningRate float64 `yaml:"learning_rate"`
	Algorithm    string  `yaml:"q_learning_algorithm"`
}

// DefaultRLConfig returns the spec's documented defaults.
func DefaultRLConfig() RLConfig {
	return RLConfig{
		Enabled:      true,
		LearningRate: 0.1,
		Algorithm:    "double-q",
	}
}
