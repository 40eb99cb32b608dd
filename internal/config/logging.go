package config

// LoggingConfig configures the categorized file-based logger. DebugMode
// gates all logging off by default; Categories lets an operator disable
// individual categories while debug mode is on.
type LoggingConfig struct {
	Level      string          `yaml:"level"`
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	JSONFormat bool            `yaml:"json_format"`
}

// DefaultLoggingConfig returns production defaults: no debug logging.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:     "info",
		DebugMode: false,
	}
}

// IsCategoryEnabled mirrors the logging package's own gating so config can
// be validated/introspected without constructing a logger.
func (l LoggingConfig) IsCategoryEnabled(category string) bool {
	if !l.DebugMode {
		return false
	}
	if l.Categories == nil {
		return true
	}
	enabled, exists := l.Categories[category]
	if !exists {
		return true
	}
	return enabled
}
