package config

import "time"

// HookConfig configures the hook router (C7): per-event time budget.
type HookConfig struct {
	TimeoutMs int `yaml:"hook_timeout"`
}

// DefaultHookConfig returns the spec's documented default: 10s per event.
func DefaultHookConfig() HookConfig {
	return HookConfig{TimeoutMs: 10000}
}

// Timeout returns TimeoutMs as a time.Duration.
func (h HookConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutMs) * time.Millisecond
}
