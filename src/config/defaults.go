package config

import (
	"time"
)

const (
	DefaultProvider    = "openrouter"
	DefaultModel       = "google/gemini-2.5-flash"
	DefaultTokenBudget = 16000
	DefaultMaxRounds   = 16
	DefaultEventBuffer = 100
	DefaultCacheSize   = 256
)

// DefaultConfig returns a default configuration with sensible defaults
func DefaultConfig() *Config {
	paths := GetDefaultStoragePaths()
	return &Config{
		Version: "1.0",
		API: APIConfig{
			Provider:   DefaultProvider,
			Timeout:    Duration(120 * time.Second),
			RetryCount: 3,
		},
		Agent: AgentConfig{
			Model:       DefaultModel,
			TokenBudget: DefaultTokenBudget,
			MaxRounds:   DefaultMaxRounds,
			EventBuffer: DefaultEventBuffer,
			CacheSize:   DefaultCacheSize,
		},
		Storage: StorageConfig{
			DatabasePath: paths.DatabasePath,
			BookRoot:     paths.BookRoot,
		},
		LogLevel: "info",
	}
}
