package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

// Loader handles loading and merging configurations from multiple sources
type Loader struct {
	precedence ConfigPrecedence
	validator  *Validator
	overrides  []func(*Config)
}

// NewLoader creates a new configuration loader
func NewLoader(precedence ConfigPrecedence) *Loader {
	return &Loader{
		precedence: precedence,
		validator:  NewValidator(),
	}
}

// WithOverrides registers fn to run after every other source, before
// validation. Command line flags are applied this way.
func (l *Loader) WithOverrides(fn func(*Config)) *Loader {
	l.overrides = append(l.overrides, fn)
	return l
}

// Load loads configuration from all sources and merges them
func (l *Loader) Load() (*Config, error) {
	if l.precedence.DotEnv != "" {
		// variables already set win over the file
		if err := godotenv.Load(l.precedence.DotEnv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", l.precedence.DotEnv, err)
		}
	}

	config := DefaultConfig()

	sources := []struct {
		path     string
		source   ConfigSource
		required bool
	}{
		{l.precedence.UserConfig, SourceUser, false},
		{l.precedence.ProjectConfig, SourceProject, false},
		{l.precedence.ExplicitConfig, SourceExplicit, true},
	}

	for _, src := range sources {
		if src.path == "" {
			continue
		}

		cfg, err := l.LoadFile(src.path)
		switch {
		case err == nil:
			config = l.mergeConfigs(config, cfg)
		case errors.Is(err, fs.ErrNotExist) && !src.required:
		default:
			return nil, fmt.Errorf("failed to load %s config from %s: %w", src.source, src.path, err)
		}
	}

	if l.precedence.EnvironmentPrefix != "" {
		if err := l.applyEnvironmentOverrides(config); err != nil {
			return nil, err
		}
	}

	for _, fn := range l.overrides {
		fn(config)
	}

	if err := l.validator.Validate(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// LoadFile loads a single configuration file
func (l *Loader) LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return &config, nil
}

// SaveFile saves configuration to a file
func (l *Loader) SaveFile(config *Config, path string) error {
	if err := l.validator.Validate(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// the file may hold an API key
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// mergeConfigs merges two configurations with the second taking precedence
func (l *Loader) mergeConfigs(base, override *Config) *Config {
	result := *base

	if override.Version != "" {
		result.Version = override.Version
	}

	// Merge API config
	if override.API.Provider != "" {
		result.API.Provider = override.API.Provider
	}
	if override.API.BaseURL != "" {
		result.API.BaseURL = override.API.BaseURL
	}
	if override.API.APIKey != "" {
		result.API.APIKey = override.API.APIKey
	}
	if override.API.Timeout != 0 {
		result.API.Timeout = override.API.Timeout
	}
	if override.API.RetryCount != 0 {
		result.API.RetryCount = override.API.RetryCount
	}

	result.Agent = l.mergeAgentConfig(result.Agent, override.Agent)

	// Merge Storage config
	if override.Storage.DatabasePath != "" {
		result.Storage.DatabasePath = override.Storage.DatabasePath
	}
	if override.Storage.BookRoot != "" {
		result.Storage.BookRoot = override.Storage.BookRoot
	}

	if override.LogLevel != "" {
		result.LogLevel = override.LogLevel
	}

	return &result
}

// mergeAgentConfig merges agent configurations
func (l *Loader) mergeAgentConfig(base, override AgentConfig) AgentConfig {
	result := base

	if override.Model != "" {
		result.Model = override.Model
	}
	if override.TokenBudget != 0 {
		result.TokenBudget = override.TokenBudget
	}
	if override.Stream != nil {
		stream := *override.Stream
		result.Stream = &stream
	}
	if override.MaxRounds != 0 {
		result.MaxRounds = override.MaxRounds
	}
	if override.EventBuffer != 0 {
		result.EventBuffer = override.EventBuffer
	}
	if override.CacheSize != 0 {
		result.CacheSize = override.CacheSize
	}
	if override.MaxParallelTools != 0 {
		result.MaxParallelTools = override.MaxParallelTools
	}

	return result
}

// applyEnvironmentOverrides applies environment variable overrides to config
func (l *Loader) applyEnvironmentOverrides(config *Config) error {
	prefix := l.precedence.EnvironmentPrefix

	if provider := os.Getenv(prefix + "_PROVIDER"); provider != "" {
		config.API.Provider = provider
	}

	if apiKey := os.Getenv(prefix + "_API_KEY"); apiKey != "" {
		config.API.APIKey = apiKey
	}
	// provider specific variables for compatibility
	if config.API.APIKey == "" {
		envVar := "OPENROUTER_API_KEY"
		if config.API.Provider == "openai" {
			envVar = "OPENAI_API_KEY"
		}
		config.API.APIKey = os.Getenv(envVar)
	}

	if model := os.Getenv(prefix + "_MODEL"); model != "" {
		config.Agent.Model = model
	}

	if baseURL := os.Getenv(prefix + "_BASE_URL"); baseURL != "" {
		config.API.BaseURL = baseURL
	}

	if budget := os.Getenv(prefix + "_TOKEN_BUDGET"); budget != "" {
		n, err := strconv.Atoi(budget)
		if err != nil {
			return fmt.Errorf("invalid %s_TOKEN_BUDGET %q: %w", prefix, budget, err)
		}
		config.Agent.TokenBudget = n
	}

	if dbPath := os.Getenv(prefix + "_DATABASE"); dbPath != "" {
		config.Storage.DatabasePath = dbPath
	}

	return nil
}

// GetConfigPaths returns the configuration file paths to check
func GetConfigPaths() ConfigPrecedence {
	return ConfigPrecedence{
		UserConfig:        filepath.Join(xdg.ConfigHome, "booktutor", "config.json"),
		ProjectConfig:     filepath.Join(".booktutor", "config.json"),
		EnvironmentPrefix: "BOOKTUTOR",
		DotEnv:            ".env",
	}
}
