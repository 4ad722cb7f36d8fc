package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config represents the complete configuration for booktutor
type Config struct {
	// Version of the configuration format
	Version string `json:"version"`

	// API configuration
	API APIConfig `json:"api"`

	// Agent configuration
	Agent AgentConfig `json:"agent"`

	// Storage configuration
	Storage StorageConfig `json:"storage"`

	// LogLevel is the minimum log level (debug, info, warn, error)
	LogLevel string `json:"log_level,omitempty" validate:"log_level"`
}

// APIConfig holds API-related configuration
type APIConfig struct {
	// Provider specifies the model provider, "openrouter" or "openai"
	Provider string `json:"provider" validate:"provider"`

	// BaseURL overrides the default API endpoint
	BaseURL string `json:"base_url,omitempty" validate:"omitempty,url"`

	// APIKey for authentication (can be omitted if using env vars)
	APIKey string `json:"api_key,omitempty"`

	// Timeout for non-streaming API requests
	Timeout Duration `json:"timeout,omitempty" validate:"min=0"`

	// RetryCount is how often a failed request is retried
	RetryCount int `json:"retry_count,omitempty" validate:"min=0,max=10"`
}

// AgentConfig holds the settings of the tutoring loop
type AgentConfig struct {
	// Model is the provider model id, e.g. "openai/gpt-4o-mini"
	Model string `json:"model" validate:"required"`

	// TokenBudget bounds the estimated size of every request
	TokenBudget int `json:"token_budget,omitempty" validate:"min=64"`

	// Stream selects streaming completions; nil means the default
	Stream *bool `json:"stream,omitempty"`

	// MaxRounds bounds the model requests of one turn, 0 means unlimited
	MaxRounds int `json:"max_rounds,omitempty" validate:"min=0"`

	// EventBuffer is the capacity of the event channel
	EventBuffer int `json:"event_buffer,omitempty" validate:"min=0"`

	// CacheSize is the number of conversations kept in memory
	CacheSize int `json:"cache_size,omitempty" validate:"min=0"`

	// MaxParallelTools bounds concurrent tool calls, 0 means unbounded
	MaxParallelTools int `json:"max_parallel_tools,omitempty" validate:"min=0"`
}

// Streaming reports whether completions are streamed.
func (a AgentConfig) Streaming() bool {
	return a.Stream == nil || *a.Stream
}

// StorageConfig holds storage paths
type StorageConfig struct {
	// DatabasePath is the sqlite database file
	DatabasePath string `json:"database_path,omitempty"`

	// BookRoot is the directory relative book paths are resolved against
	BookRoot string `json:"book_root,omitempty"`
}

// ConfigPrecedence defines the order of configuration sources
type ConfigPrecedence struct {
	// UserConfig path
	UserConfig string

	// ProjectConfig path
	ProjectConfig string

	// ExplicitConfig is a path given on the command line
	ExplicitConfig string

	// EnvironmentPrefix for environment variables
	EnvironmentPrefix string

	// DotEnv is a .env file loaded into the environment first
	DotEnv string
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConfigSource indicates where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceUser        ConfigSource = "user"
	SourceProject     ConfigSource = "project"
	SourceExplicit    ConfigSource = "explicit"
	SourceEnvironment ConfigSource = "environment"
	SourceCLI         ConfigSource = "cli"
)

// Duration is a time.Duration written as "30s" in JSON. Plain numbers are
// read as nanoseconds.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration %v", v)
	}
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
