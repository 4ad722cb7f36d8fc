package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv unsets every variable the loader reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"BOOKTUTOR_PROVIDER", "BOOKTUTOR_API_KEY", "BOOKTUTOR_MODEL", "BOOKTUTOR_BASE_URL",
		"BOOKTUTOR_TOKEN_BUDGET", "BOOKTUTOR_DATABASE", "OPENAI_API_KEY", "OPENROUTER_API_KEY",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Version != "1.0" {
		t.Errorf("Expected version 1.0, got %s", config.Version)
	}
	if config.API.Provider != "openrouter" {
		t.Errorf("Expected provider openrouter, got %s", config.API.Provider)
	}
	if config.Agent.TokenBudget != DefaultTokenBudget {
		t.Errorf("Expected token budget %d, got %d", DefaultTokenBudget, config.Agent.TokenBudget)
	}
	if !config.Agent.Streaming() {
		t.Error("Expected streaming by default")
	}
	if filepath.Base(config.Storage.DatabasePath) != "booktutor.db" {
		t.Errorf("Unexpected database path %s", config.Storage.DatabasePath)
	}
	if err := NewValidator().Validate(config); err != nil {
		t.Errorf("Default config is invalid: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantErr   bool
		wantField string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:      "unknown provider",
			mutate:    func(c *Config) { c.API.Provider = "anthropic" },
			wantErr:   true,
			wantField: "Config.API.Provider",
		},
		{
			name:      "token budget too small",
			mutate:    func(c *Config) { c.Agent.TokenBudget = 10 },
			wantErr:   true,
			wantField: "Config.Agent.TokenBudget",
		},
		{
			name:      "missing model",
			mutate:    func(c *Config) { c.Agent.Model = "" },
			wantErr:   true,
			wantField: "Config.Agent.Model",
		},
		{
			name:      "bad base url",
			mutate:    func(c *Config) { c.API.BaseURL = "not a url" },
			wantErr:   true,
			wantField: "Config.API.BaseURL",
		},
		{
			name:      "bad log level",
			mutate:    func(c *Config) { c.LogLevel = "verbose" },
			wantErr:   true,
			wantField: "Config.LogLevel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := validator.Validate(config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %T", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Expected field %s, got %s", tt.wantField, verr.Field)
			}
		})
	}
}

func TestConfigSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	loader := NewLoader(ConfigPrecedence{})

	config := DefaultConfig()
	config.API.Timeout = Duration(10 * time.Second)
	stream := false
	config.Agent.Stream = &stream

	if err := loader.SaveFile(config, path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := loader.LoadFile(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if loaded.API.Timeout.Std() != 10*time.Second {
		t.Errorf("Expected timeout 10s, got %v", loaded.API.Timeout.Std())
	}
	if loaded.Agent.Streaming() {
		t.Error("Expected streaming to stay disabled")
	}
}

func TestDurationJSON(t *testing.T) {
	var d Duration
	if err := d.UnmarshalJSON([]byte(`"1m30s"`)); err != nil {
		t.Fatal(err)
	}
	if d.Std() != 90*time.Second {
		t.Errorf("Expected 90s, got %v", d.Std())
	}
	if err := d.UnmarshalJSON([]byte(`1000000000`)); err != nil {
		t.Fatal(err)
	}
	if d.Std() != time.Second {
		t.Errorf("Expected 1s, got %v", d.Std())
	}
	if err := d.UnmarshalJSON([]byte(`"soon"`)); err == nil {
		t.Error("Expected an error for an invalid duration")
	}
}

func TestLoaderPrecedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	user := filepath.Join(dir, "user", "config.json")
	project := filepath.Join(dir, "project", "config.json")
	explicit := filepath.Join(dir, "explicit.json")

	writeFile(t, user, `{"api":{"provider":"openai","retry_count":5},"agent":{"model":"user-model","token_budget":8000}}`)
	writeFile(t, project, `{"agent":{"model":"project-model","stream":false}}`)
	writeFile(t, explicit, `{"agent":{"max_rounds":4}}`)

	t.Setenv("BOOKTUTOR_TOKEN_BUDGET", "12000")
	t.Setenv("OPENAI_API_KEY", "sk-openai")

	config, err := NewLoader(ConfigPrecedence{
		UserConfig:        user,
		ProjectConfig:     project,
		ExplicitConfig:    explicit,
		EnvironmentPrefix: "BOOKTUTOR",
	}).WithOverrides(func(c *Config) {
		c.LogLevel = "debug"
	}).Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"provider from user", config.API.Provider, "openai"},
		{"retry count from user", config.API.RetryCount, 5},
		{"model from project", config.Agent.Model, "project-model"},
		{"stream from project", config.Agent.Streaming(), false},
		{"max rounds from explicit", config.Agent.MaxRounds, 4},
		{"token budget from env", config.Agent.TokenBudget, 12000},
		{"api key fallback", config.API.APIKey, "sk-openai"},
		{"log level from overrides", config.LogLevel, "debug"},
		{"cache size default", config.Agent.CacheSize, DefaultCacheSize},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoaderMissingFiles(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	_, err := NewLoader(ConfigPrecedence{
		UserConfig:    filepath.Join(dir, "missing.json"),
		ProjectConfig: filepath.Join(dir, "missing-too.json"),
	}).Load()
	if err != nil {
		t.Fatalf("Missing optional files must be ignored: %v", err)
	}

	_, err = NewLoader(ConfigPrecedence{ExplicitConfig: filepath.Join(dir, "missing.json")}).Load()
	if err == nil {
		t.Fatal("Expected an error for a missing explicit config")
	}

	broken := filepath.Join(dir, "broken.json")
	writeFile(t, broken, `{"agent":`)
	_, err = NewLoader(ConfigPrecedence{UserConfig: broken}).Load()
	if err == nil {
		t.Fatal("Expected an error for a malformed config")
	}
}

func TestLoaderDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	writeFile(t, dotenv, "BOOKTUTOR_API_KEY=from-dotenv\nBOOKTUTOR_MODEL=dotenv-model\n")

	// variables already set win over the file
	t.Setenv("BOOKTUTOR_MODEL", "env-model")

	config, err := NewLoader(ConfigPrecedence{
		EnvironmentPrefix: "BOOKTUTOR",
		DotEnv:            dotenv,
	}).Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	// godotenv sets the variable for the whole process
	t.Cleanup(func() { os.Unsetenv("BOOKTUTOR_API_KEY") })

	if config.API.APIKey != "from-dotenv" {
		t.Errorf("Expected api key from .env, got %q", config.API.APIKey)
	}
	if config.Agent.Model != "env-model" {
		t.Errorf("Expected model from environment, got %q", config.Agent.Model)
	}
}

func TestLoaderInvalidEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOOKTUTOR_TOKEN_BUDGET", "lots")

	_, err := NewLoader(ConfigPrecedence{EnvironmentPrefix: "BOOKTUTOR"}).Load()
	if err == nil {
		t.Fatal("Expected an error for a non numeric token budget")
	}
}
