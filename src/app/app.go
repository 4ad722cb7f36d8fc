// Package app builds the tutoring service from its configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/elee1766/booktutor/src/aisdk"
	"github.com/elee1766/booktutor/src/book"
	"github.com/elee1766/booktutor/src/config"
	"github.com/elee1766/booktutor/src/executor"
	"github.com/elee1766/booktutor/src/oaiclient"
	"github.com/elee1766/booktutor/src/orclient"
	"github.com/elee1766/booktutor/src/storage"
)

// App represents the main application with all services
type App struct {
	Config  *config.Config
	DB      *storage.DB
	Library *book.Library
	Tutors  *executor.Manager
	Logger  *slog.Logger

	mu       sync.Mutex
	provider aisdk.Provider
	model    aisdk.ModelClient
}

// Option changes how New builds the app.
type Option func(*options)

type options struct {
	fs       afero.Fs
	provider aisdk.Provider
}

// WithFs reads books from fsys instead of the OS filesystem.
func WithFs(fsys afero.Fs) Option {
	return func(o *options) { o.fs = fsys }
}

// WithProvider uses provider instead of the one named by the configuration.
func WithProvider(provider aisdk.Provider) Option {
	return func(o *options) { o.provider = provider }
}

// New opens the database and wires the library and the tutor cache. The
// model provider is created on first use.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	o := options{fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(&o)
	}

	dbPath := cfg.Storage.DatabasePath
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	a := &App{
		Config:   cfg,
		DB:       db,
		Logger:   logger,
		provider: o.provider,
	}
	a.Library = book.NewLibrary(o.fs, cfg.Storage.BookRoot, storage.NewCatalog(db.DB()), logger)
	a.Tutors = executor.NewManager(&backend{app: a}, cfg.Agent.CacheSize, logger)

	logger.Debug("app initialized", "database", dbPath, "book_root", cfg.Storage.BookRoot, "provider", cfg.API.Provider)
	return a, nil
}

// NewProvider creates the model provider named by cfg.
func NewProvider(cfg config.APIConfig, logger *slog.Logger) (aisdk.Provider, error) {
	switch cfg.Provider {
	case "", orclient.ProviderName:
		if cfg.APIKey == "" {
			return nil, orclient.ErrNoAPIKey
		}
		return orclient.NewClient(orclient.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Timeout:    cfg.Timeout.Std(),
			RetryCount: cfg.RetryCount,
			SiteName:   "booktutor",
			Logger:     logger,
		}), nil
	case oaiclient.ProviderName:
		return oaiclient.NewClient(oaiclient.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Timeout:    cfg.Timeout.Std(),
			RetryCount: cfg.RetryCount,
			Logger:     logger,
		})
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// Provider returns the model provider, creating it on first use.
func (a *App) Provider() (aisdk.Provider, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.provider != nil {
		return a.provider, nil
	}
	provider, err := NewProvider(a.Config.API, a.Logger)
	if err != nil {
		return nil, err
	}
	a.provider = provider
	return provider, nil
}

// Model returns the client of the configured model.
func (a *App) Model(ctx context.Context) (aisdk.ModelClient, error) {
	provider, err := a.Provider()
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.model != nil {
		return a.model, nil
	}
	model, err := provider.Model(ctx, a.Config.Agent.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to get model %s: %w", a.Config.Agent.Model, err)
	}
	a.Logger.Debug("resolved model", "provider", provider.Name(), "model", model.GetModelInfo().ID)
	a.model = model
	return model, nil
}

// NewEventSink returns a sink feeding processors, sized by the config.
func (a *App) NewEventSink(processors ...executor.EventProcessor) *executor.ChannelEventSink {
	return executor.NewChannelEventSink(a.Config.Agent.EventBuffer, a.Logger, processors...)
}

// Close closes all resources held by the app
func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
