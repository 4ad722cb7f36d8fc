package main

import (
	"context"
	"log/slog"

	"github.com/alecthomas/kong"

	"github.com/elee1766/booktutor/src/app"
	"github.com/elee1766/booktutor/src/config"
)

// CLI represents the main CLI structure
type CLI struct {
	Config      string `help:"Path to a config file" type:"path"`
	LogLevel    string `help:"Log level (debug, info, warn, error)"`
	APIKey      string `help:"API key of the model provider"`
	Provider    string `help:"Model provider (openrouter, openai)"`
	BaseURL     string `help:"Custom API base URL"`
	Model       string `help:"Model id"`
	Database    string `help:"Database path"`
	BookRoot    string `help:"Directory relative book paths are resolved against"`
	TokenBudget int    `help:"Token budget of every request"`

	Chat     ChatCmd     `cmd:"" help:"Talk to the tutor about a book"`
	Student  StudentCmd  `cmd:"" help:"Manage students"`
	Book     BookCmd     `cmd:"" help:"Manage books"`
	Progress ProgressCmd `cmd:"" help:"Show the progress of a student in a book"`
	History  HistoryCmd  `cmd:"" help:"Show a stored conversation"`
	Reset    ResetCmd    `cmd:"" help:"Delete a conversation and its progress"`
	Models   ModelsCmd   `cmd:"" help:"List the models of the provider"`
	Migrate  MigrateCmd  `cmd:"" help:"Database migrations"`
}

// loadConfig merges the config sources with the global flags.
func (cli *CLI) loadConfig() (*config.Config, error) {
	paths := config.GetConfigPaths()
	paths.ExplicitConfig = cli.Config
	return config.NewLoader(paths).WithOverrides(cli.applyFlags).Load()
}

func (cli *CLI) applyFlags(cfg *config.Config) {
	if cli.LogLevel != "" {
		cfg.LogLevel = cli.LogLevel
	}
	if cli.APIKey != "" {
		cfg.API.APIKey = cli.APIKey
	}
	if cli.Provider != "" {
		cfg.API.Provider = cli.Provider
	}
	if cli.BaseURL != "" {
		cfg.API.BaseURL = cli.BaseURL
	}
	if cli.Model != "" {
		cfg.Agent.Model = cli.Model
	}
	if cli.Database != "" {
		cfg.Storage.DatabasePath = cli.Database
	}
	if cli.BookRoot != "" {
		cfg.Storage.BookRoot = cli.BookRoot
	}
	if cli.TokenBudget != 0 {
		cfg.Agent.TokenBudget = cli.TokenBudget
	}
}

// newApp loads the configuration and builds the application.
func (cli *CLI) newApp(ctx context.Context) (*app.App, *slog.Logger, error) {
	cfg, err := cli.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := createCLILogger(cfg.LogLevel)
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return a, logger, nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("booktutor"),
		kong.Description("A tutor that teaches you a book, one chapter at a time"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	if err := ctx.Run(&cli); err != nil {
		NewErrorHandler(createCLILogger(cli.LogLevel)).HandleError(err)
	}
}
