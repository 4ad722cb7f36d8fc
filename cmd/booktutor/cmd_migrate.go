package main

import (
	"context"
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/elee1766/booktutor/src/storage"
)

// MigrateCmd handles database migrations
type MigrateCmd struct {
	Up     MigrateUpCmd     `cmd:"" help:"Apply pending migrations"`
	Status MigrateStatusCmd `cmd:"" help:"Show the schema version"`
}

// MigrateUpCmd applies pending migrations
type MigrateUpCmd struct{}

func (c *MigrateUpCmd) Run(ctx *kong.Context, cli *CLI) error {
	a, logger, err := cli.newApp(context.Background())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer a.Close()

	logger.Info("database is up to date", "path", a.DB.Path(), "version", storage.LatestVersion())
	return nil
}

// MigrateStatusCmd shows the schema version
type MigrateStatusCmd struct{}

func (c *MigrateStatusCmd) Run(ctx *kong.Context, cli *CLI) error {
	bg := context.Background()
	a, _, err := cli.newApp(bg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer a.Close()

	version, err := a.DB.Version(bg)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	fmt.Printf("%s: version %d of %d\n", a.DB.Path(), version, storage.LatestVersion())
	return nil
}
