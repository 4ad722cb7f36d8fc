package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/elee1766/booktutor/src/aisdk"
)

// ModelsCmd lists the models of the configured provider
type ModelsCmd struct {
	Format string `help:"Output format (table, json)" default:"table"`
	Search string `help:"Only list models whose id or name contains this text"`
}

func (c *ModelsCmd) Run(ctx *kong.Context, cli *CLI) error {
	if err := checkFormat(c.Format); err != nil {
		return err
	}
	bg := context.Background()
	a, _, err := cli.newApp(bg)
	if err != nil {
		return err
	}
	defer a.Close()

	models, err := a.Models(bg)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	models = aisdk.FilterModels(models, c.Search)
	if c.Format == "json" {
		return printJSON(models)
	}

	w := newTable(os.Stdout)
	fmt.Fprintln(w, "ID\tNAME\tCONTEXT\tIMAGES")
	for _, m := range models {
		contextLen := "-"
		if m.ContextLength > 0 {
			contextLen = fmt.Sprintf("%d", m.ContextLength)
		}
		images := "no"
		if m.AcceptsImages() {
			images = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.ID, m.Name, contextLen, images)
	}
	return w.Flush()
}
