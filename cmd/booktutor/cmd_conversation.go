package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/x/ansi"

	"github.com/elee1766/booktutor/src/progress"
)

// ConversationFlags select the conversation of a student about a book
type ConversationFlags struct {
	Student string `required:"" short:"s" help:"Student id"`
	Book    string `required:"" short:"b" help:"Book id"`
}

// ProgressCmd shows the progress of a student in a book
type ProgressCmd struct {
	ConversationFlags
	Format string `help:"Output format (table, json)" default:"table"`
}

func (c *ProgressCmd) Run(ctx *kong.Context, cli *CLI) error {
	if err := checkFormat(c.Format); err != nil {
		return err
	}
	bg := context.Background()
	a, _, err := cli.newApp(bg)
	if err != nil {
		return err
	}
	defer a.Close()

	bp, err := a.Progress(bg, c.Student, c.Book)
	if err != nil {
		return fmt.Errorf("failed to load progress: %w", err)
	}
	if c.Format == "json" {
		return printJSON(bp)
	}
	printProgress(bp)
	return nil
}

func printProgress(bp *progress.BookProgress) {
	current := string(bp.CurrentLearningChapter)
	if current == "" {
		current = "-"
	}
	fmt.Printf("Current chapter: %s\n\n", current)

	w := newTable(os.Stdout)
	fmt.Fprintln(w, "CHAPTER\tSTATUS\tOBJECTIVES\tUPDATED")
	for _, cp := range bp.ChapterProgress {
		done := 0
		for _, o := range cp.Objectives {
			if o.Completed {
				done++
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\n", cp.ChapterNumber, cp.Status, done, len(cp.Objectives), cp.UpdateTime.Format("2006-01-02 15:04"))
	}
	w.Flush()

	if len(bp.Memories) > 0 {
		fmt.Println("\nMemories:")
		for _, m := range bp.Memories {
			fmt.Printf("  - %s\n", m)
		}
	}
}

// HistoryCmd shows a stored conversation
type HistoryCmd struct {
	ConversationFlags
	Format string `help:"Output format (table, json)" default:"table"`
	Width  int    `help:"Width tool results are cut to" default:"120"`
}

func (c *HistoryCmd) Run(ctx *kong.Context, cli *CLI) error {
	if err := checkFormat(c.Format); err != nil {
		return err
	}
	bg := context.Background()
	a, _, err := cli.newApp(bg)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.Tutors.History(bg, c.Student, c.Book)
	if err != nil {
		return err
	}
	if c.Format == "json" {
		return printJSON(entries)
	}

	for _, e := range entries {
		switch {
		case e.Role == "tool":
			fmt.Printf("[tool %s] %s\n", e.ToolCallID, ansi.Truncate(strings.ReplaceAll(e.Content, "\n", " "), c.Width, "…"))
		case e.Refusal != "":
			fmt.Printf("[%s refused] %s\n", e.Role, e.Refusal)
		default:
			fmt.Printf("[%s] %s\n", e.Role, e.Text)
			if len(e.Tools) > 0 {
				fmt.Printf("  calls: %s\n", strings.Join(e.Tools, ", "))
			}
		}
	}
	return nil
}

// ResetCmd deletes a conversation and the progress recorded in it
type ResetCmd struct {
	ConversationFlags
	Yes bool `short:"y" help:"Do not ask for confirmation"`
}

func (c *ResetCmd) Run(ctx *kong.Context, cli *CLI) error {
	if !c.Yes {
		return fmt.Errorf("reset deletes the conversation and its progress, pass --yes to confirm")
	}
	bg := context.Background()
	a, _, err := cli.newApp(bg)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Tutors.DeleteConversation(bg, c.Student, c.Book)
}
