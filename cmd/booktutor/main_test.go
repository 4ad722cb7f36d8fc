package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elee1766/booktutor/src/aisdk"
	"github.com/elee1766/booktutor/src/book"
	"github.com/elee1766/booktutor/src/config"
	"github.com/elee1766/booktutor/src/executor"
	"github.com/elee1766/booktutor/src/orclient"
	"github.com/elee1766/booktutor/src/storage"
	"github.com/elee1766/booktutor/src/window"
)

func parse(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("booktutor"), kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)
	return &cli, kctx
}

func TestParseCommands(t *testing.T) {
	cli, kctx := parse(t, "--model", "openai/gpt-4o", "chat", "-s", "stu", "-b", "bk", "--sse")
	assert.Equal(t, "chat", kctx.Command())
	assert.Equal(t, "stu", cli.Chat.Student)
	assert.Equal(t, "bk", cli.Chat.Book)
	assert.True(t, cli.Chat.SSE)

	_, kctx = parse(t, "book", "add", "grammar")
	assert.Equal(t, "book add <dir>", kctx.Command())

	cli, kctx = parse(t, "reset", "--student", "stu", "--book", "bk", "-y")
	assert.Equal(t, "reset", kctx.Command())
	assert.True(t, cli.Reset.Yes)
}

func TestApplyFlags(t *testing.T) {
	cfg := config.DefaultConfig()
	cli := &CLI{Model: "openai/gpt-4o", Provider: "openai", TokenBudget: 4000, Database: "/tmp/x.db"}
	cli.applyFlags(cfg)

	assert.Equal(t, "openai/gpt-4o", cfg.Agent.Model)
	assert.Equal(t, "openai", cfg.API.Provider)
	assert.Equal(t, 4000, cfg.Agent.TokenBudget)
	assert.Equal(t, "/tmp/x.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{errors.New("boom"), ExitError},
		{config.ValidationError{Field: "Config.Agent.Model", Message: "is required"}, ExitConfig},
		{fmt.Errorf("load: %w", orclient.ErrNoAPIKey), ExitAuth},
		{&orclient.APIError{StatusCode: 401, Message: "bad key"}, ExitAuth},
		{fmt.Errorf("build: %w", window.ErrContextTooLarge), ExitBudget},
		{fmt.Errorf("turn: %w", executor.ErrImagesUnsupported), ExitUsage},
		{fmt.Errorf("turn: %w", storage.ErrStudentNotFound), ExitNotFound},
		{book.ErrChapterNotFound, ExitNotFound},
		{fmt.Errorf("turn: %w", context.Canceled), ExitInterrupted},
		{context.DeadlineExceeded, ExitTimeout},
		{&orclient.APIError{StatusCode: 503, Message: "down"}, ExitNetwork},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), "%v", tt.err)
	}
}

func TestParseLine(t *testing.T) {
	c := &ChatCmd{}

	msg, err := c.parseLine("what is a noun?")
	require.NoError(t, err)
	assert.Equal(t, aisdk.RoleUser, msg.Role)
	assert.Equal(t, "what is a noun?", msg.Content)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	path := filepath.Join(t.TempDir(), "page.png")
	require.NoError(t, os.WriteFile(path, png, 0o600))

	msg, err = c.parseLine("/image " + path + " what does this say?")
	require.NoError(t, err)
	require.Len(t, msg.Parts, 2)
	assert.True(t, msg.HasImages())
	assert.Contains(t, msg.Parts[0].ImageURL.URL, "data:image/png;base64,")
	assert.Equal(t, "what does this say?", msg.Text())

	text := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte("plain notes"), 0o600))
	_, err = c.parseLine("/image " + text)
	assert.Error(t, err)

	_, err = c.parseLine("/image /does/not/exist.png")
	assert.Error(t, err)
}
