package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/elee1766/booktutor/src/aisdk"
	"github.com/elee1766/booktutor/src/app"
	"github.com/elee1766/booktutor/src/executor"
)

// ChatCmd talks to the tutor, one turn per line of input
type ChatCmd struct {
	ConversationFlags
	SSE         bool `help:"Write events as server-sent events instead of text"`
	ShowArgs    bool `help:"Show the arguments of tool calls"`
	ShowResults bool `help:"Show a preview of tool results"`
	NoColor     bool `help:"Do not highlight tool arguments"`
}

func (c *ChatCmd) Run(ctx *kong.Context, cli *CLI) error {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, logger, err := cli.newApp(runCtx)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Debug("starting chat", "student", c.Student, "book", c.Book)
	if !c.SSE {
		fmt.Fprintln(os.Stderr, "Type a message and press enter. /image <file> [text] sends a picture, /quit leaves.")
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		if !c.SSE {
			fmt.Fprint(os.Stderr, "> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}

		msg, err := c.parseLine(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			continue
		}
		if err := c.turn(runCtx, a, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			return fmt.Errorf("turn failed: %w", err)
		}
	}
	return scanner.Err()
}

// parseLine turns a line of input into a user message.
func (c *ChatCmd) parseLine(line string) (*aisdk.Message, error) {
	rest, ok := strings.CutPrefix(line, "/image ")
	if !ok {
		return aisdk.NewUserMessage(line), nil
	}
	path, text, _ := strings.Cut(strings.TrimSpace(rest), " ")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%s is not an image (%s)", path, mimeType)
	}
	parts := []aisdk.ContentPart{aisdk.NewImagePartFromBytes(data, mimeType)}
	if text = strings.TrimSpace(text); text != "" {
		parts = append(parts, aisdk.NewTextPart(text))
	}
	return &aisdk.Message{Role: aisdk.RoleUser, Parts: parts}, nil
}

func (c *ChatCmd) turn(ctx context.Context, a *app.App, msg *aisdk.Message) error {
	sink := a.NewEventSink(c.processor(os.Stdout))
	err := a.Tutors.InputMessage(ctx, c.Student, c.Book, msg, sink)
	if cerr := sink.Close(); err == nil {
		err = cerr
	}
	return err
}

func (c *ChatCmd) processor(w io.Writer) executor.EventProcessor {
	if c.SSE {
		return executor.NewSSEEventProcessor(w)
	}
	return executor.NewConsoleEventProcessor(executor.ConsoleProcessorConfig{
		Output:            w,
		ShowToolArguments: c.ShowArgs,
		ShowToolResults:   c.ShowResults,
		Highlight:         !c.NoColor,
	})
}
