package executor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/x/ansi"

	"github.com/elee1766/booktutor/src/theme"
)

// ConsoleProcessorConfig configures the console event processor
type ConsoleProcessorConfig struct {
	Output            io.Writer
	ShowToolArguments bool
	ShowToolResults   bool
	Highlight         bool
	MaxResultPreview  int // Max display width of a tool result preview
}

// ConsoleEventProcessor prints events for a person at a terminal. Content is
// written as it streams, tool traffic is styled and kept short.
type ConsoleEventProcessor struct {
	config ConsoleProcessorConfig
	styles theme.Styles

	// midLine is true while streamed content has not ended with a newline.
	midLine bool
}

// NewConsoleEventProcessor creates a new console event processor
func NewConsoleEventProcessor(config ConsoleProcessorConfig) *ConsoleEventProcessor {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.MaxResultPreview == 0 {
		config.MaxResultPreview = 200
	}
	return &ConsoleEventProcessor{
		config: config,
		styles: theme.NewStyles(theme.CurrentTheme),
	}
}

// Process handles a single event
func (p *ConsoleEventProcessor) Process(event ConversationEvent) error {
	switch e := event.(type) {
	case *ContentEvent:
		if e.Content == "" {
			return nil
		}
		p.midLine = !strings.HasSuffix(e.Content, "\n")
		_, err := io.WriteString(p.config.Output, e.Content)
		return err
	case *RefusalEvent:
		return p.line(p.styles.Refusal.Render(e.Refusal))
	case *ToolCallEvent:
		return p.processToolCall(e)
	case *ToolResultEvent:
		return p.processToolResult(e)
	}
	return nil
}

// Close ends a dangling line of streamed content.
func (p *ConsoleEventProcessor) Close() error {
	if p.midLine {
		p.midLine = false
		_, err := fmt.Fprintln(p.config.Output)
		return err
	}
	return nil
}

func (p *ConsoleEventProcessor) line(s string) error {
	prefix := ""
	if p.midLine {
		prefix = "\n"
		p.midLine = false
	}
	_, err := fmt.Fprintf(p.config.Output, "%s%s\n", prefix, s)
	return err
}

func (p *ConsoleEventProcessor) processToolCall(e *ToolCallEvent) error {
	if err := p.line(p.styles.Tool.Render("→ " + e.ToolCall.Function.Name)); err != nil {
		return err
	}
	if !p.config.ShowToolArguments || e.ToolCall.Function.Arguments == "" {
		return nil
	}
	return p.line(indent(p.formatArguments(e.ToolCall.Function.Arguments), "  "))
}

// formatArguments pretty prints JSON arguments and highlights them when
// enabled. Invalid JSON is shown as is.
func (p *ConsoleEventProcessor) formatArguments(args string) string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, []byte(args), "", "  "); err != nil {
		return args
	}
	if !p.config.Highlight {
		return pretty.String()
	}
	var out bytes.Buffer
	if err := quick.Highlight(&out, pretty.String(), "json", "terminal256", "monokai"); err != nil {
		return pretty.String()
	}
	return strings.TrimRight(out.String(), "\n")
}

func (p *ConsoleEventProcessor) processToolResult(e *ToolResultEvent) error {
	if !p.config.ShowToolResults {
		return nil
	}
	preview := strings.Join(strings.Fields(e.Content), " ")
	preview = ansi.Truncate(preview, p.config.MaxResultPreview, "…")
	return p.line(p.styles.Muted.Render("  ← " + preview))
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}
