// Package theme holds the terminal colors used by the console output.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme represents a color theme
type Theme struct {
	Primary   lipgloss.Color
	Text      lipgloss.Color
	TextMuted lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
}

var CurrentTheme = Theme{
	Primary:   lipgloss.Color("#7aa2f7"),
	Text:      lipgloss.Color("#c0caf5"),
	TextMuted: lipgloss.Color("#808080"),
	Warning:   lipgloss.Color("#e0af68"),
	Error:     lipgloss.Color("#f7768e"),
}

// SetTheme sets the current theme
func SetTheme(t Theme) {
	CurrentTheme = t
}

// Styles are the lipgloss styles derived from a theme.
type Styles struct {
	Tool    lipgloss.Style
	Muted   lipgloss.Style
	Refusal lipgloss.Style
	Error   lipgloss.Style
}

// NewStyles builds the styles of t.
func NewStyles(t Theme) Styles {
	return Styles{
		Tool:    lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(t.TextMuted),
		Refusal: lipgloss.NewStyle().Foreground(t.Warning).Italic(true),
		Error:   lipgloss.NewStyle().Foreground(t.Error),
	}
}
