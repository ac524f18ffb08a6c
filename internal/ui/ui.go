// Package ui renders CLI output: status colors, emphasis, and TTY
// detection. Color is applied only on a real terminal with a color
// profile; pipes and NO_COLOR get plain text.
package ui

import (
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	goodStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	accentStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Faint(true)
)

var (
	colorOnce sync.Once
	colored   bool
)

// IsTTY reports whether stdout is an interactive terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func colorEnabled() bool {
	colorOnce.Do(func() {
		colored = IsTTY() && termenv.EnvColorProfile() != termenv.Ascii
	})
	return colored
}

func render(style lipgloss.Style, s string) string {
	if !colorEnabled() {
		return s
	}
	return style.Render(s)
}

// Good renders a healthy status (green).
func Good(s string) string { return render(goodStyle, s) }

// Warn renders a needs-attention status (amber).
func Warn(s string) string { return render(warnStyle, s) }

// Bad renders a failure (red, bold).
func Bad(s string) string { return render(badStyle, s) }

// Accent renders emphasized text (bold).
func Accent(s string) string { return render(accentStyle, s) }

// Muted renders de-emphasized text (faint).
func Muted(s string) string { return render(mutedStyle, s) }
