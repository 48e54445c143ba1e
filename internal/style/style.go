// Package style holds bullhorn's terminal output styling: the shared
// lipgloss palette and a fixed-width table renderer for command listings.
package style

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Color palette
var (
	colorGood   = lipgloss.Color("76")  // green
	colorWarn   = lipgloss.Color("214") // orange
	colorBad    = lipgloss.Color("196") // bright red
	colorAccent = lipgloss.Color("39")  // blue
	colorMuted  = lipgloss.Color("242") // gray
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)

	// Success renders positive outcomes (worker ready, message delivered).
	Success = lipgloss.NewStyle().Foreground(colorGood)
	// Warn renders degraded-but-working conditions.
	Warn = lipgloss.NewStyle().Foreground(colorWarn)
	// Error renders failures.
	Error = lipgloss.NewStyle().Foreground(colorBad).Bold(true)
	// Accent renders identifiers the eye should land on (worker names,
	// session IDs).
	Accent = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	// Muted renders secondary detail.
	Muted = mutedStyle
	// Header renders table and section headers.
	Header = headerStyle
)

// IsTTY reports whether stdout is an interactive terminal.
func IsTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// StatusStyle picks a style for a worker status label.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "ready", "idle":
		return Success
	case "working", "starting":
		return Accent
	case "error":
		return Error
	case "stopped":
		return Muted
	default:
		return Warn
	}
}
