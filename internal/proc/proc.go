// Package proc enumerates candidate agent processes and answers basic
// liveness and working-directory questions about them. It exists to feed
// PIDs to the terminal injector and to join running processes back to their
// on-disk session logs; it owns no process handles.
package proc

import (
	"errors"
	"strings"
)

// ErrUnsupported means process inspection is unavailable on this platform.
var ErrUnsupported = errors.New("process inspection unsupported on this platform")

// Process is one running candidate found on the system.
type Process struct {
	PID     int
	Command string
}

// TerminalInfo identifies the terminal emulator or multiplexer that owns a
// process's controlling terminal. Diagnostic only: it decides whether
// terminal-device injection is even attempted, never how.
type TerminalInfo struct {
	TerminalPID  int
	TerminalName string
	TerminalCmd  string
}

// knownTerminals are parent commands recognized as terminal emulators or
// multiplexers.
var knownTerminals = []string{
	"gnome-terminal",
	"konsole",
	"xterm",
	"alacritty",
	"kitty",
	"wezterm",
	"tmux",
	"screen",
	"code", // VS Code integrated terminal
}

// matchTerminal returns the first known terminal name contained in cmd, or
// "" when cmd is not a recognized terminal.
func matchTerminal(cmd string) string {
	for _, name := range knownTerminals {
		if strings.Contains(cmd, name) {
			return name
		}
	}
	return ""
}
