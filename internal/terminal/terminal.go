// Package terminal injects keystrokes into a foreign process's controlling
// terminal.
//
// The injector resolves the terminal device a process reads from (its stdin
// file descriptor) and forges keyboard input on it one byte at a time via
// the TIOCSTI ioctl, mirroring how a keyboard driver delivers input so the
// target's line discipline and input buffering behave exactly as if a human
// typed the message. The contract is "delivered to the terminal line
// discipline": there is no way to observe whether the target application
// consumed the bytes.
//
// Forging is Linux-only, and kernels since 6.2 may refuse TIOCSTI outright
// (dev.tty.legacy_tiocsti=0). That refusal is surfaced as
// ErrForgingUnsupported, distinct from ErrTerminalPermission (device not
// writable), so callers can fall back to the tmux mechanism.
package terminal

import (
	"errors"
	"strings"
)

// Error kinds. Callers match with errors.Is.
var (
	// ErrProcessNotFound means the target process could not be inspected:
	// it exited, or we lack the privilege to read its /proc entry.
	ErrProcessNotFound = errors.New("process not found or not inspectable")

	// ErrNotATerminal means the process's stdin does not resolve to a
	// terminal-class device.
	ErrNotATerminal = errors.New("process stdin is not a terminal device")

	// ErrTerminalPermission means the terminal device exists but cannot be
	// opened for writing.
	ErrTerminalPermission = errors.New("terminal device not writable")

	// ErrForgingUnsupported means the TIOCSTI forging call was rejected by
	// the kernel, or forging is unavailable on this platform. Not retried;
	// callers should fall back to tmux injection.
	ErrForgingUnsupported = errors.New("terminal input forging unsupported")
)

// Backend is the platform capability for terminal-device injection.
type Backend interface {
	// ResolveControllingTerminal returns the terminal device path the
	// process currently reads from.
	ResolveControllingTerminal(pid int) (string, error)

	// Inject forges message plus a trailing newline as keystrokes on the
	// process's controlling terminal.
	Inject(pid int, message string) error

	// CanInject reports whether the terminal device can be opened for
	// writing. Permission failures return (false, nil); other failures
	// propagate.
	CanInject(pid int) (bool, error)
}

// NewBackend returns the injection backend for the current platform. On
// non-Linux systems every operation fails with ErrForgingUnsupported; the
// API is present everywhere rather than compiled out.
func NewBackend() Backend {
	return newPlatformBackend()
}

// InjectEscaped injects message with backslashes and newlines escaped, for
// content that must stay on a single input line.
func InjectEscaped(b Backend, pid int, message string) error {
	escaped := strings.ReplaceAll(message, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	return b.Inject(pid, escaped)
}

// isTerminalDevice reports whether a device path names a terminal. Both
// pseudo-terminal slaves (/dev/pts/N) and virtual consoles or serial
// terminals (/dev/ttyN, /dev/ttySN) qualify.
func isTerminalDevice(path string) bool {
	return strings.HasPrefix(path, "/dev/pts/") || strings.HasPrefix(path, "/dev/tty")
}
