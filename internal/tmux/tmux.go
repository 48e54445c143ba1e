// Package tmux spawns and injects into detached tmux sessions via
// subprocess.
//
// Every operation is a tmux command round trip: spawn-and-wait, typically
// tens of milliseconds. The Spawner owns no process handles; the tmux
// server owns the session and its pane process. All commands go through a
// single runner seam so retry or timeout policy can be added in one place,
// and so tests can stub the subprocess boundary.
package tmux

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// Common errors, classified from tmux stderr.
var (
	ErrNoServer           = errors.New("no tmux server running")
	ErrSessionExists      = errors.New("session already exists")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidSessionName = errors.New("invalid session name")

	// ErrPartialInjection means the literal text was staged in the target
	// pane but the Enter keypress failed, leaving the message typed but not
	// submitted.
	ErrPartialInjection = errors.New("message text sent but Enter key failed")
)

// validSessionNameRe rejects names with dots, colons, or other characters
// that make tmux silently fail or misparse targets.
var validSessionNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

func validateSessionName(name string) error {
	if name == "" || !validSessionNameRe.MatchString(name) {
		return fmt.Errorf("%w %q: must match %s", ErrInvalidSessionName, name, validSessionNameRe.String())
	}
	return nil
}

// runner executes one tmux invocation and returns trimmed stdout.
type runner func(args ...string) (string, error)

// Spawner wraps tmux session operations for one agent command.
type Spawner struct {
	// agentCmd is the program a spawned session runs, with its automation
	// flags (e.g. claude --dangerously-skip-permissions).
	agentCmd []string

	run runner
}

// NewSpawner returns a Spawner that launches agentCmd in new sessions.
func NewSpawner(agentCmd ...string) *Spawner {
	return &Spawner{agentCmd: agentCmd, run: runTmux}
}

// runTmux executes a tmux command. The -u flag forces UTF-8 regardless of
// locale.
func runTmux(args ...string) (string, error) {
	cmd := exec.Command("tmux", append([]string{"-u"}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", wrapTmuxError(err, stderr.String(), args)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// wrapTmuxError classifies tmux stderr into sentinel errors.
func wrapTmuxError(err error, stderr string, args []string) error {
	stderr = strings.TrimSpace(stderr)

	if strings.Contains(stderr, "no server running") ||
		strings.Contains(stderr, "error connecting to") ||
		strings.Contains(stderr, "no current target") ||
		strings.Contains(stderr, "server exited unexpectedly") {
		return ErrNoServer
	}
	if strings.Contains(stderr, "duplicate session") {
		return ErrSessionExists
	}
	if strings.Contains(stderr, "session not found") ||
		strings.Contains(stderr, "can't find session") {
		return ErrSessionNotFound
	}

	if stderr != "" {
		return fmt.Errorf("tmux %s: %s", args[0], stderr)
	}
	return fmt.Errorf("tmux %s: %w", args[0], err)
}

// IsAvailable reports whether the tmux binary is present and runnable.
func (s *Spawner) IsAvailable() bool {
	_, err := s.run("-V")
	return err == nil
}

// SessionExists reports whether a session of the given name is live.
// A missing server counts as "no sessions", not an error.
func (s *Spawner) SessionExists(name string) (bool, error) {
	// "=" pins exact-match targeting; without it tmux prefix-matches.
	_, err := s.run("has-session", "-t", "="+name)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrNoServer) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListSessions returns the names of all live sessions.
func (s *Spawner) ListSessions() ([]string, error) {
	out, err := s.run("list-sessions", "-F", "#{session_name}")
	if err != nil {
		if errors.Is(err, ErrNoServer) {
			return nil, nil
		}
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// SpawnSession creates a detached session named name in workDir, running
// the agent command directly as the pane's initial process. Running the
// command at creation (rather than typing it into a shell) avoids the race
// where keys arrive before the shell prompt.
//
// A duplicate name fails with ErrSessionExists; callers wanting idempotent
// creation check SessionExists first or kill-then-recreate explicitly.
func (s *Spawner) SpawnSession(name, workDir string) error {
	if err := validateSessionName(name); err != nil {
		return err
	}
	args := []string{"new-session", "-d", "-s", name}
	if workDir != "" {
		args = append(args, "-c", workDir)
	}
	args = append(args, s.agentCmd...)
	_, err := s.run(args...)
	return err
}

// InjectMessage delivers text into a session as two sequential commands:
// the text in literal mode (-l, no key-name parsing), then an Enter
// keypress with key-name parsing enabled. If the literal send lands but
// Enter fails, the text sits staged in the pane's input; that state is
// surfaced as ErrPartialInjection.
func (s *Spawner) InjectMessage(name, text string) error {
	if _, err := s.run("send-keys", "-l", "-t", name, text); err != nil {
		return fmt.Errorf("sending message text: %w", err)
	}
	if _, err := s.run("send-keys", "-t", name, "Enter"); err != nil {
		return fmt.Errorf("%w: session %s: %v", ErrPartialInjection, name, err)
	}
	return nil
}

// KillSession terminates a session.
func (s *Spawner) KillSession(name string) error {
	_, err := s.run("kill-session", "-t", name)
	return err
}

// SendInterrupt delivers Ctrl-C to the session's pane process.
func (s *Spawner) SendInterrupt(name string) error {
	_, err := s.run("send-keys", "-t", name, "C-c")
	return err
}

// AttachCommand returns the shell command a user runs to attach.
func (s *Spawner) AttachCommand(name string) string {
	return fmt.Sprintf("tmux attach-session -t %s", name)
}
