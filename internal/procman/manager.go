// Package procman owns agent processes spawned as direct children.
//
// The Manager holds the only handle to each child: it spawns the agent with
// piped stdin/stdout/stderr, keeps the pipe open for injection, and is the
// sole component allowed to write to or close a child's stdin. Sessions are
// tracked in one table guarded by one lock; injections across sessions
// serialize on it, which is fine at interactive message rates.
//
// No operation imposes a timeout: a child that stops reading its stdin can
// block Inject indefinitely, and callers needing cancellation wrap at a
// higher layer.
package procman

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/creack/pty"
	"github.com/google/uuid"

	"github.com/steveyegge/bullhorn/internal/payload"
)

var (
	// ErrSpawn means the agent executable could not be found or launched.
	ErrSpawn = errors.New("spawning agent process")

	// ErrSessionNotFound means no active session has the given id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExists means a session with the given id is already active.
	ErrSessionExists = errors.New("session already active")

	// ErrInject means the stdin write failed, which almost always means the
	// child already exited. Not retried; detect with IsActive and re-spawn.
	ErrInject = errors.New("writing to session stdin")
)

// Descriptor names a session to spawn.
type Descriptor struct {
	// SessionID keys the session table. Empty means generate one.
	SessionID string
	// WorkDir is the child's working directory.
	WorkDir string
}

// session is one live child. The table entry exclusively owns the handle.
type session struct {
	id        string
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	ptmx      *os.File // pty master when spawned with WithPTY; nil otherwise
	startedAt time.Time
	done      chan struct{} // closed by the waiter goroutine once the child exits
}

func (s *session) exited() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// SessionInfo describes an active session for listings.
type SessionInfo struct {
	ID        string
	PID       int
	StartedAt time.Time
}

// StartOption adjusts how a session is spawned.
type StartOption func(*startOptions)

type startOptions struct {
	usePTY bool
}

// WithPTY runs the child under a pseudo-terminal instead of plain pipes,
// for agents that refuse non-tty stdin. The pty master is the injection
// writer; the child sees a real terminal.
func WithPTY() StartOption {
	return func(o *startOptions) { o.usePTY = true }
}

// Manager tracks active child sessions keyed by session id.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session

	// agentCmd is the program each session runs, e.g.
	// ["claude", "--dangerously-skip-permissions"].
	agentCmd []string
}

// NewManager returns a Manager that spawns agentCmd.
func NewManager(agentCmd ...string) *Manager {
	return &Manager{
		sessions: make(map[string]*session),
		agentCmd: agentCmd,
	}
}

// Start spawns the agent in desc.WorkDir with captured pipes and registers
// it under the descriptor's session id. initialPrompt, when non-empty, is
// passed as a launch argument. Returns the session id.
func (m *Manager) Start(desc Descriptor, initialPrompt string, opts ...StartOption) (string, error) {
	var o startOptions
	for _, opt := range opts {
		opt(&o)
	}

	id := desc.SessionID
	if id == "" {
		id = uuid.NewString()
	}

	args := append([]string(nil), m.agentCmd[1:]...)
	if initialPrompt != "" {
		args = append(args, initialPrompt)
	}
	cmd := exec.Command(m.agentCmd[0], args...)
	cmd.Dir = desc.WorkDir

	s := &session{
		id:        id,
		cmd:       cmd,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[id]; exists {
		return "", fmt.Errorf("%w: %s", ErrSessionExists, id)
	}

	if o.usePTY {
		ptmx, err := pty.Start(cmd)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrSpawn, m.agentCmd[0], err)
		}
		s.ptmx = ptmx
		s.stdin = ptmx
	} else {
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrSpawn, m.agentCmd[0], err)
		}
		cmd.Stdout = io.Discard
		cmd.Stderr = io.Discard
		if err := cmd.Start(); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrSpawn, m.agentCmd[0], err)
		}
		s.stdin = stdin
	}

	// Single waiter per child; Wait may only be called once.
	go func() {
		_ = cmd.Wait()
		close(s.done)
	}()

	m.sessions[id] = s
	log.Debug("session started", "id", id, "pid", cmd.Process.Pid, "dir", desc.WorkDir)
	return id, nil
}

// Inject renders the payload and writes it, followed by a single newline,
// to the session's stdin. Unknown ids fail with ErrSessionNotFound and do
// not mutate the table; write failures fail with ErrInject and leave the
// session tracked, so the caller can probe with IsActive and re-spawn.
func (m *Manager) Inject(sessionID string, p payload.Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	text := p.Render()
	if _, err := io.WriteString(s.stdin, text+"\n"); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInject, sessionID, err)
	}
	return nil
}

// IsActive reports whether the session's child is still running. A session
// whose child has exited is reaped from the table as a side effect.
func (m *Manager) IsActive(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return false
	}
	if s.exited() {
		m.reapLocked(s)
		return false
	}
	return true
}

// reapLocked releases a finished session's resources and drops it from the
// table. Caller holds mu.
func (m *Manager) reapLocked(s *session) {
	_ = s.stdin.Close()
	delete(m.sessions, s.id)
	log.Debug("session reaped", "id", s.id)
}

// Stop terminates the session's child and waits for it to exit, then
// removes it from the table. Stopping an unknown id is a no-op. The child
// gets SIGTERM first and SIGKILL after a short grace period if it has not
// exited.
func (m *Manager) Stop(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}

	if !s.exited() {
		terminateProcess(s.cmd.Process)
		select {
		case <-s.done:
		case <-time.After(stopGracePeriod):
			_ = s.cmd.Process.Kill()
			<-s.done
		}
	}
	m.reapLocked(s)
	return nil
}

// stopGracePeriod is how long Stop waits after the termination signal
// before escalating to SIGKILL.
const stopGracePeriod = 2 * time.Second

// StopAll stops every tracked session, logging and continuing on failure.
func (m *Manager) StopAll() {
	for _, id := range m.ListActiveSessions() {
		if err := m.Stop(id); err != nil {
			log.Warn("failed to stop session", "id", id, "err", err)
		}
	}
}

// ListActiveSessions returns the ids of all tracked sessions.
func (m *Manager) ListActiveSessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Sessions returns listing details for all tracked sessions.
func (m *Manager) Sessions() []SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, SessionInfo{
			ID:        s.id,
			PID:       s.cmd.Process.Pid,
			StartedAt: s.startedAt,
		})
	}
	return out
}

// Broadcast injects the payload into every tracked session and returns the
// ids that succeeded. Per-session failures are logged and skipped, never
// propagated.
func (m *Manager) Broadcast(p payload.Payload) []string {
	var injected []string
	for _, id := range m.ListActiveSessions() {
		if err := m.Inject(id, p); err != nil {
			log.Warn("broadcast skipped session", "id", id, "err", err)
			continue
		}
		injected = append(injected, id)
	}
	return injected
}

// CleanupFinished reaps every session whose child has exited and returns
// the reaped ids.
func (m *Manager) CleanupFinished() []string {
	var removed []string
	for _, id := range m.ListActiveSessions() {
		if !m.IsActive(id) {
			removed = append(removed, id)
		}
	}
	return removed
}
