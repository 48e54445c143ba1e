package worker

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/bullhorn/internal/payload"
	"github.com/steveyegge/bullhorn/internal/procman"
	"github.com/steveyegge/bullhorn/internal/registry"
	"github.com/steveyegge/bullhorn/internal/terminal"
	"github.com/steveyegge/bullhorn/internal/tmux"
)

type fakeTmux struct {
	sessions    map[string]bool
	injected    map[string][]string
	spawnErr    error
	sendErr     error
	interrupted []string
}

func newFakeTmux() *fakeTmux {
	return &fakeTmux{sessions: map[string]bool{}, injected: map[string][]string{}}
}

func (f *fakeTmux) SpawnSession(name, workDir string) error {
	if f.spawnErr != nil {
		return f.spawnErr
	}
	if f.sessions[name] {
		return tmux.ErrSessionExists
	}
	f.sessions[name] = true
	return nil
}

func (f *fakeTmux) InjectMessage(name, text string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	if !f.sessions[name] {
		return tmux.ErrSessionNotFound
	}
	f.injected[name] = append(f.injected[name], text)
	return nil
}

func (f *fakeTmux) SessionExists(name string) (bool, error) {
	return f.sessions[name], nil
}

func (f *fakeTmux) KillSession(name string) error {
	if !f.sessions[name] {
		return tmux.ErrSessionNotFound
	}
	delete(f.sessions, name)
	return nil
}

func (f *fakeTmux) SendInterrupt(name string) error {
	if !f.sessions[name] {
		return tmux.ErrSessionNotFound
	}
	f.interrupted = append(f.interrupted, name)
	return nil
}

type fakeProcs struct {
	active   map[string]bool
	injected map[string][]payload.Payload
	startErr error
}

func newFakeProcs() *fakeProcs {
	return &fakeProcs{active: map[string]bool{}, injected: map[string][]payload.Payload{}}
}

func (f *fakeProcs) Start(desc procman.Descriptor, initialPrompt string, opts ...procman.StartOption) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	f.active[desc.SessionID] = true
	return desc.SessionID, nil
}

func (f *fakeProcs) Inject(sessionID string, p payload.Payload) error {
	if !f.active[sessionID] {
		return procman.ErrSessionNotFound
	}
	f.injected[sessionID] = append(f.injected[sessionID], p)
	return nil
}

func (f *fakeProcs) IsActive(sessionID string) bool { return f.active[sessionID] }

func (f *fakeProcs) Stop(sessionID string) error {
	delete(f.active, sessionID)
	return nil
}

type fakeTerminal struct {
	terminals map[int]string
	injected  map[int][]string
	injectErr error
}

func newFakeTerminal() *fakeTerminal {
	return &fakeTerminal{terminals: map[int]string{}, injected: map[int][]string{}}
}

func (f *fakeTerminal) ResolveControllingTerminal(pid int) (string, error) {
	tty, ok := f.terminals[pid]
	if !ok {
		return "", terminal.ErrProcessNotFound
	}
	return tty, nil
}

func (f *fakeTerminal) Inject(pid int, message string) error {
	if f.injectErr != nil {
		return f.injectErr
	}
	if _, ok := f.terminals[pid]; !ok {
		return terminal.ErrProcessNotFound
	}
	f.injected[pid] = append(f.injected[pid], message)
	return nil
}

func (f *fakeTerminal) CanInject(pid int) (bool, error) {
	if _, ok := f.terminals[pid]; !ok {
		return false, terminal.ErrProcessNotFound
	}
	return true, nil
}

func newTestCoordinator(t *testing.T) (*Coordinator, *fakeTmux, *fakeProcs, *fakeTerminal) {
	t.Helper()
	reg, err := registry.Load(filepath.Join(t.TempDir(), "workers.json"))
	require.NoError(t, err)

	ft := newFakeTmux()
	fp := newFakeProcs()
	fterm := newFakeTerminal()
	c := &Coordinator{
		reg:      reg,
		tmux:     ft,
		procs:    fp,
		term:     fterm,
		queueDir: t.TempDir(),
	}
	return c, ft, fp, fterm
}

func TestSpawnTmuxRegistersWorker(t *testing.T) {
	c, ft, _, _ := newTestCoordinator(t)

	require.NoError(t, c.SpawnTmux("alice", "claude", "task-1", "/work", ""))
	assert.True(t, ft.sessions["alice"])

	info, ok := c.reg.Get("alice")
	require.True(t, ok)
	assert.Equal(t, registry.MechanismTmux, info.Mechanism)
	assert.Equal(t, "alice", info.SessionHandle)
	assert.Equal(t, registry.StatusReady, info.Status)
}

func TestSpawnTmuxWithPromptMarksWorking(t *testing.T) {
	c, ft, _, _ := newTestCoordinator(t)

	require.NoError(t, c.SpawnTmux("alice", "claude", "", "/work", "start with the README"))

	require.Len(t, ft.injected["alice"], 1)
	assert.Equal(t, "start with the README", ft.injected["alice"][0])

	info, ok := c.reg.Get("alice")
	require.True(t, ok)
	assert.Equal(t, registry.StatusWorking, info.Status)
}

func TestSpawnTmuxPromptFailureLeavesStarting(t *testing.T) {
	c, ft, _, _ := newTestCoordinator(t)
	ft.sendErr = errors.New("send-keys failed")

	err := c.SpawnTmux("alice", "claude", "", "/work", "start with the README")
	require.Error(t, err)

	// The session spawned, so the worker stays registered, still starting.
	info, ok := c.reg.Get("alice")
	require.True(t, ok)
	assert.Equal(t, registry.StatusStarting, info.Status)
}

func TestSpawnTmuxFailureDoesNotRegister(t *testing.T) {
	c, ft, _, _ := newTestCoordinator(t)
	ft.spawnErr = tmux.ErrNoServer

	err := c.SpawnTmux("alice", "claude", "", "/work", "")
	require.ErrorIs(t, err, tmux.ErrNoServer)
	assert.False(t, c.reg.Exists("alice"))
}

func TestSendToTmuxWorker(t *testing.T) {
	c, ft, _, _ := newTestCoordinator(t)
	require.NoError(t, c.SpawnTmux("alice", "claude", "", "/work", ""))

	p := payload.NewContext("build finished")
	require.NoError(t, c.Send("alice", p))

	require.Len(t, ft.injected["alice"], 1)
	assert.Equal(t, p.Render(), ft.injected["alice"][0])

	info, _ := c.reg.Get("alice")
	assert.Equal(t, 1, info.MessagesSent)
}

func TestSendToDeadTmuxSession(t *testing.T) {
	c, ft, _, _ := newTestCoordinator(t)
	require.NoError(t, c.SpawnTmux("alice", "claude", "", "/work", ""))
	delete(ft.sessions, "alice")

	err := c.Send("alice", payload.NewContext("x"))
	require.ErrorIs(t, err, ErrWorkerGone)

	info, _ := c.reg.Get("alice")
	assert.Zero(t, info.MessagesSent)
}

func TestSendToUnknownWorker(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)
	err := c.Send("nobody", payload.NewContext("x"))
	assert.ErrorIs(t, err, ErrWorkerNotFound)
}

func TestSpawnProcessStatus(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)

	require.NoError(t, c.SpawnProcess("idle-bob", "claude", "", "/work", ""))
	info, ok := c.reg.Get("idle-bob")
	require.True(t, ok)
	assert.Equal(t, registry.StatusReady, info.Status)

	require.NoError(t, c.SpawnProcess("busy-bob", "claude", "", "/work", "fix the build"))
	info, ok = c.reg.Get("busy-bob")
	require.True(t, ok)
	assert.Equal(t, registry.StatusWorking, info.Status)
}

func TestSendToProcessWorker(t *testing.T) {
	c, _, fp, _ := newTestCoordinator(t)
	require.NoError(t, c.SpawnProcess("bob", "claude", "", "/work", ""))

	require.NoError(t, c.Send("bob", payload.NewWarning("disk low")))
	require.Len(t, fp.injected["bob"], 1)
	assert.Equal(t, payload.Warning, fp.injected["bob"][0].Kind)
}

func TestSendToExitedProcessWorker(t *testing.T) {
	c, _, fp, _ := newTestCoordinator(t)
	require.NoError(t, c.SpawnProcess("bob", "claude", "", "/work", ""))
	delete(fp.active, "bob")

	err := c.Send("bob", payload.NewContext("x"))
	assert.ErrorIs(t, err, ErrWorkerGone)
}

func TestAttachAndSendTerminalWorker(t *testing.T) {
	c, _, _, fterm := newTestCoordinator(t)
	fterm.terminals[4321] = "/dev/pts/3"

	require.NoError(t, c.AttachTerminal("carol", "claude", "", 4321, "/work"))

	info, ok := c.reg.Get("carol")
	require.True(t, ok)
	assert.Equal(t, registry.StatusReady, info.Status)

	require.NoError(t, c.Send("carol", payload.NewUserPrompt("status?")))
	require.Len(t, fterm.injected[4321], 1)
	assert.Equal(t, "status?", fterm.injected[4321][0])
}

func TestAttachTerminalRequiresResolvableTTY(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)

	err := c.AttachTerminal("carol", "claude", "", 99999, "/work")
	require.ErrorIs(t, err, terminal.ErrProcessNotFound)
	assert.False(t, c.reg.Exists("carol"))
}

func TestTerminalInjectionEscapesTemplatedPayloads(t *testing.T) {
	c, _, _, fterm := newTestCoordinator(t)
	fterm.terminals[1] = "/dev/pts/0"
	require.NoError(t, c.AttachTerminal("carol", "claude", "", 1, "/work"))

	require.NoError(t, c.Send("carol", payload.NewContext("line one\nline two")))
	require.Len(t, fterm.injected[1], 1)
	assert.NotContains(t, fterm.injected[1][0], "\n")
	assert.Contains(t, fterm.injected[1][0], `\n`)
}

func TestTerminalUserPromptArrivesVerbatim(t *testing.T) {
	c, _, _, fterm := newTestCoordinator(t)
	fterm.terminals[1] = "/dev/pts/0"
	require.NoError(t, c.AttachTerminal("carol", "claude", "", 1, "/work"))

	prompt := "line one\nline two"
	require.NoError(t, c.Send("carol", payload.NewUserPrompt(prompt)))
	require.Len(t, fterm.injected[1], 1)
	assert.Equal(t, prompt, fterm.injected[1][0])
}

func TestBroadcastSkipsDeadWorkers(t *testing.T) {
	c, ft, _, _ := newTestCoordinator(t)
	require.NoError(t, c.SpawnTmux("alice", "claude", "", "/work", ""))
	require.NoError(t, c.SpawnTmux("bob", "claude", "", "/work", ""))
	delete(ft.sessions, "bob")

	succeeded := c.Broadcast(payload.NewWarning("heads up"))
	assert.Equal(t, []string{"alice"}, succeeded)
}

func TestQueueAndFlush(t *testing.T) {
	c, ft, _, _ := newTestCoordinator(t)
	require.NoError(t, c.SpawnTmux("alice", "claude", "", "/work", ""))

	require.NoError(t, c.Queue("alice", payload.NewContext("one")))
	require.NoError(t, c.Queue("alice", payload.NewContext("two")))

	pending, err := c.Pending("alice")
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	n, err := c.Flush("alice")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, ft.injected["alice"], 2)
	assert.True(t, strings.Contains(ft.injected["alice"][0], "one"))

	pending, err = c.Pending("alice")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestFlushRequeuesOnFailure(t *testing.T) {
	c, ft, _, _ := newTestCoordinator(t)
	require.NoError(t, c.SpawnTmux("alice", "claude", "", "/work", ""))
	require.NoError(t, c.Queue("alice", payload.NewContext("one")))
	require.NoError(t, c.Queue("alice", payload.NewContext("two")))

	ft.sendErr = errors.New("tmux exploded")
	n, err := c.Flush("alice")
	require.Error(t, err)
	assert.Zero(t, n)

	pending, perr := c.Pending("alice")
	require.NoError(t, perr)
	assert.Len(t, pending, 2)
}

func TestQueueForUnknownWorker(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)
	err := c.Queue("nobody", payload.NewContext("x"))
	assert.ErrorIs(t, err, ErrWorkerNotFound)
}

func TestStopTmuxWorker(t *testing.T) {
	c, ft, _, _ := newTestCoordinator(t)
	require.NoError(t, c.SpawnTmux("alice", "claude", "", "/work", ""))

	require.NoError(t, c.Stop("alice"))
	assert.False(t, ft.sessions["alice"])

	info, ok := c.reg.Get("alice")
	require.True(t, ok)
	assert.Equal(t, registry.StatusStopped, info.Status)
}

func TestStopAlreadyDeadSessionStillMarksStopped(t *testing.T) {
	c, ft, _, _ := newTestCoordinator(t)
	require.NoError(t, c.SpawnTmux("alice", "claude", "", "/work", ""))
	delete(ft.sessions, "alice")

	require.NoError(t, c.Stop("alice"))
	info, _ := c.reg.Get("alice")
	assert.Equal(t, registry.StatusStopped, info.Status)
}

func TestInterruptOnlyTmux(t *testing.T) {
	c, ft, _, _ := newTestCoordinator(t)
	require.NoError(t, c.SpawnTmux("alice", "claude", "", "/work", ""))
	require.NoError(t, c.SpawnProcess("bob", "claude", "", "/work", ""))

	require.NoError(t, c.Interrupt("alice"))
	assert.Equal(t, []string{"alice"}, ft.interrupted)

	err := c.Interrupt("bob")
	assert.ErrorIs(t, err, ErrUnsupportedOp)
}

func TestAlive(t *testing.T) {
	c, ft, _, fterm := newTestCoordinator(t)
	require.NoError(t, c.SpawnTmux("alice", "claude", "", "/work", ""))
	fterm.terminals[7] = "/dev/pts/1"
	require.NoError(t, c.AttachTerminal("carol", "claude", "", 7, "/work"))

	alive, err := c.Alive("alice")
	require.NoError(t, err)
	assert.True(t, alive)

	delete(ft.sessions, "alice")
	alive, err = c.Alive("alice")
	require.NoError(t, err)
	assert.False(t, alive)

	alive, err = c.Alive("carol")
	require.NoError(t, err)
	assert.True(t, alive)

	delete(fterm.terminals, 7)
	alive, err = c.Alive("carol")
	require.NoError(t, err)
	assert.False(t, alive)
}
