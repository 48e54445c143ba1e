// Package worker ties the injection mechanisms together behind one
// coordinator: spawn a worker, look it up in the registry, and deliver
// payloads by whichever mechanism (child process, terminal forging, tmux)
// the worker was spawned with.
package worker

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/steveyegge/bullhorn/internal/config"
	"github.com/steveyegge/bullhorn/internal/history"
	"github.com/steveyegge/bullhorn/internal/inject"
	"github.com/steveyegge/bullhorn/internal/payload"
	"github.com/steveyegge/bullhorn/internal/procman"
	"github.com/steveyegge/bullhorn/internal/registry"
	"github.com/steveyegge/bullhorn/internal/terminal"
	"github.com/steveyegge/bullhorn/internal/tmux"
)

var (
	// ErrWorkerNotFound means the name has no registry entry.
	ErrWorkerNotFound = errors.New("worker not registered")
	// ErrWorkerGone means the registry entry exists but the underlying
	// session or process has terminated.
	ErrWorkerGone = errors.New("worker session no longer running")
	// ErrUnsupportedOp means the worker's mechanism cannot perform the
	// requested operation.
	ErrUnsupportedOp = errors.New("operation not supported by worker mechanism")
)

// tmuxSpawner is the slice of tmux.Spawner the coordinator needs.
type tmuxSpawner interface {
	SpawnSession(name, workDir string) error
	InjectMessage(name, text string) error
	SessionExists(name string) (bool, error)
	KillSession(name string) error
	SendInterrupt(name string) error
}

// processManager is the slice of procman.Manager the coordinator needs.
type processManager interface {
	Start(desc procman.Descriptor, initialPrompt string, opts ...procman.StartOption) (string, error)
	Inject(sessionID string, p payload.Payload) error
	IsActive(sessionID string) bool
	Stop(sessionID string) error
}

// tmuxSettleDelay is how long a freshly spawned tmux session gets to boot
// its agent before the initial prompt is injected.
const tmuxSettleDelay = 5 * time.Second

// Coordinator routes spawn, send, and stop requests to the right mechanism
// and keeps the registry and history in step.
type Coordinator struct {
	reg      *registry.Registry
	tmux     tmuxSpawner
	procs    processManager
	term     terminal.Backend
	hist     *history.Store
	queueDir string

	// settleDelay is the wait before injecting an initial prompt into a new
	// tmux session. Zero in tests.
	settleDelay time.Duration
}

// New builds a coordinator from config, wiring the real mechanisms.
// hist may be nil to skip audit recording.
func New(cfg config.Config, reg *registry.Registry, hist *history.Store, queueDir string) *Coordinator {
	agentCmd := cfg.AgentCommand()
	return &Coordinator{
		reg:         reg,
		tmux:        tmux.NewSpawner(agentCmd...),
		procs:       procman.NewManager(agentCmd...),
		term:        terminal.NewBackend(),
		hist:        hist,
		queueDir:    queueDir,
		settleDelay: tmuxSettleDelay,
	}
}

// SpawnTmux starts a detached tmux session running the agent and registers
// the worker. The tmux session name is the worker name. A non-empty
// initialPrompt is typed into the session once it has had time to boot,
// moving the worker to working; without a prompt the worker is marked
// ready. If prompt injection fails the worker stays registered as starting.
func (c *Coordinator) SpawnTmux(name, agentType, taskID, workDir, initialPrompt string) error {
	if err := c.tmux.SpawnSession(name, workDir); err != nil {
		return err
	}
	info := registry.NewWorkerInfo(name, agentType, taskID, name, registry.MechanismTmux, workDir)
	if err := c.reg.Register(info); err != nil {
		return err
	}
	log.Debug("spawned tmux worker", "name", name, "dir", workDir)

	if initialPrompt == "" {
		return c.reg.UpdateStatus(name, registry.StatusReady)
	}

	time.Sleep(c.settleDelay)
	if err := c.tmux.InjectMessage(name, initialPrompt); err != nil {
		return fmt.Errorf("sending initial prompt to %s: %w", name, err)
	}
	log.Debug("initial prompt sent", "name", name)
	return c.reg.UpdateStatus(name, registry.StatusWorking)
}

// SpawnProcess starts the agent as a direct child with piped stdin and
// registers the worker. Process workers live only as long as this process.
func (c *Coordinator) SpawnProcess(name, agentType, taskID, workDir, initialPrompt string, opts ...procman.StartOption) error {
	id, err := c.procs.Start(procman.Descriptor{SessionID: name, WorkDir: workDir}, initialPrompt, opts...)
	if err != nil {
		return err
	}
	info := registry.NewWorkerInfo(name, agentType, taskID, id, registry.MechanismProcess, workDir)
	if initialPrompt != "" {
		info.Status = registry.StatusWorking
	} else {
		info.Status = registry.StatusReady
	}
	if err := c.reg.Register(info); err != nil {
		return err
	}
	log.Debug("spawned process worker", "name", name, "session", id, "status", info.Status)
	return nil
}

// AttachTerminal registers an already-running foreign process as a worker
// reachable by terminal input forging. The process must have a controlling
// terminal we can open.
func (c *Coordinator) AttachTerminal(name, agentType, taskID string, pid int, workDir string) error {
	if _, err := c.term.ResolveControllingTerminal(pid); err != nil {
		return err
	}
	handle := strconv.Itoa(pid)
	info := registry.NewWorkerInfo(name, agentType, taskID, handle, registry.MechanismTerminal, workDir)
	// The process is already up and serving a session.
	info.Status = registry.StatusReady
	if err := c.reg.Register(info); err != nil {
		return err
	}
	log.Debug("attached terminal worker", "name", name, "pid", pid)
	return nil
}

// Send delivers a payload to a named worker by its registered mechanism.
// On success the worker's message counter is bumped and the delivery is
// recorded in history.
func (c *Coordinator) Send(name string, p payload.Payload) error {
	info, ok := c.reg.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrWorkerNotFound, name)
	}

	if err := c.deliver(info, p); err != nil {
		return err
	}

	if err := c.reg.IncrementMessages(name); err != nil {
		log.Warn("delivered but could not update registry", "worker", name, "error", err)
	}
	if c.hist != nil {
		if err := c.hist.Append(name, string(info.Mechanism), string(p.Kind), p.Content); err != nil {
			log.Warn("delivered but could not record history", "worker", name, "error", err)
		}
	}
	return nil
}

func (c *Coordinator) deliver(info registry.WorkerInfo, p payload.Payload) error {
	switch info.Mechanism {
	case registry.MechanismTmux:
		exists, err := c.tmux.SessionExists(info.SessionHandle)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: tmux session %s", ErrWorkerGone, info.SessionHandle)
		}
		return c.tmux.InjectMessage(info.SessionHandle, p.Render())

	case registry.MechanismProcess:
		err := c.procs.Inject(info.SessionHandle, p)
		if errors.Is(err, procman.ErrSessionNotFound) {
			return fmt.Errorf("%w: session %s", ErrWorkerGone, info.SessionHandle)
		}
		return err

	case registry.MechanismTerminal:
		pid, err := strconv.Atoi(info.SessionHandle)
		if err != nil {
			return fmt.Errorf("bad pid handle %q for worker %s", info.SessionHandle, info.Name)
		}
		// User prompts go in verbatim so the target cannot tell them apart
		// from typed input; templated payloads get their newlines escaped
		// to survive single-line input handling.
		if p.Kind == payload.UserPrompt {
			err = c.term.Inject(pid, p.Render())
		} else {
			err = terminal.InjectEscaped(c.term, pid, p.Render())
		}
		if errors.Is(err, terminal.ErrProcessNotFound) {
			return fmt.Errorf("%w: pid %d", ErrWorkerGone, pid)
		}
		return err

	default:
		return fmt.Errorf("%w: unknown mechanism %q", ErrUnsupportedOp, info.Mechanism)
	}
}

// Broadcast sends a payload to every registered worker. Failures are logged
// and skipped; the returned slice names the workers that received it.
func (c *Coordinator) Broadcast(p payload.Payload) []string {
	var succeeded []string
	for _, info := range c.reg.ListAll() {
		if err := c.Send(info.Name, p); err != nil {
			log.Warn("broadcast skipped worker", "worker", info.Name, "error", err)
			continue
		}
		succeeded = append(succeeded, info.Name)
	}
	return succeeded
}

// Queue stores a payload for later delivery to a worker.
func (c *Coordinator) Queue(name string, p payload.Payload) error {
	if !c.reg.Exists(name) {
		return fmt.Errorf("%w: %s", ErrWorkerNotFound, name)
	}
	return inject.NewQueue(c.queueDir, name).Enqueue(p)
}

// Flush delivers every queued payload for a worker in order. Delivery stops
// at the first failure; undelivered entries are re-queued.
func (c *Coordinator) Flush(name string) (int, error) {
	q := inject.NewQueue(c.queueDir, name)
	entries, err := q.Drain()
	if err != nil {
		return 0, err
	}
	for i, entry := range entries {
		if err := c.Send(name, entry.Payload); err != nil {
			for _, rest := range entries[i:] {
				if qerr := q.Enqueue(rest.Payload); qerr != nil {
					log.Error("dropped queued payload", "worker", name, "error", qerr)
				}
			}
			return i, err
		}
	}
	return len(entries), nil
}

// Pending returns the queued payloads for a worker without delivering them.
func (c *Coordinator) Pending(name string) ([]inject.Entry, error) {
	return inject.NewQueue(c.queueDir, name).Peek()
}

// Stop shuts the worker's session down and marks it stopped in the registry.
// Terminal workers are not ours to kill, so they are only marked stopped.
func (c *Coordinator) Stop(name string) error {
	info, ok := c.reg.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrWorkerNotFound, name)
	}

	switch info.Mechanism {
	case registry.MechanismTmux:
		if err := c.tmux.KillSession(info.SessionHandle); err != nil && !errors.Is(err, tmux.ErrSessionNotFound) {
			return err
		}
	case registry.MechanismProcess:
		if err := c.procs.Stop(info.SessionHandle); err != nil {
			return err
		}
	case registry.MechanismTerminal:
		// nothing to kill
	}

	return c.reg.UpdateStatus(name, registry.StatusStopped)
}

// Interrupt sends Ctrl-C to a tmux worker's session.
func (c *Coordinator) Interrupt(name string) error {
	info, ok := c.reg.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrWorkerNotFound, name)
	}
	if info.Mechanism != registry.MechanismTmux {
		return fmt.Errorf("%w: interrupt requires a tmux worker", ErrUnsupportedOp)
	}
	return c.tmux.SendInterrupt(info.SessionHandle)
}

// Alive reports whether a worker's underlying session is still running.
func (c *Coordinator) Alive(name string) (bool, error) {
	info, ok := c.reg.Get(name)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrWorkerNotFound, name)
	}
	switch info.Mechanism {
	case registry.MechanismTmux:
		return c.tmux.SessionExists(info.SessionHandle)
	case registry.MechanismProcess:
		return c.procs.IsActive(info.SessionHandle), nil
	case registry.MechanismTerminal:
		pid, err := strconv.Atoi(info.SessionHandle)
		if err != nil {
			return false, fmt.Errorf("bad pid handle %q for worker %s", info.SessionHandle, info.Name)
		}
		ok, err := c.term.CanInject(pid)
		if errors.Is(err, terminal.ErrProcessNotFound) {
			return false, nil
		}
		return ok, err
	default:
		return false, fmt.Errorf("%w: unknown mechanism %q", ErrUnsupportedOp, info.Mechanism)
	}
}
