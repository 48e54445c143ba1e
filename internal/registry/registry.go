// Package registry persists the set of known workers.
//
// The registry is a single JSON snapshot file, by default
// ~/.bullhorn/workers.json, mapping worker name to WorkerInfo. Load reads
// the whole file into memory; every mutating call rewrites the whole file.
//
// The file is shared between independent bullhorn invocations with NO
// locking and NO atomic rename: two processes mutating concurrently can
// lose each other's writes (last-writer-wins at whole-snapshot
// granularity), and a crash mid-write can corrupt the file. This is the
// documented contract. The registry is a metadata cache and must be
// treated as eventually-consistent with respect to actual process and
// session liveness; it never polls the underlying sessions.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// ErrRegistry wraps persisted-state read/write failures.
var ErrRegistry = errors.New("worker registry")

// Status is a worker lifecycle state. Transitions are caller-driven; the
// registry never infers state from session liveness.
type Status string

const (
	StatusStarting Status = "starting"
	StatusReady    Status = "ready"
	StatusWorking  Status = "working"
	StatusIdle     Status = "idle"
	StatusError    Status = "error"
	StatusStopped  Status = "stopped"
)

// Label returns the human-readable form of a status. Unknown values render
// as "unknown(<raw>)" so a registry written by a newer version still lists.
func (s Status) Label() string {
	switch s {
	case StatusStarting:
		return "starting"
	case StatusReady:
		return "ready"
	case StatusWorking:
		return "working"
	case StatusIdle:
		return "idle"
	case StatusError:
		return "error"
	case StatusStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%s)", string(s))
	}
}

// Mechanism identifies which injection path owns a worker.
type Mechanism string

const (
	// MechanismProcess workers are direct children with piped stdin.
	MechanismProcess Mechanism = "process"
	// MechanismTerminal workers are foreign processes reached by forging
	// keystrokes on their controlling terminal.
	MechanismTerminal Mechanism = "terminal"
	// MechanismTmux workers live in detached tmux sessions.
	MechanismTmux Mechanism = "tmux"
)

// WorkerInfo is the persisted record for one logical worker.
type WorkerInfo struct {
	Name          string    `json:"name"`
	AgentType     string    `json:"agent_type"`
	TaskID        string    `json:"task_id,omitempty"`
	SessionHandle string    `json:"session_handle"`
	Mechanism     Mechanism `json:"mechanism"`
	WorkingDir    string    `json:"working_dir"`
	SpawnedAt     int64     `json:"spawned_at"`
	Status        Status    `json:"status"`
	MessagesSent  int       `json:"messages_sent"`
}

// Registry is an in-memory snapshot of the worker file.
type Registry struct {
	path    string
	workers map[string]WorkerInfo
}

// DefaultPath returns the registry file location under the user's home.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%w: resolving home directory: %v", ErrRegistry, err)
	}
	return filepath.Join(home, ".bullhorn", "workers.json"), nil
}

// Load reads the snapshot at path into memory. A missing file is an empty
// registry. An unparseable file is treated as empty too (mid-write crash
// corruption) and logged; any other read failure is an error.
func Load(path string) (*Registry, error) {
	r := &Registry{path: path, workers: map[string]WorkerInfo{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrRegistry, path, err)
	}

	if err := json.Unmarshal(data, &r.workers); err != nil {
		log.Warn("worker registry is corrupt, starting empty", "path", path, "err", err)
		r.workers = map[string]WorkerInfo{}
	}
	return r, nil
}

// save rewrites the whole snapshot. Deliberately not atomic; see the
// package comment.
func (r *Registry) save() error {
	data, err := json.MarshalIndent(r.workers, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshaling snapshot: %v", ErrRegistry, err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrRegistry, filepath.Dir(r.path), err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrRegistry, r.path, err)
	}
	return nil
}

// Register inserts a worker, overwriting any existing entry of the same
// name, and persists.
func (r *Registry) Register(w WorkerInfo) error {
	r.workers[w.Name] = w
	return r.save()
}

// Unregister removes a worker by name and persists. Removing an unknown
// name still rewrites the file and is not an error.
func (r *Registry) Unregister(name string) error {
	delete(r.workers, name)
	return r.save()
}

// UpdateStatus sets a worker's status and persists. Unknown names are a
// no-op: nothing is written and no error is returned.
func (r *Registry) UpdateStatus(name string, status Status) error {
	w, ok := r.workers[name]
	if !ok {
		return nil
	}
	w.Status = status
	r.workers[name] = w
	return r.save()
}

// IncrementMessages bumps a worker's message counter and persists. Unknown
// names are a no-op.
func (r *Registry) IncrementMessages(name string) error {
	w, ok := r.workers[name]
	if !ok {
		return nil
	}
	w.MessagesSent++
	r.workers[name] = w
	return r.save()
}

// Get returns the worker by name.
func (r *Registry) Get(name string) (WorkerInfo, bool) {
	w, ok := r.workers[name]
	return w, ok
}

// Exists reports whether a worker of the given name is registered.
func (r *Registry) Exists(name string) bool {
	_, ok := r.workers[name]
	return ok
}

// Count returns the number of registered workers.
func (r *Registry) Count() int {
	return len(r.workers)
}

// ListAll returns every registered worker.
func (r *Registry) ListAll() []WorkerInfo {
	out := make([]WorkerInfo, 0, len(r.workers))
	for _, w := range r.workers {
		out = append(out, w)
	}
	return out
}

// ListByAgent returns workers with the given agent type.
func (r *Registry) ListByAgent(agentType string) []WorkerInfo {
	var out []WorkerInfo
	for _, w := range r.workers {
		if w.AgentType == agentType {
			out = append(out, w)
		}
	}
	return out
}

// ListByStatus returns workers in the given status.
func (r *Registry) ListByStatus(status Status) []WorkerInfo {
	var out []WorkerInfo
	for _, w := range r.workers {
		if w.Status == status {
			out = append(out, w)
		}
	}
	return out
}

// FindIdle returns workers that are idle.
func (r *Registry) FindIdle() []WorkerInfo {
	return r.ListByStatus(StatusIdle)
}

// FindByTask returns the worker assigned to the given task, if any.
func (r *Registry) FindByTask(taskID string) (WorkerInfo, bool) {
	if taskID == "" {
		return WorkerInfo{}, false
	}
	for _, w := range r.workers {
		if w.TaskID == taskID {
			return w, true
		}
	}
	return WorkerInfo{}, false
}

// CleanupStopped removes every stopped worker and persists once. Returns
// the number removed.
func (r *Registry) CleanupStopped() (int, error) {
	removed := 0
	for name, w := range r.workers {
		if w.Status == StatusStopped {
			delete(r.workers, name)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, r.save()
}

// NewWorkerInfo builds a WorkerInfo stamped with the current time.
func NewWorkerInfo(name, agentType, taskID, sessionHandle string, mech Mechanism, workingDir string) WorkerInfo {
	return WorkerInfo{
		Name:          name,
		AgentType:     agentType,
		TaskID:        taskID,
		SessionHandle: sessionHandle,
		Mechanism:     mech,
		WorkingDir:    workingDir,
		SpawnedAt:     time.Now().Unix(),
		Status:        StatusStarting,
	}
}
