package claude

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/steveyegge/bullhorn/internal/proc"
)

// ErrNoRunningSession means no live process could be matched to the
// requested session id.
var ErrNoRunningSession = errors.New("no running process for session")

// agentProcessName is the binary name the mapper looks for.
const agentProcessName = "claude"

// RunningSession joins an on-disk session to the live process serving it.
type RunningSession struct {
	SessionID   string
	PID         int
	ProjectPath string
	Command     string
	// Terminal is diagnostic: which emulator/multiplexer owns the
	// process's terminal, nil when unknown or not a terminal.
	Terminal *proc.TerminalInfo
}

// MapRunningSessions enumerates live agent processes and matches each to a
// session log by working directory. Processes whose cwd matches no known
// session are omitted.
func (d *Detector) MapRunningSessions() ([]RunningSession, error) {
	procs, err := proc.FindByName(agentProcessName)
	if err != nil {
		return nil, fmt.Errorf("enumerating %s processes: %w", agentProcessName, err)
	}

	var mapped []RunningSession
	for _, p := range procs {
		cwd, err := proc.Cwd(p.PID)
		if err != nil {
			continue
		}
		sessionID := d.sessionForCwd(cwd)
		if sessionID == "" {
			continue
		}
		mapped = append(mapped, RunningSession{
			SessionID:   sessionID,
			PID:         p.PID,
			ProjectPath: cwd,
			Command:     p.Command,
			Terminal:    proc.TerminalFor(p.PID),
		})
	}
	return mapped, nil
}

// FindRunningSession returns the live process behind a session id.
func (d *Detector) FindRunningSession(sessionID string) (*RunningSession, error) {
	sessions, err := d.MapRunningSessions()
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].SessionID == sessionID {
			return &sessions[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoRunningSession, sessionID)
}

// sessionForCwd finds the session whose transcript mentions the working
// directory. Transcripts record cwd on most lines, so a substring scan is
// reliable enough for matching.
func (d *Detector) sessionForCwd(cwd string) string {
	projectsDir := filepath.Join(d.claudeDir, "projects")
	projects, err := os.ReadDir(projectsDir)
	if err != nil {
		return ""
	}
	for _, project := range projects {
		if !project.IsDir() {
			continue
		}
		projectDir := filepath.Join(projectsDir, project.Name())
		logs, err := os.ReadDir(projectDir)
		if err != nil {
			continue
		}
		for _, logEntry := range logs {
			if logEntry.IsDir() || filepath.Ext(logEntry.Name()) != ".jsonl" {
				continue
			}
			data, err := os.ReadFile(filepath.Join(projectDir, logEntry.Name()))
			if err != nil {
				continue
			}
			if strings.Contains(string(data), cwd) {
				return strings.TrimSuffix(logEntry.Name(), ".jsonl")
			}
		}
	}
	return ""
}
