//go:build !linux

package proc

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// FindByName lists processes via ps and filters on the command name. Used
// on platforms without /proc; Windows has neither and fails naturally when
// ps is absent.
func FindByName(name string) ([]Process, error) {
	out, err := exec.Command("ps", "-axo", "pid=,command=").Output()
	if err != nil {
		return nil, fmt.Errorf("%w: running ps: %v", ErrUnsupported, err)
	}

	var procs []Process
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		command := strings.Join(fields[1:], " ")
		base := fields[1]
		if i := strings.LastIndex(base, "/"); i >= 0 {
			base = base[i+1:]
		}
		if base != name {
			continue
		}
		procs = append(procs, Process{PID: pid, Command: command})
	}
	return procs, nil
}

// Cwd is unavailable without /proc.
func Cwd(pid int) (string, error) {
	return "", fmt.Errorf("%w: cwd lookup for pid %d", ErrUnsupported, pid)
}

// IsRunning probes the pid with a no-op signal via kill.
func IsRunning(pid int) bool {
	return exec.Command("kill", "-0", strconv.Itoa(pid)).Run() == nil
}

// Kill sends SIGTERM via the kill command.
func Kill(pid int) error {
	if err := exec.Command("kill", "-TERM", strconv.Itoa(pid)).Run(); err != nil {
		return fmt.Errorf("terminating pid %d: %w", pid, err)
	}
	return nil
}

// TerminalFor has no portable implementation without /proc.
func TerminalFor(pid int) *TerminalInfo {
	return nil
}
