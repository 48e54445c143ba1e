//go:build linux

package proc

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"syscall"
)

// procRoot is swapped by tests.
var procRoot = "/proc"

// FindByName scans /proc/*/cmdline and returns processes whose argv[0]
// basename matches name exactly.
func FindByName(name string) ([]Process, error) {
	entries, err := filepath.Glob(filepath.Join(procRoot, "[0-9]*", "cmdline"))
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", procRoot, err)
	}

	re, err := regexp.Compile(`(^|/)` + regexp.QuoteMeta(name) + `$`)
	if err != nil {
		return nil, fmt.Errorf("compiling process name pattern: %w", err)
	}

	var procs []Process
	for _, entry := range entries {
		data, err := os.ReadFile(entry)
		if err != nil {
			continue // process vanished mid-scan
		}
		// cmdline is NUL-delimited; argv[0] is the binary path.
		args := strings.Split(string(data), "\x00")
		if len(args) == 0 || !re.MatchString(args[0]) {
			continue
		}
		pid, err := strconv.Atoi(filepath.Base(filepath.Dir(entry)))
		if err != nil {
			continue
		}
		procs = append(procs, Process{
			PID:     pid,
			Command: strings.TrimRight(strings.ReplaceAll(string(data), "\x00", " "), " "),
		})
	}
	return procs, nil
}

// Cwd returns the process's current working directory.
func Cwd(pid int) (string, error) {
	target, err := os.Readlink(filepath.Join(procRoot, strconv.Itoa(pid), "cwd"))
	if err != nil {
		return "", fmt.Errorf("reading cwd of pid %d: %w", pid, err)
	}
	return target, nil
}

// IsRunning reports whether the pid names a live process we may signal.
func IsRunning(pid int) bool {
	// Signal 0 performs the permission and existence checks only.
	err := syscall.Kill(pid, 0)
	return err == nil || err == syscall.EPERM
}

// Kill sends SIGTERM to the process.
func Kill(pid int) error {
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("terminating pid %d: %w", pid, err)
	}
	return nil
}

// TerminalFor walks one step up the process tree and reports the parent if
// it is a recognized terminal emulator or multiplexer. Returns nil when the
// parent is not a terminal, which tells callers not to bother attempting
// terminal-device injection.
func TerminalFor(pid int) *TerminalInfo {
	ppid, err := parentPID(pid)
	if err != nil {
		return nil
	}
	raw, err := os.ReadFile(filepath.Join(procRoot, strconv.Itoa(ppid), "cmdline"))
	if err != nil {
		return nil
	}
	parentCmd := strings.TrimSpace(strings.ReplaceAll(string(raw), "\x00", " "))

	name := matchTerminal(parentCmd)
	if name == "" {
		return nil
	}
	return &TerminalInfo{
		TerminalPID:  ppid,
		TerminalName: name,
		TerminalCmd:  parentCmd,
	}
}

// parentPID reads PPid from /proc/<pid>/status.
func parentPID(pid int) (int, error) {
	data, err := os.ReadFile(filepath.Join(procRoot, strconv.Itoa(pid), "status"))
	if err != nil {
		return 0, fmt.Errorf("reading status of pid %d: %w", pid, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if after, found := strings.CutPrefix(line, "PPid:"); found {
			ppid, err := strconv.Atoi(strings.TrimSpace(after))
			if err != nil {
				return 0, fmt.Errorf("parsing PPid of pid %d: %w", pid, err)
			}
			return ppid, nil
		}
	}
	return 0, fmt.Errorf("no PPid entry for pid %d", pid)
}
