//go:build linux

package proc

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProcEntry writes a /proc-shaped entry for pid.
func fakeProcEntry(t *testing.T, root string, pid int, argv []string, ppid int) {
	t.Helper()
	dir := filepath.Join(root, fmt.Sprint(pid))
	require.NoError(t, os.MkdirAll(dir, 0o755))

	cmdline := ""
	for _, a := range argv {
		cmdline += a + "\x00"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cmdline"), []byte(cmdline), 0o444))

	status := fmt.Sprintf("Name:\t%s\nPid:\t%d\nPPid:\t%d\n", argv[0], pid, ppid)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "status"), []byte(status), 0o444))
}

func withFakeProc(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	old := procRoot
	procRoot = root
	t.Cleanup(func() { procRoot = old })
	return root
}

func TestFindByName(t *testing.T) {
	root := withFakeProc(t)
	fakeProcEntry(t, root, 100, []string{"/usr/local/bin/claude", "--resume"}, 50)
	fakeProcEntry(t, root, 101, []string{"claude"}, 50)
	fakeProcEntry(t, root, 102, []string{"/usr/bin/claude-backup-tool"}, 50)
	fakeProcEntry(t, root, 103, []string{"/bin/bash"}, 1)

	procs, err := FindByName("claude")
	require.NoError(t, err)
	require.Len(t, procs, 2)

	pids := []int{procs[0].PID, procs[1].PID}
	assert.ElementsMatch(t, []int{100, 101}, pids)
}

func TestFindByNameNoMatches(t *testing.T) {
	root := withFakeProc(t)
	fakeProcEntry(t, root, 100, []string{"/bin/bash"}, 1)

	procs, err := FindByName("claude")
	require.NoError(t, err)
	assert.Empty(t, procs)
}

func TestTerminalFor(t *testing.T) {
	root := withFakeProc(t)
	fakeProcEntry(t, root, 200, []string{"/usr/bin/alacritty"}, 1)
	fakeProcEntry(t, root, 201, []string{"claude"}, 200)

	info := TerminalFor(201)
	require.NotNil(t, info)
	assert.Equal(t, 200, info.TerminalPID)
	assert.Equal(t, "alacritty", info.TerminalName)
	assert.Contains(t, info.TerminalCmd, "alacritty")
}

func TestTerminalForNonTerminalParent(t *testing.T) {
	root := withFakeProc(t)
	fakeProcEntry(t, root, 300, []string{"/usr/sbin/sshd"}, 1)
	fakeProcEntry(t, root, 301, []string{"claude"}, 300)

	assert.Nil(t, TerminalFor(301))
}

func TestTerminalForMissingProcess(t *testing.T) {
	withFakeProc(t)
	assert.Nil(t, TerminalFor(9999))
}

func TestIsRunningSelf(t *testing.T) {
	assert.True(t, IsRunning(os.Getpid()))
}

func TestMatchTerminal(t *testing.T) {
	assert.Equal(t, "tmux", matchTerminal("tmux new-session -d"))
	assert.Equal(t, "code", matchTerminal("/usr/share/code/code --type=ptyHost"))
	assert.Equal(t, "", matchTerminal("/usr/sbin/sshd -D"))
}
