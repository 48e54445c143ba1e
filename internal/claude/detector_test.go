package claude

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeLog writes a session transcript under a fake claude dir.
func writeLog(t *testing.T, claudeDir, projectID, sessionID string, lines []string) string {
	t.Helper()
	dir := filepath.Join(claudeDir, "projects", projectID)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, sessionID+".jsonl")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestListProjectsEmpty(t *testing.T) {
	d := NewDetectorAt(t.TempDir())
	projects, err := d.ListProjects()
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestProjectSessions(t *testing.T) {
	claudeDir := t.TempDir()
	writeLog(t, claudeDir, "-home-user-proj", "abc-123", []string{
		`{"type":"summary","model":"claude-opus-4"}`,
		`{"cwd":"/home/user/proj","message":{"role":"user","content":"fix the login bug"}}`,
	})

	d := NewDetectorAt(claudeDir)
	sessions, err := d.ProjectSessions("-home-user-proj")
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	s := sessions[0]
	assert.Equal(t, "abc-123", s.SessionID)
	assert.Equal(t, "/home/user/proj", s.ProjectPath)
	assert.Equal(t, "fix the login bug", s.FirstMessage)
	assert.Equal(t, "claude-opus-4", s.Model)
	assert.False(t, s.CreatedAt.IsZero())
}

func TestFirstMessageSkipsPseudoMessages(t *testing.T) {
	claudeDir := t.TempDir()
	writeLog(t, claudeDir, "-p", "s1", []string{
		`{"cwd":"/p","message":{"role":"user","content":"Caveat: The messages below were generated by the user while running local commands"}}`,
		`{"message":{"role":"user","content":"<command-name>ls</command-name>"}}`,
		`{"message":{"role":"assistant","content":"hi"}}`,
		`{"message":{"role":"user","content":"real question"}}`,
	})

	d := NewDetectorAt(claudeDir)
	sessions, err := d.ProjectSessions("-p")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "real question", sessions[0].FirstMessage)
}

func TestFirstMessageArrayContent(t *testing.T) {
	claudeDir := t.TempDir()
	writeLog(t, claudeDir, "-p", "s1", []string{
		`{"cwd":"/p","message":{"role":"user","content":[{"type":"text","text":"part one"},{"type":"text","text":"part two"}]}}`,
	})

	d := NewDetectorAt(claudeDir)
	sessions, err := d.ProjectSessions("-p")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "part one\npart two", sessions[0].FirstMessage)
}

func TestProjectPathFallbackDecoding(t *testing.T) {
	claudeDir := t.TempDir()
	// No line carries cwd, so the encoded directory name is decoded.
	writeLog(t, claudeDir, "-home-user-proj", "s1", []string{
		`{"message":{"role":"assistant","content":"hello"}}`,
	})

	d := NewDetectorAt(claudeDir)
	sessions, err := d.ProjectSessions("-home-user-proj")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "/home/user/proj", sessions[0].ProjectPath)
}

func TestAllSessions(t *testing.T) {
	claudeDir := t.TempDir()
	writeLog(t, claudeDir, "-p1", "s1", []string{`{"cwd":"/p1"}`})
	writeLog(t, claudeDir, "-p2", "s2", []string{`{"cwd":"/p2"}`})
	writeLog(t, claudeDir, "-p2", "s3", []string{`{"cwd":"/p2"}`})

	d := NewDetectorAt(claudeDir)
	all, err := d.AllSessions()
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Len(t, all["-p1"], 1)
	assert.Len(t, all["-p2"], 2)
}

func TestSessionForCwd(t *testing.T) {
	claudeDir := t.TempDir()
	writeLog(t, claudeDir, "-p1", "session-one", []string{`{"cwd":"/work/alpha"}`})
	writeLog(t, claudeDir, "-p2", "session-two", []string{`{"cwd":"/work/beta"}`})

	d := NewDetectorAt(claudeDir)
	assert.Equal(t, "session-two", d.sessionForCwd("/work/beta"))
	assert.Equal(t, "", d.sessionForCwd("/work/gamma"))
}
