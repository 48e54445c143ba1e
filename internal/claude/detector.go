// Package claude discovers Claude Code sessions by scanning the on-disk
// conversation logs under ~/.claude/projects.
//
// This is a read-only data source: each project directory holds one JSONL
// transcript per session, and the detector recovers session metadata
// (project path, first user message, model) from them. Nothing here touches
// live processes; see the mapper for joining sessions to running PIDs.
package claude

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Session is the metadata recovered for one conversation log.
type Session struct {
	SessionID    string
	ProjectID    string
	ProjectPath  string
	CreatedAt    time.Time
	FirstMessage string
	Model        string
	LogPath      string
}

// Detector scans a Claude home directory for session logs.
type Detector struct {
	claudeDir string
}

// NewDetector returns a detector rooted at ~/.claude.
func NewDetector() (*Detector, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}
	return NewDetectorAt(filepath.Join(home, ".claude")), nil
}

// NewDetectorAt returns a detector rooted at an explicit directory.
func NewDetectorAt(dir string) *Detector {
	return &Detector{claudeDir: dir}
}

// ListProjects returns the encoded project directory names.
func (d *Detector) ListProjects() ([]string, error) {
	projectsDir := filepath.Join(d.claudeDir, "projects")
	entries, err := os.ReadDir(projectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", projectsDir, err)
	}

	var projects []string
	for _, e := range entries {
		if e.IsDir() {
			projects = append(projects, e.Name())
		}
	}
	return projects, nil
}

// ProjectSessions returns all sessions recorded for a project, newest
// first.
func (d *Detector) ProjectSessions(projectID string) ([]Session, error) {
	projectDir := filepath.Join(d.claudeDir, "projects", projectID)
	entries, err := os.ReadDir(projectDir)
	if err != nil {
		return nil, fmt.Errorf("reading project %s: %w", projectID, err)
	}

	projectPath := d.projectPathFromLogs(projectDir)
	if projectPath == "" {
		projectPath = decodeProjectPath(projectID)
	}

	var sessions []Session
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		logPath := filepath.Join(projectDir, e.Name())

		createdAt := time.Time{}
		if info, err := e.Info(); err == nil {
			createdAt = info.ModTime()
		}

		firstMessage, model := extractFirstMessageAndModel(logPath)
		sessions = append(sessions, Session{
			SessionID:    strings.TrimSuffix(e.Name(), ".jsonl"),
			ProjectID:    projectID,
			ProjectPath:  projectPath,
			CreatedAt:    createdAt,
			FirstMessage: firstMessage,
			Model:        model,
			LogPath:      logPath,
		})
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// AllSessions returns every session across all projects, keyed by project
// id. Projects that fail to scan are skipped.
func (d *Detector) AllSessions() (map[string][]Session, error) {
	projects, err := d.ListProjects()
	if err != nil {
		return nil, err
	}

	all := make(map[string][]Session)
	for _, projectID := range projects {
		sessions, err := d.ProjectSessions(projectID)
		if err != nil || len(sessions) == 0 {
			continue
		}
		all[projectID] = sessions
	}
	return all, nil
}

// projectPathFromLogs pulls the real project path from the first log line
// carrying a cwd field.
func (d *Detector) projectPathFromLogs(projectDir string) string {
	entries, err := os.ReadDir(projectDir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		f, err := os.Open(filepath.Join(projectDir, e.Name()))
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLogLine)
		for scanner.Scan() {
			if cwd := gjson.GetBytes(scanner.Bytes(), "cwd"); cwd.Exists() {
				_ = f.Close()
				return cwd.String()
			}
		}
		_ = f.Close()
	}
	return ""
}

// decodeProjectPath is the lossy fallback when no log line carries a cwd:
// project directory names encode the path with dashes.
func decodeProjectPath(encoded string) string {
	return strings.ReplaceAll(encoded, "-", "/")
}

// maxLogLine bounds scanner buffers; transcript lines with embedded file
// contents can run to megabytes.
const maxLogLine = 8 * 1024 * 1024

// extractFirstMessageAndModel scans a transcript for the first real user
// message and the model name. System-generated pseudo-messages (caveat
// banners, command output) are skipped.
func extractFirstMessageAndModel(logPath string) (string, string) {
	f, err := os.Open(logPath)
	if err != nil {
		return "", ""
	}
	defer f.Close()

	var model string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLogLine)
	for scanner.Scan() {
		line := scanner.Bytes()

		if model == "" {
			if m := gjson.GetBytes(line, "model"); m.Exists() {
				model = m.String()
			}
		}

		if gjson.GetBytes(line, "message.role").String() != "user" {
			continue
		}
		content := gjson.GetBytes(line, "message.content")
		text := contentText(content)
		if text == "" {
			continue
		}
		if strings.Contains(text, "Caveat: The messages below were generated") {
			continue
		}
		if strings.HasPrefix(text, "<command-name>") {
			continue
		}
		return text, model
	}
	return "", model
}

// contentText flattens a message content field: either a plain string or
// an array of text blocks.
func contentText(content gjson.Result) string {
	switch {
	case content.Type == gjson.String:
		return content.String()
	case content.IsArray():
		var parts []string
		for _, block := range content.Array() {
			if t := block.Get("text"); t.Exists() {
				parts = append(parts, t.String())
			}
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}
