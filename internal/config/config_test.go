package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, "claude", cfg.Agent.Command)
	assert.Equal(t, []string{"--dangerously-skip-permissions"}, cfg.Agent.Args)
	assert.Empty(t, cfg.Registry.Path)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[agent]
command = "codex"
args = ["--full-auto"]

[registry]
path = "/tmp/workers.json"

[history]
path = "/tmp/history.db"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "codex", cfg.Agent.Command)
	assert.Equal(t, []string{"--full-auto"}, cfg.Agent.Args)
	assert.Equal(t, "/tmp/workers.json", cfg.Registry.Path)
	assert.Equal(t, "/tmp/history.db", cfg.History.Path)
}

func TestLoadEmptyCommandFallsBack(t *testing.T) {
	path := writeConfig(t, `
[agent]
command = ""
args = []
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "claude", cfg.Agent.Command)
	assert.Empty(t, cfg.Agent.Args)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
[agent]
comand = "claude"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "comand")
}

func TestLoadRejectsMalformedToml(t *testing.T) {
	path := writeConfig(t, `[agent`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestAgentCommand(t *testing.T) {
	cfg := Default()
	assert.Equal(t, []string{"claude", "--dangerously-skip-permissions"}, cfg.AgentCommand())
}
