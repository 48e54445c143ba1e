// Package config loads bullhorn's operator configuration from
// ~/.bullhorn/config.toml. Every field has a working default; a missing
// config file is not an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the top-level bullhorn configuration.
type Config struct {
	Agent    AgentConfig    `toml:"agent"`
	Registry RegistryConfig `toml:"registry"`
	History  HistoryConfig  `toml:"history"`
	Queue    QueueConfig    `toml:"queue"`
}

// AgentConfig controls which agent binary workers run.
type AgentConfig struct {
	// Command is the agent executable, e.g. "claude".
	Command string `toml:"command"`
	// Args are passed to every spawned agent. Automation flags such as
	// --dangerously-skip-permissions belong here.
	Args []string `toml:"args"`
}

// RegistryConfig overrides where the worker registry is persisted.
type RegistryConfig struct {
	Path string `toml:"path"`
}

// HistoryConfig overrides where the injection history database lives.
type HistoryConfig struct {
	Path string `toml:"path"`
}

// QueueConfig overrides where pending-injection queues live.
type QueueConfig struct {
	Dir string `toml:"dir"`
}

// Default returns configuration with all built-in defaults applied.
func Default() Config {
	return Config{
		Agent: AgentConfig{
			Command: "claude",
			Args:    []string{"--dangerously-skip-permissions"},
		},
	}
}

// DefaultPath returns ~/.bullhorn/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".bullhorn", "config.toml"), nil
}

// Load reads config from path, layering file values over defaults.
// A missing file returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("unknown key %q in %s", undecoded[0].String(), path)
	}
	if cfg.Agent.Command == "" {
		cfg.Agent.Command = Default().Agent.Command
	}
	return cfg, nil
}

// LoadDefault loads from DefaultPath.
func LoadDefault() (Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return Default(), err
	}
	return Load(path)
}

// AgentCommand returns the full agent command line (binary plus args).
func (c Config) AgentCommand() []string {
	return append([]string{c.Agent.Command}, c.Agent.Args...)
}
