package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/steveyegge/bullhorn/internal/config"
	"github.com/steveyegge/bullhorn/internal/history"
	"github.com/steveyegge/bullhorn/internal/payload"
	"github.com/steveyegge/bullhorn/internal/registry"
	"github.com/steveyegge/bullhorn/internal/worker"
)

// loadConfig reads ~/.bullhorn/config.toml, falling back to defaults.
func loadConfig() (config.Config, error) {
	return config.LoadDefault()
}

func registryPath(cfg config.Config) (string, error) {
	if cfg.Registry.Path != "" {
		return cfg.Registry.Path, nil
	}
	return registry.DefaultPath()
}

func historyPath(cfg config.Config) (string, error) {
	if cfg.History.Path != "" {
		return cfg.History.Path, nil
	}
	return history.DefaultPath()
}

func queueDir(cfg config.Config) (string, error) {
	if cfg.Queue.Dir != "" {
		return cfg.Queue.Dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".bullhorn", "queue"), nil
}

// openRegistry loads the worker registry honoring config overrides.
func openRegistry(cfg config.Config) (*registry.Registry, error) {
	path, err := registryPath(cfg)
	if err != nil {
		return nil, err
	}
	return registry.Load(path)
}

// newCoordinator wires the full delivery stack. History is best-effort: if
// the database cannot be opened, delivery still works and the failure is
// logged. The returned closer releases the history handle.
func newCoordinator() (*worker.Coordinator, *registry.Registry, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	reg, err := openRegistry(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	qdir, err := queueDir(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	var hist *history.Store
	closer := func() {}
	if hpath, herr := historyPath(cfg); herr == nil {
		if hist, herr = history.Open(hpath); herr != nil {
			log.Warn("history disabled", "error", herr)
			hist = nil
		} else {
			closer = func() { _ = hist.Close() }
		}
	}

	return worker.New(cfg, reg, hist, qdir), reg, closer, nil
}

// buildPayload converts --kind/--progress flags plus the message text into
// a payload.
func buildPayload(kind, message string, progress int) (payload.Payload, error) {
	switch kind {
	case "context":
		return payload.NewContext(message), nil
	case "warning":
		return payload.NewWarning(message), nil
	case "block":
		return payload.NewBlock(message), nil
	case "completion":
		return payload.NewCompletion(message, nil), nil
	case "progress":
		return payload.NewProgress(progress, message), nil
	case "prompt", "user_prompt":
		return payload.NewUserPrompt(message), nil
	default:
		return payload.Payload{}, fmt.Errorf("unknown payload kind %q (want context, warning, block, completion, progress, or prompt)", kind)
	}
}

// parseStatus validates a status name from the command line.
func parseStatus(s string) (registry.Status, error) {
	switch status := registry.Status(s); status {
	case registry.StatusStarting, registry.StatusReady, registry.StatusWorking,
		registry.StatusIdle, registry.StatusError, registry.StatusStopped:
		return status, nil
	default:
		return "", fmt.Errorf("unknown status %q (want starting, ready, working, idle, error, or stopped)", s)
	}
}

// age formats a unix timestamp as a compact elapsed-time string.
func age(unixSecs int64) string {
	if unixSecs == 0 {
		return "-"
	}
	d := time.Since(time.Unix(unixSecs, 0))
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
