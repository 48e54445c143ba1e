// Package cmd provides the bullhorn CLI commands.
package cmd

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// Version is the bullhorn release version, overridden at build time with
// -ldflags "-X .../internal/cmd.Version=...".
var Version = "dev"

var debugFlag bool

var rootCmd = &cobra.Command{
	Use:     "bullhorn",
	Short:   "Inject messages into running AI agent sessions",
	Version: Version,
	Long: `Bullhorn delivers text into running interactive AI agent sessions
(Claude Code and similar) without the agent polling for anything.

Three delivery mechanisms are supported:
  process   agents spawned by bullhorn itself, fed through a stdin pipe
  terminal  foreign processes, reached by forging keystrokes on their
            controlling terminal (Linux TIOCSTI)
  tmux      agents running in detached tmux sessions, via send-keys

Workers are tracked in ~/.bullhorn/workers.json so later invocations can
address them by name.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debugFlag {
			log.SetLevel(log.DebugLevel)
		}
	},
	SilenceUsage: true,
}

// Execute runs the root command and returns an exit code for main.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
}
