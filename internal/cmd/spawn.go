package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/bullhorn/internal/procman"
	"github.com/steveyegge/bullhorn/internal/style"
)

var (
	spawnAgentFlag     string
	spawnTaskFlag      string
	spawnDirFlag       string
	spawnMechanismFlag string
	spawnPromptFlag    string
	spawnPTYFlag       bool
)

func init() {
	rootCmd.AddCommand(spawnCmd)
	spawnCmd.Flags().StringVar(&spawnAgentFlag, "agent", "claude", "Agent type label recorded in the registry")
	spawnCmd.Flags().StringVar(&spawnTaskFlag, "task", "", "Task ID this worker is assigned to")
	spawnCmd.Flags().StringVarP(&spawnDirFlag, "dir", "d", "", "Working directory for the agent (default: current directory)")
	spawnCmd.Flags().StringVar(&spawnMechanismFlag, "mechanism", "tmux", "Delivery mechanism: tmux or process")
	spawnCmd.Flags().StringVar(&spawnPromptFlag, "prompt", "", "Initial prompt sent to the agent once it is up")
	spawnCmd.Flags().BoolVar(&spawnPTYFlag, "pty", false, "Allocate a pseudo-terminal (process mechanism only)")
}

var spawnCmd = &cobra.Command{
	Use:   "spawn <name>",
	Short: "Start a new agent worker and register it",
	Long: `Starts an agent session and records it in the worker registry under
the given name. Later sends address the worker by this name.

With --mechanism tmux (the default) the agent runs in a detached tmux
session named after the worker; attach to it with
'tmux attach-session -t <name>'. With --mechanism process the agent runs
as a direct child of this bullhorn process and dies with it, which is
only useful from long-running automation.

With --prompt the worker receives the prompt as its first instruction
(typed into the tmux session after it boots, or passed on the agent's
command line for process workers) and is registered as working; without
one it is registered as ready.

Examples:
  bullhorn spawn backend --task GT-142 --dir ~/src/api
  bullhorn spawn backend --prompt "read BUILD.md and fix the failing target"
  bullhorn spawn scratch --mechanism process --prompt "summarize TODO.md"`,
	Args: cobra.ExactArgs(1),
	RunE: runSpawn,
}

func runSpawn(cmd *cobra.Command, args []string) error {
	name := args[0]

	dir := spawnDirFlag
	if dir == "" {
		var err error
		if dir, err = os.Getwd(); err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}
	}

	coord, _, done, err := newCoordinator()
	if err != nil {
		return err
	}
	defer done()

	switch spawnMechanismFlag {
	case "tmux":
		if spawnPromptFlag != "" {
			fmt.Println(style.Muted.Render("waiting for the session to boot before sending the prompt..."))
		}
		if err := coord.SpawnTmux(name, spawnAgentFlag, spawnTaskFlag, dir, spawnPromptFlag); err != nil {
			return err
		}
		fmt.Printf("%s spawned in tmux session %s\n", style.Accent.Render(name), style.Muted.Render(name))
		fmt.Printf("attach with: tmux attach-session -t %s\n", name)
	case "process":
		var opts []procman.StartOption
		if spawnPTYFlag {
			opts = append(opts, procman.WithPTY())
		}
		if err := coord.SpawnProcess(name, spawnAgentFlag, spawnTaskFlag, dir, spawnPromptFlag, opts...); err != nil {
			return err
		}
		fmt.Printf("%s spawned as child process\n", style.Accent.Render(name))
	default:
		return fmt.Errorf("unknown mechanism %q (want tmux or process)", spawnMechanismFlag)
	}
	return nil
}
