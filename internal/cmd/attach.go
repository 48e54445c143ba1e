package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/steveyegge/bullhorn/internal/proc"
	"github.com/steveyegge/bullhorn/internal/style"
)

var (
	attachAgentFlag string
	attachTaskFlag  string
)

func init() {
	rootCmd.AddCommand(attachCmd)
	attachCmd.Flags().StringVar(&attachAgentFlag, "agent", "claude", "Agent type label recorded in the registry")
	attachCmd.Flags().StringVar(&attachTaskFlag, "task", "", "Task ID this worker is assigned to")
}

var attachCmd = &cobra.Command{
	Use:   "attach <name> <pid>",
	Short: "Register an already-running agent as a terminal worker",
	Long: `Registers a foreign agent process (not spawned by bullhorn) as a
worker. Messages are delivered by forging keystrokes on the process's
controlling terminal, so the process must be attached to a pty and this
user must be able to write to it. Use 'bullhorn ps' to find candidate
processes.

Terminal forging relies on the TIOCSTI ioctl, which Linux 6.2+ may
disable (sysctl legacy_tiocsti). When that is the case sends fail with
an unsupported-mechanism error rather than silently dropping text.`,
	Args: cobra.ExactArgs(2),
	RunE: runAttach,
}

func runAttach(cmd *cobra.Command, args []string) error {
	name := args[0]
	pid, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid pid %q", args[1])
	}

	workDir, err := proc.Cwd(pid)
	if err != nil {
		workDir = ""
	}

	coord, _, done, err := newCoordinator()
	if err != nil {
		return err
	}
	defer done()

	if err := coord.AttachTerminal(name, attachAgentFlag, attachTaskFlag, pid, workDir); err != nil {
		return err
	}
	fmt.Printf("%s attached to pid %d\n", style.Accent.Render(name), pid)
	return nil
}
