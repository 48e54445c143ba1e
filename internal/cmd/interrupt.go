package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/bullhorn/internal/style"
)

func init() {
	rootCmd.AddCommand(interruptCmd)
}

var interruptCmd = &cobra.Command{
	Use:   "interrupt <worker>",
	Short: "Send Ctrl-C to a tmux worker",
	Long: `Sends the C-c key into the worker's tmux session, interrupting
whatever the agent is currently doing without killing the session.`,
	Args: cobra.ExactArgs(1),
	RunE: runInterrupt,
}

func runInterrupt(cmd *cobra.Command, args []string) error {
	coord, _, done, err := newCoordinator()
	if err != nil {
		return err
	}
	defer done()

	if err := coord.Interrupt(args[0]); err != nil {
		return err
	}
	fmt.Printf("%s interrupted\n", style.Accent.Render(args[0]))
	return nil
}
