package cmd

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/steveyegge/bullhorn/internal/style"
)

var stopAllFlag bool

func init() {
	rootCmd.AddCommand(stopCmd)
	stopCmd.Flags().BoolVar(&stopAllFlag, "all", false, "Stop every registered worker")
}

var stopCmd = &cobra.Command{
	Use:   "stop [worker]",
	Short: "Stop a worker's session and mark it stopped",
	Long: `Kills the worker's tmux session or child process and marks the
registry entry stopped. Terminal workers were never bullhorn's to kill,
so they are only marked stopped. The entry stays in the registry until
'bullhorn workers --cleanup' removes it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	coord, reg, done, err := newCoordinator()
	if err != nil {
		return err
	}
	defer done()

	if stopAllFlag {
		stopped := 0
		for _, w := range reg.ListAll() {
			if err := coord.Stop(w.Name); err != nil {
				log.Warn("could not stop worker", "worker", w.Name, "error", err)
				continue
			}
			stopped++
		}
		fmt.Printf("stopped %d worker(s)\n", stopped)
		return nil
	}

	if len(args) != 1 {
		return fmt.Errorf("worker name required (or --all)")
	}
	if err := coord.Stop(args[0]); err != nil {
		return err
	}
	fmt.Printf("%s stopped\n", style.Accent.Render(args[0]))
	return nil
}
