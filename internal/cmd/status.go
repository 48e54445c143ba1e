package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/bullhorn/internal/style"
	"github.com/steveyegge/bullhorn/internal/tmux"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show delivery mechanism health and worker liveness",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("agent command: %s\n", style.Muted.Render(fmt.Sprintf("%v", cfg.AgentCommand())))

	spawner := tmux.NewSpawner(cfg.AgentCommand()...)
	if spawner.IsAvailable() {
		fmt.Printf("tmux: %s\n", style.Success.Render("available"))
	} else {
		fmt.Printf("tmux: %s\n", style.Error.Render("not found"))
	}

	coord, reg, done, err := newCoordinator()
	if err != nil {
		return err
	}
	defer done()

	workers := reg.ListAll()
	fmt.Printf("workers: %d registered\n", len(workers))
	if len(workers) == 0 {
		return nil
	}

	tbl := style.NewTable(
		style.Column{Name: "NAME", Width: 16},
		style.Column{Name: "MECHANISM", Width: 9},
		style.Column{Name: "STATUS", Width: 10},
		style.Column{Name: "ALIVE", Width: 5},
	)
	for _, w := range workers {
		aliveLabel := "?"
		if alive, err := coord.Alive(w.Name); err == nil {
			if alive {
				aliveLabel = "yes"
			} else {
				aliveLabel = "no"
			}
		}
		tbl.AddRow(w.Name, string(w.Mechanism), w.Status.Label(), aliveLabel)
	}
	fmt.Print(tbl.Render())
	return nil
}
