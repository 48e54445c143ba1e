package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/bullhorn/internal/registry"
	"github.com/steveyegge/bullhorn/internal/style"
)

var (
	workersAgentFlag   string
	workersStatusFlag  string
	workersCleanupFlag bool
)

func init() {
	rootCmd.AddCommand(workersCmd)
	workersCmd.AddCommand(workersMarkCmd)
	workersCmd.Flags().StringVar(&workersAgentFlag, "agent", "", "Show only workers of this agent type")
	workersCmd.Flags().StringVar(&workersStatusFlag, "status", "", "Show only workers with this status")
	workersCmd.Flags().BoolVar(&workersCleanupFlag, "cleanup", false, "Remove stopped workers from the registry first")
}

var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "List registered workers",
	RunE:  runWorkers,
}

var workersMarkCmd = &cobra.Command{
	Use:   "mark <worker> <status>",
	Short: "Set a worker's lifecycle status",
	Long: `Updates the worker's registry status. Orchestrators use this to
record lifecycle transitions the registry cannot observe on its own,
e.g. marking a worker idle when it reports its task finished.

Valid statuses: starting, ready, working, idle, error, stopped.`,
	Args: cobra.ExactArgs(2),
	RunE: runWorkersMark,
}

func runWorkersMark(cmd *cobra.Command, args []string) error {
	name := args[0]
	status, err := parseStatus(args[1])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := openRegistry(cfg)
	if err != nil {
		return err
	}
	if !reg.Exists(name) {
		return fmt.Errorf("worker not registered: %s", name)
	}
	if err := reg.UpdateStatus(name, status); err != nil {
		return err
	}
	fmt.Printf("%s marked %s\n", style.Accent.Render(name), status.Label())
	return nil
}

func runWorkers(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := openRegistry(cfg)
	if err != nil {
		return err
	}

	if workersCleanupFlag {
		removed, err := reg.CleanupStopped()
		if err != nil {
			return err
		}
		if removed > 0 {
			fmt.Printf("removed %d stopped worker(s)\n", removed)
		}
	}

	var workers []registry.WorkerInfo
	switch {
	case workersAgentFlag != "":
		workers = reg.ListByAgent(workersAgentFlag)
	case workersStatusFlag != "":
		status, err := parseStatus(workersStatusFlag)
		if err != nil {
			return err
		}
		workers = reg.ListByStatus(status)
	default:
		workers = reg.ListAll()
	}

	if len(workers) == 0 {
		fmt.Println(style.Muted.Render("no workers registered"))
		return nil
	}

	tbl := style.NewTable(
		style.Column{Name: "NAME", Width: 16},
		style.Column{Name: "AGENT", Width: 10},
		style.Column{Name: "MECHANISM", Width: 9},
		style.Column{Name: "STATUS", Width: 10},
		style.Column{Name: "MSGS", Width: 5, Align: style.AlignRight},
		style.Column{Name: "AGE", Width: 5, Align: style.AlignRight},
		style.Column{Name: "TASK", Width: 12},
	)
	colorize := style.IsTTY()
	for _, w := range workers {
		statusCell := w.Status.Label()
		if colorize {
			statusCell = style.StatusStyle(string(w.Status)).Render(statusCell)
		}
		tbl.AddRow(
			w.Name,
			w.AgentType,
			string(w.Mechanism),
			statusCell,
			fmt.Sprintf("%d", w.MessagesSent),
			age(w.SpawnedAt),
			w.TaskID,
		)
	}
	fmt.Print(tbl.Render())
	return nil
}
