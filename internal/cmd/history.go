package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/bullhorn/internal/history"
	"github.com/steveyegge/bullhorn/internal/style"
)

var (
	historyWorkerFlag string
	historyLimitFlag  int
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVarP(&historyWorkerFlag, "worker", "w", "", "Show only deliveries to this worker")
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 20, "Maximum rows to show")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent injection deliveries",
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path, err := historyPath(cfg)
	if err != nil {
		return err
	}
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	var records []history.Record
	if historyWorkerFlag != "" {
		if records, err = store.ByWorker(historyWorkerFlag); err != nil {
			return err
		}
		if len(records) > historyLimitFlag {
			records = records[:historyLimitFlag]
		}
	} else {
		if records, err = store.Recent(historyLimitFlag); err != nil {
			return err
		}
	}

	if len(records) == 0 {
		fmt.Println(style.Muted.Render("no deliveries recorded"))
		return nil
	}

	tbl := style.NewTable(
		style.Column{Name: "SENT", Width: 17},
		style.Column{Name: "WORKER", Width: 16},
		style.Column{Name: "VIA", Width: 8},
		style.Column{Name: "KIND", Width: 12},
		style.Column{Name: "CONTENT", Width: 50},
	)
	for _, r := range records {
		tbl.AddRow(
			r.SentAt.Format("2006-01-02 15:04"),
			r.Worker,
			r.Mechanism,
			r.Kind,
			r.Content,
		)
	}
	fmt.Print(tbl.Render())
	return nil
}
