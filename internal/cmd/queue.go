package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/bullhorn/internal/inject"
	"github.com/steveyegge/bullhorn/internal/style"
)

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueFlushCmd)
	queueCmd.AddCommand(queueClearCmd)
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and flush pending messages",
	Long: `Messages queued with 'bullhorn send --queue' wait in a per-worker
file until flushed. Flushing delivers them in order and stops at the
first failure, re-queueing whatever was not delivered.`,
}

var queueListCmd = &cobra.Command{
	Use:   "list <worker>",
	Short: "Show a worker's pending messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueList,
}

var queueFlushCmd = &cobra.Command{
	Use:   "flush <worker>",
	Short: "Deliver a worker's pending messages in order",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueFlush,
}

var queueClearCmd = &cobra.Command{
	Use:   "clear <worker>",
	Short: "Drop a worker's pending messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueClear,
}

func runQueueList(cmd *cobra.Command, args []string) error {
	coord, _, done, err := newCoordinator()
	if err != nil {
		return err
	}
	defer done()

	pending, err := coord.Pending(args[0])
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println(style.Muted.Render("queue is empty"))
		return nil
	}

	tbl := style.NewTable(
		style.Column{Name: "QUEUED", Width: 17},
		style.Column{Name: "KIND", Width: 12},
		style.Column{Name: "CONTENT", Width: 60},
	)
	for _, e := range pending {
		tbl.AddRow(
			time.UnixMilli(e.QueuedAt).Format("2006-01-02 15:04"),
			string(e.Payload.Kind),
			e.Payload.Content,
		)
	}
	fmt.Print(tbl.Render())
	return nil
}

func runQueueFlush(cmd *cobra.Command, args []string) error {
	coord, _, done, err := newCoordinator()
	if err != nil {
		return err
	}
	defer done()

	n, err := coord.Flush(args[0])
	if err != nil {
		return fmt.Errorf("delivered %d before failing: %w", n, err)
	}
	fmt.Printf("delivered %d message(s) to %s\n", n, style.Accent.Render(args[0]))
	return nil
}

func runQueueClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	qdir, err := queueDir(cfg)
	if err != nil {
		return err
	}
	if err := inject.NewQueue(qdir, args[0]).Clear(); err != nil {
		return err
	}
	fmt.Printf("queue cleared for %s\n", style.Accent.Render(args[0]))
	return nil
}
