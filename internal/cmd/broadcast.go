package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/bullhorn/internal/style"
)

var (
	broadcastKindFlag     string
	broadcastProgressFlag int
)

func init() {
	rootCmd.AddCommand(broadcastCmd)
	broadcastCmd.Flags().StringVarP(&broadcastKindFlag, "kind", "k", "context", "Payload kind: context, warning, block, completion, progress, prompt")
	broadcastCmd.Flags().IntVar(&broadcastProgressFlag, "progress", 0, "Percentage for progress payloads")
}

var broadcastCmd = &cobra.Command{
	Use:   "broadcast <message>",
	Short: "Deliver a message to every registered worker",
	Long: `Sends the message to all workers in the registry. Delivery is
best-effort: workers whose sessions have died are skipped with a
warning, and the command reports who actually received it.`,
	Args: cobra.ExactArgs(1),
	RunE: runBroadcast,
}

func runBroadcast(cmd *cobra.Command, args []string) error {
	p, err := buildPayload(broadcastKindFlag, args[0], broadcastProgressFlag)
	if err != nil {
		return err
	}

	coord, reg, done, err := newCoordinator()
	if err != nil {
		return err
	}
	defer done()

	total := reg.Count()
	succeeded := coord.Broadcast(p)
	if len(succeeded) == 0 {
		fmt.Println(style.Warn.Render("no workers reached"))
		return nil
	}
	fmt.Printf("delivered to %d/%d workers: %s\n",
		len(succeeded), total, strings.Join(succeeded, ", "))
	return nil
}
