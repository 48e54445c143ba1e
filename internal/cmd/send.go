package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/bullhorn/internal/style"
)

var (
	sendKindFlag     string
	sendProgressFlag int
	sendQueueFlag    bool
)

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&sendKindFlag, "kind", "k", "context", "Payload kind: context, warning, block, completion, progress, prompt")
	sendCmd.Flags().IntVar(&sendProgressFlag, "progress", 0, "Percentage for progress payloads")
	sendCmd.Flags().BoolVarP(&sendQueueFlag, "queue", "q", false, "Queue the message instead of delivering now")
}

var sendCmd = &cobra.Command{
	Use:   "send <worker> <message>",
	Short: "Deliver a message into a worker's session",
	Long: `Renders the message with the chosen payload template and delivers it
into the worker's session by whatever mechanism the worker was spawned
with. The agent sees it exactly as if a human had typed it.

Examples:
  bullhorn send backend "auth service deployed to staging"
  bullhorn send backend -k warning "CI is red on main"
  bullhorn send backend -k progress --progress 80 "migration nearly done"
  bullhorn send backend -k prompt "run the test suite again"`,
	Args: cobra.ExactArgs(2),
	RunE: runSend,
}

func runSend(cmd *cobra.Command, args []string) error {
	name, message := args[0], args[1]

	p, err := buildPayload(sendKindFlag, message, sendProgressFlag)
	if err != nil {
		return err
	}

	coord, _, done, err := newCoordinator()
	if err != nil {
		return err
	}
	defer done()

	if sendQueueFlag {
		if err := coord.Queue(name, p); err != nil {
			return err
		}
		fmt.Printf("queued for %s\n", style.Accent.Render(name))
		return nil
	}

	if err := coord.Send(name, p); err != nil {
		return err
	}
	fmt.Printf("%s %s\n", style.Success.Render("delivered to"), style.Accent.Render(name))
	return nil
}
