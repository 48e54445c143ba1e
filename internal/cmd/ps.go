package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/bullhorn/internal/claude"
	"github.com/steveyegge/bullhorn/internal/style"
)

func init() {
	rootCmd.AddCommand(psCmd)
}

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List running agent processes and their sessions",
	Long: `Scans the process table for running agent processes and joins each
one to its Claude session log by working directory. The PID column is
what 'bullhorn attach' wants; the TERMINAL column shows which emulator
(if any) is hosting the process.`,
	RunE: runPS,
}

func runPS(cmd *cobra.Command, args []string) error {
	detector, err := claude.NewDetector()
	if err != nil {
		return err
	}

	running, err := detector.MapRunningSessions()
	if err != nil {
		return err
	}
	if len(running) == 0 {
		fmt.Println(style.Muted.Render("no running agent processes found"))
		return nil
	}

	tbl := style.NewTable(
		style.Column{Name: "PID", Width: 8, Align: style.AlignRight},
		style.Column{Name: "SESSION", Width: 38},
		style.Column{Name: "PROJECT", Width: 32},
		style.Column{Name: "TERMINAL", Width: 12},
	)
	for _, rs := range running {
		term := "-"
		if rs.Terminal != nil {
			term = rs.Terminal.TerminalName
		}
		session := rs.SessionID
		if session == "" {
			session = "-"
		}
		tbl.AddRow(fmt.Sprintf("%d", rs.PID), session, rs.ProjectPath, term)
	}
	fmt.Print(tbl.Render())
	return nil
}
