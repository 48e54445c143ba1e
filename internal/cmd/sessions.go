package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/steveyegge/bullhorn/internal/claude"
	"github.com/steveyegge/bullhorn/internal/style"
)

var sessionsProjectFlag string

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.Flags().StringVarP(&sessionsProjectFlag, "project", "p", "", "Show only sessions for this project ID")
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List Claude session logs found on this machine",
	Long: `Reads ~/.claude/projects and lists every session log, newest first
per project, with the opening user message for orientation. This is
read-only discovery; nothing here touches a running session.`,
	RunE: runSessions,
}

func runSessions(cmd *cobra.Command, args []string) error {
	detector, err := claude.NewDetector()
	if err != nil {
		return err
	}

	byProject := map[string][]claude.Session{}
	if sessionsProjectFlag != "" {
		sessions, err := detector.ProjectSessions(sessionsProjectFlag)
		if err != nil {
			return err
		}
		byProject[sessionsProjectFlag] = sessions
	} else {
		if byProject, err = detector.AllSessions(); err != nil {
			return err
		}
	}

	projects := make([]string, 0, len(byProject))
	for id := range byProject {
		projects = append(projects, id)
	}
	sort.Strings(projects)

	total := 0
	for _, id := range projects {
		sessions := byProject[id]
		if len(sessions) == 0 {
			continue
		}
		total += len(sessions)

		fmt.Println(style.Header.Render(sessions[0].ProjectPath))
		tbl := style.NewTable(
			style.Column{Name: "SESSION", Width: 38},
			style.Column{Name: "CREATED", Width: 17},
			style.Column{Name: "MODEL", Width: 22},
			style.Column{Name: "FIRST MESSAGE", Width: 40},
		).SetHeaderSeparator(false)
		for _, s := range sessions {
			tbl.AddRow(
				s.SessionID,
				s.CreatedAt.Format("2006-01-02 15:04"),
				s.Model,
				s.FirstMessage,
			)
		}
		fmt.Print(tbl.Render())
		fmt.Println()
	}

	if total == 0 {
		fmt.Println(style.Muted.Render("no sessions found"))
	}
	return nil
}
