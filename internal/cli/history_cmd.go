package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sadopc/focus/internal/export"
	"github.com/sadopc/focus/internal/store"
)

func newHistoryCmd(app *App) *cobra.Command {
	var limit int
	var taskID int64
	var kind string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List logged sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app.prepare(ctx)

			filter := store.LogFilter{Limit: limit}
			if taskID != 0 {
				filter.TaskID = &taskID
			}
			if kind != "" {
				t, err := store.ParseSessionType(kind)
				if err != nil {
					return err
				}
				filter.Type = t
			}

			logs, err := app.Store.ListSessionLogs(ctx, filter)
			if err != nil {
				return err
			}
			if len(logs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions logged yet.")
				return nil
			}

			refs, err := export.LoadRefs(ctx, app.Store)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(logs))
			total := 0
			for _, l := range logs {
				task := "-"
				if l.TaskID != nil {
					task = "Unknown"
					if t, ok := refs.Tasks[*l.TaskID]; ok {
						task = t.Title
					}
				}
				if l.Type == store.SessionWork {
					total += l.ActualMinutes
				}
				rows = append(rows, []string{
					l.StartTime.Local().Format("2006-01-02 15:04"),
					strings.ToLower(string(l.Type)),
					task,
					formatMinutes(l.ActualMinutes),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"START", "TYPE", "TASK", "DURATION"}, rows))
			fmt.Fprintf(out, "\n%d sessions, %s focused\n", len(logs), formatMinutes(total))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of sessions (0 for all)")
	cmd.Flags().Int64Var(&taskID, "task", 0, "Only sessions of this task")
	cmd.Flags().StringVar(&kind, "type", "", "Only work or break sessions")

	return cmd
}
