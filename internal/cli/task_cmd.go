package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sadopc/focus/internal/store"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid ID %q", s)
	}
	return id, nil
}

func newTaskCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}

	cmd.AddCommand(
		newTaskAddCmd(app),
		newTaskListCmd(app),
		newTaskDoneCmd(app),
		newTaskArchiveCmd(app),
	)

	return cmd
}

func newTaskAddCmd(app *App) *cobra.Command {
	var projectID int64
	var minutes int
	var alarm bool

	cmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if minutes < 0 {
				return fmt.Errorf("--minutes cannot be negative")
			}
			var project *int64
			if projectID != 0 {
				if _, err := app.Store.GetProject(ctx, projectID); err != nil {
					return fmt.Errorf("project %d: %w", projectID, err)
				}
				project = &projectID
			}
			t, err := app.Store.CreateTask(ctx, project, args[0], minutes, alarm)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created task %s [%d]\n", t.Title, t.ID)
			return nil
		},
	}

	cmd.Flags().Int64Var(&projectID, "project", 0, "Project ID")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "Expected minutes of focused work")
	cmd.Flags().BoolVar(&alarm, "alarm", false, "Notify when the task completes")

	return cmd
}

func newTaskListCmd(app *App) *cobra.Command {
	var projectID int64
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var project *int64
			if projectID != 0 {
				project = &projectID
			}
			tasks, err := app.Store.ListTasks(cmd.Context(), project, all)
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks found.")
				return nil
			}

			rows := make([][]string, 0, len(tasks))
			for _, t := range tasks {
				state := "open"
				switch {
				case t.Archived:
					state = "archived"
				case t.Completed:
					state = "done"
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", t.ID),
					t.Title,
					optionalID(t.ProjectID),
					fmt.Sprintf("%d/%d", t.ActualMinutes, t.ExpectedMinutes),
					state,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "TITLE", "PROJECT", "MINUTES", "STATE"}, rows))
			return nil
		},
	}

	cmd.Flags().Int64Var(&projectID, "project", 0, "Only tasks of this project")
	cmd.Flags().BoolVar(&all, "all", false, "Include archived tasks")

	return cmd
}

func newTaskDoneCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "done ID",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			t, err := loadTask(cmd, app, id)
			if err != nil {
				return err
			}
			if t.Completed {
				fmt.Fprintf(cmd.OutOrStdout(), "Task %s is already completed\n", t.Title)
				return nil
			}
			now := app.Clock.Now()
			t.Completed = true
			t.CompletedAt = &now
			if _, err := app.Store.UpsertTask(ctx, t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Completed task %s\n", t.Title)
			return nil
		},
	}
}

func newTaskArchiveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "archive ID",
		Short: "Archive a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			t, err := loadTask(cmd, app, id)
			if err != nil {
				return err
			}
			if err := app.Store.ArchiveTask(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archived task %s\n", t.Title)
			return nil
		},
	}
}

func loadTask(cmd *cobra.Command, app *App, id int64) (*store.Task, error) {
	t, err := app.Store.GetTask(cmd.Context(), id)
	if err != nil {
		return nil, fmt.Errorf("task %d: %w", id, err)
	}
	return t, nil
}
