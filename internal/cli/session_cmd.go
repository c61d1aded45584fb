package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sadopc/focus/internal/store"
	"github.com/sadopc/focus/internal/timer"
)

func newStartCmd(app *App) *cobra.Command {
	var minutes int
	var taskID int64
	var isBreak bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a work or break session, replacing any session in progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app.prepare(ctx)

			kind := store.SessionWork
			key, fallback := store.SettingWorkMinutes, store.DefaultWorkMinutes
			if isBreak {
				kind = store.SessionBreak
				key, fallback = store.SettingBreakMinutes, store.DefaultBreakMinutes
			}
			if cmd.Flags().Changed("minutes") && minutes <= 0 {
				return fmt.Errorf("--minutes must be positive, got %d", minutes)
			}
			if minutes <= 0 {
				minutes = app.Store.GetIntSetting(ctx, key, fallback)
			}

			var task *store.Task
			if taskID != 0 {
				if isBreak {
					return errors.New("--task cannot be used with --break")
				}
				t, err := app.Store.GetTask(ctx, taskID)
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("task %d not found", taskID)
				}
				if err != nil {
					return err
				}
				task = t
			}

			if st := app.Timer.State(); st.Phase != timer.Idle {
				app.Timer.Cancel(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "Replaced %s %s session\n", st.Phase, strings.ToLower(string(st.Type)))
			}

			app.Timer.SetSessionType(kind)
			var id *int64
			if task != nil {
				id = &task.ID
			}
			app.Timer.Start(ctx, minutes, id)

			st := app.Timer.State()
			fmt.Fprintf(cmd.OutOrStdout(), "Started %d min %s session, ends at %s\n",
				minutes, strings.ToLower(string(kind)), st.EndAt.Local().Format("15:04"))
			if task != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Task: %s\n", task.Title)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&minutes, "minutes", 0, "Session length in minutes (default from settings)")
	cmd.Flags().Int64Var(&taskID, "task", 0, "Task ID the work session counts towards")
	cmd.Flags().BoolVar(&isBreak, "break", false, "Start a break instead of a work session")

	return cmd
}

func newPauseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause the running session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app.prepare(ctx)
			if app.Timer.State().Phase != timer.Running {
				fmt.Fprintln(cmd.OutOrStdout(), "No running session")
				return nil
			}
			app.Timer.Pause(ctx)
			writeState(cmd.OutOrStdout(), app.Timer.State(), "")
			return nil
		},
	}
}

func newResumeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume the paused session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app.prepare(ctx)
			if app.Timer.State().Phase != timer.Paused {
				fmt.Fprintln(cmd.OutOrStdout(), "No paused session")
				return nil
			}
			app.Timer.Resume(ctx)
			writeState(cmd.OutOrStdout(), app.Timer.State(), "")
			return nil
		},
	}
}

func newCancelCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Discard the current session without logging it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app.prepare(ctx)
			if app.Timer.State().Phase == timer.Idle {
				fmt.Fprintln(cmd.OutOrStdout(), "No session in progress")
				return nil
			}
			app.Timer.Cancel(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), "Session cancelled")
			return nil
		},
	}
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session and today's focused minutes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, app)
		},
	}
}

func runStatus(cmd *cobra.Command, app *App) error {
	ctx := cmd.Context()
	app.prepare(ctx)

	st := app.Timer.State()
	title := ""
	if st.TaskID != nil {
		if t, err := app.Store.GetTask(ctx, *st.TaskID); err == nil {
			title = t.Title
		}
	}
	out := cmd.OutOrStdout()
	writeState(out, st, title)

	today, err := app.Store.GetTodayMinutes(ctx, app.Clock.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Today: %s focused\n", formatMinutes(today))
	return nil
}

func writeState(w io.Writer, st timer.State, taskTitle string) {
	kind := strings.ToLower(string(st.Type))
	switch st.Phase {
	case timer.Idle:
		fmt.Fprintf(w, "Idle (next: %s)\n", kind)
		return
	case timer.Running:
		fmt.Fprintf(w, "Running %s session: %s left, ends at %s\n",
			kind, formatCountdown(st.Remaining), st.EndAt.Local().Format("15:04"))
	case timer.Paused:
		fmt.Fprintf(w, "Paused %s session: %s left\n", kind, formatCountdown(st.Remaining))
	}
	if taskTitle != "" {
		fmt.Fprintf(w, "Task: %s\n", taskTitle)
	}
}
