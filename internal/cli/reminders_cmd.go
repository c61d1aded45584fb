package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/focus/internal/scheduler"
	"github.com/sadopc/focus/internal/store"
)

func newRemindersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Manage recurring break reminders",
	}

	cmd.AddCommand(
		newRemindersEnableCmd(app),
		newRemindersDisableCmd(app),
	)

	return cmd
}

func newRemindersEnableCmd(app *App) *cobra.Command {
	var interval int

	cmd := &cobra.Command{
		Use:   "enable",
		Short: "Remind to take a break every interval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app.prepare(ctx)

			if !cmd.Flags().Changed("interval") {
				interval = app.Store.GetIntSetting(ctx, store.SettingBreakReminderMinutes, store.DefaultBreakReminderMinutes)
			}
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive, got %d", interval)
			}

			if err := app.Store.SetSetting(ctx, store.SettingBreakReminderMinutes, strconv.Itoa(interval)); err != nil {
				return err
			}
			if err := app.Store.SetSetting(ctx, store.SettingBreakReminders, "on"); err != nil {
				return err
			}
			app.Timer.EnableBreakReminders(ctx, interval)

			period := max(time.Duration(interval)*time.Minute, scheduler.MinPeriod)
			fmt.Fprintf(cmd.OutOrStdout(), "Break reminders every %s\n", formatMinutes(int(period/time.Minute)))
			return nil
		},
	}

	cmd.Flags().IntVar(&interval, "interval", store.DefaultBreakReminderMinutes, "Minutes between reminders (at least 15)")

	return cmd
}

func newRemindersDisableCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "disable",
		Short: "Stop break reminders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app.prepare(ctx)
			if err := app.Store.SetSetting(ctx, store.SettingBreakReminders, "off"); err != nil {
				return err
			}
			app.Timer.DisableBreakReminders(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), "Break reminders disabled")
			return nil
		},
	}
}
