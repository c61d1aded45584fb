package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sadopc/focus/internal/platform"
)

func newDaemonCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the job runner in the foreground until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			guard, err := platform.AcquireSingleInstance(platform.RunnerLockName(app.Config.DBPath))
			if errors.Is(err, platform.ErrAlreadyRunning) {
				return fmt.Errorf("another focus runner is active for %s", app.Config.DBPath)
			}
			if err != nil {
				return err
			}
			defer guard.Release()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// The daemon only delivers jobs. Session state belongs to the
			// processes that change it, and Run delivers overdue jobs first.
			app.Logger.Info("runner started", "db", app.Config.DBPath, "lock", guard.Address())
			fmt.Fprintf(cmd.OutOrStdout(), "Runner active on %s, press Ctrl+C to stop\n", app.Config.DBPath)

			if err := app.Runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			app.Logger.Info("runner stopped")
			return nil
		},
	}
}
