package cli

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/focus/internal/platform"
	"github.com/sadopc/focus/internal/tui"
)

// runTUI opens the full-screen interface. When no daemon holds the runner
// lock, the TUI runs the job runner itself for as long as it is open.
func runTUI(ctx context.Context, app *App) error {
	app.prepare(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	guard, err := platform.AcquireSingleInstance(platform.RunnerLockName(app.Config.DBPath))
	switch {
	case err == nil:
		defer guard.Release()
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := app.Runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				app.Logger.Error("embedded runner stopped", "err", err)
			}
		}()
		defer func() {
			cancel()
			<-done
		}()
	case errors.Is(err, platform.ErrAlreadyRunning):
		app.Logger.Debug("runner owned by another process")
	default:
		return err
	}

	p := tea.NewProgram(tui.NewApp(app.Store, app.Timer), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
