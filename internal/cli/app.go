package cli

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/sadopc/focus/internal/clock"
	"github.com/sadopc/focus/internal/completion"
	"github.com/sadopc/focus/internal/config"
	"github.com/sadopc/focus/internal/logger"
	"github.com/sadopc/focus/internal/notify"
	"github.com/sadopc/focus/internal/scheduler"
	"github.com/sadopc/focus/internal/store"
	"github.com/sadopc/focus/internal/timer"
)

// App holds everything the commands operate on.
type App struct {
	Config    config.Config
	Logger    *log.Logger
	Clock     clock.Clock
	Store     *store.Store
	Scheduler *scheduler.Scheduler
	Runner    *scheduler.Runner
	Timer     *timer.Machine

	// IsInteractive reports whether the bare command should open the TUI.
	IsInteractive func() bool

	restoreOnce sync.Once
}

// NewApp wires the scheduler, the job runner with the completion handlers
// installed, and the session machine over s.
func NewApp(cfg config.Config, s *store.Store, n notify.Notifier, clk clock.Clock, l *log.Logger) *App {
	if clk == nil {
		clk = clock.Real{}
	}
	l = logger.OrDiscard(l)

	sched := scheduler.New(s, clk)
	runner := scheduler.NewRunner(s, clk,
		scheduler.WithPollInterval(cfg.PollInterval),
		scheduler.WithMaxAttempts(cfg.MaxAttempts),
		scheduler.WithLogger(l),
	)
	completion.New(s, n, clk, l).Register(runner)

	machine := timer.New(s, sched, clk,
		timer.WithLogger(l),
		timer.WithOnFinish(runner.Kick),
	)

	return &App{
		Config:    cfg,
		Logger:    l,
		Clock:     clk,
		Store:     s,
		Scheduler: sched,
		Runner:    runner,
		Timer:     machine,
	}
}

// prepare restores the machine once per process and delivers any job that
// came due while nothing was running.
func (a *App) prepare(ctx context.Context) {
	a.restoreOnce.Do(func() { a.Timer.Restore(ctx) })
	if n, err := a.Runner.RunDue(ctx); err != nil {
		a.Logger.Warn("deliver due jobs", "err", err)
	} else if n > 0 {
		a.Logger.Debug("delivered due jobs", "count", n)
	}
}

// Close stops the session ticker. Persisted state is left alone.
func (a *App) Close() {
	a.Timer.Close()
}
