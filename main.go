package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/sadopc/focus/internal/cli"
	"github.com/sadopc/focus/internal/clock"
	"github.com/sadopc/focus/internal/config"
	"github.com/sadopc/focus/internal/logger"
	"github.com/sadopc/focus/internal/notify"
	"github.com/sadopc/focus/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	dir, err := config.DefaultDir()
	if err != nil {
		return err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	logs, err := logger.New(logger.Config{Debug: cfg.Debug, Dir: cfg.Dir})
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer logs.Close()

	s, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	n := notify.New(notify.Options{
		Enabled: cfg.Notify.Enabled,
		TrayDir: cfg.Notify.TrayDir,
		Bell:    cfg.Notify.Bell,
		Logger:  logs.Logger,
	})

	app := cli.NewApp(cfg, s, n, clock.Real{}, logs.Logger)
	defer app.Close()
	app.IsInteractive = func() bool {
		fd := os.Stdout.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}

	return cli.NewRootCmd(app).Execute()
}
