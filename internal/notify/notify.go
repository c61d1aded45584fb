// Package notify delivers user-facing alerts for finished sessions, finished
// tasks and break reminders.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Channel groups notifications the way the tray groups them.
type Channel string

const (
	ChannelSession Channel = "session_notifications"
	ChannelTask    Channel = "task_notifications"
)

// Notifier shows a message to the user.
type Notifier interface {
	Notify(ctx context.Context, ch Channel, title, message string) error
}

// Options selects which notifiers New composes.
type Options struct {
	Enabled bool
	// TrayDir overrides the directory holding the tray lockfile.
	TrayDir string
	Bell    bool
	Logger  *log.Logger
}

// New builds the notifier chain: the tray first, then the terminal bell.
// When notifications are disabled the result drops everything.
func New(opts Options) Notifier {
	if !opts.Enabled {
		return Nop{}
	}
	chain := First{NewTray(opts.TrayDir)}
	if opts.Bell {
		chain = append(chain, NewBell(os.Stderr, opts.Logger))
	}
	return chain
}

// Nop drops every notification.
type Nop struct{}

func (Nop) Notify(context.Context, Channel, string, string) error { return nil }

// First tries each notifier in order and stops at the first success.
type First []Notifier

func (f First) Notify(ctx context.Context, ch Channel, title, message string) error {
	var errs []error
	for _, n := range f {
		err := n.Notify(ctx, ch, title, message)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("no notifier delivered %q: %w", title, errors.Join(errs...))
}

// Bell rings the terminal bell and records the message in the log.
type Bell struct {
	w      io.Writer
	logger *log.Logger
}

func NewBell(w io.Writer, logger *log.Logger) *Bell {
	return &Bell{w: w, logger: logger}
}

func (b *Bell) Notify(_ context.Context, ch Channel, title, message string) error {
	if _, err := fmt.Fprint(b.w, "\a"); err != nil {
		return fmt.Errorf("ring bell: %w", err)
	}
	if b.logger != nil {
		b.logger.Info(title, "channel", string(ch), "message", message)
	}
	return nil
}
