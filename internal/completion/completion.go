// Package completion holds the routines the job runner executes when a
// session ends or a break reminder is due.
package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sadopc/focus/internal/clock"
	"github.com/sadopc/focus/internal/logger"
	"github.com/sadopc/focus/internal/notify"
	"github.com/sadopc/focus/internal/scheduler"
	"github.com/sadopc/focus/internal/store"
)

// Ledger is the slice of the store the handler writes to.
type Ledger interface {
	GetTask(ctx context.Context, id int64) (*store.Task, error)
	UpsertTask(ctx context.Context, t *store.Task) (int64, error)
	SumSessionMinutes(ctx context.Context, taskID int64) (int, error)
	AppendSessionLog(ctx context.Context, l store.SessionLog) (int64, error)
	HasSessionLog(ctx context.Context, sessionID string) (bool, error)
}

// Payload is captured when the completion job is armed. The handler never
// reads live timer state; the arming process may be gone by the time it runs.
type Payload struct {
	SessionID       string            `json:"session_id"`
	Type            store.SessionType `json:"type"`
	TaskID          *int64            `json:"task_id,omitempty"`
	ExpectedMinutes int               `json:"expected_minutes"`
	StartAt         time.Time         `json:"start_at"`
}

type Handler struct {
	ledger   Ledger
	notifier notify.Notifier
	clock    clock.Clock
	logger   *log.Logger
}

func New(ledger Ledger, n notify.Notifier, clk clock.Clock, l *log.Logger) *Handler {
	if n == nil {
		n = notify.Nop{}
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Handler{ledger: ledger, notifier: n, clock: clk, logger: logger.OrDiscard(l)}
}

// Register installs the handler's routines on r.
func (h *Handler) Register(r *scheduler.Runner) {
	r.Handle(scheduler.SlotSessionEnd, h.Handle)
	r.Handle(scheduler.SlotBreakReminders, h.BreakReminder)
}

// Handle finishes a session: notify, log it, then update the bound task.
// Ledger failures are returned so the runner retries; notification failures
// are only logged. Running it again for the same session is harmless.
func (h *Handler) Handle(ctx context.Context, job scheduler.Job) error {
	var p Payload
	if err := job.Decode(&p); err != nil {
		return err
	}
	if !p.Type.Valid() {
		return fmt.Errorf("completion payload: invalid session type %q", p.Type)
	}
	if p.SessionID == "" {
		p.SessionID = job.Token
	}

	logged, err := h.ledger.HasSessionLog(ctx, p.SessionID)
	if err != nil {
		return err
	}
	if !logged {
		h.notify(ctx, notify.ChannelSession, sessionTitle(p.Type), "Time's up!")
	}

	now := h.clock.Now()
	actual := max(p.ExpectedMinutes, clock.WholeMinutes(now.Sub(p.StartAt)))
	if _, err := h.ledger.AppendSessionLog(ctx, store.SessionLog{
		SessionID:       p.SessionID,
		TaskID:          p.TaskID,
		Type:            p.Type,
		StartTime:       p.StartAt,
		EndTime:         now,
		ExpectedMinutes: p.ExpectedMinutes,
		ActualMinutes:   actual,
	}); err != nil {
		return err
	}
	h.logger.Info("session logged", "session", p.SessionID, "type", p.Type, "minutes", actual)

	if p.Type != store.SessionWork || p.TaskID == nil {
		return nil
	}
	return h.updateTask(ctx, *p.TaskID, now)
}

func (h *Handler) updateTask(ctx context.Context, taskID int64, now time.Time) error {
	task, err := h.ledger.GetTask(ctx, taskID)
	if errors.Is(err, store.ErrNotFound) {
		h.logger.Warn("session bound to missing task", "task", taskID)
		return nil
	}
	if err != nil {
		return err
	}

	total, err := h.ledger.SumSessionMinutes(ctx, taskID)
	if err != nil {
		return err
	}
	task.ActualMinutes = total

	finished := !task.Completed && total >= task.ExpectedMinutes
	if finished {
		task.Completed = true
		task.CompletedAt = &now
	}
	if _, err := h.ledger.UpsertTask(ctx, task); err != nil {
		return err
	}

	if finished {
		h.logger.Info("task complete", "task", task.ID, "minutes", total)
		if task.AlarmOnCompletion {
			h.notify(ctx, notify.ChannelTask, "Task complete", task.Title+" finished")
		}
	}
	return nil
}

// BreakReminder nudges the user to take a break. It never fails.
func (h *Handler) BreakReminder(ctx context.Context, _ scheduler.Job) error {
	h.notify(ctx, notify.ChannelSession, "Break reminder", "Time to take a short break")
	return nil
}

func (h *Handler) notify(ctx context.Context, ch notify.Channel, title, message string) {
	if err := h.notifier.Notify(ctx, ch, title, message); err != nil {
		h.logger.Warn("notification failed", "title", title, "err", err)
	}
}

func sessionTitle(t store.SessionType) string {
	if t == store.SessionWork {
		return "Work session complete"
	}
	return "Break complete"
}
