// Package scheduler runs deferred work that must survive process restarts.
//
// Jobs are rows in the store's scheduled_jobs table, keyed by a slot name.
// Arming a slot replaces whatever job it held. A Runner polls the table,
// claims due jobs and dispatches them to the handler registered for the slot.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/focus/internal/clock"
	"github.com/sadopc/focus/internal/store"
)

const (
	// SlotSessionEnd holds the completion job of the running session.
	SlotSessionEnd = "session_end_work"
	// SlotBreakReminders holds the periodic break reminder.
	SlotBreakReminders = "break_reminders"

	// MinPeriod is the shortest period accepted by Every.
	MinPeriod = 15 * time.Minute
)

// JobStore persists jobs. *store.Store implements it.
type JobStore interface {
	PutJob(ctx context.Context, j store.Job) error
	DeleteJob(ctx context.Context, slot string) error
	GetJob(ctx context.Context, slot string) (*store.Job, error)
	DueJobs(ctx context.Context, now, staleBefore time.Time) ([]store.Job, error)
	ClaimJob(ctx context.Context, slot, token string, now, staleBefore time.Time) (bool, error)
	FinishJob(ctx context.Context, slot, token string) error
	RescheduleJob(ctx context.Context, slot, token string, fireAt time.Time, resetAttempts bool, lastErr string) error
	FailJob(ctx context.Context, slot, token, lastErr string) error
}

// Scheduler arms and cancels jobs.
type Scheduler struct {
	jobs  JobStore
	clock clock.Clock
}

func New(jobs JobStore, clk clock.Clock) *Scheduler {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Scheduler{jobs: jobs, clock: clk}
}

// Arm schedules a one-shot job under slot at fireAt, replacing any job the
// slot held. payload is JSON-encoded; nil means no payload.
func (s *Scheduler) Arm(ctx context.Context, slot string, fireAt time.Time, payload any) error {
	var data []byte
	if payload != nil {
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("encode payload for %q: %w", slot, err)
		}
	}
	return s.jobs.PutJob(ctx, store.Job{
		Slot:    slot,
		Token:   uuid.NewString(),
		FireAt:  fireAt,
		Payload: data,
	})
}

// Every schedules a periodic job under slot, first due one period from now.
// Periods shorter than MinPeriod are raised to MinPeriod.
func (s *Scheduler) Every(ctx context.Context, slot string, period time.Duration) error {
	if period < MinPeriod {
		period = MinPeriod
	}
	return s.jobs.PutJob(ctx, store.Job{
		Slot:   slot,
		Token:  uuid.NewString(),
		FireAt: s.clock.Now().Add(period),
		Period: period,
	})
}

// Cancel removes the job under slot. Cancelling an empty slot is a no-op.
func (s *Scheduler) Cancel(ctx context.Context, slot string) error {
	return s.jobs.DeleteJob(ctx, slot)
}

// Pending returns the job armed under slot, or nil.
func (s *Scheduler) Pending(ctx context.Context, slot string) (*store.Job, error) {
	return s.jobs.GetJob(ctx, slot)
}
