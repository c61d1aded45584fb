package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sadopc/focus/internal/clock"
	"github.com/sadopc/focus/internal/logger"
	"github.com/sadopc/focus/internal/store"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultMaxAttempts  = 5
	defaultLease        = 5 * time.Minute
	defaultBackoff      = 30 * time.Second
	maxBackoff          = 10 * time.Minute
)

// Job is what a handler receives for one execution.
type Job struct {
	Slot    string
	Token   string
	Payload []byte
	FireAt  time.Time
	// Attempt is 1 on the first execution.
	Attempt  int
	Periodic bool
}

// Decode unmarshals the JSON payload into v.
func (j Job) Decode(v any) error {
	if len(j.Payload) == 0 {
		return fmt.Errorf("job %q has no payload", j.Slot)
	}
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("decode payload for %q: %w", j.Slot, err)
	}
	return nil
}

// HandlerFunc executes a job. A non-nil error schedules a retry.
type HandlerFunc func(ctx context.Context, job Job) error

// Runner polls for due jobs and executes them.
type Runner struct {
	jobs         JobStore
	clock        clock.Clock
	logger       *log.Logger
	pollInterval time.Duration
	maxAttempts  int
	lease        time.Duration
	backoff      time.Duration

	mu       sync.Mutex
	handlers map[string]HandlerFunc
	runMu    sync.Mutex
	kick     chan struct{}
}

type RunnerOption func(*Runner)

func WithPollInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.pollInterval = d
		}
	}
}

// WithMaxAttempts bounds how often a failing one-shot job is tried before it
// is parked as failed.
func WithMaxAttempts(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithLease sets how long a claim protects a running job from other runners.
func WithLease(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.lease = d
		}
	}
}

// WithBackoff sets the first retry delay; later retries double it.
func WithBackoff(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.backoff = d
		}
	}
}

func WithLogger(l *log.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger.OrDiscard(l) }
}

func NewRunner(jobs JobStore, clk clock.Clock, opts ...RunnerOption) *Runner {
	if clk == nil {
		clk = clock.Real{}
	}
	r := &Runner{
		jobs:         jobs,
		clock:        clk,
		logger:       logger.Discard(),
		pollInterval: defaultPollInterval,
		maxAttempts:  defaultMaxAttempts,
		lease:        defaultLease,
		backoff:      defaultBackoff,
		handlers:     make(map[string]HandlerFunc),
		kick:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle registers h for jobs armed under slot.
func (r *Runner) Handle(slot string, h HandlerFunc) {
	r.mu.Lock()
	r.handlers[slot] = h
	r.mu.Unlock()
}

// Kick asks a running Run loop to poll now instead of waiting for the next tick.
func (r *Runner) Kick() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Run polls until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		if _, err := r.RunDue(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("job poll failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-r.kick:
		}
	}
}

// RunDue executes every job that is due now and returns how many ran.
func (r *Runner) RunDue(ctx context.Context) (int, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	now := r.clock.Now()
	due, err := r.jobs.DueJobs(ctx, now, now.Add(-r.lease))
	if err != nil {
		return 0, err
	}

	ran := 0
	for _, j := range due {
		if ctx.Err() != nil {
			return ran, ctx.Err()
		}
		r.mu.Lock()
		h, ok := r.handlers[j.Slot]
		r.mu.Unlock()
		if !ok {
			r.logger.Warn("no handler for due job", "slot", j.Slot)
			continue
		}
		executed, err := r.execute(ctx, j, h)
		if err != nil {
			return ran, err
		}
		if executed {
			ran++
		}
	}
	return ran, nil
}

func (r *Runner) execute(ctx context.Context, j store.Job, h HandlerFunc) (bool, error) {
	now := r.clock.Now()
	claimed, err := r.jobs.ClaimJob(ctx, j.Slot, j.Token, now, now.Add(-r.lease))
	if err != nil {
		return false, err
	}
	if !claimed {
		// Replaced, cancelled or taken by another runner since DueJobs.
		return false, nil
	}

	attempt := j.Attempts + 1
	job := Job{
		Slot:     j.Slot,
		Token:    j.Token,
		Payload:  j.Payload,
		FireAt:   j.FireAt,
		Attempt:  attempt,
		Periodic: j.Period > 0,
	}
	r.logger.Debug("running job", "slot", j.Slot, "attempt", attempt)

	herr := h(ctx, job)
	done := r.clock.Now()

	switch {
	case herr == nil && job.Periodic:
		return true, r.jobs.RescheduleJob(ctx, j.Slot, j.Token, done.Add(j.Period), true, "")
	case herr == nil:
		return true, r.jobs.FinishJob(ctx, j.Slot, j.Token)
	case attempt >= r.maxAttempts && job.Periodic:
		r.logger.Error("periodic job failed, waiting for next period", "slot", j.Slot, "err", herr)
		return true, r.jobs.RescheduleJob(ctx, j.Slot, j.Token, done.Add(j.Period), true, herr.Error())
	case attempt >= r.maxAttempts:
		r.logger.Error("job failed, giving up", "slot", j.Slot, "attempts", attempt, "err", herr)
		return true, r.jobs.FailJob(ctx, j.Slot, j.Token, herr.Error())
	default:
		delay := r.retryDelay(attempt)
		r.logger.Warn("job failed, retrying", "slot", j.Slot, "attempt", attempt, "in", delay, "err", herr)
		return true, r.jobs.RescheduleJob(ctx, j.Slot, j.Token, done.Add(delay), false, herr.Error())
	}
}

func (r *Runner) retryDelay(attempt int) time.Duration {
	d := r.backoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
