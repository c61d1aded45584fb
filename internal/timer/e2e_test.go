package timer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/focus/internal/clock"
	"github.com/sadopc/focus/internal/completion"
	"github.com/sadopc/focus/internal/notify"
	"github.com/sadopc/focus/internal/scheduler"
	"github.com/sadopc/focus/internal/store"
)

type stack struct {
	store   *store.Store
	clock   *clock.Fake
	sched   *scheduler.Scheduler
	runner  *scheduler.Runner
	machine *Machine
}

func newStack(t *testing.T) *stack {
	t.Helper()
	s, err := store.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	st := &stack{store: s, clock: clock.NewFake(t0)}
	st.sched = scheduler.New(s, st.clock)
	st.runner = scheduler.NewRunner(s, st.clock)
	completion.New(s, notify.Nop{}, st.clock, nil).Register(st.runner)
	st.machine = New(s, st.sched, st.clock, WithTickInterval(time.Hour))
	t.Cleanup(st.machine.Close)
	return st
}

// restart simulates a new process over the same database.
func (st *stack) restart(t *testing.T) {
	t.Helper()
	st.machine.Close()
	st.machine = New(st.store, st.sched, st.clock, WithTickInterval(time.Hour))
	t.Cleanup(st.machine.Close)
	st.machine.Restore(context.Background())
}

func TestSessionEndToEnd(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	var task *store.Task
	for i := 1; i <= 7; i++ {
		var err error
		task, err = st.store.CreateTask(ctx, nil, fmt.Sprintf("task %d", i), 25, false)
		require.NoError(t, err)
	}
	require.EqualValues(t, 7, task.ID)

	st.machine.Start(ctx, 25, &task.ID)
	st.clock.Advance(5 * time.Minute)
	st.machine.Pause(ctx)
	require.Equal(t, 20*time.Minute, st.machine.State().Remaining)

	n, err := st.runner.RunDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "nothing is armed while paused")

	st.clock.Advance(3 * time.Minute)
	st.machine.Resume(ctx)

	st.clock.Advance(20*time.Minute + 2*time.Second)
	n, err = st.runner.RunDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, _ = st.runner.RunDue(ctx)
	assert.Zero(t, n, "the handler runs once")

	logs, err := st.store.ListSessionLogs(ctx, store.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.GreaterOrEqual(t, logs[0].ActualMinutes, 25)
	require.NotNil(t, logs[0].TaskID)
	assert.EqualValues(t, 7, *logs[0].TaskID)

	got, err := st.store.GetTask(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, logs[0].ActualMinutes, got.ActualMinutes)
	assert.True(t, got.Completed)
}

func TestSessionCompletesWhileProcessIsDown(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	st.machine.Start(ctx, 25, nil)
	id := st.machine.State().SessionID

	st.clock.Advance(3 * time.Hour)
	st.restart(t)
	assert.Equal(t, Idle, st.machine.State().Phase)

	n, err := st.runner.RunDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	logged, err := st.store.HasSessionLog(ctx, id)
	require.NoError(t, err)
	assert.True(t, logged)

	// A second restart has nothing left to reconcile.
	st.restart(t)
	n, _ = st.runner.RunDue(ctx)
	assert.Zero(t, n)
	logs, _ := st.store.ListSessionLogs(ctx, store.LogFilter{})
	assert.Len(t, logs, 1)
}

func TestRestoreAfterCompletionAlreadyRan(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	st.machine.Start(ctx, 25, nil)
	st.clock.Advance(26 * time.Minute)
	// The runner fires before the foreground ever ticked to zero.
	n, err := st.runner.RunDue(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	st.restart(t)
	n, err = st.runner.RunDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "re-armed job runs")

	logs, _ := st.store.ListSessionLogs(ctx, store.LogFilter{})
	assert.Len(t, logs, 1, "but does not log twice")
}

func TestCancelledSessionIsNotLogged(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	st.machine.Start(ctx, 25, nil)
	st.clock.Advance(10 * time.Minute)
	st.machine.Cancel(ctx)

	st.clock.Advance(time.Hour)
	n, err := st.runner.RunDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	snap, err := st.store.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)
	logs, _ := st.store.ListSessionLogs(ctx, store.LogFilter{})
	assert.Empty(t, logs)
}
