package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/focus/internal/store"
	"github.com/sadopc/focus/internal/timer"
)

// Timer is the session machine driven by the focus view. *timer.Machine
// implements it.
type Timer interface {
	Start(ctx context.Context, minutes int, taskID *int64)
	Pause(ctx context.Context)
	Resume(ctx context.Context)
	Cancel(ctx context.Context)
	SetSessionType(t store.SessionType)
	EnableBreakReminders(ctx context.Context, intervalMinutes int)
	DisableBreakReminders(ctx context.Context)
	Sync(ctx context.Context)
	State() timer.State
	Subscribe(buffer int) <-chan timer.State
}

// syncInterval is how often the view picks up sessions changed by the
// command line.
const syncInterval = 2 * time.Second

type syncMsg struct{}

// timerModel mirrors the machine's published state for rendering. The
// machine owns the countdown; this side only forwards key presses.
type timerModel struct {
	timer  Timer
	states <-chan timer.State
	state  timer.State
}

func newTimerModel(t Timer) timerModel {
	return timerModel{
		timer:  t,
		states: t.Subscribe(1),
		state:  t.State(),
	}
}

// listen waits for the next published state.
func (t timerModel) listen() tea.Cmd {
	ch := t.states
	return func() tea.Msg {
		s, ok := <-ch
		return stateMsg{state: s, closed: !ok}
	}
}

// scheduleSync asks for the next sync with the shared session.
func (t timerModel) scheduleSync() tea.Cmd {
	return tea.Tick(syncInterval, func(time.Time) tea.Msg { return syncMsg{} })
}

// sync adopts changes made by other processes. The new state arrives
// through listen like any other transition.
func (t timerModel) sync() {
	t.timer.Sync(context.Background())
}

func (t timerModel) running() bool { return t.state.Phase == timer.Running }
func (t timerModel) paused() bool  { return t.state.Phase == timer.Paused }
func (t timerModel) idle() bool    { return t.state.Phase == timer.Idle }

func (t *timerModel) start(kind store.SessionType, minutes int, taskID *int64) {
	t.timer.SetSessionType(kind)
	t.timer.Start(context.Background(), minutes, taskID)
	t.state = t.timer.State()
}

func (t *timerModel) toggle() {
	switch t.state.Phase {
	case timer.Running:
		t.timer.Pause(context.Background())
	case timer.Paused:
		t.timer.Resume(context.Background())
	}
	t.state = t.timer.State()
}

func (t *timerModel) cancel() {
	t.timer.Cancel(context.Background())
	t.state = t.timer.State()
}
