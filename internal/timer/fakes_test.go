package timer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sadopc/focus/internal/completion"
	"github.com/sadopc/focus/internal/store"
)

// events records the order of persistence and scheduling calls.
type events struct {
	mu  sync.Mutex
	log []string
}

func (e *events) add(s string) {
	e.mu.Lock()
	e.log = append(e.log, s)
	e.mu.Unlock()
}

func (e *events) all() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.log...)
}

type fakeSnapshots struct {
	mu       sync.Mutex
	ev       *events
	snap     *store.Snapshot
	failures int // remaining SaveSnapshot calls that fail
	saves    int
}

func (f *fakeSnapshots) SaveSnapshot(_ context.Context, snap store.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.failures > 0 {
		f.failures--
		f.ev.add("save-failed")
		return errors.New("disk I/O error")
	}
	f.ev.add("save")
	if snap.Running {
		snap.PausedRemaining = 0
	}
	f.snap = &snap
	return nil
}

func (f *fakeSnapshots) LoadSnapshot(context.Context) (*store.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snap == nil {
		return nil, nil
	}
	s := *f.snap
	return &s, nil
}

func (f *fakeSnapshots) ClearSnapshot(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ev.add("clear")
	f.snap = nil
	return nil
}

func (f *fakeSnapshots) ClearSessionSnapshot(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ev.add("clear")
	if f.snap != nil && f.snap.SessionID == sessionID {
		f.snap = nil
	}
	return nil
}

func (f *fakeSnapshots) current() *store.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snap == nil {
		return nil
	}
	s := *f.snap
	return &s
}

type armed struct {
	FireAt  time.Time
	Payload completion.Payload
	Period  time.Duration
}

type fakeDeferrer struct {
	mu    sync.Mutex
	ev    *events
	slots map[string]armed
}

func (f *fakeDeferrer) Arm(_ context.Context, slot string, fireAt time.Time, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ev.add("arm")
	p, _ := payload.(completion.Payload)
	f.slots[slot] = armed{FireAt: fireAt, Payload: p}
	return nil
}

func (f *fakeDeferrer) Every(_ context.Context, slot string, period time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ev.add("every")
	f.slots[slot] = armed{Period: period}
	return nil
}

func (f *fakeDeferrer) Cancel(_ context.Context, slot string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ev.add("cancel")
	delete(f.slots, slot)
	return nil
}

func (f *fakeDeferrer) get(slot string) (armed, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.slots[slot]
	return a, ok
}
