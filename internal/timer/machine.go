// Package timer implements the single session countdown: start, pause,
// resume, cancel and the restore-after-restart reconciliation.
//
// The machine is the only writer of its fields. Every transition persists a
// snapshot before (re)arming the deferred completion job, so a crash between
// the two never leaves a session that cannot be recovered. The one-second
// ticker only drives the display; session-end side effects belong to the
// completion job.
package timer

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/sadopc/focus/internal/clock"
	"github.com/sadopc/focus/internal/completion"
	"github.com/sadopc/focus/internal/logger"
	"github.com/sadopc/focus/internal/scheduler"
	"github.com/sadopc/focus/internal/store"
)

// SnapshotStore persists the machine across process restarts. The snapshot
// is shared by every process using the same database.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap store.Snapshot) error
	LoadSnapshot(ctx context.Context) (*store.Snapshot, error)
	ClearSnapshot(ctx context.Context) error
	// ClearSessionSnapshot deletes the snapshot only while it still
	// belongs to sessionID.
	ClearSessionSnapshot(ctx context.Context, sessionID string) error
}

// Deferrer arms work that outlives the process. *scheduler.Scheduler
// implements it.
type Deferrer interface {
	Arm(ctx context.Context, slot string, fireAt time.Time, payload any) error
	Every(ctx context.Context, slot string, period time.Duration) error
	Cancel(ctx context.Context, slot string) error
}

const (
	defaultTickInterval   = time.Second
	defaultSnapshotTries  = 3
	defaultSnapshotPause  = 100 * time.Millisecond
	defaultSubscriberSize = 1
)

type Machine struct {
	snapshots SnapshotStore
	deferrer  Deferrer
	clock     clock.Clock
	logger    *log.Logger

	tickInterval  time.Duration
	snapshotTries int
	snapshotPause time.Duration
	onFinish      func()

	mu              sync.Mutex
	phase           Phase
	sessionType     store.SessionType
	sessionID       string
	expectedMinutes int
	startAt         time.Time
	endAt           time.Time
	total           time.Duration
	taskID          *int64
	pausedRemaining time.Duration
	remaining       time.Duration
	tickStop        chan struct{}
	subscribers     []chan State

	// persisted is the snapshot this machine last wrote or read. A stored
	// snapshot that differs from it was written by another process.
	persisted *store.Snapshot
}

type Option func(*Machine)

func WithTickInterval(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.tickInterval = d
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(m *Machine) { m.logger = logger.OrDiscard(l) }
}

// WithSnapshotRetry sets how many times a snapshot write is attempted and
// the pause between attempts.
func WithSnapshotRetry(attempts int, pause time.Duration) Option {
	return func(m *Machine) {
		if attempts > 0 {
			m.snapshotTries = attempts
		}
		if pause >= 0 {
			m.snapshotPause = pause
		}
	}
}

// WithOnFinish registers fn to run when the countdown reaches zero.
func WithOnFinish(fn func()) Option {
	return func(m *Machine) { m.onFinish = fn }
}

func New(snapshots SnapshotStore, deferrer Deferrer, clk clock.Clock, opts ...Option) *Machine {
	if clk == nil {
		clk = clock.Real{}
	}
	m := &Machine{
		snapshots:     snapshots,
		deferrer:      deferrer,
		clock:         clk,
		logger:        logger.Discard(),
		tickInterval:  defaultTickInterval,
		snapshotTries: defaultSnapshotTries,
		snapshotPause: defaultSnapshotPause,
		sessionType:   store.SessionWork,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins a session of the selected type, replacing any session in
// progress. Non-positive minutes are ignored.
func (m *Machine) Start(ctx context.Context, minutes int, taskID *int64) {
	if minutes <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopTickingLocked()
	m.cancelCompletionLocked(ctx)

	now := m.clock.Now()
	m.sessionID = uuid.NewString()
	m.expectedMinutes = minutes
	m.taskID = copyID(taskID)
	m.startAt = now
	m.total = clock.Minutes(minutes)
	m.endAt = now.Add(m.total)
	m.pausedRemaining = 0
	m.remaining = m.total
	m.phase = Running

	m.saveSnapshotLocked(ctx)
	m.armCompletionLocked(ctx)
	m.startTickingLocked()
	m.logger.Info("session started", "session", m.sessionID, "type", m.sessionType, "minutes", minutes)
	m.publishLocked()
}

// Pause freezes a running session and withdraws its completion job.
func (m *Machine) Pause(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if changed := m.syncLocked(ctx); m.phase != Running {
		m.publishIf(changed)
		return
	}

	m.stopTickingLocked()
	remaining := clock.Remaining(m.endAt, m.clock.Now())
	if remaining <= 0 {
		// Already over: the completion job owns it now.
		m.finishLocked(ctx)
		return
	}

	m.pausedRemaining = remaining
	m.remaining = remaining
	m.cancelCompletionLocked(ctx)
	m.phase = Paused
	m.saveSnapshotLocked(ctx)
	m.logger.Info("session paused", "session", m.sessionID, "remaining", remaining)
	m.publishLocked()
}

// Resume re-anchors the paused remainder to a fresh wall-clock window.
func (m *Machine) Resume(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if changed := m.syncLocked(ctx); m.phase != Paused || m.pausedRemaining <= 0 {
		m.publishIf(changed)
		return
	}

	now := m.clock.Now()
	m.startAt = now
	m.endAt = now.Add(m.pausedRemaining)
	m.remaining = m.pausedRemaining
	m.pausedRemaining = 0
	m.phase = Running

	m.saveSnapshotLocked(ctx)
	m.armCompletionLocked(ctx)
	m.startTickingLocked()
	m.logger.Info("session resumed", "session", m.sessionID, "end", m.endAt)
	m.publishLocked()
}

// Cancel discards the session without logging it.
func (m *Machine) Cancel(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.syncLocked(ctx)
	m.stopTickingLocked()
	m.cancelCompletionLocked(ctx)
	if m.phase != Idle {
		m.logger.Info("session cancelled", "session", m.sessionID)
	}
	m.resetLocked()
	m.clearSnapshotLocked(ctx)
	m.publishLocked()
}

// SetSessionType selects the type of the next session. It is ignored while a
// session is running or paused.
func (m *Machine) SetSessionType(t store.SessionType) {
	if !t.Valid() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != Idle {
		return
	}
	m.sessionType = t
	m.publishLocked()
}

// Restore reconciles the persisted snapshot with the clock. Call it once at
// process start.
func (m *Machine) Restore(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap, err := m.snapshots.LoadSnapshot(ctx)
	if err != nil {
		m.logger.Error("load snapshot", "err", err)
		return
	}
	m.persisted = snap
	if !snap.Active() {
		return
	}
	m.adoptLocked(ctx, snap, true)
	m.publishLocked()
}

// Sync adopts a session that another process started, paused, resumed or
// ended since this machine last touched the snapshot.
func (m *Machine) Sync(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishIf(m.syncLocked(ctx))
}

// syncLocked reports whether the stored snapshot had changed under the
// machine, in which case the machine now mirrors it.
func (m *Machine) syncLocked(ctx context.Context) bool {
	snap, err := m.snapshots.LoadSnapshot(ctx)
	if err != nil {
		m.logger.Warn("load snapshot", "err", err)
		return false
	}
	if sameSnapshot(snap, m.persisted) {
		return false
	}

	m.persisted = snap
	m.stopTickingLocked()
	if !snap.Active() {
		if m.phase != Idle {
			m.logger.Info("session ended elsewhere", "session", m.sessionID)
		}
		m.resetLocked()
		return true
	}
	m.logger.Info("session changed elsewhere", "session", snap.SessionID)
	m.adoptLocked(ctx, snap, false)
	return true
}

// adoptLocked loads an active snapshot into the machine. rearm replaces the
// completion job of a live running session; restore does that in case the
// arming process died before the job was written.
func (m *Machine) adoptLocked(ctx context.Context, snap *store.Snapshot, rearm bool) {
	m.stopTickingLocked()
	m.resetLocked()
	m.sessionID = snap.SessionID
	if m.sessionID == "" {
		m.sessionID = uuid.NewString()
	}
	if snap.Type.Valid() {
		m.sessionType = snap.Type
	}
	m.expectedMinutes = snap.ExpectedMinutes
	m.taskID = copyID(snap.TaskID)
	m.startAt = snap.StartAt
	m.endAt = snap.EndAt
	m.total = clock.Minutes(snap.ExpectedMinutes)

	switch {
	case snap.Running:
		remaining := clock.Remaining(snap.EndAt, m.clock.Now())
		if remaining <= 0 {
			// Ended while no process was alive. Re-arming at the original
			// instant fires at once; an already logged session is skipped.
			m.armCompletionLocked(ctx)
			m.logger.Info("session ended while away", "session", m.sessionID, "end", snap.EndAt)
			m.clearSessionSnapshotLocked(ctx, snap.SessionID)
			m.resetLocked()
			return
		}
		m.remaining = remaining
		m.phase = Running
		if rearm {
			m.armCompletionLocked(ctx)
		}
		m.startTickingLocked()
		m.logger.Info("session restored", "session", m.sessionID, "remaining", remaining)
	case snap.PausedRemaining > 0:
		m.pausedRemaining = snap.PausedRemaining
		m.remaining = snap.PausedRemaining
		m.phase = Paused
		m.logger.Info("paused session restored", "session", m.sessionID, "remaining", snap.PausedRemaining)
	default:
		m.clearSessionSnapshotLocked(ctx, snap.SessionID)
		m.resetLocked()
	}
}

// EnableBreakReminders arms the periodic reminder, replacing any existing one.
func (m *Machine) EnableBreakReminders(ctx context.Context, intervalMinutes int) {
	if intervalMinutes <= 0 {
		return
	}
	if err := m.deferrer.Every(ctx, scheduler.SlotBreakReminders, clock.Minutes(intervalMinutes)); err != nil {
		m.logger.Error("enable break reminders", "err", err)
	}
}

func (m *Machine) DisableBreakReminders(ctx context.Context) {
	if err := m.deferrer.Cancel(ctx, scheduler.SlotBreakReminders); err != nil {
		m.logger.Error("disable break reminders", "err", err)
	}
}

// State returns the current projection.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

// Subscribe returns a channel receiving every state change. A slow reader
// sees the latest state, not a backlog.
func (m *Machine) Subscribe(buffer int) <-chan State {
	if buffer <= 0 {
		buffer = defaultSubscriberSize
	}
	ch := make(chan State, buffer)
	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	ch <- m.stateLocked()
	m.mu.Unlock()
	return ch
}

// Close stops the ticker and closes subscriber channels. Persisted state and
// armed jobs are left alone.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTickingLocked()
	for _, ch := range m.subscribers {
		close(ch)
	}
	m.subscribers = nil
}

func (m *Machine) tick() {
	m.mu.Lock()
	finished := m.tickLocked()
	m.mu.Unlock()
	if finished && m.onFinish != nil {
		m.onFinish()
	}
}

func (m *Machine) tickLocked() bool {
	if m.phase != Running {
		return false
	}
	if m.syncLocked(context.Background()) {
		m.publishLocked()
		return false
	}
	m.remaining = clock.Remaining(m.endAt, m.clock.Now())
	if m.remaining > 0 {
		m.publishLocked()
		return false
	}
	m.stopTickingLocked()
	m.finishLocked(context.Background())
	return true
}

// finishLocked moves to Idle after the countdown ran out. The completion job
// stays armed.
func (m *Machine) finishLocked(ctx context.Context) {
	m.logger.Info("countdown finished", "session", m.sessionID)
	m.clearSessionSnapshotLocked(ctx, m.sessionID)
	m.resetLocked()
	m.publishLocked()
}

func (m *Machine) startTickingLocked() {
	m.stopTickingLocked()
	stop := make(chan struct{})
	m.tickStop = stop
	go m.tickLoop(stop)
}

// stopTickingLocked cancels the ticker. A tick already waiting on the lock
// sees the changed channel and does nothing.
func (m *Machine) stopTickingLocked() {
	if m.tickStop != nil {
		close(m.tickStop)
		m.tickStop = nil
	}
}

func (m *Machine) tickLoop(stop chan struct{}) {
	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		m.mu.Lock()
		if m.tickStop != stop {
			m.mu.Unlock()
			return
		}
		finished := m.tickLocked()
		m.mu.Unlock()
		if finished {
			if m.onFinish != nil {
				m.onFinish()
			}
			return
		}
	}
}

func (m *Machine) resetLocked() {
	m.phase = Idle
	m.sessionID = ""
	m.expectedMinutes = 0
	m.startAt = time.Time{}
	m.endAt = time.Time{}
	m.total = 0
	m.taskID = nil
	m.pausedRemaining = 0
	m.remaining = 0
}

func (m *Machine) stateLocked() State {
	remaining := m.remaining
	switch m.phase {
	case Running:
		remaining = clock.Remaining(m.endAt, m.clock.Now())
	case Paused:
		remaining = m.pausedRemaining
	}
	var endAt time.Time
	if m.phase == Running {
		endAt = m.endAt
	}
	return State{
		Phase:           m.phase,
		Type:            m.sessionType,
		Remaining:       remaining,
		Total:           m.total,
		ExpectedMinutes: m.expectedMinutes,
		TaskID:          copyID(m.taskID),
		EndAt:           endAt,
		SessionID:       m.sessionID,
	}
}

func (m *Machine) publishLocked() {
	if len(m.subscribers) == 0 {
		return
	}
	s := m.stateLocked()
	for _, ch := range m.subscribers {
		select {
		case ch <- s:
			continue
		default:
		}
		// Full: drop the oldest undelivered state.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

func (m *Machine) publishIf(changed bool) {
	if changed {
		m.publishLocked()
	}
}

func (m *Machine) saveSnapshotLocked(ctx context.Context) {
	snap := store.Snapshot{
		Running:         m.phase == Running,
		StartAt:         m.startAt,
		EndAt:           m.endAt,
		ExpectedMinutes: m.expectedMinutes,
		Type:            m.sessionType,
		TaskID:          m.taskID,
		PausedRemaining: m.pausedRemaining,
		SessionID:       m.sessionID,
	}
	if snap.Running {
		snap.PausedRemaining = 0
	}
	if m.retrySnapshot(ctx, "save", func() error { return m.snapshots.SaveSnapshot(ctx, snap) }) {
		m.persisted = &snap
	}
}

func (m *Machine) clearSnapshotLocked(ctx context.Context) {
	if m.retrySnapshot(ctx, "clear", func() error { return m.snapshots.ClearSnapshot(ctx) }) {
		m.persisted = nil
	}
}

// clearSessionSnapshotLocked leaves a snapshot written for a newer session
// in place.
func (m *Machine) clearSessionSnapshotLocked(ctx context.Context, sessionID string) {
	clear := func() error { return m.snapshots.ClearSessionSnapshot(ctx, sessionID) }
	if m.retrySnapshot(ctx, "clear", clear) {
		m.persisted = nil
	}
}

// retrySnapshot reports whether fn eventually succeeded.
func (m *Machine) retrySnapshot(ctx context.Context, op string, fn func() error) bool {
	var err error
	for attempt := 1; attempt <= m.snapshotTries; attempt++ {
		if err = fn(); err == nil {
			return true
		}
		if attempt == m.snapshotTries {
			break
		}
		select {
		case <-ctx.Done():
			m.logger.Error("snapshot "+op+" failed", "attempts", attempt, "err", err)
			return false
		case <-time.After(m.snapshotPause):
		}
	}
	m.logger.Error("snapshot "+op+" failed", "attempts", m.snapshotTries, "err", err)
	return false
}

func (m *Machine) armCompletionLocked(ctx context.Context) {
	payload := completion.Payload{
		SessionID:       m.sessionID,
		Type:            m.sessionType,
		TaskID:          m.taskID,
		ExpectedMinutes: m.expectedMinutes,
		StartAt:         m.startAt,
	}
	if err := m.deferrer.Arm(ctx, scheduler.SlotSessionEnd, m.endAt, payload); err != nil {
		m.logger.Error("arm completion", "session", m.sessionID, "err", err)
	}
}

func (m *Machine) cancelCompletionLocked(ctx context.Context) {
	if err := m.deferrer.Cancel(ctx, scheduler.SlotSessionEnd); err != nil {
		m.logger.Error("cancel completion", "err", err)
	}
}

// sameSnapshot compares at the millisecond precision the store keeps.
func sameSnapshot(a, b *store.Snapshot) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.SessionID == b.SessionID &&
		a.Running == b.Running &&
		a.ExpectedMinutes == b.ExpectedMinutes &&
		clock.Millis(a.EndAt) == clock.Millis(b.EndAt) &&
		a.PausedRemaining.Milliseconds() == b.PausedRemaining.Milliseconds()
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
