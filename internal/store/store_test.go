package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func int64p(v int64) *int64 { return &v }

// appendLog is a test helper that logs a finished session of the given minutes.
func appendLog(t *testing.T, s *Store, sessionID string, taskID *int64, typ SessionType, startOffset time.Duration, minutes int) int64 {
	t.Helper()
	start := time.Now().UTC().Add(-startOffset)
	id, err := s.AppendSessionLog(context.Background(), SessionLog{
		SessionID:       sessionID,
		TaskID:          taskID,
		Type:            typ,
		StartTime:       start,
		EndTime:         start.Add(time.Duration(minutes) * time.Minute),
		ExpectedMinutes: minutes,
		ActualMinutes:   minutes,
	})
	if err != nil {
		t.Fatalf("append log: %v", err)
	}
	return id
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != 1 {
		t.Fatalf("expected user_version 1, got %d", version)
	}
}

func TestNewWithPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sub/focus.db"
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen, should not re-migrate
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s2.Close()
}

func TestPragmasConfigured(t *testing.T) {
	s := newTestStore(t)
	var fk int
	s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if fk != 1 {
		t.Fatalf("expected foreign_keys=1, got %d", fk)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

// ============================================================
// Projects
// ============================================================

func TestCreateAndGetProject(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, err := s.CreateProject(ctx, "Thesis", "#FF0000", "chapter drafts", 600)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Thesis" || p.Color != "#FF0000" || p.Description != "chapter drafts" || p.ExpectedMinutes != 600 {
		t.Fatalf("unexpected project: %+v", p)
	}
	if p.ID == 0 || p.Archived || p.Completed || p.CompletedAt != nil {
		t.Fatalf("unexpected defaults: %+v", p)
	}
	if p.CreatedAt.IsZero() {
		t.Fatal("CreatedAt should be set")
	}
}

func TestCreateProjectDuplicateName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.CreateProject(ctx, "Dup", "#111", "", 0); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateProject(ctx, "Dup", "#222", "", 0); err == nil {
		t.Fatal("expected error for duplicate project name")
	}
}

func TestGetProjectNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetProject(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListProjectsAndArchive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a, _ := s.CreateProject(ctx, "Alpha", "#111", "", 0)
	s.CreateProject(ctx, "Beta", "#222", "", 0)

	if err := s.ArchiveProject(ctx, a.ID); err != nil {
		t.Fatal(err)
	}

	active, err := s.ListProjects(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].Name != "Beta" {
		t.Fatalf("expected only Beta, got %+v", active)
	}

	all, _ := s.ListProjects(ctx, true)
	if len(all) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(all))
	}
}

func TestUpdateAndCompleteProject(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, _ := s.CreateProject(ctx, "Old", "#111", "", 0)

	if err := s.UpdateProject(ctx, p.ID, "New", "#333", "desc", 120); err != nil {
		t.Fatal(err)
	}
	if err := s.SetProjectCompleted(ctx, p.ID, true); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetProject(ctx, p.ID)
	if got.Name != "New" || got.Color != "#333" || got.ExpectedMinutes != 120 {
		t.Fatalf("update not applied: %+v", got)
	}
	if !got.Completed || got.CompletedAt == nil {
		t.Fatalf("expected completed with timestamp: %+v", got)
	}

	s.SetProjectCompleted(ctx, p.ID, false)
	got, _ = s.GetProject(ctx, p.ID)
	if got.Completed || got.CompletedAt != nil {
		t.Fatalf("expected reopened project: %+v", got)
	}
}

// ============================================================
// Tasks
// ============================================================

func TestCreateAndGetTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, _ := s.CreateProject(ctx, "Dev", "#000", "", 0)

	task, err := s.CreateTask(ctx, &p.ID, "Write parser", 50, true)
	if err != nil {
		t.Fatal(err)
	}
	if task.ProjectID == nil || *task.ProjectID != p.ID {
		t.Fatalf("project id not set: %+v", task)
	}
	if task.Title != "Write parser" || task.ExpectedMinutes != 50 || !task.AlarmOnCompletion {
		t.Fatalf("unexpected task: %+v", task)
	}
	if task.Completed || task.ActualMinutes != 0 {
		t.Fatalf("unexpected defaults: %+v", task)
	}
}

func TestCreateTaskWithoutProject(t *testing.T) {
	s := newTestStore(t)
	task, err := s.CreateTask(context.Background(), nil, "Inbox zero", 25, false)
	if err != nil {
		t.Fatal(err)
	}
	if task.ProjectID != nil {
		t.Fatal("expected nil project id")
	}
}

func TestUpsertTaskUpdatesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	task, _ := s.CreateTask(ctx, nil, "Read", 30, false)

	now := time.Now().UTC().Truncate(time.Second)
	task.ActualMinutes = 35
	task.Completed = true
	task.CompletedAt = &now
	id, err := s.UpsertTask(ctx, task)
	if err != nil {
		t.Fatal(err)
	}
	if id != task.ID {
		t.Fatalf("upsert returned id %d, want %d", id, task.ID)
	}

	got, _ := s.GetTask(ctx, task.ID)
	if got.ActualMinutes != 35 || !got.Completed || got.CompletedAt == nil || !got.CompletedAt.Equal(now) {
		t.Fatalf("upsert not applied: %+v", got)
	}
}

func TestUpsertTaskMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.UpsertTask(context.Background(), &Task{ID: 42, Title: "ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetTask(context.Background(), 7)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListTasks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, _ := s.CreateProject(ctx, "Dev", "#000", "", 0)
	s.CreateTask(ctx, &p.ID, "A", 10, false)
	b, _ := s.CreateTask(ctx, &p.ID, "B", 10, false)
	s.CreateTask(ctx, nil, "Loose", 10, false)
	s.ArchiveTask(ctx, b.ID)

	inProject, err := s.ListTasks(ctx, &p.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(inProject) != 1 || inProject[0].Title != "A" {
		t.Fatalf("unexpected project tasks: %+v", inProject)
	}

	all, _ := s.ListTasks(ctx, nil, true)
	if len(all) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(all))
	}
}

func TestDeleteProjectCascadesTasks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, _ := s.CreateProject(ctx, "Tmp", "#000", "", 0)
	task, _ := s.CreateTask(ctx, &p.ID, "Child", 10, false)

	if _, err := s.db.Exec(`DELETE FROM projects WHERE id = ?`, p.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetTask(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected task to be deleted with its project, got %v", err)
	}
}

// ============================================================
// Session logs
// ============================================================

func TestAppendSessionLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	task, _ := s.CreateTask(ctx, nil, "Focus", 25, false)

	id := appendLog(t, s, "s-1", &task.ID, SessionWork, time.Hour, 25)
	if id == 0 {
		t.Fatal("expected non-zero id")
	}

	logs, err := s.ListSessionLogs(ctx, LogFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(logs))
	}
	l := logs[0]
	if l.SessionID != "s-1" || l.Type != SessionWork || l.ActualMinutes != 25 || l.TaskID == nil || *l.TaskID != task.ID {
		t.Fatalf("unexpected log: %+v", l)
	}
}

func TestAppendSessionLogIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := appendLog(t, s, "same", nil, SessionWork, time.Hour, 25)
	second := appendLog(t, s, "same", nil, SessionWork, time.Hour, 30)
	if first != second {
		t.Fatalf("expected same id, got %d and %d", first, second)
	}

	logs, _ := s.ListSessionLogs(ctx, LogFilter{})
	if len(logs) != 1 || logs[0].ActualMinutes != 25 {
		t.Fatalf("expected the first write to win, got %+v", logs)
	}

	ok, err := s.HasSessionLog(ctx, "same")
	if err != nil || !ok {
		t.Fatalf("HasSessionLog = %v, %v", ok, err)
	}
	ok, _ = s.HasSessionLog(ctx, "other")
	if ok {
		t.Fatal("unexpected log for unknown session")
	}
}

func TestAppendSessionLogValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.AppendSessionLog(ctx, SessionLog{Type: SessionWork}); err == nil {
		t.Fatal("expected error for empty session id")
	}
	if _, err := s.AppendSessionLog(ctx, SessionLog{SessionID: "x", Type: "NAP"}); err == nil {
		t.Fatal("expected error for invalid type")
	}
}

func TestSumSessionMinutes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	task, _ := s.CreateTask(ctx, nil, "Essay", 25, false)
	other, _ := s.CreateTask(ctx, nil, "Other", 25, false)

	appendLog(t, s, "a", &task.ID, SessionWork, 3*time.Hour, 10)
	appendLog(t, s, "b", &task.ID, SessionWork, 2*time.Hour, 10)
	appendLog(t, s, "c", &other.ID, SessionWork, time.Hour, 50)
	appendLog(t, s, "d", nil, SessionBreak, time.Hour, 5)

	total, err := s.SumSessionMinutes(ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if total != 20 {
		t.Fatalf("expected 20, got %d", total)
	}

	none, _ := s.SumSessionMinutes(ctx, 999)
	if none != 0 {
		t.Fatalf("expected 0 for unknown task, got %d", none)
	}
}

func TestListSessionLogsFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	task, _ := s.CreateTask(ctx, nil, "T", 25, false)
	appendLog(t, s, "1", &task.ID, SessionWork, 3*time.Hour, 25)
	appendLog(t, s, "2", nil, SessionBreak, 2*time.Hour, 5)
	appendLog(t, s, "3", nil, SessionWork, time.Hour, 25)

	byTask, _ := s.ListSessionLogs(ctx, LogFilter{TaskID: &task.ID})
	if len(byTask) != 1 {
		t.Fatalf("expected 1 task log, got %d", len(byTask))
	}
	breaks, _ := s.ListSessionLogs(ctx, LogFilter{Type: SessionBreak})
	if len(breaks) != 1 || breaks[0].SessionID != "2" {
		t.Fatalf("unexpected breaks: %+v", breaks)
	}
	limited, _ := s.ListSessionLogs(ctx, LogFilter{Limit: 2})
	if len(limited) != 2 || limited[0].SessionID != "3" {
		t.Fatalf("expected newest first with limit, got %+v", limited)
	}
	from := time.Now().UTC().Add(-90 * time.Minute)
	recent, _ := s.ListSessionLogs(ctx, LogFilter{From: &from})
	if len(recent) != 1 {
		t.Fatalf("expected 1 recent log, got %d", len(recent))
	}
}

func TestDailySummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, _ := s.CreateProject(ctx, "Dev", "#ABCDEF", "", 0)
	task, _ := s.CreateTask(ctx, &p.ID, "T", 25, false)

	appendLog(t, s, "1", &task.ID, SessionWork, time.Minute, 25)
	appendLog(t, s, "2", &task.ID, SessionWork, time.Minute, 15)
	appendLog(t, s, "3", nil, SessionWork, time.Minute, 10)
	appendLog(t, s, "4", nil, SessionBreak, time.Minute, 5)

	now := time.Now().UTC()
	from := now.Add(-24 * time.Hour)
	to := now.Add(24 * time.Hour)
	summary, err := s.GetDailySummary(ctx, from, to)
	if err != nil {
		t.Fatal(err)
	}

	byProject := map[int64]DailySummary{}
	for _, ds := range summary {
		byProject[ds.ProjectID] = ds
	}
	if ds := byProject[p.ID]; ds.TotalMinutes != 40 || ds.SessionCount != 2 || ds.ProjectColor != "#ABCDEF" {
		t.Fatalf("unexpected project summary: %+v", ds)
	}
	if ds := byProject[0]; ds.TotalMinutes != 10 || ds.ProjectName != "Untracked" {
		t.Fatalf("unexpected untracked summary: %+v", ds)
	}
}

func TestTodayMinutes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	appendLog(t, s, "1", nil, SessionWork, 0, 25)
	appendLog(t, s, "2", nil, SessionBreak, 0, 5)

	total, err := s.GetTodayMinutes(ctx, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if total != 25 {
		t.Fatalf("expected 25, got %d", total)
	}
}

func TestTodayMinutesUsesGivenDay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	logs := []struct {
		id    string
		start time.Time
		mins  int
	}{
		{"yesterday", day.Add(-time.Hour), 50},
		{"morning", day.Add(9 * time.Hour), 25},
		{"evening", day.Add(21 * time.Hour), 30},
		{"tomorrow", day.Add(25 * time.Hour), 40},
	}
	for _, l := range logs {
		_, err := s.AppendSessionLog(ctx, SessionLog{
			SessionID:       l.id,
			Type:            SessionWork,
			StartTime:       l.start,
			EndTime:         l.start.Add(time.Duration(l.mins) * time.Minute),
			ExpectedMinutes: l.mins,
			ActualMinutes:   l.mins,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"start of day", day, 55},
		{"end of day", day.Add(24*time.Hour - time.Second), 55},
		{"previous day", day.Add(-time.Minute), 50},
		{"next day", day.Add(24 * time.Hour), 40},
		{"empty day", day.AddDate(0, 0, 7), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.GetTodayMinutes(ctx, tt.now)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

// ============================================================
// Settings
// ============================================================

func TestDefaultSettings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tests := map[string]string{
		"work_minutes":           "25",
		"break_minutes":          "5",
		"break_reminder_minutes": "30",
		"break_reminders":        "off",
	}
	for k, want := range tests {
		got, err := s.GetSetting(ctx, k)
		if err != nil {
			t.Fatalf("get %s: %v", k, err)
		}
		if got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
}

func TestSetAndGetIntSetting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.SetSetting(ctx, "work_minutes", "50"); err != nil {
		t.Fatal(err)
	}
	if got := s.GetIntSetting(ctx, "work_minutes", 25); got != 50 {
		t.Fatalf("expected 50, got %d", got)
	}
	s.SetSetting(ctx, "work_minutes", "abc")
	if got := s.GetIntSetting(ctx, "work_minutes", 25); got != 25 {
		t.Fatalf("expected fallback 25, got %d", got)
	}
	if got := s.GetIntSetting(ctx, "missing", 7); got != 7 {
		t.Fatalf("expected fallback 7, got %d", got)
	}

	all, _ := s.GetAllSettings(ctx)
	if len(all) != 4 {
		t.Fatalf("expected 4 settings, got %d", len(all))
	}
}

func TestGetBoolSetting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if s.GetBoolSetting(ctx, SettingBreakReminders) {
		t.Fatal("break reminders should default to off")
	}
	s.SetSetting(ctx, SettingBreakReminders, "on")
	if !s.GetBoolSetting(ctx, SettingBreakReminders) {
		t.Fatal("expected on")
	}
	if s.GetBoolSetting(ctx, "missing") {
		t.Fatal("missing key should read as off")
	}
}

// ============================================================
// Snapshot
// ============================================================

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	none, err := s.LoadSnapshot(ctx)
	if err != nil || none != nil {
		t.Fatalf("expected no snapshot, got %+v, %v", none, err)
	}

	start := time.UnixMilli(1_700_000_000_123)
	want := Snapshot{
		Running:         true,
		StartAt:         start,
		EndAt:           start.Add(25 * time.Minute),
		ExpectedMinutes: 25,
		Type:            SessionWork,
		TaskID:          int64p(7),
		PausedRemaining: time.Minute,
		SessionID:       "abc",
	}
	if err := s.SaveSnapshot(ctx, want); err != nil {
		t.Fatal(err)
	}

	got, err := s.LoadSnapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Running || !got.StartAt.Equal(want.StartAt) || !got.EndAt.Equal(want.EndAt) {
		t.Fatalf("unexpected instants: %+v", got)
	}
	if got.ExpectedMinutes != 25 || got.Type != SessionWork || got.TaskID == nil || *got.TaskID != 7 || got.SessionID != "abc" {
		t.Fatalf("unexpected fields: %+v", got)
	}
	if got.PausedRemaining != 0 {
		t.Fatalf("running snapshot must not keep a paused remainder, got %v", got.PausedRemaining)
	}
	if !got.Active() {
		t.Fatal("expected active snapshot")
	}
}

func TestSnapshotPausedAndClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveSnapshot(ctx, Snapshot{Running: true, ExpectedMinutes: 25, Type: SessionWork})
	s.SaveSnapshot(ctx, Snapshot{Running: false, ExpectedMinutes: 25, Type: SessionBreak, PausedRemaining: 90 * time.Second})

	got, _ := s.LoadSnapshot(ctx)
	if got.Running || got.PausedRemaining != 90*time.Second || got.Type != SessionBreak || got.TaskID != nil {
		t.Fatalf("unexpected paused snapshot: %+v", got)
	}

	if err := s.ClearSnapshot(ctx); err != nil {
		t.Fatal(err)
	}
	got, _ = s.LoadSnapshot(ctx)
	if got != nil {
		t.Fatalf("expected cleared snapshot, got %+v", got)
	}
	if got.Active() {
		t.Fatal("nil snapshot must not be active")
	}
}

func TestClearSessionSnapshotKeepsNewerSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveSnapshot(ctx, Snapshot{Running: true, ExpectedMinutes: 30, Type: SessionWork, SessionID: "newer"})
	if err := s.ClearSessionSnapshot(ctx, "older"); err != nil {
		t.Fatal(err)
	}
	got, _ := s.LoadSnapshot(ctx)
	if got == nil || got.SessionID != "newer" {
		t.Fatalf("snapshot of another session was cleared: %+v", got)
	}

	if err := s.ClearSessionSnapshot(ctx, "newer"); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.LoadSnapshot(ctx); got != nil {
		t.Fatalf("expected cleared snapshot, got %+v", got)
	}
}

// ============================================================
// Scheduled jobs
// ============================================================

func TestPutJobReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	at := time.UnixMilli(1_700_000_000_000)

	s.PutJob(ctx, Job{Slot: "slot", Token: "t1", FireAt: at, Payload: []byte(`{"a":1}`)})
	s.PutJob(ctx, Job{Slot: "slot", Token: "t2", FireAt: at.Add(time.Minute), Payload: []byte(`{"a":2}`)})

	j, err := s.GetJob(ctx, "slot")
	if err != nil {
		t.Fatal(err)
	}
	if j.Token != "t2" || !j.FireAt.Equal(at.Add(time.Minute)) || string(j.Payload) != `{"a":2}` || j.Status != JobPending {
		t.Fatalf("unexpected job: %+v", j)
	}
}

func TestGetJobMissing(t *testing.T) {
	s := newTestStore(t)
	j, err := s.GetJob(context.Background(), "nope")
	if err != nil || j != nil {
		t.Fatalf("expected nil job, got %+v, %v", j, err)
	}
}

func TestClaimJobOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)
	s.PutJob(ctx, Job{Slot: "slot", Token: "t1", FireAt: now.Add(-time.Second)})

	due, err := s.DueJobs(ctx, now, now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 {
		t.Fatalf("expected 1 due job, got %d", len(due))
	}

	ok, err := s.ClaimJob(ctx, "slot", "t1", now, now.Add(-time.Minute))
	if err != nil || !ok {
		t.Fatalf("first claim = %v, %v", ok, err)
	}
	ok, _ = s.ClaimJob(ctx, "slot", "t1", now, now.Add(-time.Minute))
	if ok {
		t.Fatal("second claim must fail")
	}

	j, _ := s.GetJob(ctx, "slot")
	if j.Status != JobRunning || j.Attempts != 1 {
		t.Fatalf("unexpected claimed job: %+v", j)
	}
}

func TestClaimJobStaleToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)
	s.PutJob(ctx, Job{Slot: "slot", Token: "old", FireAt: now})
	s.PutJob(ctx, Job{Slot: "slot", Token: "new", FireAt: now})

	ok, _ := s.ClaimJob(ctx, "slot", "old", now, now)
	if ok {
		t.Fatal("claim with replaced token must fail")
	}
}

func TestStaleRunningJobIsDueAgain(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)
	s.PutJob(ctx, Job{Slot: "slot", Token: "t", FireAt: now})
	s.ClaimJob(ctx, "slot", "t", now, now)

	later := now.Add(10 * time.Minute)
	due, _ := s.DueJobs(ctx, later, later.Add(-5*time.Minute))
	if len(due) != 1 {
		t.Fatalf("expected stale claim to be due, got %d", len(due))
	}
	ok, _ := s.ClaimJob(ctx, "slot", "t", later, later.Add(-5*time.Minute))
	if !ok {
		t.Fatal("expected stale claim to be reclaimable")
	}
}

func TestFinishJobKeepsReplacement(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)
	s.PutJob(ctx, Job{Slot: "slot", Token: "t1", FireAt: now})
	s.ClaimJob(ctx, "slot", "t1", now, now)
	s.PutJob(ctx, Job{Slot: "slot", Token: "t2", FireAt: now.Add(time.Hour)})

	if err := s.FinishJob(ctx, "slot", "t1"); err != nil {
		t.Fatal(err)
	}
	j, _ := s.GetJob(ctx, "slot")
	if j == nil || j.Token != "t2" {
		t.Fatalf("replacement job must survive, got %+v", j)
	}

	s.FinishJob(ctx, "slot", "t2")
	j, _ = s.GetJob(ctx, "slot")
	if j != nil {
		t.Fatalf("expected job removed, got %+v", j)
	}
}

func TestRescheduleAndFailJob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)
	s.PutJob(ctx, Job{Slot: "slot", Token: "t", FireAt: now, Period: 15 * time.Minute})
	s.ClaimJob(ctx, "slot", "t", now, now)

	next := now.Add(15 * time.Minute)
	if err := s.RescheduleJob(ctx, "slot", "t", next, false, "boom"); err != nil {
		t.Fatal(err)
	}
	j, _ := s.GetJob(ctx, "slot")
	if j.Status != JobPending || !j.FireAt.Equal(next) || j.Attempts != 1 || j.LastError != "boom" || j.Period != 15*time.Minute {
		t.Fatalf("unexpected rescheduled job: %+v", j)
	}

	s.RescheduleJob(ctx, "slot", "t", next, true, "")
	j, _ = s.GetJob(ctx, "slot")
	if j.Attempts != 0 {
		t.Fatalf("expected attempts reset, got %d", j.Attempts)
	}

	s.FailJob(ctx, "slot", "t", "gave up")
	j, _ = s.GetJob(ctx, "slot")
	if j.Status != JobFailed || j.LastError != "gave up" {
		t.Fatalf("unexpected failed job: %+v", j)
	}
	due, _ := s.DueJobs(ctx, next.Add(time.Hour), next)
	if len(due) != 0 {
		t.Fatal("failed jobs must not be due")
	}

	s.DeleteJob(ctx, "slot")
	if j, _ := s.GetJob(ctx, "slot"); j != nil {
		t.Fatal("expected job deleted")
	}
	if err := s.DeleteJob(ctx, "slot"); err != nil {
		t.Fatalf("deleting a missing job should not fail: %v", err)
	}
}
