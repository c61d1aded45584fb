package store

import (
	"fmt"
	"strings"
	"time"
)

// SessionType distinguishes focused work from breaks.
type SessionType string

const (
	SessionWork  SessionType = "WORK"
	SessionBreak SessionType = "BREAK"
)

func (t SessionType) Valid() bool {
	return t == SessionWork || t == SessionBreak
}

// ParseSessionType accepts "work"/"break" in any case.
func ParseSessionType(s string) (SessionType, error) {
	t := SessionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("invalid session type %q", s)
	}
	return t, nil
}

type Project struct {
	ID              int64
	Name            string
	Color           string
	Description     string
	ExpectedMinutes int
	Completed       bool
	CompletedAt     *time.Time
	Archived        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Task struct {
	ID                int64
	ProjectID         *int64
	Title             string
	Description       string
	ExpectedMinutes   int
	ActualMinutes     int
	Completed         bool
	AlarmOnCompletion bool
	CompletedAt       *time.Time
	Archived          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SessionLog is one completed session in the ledger.
type SessionLog struct {
	ID              int64
	SessionID       string
	TaskID          *int64
	Type            SessionType
	StartTime       time.Time
	EndTime         time.Time
	ExpectedMinutes int
	ActualMinutes   int
	CreatedAt       time.Time
}

// Snapshot is the persisted projection of the live timer.
type Snapshot struct {
	Running         bool
	StartAt         time.Time
	EndAt           time.Time
	ExpectedMinutes int
	Type            SessionType
	TaskID          *int64
	PausedRemaining time.Duration
	SessionID       string
}

// Active reports whether the snapshot describes a session in progress.
func (s *Snapshot) Active() bool {
	return s != nil && s.ExpectedMinutes > 0
}

type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobFailed  JobStatus = "failed"
)

// Job is a row of the deferred job table. A Period of zero marks a one-shot job.
type Job struct {
	Slot      string
	Token     string
	FireAt    time.Time
	Period    time.Duration
	Payload   []byte
	Status    JobStatus
	Attempts  int
	ClaimedAt time.Time
	LastError string
	UpdatedAt time.Time
}

type Setting struct {
	Key   string
	Value string
}

// LogFilter is used to filter session logs in queries.
type LogFilter struct {
	TaskID *int64
	Type   SessionType
	From   *time.Time
	To     *time.Time
	Limit  int
}

// DailySummary represents aggregated minutes per project per day.
// Sessions without a project are reported with ProjectID 0.
type DailySummary struct {
	Date         string
	ProjectID    int64
	ProjectName  string
	ProjectColor string
	TotalMinutes int
	SessionCount int
}
