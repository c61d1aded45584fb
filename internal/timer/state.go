package timer

import (
	"time"

	"github.com/sadopc/focus/internal/store"
)

type Phase int

const (
	Idle Phase = iota
	Running
	Paused
)

func (p Phase) String() string {
	switch p {
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return "idle"
	}
}

// State is the observable projection of the machine.
type State struct {
	Phase           Phase
	Type            store.SessionType
	Remaining       time.Duration
	Total           time.Duration
	ExpectedMinutes int
	TaskID          *int64
	EndAt           time.Time
	SessionID       string
}

// Progress returns the elapsed fraction of the session in [0, 1].
func (s State) Progress() float64 {
	if s.Total <= 0 {
		return 0
	}
	p := 1 - float64(s.Remaining)/float64(s.Total)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
