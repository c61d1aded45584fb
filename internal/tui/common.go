package tui

import (
	"fmt"
	"time"

	"github.com/sadopc/focus/internal/timer"
)

// viewState represents the currently active view.
type viewState int

const (
	viewFocus viewState = iota
	viewProjects
	viewReports
	viewSettings
)

var viewNames = []string{"Focus", "Projects", "Reports", "Settings"}

// --- Messages ---

// stateMsg carries a state published by the session machine.
type stateMsg struct {
	state  timer.State
	closed bool
}

type statusMsg struct {
	text    string
	isError bool
}

type exportDoneMsg struct {
	path string
}

// refreshMsg asks the focus view to reload today's numbers.
type refreshMsg struct{}

// --- Helpers ---

// formatCountdown renders mm:ss, rounding partial seconds up so a fresh
// 25 minute session reads 25:00.
func formatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func formatMinutes(mins int) string {
	if mins < 60 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dh %02dm", mins/60, mins%60)
}

func formatHours(mins int) string {
	return fmt.Sprintf("%.1fh", float64(mins)/60)
}
