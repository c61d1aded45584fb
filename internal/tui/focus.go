package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/focus/internal/store"
	"github.com/sadopc/focus/internal/timer"
)

// completionDelay leaves the runner time to log a finished session before
// the view reloads its numbers.
const completionDelay = 2 * time.Second

type focusModel struct {
	store  *store.Store
	timer  timerModel
	width  int
	height int

	todayMinutes int
	todaySummary []store.DailySummary
	recentLogs   []store.SessionLog
	tasks        []store.Task
	taskTitles   map[int64]string
	workMinutes  int
	breakMinutes int

	// Task picker state; row 0 is "no task"
	picking      bool
	pickerCursor int
}

func newFocusModel(s *store.Store, t Timer) focusModel {
	return focusModel{
		store:        s,
		timer:        newTimerModel(t),
		taskTitles:   make(map[int64]string),
		workMinutes:  store.DefaultWorkMinutes,
		breakMinutes: store.DefaultBreakMinutes,
	}
}

func (f focusModel) Init() tea.Cmd {
	return f.loadData()
}

func (f *focusModel) setSize(w, h int) {
	f.width = w
	f.height = h
}

func (f focusModel) isRunning() bool { return f.timer.running() }
func (f focusModel) isPaused() bool  { return f.timer.paused() }
func (f focusModel) remaining() time.Duration {
	return f.timer.state.Remaining
}

type focusDataMsg struct {
	todayMinutes int
	todaySummary []store.DailySummary
	recentLogs   []store.SessionLog
	tasks        []store.Task
	taskTitles   map[int64]string
	workMinutes  int
	breakMinutes int
}

func (f focusModel) loadData() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		total, _ := f.store.GetTodayMinutes(ctx, time.Now())

		now := time.Now().UTC()
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		summary, _ := f.store.GetDailySummary(ctx, dayStart, dayStart.Add(24*time.Hour))

		logs, _ := f.store.ListSessionLogs(ctx, store.LogFilter{Limit: 5})
		all, _ := f.store.ListTasks(ctx, nil, true)

		titles := make(map[int64]string, len(all))
		var open []store.Task
		for _, t := range all {
			titles[t.ID] = t.Title
			if !t.Completed && !t.Archived {
				open = append(open, t)
			}
		}

		return focusDataMsg{
			todayMinutes: total,
			todaySummary: summary,
			recentLogs:   logs,
			tasks:        open,
			taskTitles:   titles,
			workMinutes:  f.store.GetIntSetting(ctx, store.SettingWorkMinutes, store.DefaultWorkMinutes),
			breakMinutes: f.store.GetIntSetting(ctx, store.SettingBreakMinutes, store.DefaultBreakMinutes),
		}
	}
}

func (f focusModel) update(msg tea.Msg) (focusModel, tea.Cmd) {
	switch msg := msg.(type) {
	case focusDataMsg:
		f.todayMinutes = msg.todayMinutes
		f.todaySummary = msg.todaySummary
		f.recentLogs = msg.recentLogs
		f.tasks = msg.tasks
		f.taskTitles = msg.taskTitles
		f.workMinutes = msg.workMinutes
		f.breakMinutes = msg.breakMinutes
		if f.pickerCursor > len(f.tasks) {
			f.pickerCursor = 0
		}
		return f, nil

	case stateMsg:
		prev := f.timer.state
		f.timer.state = msg.state
		if prev.Phase == timer.Running && msg.state.Phase == timer.Idle && prev.Remaining <= completionDelay {
			label := "Work session complete"
			if prev.Type == store.SessionBreak {
				label = "Break complete"
			}
			return f, tea.Batch(
				func() tea.Msg { return statusMsg{text: label + " \a"} },
				tea.Tick(completionDelay, func(time.Time) tea.Msg { return refreshMsg{} }),
			)
		}
		return f, nil

	case refreshMsg:
		return f, f.loadData()

	case tea.KeyMsg:
		if f.picking {
			return f.updatePicker(msg)
		}

		switch {
		case key.Matches(msg, keys.Start):
			if !f.timer.idle() {
				return f, nil
			}
			if len(f.tasks) == 0 {
				return f.startSession(store.SessionWork, nil)
			}
			f.picking = true
			f.pickerCursor = 0
			return f, nil

		case key.Matches(msg, keys.Break):
			if !f.timer.idle() {
				return f, nil
			}
			return f.startSession(store.SessionBreak, nil)

		case key.Matches(msg, keys.Stop):
			if f.timer.idle() {
				return f, nil
			}
			f.timer.cancel()
			return f, func() tea.Msg { return statusMsg{text: "Session cancelled"} }

		case key.Matches(msg, keys.Pause):
			f.timer.toggle()
			return f, nil
		}
	}
	return f, nil
}

func (f focusModel) updatePicker(msg tea.KeyMsg) (focusModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if f.pickerCursor > 0 {
			f.pickerCursor--
		}
	case key.Matches(msg, keys.Down):
		if f.pickerCursor < len(f.tasks) {
			f.pickerCursor++
		}
	case key.Matches(msg, keys.Enter):
		f.picking = false
		var taskID *int64
		if f.pickerCursor > 0 {
			id := f.tasks[f.pickerCursor-1].ID
			taskID = &id
		}
		return f.startSession(store.SessionWork, taskID)
	case key.Matches(msg, keys.Back):
		f.picking = false
	}
	return f, nil
}

func (f focusModel) startSession(kind store.SessionType, taskID *int64) (focusModel, tea.Cmd) {
	minutes := f.workMinutes
	if kind == store.SessionBreak {
		minutes = f.breakMinutes
	}
	f.timer.start(kind, minutes, taskID)
	text := fmt.Sprintf("Started %d min %s", minutes, strings.ToLower(string(kind)))
	return f, func() tea.Msg { return statusMsg{text: text} }
}

func (f focusModel) view() string {
	if f.width < 20 {
		return "Terminal too small"
	}

	contentWidth := f.width - 4

	timerPanel := f.renderTimerPanel(contentWidth)
	summaryPanel := f.renderSummaryPanel(contentWidth)

	var bottomPanel string
	if f.picking {
		bottomPanel = f.renderTaskPicker(contentWidth)
	} else {
		bottomPanel = f.renderRecentPanel(contentWidth)
	}

	return lipgloss.JoinVertical(lipgloss.Left, timerPanel, summaryPanel, bottomPanel)
}

func (f focusModel) renderTimerPanel(w int) string {
	s := f.timer.state
	inner := max(w-6, 10)

	if s.Phase == timer.Idle {
		timeDisplay := timerStyle.Width(inner).Render(formatCountdown(time.Duration(f.workMinutes) * time.Minute))
		indicator := mutedStyle.Render("■  READY")
		hint := mutedStyle.Render(fmt.Sprintf("s: %d min work  b: %d min break", f.workMinutes, f.breakMinutes))
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Center, timeDisplay, indicator, hint))
	}

	label := accentStyle.Bold(true).Render("WORK")
	if s.Type == store.SessionBreak {
		label = successStyle.Bold(true).Render("BREAK")
	}

	var timeDisplay, indicator string
	if s.Phase == timer.Paused {
		timeDisplay = timerPausedStyle.Width(inner).Render(formatCountdown(s.Remaining))
		indicator = warningStyle.Render("⏸  PAUSED")
	} else {
		timeDisplay = timerRunningStyle.Width(inner).Render(formatCountdown(s.Remaining))
		indicator = successStyle.Render("●  RUNNING")
	}

	rows := []string{timeDisplay, label + "  " + indicator, renderProgressBar(min(inner, 50), s.Progress())}
	if s.TaskID != nil {
		title, ok := f.taskTitles[*s.TaskID]
		if !ok {
			title = fmt.Sprintf("task #%d", *s.TaskID)
		}
		rows = append(rows, highlightStyle.Render(title))
	}
	rows = append(rows, mutedStyle.Render("space: pause/resume  x: cancel"))

	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Center, rows...))
}

func renderProgressBar(width int, fraction float64) string {
	if width <= 0 {
		return ""
	}
	filled := int(fraction * float64(width))
	filled = max(0, min(filled, width))
	return barFilledStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", width-filled))
}

func (f focusModel) renderSummaryPanel(w int) string {
	title := titleStyle.Render("Today")
	total := highlightStyle.Render(formatMinutes(f.todayMinutes))
	header := fmt.Sprintf("%s  %s", title, total)

	if len(f.todaySummary) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			header,
			mutedStyle.Render("No focus sessions today"),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, header)
	for _, s := range f.todaySummary {
		colorDot := lipgloss.NewStyle().Foreground(lipgloss.Color(s.ProjectColor)).Render("●")
		row := fmt.Sprintf("  %s %-20s %8s  (%d sessions)",
			colorDot,
			s.ProjectName,
			formatMinutes(s.TotalMinutes),
			s.SessionCount,
		)
		rows = append(rows, row)
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (f focusModel) renderRecentPanel(w int) string {
	title := titleStyle.Render("Recent Sessions")
	if len(f.recentLogs) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("No sessions yet"),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	for _, l := range f.recentLogs {
		name := "-"
		if l.TaskID != nil {
			name = f.taskTitles[*l.TaskID]
		}
		kind := accentStyle.Render("work ")
		if l.Type == store.SessionBreak {
			kind = successStyle.Render("break")
		}
		row := fmt.Sprintf("  ✓ %s  %s %-20s %s",
			l.StartTime.Local().Format("Jan 02 15:04"), kind, name, formatMinutes(l.ActualMinutes))
		rows = append(rows, row)
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (f focusModel) renderTaskPicker(w int) string {
	title := titleStyle.Render("Select Task")

	var rows []string
	rows = append(rows, title)
	rows = append(rows, f.pickerRow(0, mutedStyle.Render("(no task)")))
	for i, t := range f.tasks {
		progress := mutedStyle.Render(fmt.Sprintf(" %d/%d min", t.ActualMinutes, t.ExpectedMinutes))
		rows = append(rows, f.pickerRow(i+1, t.Title)+progress)
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: start  esc: cancel"))

	return activePanelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (f focusModel) pickerRow(i int, label string) string {
	if i == f.pickerCursor {
		return selectedItemStyle.Render("> " + label)
	}
	return normalItemStyle.Render("  " + label)
}
