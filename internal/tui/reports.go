package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/focus/internal/store"
)

type reportMode int

const (
	reportDaily reportMode = iota // rolling 7 days ending today
	reportWeekly                  // calendar week starting Monday
)

const topTaskCount = 5

// projectTotal is one project's share of the focused minutes in range.
type projectTotal struct {
	id       int64
	name     string
	color    string
	minutes  int
	sessions int
}

type taskTotal struct {
	title   string
	minutes int
}

type reportsModel struct {
	store  *store.Store
	width  int
	height int

	mode   reportMode
	offset int // periods back from the current one

	summaries    []store.DailySummary
	tasks        []taskTotal
	breakCount   int
	breakMinutes int

	chart barchart.Model
}

func newReportsModel(s *store.Store) reportsModel {
	return reportsModel{
		store: s,
		chart: barchart.New(60, 12),
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

type reportsDataMsg struct {
	summaries    []store.DailySummary
	tasks        []taskTotal
	breakCount   int
	breakMinutes int
}

func (r reportsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		from, to := r.dateRange()
		summaries, _ := r.store.GetDailySummary(ctx, from, to)
		logs, _ := r.store.ListSessionLogs(ctx, store.LogFilter{From: &from, To: &to})
		all, _ := r.store.ListTasks(ctx, nil, true)

		titles := make(map[int64]string, len(all))
		for _, t := range all {
			titles[t.ID] = t.Title
		}

		msg := reportsDataMsg{summaries: summaries}
		msg.tasks = totalsByTask(logs, titles)
		for _, l := range logs {
			if l.Type == store.SessionBreak {
				msg.breakCount++
				msg.breakMinutes += l.ActualMinutes
			}
		}
		return msg
	}
}

// totalsByTask sums WORK minutes per bound task, largest first.
func totalsByTask(logs []store.SessionLog, titles map[int64]string) []taskTotal {
	byID := make(map[int64]int)
	for _, l := range logs {
		if l.Type != store.SessionWork || l.TaskID == nil {
			continue
		}
		byID[*l.TaskID] += l.ActualMinutes
	}

	totals := make([]taskTotal, 0, len(byID))
	for id, mins := range byID {
		title, ok := titles[id]
		if !ok {
			title = fmt.Sprintf("task #%d", id)
		}
		totals = append(totals, taskTotal{title: title, minutes: mins})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].minutes != totals[j].minutes {
			return totals[i].minutes > totals[j].minutes
		}
		return totals[i].title < totals[j].title
	})
	return totals
}

func (r reportsModel) dateRange() (time.Time, time.Time) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	if r.mode == reportWeekly {
		back := (int(today.Weekday()) + 6) % 7
		start := today.AddDate(0, 0, -back-7*r.offset)
		return start, start.AddDate(0, 0, 7)
	}
	end := today.AddDate(0, 0, 1-7*r.offset)
	return end.AddDate(0, 0, -7), end
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reportsDataMsg:
		r.summaries = msg.summaries
		r.tasks = msg.tasks
		r.breakCount = msg.breakCount
		r.breakMinutes = msg.breakMinutes
		r.buildChart()
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			r.offset++
			return r, r.refresh()
		case key.Matches(msg, keys.Right):
			if r.offset == 0 {
				return r, nil
			}
			r.offset--
			return r, r.refresh()
		case key.Matches(msg, keys.Tab):
			r.mode = (r.mode + 1) % 2
			r.offset = 0
			return r, r.refresh()
		}
	}
	return r, nil
}

func (r *reportsModel) buildChart() {
	height := 12
	if r.height > 30 {
		height = 16
	}
	r.chart = barchart.New(max(r.width-8, 20), height)

	perDay := make(map[string][]store.DailySummary)
	for _, s := range r.summaries {
		perDay[s.Date] = append(perDay[s.Date], s)
	}

	from, to := r.dateRange()
	var bars []barchart.BarData
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		var values []barchart.BarValue
		for _, s := range perDay[d.Format("2006-01-02")] {
			values = append(values, barchart.BarValue{
				Name:  s.ProjectName,
				Value: float64(s.TotalMinutes) / 60,
				Style: lipgloss.NewStyle().Foreground(lipgloss.Color(s.ProjectColor)),
			})
		}
		if values == nil {
			values = []barchart.BarValue{{Style: lipgloss.NewStyle().Foreground(colorSubtle)}}
		}
		bars = append(bars, barchart.BarData{Label: d.Format("Mon 02"), Values: values})
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

// projectTotals folds the per-day rows into one row per project, largest
// first.
func (r reportsModel) projectTotals() []projectTotal {
	index := make(map[int64]int)
	var totals []projectTotal
	for _, s := range r.summaries {
		i, ok := index[s.ProjectID]
		if !ok {
			i = len(totals)
			index[s.ProjectID] = i
			totals = append(totals, projectTotal{id: s.ProjectID, name: s.ProjectName, color: s.ProjectColor})
		}
		totals[i].minutes += s.TotalMinutes
		totals[i].sessions += s.SessionCount
	}
	sort.SliceStable(totals, func(i, j int) bool { return totals[i].minutes > totals[j].minutes })
	return totals
}

func (r reportsModel) totalMinutes() int {
	total := 0
	for _, s := range r.summaries {
		total += s.TotalMinutes
	}
	return total
}

func (r reportsModel) view() string {
	w := r.width - 4

	labels := []string{"7 days", "Week"}
	tabs := make([]string, len(labels))
	for i, l := range labels {
		style := inactiveTabStyle
		if reportMode(i) == r.mode {
			style = activeTabStyle
		}
		tabs[i] = style.Render(l)
	}

	from, to := r.dateRange()
	span := mutedStyle.Render(from.Format("Jan 02") + " - " + to.AddDate(0, 0, -1).Format("Jan 02, 2006"))
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Reports"), "  ",
		lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...), "  ",
		span, "  ",
		highlightStyle.Render(formatHours(r.totalMinutes())),
	)

	body := []string{header, "", r.chart.View(), "", r.renderProjects(w)}
	if len(r.tasks) > 0 {
		body = append(body, "", r.renderTasks())
	}
	if r.breakCount > 0 {
		body = append(body, "", mutedStyle.Render(fmt.Sprintf("  Breaks: %d (%s)", r.breakCount, formatMinutes(r.breakMinutes))))
	}
	body = append(body, "", mutedStyle.Render("  ←/→: navigate  tab: switch range"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, body...))
}

func (r reportsModel) renderProjects(w int) string {
	totals := r.projectTotals()
	if len(totals) == 0 {
		return mutedStyle.Render("  No focus sessions in this range")
	}

	all := r.totalMinutes()
	rows := []string{
		mutedStyle.Render(fmt.Sprintf("  %-22s %10s %6s %9s", "Project", "Focused", "Share", "Sessions")),
		mutedStyle.Render("  " + strings.Repeat("─", min(w-6, 50))),
	}
	for _, p := range totals {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color(p.color)).Render("●")
		share := 0
		if all > 0 {
			share = p.minutes * 100 / all
		}
		rows = append(rows, fmt.Sprintf("  %s %-20s %10s %5d%% %9d",
			dot, p.name, formatMinutes(p.minutes), share, p.sessions))
	}
	return strings.Join(rows, "\n")
}

func (r reportsModel) renderTasks() string {
	rows := []string{titleStyle.Render("Top tasks")}
	for i, t := range r.tasks {
		if i == topTaskCount {
			break
		}
		rows = append(rows, fmt.Sprintf("  %-30s %s", t.title, formatMinutes(t.minutes)))
	}
	return strings.Join(rows, "\n")
}
