package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/focus/internal/store"
)

var projectColors = []string{"#6C63FF", "#2EC4B6", "#FF6B6B", "#F39C12", "#2ECC71", "#E74C3C", "#9B59B6", "#3498DB"}

type projectsModel struct {
	store  *store.Store
	width  int
	height int

	projects     []store.Project
	tasks        []store.Task
	cursor       int
	taskCursor   int
	showArchived bool
	viewingTasks bool // true = viewing tasks of selected project

	formActive bool
	form       *huh.Form
	formType   string // "project", "task", "edit_project"

	// Form field pointers (survive value copies)
	formName        *string
	formColor       *string
	formDescription *string
	formMinutes     *string
	formAlarm       *bool

	editingID int64 // project ID being edited
}

func newProjectsModel(s *store.Store) projectsModel {
	name, color, desc, mins := "", projectColors[0], "", ""
	alarm := false
	return projectsModel{
		store:           s,
		formName:        &name,
		formColor:       &color,
		formDescription: &desc,
		formMinutes:     &mins,
		formAlarm:       &alarm,
	}
}

func (p *projectsModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

type projectsDataMsg struct {
	projects []store.Project
}

type tasksDataMsg struct {
	tasks []store.Task
}

func (p projectsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		projects, _ := p.store.ListProjects(context.Background(), p.showArchived)
		return projectsDataMsg{projects: projects}
	}
}

func (p projectsModel) refreshTasks() tea.Cmd {
	if p.cursor >= len(p.projects) {
		return nil
	}
	pid := p.projects[p.cursor].ID
	return func() tea.Msg {
		tasks, _ := p.store.ListTasks(context.Background(), &pid, false)
		return tasksDataMsg{tasks: tasks}
	}
}

func (p projectsModel) update(msg tea.Msg) (projectsModel, tea.Cmd) {
	if p.formActive && p.form != nil {
		return p.updateForm(msg)
	}

	switch msg := msg.(type) {
	case projectsDataMsg:
		p.projects = msg.projects
		if p.cursor >= len(p.projects) {
			p.cursor = max(0, len(p.projects)-1)
		}
		return p, nil

	case tasksDataMsg:
		p.tasks = msg.tasks
		if p.taskCursor >= len(p.tasks) {
			p.taskCursor = max(0, len(p.tasks)-1)
		}
		return p, nil

	case tea.KeyMsg:
		if p.viewingTasks {
			return p.updateTaskView(msg)
		}
		return p.updateProjectList(msg)
	}
	return p, nil
}

func (p projectsModel) updateProjectList(msg tea.KeyMsg) (projectsModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if p.cursor > 0 {
			p.cursor--
		}
	case key.Matches(msg, keys.Down):
		if p.cursor < len(p.projects)-1 {
			p.cursor++
		}
	case key.Matches(msg, keys.Enter):
		if len(p.projects) > 0 {
			p.viewingTasks = true
			p.taskCursor = 0
			return p, p.refreshTasks()
		}
	case key.Matches(msg, keys.New):
		return p.showProjectForm(nil)
	case key.Matches(msg, keys.Delete):
		if len(p.projects) > 0 {
			proj := p.projects[p.cursor]
			p.store.ArchiveProject(context.Background(), proj.ID)
			return p, p.refresh()
		}
	case key.Matches(msg, keys.Edit):
		if len(p.projects) > 0 {
			proj := p.projects[p.cursor]
			return p.showProjectForm(&proj)
		}
	case key.Matches(msg, keys.Pause):
		if len(p.projects) > 0 {
			proj := p.projects[p.cursor]
			p.store.SetProjectCompleted(context.Background(), proj.ID, !proj.Completed)
			return p, p.refresh()
		}
	}
	return p, nil
}

func (p projectsModel) updateTaskView(msg tea.KeyMsg) (projectsModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		p.viewingTasks = false
		return p, nil
	case key.Matches(msg, keys.Up):
		if p.taskCursor > 0 {
			p.taskCursor--
		}
	case key.Matches(msg, keys.Down):
		if p.taskCursor < len(p.tasks)-1 {
			p.taskCursor++
		}
	case key.Matches(msg, keys.New):
		return p.showNewTaskForm()
	case key.Matches(msg, keys.Delete):
		if len(p.tasks) > 0 {
			task := p.tasks[p.taskCursor]
			p.store.ArchiveTask(context.Background(), task.ID)
			return p, p.refreshTasks()
		}
	case key.Matches(msg, keys.Pause):
		if len(p.tasks) > 0 {
			task := p.tasks[p.taskCursor]
			toggleTaskCompleted(&task, time.Now())
			p.store.UpsertTask(context.Background(), &task)
			return p, p.refreshTasks()
		}
	}
	return p, nil
}

func toggleTaskCompleted(t *store.Task, now time.Time) {
	t.Completed = !t.Completed
	if t.Completed {
		t.CompletedAt = &now
	} else {
		t.CompletedAt = nil
	}
}

func (p projectsModel) showProjectForm(existing *store.Project) (projectsModel, tea.Cmd) {
	*p.formName = ""
	*p.formColor = projectColors[0]
	*p.formDescription = ""
	*p.formMinutes = "0"
	p.formType = "project"
	if existing != nil {
		*p.formName = existing.Name
		*p.formColor = existing.Color
		*p.formDescription = existing.Description
		*p.formMinutes = strconv.Itoa(existing.ExpectedMinutes)
		p.formType = "edit_project"
		p.editingID = existing.ID
	}

	colorOptions := make([]huh.Option[string], len(projectColors))
	for i, c := range projectColors {
		colorOptions[i] = huh.NewOption(fmt.Sprintf("● %s", c), c)
	}

	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Project Name").Value(p.formName),
			huh.NewSelect[string]().Title("Color").Options(colorOptions...).Value(p.formColor),
			huh.NewInput().Title("Description").Value(p.formDescription),
			huh.NewInput().Title("Expected minutes").Value(p.formMinutes).Validate(validateMinutes),
		),
	).WithShowHelp(true).WithShowErrors(true)

	p.formActive = true
	return p, p.form.Init()
}

func (p projectsModel) showNewTaskForm() (projectsModel, tea.Cmd) {
	*p.formName = ""
	*p.formMinutes = strconv.Itoa(store.DefaultWorkMinutes)
	*p.formAlarm = false
	p.formType = "task"

	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Task Title").Value(p.formName),
			huh.NewInput().Title("Expected minutes").Value(p.formMinutes).Validate(validateMinutes),
			huh.NewConfirm().Title("Alarm on completion?").Value(p.formAlarm),
		),
	).WithShowHelp(true).WithShowErrors(true)

	p.formActive = true
	return p, p.form.Init()
}

func validateMinutes(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return fmt.Errorf("enter a whole number of minutes")
	}
	return nil
}

func parseMinutes(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (p projectsModel) updateForm(msg tea.Msg) (projectsModel, tea.Cmd) {
	// Check for escape to cancel form
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			p.formActive = false
			p.form = nil
			return p, nil
		}
	}

	form, cmd := p.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		p.form = f
	}

	if p.form.State == huh.StateCompleted {
		p.formActive = false
		ctx := context.Background()
		minutes := parseMinutes(*p.formMinutes)
		switch p.formType {
		case "project":
			if *p.formName != "" {
				p.store.CreateProject(ctx, *p.formName, *p.formColor, *p.formDescription, minutes)
			}
			return p, p.refresh()
		case "edit_project":
			if *p.formName != "" {
				p.store.UpdateProject(ctx, p.editingID, *p.formName, *p.formColor, *p.formDescription, minutes)
			}
			return p, p.refresh()
		case "task":
			if *p.formName != "" && p.cursor < len(p.projects) {
				pid := p.projects[p.cursor].ID
				p.store.CreateTask(ctx, &pid, *p.formName, minutes, *p.formAlarm)
			}
			return p, p.refreshTasks()
		}
	}

	return p, cmd
}

func (p projectsModel) view() string {
	if p.formActive && p.form != nil {
		title := titleStyle.Render("New Project")
		if p.formType == "edit_project" {
			title = titleStyle.Render("Edit Project")
		} else if p.formType == "task" {
			title = titleStyle.Render("New Task")
		}
		formView := p.form.View()
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", formView)
		return panelStyle.Width(p.width - 4).Render(content)
	}

	if p.viewingTasks {
		return p.renderTaskView()
	}
	return p.renderProjectList()
}

func (p projectsModel) renderProjectList() string {
	w := p.width - 4
	title := titleStyle.Render("Projects")

	if len(p.projects) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No projects yet. Press n to create one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	// Table header
	header := mutedStyle.Render(fmt.Sprintf("  %-3s %-24s %-10s %s", "", "Name", "Expected", "Description"))
	rows = append(rows, header)

	for i, proj := range p.projects {
		colorDot := lipgloss.NewStyle().Foreground(lipgloss.Color(proj.Color)).Render("●")
		cursor := "  "
		style := normalItemStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		name := proj.Name
		if proj.Completed {
			name = "✓ " + name
		}
		row := style.Render(fmt.Sprintf("%s%s %-24s %-10s %s", cursor, colorDot, name, formatMinutes(proj.ExpectedMinutes), proj.Description))
		rows = append(rows, row)
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  e: edit  space: done  d: archive  enter: tasks"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (p projectsModel) renderTaskView() string {
	w := p.width - 4
	proj := p.projects[p.cursor]
	colorDot := lipgloss.NewStyle().Foreground(lipgloss.Color(proj.Color)).Render("●")
	title := titleStyle.Render(fmt.Sprintf("%s %s · Tasks", colorDot, proj.Name))

	if len(p.tasks) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No tasks. Press n to add one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	for i, task := range p.tasks {
		cursor := "  "
		style := normalItemStyle
		if i == p.taskCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		mark := "○ "
		if task.Completed {
			mark = "✓ "
		}
		info := fmt.Sprintf(" %d/%d min", task.ActualMinutes, task.ExpectedMinutes)
		if task.AlarmOnCompletion {
			info += " ⏰"
		}
		rows = append(rows, style.Render(cursor+mark+task.Title)+mutedStyle.Render(info))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new task  space: done  d: archive  esc: back"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
