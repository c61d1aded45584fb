package tui

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/focus/internal/store"
)

type settingsModel struct {
	store  *store.Store
	timer  Timer
	width  int
	height int

	settings   []store.Setting
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	workMinutes     *string
	breakMinutes    *string
	reminderMinutes *string
	reminders       *bool
}

func newSettingsModel(s *store.Store, t Timer) settingsModel {
	wm, bm, rm := "", "", ""
	on := false
	return settingsModel{
		store:           s,
		timer:           t,
		workMinutes:     &wm,
		breakMinutes:    &bm,
		reminderMinutes: &rm,
		reminders:       &on,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings []store.Setting
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		settings, _ := s.store.GetAllSettings(context.Background())
		return settingsDataMsg{settings: settings}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.settings = msg.settings
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Edit):
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	ctx := context.Background()
	*s.workMinutes = strconv.Itoa(s.store.GetIntSetting(ctx, store.SettingWorkMinutes, store.DefaultWorkMinutes))
	*s.breakMinutes = strconv.Itoa(s.store.GetIntSetting(ctx, store.SettingBreakMinutes, store.DefaultBreakMinutes))
	*s.reminderMinutes = strconv.Itoa(s.store.GetIntSetting(ctx, store.SettingBreakReminderMinutes, store.DefaultBreakReminderMinutes))
	*s.reminders = s.store.GetBoolSetting(ctx, store.SettingBreakReminders)

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Work session (min)").Value(s.workMinutes).Validate(validatePositive),
			huh.NewInput().Title("Break session (min)").Value(s.breakMinutes).Validate(validatePositive),
		).Title("Sessions"),
		huh.NewGroup(
			huh.NewConfirm().Title("Break reminders").Affirmative("On").Negative("Off").Value(s.reminders),
			huh.NewInput().Title("Remind every (min, at least 15)").Value(s.reminderMinutes).Validate(validatePositive),
		).Title("Reminders"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func validatePositive(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fmt.Errorf("enter a positive number")
	}
	return nil
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		s.saveSettings()
		return s, tea.Batch(s.refresh(), func() tea.Msg { return refreshMsg{} })
	}

	return s, cmd
}

// saveSettings stores the form and arms or withdraws the reminder job to
// match it.
func (s settingsModel) saveSettings() {
	ctx := context.Background()
	s.store.SetSetting(ctx, store.SettingWorkMinutes, *s.workMinutes)
	s.store.SetSetting(ctx, store.SettingBreakMinutes, *s.breakMinutes)
	s.store.SetSetting(ctx, store.SettingBreakReminderMinutes, *s.reminderMinutes)
	s.store.SetSetting(ctx, store.SettingBreakReminders, onOff(*s.reminders))

	if *s.reminders {
		interval := s.store.GetIntSetting(ctx, store.SettingBreakReminderMinutes, store.DefaultBreakReminderMinutes)
		s.timer.EnableBreakReminders(ctx, interval)
	} else {
		s.timer.DisableBreakReminders(ctx)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		title := titleStyle.Render("Settings")
		formView := s.form.View()
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", formView),
		)
	}

	title := titleStyle.Render("Settings")
	hint := mutedStyle.Render("Press enter to edit settings")

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	for _, setting := range s.settings {
		label := lipgloss.NewStyle().Width(24).Render(setting.Key)
		value := highlightStyle.Render(formatSettingValue(setting.Key, setting.Value))
		rows = append(rows, fmt.Sprintf("  %s %s", label, value))
	}

	rows = append(rows, "")
	rows = append(rows, hint)

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func formatSettingValue(k, v string) string {
	switch k {
	case store.SettingWorkMinutes, store.SettingBreakMinutes, store.SettingBreakReminderMinutes:
		if mins, err := strconv.Atoi(v); err == nil {
			return fmt.Sprintf("%d min", mins)
		}
	}
	return v
}
