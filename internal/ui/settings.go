package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tarn/irriga/internal/device"
	"github.com/tarn/irriga/internal/lifecycle"
	"github.com/tarn/irriga/internal/reconcile"
)

// settingsGroup is the unsaved-changes group for the numeric fields.
const settingsGroup = "settings"

// Indexes into settingsView.inputs.
const (
	fieldMaxZones = iota
	fieldMaxDuration
	fieldActivationDelay
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"Max active zones",
	"Max zone duration (min)",
	"Activation delay (min)",
}

// settingsView edits the controller's persisted limits. Edits stay local
// and mark the page dirty until an explicit save sends a key subset; the
// controller merges it into its settings file.
type settingsView struct {
	guard *lifecycle.Guard

	settings *device.Settings
	loading  bool
	loadErr  error
	saving   bool

	editing  bool
	inputs   [fieldCount]textinput.Model
	focusIdx int

	// autoOverlay covers the global automatic-programs switch, which is
	// applied immediately rather than through the save flow.
	autoOverlay *reconcile.Overlay[bool]
}

const automaticTarget = "automatic-programs"

func newSettingsView(m *Model) *settingsView {
	sv := &settingsView{
		guard:   lifecycle.NewGuard("settings"),
		loading: true,
	}
	for i := range sv.inputs {
		input := textinput.New()
		input.CharLimit = 3
		input.Width = 5
		sv.inputs[i] = input
	}
	sv.autoOverlay = reconcile.NewOverlay[bool](nil, func(target, message string) {
		m.notices.Add("automatic programs: " + message)
	})
	sv.guard.TrackFunc(sv.autoOverlay.Clear)
	return sv
}

func (sv *settingsView) load(m *Model) tea.Cmd {
	sv.loading = true
	return func() tea.Msg {
		var settings *device.Settings
		err := device.WithRetry(m.ctx, m.cfg.Retry, func(ctx context.Context) error {
			var err error
			settings, err = m.client.Settings(ctx)
			return err
		})
		return settingsMsg{settings: settings, err: err}
	}
}

func (sv *settingsView) handleMsg(m *Model, msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case settingsMsg:
		sv.loading = false
		sv.loadErr = msg.err
		if msg.err != nil {
			return nil
		}
		sv.settings = msg.settings
		sv.autoOverlay.Observe(automaticTarget, msg.settings.AutomaticProgramsEnabled)
		// Populate fields only outside an edit so a background reload
		// cannot clobber in-progress typing.
		if !sv.editing {
			sv.inputs[fieldMaxZones].SetValue(strconv.Itoa(msg.settings.MaxActiveZones))
			sv.inputs[fieldMaxDuration].SetValue(strconv.Itoa(msg.settings.MaxZoneDuration))
			sv.inputs[fieldActivationDelay].SetValue(strconv.Itoa(msg.settings.ActivationDelay))
		}
	case savedMsg:
		sv.saving = false
		if msg.err != nil {
			m.notices.Add("save settings: " + msg.err.Error())
			return nil
		}
		sv.guard.ClearDirty(settingsGroup)
		m.notices.Add("settings saved")
		return sv.load(m)
	case actionDoneMsg:
		if msg.err == nil && msg.target == automaticTarget {
			return sv.load(m)
		}
	}
	return nil
}

func (sv *settingsView) handleKey(m *Model, msg tea.KeyMsg) tea.Cmd {
	if sv.editing {
		switch msg.String() {
		case "esc":
			sv.stopEditing()
			return nil
		case "tab", "enter", "down":
			sv.focusField((sv.focusIdx + 1) % fieldCount)
			return nil
		case "shift+tab", "up":
			sv.focusField((sv.focusIdx + fieldCount - 1) % fieldCount)
			return nil
		case "ctrl+s":
			sv.stopEditing()
			return sv.save(m)
		}
		var cmd tea.Cmd
		before := sv.inputs[sv.focusIdx].Value()
		sv.inputs[sv.focusIdx], cmd = sv.inputs[sv.focusIdx].Update(msg)
		if sv.inputs[sv.focusIdx].Value() != before {
			sv.guard.MarkDirty(settingsGroup)
		}
		return cmd
	}

	switch msg.String() {
	case "e":
		if sv.settings != nil {
			sv.editing = true
			sv.focusField(0)
			return textinput.Blink
		}
	case "S":
		return sv.save(m)
	case "u":
		return sv.toggleAutomatic(m)
	case "r":
		return sv.load(m)
	}
	return nil
}

func (sv *settingsView) focusField(idx int) {
	sv.focusIdx = idx
	for i := range sv.inputs {
		if i == idx {
			sv.inputs[i].Focus()
		} else {
			sv.inputs[i].Blur()
		}
	}
}

func (sv *settingsView) stopEditing() {
	sv.editing = false
	for i := range sv.inputs {
		sv.inputs[i].Blur()
	}
}

// save validates the numeric fields and sends them as a patch.
func (sv *settingsView) save(m *Model) tea.Cmd {
	if sv.settings == nil || sv.saving {
		return nil
	}
	if !sv.guard.Dirty() {
		m.notices.Add("nothing to save")
		return nil
	}

	maxZones, err1 := strconv.Atoi(strings.TrimSpace(sv.inputs[fieldMaxZones].Value()))
	maxDuration, err2 := strconv.Atoi(strings.TrimSpace(sv.inputs[fieldMaxDuration].Value()))
	delay, err3 := strconv.Atoi(strings.TrimSpace(sv.inputs[fieldActivationDelay].Value()))
	if err1 != nil || err2 != nil || err3 != nil ||
		maxZones < 1 || maxDuration < 1 || delay < 0 {
		m.notices.Add("settings values must be positive numbers")
		return nil
	}

	patch := device.SettingsPatch{
		"max_active_zones":  maxZones,
		"max_zone_duration": maxDuration,
		"activation_delay":  delay,
	}
	sv.saving = true
	return func() tea.Msg {
		err := device.WithRetry(m.ctx, m.cfg.Retry, func(ctx context.Context) error {
			return m.client.SaveSettings(ctx, patch)
		})
		return savedMsg{what: settingsGroup, err: err}
	}
}

func (sv *settingsView) toggleAutomatic(m *Model) tea.Cmd {
	if sv.settings == nil {
		return nil
	}
	current := sv.autoOverlay.Value(automaticTarget, sv.settings.AutomaticProgramsEnabled)
	if !sv.autoOverlay.Begin(automaticTarget, !current) {
		m.notices.Add("still applying previous change")
		return nil
	}
	return func() tea.Msg {
		err := reconcile.Run(m.ctx, sv.autoOverlay, automaticTarget, m.cfg.Retry, func(ctx context.Context) error {
			return m.client.SetAutomaticPrograms(ctx, !current)
		})
		return actionDoneMsg{target: automaticTarget, err: err}
	}
}

func (sv *settingsView) render(m *Model) string {
	s := m.styles

	var b strings.Builder
	title := "Settings"
	if sv.guard.Dirty() {
		title += " " + s.WarningText.Render("● unsaved")
	}
	b.WriteString(s.AccentText.Render(title) + "\n\n")

	switch {
	case sv.loading:
		b.WriteString(s.MutedText.Render("loading settings...") + "\n")
	case sv.loadErr != nil:
		b.WriteString(s.DangerText.Render("failed to load settings") + "\n")
		b.WriteString(s.MutedText.Render(sv.loadErr.Error()) + "\n")
		b.WriteString(s.MutedText.Render("press r to retry") + "\n")
	case sv.settings != nil:
		auto := sv.autoOverlay.Value(automaticTarget, sv.settings.AutomaticProgramsEnabled)
		autoLabel := s.FaintText.Render("disabled")
		if sv.autoOverlay.Pending(automaticTarget) {
			autoLabel = s.WarningText.Render("···")
		} else if auto {
			autoLabel = s.SuccessText.Render("enabled")
		}
		b.WriteString(fmt.Sprintf("  %-26s %s\n\n", "Automatic programs", autoLabel))

		for i := range sv.inputs {
			label := fmt.Sprintf("  %-26s ", fieldLabels[i])
			if sv.editing && i == sv.focusIdx {
				label = s.AccentText.Render("> ") + fmt.Sprintf("%-26s ", fieldLabels[i])
			}
			b.WriteString(label + sv.inputs[i].View() + "\n")
		}

		b.WriteString("\n")
		if sv.saving {
			b.WriteString(s.WarningText.Render("  saving...") + "\n")
		} else if sv.editing {
			b.WriteString(s.MutedText.Render("  tab next field, ctrl+s save, esc done") + "\n")
		}
	}

	return padPage(b.String())
}
