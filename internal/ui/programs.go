package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/tarn/irriga/internal/device"
	"github.com/tarn/irriga/internal/lifecycle"
	"github.com/tarn/irriga/internal/poll"
	"github.com/tarn/irriga/internal/reconcile"
	"github.com/tarn/irriga/internal/state"
)

// programsView lists the stored watering programs, runs them manually and
// toggles their automatic schedule. The run state is optimistic like zone
// toggles; the list itself is loaded on demand, not polled.
type programsView struct {
	guard     *lifecycle.Guard
	stateLoop *poll.Loop

	runOverlay  *reconcile.Overlay[bool] // predicted running per program
	autoOverlay *reconcile.Overlay[bool] // predicted automatic_enabled per program

	programs []device.Program
	loading  bool
	loadErr  error
	cursor   int
}

func programTarget(id string) string { return "program:" + id }
func autoTarget(id string) string    { return "auto:" + id }

func newProgramsView(m *Model) *programsView {
	pv := &programsView{
		guard:   lifecycle.NewGuard("programs"),
		loading: true,
	}

	stateLoop, err := poll.NewLoop(poll.Config{
		Name:         "program-state",
		Interval:     m.cfg.PollInterval,
		FastInterval: m.cfg.FastInterval,
		Fetch: func(ctx context.Context) (any, error) {
			return m.client.ProgramState(ctx)
		},
		OnResult: func(v any) {
			if ps, ok := v.(*device.ProgramState); ok && ps != nil {
				m.store.SetProgram(*ps)
			}
		},
		OnError: m.store.SetError,
	})
	if err != nil {
		log.Error().Err(err).Msg("program loop misconfigured")
	} else {
		pv.stateLoop = stateLoop
		pv.guard.Track(stateLoop)
		if err := stateLoop.Start(m.ctx); err != nil {
			log.Warn().Err(err).Msg("program loop failed to start")
		}
	}

	notify := func(target, message string) {
		m.notices.Add(fmt.Sprintf("%s: %s", target, message))
	}
	pv.runOverlay = reconcile.NewOverlay[bool](
		func() {
			if pv.stateLoop != nil {
				pv.stateLoop.Nudge()
			}
		},
		notify,
	)
	// The automatic flag lives in the stored program list, which is not
	// polled; reconciliation happens on the next explicit reload.
	pv.autoOverlay = reconcile.NewOverlay[bool](nil, notify)
	pv.guard.TrackFunc(pv.runOverlay.Clear)
	pv.guard.TrackFunc(pv.autoOverlay.Clear)

	return pv
}

// load fetches the stored program list.
func (pv *programsView) load(m *Model) tea.Cmd {
	pv.loading = true
	return func() tea.Msg {
		var programs map[string]device.Program
		err := device.WithRetry(m.ctx, m.cfg.Retry, func(ctx context.Context) error {
			var err error
			programs, err = m.client.Programs(ctx)
			return err
		})
		return programsMsg{programs: programs, err: err}
	}
}

// observe settles run predictions against the polled program state.
func (pv *programsView) observe(snap state.Snapshot) {
	if !snap.HasProgram {
		return
	}
	for _, p := range pv.programs {
		running := snap.Program.ProgramRunning &&
			snap.Program.CurrentProgramID != nil &&
			*snap.Program.CurrentProgramID == p.ID
		pv.runOverlay.Observe(programTarget(p.ID), running)
	}
}

func (pv *programsView) handleMsg(m *Model, msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case programsMsg:
		pv.loading = false
		pv.loadErr = msg.err
		if msg.err != nil {
			return nil
		}
		pv.programs = sortPrograms(msg.programs)
		if pv.cursor >= len(pv.programs) {
			pv.cursor = 0
		}
		for _, p := range pv.programs {
			pv.autoOverlay.Observe(autoTarget(p.ID), p.AutomaticEnabled)
		}
	case actionDoneMsg:
		// Deletions and automatic toggles change the stored list; reload
		// it once the action settles.
		if msg.err == nil && (strings.HasPrefix(msg.target, "auto:") || strings.HasPrefix(msg.target, "delete:")) {
			return pv.load(m)
		}
	}
	return nil
}

func sortPrograms(byID map[string]device.Program) []device.Program {
	programs := make([]device.Program, 0, len(byID))
	for id, p := range byID {
		if p.ID == "" {
			p.ID = id
		}
		programs = append(programs, p)
	}
	sort.Slice(programs, func(i, j int) bool {
		if programs[i].Name != programs[j].Name {
			return programs[i].Name < programs[j].Name
		}
		return programs[i].ID < programs[j].ID
	})
	return programs
}

func (pv *programsView) handleKey(m *Model, msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "j", "down":
		if pv.cursor < len(pv.programs)-1 {
			pv.cursor++
		}
	case "k", "up":
		if pv.cursor > 0 {
			pv.cursor--
		}
	case "r":
		return pv.load(m)
	case "enter":
		return pv.startSelected(m)
	case "x":
		return pv.stopRunning(m)
	case "a":
		return pv.toggleAutomatic(m)
	case "D":
		return pv.confirmDelete(m)
	}
	return nil
}

func (pv *programsView) selected() (device.Program, bool) {
	if pv.cursor < 0 || pv.cursor >= len(pv.programs) {
		return device.Program{}, false
	}
	return pv.programs[pv.cursor], true
}

func (pv *programsView) startSelected(m *Model) tea.Cmd {
	p, ok := pv.selected()
	if !ok {
		return nil
	}
	snap := m.store.Snapshot()
	if snap.HasProgram && snap.Program.ProgramRunning {
		m.notices.Add("a program is already running")
		return nil
	}
	target := programTarget(p.ID)
	if !pv.runOverlay.Begin(target, true) {
		m.notices.Add(fmt.Sprintf("%s: still applying previous change", p.Name))
		return nil
	}
	return func() tea.Msg {
		err := reconcile.Run(m.ctx, pv.runOverlay, target, m.cfg.Retry, func(ctx context.Context) error {
			return m.client.StartProgram(ctx, p.ID)
		})
		return actionDoneMsg{target: target, err: err}
	}
}

func (pv *programsView) stopRunning(m *Model) tea.Cmd {
	snap := m.store.Snapshot()
	if !snap.HasProgram || !snap.Program.ProgramRunning {
		return nil
	}
	id := ""
	if snap.Program.CurrentProgramID != nil {
		id = *snap.Program.CurrentProgramID
	}
	target := programTarget(id)
	if !pv.runOverlay.Begin(target, false) {
		m.notices.Add("still applying previous change")
		return nil
	}
	return func() tea.Msg {
		err := reconcile.Run(m.ctx, pv.runOverlay, target, m.cfg.Retry, func(ctx context.Context) error {
			return m.client.StopProgram(ctx)
		})
		return actionDoneMsg{target: target, err: err}
	}
}

func (pv *programsView) toggleAutomatic(m *Model) tea.Cmd {
	p, ok := pv.selected()
	if !ok {
		return nil
	}
	target := autoTarget(p.ID)
	current := pv.autoOverlay.Value(target, p.AutomaticEnabled)
	if !pv.autoOverlay.Begin(target, !current) {
		m.notices.Add(fmt.Sprintf("%s: still applying previous change", p.Name))
		return nil
	}
	return func() tea.Msg {
		err := reconcile.Run(m.ctx, pv.autoOverlay, target, m.cfg.Retry, func(ctx context.Context) error {
			return m.client.SetProgramAutomatic(ctx, p.ID, !current)
		})
		return actionDoneMsg{target: target, err: err}
	}
}

func (pv *programsView) confirmDelete(m *Model) tea.Cmd {
	p, ok := pv.selected()
	if !ok {
		return nil
	}
	m.confirm = &confirmPrompt{
		prompt: fmt.Sprintf("Delete program %q?", p.Name),
		cmd: func() tea.Msg {
			err := device.WithRetry(m.ctx, m.cfg.Retry, func(ctx context.Context) error {
				return m.client.DeleteProgram(ctx, p.ID)
			})
			if err != nil {
				m.notices.Add(fmt.Sprintf("delete %s: %s", p.Name, err.Error()))
			}
			return actionDoneMsg{target: "delete:" + p.ID, err: err}
		},
	}
	return nil
}

func (pv *programsView) render(m *Model) string {
	s := m.styles
	snap := m.store.Snapshot()

	var b strings.Builder
	b.WriteString(s.AccentText.Render("Programs") + "\n\n")

	switch {
	case pv.loading:
		b.WriteString(s.MutedText.Render("loading programs...") + "\n")
	case pv.loadErr != nil:
		b.WriteString(s.DangerText.Render("failed to load programs") + "\n")
		b.WriteString(s.MutedText.Render(pv.loadErr.Error()) + "\n")
		b.WriteString(s.MutedText.Render("press r to retry") + "\n")
	case len(pv.programs) == 0:
		b.WriteString(s.MutedText.Render("no programs stored on the controller") + "\n")
	default:
		for i, p := range pv.programs {
			b.WriteString(pv.renderRow(m, snap, i, p) + "\n")
		}
	}

	return padPage(b.String())
}

func (pv *programsView) renderRow(m *Model, snap state.Snapshot, i int, p device.Program) string {
	s := m.styles

	running := snap.HasProgram && snap.Program.ProgramRunning &&
		snap.Program.CurrentProgramID != nil && *snap.Program.CurrentProgramID == p.ID
	running = pv.runOverlay.Value(programTarget(p.ID), running)
	auto := pv.autoOverlay.Value(autoTarget(p.ID), p.AutomaticEnabled)

	marker := "  "
	if i == pv.cursor {
		marker = s.AccentText.Render("> ")
	}

	var badge string
	switch {
	case pv.runOverlay.Pending(programTarget(p.ID)) || pv.autoOverlay.Pending(autoTarget(p.ID)):
		badge = s.WarningText.Render("···")
	case running:
		badge = s.SuccessText.Render("▶  ")
	default:
		badge = s.FaintText.Render("   ")
	}

	autoLabel := s.FaintText.Render("manual")
	if auto {
		autoLabel = s.InfoText.Render("auto " + p.ActivationTime)
	}

	line := fmt.Sprintf("%s%s %-18s %-14s %2d zones  %s",
		marker, badge, truncateMiddle(p.Name, 18), autoLabel,
		len(p.Zones), s.MutedText.Render(formatMinutes(int(p.TotalDuration().Minutes()))))

	if i == pv.cursor {
		return s.Selected.Render(line)
	}
	return line
}
