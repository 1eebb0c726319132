package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/tarn/irriga/internal/countdown"
	"github.com/tarn/irriga/internal/device"
	"github.com/tarn/irriga/internal/lifecycle"
	"github.com/tarn/irriga/internal/poll"
	"github.com/tarn/irriga/internal/reconcile"
	"github.com/tarn/irriga/internal/state"
)

// defaultManualMinutes pre-fills the duration prompt for a manual start.
const defaultManualMinutes = 10

// zonesView is the live zones page: per-zone on/off with optimistic
// toggles and a smooth local countdown for each running zone.
type zonesView struct {
	guard       *lifecycle.Guard
	zonesLoop   *poll.Loop
	programLoop *poll.Loop
	overlay     *reconcile.Overlay[bool]

	cursor   int
	entering bool
	duration textinput.Model

	countdowns  map[int]*countdown.Projection
	startTotals map[int]time.Duration // duration chosen at manual start
	lastCapture time.Time

	// hidden holds zone ids the user settings mark "hide". Until the
	// configured zone list loads, every reported zone is shown.
	hidden     map[int]bool
	haveConfig bool
}

func zoneTarget(id int) string { return fmt.Sprintf("zone:%d", id) }

func newZonesView(m *Model) *zonesView {
	zv := &zonesView{
		guard:       lifecycle.NewGuard("zones"),
		countdowns:  make(map[int]*countdown.Projection),
		startTotals: make(map[int]time.Duration),
	}

	input := textinput.New()
	input.Placeholder = strconv.Itoa(defaultManualMinutes)
	input.CharLimit = 3
	input.Width = 5
	zv.duration = input

	zonesLoop, err := poll.NewLoop(poll.Config{
		Name:         "zones-status",
		Interval:     m.cfg.PollInterval,
		FastInterval: m.cfg.FastInterval,
		Fetch: func(ctx context.Context) (any, error) {
			return m.client.ZonesStatus(ctx)
		},
		OnResult: func(v any) {
			if zones, ok := v.([]device.ZoneStatus); ok {
				m.store.SetZones(zones)
			}
		},
		OnError: m.store.SetError,
	})
	if err != nil {
		log.Error().Err(err).Msg("zones loop misconfigured")
	} else {
		zv.zonesLoop = zonesLoop
		zv.guard.Track(zonesLoop)
		if err := zonesLoop.Start(m.ctx); err != nil {
			log.Warn().Err(err).Msg("zones loop failed to start")
		}
	}

	programLoop, err := poll.NewLoop(poll.Config{
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
		zv.programLoop = programLoop
		zv.guard.Track(programLoop)
		if err := programLoop.Start(m.ctx); err != nil {
			log.Warn().Err(err).Msg("program loop failed to start")
		}
	}

	zv.overlay = reconcile.NewOverlay[bool](
		func() {
			if zv.zonesLoop != nil {
				zv.zonesLoop.Nudge()
			}
		},
		func(target, message string) {
			m.notices.Add(fmt.Sprintf("%s: %s", target, message))
		},
	)
	zv.guard.TrackFunc(zv.overlay.Clear)

	return zv
}

// load fetches the configured zone list, used only for visibility.
func (zv *zonesView) load(m *Model) tea.Cmd {
	return func() tea.Msg {
		var zones []device.Zone
		err := device.WithRetry(m.ctx, m.cfg.Retry, func(ctx context.Context) error {
			var err error
			zones, err = m.client.Zones(ctx)
			return err
		})
		return zonesConfigMsg{zones: zones, err: err}
	}
}

// visibleZones filters the live report down to zones the settings show.
func (zv *zonesView) visibleZones(snap state.Snapshot) []device.ZoneStatus {
	if !zv.haveConfig {
		return snap.Zones
	}
	var zones []device.ZoneStatus
	for _, z := range snap.Zones {
		if !zv.hidden[z.ID] {
			zones = append(zones, z)
		}
	}
	return zones
}

func (zv *zonesView) loops() []*poll.Loop {
	var loops []*poll.Loop
	if zv.zonesLoop != nil {
		loops = append(loops, zv.zonesLoop)
	}
	if zv.programLoop != nil {
		loops = append(loops, zv.programLoop)
	}
	return loops
}

// observe runs on the UI tick. A fresh zones report is authoritative: it
// settles optimistic toggles and re-captures every running zone's
// countdown. Between captures the projections tick locally; freshness is
// judged by the zones resource alone, so another resource's poll success
// can never re-capture a stale report and push remaining time back up.
func (zv *zonesView) observe(snap state.Snapshot, now time.Time) {
	if snap.HasZones && snap.ZonesUpdated.After(zv.lastCapture) {
		zv.lastCapture = snap.ZonesUpdated

		seen := make(map[int]bool, len(snap.Zones))
		for _, z := range snap.Zones {
			zv.overlay.Observe(zoneTarget(z.ID), z.Active)
			seen[z.ID] = true

			if !z.Active {
				delete(zv.countdowns, z.ID)
				delete(zv.startTotals, z.ID)
				continue
			}
			total := zv.startTotals[z.ID]
			if proj, ok := zv.countdowns[z.ID]; ok {
				proj.Capture(z.Remaining(), total, now)
			} else {
				zv.countdowns[z.ID] = countdown.New(z.Remaining(), total, now)
			}
		}
		for id := range zv.countdowns {
			if !seen[id] {
				delete(zv.countdowns, id)
				delete(zv.startTotals, id)
			}
		}
	}

	// A projection hitting zero fires once; the controller stops the zone
	// on its own, so all the panel does is reconcile promptly.
	for _, proj := range zv.countdowns {
		if proj.Expired(now) && zv.zonesLoop != nil {
			zv.zonesLoop.Nudge()
		}
	}
}

func (zv *zonesView) handleKey(m *Model, msg tea.KeyMsg) tea.Cmd {
	snap := m.store.Snapshot()

	if zv.entering {
		switch msg.String() {
		case "esc":
			zv.entering = false
			zv.duration.Blur()
			return nil
		case "enter":
			return zv.startSelected(m, snap)
		}
		var cmd tea.Cmd
		zv.duration, cmd = zv.duration.Update(msg)
		return cmd
	}

	switch msg.String() {
	case "j", "down":
		if zv.cursor < len(zv.visibleZones(snap))-1 {
			zv.cursor++
		}
	case "k", "up":
		if zv.cursor > 0 {
			zv.cursor--
		}
	case "enter", " ":
		return zv.toggleSelected(m, snap)
	}
	return nil
}

func (zv *zonesView) handleMsg(m *Model, msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case zonesConfigMsg:
		// Visibility is a nicety; a failed load just shows every zone.
		if msg.err != nil {
			log.Debug().Err(msg.err).Msg("zone config unavailable, showing all zones")
			return nil
		}
		zv.hidden = make(map[int]bool)
		for _, z := range msg.zones {
			if !z.Visible() {
				zv.hidden[z.ID] = true
			}
		}
		zv.haveConfig = true
		zv.cursor = 0
	case actionDoneMsg:
		if msg.err != nil {
			log.Debug().Str("target", msg.target).Err(msg.err).Msg("zone action failed")
		}
	}
	return nil
}

// toggleSelected either opens the duration prompt (inactive zone) or stops
// the zone (active zone) with an optimistic prediction.
func (zv *zonesView) toggleSelected(m *Model, snap state.Snapshot) tea.Cmd {
	zones := zv.visibleZones(snap)
	if zv.cursor >= len(zones) {
		return nil
	}
	zone := zones[zv.cursor]
	target := zoneTarget(zone.ID)

	if zv.overlay.Pending(target) {
		m.notices.Add(fmt.Sprintf("%s: still applying previous change", zone.Name))
		return nil
	}

	// The controller sequences program zones itself; manual starts would
	// fight it. Stopping a zone stays allowed.
	if snap.HasProgram && snap.Program.ProgramRunning && !zv.overlay.Value(target, zone.Active) {
		m.notices.Add("manual start disabled while a program is running")
		return nil
	}

	if zv.overlay.Value(target, zone.Active) {
		if !zv.overlay.Begin(target, false) {
			m.notices.Add(fmt.Sprintf("%s: still applying previous change", zone.Name))
			return nil
		}
		delete(zv.countdowns, zone.ID)
		delete(zv.startTotals, zone.ID)
		return func() tea.Msg {
			err := reconcile.Run(m.ctx, zv.overlay, target, m.cfg.Retry, func(ctx context.Context) error {
				return m.client.StopZone(ctx, zone.ID)
			})
			return actionDoneMsg{target: target, err: err}
		}
	}

	zv.entering = true
	zv.duration.SetValue("")
	zv.duration.Focus()
	return textinput.Blink
}

// startSelected parses the entered minutes and starts the zone.
func (zv *zonesView) startSelected(m *Model, snap state.Snapshot) tea.Cmd {
	zv.entering = false
	zv.duration.Blur()

	zones := zv.visibleZones(snap)
	if zv.cursor >= len(zones) {
		return nil
	}
	zone := zones[zv.cursor]
	target := zoneTarget(zone.ID)

	raw := strings.TrimSpace(zv.duration.Value())
	if raw == "" {
		raw = strconv.Itoa(defaultManualMinutes)
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes < 1 || minutes > 180 {
		m.notices.Add("duration must be 1-180 minutes")
		return nil
	}

	if !zv.overlay.Begin(target, true) {
		m.notices.Add(fmt.Sprintf("%s: still applying previous change", zone.Name))
		return nil
	}
	// Remember the chosen total so the countdown shows exact progress
	// instead of the fallback estimate.
	zv.startTotals[zone.ID] = time.Duration(minutes) * time.Minute

	return func() tea.Msg {
		err := reconcile.Run(m.ctx, zv.overlay, target, m.cfg.Retry, func(ctx context.Context) error {
			return m.client.StartZone(ctx, zone.ID, minutes)
		})
		return actionDoneMsg{target: target, err: err}
	}
}

func (zv *zonesView) render(m *Model) string {
	s := m.styles
	snap := m.store.Snapshot()
	now := time.Now()

	var b strings.Builder
	b.WriteString(s.AccentText.Render("Zones") + "\n\n")

	if !snap.HasZones {
		if snap.LastError != nil {
			b.WriteString(s.DangerText.Render("cannot reach controller") + "\n")
			b.WriteString(s.MutedText.Render(snap.LastError.Error()) + "\n")
		} else {
			b.WriteString(s.MutedText.Render("waiting for controller...") + "\n")
		}
		return padPage(b.String())
	}

	if snap.HasProgram && snap.Program.ProgramRunning {
		label := "program running"
		if snap.Program.CurrentProgramID != nil {
			label = "program " + *snap.Program.CurrentProgramID + " running"
		}
		if snap.Program.ActiveZone != nil {
			label += " • " + snap.Program.ActiveZone.Name
		}
		b.WriteString(s.InfoText.Render("▶ "+label) + "\n\n")
	}

	zones := zv.visibleZones(snap)
	for i, zone := range zones {
		target := zoneTarget(zone.ID)
		active := zv.overlay.Value(target, zone.Active)
		pending := zv.overlay.Pending(target)

		marker := "  "
		if i == zv.cursor {
			marker = s.AccentText.Render("> ")
		}

		var status string
		switch {
		case pending:
			status = s.WarningText.Render("···")
		case active:
			status = s.SuccessText.Render("ON ")
		default:
			status = s.FaintText.Render("off")
		}

		line := fmt.Sprintf("%s%s %-20s", marker, status, truncateMiddle(zone.Name, 20))

		if active && !pending {
			if proj, ok := zv.countdowns[zone.ID]; ok {
				bar := progressBar(proj.Percent(now), 16)
				clock := proj.Clock(now)
				if proj.Estimated() {
					clock += " ~"
				}
				line += fmt.Sprintf("  %s %s", s.SuccessText.Render(bar), s.Text.Render(clock))
			} else if zone.Remaining() > 0 {
				line += "  " + s.MutedText.Render(zone.Remaining().Round(time.Second).String())
			}
		}

		if i == zv.cursor {
			b.WriteString(s.Selected.Render(line) + "\n")
		} else {
			b.WriteString(line + "\n")
		}
	}

	if zv.entering && zv.cursor < len(zones) {
		b.WriteString("\n" + s.Text.Render("Run "+zones[zv.cursor].Name+" for (minutes): ") +
			zv.duration.View() + s.MutedText.Render("  enter to start, esc to cancel") + "\n")
	}

	if dropped := zv.droppedTicks(); dropped > 0 {
		b.WriteString("\n" + s.FaintText.Render(fmt.Sprintf("%d slow polls skipped", dropped)) + "\n")
	}

	return padPage(b.String())
}

func (zv *zonesView) droppedTicks() int {
	total := 0
	for _, l := range zv.loops() {
		total += l.DroppedTicks()
	}
	return total
}
