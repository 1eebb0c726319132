package ui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tarn/irriga/internal/device"
	"github.com/tarn/irriga/internal/lifecycle"
)

// systemView shows controller health counters and hosts the destructive
// maintenance commands, each behind a confirmation. Restart runs
// single-shot: the controller answers and then reboots, so a retry would
// hit a device that is already going down.
type systemView struct {
	guard *lifecycle.Guard

	stats   *device.ServerStats
	loading bool
	loadErr error
}

func newSystemView(m *Model) *systemView {
	return &systemView{
		guard:   lifecycle.NewGuard("system"),
		loading: true,
	}
}

func (xv *systemView) load(m *Model) tea.Cmd {
	xv.loading = true
	return func() tea.Msg {
		var stats *device.ServerStats
		err := device.WithRetry(m.ctx, m.cfg.Retry, func(ctx context.Context) error {
			var err error
			stats, err = m.client.Stats(ctx)
			return err
		})
		return statsMsg{stats: stats, err: err}
	}
}

func (xv *systemView) handleMsg(m *Model, msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case statsMsg:
		xv.loading = false
		xv.loadErr = msg.err
		if msg.err == nil {
			xv.stats = msg.stats
		}
	case factoryArmedMsg:
		xv.ask(m, "factory reset", "Really wipe everything? This cannot be undone.", func(ctx context.Context) error {
			return m.client.ResetFactoryData(ctx)
		}, true)
	case savedMsg:
		if msg.err != nil {
			m.notices.Add(msg.what + ": " + msg.err.Error())
			return nil
		}
		m.notices.Add(msg.what + " done")
		if msg.what != "restart" {
			return xv.load(m)
		}
	}
	return nil
}

func (xv *systemView) handleKey(m *Model, msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "r":
		return xv.load(m)
	case "R":
		xv.ask(m, "restart", "Restart the controller?", func(ctx context.Context) error {
			return m.client.RestartSystem(ctx)
		}, false)
	case "E":
		xv.ask(m, "reset settings", "Reset user settings to defaults?", func(ctx context.Context) error {
			return m.client.ResetSettings(ctx)
		}, true)
	case "F":
		// Factory reset is the one command that asks twice.
		m.confirm = &confirmPrompt{
			prompt: "FACTORY RESET: wipe settings, programs and logs?",
			cmd:    func() tea.Msg { return factoryArmedMsg{} },
		}
	}
	return nil
}

// ask raises the confirmation prompt for a maintenance command. Idempotent
// commands run under the retry policy; restart does not.
func (xv *systemView) ask(m *Model, what, prompt string, call func(context.Context) error, retry bool) {
	m.confirm = &confirmPrompt{
		prompt: prompt,
		cmd: func() tea.Msg {
			var err error
			if retry {
				err = device.WithRetry(m.ctx, m.cfg.Retry, call)
			} else {
				err = call(m.ctx)
			}
			return savedMsg{what: what, err: err}
		},
	}
}

func (xv *systemView) render(m *Model) string {
	s := m.styles

	var b strings.Builder
	b.WriteString(s.AccentText.Render("System") + "\n\n")

	switch {
	case xv.loading:
		b.WriteString(s.MutedText.Render("  loading stats...") + "\n")
	case xv.loadErr != nil:
		b.WriteString(s.DangerText.Render("  failed to load stats") + "\n")
		b.WriteString(s.MutedText.Render("  "+xv.loadErr.Error()) + "\n")
		b.WriteString(s.MutedText.Render("  press r to retry") + "\n")
	case xv.stats != nil:
		rows := [][2]string{
			{"Uptime", formatUptime(xv.stats.UptimeSeconds)},
			{"Free memory", formatBytes(xv.stats.FreeMemory)},
			{"Requests served", fmt.Sprintf("%d", xv.stats.Requests)},
			{"Request errors", fmt.Sprintf("%d", xv.stats.Errors)},
		}
		for _, row := range rows {
			b.WriteString(fmt.Sprintf("  %-18s %s\n", row[0], s.Text.Render(row[1])))
		}
	}

	b.WriteString("\n" + s.MutedText.Render("  Maintenance") + "\n")
	b.WriteString(s.FaintText.Render("  R restart   E reset settings   F factory reset") + "\n")

	return padPage(b.String())
}
