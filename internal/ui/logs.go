package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/tarn/irriga/internal/device"
	"github.com/tarn/irriga/internal/lifecycle"
	"github.com/tarn/irriga/internal/poll"
)

// logsView tails the controller's event log. Logs change slowly, so the
// page polls at the slow cadence.
type logsView struct {
	guard *lifecycle.Guard
	loop  *poll.Loop

	viewport viewport.Model
	rendered int // log entries currently in the viewport
}

func newLogsView(m *Model) *logsView {
	lv := &logsView{
		guard:    lifecycle.NewGuard("logs"),
		viewport: viewport.New(80, 20),
	}

	loop, err := poll.NewLoop(poll.Config{
		Name:     "logs",
		Interval: m.cfg.SlowPollInterval,
		Fetch: func(ctx context.Context) (any, error) {
			return m.client.SystemLog(ctx)
		},
		OnResult: func(v any) {
			if logs, ok := v.([]device.LogEntry); ok {
				m.store.SetLogs(logs)
			}
		},
		OnError: m.store.SetError,
	})
	if err != nil {
		log.Error().Err(err).Msg("logs loop misconfigured")
	} else {
		lv.loop = loop
		lv.guard.Track(loop)
		if err := loop.Start(m.ctx); err != nil {
			log.Warn().Err(err).Msg("logs loop failed to start")
		}
	}
	return lv
}

func (lv *logsView) resize(width, height int) {
	if width < 10 {
		width = 10
	}
	body := height - 3
	if body < 3 {
		body = 3
	}
	lv.viewport.Width = width - 4
	lv.viewport.Height = body
}

func (lv *logsView) handleMsg(m *Model, msg tea.Msg) tea.Cmd {
	if saved, ok := msg.(savedMsg); ok && saved.what == "clear logs" {
		if saved.err != nil {
			m.notices.Add("clear logs: " + saved.err.Error())
			return nil
		}
		m.notices.Add("log cleared")
		if lv.loop != nil {
			lv.loop.Nudge()
		}
	}
	return nil
}

func (lv *logsView) handleKey(m *Model, msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "C":
		m.confirm = &confirmPrompt{
			prompt: "Clear the controller's event log?",
			cmd: func() tea.Msg {
				err := device.WithRetry(m.ctx, m.cfg.Retry, func(ctx context.Context) error {
					return m.client.ClearLogs(ctx)
				})
				return savedMsg{what: "clear logs", err: err}
			},
		}
		return nil
	}
	var cmd tea.Cmd
	lv.viewport, cmd = lv.viewport.Update(msg)
	return cmd
}

func (lv *logsView) render(m *Model) string {
	s := m.styles
	snap := m.store.Snapshot()

	var b strings.Builder
	b.WriteString(s.AccentText.Render("Logs") + "\n\n")

	switch {
	case !snap.HasLogs && snap.LastError != nil:
		b.WriteString(s.DangerText.Render("  cannot reach controller") + "\n")
	case !snap.HasLogs:
		b.WriteString(s.MutedText.Render("  loading log...") + "\n")
	case len(snap.Logs) == 0:
		b.WriteString(s.MutedText.Render("  log is empty") + "\n")
	default:
		if len(snap.Logs) != lv.rendered {
			atBottom := lv.viewport.AtBottom()
			lv.viewport.SetContent(lv.formatEntries(m, snap.Logs))
			lv.rendered = len(snap.Logs)
			if atBottom {
				lv.viewport.GotoBottom()
			}
		}
		b.WriteString(lv.viewport.View() + "\n")
		b.WriteString(s.FaintText.Render(fmt.Sprintf("  %d entries  %3.0f%%",
			len(snap.Logs), lv.viewport.ScrollPercent()*100)) + "\n")
	}

	return padPage(b.String())
}

func (lv *logsView) formatEntries(m *Model, entries []device.LogEntry) string {
	s := m.styles
	var b strings.Builder
	for _, e := range entries {
		level := s.MutedText
		switch strings.ToUpper(e.Level) {
		case "ERROR":
			level = s.DangerText
		case "WARNING", "WARN":
			level = s.WarningText
		case "INFO":
			level = s.InfoText
		}
		b.WriteString(fmt.Sprintf("%s %s %s %s\n",
			s.FaintText.Render(e.Date), s.FaintText.Render(e.Time),
			level.Render(fmt.Sprintf("%-7s", e.Level)), e.Message))
	}
	return b.String()
}
