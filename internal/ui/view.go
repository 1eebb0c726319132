package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tarn/irriga/internal/poll"
)

// View renders the full frame: header, active page, footer.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "loading..."
	}

	header := m.renderHeader()
	footer := m.renderFooter()

	var body string
	if m.confirm != nil {
		body = m.renderConfirm()
	} else if m.showHelp {
		body = m.renderHelp()
	} else {
		body = m.renderPage()
	}

	content := lipgloss.NewStyle().
		Width(m.width).
		Height(m.contentHeight()).
		Render(body)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

// contentHeight is the rows left between header and footer.
func (m *Model) contentHeight() int {
	h := m.height - 2
	if h < 1 {
		return 1
	}
	return h
}

func (m *Model) renderPage() string {
	switch m.view {
	case ViewZones:
		return m.zones.render(m)
	case ViewPrograms:
		return m.progs.render(m)
	case ViewSettings:
		return m.setts.render(m)
	case ViewWifi:
		return m.wifi.render(m)
	case ViewLogs:
		return m.logs.render(m)
	case ViewSystem:
		return m.system.render(m)
	}
	return ""
}

func (m *Model) renderHeader() string {
	s := m.styles
	snap := m.store.Snapshot()

	var tabs []string
	for v := ViewZones; v <= ViewSystem; v++ {
		label := v.String()
		if v == m.view {
			tabs = append(tabs, s.AccentText.Render("["+label+"]"))
		} else {
			tabs = append(tabs, s.MutedText.Render(" "+label+" "))
		}
	}

	left := s.Logo.Render("irriga") + " " + strings.Join(tabs, " ")

	var right string
	switch {
	case snap.IsOffline():
		right = s.DangerText.Render("● offline")
	case snap.HasConn && snap.Connection.Connected():
		label := snap.Connection.Mode
		if snap.Connection.SSID != "" {
			label += " " + truncateMiddle(snap.Connection.SSID, 16)
		}
		if snap.Connection.IP != "" {
			label += " " + snap.Connection.IP
		}
		right = s.SuccessText.Render("● ") + s.Text.Render(label)
	case snap.HasConn:
		right = s.WarningText.Render("● no network")
	default:
		right = s.MutedText.Render("● connecting")
	}
	if mode := m.pollModeBadge(); mode != "" {
		right += "  " + mode
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return s.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// pollModeBadge surfaces the active loops' cadence when it is not normal.
func (m *Model) pollModeBadge() string {
	for _, l := range m.activeLoops() {
		switch l.Mode() {
		case poll.ModeAccelerated:
			return m.styles.InfoText.Render("▸▸")
		case poll.ModeSuspended:
			return m.styles.FaintText.Render("⏸")
		}
	}
	return ""
}

func (m *Model) renderFooter() string {
	s := m.styles

	if messages := m.notices.Active(time.Now()); len(messages) > 0 {
		latest := messages[len(messages)-1]
		text := s.WarningText.Render("! " + truncateMiddle(latest, m.width-6))
		if len(messages) > 1 {
			text += s.MutedText.Render(fmt.Sprintf(" (+%d)", len(messages)-1))
		}
		return s.Footer.Width(m.width).Render(text)
	}

	snap := m.store.Snapshot()
	help := m.footerHelp()
	var age string
	if !snap.LastUpdated.IsZero() {
		age = fmt.Sprintf("updated %ds ago", int(time.Since(snap.LastUpdated).Seconds()))
	}
	gap := m.width - lipgloss.Width(help) - lipgloss.Width(age) - 2
	if gap < 1 {
		gap = 1
	}
	return s.Footer.Width(m.width).Render(help + strings.Repeat(" ", gap) + age)
}

func (m *Model) footerHelp() string {
	if m.confirm != nil {
		return "y confirm • n cancel"
	}
	base := "?: help • q: quit"
	switch m.view {
	case ViewZones:
		return "j/k: select • enter: start/stop • " + base
	case ViewPrograms:
		return "enter: run • x: stop • a: auto • D: delete • r: reload • " + base
	case ViewSettings:
		return "e: edit • u: auto programs • S: save • " + base
	case ViewWifi:
		return "S: scan • enter: connect • x: disconnect • A: AP mode • " + base
	case ViewLogs:
		return "j/k: scroll • C: clear • " + base
	case ViewSystem:
		return "r: refresh • R: restart • E: reset • F: factory reset • " + base
	}
	return base
}

func (m *Model) renderConfirm() string {
	s := m.styles
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Warning)).
		Padding(1, 3).
		Render(s.WarningText.Render(m.confirm.prompt) + "\n\n" +
			s.Text.Render("[y] yes    [n] no"))
	return lipgloss.Place(m.width, m.contentHeight(), lipgloss.Center, lipgloss.Center, box)
}

func (m *Model) renderHelp() string {
	s := m.styles
	rows := []string{
		s.AccentText.Render("Navigation"),
		"  z/1 zones   p/2 programs   s/3 settings",
		"  w/4 wifi    l/5 logs       d/6 system",
		"  tab / shift+tab cycle pages",
		"",
		s.AccentText.Render("Zones"),
		"  j/k select, enter start (asks minutes) or stop",
		"",
		s.AccentText.Render("Programs"),
		"  enter run, x stop, a toggle automatic, D delete, r reload",
		"",
		s.AccentText.Render("Settings"),
		"  e edit fields, tab next field, S save, u toggle automatic programs",
		"",
		s.AccentText.Render("WiFi"),
		"  S scan, enter connect (asks password), x disconnect, A access point",
		"",
		s.AccentText.Render("Misc"),
		"  T cycle theme, ? close help, q quit",
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(rows, "\n"))
}
