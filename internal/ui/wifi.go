package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tarn/irriga/internal/device"
	"github.com/tarn/irriga/internal/lifecycle"
)

// wifiGroup is the unsaved-changes group for credentials being typed.
const wifiGroup = "wifi"

// wifiView manages the controller's network: scan for networks, join one
// in client mode, drop back to the access point. Connect and mode switches
// run single-shot: the controller drops the link mid-switch, so a retry
// would race its own first attempt.
type wifiView struct {
	guard *lifecycle.Guard

	scanning bool
	scanErr  error
	networks []device.WifiNetwork
	scanned  bool

	cursor      int
	enteringPwd bool
	password    textinput.Model

	connecting bool
	switching  bool
}

func newWifiView(m *Model) *wifiView {
	wv := &wifiView{
		guard: lifecycle.NewGuard("wifi"),
	}
	input := textinput.New()
	input.Placeholder = "password"
	input.EchoMode = textinput.EchoPassword
	input.EchoCharacter = '*'
	input.CharLimit = 64
	input.Width = 24
	wv.password = input
	return wv
}

// scan runs a network sweep. The sweep blocks the controller for a few
// seconds, so it only ever runs on demand.
func (wv *wifiView) scan(m *Model) tea.Cmd {
	if wv.scanning {
		return nil
	}
	wv.scanning = true
	return func() tea.Msg {
		networks, err := m.client.ScanWifi(m.ctx)
		return scanMsg{networks: networks, err: err}
	}
}

func (wv *wifiView) handleMsg(m *Model, msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case scanMsg:
		wv.scanning = false
		wv.scanned = true
		wv.scanErr = msg.err
		if msg.err == nil {
			wv.networks = msg.networks
			if wv.cursor >= len(wv.networks) {
				wv.cursor = 0
			}
		}
	case wifiConnectMsg:
		wv.connecting = false
		if msg.err != nil {
			m.notices.Add("connect: " + msg.err.Error())
			return nil
		}
		if msg.status != nil {
			m.store.SetConnection(*msg.status)
		}
		m.notices.Add("connected")
		if m.connLoop != nil {
			m.connLoop.Nudge()
		}
	case savedMsg:
		wv.switching = false
		if msg.err != nil {
			m.notices.Add(msg.what + ": " + msg.err.Error())
			return nil
		}
		m.notices.Add(msg.what + " done")
		if m.connLoop != nil {
			m.connLoop.Nudge()
		}
	}
	return nil
}

func (wv *wifiView) handleKey(m *Model, msg tea.KeyMsg) tea.Cmd {
	if wv.enteringPwd {
		switch msg.String() {
		case "esc":
			wv.enteringPwd = false
			wv.password.Blur()
			wv.password.SetValue("")
			wv.guard.ClearDirty(wifiGroup)
			return nil
		case "enter":
			return wv.connect(m)
		}
		var cmd tea.Cmd
		before := wv.password.Value()
		wv.password, cmd = wv.password.Update(msg)
		if wv.password.Value() != before {
			wv.guard.MarkDirty(wifiGroup)
		}
		return cmd
	}

	switch msg.String() {
	case "S":
		return wv.scan(m)
	case "j", "down":
		if wv.cursor < len(wv.networks)-1 {
			wv.cursor++
		}
	case "k", "up":
		if wv.cursor > 0 {
			wv.cursor--
		}
	case "enter":
		if wv.cursor < len(wv.networks) && !wv.connecting {
			wv.enteringPwd = true
			wv.password.SetValue("")
			wv.password.Focus()
			return textinput.Blink
		}
	case "x":
		return wv.disconnect(m)
	case "A":
		return wv.activateAP(m)
	}
	return nil
}

func (wv *wifiView) connect(m *Model) tea.Cmd {
	if wv.cursor >= len(wv.networks) {
		return nil
	}
	network := wv.networks[wv.cursor]
	password := wv.password.Value()

	wv.enteringPwd = false
	wv.password.Blur()
	wv.password.SetValue("")
	wv.guard.ClearDirty(wifiGroup)
	wv.connecting = true

	return func() tea.Msg {
		status, err := m.client.ConnectWifi(m.ctx, network.SSID, password)
		return wifiConnectMsg{status: status, err: err}
	}
}

func (wv *wifiView) disconnect(m *Model) tea.Cmd {
	if wv.switching {
		return nil
	}
	wv.switching = true
	return func() tea.Msg {
		return savedMsg{what: "disconnect", err: m.client.DisconnectWifi(m.ctx)}
	}
}

func (wv *wifiView) activateAP(m *Model) tea.Cmd {
	if wv.switching {
		return nil
	}
	m.confirm = &confirmPrompt{
		prompt: "Switch the controller to access-point mode?",
		cmd: func() tea.Msg {
			return savedMsg{what: "access point", err: m.client.ActivateAP(m.ctx)}
		},
	}
	return nil
}

func (wv *wifiView) render(m *Model) string {
	s := m.styles
	snap := m.store.Snapshot()

	var b strings.Builder
	b.WriteString(s.AccentText.Render("WiFi") + "\n\n")

	if snap.HasConn {
		mode := snap.Connection.Mode
		detail := snap.Connection.IP
		if snap.Connection.SSID != "" {
			detail = snap.Connection.SSID + " " + detail
		}
		b.WriteString(fmt.Sprintf("  %-10s %s %s\n\n",
			"Current:", s.Text.Render(mode), s.MutedText.Render(detail)))
	}

	switch {
	case wv.scanning:
		b.WriteString(s.MutedText.Render("  scanning...") + "\n")
	case wv.scanErr != nil:
		b.WriteString(s.DangerText.Render("  scan failed") + "\n")
		b.WriteString(s.MutedText.Render("  "+wv.scanErr.Error()) + "\n")
	case !wv.scanned:
		b.WriteString(s.MutedText.Render("  press S to scan for networks") + "\n")
	case len(wv.networks) == 0:
		b.WriteString(s.MutedText.Render("  no networks found") + "\n")
	default:
		for i, network := range wv.networks {
			marker := "  "
			if i == wv.cursor {
				marker = s.AccentText.Render("> ")
			}
			line := fmt.Sprintf("%s%s %-28s %s",
				marker, s.InfoText.Render(signalMeter(network.Signal)),
				truncateMiddle(network.SSID, 28), s.FaintText.Render(network.Signal))
			if i == wv.cursor {
				line = s.Selected.Render(line)
			}
			b.WriteString(line + "\n")
		}
	}

	if wv.enteringPwd && wv.cursor < len(wv.networks) {
		b.WriteString("\n" + s.Text.Render("  Password for "+wv.networks[wv.cursor].SSID+": ") +
			wv.password.View() + "\n")
	}
	if wv.connecting {
		b.WriteString("\n" + s.WarningText.Render("  connecting, the controller may drop off briefly...") + "\n")
	}

	return padPage(b.String())
}
