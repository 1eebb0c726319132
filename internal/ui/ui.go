package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/tarn/irriga/internal/config"
	"github.com/tarn/irriga/internal/device"
	"github.com/tarn/irriga/internal/lifecycle"
	"github.com/tarn/irriga/internal/poll"
	"github.com/tarn/irriga/internal/prefs"
	"github.com/tarn/irriga/internal/state"
)

// View identifies one panel page.
type View int

const (
	ViewZones View = iota
	ViewPrograms
	ViewSettings
	ViewWifi
	ViewLogs
	ViewSystem
)

func (v View) String() string {
	switch v {
	case ViewZones:
		return "Zones"
	case ViewPrograms:
		return "Programs"
	case ViewSettings:
		return "Settings"
	case ViewWifi:
		return "WiFi"
	case ViewLogs:
		return "Logs"
	case ViewSystem:
		return "System"
	}
	return "?"
}

// Options configures the UI.
type Options struct {
	Client    *device.Client
	Store     *state.Store
	Config    config.Config
	Prefs     prefs.Prefs
	PrefsPath string
}

// Messages exchanged with background commands.
type (
	tickMsg     time.Time
	forceNavMsg struct{ to View }

	// factoryArmedMsg is the first yes of the factory-reset double
	// confirmation; the second prompt carries the real command.
	factoryArmedMsg struct{}

	// actionDoneMsg reports a finished device action. The overlay has
	// already settled it; the message just triggers a redraw and lets a
	// view react (reload a list, clear an input).
	actionDoneMsg struct {
		target string
		err    error
	}

	programsMsg struct {
		programs map[string]device.Program
		err      error
	}
	zonesConfigMsg struct {
		zones []device.Zone
		err   error
	}
	settingsMsg struct {
		settings *device.Settings
		err      error
	}
	scanMsg struct {
		networks []device.WifiNetwork
		err      error
	}
	statsMsg struct {
		stats *device.ServerStats
		err   error
	}
	wifiConnectMsg struct {
		status *device.ConnectionStatus
		err    error
	}
	savedMsg struct {
		what string
		err  error
	}
)

// confirmPrompt is a pending yes/no question blocking the rest of the UI.
type confirmPrompt struct {
	prompt string
	cmd    tea.Cmd
}

// Model is the root Bubble Tea model for the panel.
type Model struct {
	ctx    context.Context
	client *device.Client
	store  *state.Store
	cfg    config.Config

	prefs     prefs.Prefs
	prefsPath string
	theme     Theme
	styles    Styles

	width  int
	height int
	ready  bool

	view    View
	zones   *zonesView
	progs   *programsView
	setts   *settingsView
	wifi    *wifiView
	logs    *logsView
	system  *systemView
	notices *Notices

	// appGuard owns app-scoped resources: the connection-status loop that
	// feeds the header runs for the whole session, not per page.
	appGuard *lifecycle.Guard
	connLoop *poll.Loop

	confirm  *confirmPrompt
	showHelp bool

	// prevRunning tracks the last observed program-running flag so either
	// transition edge can accelerate polling for a short window.
	prevRunning bool
	haveRunning bool

	quitting bool
}

// NewModel builds the root model. Page loops start on mount; only the
// connection loop is app-scoped.
func NewModel(ctx context.Context, opts Options) *Model {
	theme := GetTheme(opts.Prefs.Theme)
	m := &Model{
		ctx:       ctx,
		client:    opts.Client,
		store:     opts.Store,
		cfg:       opts.Config,
		prefs:     opts.Prefs,
		prefsPath: opts.PrefsPath,
		theme:     theme,
		styles:    theme.Styles(),
		notices:   NewNotices(),
		appGuard:  lifecycle.NewGuard("app"),
	}

	connLoop, err := poll.NewLoop(poll.Config{
		Name:     "connection-status",
		Interval: opts.Config.SlowPollInterval,
		Fetch: func(ctx context.Context) (any, error) {
			return opts.Client.ConnectionStatus(ctx)
		},
		OnResult: func(v any) {
			if status, ok := v.(*device.ConnectionStatus); ok && status != nil {
				opts.Store.SetConnection(*status)
			}
		},
		OnError: opts.Store.SetError,
	})
	if err == nil {
		m.connLoop = connLoop
		m.appGuard.Track(connLoop)
	}
	return m
}

// Init mounts the initial page and starts the shared ticker.
func (m *Model) Init() tea.Cmd {
	if m.connLoop != nil {
		if err := m.connLoop.Start(m.ctx); err != nil {
			log.Warn().Err(err).Msg("connection loop failed to start")
		}
	}
	cmd := m.mount(ViewZones)
	return tea.Batch(cmd, tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update is the single mutation point for UI state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		if m.logs != nil {
			m.logs.resize(m.width, m.contentHeight())
		}
		return m, nil

	case tea.FocusMsg:
		for _, l := range m.activeLoops() {
			l.Resume()
		}
		return m, nil

	case tea.BlurMsg:
		for _, l := range m.activeLoops() {
			l.Suspend()
		}
		return m, nil

	case tickMsg:
		m.observeSnapshot(time.Time(msg))
		return m, tickCmd()

	case forceNavMsg:
		return m, m.switchTo(msg.to)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// The rest are view-specific command results.
	return m, m.route(msg)
}

// observeSnapshot runs once a second: it feeds fresh authoritative state to
// the active page and handles acceleration on program transitions.
func (m *Model) observeSnapshot(now time.Time) {
	snap := m.store.Snapshot()

	if snap.HasProgram {
		if m.haveRunning && snap.Program.ProgramRunning != m.prevRunning {
			for _, l := range m.activeLoops() {
				l.Accelerate(m.cfg.AccelerateWindow)
			}
		}
		m.prevRunning = snap.Program.ProgramRunning
		m.haveRunning = true
	}

	switch m.view {
	case ViewZones:
		m.zones.observe(snap, now)
	case ViewPrograms:
		m.progs.observe(snap)
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Ctrl+C quits from anywhere, including text entry and confirmations.
	if msg.String() == "ctrl+c" {
		return m, m.quit()
	}

	// A pending confirmation swallows every key.
	if m.confirm != nil {
		switch msg.String() {
		case "y", "Y", "enter":
			cmd := m.confirm.cmd
			m.confirm = nil
			return m, cmd
		case "n", "N", "esc":
			m.confirm = nil
			return m, nil
		}
		return m, nil
	}

	// Text-entry modes capture printable keys before global bindings.
	if m.viewCapturesKeys() {
		return m, m.routeKey(msg)
	}

	switch msg.String() {
	case "q":
		return m, m.quit()
	case "?", "h":
		m.showHelp = !m.showHelp
		return m, nil
	case "T":
		m.cycleTheme()
		return m, nil
	case "z", "1":
		return m, m.navigate(ViewZones)
	case "p", "2":
		return m, m.navigate(ViewPrograms)
	case "s", "3":
		return m, m.navigate(ViewSettings)
	case "w", "4":
		return m, m.navigate(ViewWifi)
	case "l", "5":
		return m, m.navigate(ViewLogs)
	case "d", "6":
		return m, m.navigate(ViewSystem)
	case "tab":
		return m, m.navigate((m.view + 1) % 6)
	case "shift+tab":
		return m, m.navigate((m.view + 5) % 6)
	}

	return m, m.routeKey(msg)
}

// viewCapturesKeys reports whether the active page is in a text-entry mode
// that must see raw keys.
func (m *Model) viewCapturesKeys() bool {
	switch m.view {
	case ViewZones:
		return m.zones != nil && m.zones.entering
	case ViewSettings:
		return m.setts != nil && m.setts.editing
	case ViewWifi:
		return m.wifi != nil && m.wifi.enteringPwd
	}
	return false
}

func (m *Model) routeKey(msg tea.KeyMsg) tea.Cmd {
	switch m.view {
	case ViewZones:
		return m.zones.handleKey(m, msg)
	case ViewPrograms:
		return m.progs.handleKey(m, msg)
	case ViewSettings:
		return m.setts.handleKey(m, msg)
	case ViewWifi:
		return m.wifi.handleKey(m, msg)
	case ViewLogs:
		return m.logs.handleKey(m, msg)
	case ViewSystem:
		return m.system.handleKey(m, msg)
	}
	return nil
}

func (m *Model) route(msg tea.Msg) tea.Cmd {
	switch m.view {
	case ViewZones:
		return m.zones.handleMsg(m, msg)
	case ViewPrograms:
		return m.progs.handleMsg(m, msg)
	case ViewSettings:
		return m.setts.handleMsg(m, msg)
	case ViewWifi:
		return m.wifi.handleMsg(m, msg)
	case ViewLogs:
		return m.logs.handleMsg(m, msg)
	case ViewSystem:
		return m.system.handleMsg(m, msg)
	}
	return nil
}

// navigate switches pages, asking first when the current page holds unsaved
// changes.
func (m *Model) navigate(to View) tea.Cmd {
	if to == m.view {
		return nil
	}
	if guard := m.activeGuard(); guard != nil && !guard.ConfirmLeave() {
		groups := strings.Join(guard.DirtyGroups(), ", ")
		m.confirm = &confirmPrompt{
			prompt: fmt.Sprintf("Unsaved changes (%s). Leave anyway?", groups),
			cmd: func() tea.Msg {
				return forceNavMsg{to: to}
			},
		}
		return nil
	}
	return m.switchTo(to)
}

func (m *Model) switchTo(to View) tea.Cmd {
	m.unmountActive()
	return m.mount(to)
}

// mount builds the target page and starts its loops.
func (m *Model) mount(to View) tea.Cmd {
	m.view = to
	switch to {
	case ViewZones:
		m.zones = newZonesView(m)
		return m.zones.load(m)
	case ViewPrograms:
		m.progs = newProgramsView(m)
		return m.progs.load(m)
	case ViewSettings:
		m.setts = newSettingsView(m)
		return m.setts.load(m)
	case ViewWifi:
		m.wifi = newWifiView(m)
		return nil
	case ViewLogs:
		m.logs = newLogsView(m)
		m.logs.resize(m.width, m.contentHeight())
		return nil
	case ViewSystem:
		m.system = newSystemView(m)
		return m.system.load(m)
	}
	return nil
}

func (m *Model) unmountActive() {
	if guard := m.activeGuard(); guard != nil {
		guard.Unmount()
	}
	switch m.view {
	case ViewZones:
		m.zones = nil
	case ViewPrograms:
		m.progs = nil
	case ViewSettings:
		m.setts = nil
	case ViewWifi:
		m.wifi = nil
	case ViewLogs:
		m.logs = nil
	case ViewSystem:
		m.system = nil
	}
}

func (m *Model) activeGuard() *lifecycle.Guard {
	switch m.view {
	case ViewZones:
		if m.zones != nil {
			return m.zones.guard
		}
	case ViewPrograms:
		if m.progs != nil {
			return m.progs.guard
		}
	case ViewSettings:
		if m.setts != nil {
			return m.setts.guard
		}
	case ViewWifi:
		if m.wifi != nil {
			return m.wifi.guard
		}
	case ViewLogs:
		if m.logs != nil {
			return m.logs.guard
		}
	case ViewSystem:
		if m.system != nil {
			return m.system.guard
		}
	}
	return nil
}

// activeLoops returns every loop currently polling, page loops plus the
// app-scoped connection loop.
func (m *Model) activeLoops() []*poll.Loop {
	var loops []*poll.Loop
	if m.connLoop != nil {
		loops = append(loops, m.connLoop)
	}
	switch m.view {
	case ViewZones:
		if m.zones != nil {
			loops = append(loops, m.zones.loops()...)
		}
	case ViewPrograms:
		if m.progs != nil && m.progs.stateLoop != nil {
			loops = append(loops, m.progs.stateLoop)
		}
	case ViewLogs:
		if m.logs != nil && m.logs.loop != nil {
			loops = append(loops, m.logs.loop)
		}
	}
	return loops
}

// quit tears everything down. The exit guard is advisory only: unsaved
// changes cannot veto a terminal close, so they are logged and dropped.
func (m *Model) quit() tea.Cmd {
	if guard := m.activeGuard(); guard != nil && !guard.ConfirmLeave() {
		log.Info().Strs("groups", guard.DirtyGroups()).Msg("exiting with unsaved changes")
	}
	m.unmountActive()
	m.appGuard.Unmount()
	m.quitting = true
	return tea.Quit
}

func (m *Model) cycleTheme() {
	m.prefs.Theme = NextTheme(m.theme.Name)
	m.theme = GetTheme(m.prefs.Theme)
	m.styles = m.theme.Styles()
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		log.Warn().Err(err).Msg("failed to save preferences")
	}
}

// Run drives the UI until the user quits or ctx is canceled.
func Run(ctx context.Context, opts Options) error {
	m := NewModel(ctx, opts)
	program := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithReportFocus(),
	)
	_, err := program.Run()

	// Belt and braces for the ctx-canceled path, where quit() never ran.
	m.unmountActive()
	m.appGuard.Unmount()

	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
