// Package ui implements the irriga terminal interface using Bubble Tea.
//
// # Overview
//
// The UI is a tabbed panel over the irrigation controller: Zones, Programs,
// Settings, WiFi, Logs and System. Each page is a self-contained view
// struct owning its poll loops, optimistic overlays and input widgets; the
// root Model routes messages and keys to the active page.
//
// # Architecture
//
//	ui.go       Root model: navigation, focus, ticker, confirmation modal
//	view.go     Frame rendering: header, footer, help, confirm box
//	zones.go    Live zone toggles with local countdowns
//	programs.go Stored program list, manual runs, automatic toggles
//	settings.go Controller limits with an explicit save flow
//	wifi.go     Network scan, client-mode join, AP fallback
//	logs.go     Event log viewport at the slow poll cadence
//	system.go   Health counters and maintenance commands
//	theme.go    Lipgloss themes, cycled with T and persisted in prefs
//
// # Page Lifecycle
//
// Mounting a page constructs its view and starts its loops; navigating
// away unmounts it through a lifecycle guard, which stops every loop and
// clears every overlay in reverse registration order. A page holding
// unsaved changes (settings fields, a typed wifi password) intercepts
// navigation with a confirmation prompt first. At process exit the guard
// is advisory only: unsaved changes are logged and dropped, since a
// terminal close cannot be vetoed.
//
// # Data Flow
//
// Poll loops write to the state store from their own goroutines. The UI
// never renders from those goroutines: a one-second tick reads a snapshot,
// feeds it to the active page (settling optimistic predictions and
// re-capturing countdowns), and re-renders. User actions run as Bubble Tea
// commands and settle their overlays on completion.
//
// # Optimistic Actions
//
// Zone and program toggles flip in the UI immediately, guarded per target:
// a second action on the same zone before reconciliation is rejected with
// a notice. A failed action rolls back and produces exactly one notice; a
// poll that contradicts an applied prediction reverts it and notices once.
//
// # Focus Handling
//
// Terminal focus events (tea.WithReportFocus) suspend the active loops to
// twice their interval on blur and restore them on focus.
package ui
