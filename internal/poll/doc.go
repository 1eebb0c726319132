// Package poll implements the recurring-fetch loops that keep the panel in
// sync with the controller.
//
// # Overview
//
// Each polled resource (zone status, program state, connection status, the
// event log) gets its own Loop: one timer, one fetch function, at most one
// request in flight. Loops are page-scoped: a page constructs its loops on
// mount and a lifecycle guard stops them on unmount.
//
// # Scheduling Model
//
// A Loop runs a single goroutine:
//
//	Start ──→ immediate fetch
//	            │
//	            ▼
//	   ┌─── timer/nudge ───┐
//	   │        │          │
//	   │        ▼          │
//	   │   in flight? ──yes──→ drop tick, count it
//	   │        │no        │
//	   │        ▼          │
//	   │   go fetch() ─────┘
//
// Overlapping ticks are dropped, never queued. A fetch that outlives its
// interval cannot pile up requests behind it, and a slow response can never
// be overtaken and then clobber a newer one.
//
// # Cadence Modes
//
// A loop runs in one of three modes:
//
//   - normal: the configured interval (3s default)
//   - accelerated: the fast interval (1s default) for a bounded window,
//     entered on program start/stop transitions; re-entry does not extend
//     the window
//   - suspended: twice the normal interval, entered when the terminal loses
//     focus; polling never fully stops, so state is bounded-stale
//
// Suspension wins over acceleration when both are set.
//
// # Stopping
//
// Stop is terminal. It cancels the loop context and marks the loop dead;
// an in-flight request is left to finish but its response is discarded
// before any observer runs. A stopped loop cannot be restarted; pages build
// a fresh Loop on every mount.
//
// # Error Handling
//
// Fetch failures go to the OnError observer and a counter; they never
// produce per-tick user notifications. The state store keeps the last good
// data, so the panel degrades to stale-but-visible rather than blank.
package poll
