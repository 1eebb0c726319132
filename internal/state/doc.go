// Package state provides thread-safe state sharing for the irriga panel.
//
// # Overview
//
// This package implements the store where poll-loop results meet UI reads.
// Poll loops run on their own goroutines and each writes one resource; the
// UI reads an immutable snapshot once a second and renders from it.
//
// # Architecture
//
// The package follows a producer-consumer pattern:
//
//	Producers (poll loops):        Consumer (UI tick):
//	┌──────────────────┐          ┌──────────────────┐
//	│ zones-status     │          │                  │
//	│ program-state    │──────────→ store.Snapshot() │
//	│ connection-status│  (mutex) │        ↓         │
//	│ logs             │          │    render UI     │
//	└──────────────────┘          └──────────────────┘
//
// # Failure Semantics
//
// A poll failure never drops data: SetError keeps the previous resource
// values and increments a consecutive-failure counter. The panel keeps
// showing the last known state while the counter drives the offline badge
// (two consecutive failures). The next successful set clears both.
//
// # Snapshot Semantics
//
// Snapshot returns defensive copies: the zone slice, log slice and the
// program-state pointers are duplicated so a caller can hold or mutate a
// snapshot without racing the writers.
package state
