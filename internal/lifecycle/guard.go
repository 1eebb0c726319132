// Package lifecycle ties poll loops and projections to a page's
// mount/unmount boundary.
//
// Each panel page constructs a Guard on mount and registers everything that
// must die with the page: poll loops, optimistic overlays, countdown
// projections. Unmount stops them all, so a page transition can never leak
// a timer or let a late response touch a dead page.
//
// The Guard also tracks unsaved-changes flags per settings group. In-app
// navigation away from a dirty page goes through ConfirmLeave, which the
// caller must honor; this is an in-app guard only and is advisory at
// process exit, where the terminal gives no way to veto a SIGINT.
package lifecycle

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Stopper is anything with page-scoped lifetime. poll.Loop satisfies it.
type Stopper interface {
	Stop()
}

// stopFunc adapts a bare cleanup function to Stopper.
type stopFunc func()

func (f stopFunc) Stop() { f() }

// Guard owns the teardown set and dirty flags for one mounted page.
type Guard struct {
	mu       sync.Mutex
	name     string
	stoppers []Stopper
	dirty    map[string]bool
	mounted  bool
}

// NewGuard builds a Guard for the named page.
func NewGuard(name string) *Guard {
	return &Guard{
		name:    name,
		dirty:   make(map[string]bool),
		mounted: true,
	}
}

// Track registers a Stopper for teardown. Registering after Unmount stops
// it immediately rather than leaking it.
func (g *Guard) Track(s Stopper) {
	if s == nil {
		return
	}
	g.mu.Lock()
	if !g.mounted {
		g.mu.Unlock()
		s.Stop()
		return
	}
	g.stoppers = append(g.stoppers, s)
	g.mu.Unlock()
}

// TrackFunc registers a cleanup function for teardown.
func (g *Guard) TrackFunc(f func()) {
	if f == nil {
		return
	}
	g.Track(stopFunc(f))
}

// Unmount stops every tracked resource in reverse registration order and
// clears the dirty flags. It is idempotent; the Guard is terminal after.
func (g *Guard) Unmount() {
	g.mu.Lock()
	if !g.mounted {
		g.mu.Unlock()
		return
	}
	g.mounted = false
	stoppers := g.stoppers
	g.stoppers = nil
	g.dirty = make(map[string]bool)
	g.mu.Unlock()

	for i := len(stoppers) - 1; i >= 0; i-- {
		stoppers[i].Stop()
	}
	log.Debug().Str("page", g.name).Int("stopped", len(stoppers)).Msg("page unmounted")
}

// Mounted reports whether the page is still live.
func (g *Guard) Mounted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mounted
}

// MarkDirty flags a settings group ("wifi", "zones", "advanced") as having
// unsaved changes.
func (g *Guard) MarkDirty(group string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dirty[group] = true
}

// ClearDirty clears a group's flag, only ever after a confirmed save.
func (g *Guard) ClearDirty(group string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.dirty, group)
}

// Dirty reports whether any settings group has unsaved changes.
func (g *Guard) Dirty() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.dirty) > 0
}

// DirtyGroups lists the groups with unsaved changes.
func (g *Guard) DirtyGroups() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	groups := make([]string, 0, len(g.dirty))
	for group := range g.dirty {
		groups = append(groups, group)
	}
	return groups
}

// ConfirmLeave reports whether navigation may proceed without asking. A
// clean page leaves freely; a dirty page requires the caller to raise its
// confirmation flow first.
func (g *Guard) ConfirmLeave() bool {
	return !g.Dirty()
}
