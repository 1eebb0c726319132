// Package reconcile applies user actions to the panel optimistically and
// squares them with authoritative device state afterwards.
//
// When the operator toggles a zone the panel reflects the predicted state
// immediately, runs the device call (with retries) in the background, and
// then reconciles: a success keeps the prediction and nudges the owning
// poll loop for authoritative state; an exhausted failure rolls the
// prediction back and notifies exactly once. A later poll that contradicts
// a surviving prediction always wins.
//
// Predictions are guarded per logical target (one zone, one program), not
// by a global lock: concurrent actions on different targets proceed, a
// second action on the same target before reconciliation is rejected.
package reconcile

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tarn/irriga/internal/device"
	"github.com/tarn/irriga/internal/metrics"
)

// Overlay tracks optimistic predictions per target, layered over
// authoritative state of type T.
type Overlay[T comparable] struct {
	nudge  func()
	notify func(target, message string)

	mu      sync.Mutex
	entries map[string]*entry[T]
}

type entry[T comparable] struct {
	predicted T
	pending   bool // device call still running
}

// NewOverlay builds an Overlay. nudge triggers an out-of-band poll on the
// owning loop; notify surfaces one user-facing message per failed or
// reverted action.
func NewOverlay[T comparable](nudge func(), notify func(target, message string)) *Overlay[T] {
	return &Overlay[T]{
		nudge:   nudge,
		notify:  notify,
		entries: make(map[string]*entry[T]),
	}
}

// Begin registers a predicted state for target. It returns false when a
// previous action on the same target has not reconciled yet; the caller
// must then reject the action instead of queueing it.
func (o *Overlay[T]) Begin(target string, predicted T) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.entries[target]; busy {
		return false
	}
	o.entries[target] = &entry[T]{predicted: predicted, pending: true}
	return true
}

// Succeed marks the device call done. The prediction stays visible and the
// poll loop is nudged so the next authoritative snapshot arrives promptly.
func (o *Overlay[T]) Succeed(target string) {
	o.mu.Lock()
	e, ok := o.entries[target]
	if ok {
		e.pending = false
	}
	o.mu.Unlock()
	if ok && o.nudge != nil {
		o.nudge()
	}
}

// Fail rolls the prediction back and surfaces one notification.
func (o *Overlay[T]) Fail(target, message string) {
	o.mu.Lock()
	_, ok := o.entries[target]
	delete(o.entries, target)
	o.mu.Unlock()
	if ok && o.notify != nil {
		o.notify(target, message)
	}
}

// Observe feeds an authoritative value for target from a poll. While the
// device call is still pending the prediction is kept (the poll raced
// ahead). Afterwards a matching value retires the prediction silently; a
// mismatch reverts to the authoritative value and notifies once.
func (o *Overlay[T]) Observe(target string, authoritative T) {
	o.mu.Lock()
	e, ok := o.entries[target]
	if !ok || e.pending {
		o.mu.Unlock()
		return
	}
	matched := e.predicted == authoritative
	delete(o.entries, target)
	o.mu.Unlock()

	if !matched {
		metrics.Count("reconcile.mismatch", 1, "target:"+target)
		log.Warn().Str("target", target).Msg("optimistic state contradicted by controller")
		if o.notify != nil {
			o.notify(target, "state reverted by controller")
		}
	}
}

// Value returns the display value for target: the prediction while one is
// outstanding, otherwise the authoritative value.
func (o *Overlay[T]) Value(target string, authoritative T) T {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e, ok := o.entries[target]; ok {
		return e.predicted
	}
	return authoritative
}

// Pending reports whether target has an outstanding device call.
func (o *Overlay[T]) Pending(target string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.entries[target]
	return ok && e.pending
}

// Clear drops every prediction without notifying. Called on page unmount.
func (o *Overlay[T]) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = make(map[string]*entry[T])
}

// Run executes the device call for a Begin-registered target under the
// retry policy and settles the overlay from the outcome. The returned error
// is the final one; the user has already been notified by Fail.
func Run[T comparable](ctx context.Context, o *Overlay[T], target string, policy device.RetryPolicy, call func(context.Context) error) error {
	err := device.WithRetry(ctx, policy, call)
	if err != nil {
		metrics.Count("action.failed", 1, "target:"+target)
		o.Fail(target, err.Error())
		return err
	}
	o.Succeed(target)
	return nil
}
