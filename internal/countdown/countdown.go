// Package countdown projects a smooth local countdown between polls.
//
// The controller reports each active zone's remaining seconds only as often
// as the panel polls it. A Projection captures one such report and projects
// the remaining time forward locally so the display ticks every second
// instead of jumping at poll cadence. Each fresh poll corrects the
// projection outright; local drift is never accumulated.
//
// The projection is display-only. When it expires it signals once and stops
// ticking, but it never issues a stop command: the controller stops the
// zone on its own and the next poll reconciles the panel.
package countdown

import (
	"fmt"
	"time"
)

// DefaultTotalEstimate stands in for the total duration when the controller
// only reports a remaining time. Ten minutes mirrors the device's default
// manual run; progress derived from it is an estimate, never exact, and the
// UI labels it as such.
const DefaultTotalEstimate = 10 * time.Minute

// Projection is a client-side countdown derived from one server report.
type Projection struct {
	total      time.Duration
	remaining  time.Duration
	capturedAt time.Time
	estimated  bool
	signaled   bool
}

// New captures a server-reported remaining duration. A non-positive total
// falls back to DefaultTotalEstimate (stretched to cover remaining if the
// report exceeds it) and marks the projection as estimated.
func New(remaining, total time.Duration, now time.Time) *Projection {
	p := &Projection{}
	p.Capture(remaining, total, now)
	return p
}

// Capture replaces the projection with a fresh authoritative report,
// correcting any local drift. A report with time left re-arms the expiry
// signal.
func (p *Projection) Capture(remaining, total time.Duration, now time.Time) {
	if remaining < 0 {
		remaining = 0
	}
	p.estimated = total <= 0
	if p.estimated {
		total = DefaultTotalEstimate
	}
	if total < remaining {
		total = remaining
	}
	p.total = total
	p.remaining = remaining
	p.capturedAt = now
	if remaining > 0 {
		p.signaled = false
	}
}

// Estimated reports whether the total is the fallback estimate rather than
// a server-reported duration.
func (p *Projection) Estimated() bool { return p.estimated }

// Total returns the (possibly estimated) total duration.
func (p *Projection) Total() time.Duration { return p.total }

// Remaining projects the time left at now. It is monotonically
// non-increasing between captures and never negative.
func (p *Projection) Remaining(now time.Time) time.Duration {
	elapsed := now.Sub(p.capturedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	left := p.remaining - elapsed
	if left < 0 {
		return 0
	}
	return left
}

// Percent returns completion progress in [0, 100].
func (p *Projection) Percent(now time.Time) float64 {
	if p.total <= 0 {
		return 0
	}
	done := p.total - p.Remaining(now)
	percent := float64(done) / float64(p.total) * 100
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

// Clock formats the projected remaining time as "mm:ss".
func (p *Projection) Clock(now time.Time) string {
	left := p.Remaining(now)
	total := int(left.Round(time.Second).Seconds())
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// Expired reports the countdown reaching zero. It returns true exactly once
// per run-down; later calls return false until a capture re-arms it.
func (p *Projection) Expired(now time.Time) bool {
	if p.signaled || p.Remaining(now) > 0 {
		return false
	}
	p.signaled = true
	return true
}
