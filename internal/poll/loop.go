package poll

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tarn/irriga/internal/metrics"
)

// Mode is the loop's current cadence.
type Mode int

const (
	// ModeNormal polls at the configured interval.
	ModeNormal Mode = iota
	// ModeAccelerated polls at the fast interval for a bounded window.
	ModeAccelerated
	// ModeSuspended polls at twice the normal interval; state is never more
	// than 2x interval stale while the panel is hidden.
	ModeSuspended
)

func (m Mode) String() string {
	switch m {
	case ModeAccelerated:
		return "accelerated"
	case ModeSuspended:
		return "suspended"
	}
	return "normal"
}

const (
	defaultInterval     = 3 * time.Second
	defaultFastInterval = time.Second
)

// Config describes one polled resource.
type Config struct {
	// Name identifies the resource in logs and metrics ("zones-status",
	// "program-state", "connection-status", "logs").
	Name string

	// Interval is the normal cadence; FastInterval is used while
	// accelerated. Zero values take package defaults.
	Interval     time.Duration
	FastInterval time.Duration

	// Fetch retrieves the resource. It runs off the scheduling goroutine so
	// a slow response never delays tick bookkeeping; overlapping ticks are
	// dropped instead.
	Fetch func(ctx context.Context) (any, error)

	// OnResult receives each successful fetch. Never called after Stop for
	// responses that complete late.
	OnResult func(v any)

	// OnError receives each failed fetch. Poll errors are a log-and-count
	// affair; they must never turn into per-tick user notifications.
	OnError func(err error)
}

// Loop owns the recurring-fetch lifecycle for a single resource: one timer,
// at most one request in flight, and a terminal Stop. A stopped Loop is not
// reusable; pages construct a fresh one on every mount.
type Loop struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc
	wake   chan struct{}

	mu           sync.Mutex
	started      bool
	stopped      bool
	inFlight     bool
	suspended    bool
	accelerated  bool
	accelTimer   *time.Timer
	droppedTicks int
}

// NewLoop builds a Loop from cfg, applying interval defaults.
func NewLoop(cfg Config) (*Loop, error) {
	if cfg.Name == "" {
		return nil, errors.New("poll: loop requires a resource name")
	}
	if cfg.Fetch == nil {
		return nil, errors.New("poll: loop requires a fetch function")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.FastInterval <= 0 || cfg.FastInterval > cfg.Interval {
		cfg.FastInterval = defaultFastInterval
	}
	return &Loop{
		cfg:  cfg,
		wake: make(chan struct{}, 1),
	}, nil
}

// Start performs an immediate fetch and then schedules recurring fetches.
// Starting an already started or stopped loop is an error.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return errors.New("poll: loop is stopped and cannot be restarted")
	}
	if l.started {
		return errors.New("poll: loop already started")
	}
	l.started = true
	l.ctx, l.cancel = context.WithCancel(ctx)
	go l.run()
	return nil
}

// Stop cancels future ticks and transitions the loop to its terminal state.
// An in-flight request is not aborted, but its result is discarded.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	if l.accelTimer != nil {
		l.accelTimer.Stop()
		l.accelTimer = nil
	}
	cancel := l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	log.Debug().Str("resource", l.cfg.Name).Msg("poll loop stopped")
}

// Nudge requests an immediate out-of-band fetch, subject to the usual
// in-flight guard. Used after a successful action to reconcile without
// waiting for the next scheduled tick.
func (l *Loop) Nudge() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Accelerate switches the loop to the fast interval for the given window.
// The window is tracked by a one-shot timer; re-entering while a window is
// already active does not extend it.
func (l *Loop) Accelerate(window time.Duration) {
	if window <= 0 {
		return
	}
	l.mu.Lock()
	if l.stopped || l.accelerated {
		l.mu.Unlock()
		return
	}
	l.accelerated = true
	l.accelTimer = time.AfterFunc(window, l.revertAcceleration)
	l.mu.Unlock()

	log.Debug().Str("resource", l.cfg.Name).Dur("window", window).Msg("poll loop accelerated")
	l.Nudge()
}

func (l *Loop) revertAcceleration() {
	l.mu.Lock()
	l.accelerated = false
	l.accelTimer = nil
	l.mu.Unlock()
	log.Debug().Str("resource", l.cfg.Name).Msg("poll loop back to normal interval")
}

// Suspend slows the loop to twice the normal interval. Triggered when the
// panel loses focus; polling continues so state stays bounded-stale.
func (l *Loop) Suspend() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.suspended = true
}

// Resume restores the normal (or still-accelerated) cadence.
func (l *Loop) Resume() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.suspended = false
}

// Mode reports the current cadence mode. Suspension wins over acceleration.
func (l *Loop) Mode() Mode {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.suspended:
		return ModeSuspended
	case l.accelerated:
		return ModeAccelerated
	default:
		return ModeNormal
	}
}

// Interval reports the currently scheduled interval for the loop's mode.
func (l *Loop) Interval() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.suspended:
		return 2 * l.cfg.Interval
	case l.accelerated:
		return l.cfg.FastInterval
	default:
		return l.cfg.Interval
	}
}

// DroppedTicks reports how many ticks were skipped due to the in-flight
// guard.
func (l *Loop) DroppedTicks() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.droppedTicks
}

func (l *Loop) run() {
	l.tick()
	for {
		timer := time.NewTimer(l.Interval())
		select {
		case <-l.ctx.Done():
			timer.Stop()
			return
		case <-l.wake:
			timer.Stop()
			l.tick()
		case <-timer.C:
			l.tick()
		}
	}
}

// tick starts a fetch unless one is already pending. Overlapping ticks are
// dropped, not queued, so a slow response can never be overtaken by a newer
// one.
func (l *Loop) tick() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	if l.inFlight {
		l.droppedTicks++
		l.mu.Unlock()
		metrics.Count("poll.tick_dropped", 1, "resource:"+l.cfg.Name)
		log.Debug().Str("resource", l.cfg.Name).Msg("tick dropped, request in flight")
		return
	}
	l.inFlight = true
	l.mu.Unlock()

	go l.fetch()
}

func (l *Loop) fetch() {
	started := time.Now()
	v, err := l.cfg.Fetch(l.ctx)
	metrics.Timing("poll.fetch", time.Since(started), "resource:"+l.cfg.Name)

	l.mu.Lock()
	l.inFlight = false
	stopped := l.stopped
	l.mu.Unlock()

	// A response that lands after Stop belongs to a dead page; drop it.
	if stopped {
		log.Debug().Str("resource", l.cfg.Name).Msg("discarding response for stopped loop")
		return
	}

	if err != nil {
		metrics.Count("poll.fetch_error", 1, "resource:"+l.cfg.Name)
		log.Warn().Err(err).Str("resource", l.cfg.Name).Msg("poll fetch failed")
		if l.cfg.OnError != nil {
			l.cfg.OnError(err)
		}
		return
	}
	if l.cfg.OnResult != nil {
		l.cfg.OnResult(v)
	}
}
