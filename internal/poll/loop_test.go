package poll

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoop_Validates(t *testing.T) {
	_, err := NewLoop(Config{Fetch: func(ctx context.Context) (any, error) { return nil, nil }})
	require.Error(t, err)

	_, err = NewLoop(Config{Name: "zones-status"})
	require.Error(t, err)

	loop, err := NewLoop(Config{
		Name:  "zones-status",
		Fetch: func(ctx context.Context) (any, error) { return nil, nil },
	})
	require.NoError(t, err)
	assert.Equal(t, defaultInterval, loop.cfg.Interval)
	assert.Equal(t, defaultFastInterval, loop.cfg.FastInterval)
}

func TestLoop_DropsOverlappingTicks(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	var results atomic.Int32

	loop, err := NewLoop(Config{
		Name:     "zones-status",
		Interval: time.Hour, // only explicit nudges tick during the test
		Fetch: func(ctx context.Context) (any, error) {
			calls.Add(1)
			<-release
			return "zones", nil
		},
		OnResult: func(v any) { results.Add(1) },
	})
	require.NoError(t, err)
	require.NoError(t, loop.Start(context.Background()))
	defer loop.Stop()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond,
		"initial fetch should start")

	// Ticks arriving while the first fetch is still out get dropped, not
	// queued.
	loop.Nudge()
	require.Eventually(t, func() bool { return loop.DroppedTicks() >= 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "no second fetch while one is in flight")

	close(release)
	require.Eventually(t, func() bool { return results.Load() >= 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "dropped ticks are not replayed")
}

func TestLoop_DiscardsResponseAfterStop(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	delivered := make(chan any, 1)
	failed := make(chan error, 1)

	loop, err := NewLoop(Config{
		Name:     "program-state",
		Interval: time.Hour,
		Fetch: func(ctx context.Context) (any, error) {
			close(entered)
			<-release
			return "late", nil
		},
		OnResult: func(v any) { delivered <- v },
		OnError:  func(err error) { failed <- err },
	})
	require.NoError(t, err)
	require.NoError(t, loop.Start(context.Background()))

	<-entered
	loop.Stop()
	close(release)

	select {
	case v := <-delivered:
		t.Fatalf("observer ran after Stop with %v", v)
	case err := <-failed:
		t.Fatalf("error observer ran after Stop with %v", err)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestLoop_StopIsTerminal(t *testing.T) {
	loop, err := NewLoop(Config{
		Name:  "zones-status",
		Fetch: func(ctx context.Context) (any, error) { return nil, nil },
	})
	require.NoError(t, err)
	require.NoError(t, loop.Start(context.Background()))

	loop.Stop()
	loop.Stop() // idempotent

	require.Error(t, loop.Start(context.Background()), "a stopped loop must not restart")
}

func TestLoop_StartTwiceFails(t *testing.T) {
	loop, err := NewLoop(Config{
		Name:  "zones-status",
		Fetch: func(ctx context.Context) (any, error) { return nil, nil },
	})
	require.NoError(t, err)
	require.NoError(t, loop.Start(context.Background()))
	defer loop.Stop()

	require.Error(t, loop.Start(context.Background()))
}

func TestLoop_ModeAndIntervalTransitions(t *testing.T) {
	loop, err := NewLoop(Config{
		Name:         "zones-status",
		Interval:     100 * time.Millisecond,
		FastInterval: 20 * time.Millisecond,
		Fetch:        func(ctx context.Context) (any, error) { return nil, nil },
	})
	require.NoError(t, err)

	assert.Equal(t, ModeNormal, loop.Mode())
	assert.Equal(t, 100*time.Millisecond, loop.Interval())

	loop.Accelerate(time.Hour)
	assert.Equal(t, ModeAccelerated, loop.Mode())
	assert.Equal(t, 20*time.Millisecond, loop.Interval())

	// Suspension wins over acceleration and doubles the normal interval.
	loop.Suspend()
	assert.Equal(t, ModeSuspended, loop.Mode())
	assert.Equal(t, 200*time.Millisecond, loop.Interval())

	loop.Resume()
	assert.Equal(t, ModeAccelerated, loop.Mode())
}

func TestLoop_AccelerationWindowDoesNotExtend(t *testing.T) {
	loop, err := NewLoop(Config{
		Name:         "zones-status",
		Interval:     time.Hour,
		FastInterval: time.Millisecond,
		Fetch:        func(ctx context.Context) (any, error) { return nil, nil },
	})
	require.NoError(t, err)

	loop.Accelerate(100 * time.Millisecond)
	// Re-entry while a window is active is ignored, so this hour-long
	// window must not replace the running 100ms one.
	loop.Accelerate(time.Hour)

	require.Eventually(t, func() bool { return loop.Mode() == ModeNormal },
		2*time.Second, 5*time.Millisecond, "original window should still expire")
}

func TestLoop_AccelerateIgnoredAfterStop(t *testing.T) {
	loop, err := NewLoop(Config{
		Name:  "zones-status",
		Fetch: func(ctx context.Context) (any, error) { return nil, nil },
	})
	require.NoError(t, err)
	require.NoError(t, loop.Start(context.Background()))
	loop.Stop()

	loop.Accelerate(time.Hour)
	assert.Equal(t, ModeNormal, loop.Mode())
}

func TestLoop_ErrorsGoToOnError(t *testing.T) {
	wantErr := errors.New("unreachable")
	got := make(chan error, 1)

	loop, err := NewLoop(Config{
		Name:     "connection-status",
		Interval: time.Hour,
		Fetch: func(ctx context.Context) (any, error) {
			return nil, wantErr
		},
		OnResult: func(v any) { t.Error("OnResult called for a failed fetch") },
		OnError:  func(err error) { got <- err },
	})
	require.NoError(t, err)
	require.NoError(t, loop.Start(context.Background()))
	defer loop.Stop()

	select {
	case err := <-got:
		assert.Equal(t, wantErr, err)
	case <-time.After(time.Second):
		t.Fatal("OnError never called")
	}
}
