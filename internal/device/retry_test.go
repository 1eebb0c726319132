package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseBackoff: time.Millisecond}
}

func TestBackoffFor(t *testing.T) {
	base := 500 * time.Millisecond
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, time.Second},
		{3, 1500 * time.Millisecond},
		{0, 500 * time.Millisecond}, // clamped to first attempt
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, backoffFor(tt.attempt, base), "attempt %d", tt.attempt)
	}
}

func TestWithRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_RetriesNetworkErrors(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &APIError{Kind: KindNetwork, Endpoint: "/stop_zone", Err: errors.New("refused")}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_ExhaustionReturnsLastError(t *testing.T) {
	calls := 0
	wantErr := &APIError{Kind: KindNetwork, Endpoint: "/stop_zone", Err: errors.New("refused")}
	err := WithRetry(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		calls++
		return wantErr
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Same(t, wantErr, err)
}

func TestWithRetry_NeverRetriesApplicationErrors(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastPolicy(5), func(ctx context.Context) error {
		calls++
		return &APIError{Kind: KindApplication, Endpoint: "/start_zone", Message: "zone already active"}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "application rejection is final, not transient")
	assert.Equal(t, KindApplication, Kind(err))
}

func TestWithRetry_RetriesServerErrorsOnly(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastPolicy(2), func(ctx context.Context) error {
		calls++
		return &APIError{Kind: KindHTTPStatus, Endpoint: "/get_zones_status", Status: 404}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "4xx must not be retried")

	calls = 0
	err = WithRetry(context.Background(), fastPolicy(2), func(ctx context.Context) error {
		calls++
		return &APIError{Kind: KindHTTPStatus, Endpoint: "/get_zones_status", Status: 500}
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls, "5xx should be retried")
}

func TestWithRetry_CancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	policy := RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Hour}
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := WithRetry(ctx, policy, func(ctx context.Context) error {
		calls++
		return &APIError{Kind: KindNetwork, Endpoint: "/stop_zone", Err: errors.New("refused")}
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_NormalizesZeroPolicy(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), RetryPolicy{}, func(ctx context.Context) error {
		calls++
		return &APIError{Kind: KindNetwork, Err: errors.New("refused")}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
