package device

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryPolicy bounds retries for mutating calls. Attempt n waits
// BaseBackoff*n before retrying, so the default policy sleeps 500ms then
// 1000ms between its three attempts.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

// DefaultRetryPolicy matches the controller's tolerances: three attempts
// with a half-second backoff base.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseBackoff: 500 * time.Millisecond}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.BaseBackoff < 0 {
		p.BaseBackoff = 0
	}
	return p
}

// backoffFor returns the wait after a failed attempt (1-based).
func backoffFor(attempt int, base time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt) * base
}

// WithRetry runs fn up to MaxAttempts times, retrying only errors that
// Retryable accepts. Application rejections return on the first attempt: a
// "zone already active" answer will not change on a resend. The last error
// is returned after exhaustion; callers notify the user once, not per
// attempt.
func WithRetry(ctx context.Context, policy RetryPolicy, fn func(context.Context) error) error {
	policy = policy.normalized()

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) || attempt == policy.MaxAttempts {
			return lastErr
		}

		wait := backoffFor(attempt, policy.BaseBackoff)
		log.Debug().
			Err(lastErr).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("retrying device call")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
