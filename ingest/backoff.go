package ingest

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy wraps github.com/cenkalti/backoff/v5 to retry a transient
// provider error with exponential backoff, capped at 16 shifts per spec.md
// §5's resource-model bound on retry growth. It generalizes the original
// crate's tokio-timer-based retry loop to Go's idiom of an explicit policy
// object rather than an async sleep.
type RetryPolicy struct {
	baseDelay time.Duration
	maxShifts int
}

// NewRetryPolicy returns a RetryPolicy starting at baseDelay and doubling up
// to maxShifts times.
func NewRetryPolicy(baseDelay time.Duration, maxShifts int) RetryPolicy {
	if maxShifts <= 0 || maxShifts > 16 {
		maxShifts = 16
	}
	return RetryPolicy{baseDelay: baseDelay, maxShifts: maxShifts}
}

func (p RetryPolicy) backoffPolicy() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.baseDelay
	eb.MaxInterval = p.baseDelay << uint(p.maxShifts)
	eb.Multiplier = 2
	return eb
}

// Retry runs fn, retrying transient errors under the configured policy
// until it succeeds, ctx is cancelled, or the policy gives up.
func (p RetryPolicy) Retry(ctx context.Context, fn func() error) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, fn()
	}, backoff.WithBackOff(p.backoffPolicy()), backoff.WithMaxTries(uint(p.maxShifts)+1))
	return err
}
