package repository

import (
	"context"
	"time"
)

// RetryPolicy bounds how often and how long Retry waits between attempts.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultRetryPolicy retries a conflicting write four times with doubling
// delays starting at 20ms.
var DefaultRetryPolicy = RetryPolicy{
	Attempts:  5,
	BaseDelay: 20 * time.Millisecond,
	MaxDelay:  500 * time.Millisecond,
}

// Retry runs fn until it succeeds, fails with an error that is not a write
// conflict, the attempts are exhausted or ctx ends. The last error is
// returned.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func() (T, error)) (T, error) {
	attempts := max(policy.Attempts, 1)
	delay := policy.BaseDelay

	var (
		result T
		err    error
	)
	for attempt := range attempts {
		result, err = fn()
		if err == nil || !IsConflict(err) || attempt == attempts-1 {
			return result, err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, err
		case <-timer.C:
		}

		delay *= 2
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	return result, err
}
