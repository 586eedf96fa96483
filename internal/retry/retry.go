// Package retry runs fallible operations under an explicit backoff policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Decision tells Do what to do after a failed attempt.
type Decision int

const (
	// Retry waits the returned delay and tries again.
	Retry Decision = iota
	// Abort stops immediately and returns the attempt's error.
	Abort
)

// ErrExhausted wraps the last error once every attempt has failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy bounds attempts and classifies failures. Attempts are numbered from 0.
type Policy struct {
	MaxAttempts int
	Backoff     func(attempt int, err error) (time.Duration, Decision)
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real-time Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Exponential returns base * 2^attempt plus a fixed offset.
func Exponential(base time.Duration, attempt int, offset time.Duration) time.Duration {
	return base*time.Duration(1<<uint(attempt)) + offset
}

// Do calls op until it succeeds, the policy aborts, attempts run out, or ctx
// is cancelled. No delay follows the final attempt.
func Do[T any](ctx context.Context, p Policy, sleep Sleeper, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	if sleep == nil {
		sleep = Sleep
	}
	max := p.MaxAttempts
	if max <= 0 {
		max = 1
	}

	var lastErr error
	for attempt := 0; attempt < max; attempt++ {
		v, err := op(ctx, attempt)
		if err == nil {
			return v, nil
		}
		lastErr = err

		delay, decision := time.Duration(0), Retry
		if p.Backoff != nil {
			delay, decision = p.Backoff(attempt, err)
		}
		if decision == Abort {
			return zero, err
		}
		if attempt == max-1 {
			break
		}
		if serr := sleep(ctx, delay); serr != nil {
			return zero, fmt.Errorf("waiting to retry: %w", serr)
		}
	}
	return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, max, lastErr)
}
