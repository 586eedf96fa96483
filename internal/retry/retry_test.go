package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSleeper struct {
	waits []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

var errTransient = errors.New("transient")
var errFatal = errors.New("fatal")

func testPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff: func(attempt int, err error) (time.Duration, Decision) {
			if errors.Is(err, errFatal) {
				return 0, Abort
			}
			return Exponential(time.Second, attempt, time.Second), Retry
		},
	}
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	rs := &recordingSleeper{}
	calls := 0
	got, err := Do(context.Background(), testPolicy(), rs.sleep, func(ctx context.Context, attempt int) (string, error) {
		calls++
		if attempt < 2 {
			return "", errTransient
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 3 * time.Second}, rs.waits)
}

func TestDoExhausts(t *testing.T) {
	rs := &recordingSleeper{}
	calls := 0
	_, err := Do(context.Background(), testPolicy(), rs.sleep, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, errTransient
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
	assert.Len(t, rs.waits, 2, "no wait after the final attempt")
}

func TestDoAbortsImmediately(t *testing.T) {
	rs := &recordingSleeper{}
	calls := 0
	_, err := Do(context.Background(), testPolicy(), rs.sleep, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, errFatal
	})
	assert.ErrorIs(t, err, errFatal)
	assert.NotErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rs.waits)
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Do(ctx, testPolicy(), Sleep, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, errTransient
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestExponential(t *testing.T) {
	assert.Equal(t, time.Second+time.Second, Exponential(time.Second, 0, time.Second))
	assert.Equal(t, 4*time.Second+2*time.Second, Exponential(time.Second, 2, 2*time.Second))
	assert.Equal(t, 2*time.Second, Exponential(time.Second, 1, 0))
}
