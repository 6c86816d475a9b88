package retry_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/G-m007/EmoStream/internal/platform/retry"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastPolicy = retry.Policy{
	MaxAttempts:    3,
	InitialBackoff: 1 * time.Millisecond,
}

func TestDo_SuccessFirstAttempt(t *testing.T) {
	calls := 0
	err := retry.DoVoid(context.Background(), fastPolicy, nil, func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	calls := 0
	val, err := retry.Do(context.Background(), fastPolicy, nil, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("broker not ready")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, val)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	permanent := errors.New("unknown topic")
	calls := 0
	err := retry.DoVoid(context.Background(), fastPolicy, nil, func(context.Context) error {
		calls++
		return retry.Permanent(permanent)
	})

	var permErr *retry.PermanentError
	require.ErrorAs(t, err, &permErr)
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDo_ClassifyStopWrapsAsPermanent(t *testing.T) {
	underlying := errors.New("auth failed")
	err := retry.DoVoid(context.Background(), fastPolicy, alwaysStop, func(context.Context) error {
		return underlying
	})

	var permErr *retry.PermanentError
	require.ErrorAs(t, err, &permErr)
	assert.ErrorIs(t, err, underlying)
}

func TestDo_ExhaustedRetries(t *testing.T) {
	underlying := errors.New("connection refused")
	calls := 0
	err := retry.DoVoid(context.Background(), fastPolicy, nil, func(context.Context) error {
		calls++
		return underlying
	})
	require.ErrorIs(t, err, underlying)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Equal(t, fastPolicy.MaxAttempts, calls)
}

func TestDo_BackoffDoublesUpToMax(t *testing.T) {
	var backoffs []time.Duration
	p := retry.Policy{
		MaxAttempts:    5,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     3 * time.Millisecond,
		OnRetry: func(_ int, _ error, backoff time.Duration) {
			backoffs = append(backoffs, backoff)
		},
	}

	_ = retry.DoVoid(context.Background(), p, nil, func(context.Context) error {
		return errors.New("fail")
	})

	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond, 3 * time.Millisecond}, backoffs)
}

func TestDo_ContextCancellationDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p := retry.Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Hour,
		Clock:          clockwork.NewFakeClock(),
	}

	calls := 0
	err := retry.DoVoid(ctx, p, nil, func(context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_WaitsOnInjectedClock(t *testing.T) {
	fakeClock := clockwork.NewFakeClock()
	p := retry.Policy{MaxAttempts: 2, InitialBackoff: time.Minute, Clock: fakeClock}

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- retry.DoVoid(context.Background(), p, nil, func(context.Context) error {
			if calls.Add(1) == 1 {
				return errors.New("not yet")
			}
			return nil
		})
	}()

	require.NoError(t, fakeClock.BlockUntilContext(context.Background(), 1))
	fakeClock.Advance(time.Minute)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not resume after the clock advanced")
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestDo_OnRetryCallback(t *testing.T) {
	var recorded []int
	p := fastPolicy
	p.OnRetry = func(attempt int, _ error, _ time.Duration) {
		recorded = append(recorded, attempt)
	}

	_ = retry.DoVoid(context.Background(), p, nil, func(context.Context) error {
		return errors.New("fail")
	})

	// Not called after the final attempt
	assert.Equal(t, []int{1, 2}, recorded)
}

func TestDo_RejectsZeroAttempts(t *testing.T) {
	err := retry.DoVoid(context.Background(), retry.Policy{}, nil, func(context.Context) error { return nil })
	assert.Error(t, err)
}

func alwaysStop(error) retry.Action { return retry.Stop }
