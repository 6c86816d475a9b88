package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/G-m007/EmoStream/internal/adapter/metrics"
	"github.com/G-m007/EmoStream/internal/domain"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
)

const (
	DefaultForwardTimeout = 2 * time.Second

	breakerFailureThreshold = 5
	breakerSuccessThreshold = 1
	breakerDelay            = 30 * time.Second
)

// Forwarder appends reaction events to the durable log. Every append is bounded
// by a timeout, and a circuit breaker fails fast while the log is down.
// It never retries.
type Forwarder struct {
	sink    domain.EventLog
	timeout time.Duration
	breaker circuitbreaker.CircuitBreaker[any]
	metrics *metrics.ForwardMetrics
}

// NewForwarder creates a forwarder writing to sink. fwdMetrics may be nil.
func NewForwarder(sink domain.EventLog, timeout time.Duration, fwdMetrics *metrics.ForwardMetrics) *Forwarder {
	if timeout <= 0 {
		timeout = DefaultForwardTimeout
	}

	f := &Forwarder{
		sink:    sink,
		timeout: timeout,
		metrics: fwdMetrics,
	}
	f.breaker = circuitbreaker.Builder[any]().
		WithFailureThreshold(breakerFailureThreshold).
		WithSuccessThreshold(breakerSuccessThreshold).
		WithDelay(breakerDelay).
		OnStateChanged(f.onStateChanged).
		Build()
	return f
}

// Forward appends the durable log record of event. The append is bounded by
// the forwarder's timeout only; cancelling ctx does not abort it.
// Errors wrap domain.ErrForwardFailed; an open breaker also wraps domain.ErrLogUnavailable.
func (f *Forwarder) Forward(ctx context.Context, event domain.Event) error {
	if !f.breaker.TryAcquirePermit() {
		f.record("breaker_open")
		return fmt.Errorf("%w: %w", domain.ErrForwardFailed, domain.ErrLogUnavailable)
	}

	// Only the timeout bounds the append; caller cancellation is ignored.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
	defer cancel()

	start := time.Now()
	err := f.sink.Append(ctx, domain.LogRecordFor(event))
	if f.metrics != nil {
		f.metrics.Duration.Observe(time.Since(start).Seconds())
	}

	if err != nil {
		f.breaker.RecordError(err)
		if errors.Is(err, context.DeadlineExceeded) {
			f.record("timeout")
			return fmt.Errorf("%w: timed out after %v: %w", domain.ErrForwardFailed, f.timeout, err)
		}
		f.record("error")
		return fmt.Errorf("%w: %w", domain.ErrForwardFailed, err)
	}

	f.breaker.RecordSuccess()
	f.record("success")
	return nil
}

// State returns the breaker state: "closed", "half-open" or "open".
func (f *Forwarder) State() string {
	return f.breaker.State().String()
}

func (f *Forwarder) record(result string) {
	if f.metrics != nil {
		f.metrics.Forwarded.WithLabelValues(result).Inc()
	}
}

func (f *Forwarder) onStateChanged(e circuitbreaker.StateChangedEvent) {
	slog.Warn("Circuit breaker state changed",
		"component", "durable_log",
		"from", e.OldState.String(),
		"to", e.NewState.String(),
	)
	if f.metrics != nil {
		f.metrics.BreakerStateChanges.WithLabelValues(e.NewState.String()).Inc()
		f.metrics.BreakerState.Set(stateToFloat(e.NewState))
	}
}

func stateToFloat(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return -1
	}
}
