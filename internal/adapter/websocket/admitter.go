package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/G-m007/EmoStream/internal/adapter/metrics"
	"github.com/G-m007/EmoStream/internal/broadcast"
	"github.com/G-m007/EmoStream/internal/domain"
	"github.com/G-m007/EmoStream/internal/wire"
)

// EventRouter routes one decoded event to the durable log and the pool.
type EventRouter interface {
	Route(ctx context.Context, event domain.Event) error
}

// Admitter assigns connections to distribution units and feeds their inbound
// frames to the router.
type Admitter struct {
	pool    *broadcast.Pool
	router  EventRouter
	metrics *metrics.WebSocketMetrics

	// beforeAdd, when set, runs between picking a unit and adding to it.
	beforeAdd func(unit *broadcast.Unit)
}

// NewAdmitter creates an admitter over pool. wsMetrics may be nil.
func NewAdmitter(pool *broadcast.Pool, router EventRouter, wsMetrics *metrics.WebSocketMetrics) *Admitter {
	return &Admitter{pool: pool, router: router, metrics: wsMetrics}
}

// Admission is a connection's membership in one unit.
type Admission struct {
	unit    *broadcast.Unit
	conn    domain.Connection
	release sync.Once
}

// UnitID returns the id of the unit holding the connection.
func (a *Admission) UnitID() string { return a.unit.ID() }

// Release removes the connection from its unit. Safe to call more than once.
func (a *Admission) Release() {
	a.release.Do(func() {
		a.unit.Remove(a.conn)
	})
}

// Admit places conn in the first unit with room, growing the pool if allowed.
// A unit that fills up between the check and the add is retried once.
// Returns domain.ErrPoolSaturated when no unit can take the connection.
func (a *Admitter) Admit(conn domain.Connection) (*Admission, error) {
	for range 2 {
		unit, ok := a.pool.FindAvailable()
		if !ok {
			unit, ok = a.pool.Grow()
		}
		if !ok {
			break
		}
		if a.beforeAdd != nil {
			a.beforeAdd(unit)
		}
		if unit.Admit(conn) {
			a.recordAdmission("admitted")
			slog.Debug("Connection admitted", "connection_id", conn.ID(), "unit_id", unit.ID())
			return &Admission{unit: unit, conn: conn}, nil
		}
	}

	a.recordAdmission("rejected")
	return nil, domain.ErrPoolSaturated
}

// HandleMessage decodes one inbound frame and routes it. Malformed and
// informational frames are dropped; the returned error is for logging only
// and never means the connection should close.
func (a *Admitter) HandleMessage(ctx context.Context, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			a.recordMessage("failed")
			slog.ErrorContext(ctx, "Panic while handling message", "panic", r)
			err = fmt.Errorf("panic while handling message: %v", r)
		}
	}()

	event, err := wire.Decode(data)
	if errors.Is(err, wire.ErrInformational) {
		a.recordMessage("informational")
		slog.DebugContext(ctx, "Client announced itself", "user_id", event.OriginID)
		return nil
	}
	if err != nil {
		a.recordMessage("malformed")
		slog.WarnContext(ctx, "Dropping malformed message", "error", err)
		return err
	}

	err = a.router.Route(ctx, event)
	switch {
	case err == nil:
		a.recordMessage("routed")
	case errors.Is(err, domain.ErrInvalidEvent):
		a.recordMessage("invalid")
	case errors.Is(err, domain.ErrForwardFailed):
		a.recordMessage("unforwarded")
	default:
		a.recordMessage("failed")
		slog.ErrorContext(ctx, "Failed to route message", "error", err)
	}
	return err
}

func (a *Admitter) recordAdmission(result string) {
	if a.metrics != nil {
		a.metrics.Admissions.WithLabelValues(result).Inc()
	}
}

func (a *Admitter) recordMessage(result string) {
	if a.metrics != nil {
		a.metrics.MessagesReceived.WithLabelValues(result).Inc()
	}
}
