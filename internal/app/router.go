package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/G-m007/EmoStream/internal/domain"
	"github.com/G-m007/EmoStream/internal/wire"
)

type broadcaster interface {
	Broadcast(data []byte) int
}

type forwarder interface {
	Forward(ctx context.Context, event domain.Event) error
}

// Router validates events and fans them out to the durable and live paths.
type Router struct {
	pool      broadcaster
	forwarder forwarder
}

func NewRouter(pool broadcaster, forwarder forwarder) *Router {
	return &Router{pool: pool, forwarder: forwarder}
}

// Route validates event, forwards reactions to the durable log and broadcasts
// the event to every admitted connection.
//
// Invalid events are dropped and reported with domain.ErrInvalidEvent.
// A forwarding failure is returned (wrapping domain.ErrForwardFailed) only
// after the broadcast has gone out.
func (r *Router) Route(ctx context.Context, event domain.Event) error {
	if err := Validate(event); err != nil {
		slog.WarnContext(ctx, "Dropping invalid event", "kind", event.Kind, "origin_id", event.OriginID, "error", err)
		return err
	}

	data, err := wire.Encode(event)
	if err != nil {
		return fmt.Errorf("route event: %w", err)
	}

	// Aggregate updates are durable upstream already.
	var forwarded chan error
	if event.Kind == domain.KindReaction {
		forwarded = make(chan error, 1)
		go func() { forwarded <- r.forwarder.Forward(ctx, event) }()
	}

	delivered := r.pool.Broadcast(data)
	slog.DebugContext(ctx, "Event broadcast", "kind", event.Kind, "origin_id", event.OriginID, "delivered", delivered)

	if forwarded == nil {
		return nil
	}
	if err := <-forwarded; err != nil {
		slog.WarnContext(ctx, "Durable forward failed, event was broadcast", "origin_id", event.OriginID, "error", err)
		return err
	}
	return nil
}

// Validate checks the fields each event kind requires.
func Validate(event domain.Event) error {
	switch event.Kind {
	case domain.KindReaction:
		if strings.TrimSpace(event.Payload) == "" {
			return fmt.Errorf("%w: reaction without payload", domain.ErrInvalidEvent)
		}
	case domain.KindAggregateUpdate:
		if !event.HasStats() {
			return fmt.Errorf("%w: aggregate update without stats", domain.ErrInvalidEvent)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidEvent, event.Kind)
	}
	return nil
}
