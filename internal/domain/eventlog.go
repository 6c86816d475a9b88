package domain

import "context"

// EventLog is the external append-only broker reaction events are recorded on.
type EventLog interface {
	Append(ctx context.Context, record LogRecord) error
	Ping(ctx context.Context) error
	Close() error
}
