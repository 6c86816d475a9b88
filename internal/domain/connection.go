package domain

// Connection is one live transport connection to one viewer.
type Connection interface {
	ID() string
	// Send enqueues data for delivery without blocking.
	// Returns ErrConnectionClosed or ErrSlowConsumer when the connection can no longer receive.
	Send(data []byte) error
	Close() error
	// Done is closed once the connection has shut down.
	Done() <-chan struct{}
}
