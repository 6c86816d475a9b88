package broadcast

import (
	"sync"

	"github.com/G-m007/EmoStream/internal/domain"
)

// fakeConn records every frame it is sent. A closed fakeConn rejects sends.
type fakeConn struct {
	id string

	mu       sync.Mutex
	received [][]byte
	closed   bool
	done     chan struct{}
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id, done: make(chan struct{})}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrConnectionClosed
	}
	c.received = append(c.received, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

func (c *fakeConn) Done() <-chan struct{} { return c.done }

func (c *fakeConn) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.received))
	for _, msg := range c.received {
		out = append(out, string(msg))
	}
	return out
}
