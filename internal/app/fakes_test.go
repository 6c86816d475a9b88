package app

import (
	"context"
	"errors"
	"sync"

	"github.com/G-m007/EmoStream/internal/domain"
)

// fakeEventLog records appended records, or fails with err when set.
type fakeEventLog struct {
	mu      sync.Mutex
	records []domain.LogRecord
	err     error
	block   bool
	calls   int
}

func (f *fakeEventLog) Append(ctx context.Context, record domain.LogRecord) error {
	f.mu.Lock()
	f.calls++
	block, err := f.block, f.err
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
	return nil
}

func (f *fakeEventLog) Ping(context.Context) error { return nil }
func (f *fakeEventLog) Close() error               { return nil }

func (f *fakeEventLog) appended() []domain.LogRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.LogRecord(nil), f.records...)
}

func (f *fakeEventLog) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var errBrokerDown = errors.New("broker unreachable")

// recordingPool captures every broadcast frame.
type recordingPool struct {
	mu     sync.Mutex
	frames []string
}

func (p *recordingPool) Broadcast(data []byte) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, string(data))
	return 1
}

func (p *recordingPool) broadcasts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.frames...)
}

// memConn is an in-memory domain.Connection.
type memConn struct {
	id string

	mu     sync.Mutex
	frames []string
	done   chan struct{}
}

func newMemConn(id string) *memConn {
	return &memConn{id: id, done: make(chan struct{})}
}

func (c *memConn) ID() string { return c.id }

func (c *memConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, string(data))
	return nil
}

func (c *memConn) Close() error          { return nil }
func (c *memConn) Done() <-chan struct{} { return c.done }

func (c *memConn) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.frames...)
}
