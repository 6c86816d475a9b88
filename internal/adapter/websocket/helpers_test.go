package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/G-m007/EmoStream/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// newTestConnPair returns the server and client ends of a live WebSocket.
func newTestConnPair(t *testing.T) (*websocket.Conn, *websocket.Conn) {
	t.Helper()

	serverConn := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConn <- conn
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	server := <-serverConn
	t.Cleanup(func() { _ = server.Close() })
	return server, client
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func readCloseCode(t *testing.T, conn *websocket.Conn) int {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var closeErr *websocket.CloseError
		require.True(t, errors.As(err, &closeErr), "expected close frame, got %v", err)
		return closeErr.Code
	}
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

// recordingRouter records routed events, failing with err when set.
type recordingRouter struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
	panics bool
}

func (r *recordingRouter) Route(_ context.Context, event domain.Event) error {
	if r.panics {
		panic("router exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingRouter) routed() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events...)
}

// fakeEventLog collects appended records.
type fakeEventLog struct {
	mu      sync.Mutex
	records []domain.LogRecord
	err     error
}

func (f *fakeEventLog) Append(_ context.Context, record domain.LogRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
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
