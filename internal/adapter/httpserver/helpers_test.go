package httpserver

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/G-m007/EmoStream/internal/broadcast"
	"github.com/G-m007/EmoStream/internal/domain"
	"github.com/G-m007/EmoStream/internal/platform/config"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
)

var testNow = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

type testServerOptions struct {
	router       eventRouter
	pool         poolStats
	ws           websocketServer
	registry     *prometheus.Registry
	healthChecks []HealthCheck
	config       *config.Config
}

func newTestServer(t *testing.T, opts ...func(*testServerOptions)) *Server {
	t.Helper()

	o := &testServerOptions{
		router: &fakeRouter{},
		pool:   broadcast.NewPool(3, 3, 3, nil),
		ws:     &fakeWebSocket{},
		config: &config.Config{Port: "0", CORSOrigins: []string{"*"}, HTTPRate: 100, HTTPBurst: 100},
	}
	for _, opt := range opts {
		opt(o)
	}

	return NewServer(o.config, o.router, o.pool, o.ws, o.registry, clockwork.NewFakeClockAt(testNow), o.healthChecks)
}

func withRouter(r eventRouter) func(*testServerOptions) {
	return func(o *testServerOptions) { o.router = r }
}

func withPool(p poolStats) func(*testServerOptions) {
	return func(o *testServerOptions) { o.pool = p }
}

func withRegistry(reg *prometheus.Registry) func(*testServerOptions) {
	return func(o *testServerOptions) { o.registry = reg }
}

func withHealthChecks(checks ...HealthCheck) func(*testServerOptions) {
	return func(o *testServerOptions) { o.healthChecks = checks }
}

func withConfig(cfg *config.Config) func(*testServerOptions) {
	return func(o *testServerOptions) { o.config = cfg }
}

// fakeRouter records routed events and returns err.
type fakeRouter struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (r *fakeRouter) Route(_ context.Context, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *fakeRouter) routed() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events...)
}

type fakeWebSocket struct {
	mu        sync.Mutex
	clientIPs []string
}

func (f *fakeWebSocket) Serve(w http.ResponseWriter, _ *http.Request, clientIP string) {
	f.mu.Lock()
	f.clientIPs = append(f.clientIPs, clientIP)
	f.mu.Unlock()
	w.WriteHeader(http.StatusSwitchingProtocols)
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

type failingLog struct{ err error }

func (f failingLog) Append(context.Context, domain.LogRecord) error { return f.err }
func (f failingLog) Ping(context.Context) error                     { return f.err }
func (f failingLog) Close() error                                   { return nil }
