package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/G-m007/EmoStream/internal/adapter/metrics"
	"github.com/G-m007/EmoStream/internal/platform/correlation"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

// Handler upgrades viewer requests to WebSocket connections, admits them to
// the pool and runs their reader loop.
type Handler struct {
	admitter *Admitter
	limiter  *ConnLimiter
	upgrader websocket.Upgrader
	clock    clockwork.Clock
	metrics  *metrics.WebSocketMetrics

	mu       sync.Mutex
	clients  map[*client]struct{}
	draining bool
	active   sync.WaitGroup
}

// NewHandler creates a handler. limiter, checkOrigin and wsMetrics may be nil.
func NewHandler(admitter *Admitter, limiter *ConnLimiter, checkOrigin func(*http.Request) bool, clock clockwork.Clock, wsMetrics *metrics.WebSocketMetrics) *Handler {
	return &Handler{
		admitter: admitter,
		limiter:  limiter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		clock:   clock,
		metrics: wsMetrics,
		clients: make(map[*client]struct{}),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Serve(w, r, remoteIP(r))
}

// Serve handles one upgrade request from clientIP and blocks until the
// connection is closed.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, clientIP string) {
	if h.limiter != nil {
		if err := h.limiter.Acquire(clientIP); err != nil {
			h.recordAdmission("limited")
			slog.Warn("WebSocket connection limited", "remote_ip", clientIP, "error", err)
			http.Error(w, err.Error(), http.StatusTooManyRequests)
			return
		}
		defer h.limiter.Release(clientIP)
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		slog.Debug("WebSocket upgrade failed", "remote_ip", clientIP, "error", err)
		return
	}

	id := uuid.NewString()
	ctx := correlation.WithID(context.Background(), correlation.NewID())
	c := newClient(id, conn, h.clock, h.metrics)

	if !h.track(c) {
		c.closeWith(websocket.CloseGoingAway, "server shutting down")
		return
	}
	defer h.untrack(c)

	admission, err := h.admitter.Admit(c)
	if err != nil {
		slog.WarnContext(ctx, "Connection rejected", "connection_id", id, "remote_ip", clientIP, "error", err)
		c.closeWith(websocket.CloseTryAgainLater, "server at capacity")
		return
	}
	slog.InfoContext(ctx, "Client connected", "connection_id", id, "unit_id", admission.UnitID(), "remote_ip", clientIP)

	h.readLoop(ctx, c)

	admission.Release()
	_ = c.Close()
	slog.InfoContext(ctx, "Client disconnected", "connection_id", id, "unit_id", admission.UnitID())
}

// readLoop processes inbound frames in arrival order until the connection fails.
func (h *Handler) readLoop(ctx context.Context, c *client) {
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) && !isClosedError(err) {
				slog.DebugContext(ctx, "WebSocket read failed", "connection_id", c.ID(), "error", err)
			}
			return
		}
		c.recordActivity()

		if msgType != websocket.TextMessage {
			continue
		}
		_ = h.admitter.HandleMessage(ctx, data)
	}
}

// Shutdown sends a going-away close frame to every connection and waits for
// their handlers to return or ctx to expire.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.draining = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.closeWith(websocket.CloseGoingAway, "server shutting down")
	}

	done := make(chan struct{})
	go func() {
		h.active.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ActiveConnections returns the number of connections this handler is serving.
func (h *Handler) ActiveConnections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Handler) track(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.draining {
		return false
	}
	h.clients[c] = struct{}{}
	h.active.Add(1)
	return true
}

func (h *Handler) untrack(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	h.active.Done()
}

func (h *Handler) recordAdmission(result string) {
	if h.metrics != nil {
		h.metrics.Admissions.WithLabelValues(result).Inc()
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func isClosedError(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
