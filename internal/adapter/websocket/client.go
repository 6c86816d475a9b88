package websocket

import (
	"sync"
	"time"

	"github.com/G-m007/EmoStream/internal/adapter/metrics"
	"github.com/G-m007/EmoStream/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	writeDeadline     = 5 * time.Second
	pingInterval      = 30 * time.Second
	pongDeadline      = 60 * time.Second
	idleTimeout       = 5 * time.Minute
	idleWarningTime   = 4 * time.Minute // Warn 1 minute before disconnect
	messageBufferSize = 16
	maxMessageSize    = 4096
)

var idleWarning = []byte(`{"warning":"Connection idle. Will disconnect if no activity within 1 minute."}`)

// client is the domain.Connection of one WebSocket viewer. Outbound frames go
// through a buffered channel drained by a single writer goroutine, which is
// the only goroutine writing data frames to the socket.
type client struct {
	id      string
	conn    *websocket.Conn
	clock   clockwork.Clock
	metrics *metrics.WebSocketMetrics

	sendChannel chan []byte
	doneChannel chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
	closeCode   int
	closeReason string

	activityMutex sync.Mutex
	lastActivity  time.Time
	warningSent   bool
}

func newClient(id string, conn *websocket.Conn, clock clockwork.Clock, wsMetrics *metrics.WebSocketMetrics) *client {
	c := &client{
		id:           id,
		conn:         conn,
		clock:        clock,
		metrics:      wsMetrics,
		sendChannel:  make(chan []byte, messageBufferSize),
		doneChannel:  make(chan struct{}),
		lastActivity: clock.Now(),
	}
	conn.SetReadLimit(maxMessageSize)
	c.configurePongHandler()
	c.wg.Add(1)
	go c.run()
	return c
}

func (c *client) ID() string { return c.id }

// Send enqueues data without blocking. A full buffer evicts the client.
func (c *client) Send(data []byte) error {
	select {
	case <-c.doneChannel:
		return domain.ErrConnectionClosed
	default:
	}

	select {
	case c.sendChannel <- data:
		return nil
	default:
		if c.metrics != nil {
			c.metrics.SlowClientsEvicted.Inc()
		}
		c.shutdown(websocket.ClosePolicyViolation, "slow consumer")
		return domain.ErrSlowConsumer
	}
}

// Close sends a normal close frame and waits for the writer to exit.
func (c *client) Close() error {
	c.closeWith(websocket.CloseNormalClosure, "")
	return nil
}

func (c *client) Done() <-chan struct{} { return c.doneChannel }

// closeWith shuts the client down with the given close frame and waits for the writer to exit.
func (c *client) closeWith(code int, reason string) {
	c.shutdown(code, reason)
	c.wg.Wait()
}

// shutdown signals the writer to send a close frame and release the socket.
// The first caller decides the close code.
func (c *client) shutdown(code int, reason string) {
	c.stopOnce.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.doneChannel)
	})
}

func (c *client) run() {
	ticker := c.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.wg.Done()
	defer func() { _ = c.conn.Close() }()

	for {
		select {
		case msg := <-c.sendChannel:
			start := c.clock.Now()
			c.updateWriteDeadline()
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.shutdown(websocket.CloseAbnormalClosure, "")
				return
			}
			if c.metrics != nil {
				c.metrics.SendDuration.Observe(c.clock.Since(start).Seconds())
			}
		case <-ticker.Chan():
			if c.checkIdleTimeout() {
				c.shutdown(websocket.CloseGoingAway, "idle timeout")
				c.writeClose()
				return
			}

			c.updateWriteDeadline()
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if c.metrics != nil {
					c.metrics.PingFailures.Inc()
				}
				c.shutdown(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-c.doneChannel:
			c.writeClose()
			return
		}
	}
}

// writeClose writes the close frame chosen by the first shutdown caller.
// Only called from the writer goroutine.
func (c *client) writeClose() {
	if c.closeCode == websocket.CloseAbnormalClosure {
		return
	}
	msg := websocket.FormatCloseMessage(c.closeCode, c.closeReason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, c.clock.Now().Add(writeDeadline))
}

func (c *client) configurePongHandler() {
	c.updateReadDeadline()
	c.conn.SetPongHandler(func(string) error {
		c.recordActivity()
		return nil
	})
}

func (c *client) updateWriteDeadline() {
	_ = c.conn.SetWriteDeadline(c.clock.Now().Add(writeDeadline))
}

func (c *client) updateReadDeadline() {
	_ = c.conn.SetReadDeadline(c.clock.Now().Add(pongDeadline))
}

// recordActivity marks the client alive and extends the read deadline.
// Called from the reader goroutine only.
func (c *client) recordActivity() {
	c.updateReadDeadline()

	c.activityMutex.Lock()
	defer c.activityMutex.Unlock()
	c.lastActivity = c.clock.Now()
	c.warningSent = false
}

// checkIdleTimeout sends a one-time warning near the idle limit and reports
// whether the client has been idle long enough to be disconnected.
func (c *client) checkIdleTimeout() bool {
	c.activityMutex.Lock()
	idleDuration := c.clock.Since(c.lastActivity)
	warningSent := c.warningSent
	c.activityMutex.Unlock()

	if idleDuration >= idleTimeout {
		if c.metrics != nil {
			c.metrics.IdleDisconnects.Inc()
		}
		return true
	}

	if !warningSent && idleDuration >= idleWarningTime {
		c.updateWriteDeadline()
		if err := c.conn.WriteMessage(websocket.TextMessage, idleWarning); err == nil {
			c.activityMutex.Lock()
			c.warningSent = true
			c.activityMutex.Unlock()
		}
	}

	return false
}
