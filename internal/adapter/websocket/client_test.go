package websocket

import (
	"testing"
	"time"

	"github.com/G-m007/EmoStream/internal/adapter/metrics"
	"github.com/G-m007/EmoStream/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newIdleClient builds a client whose writer goroutine is not running, so
// tests can drive the idle checks directly.
func newIdleClient(conn *websocket.Conn, clock clockwork.Clock, wsMetrics *metrics.WebSocketMetrics) *client {
	return &client{
		id:           "idle",
		conn:         conn,
		clock:        clock,
		metrics:      wsMetrics,
		sendChannel:  make(chan []byte, messageBufferSize),
		doneChannel:  make(chan struct{}),
		lastActivity: clock.Now(),
	}
}

func TestClient_WriterDeliversInOrder(t *testing.T) {
	server, peer := newTestConnPair(t)
	c := newClient("c1", server, clockwork.NewRealClock(), nil)
	t.Cleanup(func() { _ = c.Close() })

	for _, frame := range []string{"one", "two", "three"} {
		require.NoError(t, c.Send([]byte(frame)))
	}

	assert.Equal(t, "one", readText(t, peer))
	assert.Equal(t, "two", readText(t, peer))
	assert.Equal(t, "three", readText(t, peer))
}

func TestClient_CloseWithSendsCloseFrame(t *testing.T) {
	server, peer := newTestConnPair(t)
	c := newClient("c1", server, clockwork.NewRealClock(), nil)

	c.closeWith(websocket.CloseTryAgainLater, "server at capacity")

	assert.Equal(t, websocket.CloseTryAgainLater, readCloseCode(t, peer))
	assert.ErrorIs(t, c.Send([]byte("late")), domain.ErrConnectionClosed)
	select {
	case <-c.Done():
	default:
		t.Fatal("Done should be closed after closeWith")
	}
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	server, peer := newTestConnPair(t)
	c := newClient("c1", server, clockwork.NewRealClock(), nil)

	c.closeWith(websocket.CloseGoingAway, "server shutting down")
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())

	// The first close code wins.
	assert.Equal(t, websocket.CloseGoingAway, readCloseCode(t, peer))
}

func TestClient_SlowConsumerIsEvicted(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWebSocketMetrics(reg)
	c := newIdleClient(nil, clockwork.NewFakeClock(), m)

	for range messageBufferSize {
		require.NoError(t, c.Send([]byte("frame")))
	}

	err := c.Send([]byte("overflow"))
	require.ErrorIs(t, err, domain.ErrSlowConsumer)
	assert.Equal(t, websocket.ClosePolicyViolation, c.closeCode)
	assert.ErrorIs(t, c.Send([]byte("after")), domain.ErrConnectionClosed)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SlowClientsEvicted), 0)
}

func TestClient_IdleTimeout(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Now())
	server, peer := newTestConnPair(t)
	c := newIdleClient(server, fakeClock, nil)

	assert.False(t, c.checkIdleTimeout())

	fakeClock.Advance(idleWarningTime)
	assert.False(t, c.checkIdleTimeout(), "should not disconnect at warning threshold")
	assert.JSONEq(t, string(idleWarning), readText(t, peer))

	c.activityMutex.Lock()
	warningSent := c.warningSent
	c.activityMutex.Unlock()
	assert.True(t, warningSent)

	fakeClock.Advance(time.Minute + 10*time.Second)
	assert.True(t, c.checkIdleTimeout(), "should disconnect after idle timeout")
}

func TestClient_ActivityResetsIdleTimer(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Now())
	server, _ := newTestConnPair(t)
	c := newIdleClient(server, fakeClock, nil)

	fakeClock.Advance(3 * time.Minute)
	c.recordActivity()
	fakeClock.Advance(3 * time.Minute)
	assert.False(t, c.checkIdleTimeout(), "activity should reset the idle timer")

	fakeClock.Advance(3 * time.Minute)
	assert.True(t, c.checkIdleTimeout(), "client should time out 5 minutes after last activity")
}

func TestClient_IdleDisconnectMetric(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWebSocketMetrics(reg)
	fakeClock := clockwork.NewFakeClockAt(time.Now())
	c := newIdleClient(nil, fakeClock, m)

	fakeClock.Advance(idleTimeout + time.Second)

	assert.True(t, c.checkIdleTimeout())
	assert.InDelta(t, 1, testutil.ToFloat64(m.IdleDisconnects), 0)
}
