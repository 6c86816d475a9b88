package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"
)

const limiterTTL = 10 * time.Minute

var (
	ErrConnectRateExceeded = errors.New("connection rate exceeded")
	ErrTooManyConnections  = errors.New("too many connections from this address")
)

// ConnLimiter limits WebSocket upgrades per client IP: a token bucket on the
// connect rate and a cap on concurrent connections. Idle buckets expire.
type ConnLimiter struct {
	limit    rate.Limit
	burst    int
	maxPerIP int

	buckets *ttlcache.Cache[string, *rate.Limiter]

	mu     sync.Mutex
	active map[string]int
}

// NewConnLimiter creates a limiter allowing perSecond upgrades (with burst)
// and at most maxPerIP concurrent connections per IP. Zero disables a check.
func NewConnLimiter(perSecond float64, burst, maxPerIP int) *ConnLimiter {
	return &ConnLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		maxPerIP: maxPerIP,
		buckets: ttlcache.New[string, *rate.Limiter](
			ttlcache.WithTTL[string, *rate.Limiter](limiterTTL),
		),
		active: make(map[string]int),
	}
}

// Start runs the expiry loop until Stop is called.
func (l *ConnLimiter) Start() { l.buckets.Start() }

// Stop ends the expiry loop.
func (l *ConnLimiter) Stop() { l.buckets.Stop() }

// Acquire reserves a connection slot for ip. Every successful Acquire must be
// paired with Release.
func (l *ConnLimiter) Acquire(ip string) error {
	if l.limit > 0 && !l.bucket(ip).Allow() {
		return ErrConnectRateExceeded
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.maxPerIP > 0 && l.active[ip] >= l.maxPerIP {
		return ErrTooManyConnections
	}
	l.active[ip]++
	return nil
}

// Release frees a slot taken by Acquire.
func (l *ConnLimiter) Release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if count := l.active[ip]; count > 0 {
		l.active[ip] = count - 1
		if l.active[ip] == 0 {
			delete(l.active, ip)
		}
	}
}

// Active returns the number of connections currently held by ip.
func (l *ConnLimiter) Active(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active[ip]
}

func (l *ConnLimiter) bucket(ip string) *rate.Limiter {
	item, _ := l.buckets.GetOrSet(ip, rate.NewLimiter(l.limit, l.burst))
	return item.Value()
}
