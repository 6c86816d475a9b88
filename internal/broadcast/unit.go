package broadcast

import (
	"log/slog"
	"sync"

	"github.com/G-m007/EmoStream/internal/adapter/metrics"
	"github.com/G-m007/EmoStream/internal/domain"
)

// DefaultCapacity is the number of clients a unit holds unless configured otherwise.
const DefaultCapacity = 3

// Unit is a capacity-bounded group of live connections that receive identical broadcasts.
type Unit struct {
	id       string
	capacity int
	metrics  *metrics.PoolMetrics

	mu          sync.RWMutex
	connections map[string]domain.Connection
}

// NewUnit creates an empty unit. A non-positive capacity falls back to DefaultCapacity.
func NewUnit(id string, capacity int) *Unit {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Unit{
		id:          id,
		capacity:    capacity,
		connections: make(map[string]domain.Connection, capacity),
	}
}

func (u *Unit) ID() string    { return u.id }
func (u *Unit) Capacity() int { return u.capacity }

// Size returns the current connection count.
func (u *Unit) Size() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.connections)
}

// CanAccept reports whether the unit is below capacity.
func (u *Unit) CanAccept() bool {
	return u.Size() < u.capacity
}

// Admit adds conn if the unit has spare capacity.
// Returns false with no effect when the unit is full or conn is already a member.
func (u *Unit) Admit(conn domain.Connection) bool {
	u.mu.Lock()
	if len(u.connections) >= u.capacity {
		u.mu.Unlock()
		return false
	}
	if _, exists := u.connections[conn.ID()]; exists {
		u.mu.Unlock()
		return false
	}
	u.connections[conn.ID()] = conn
	total, m := len(u.connections), u.metrics
	u.mu.Unlock()

	if m != nil {
		m.ConnectedClients.Inc()
	}
	slog.Debug("Client admitted", "unit_id", u.id, "client_id", conn.ID(), "total_clients", total)
	return true
}

// Remove drops conn from the unit. Removing an absent connection is a no-op.
// Returns true if conn was a member.
func (u *Unit) Remove(conn domain.Connection) bool {
	u.mu.Lock()
	current, exists := u.connections[conn.ID()]
	if !exists || current != conn {
		u.mu.Unlock()
		return false
	}
	delete(u.connections, conn.ID())
	total, m := len(u.connections), u.metrics
	u.mu.Unlock()

	if m != nil {
		m.ConnectedClients.Dec()
	}
	slog.Debug("Client removed", "unit_id", u.id, "client_id", conn.ID(), "total_clients", total)
	return true
}

// Broadcast sends data to every member. Members whose send fails are dropped;
// a failed member never stops delivery to the rest.
// Returns the number of members the data was handed to.
func (u *Unit) Broadcast(data []byte) int {
	members := u.snapshot()

	delivered := 0
	var failed []domain.Connection
	for _, conn := range members {
		if err := conn.Send(data); err != nil {
			failed = append(failed, conn)
			continue
		}
		delivered++
	}

	for _, conn := range failed {
		if u.Remove(conn) {
			if m := u.poolMetrics(); m != nil {
				m.DroppedConnections.Inc()
			}
		}
	}
	if len(failed) > 0 {
		slog.Debug("Dropped closed clients during broadcast", "unit_id", u.id, "dropped", len(failed))
	}

	return delivered
}

func (u *Unit) poolMetrics() *metrics.PoolMetrics {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.metrics
}

// detach stops the unit reporting to pool metrics and returns its member
// count at that moment.
func (u *Unit) detach() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.metrics = nil
	return len(u.connections)
}

// Connections returns a snapshot of the current members.
func (u *Unit) Connections() []domain.Connection {
	return u.snapshot()
}

func (u *Unit) snapshot() []domain.Connection {
	u.mu.RLock()
	defer u.mu.RUnlock()

	members := make([]domain.Connection, 0, len(u.connections))
	for _, conn := range u.connections {
		members = append(members, conn)
	}
	return members
}
