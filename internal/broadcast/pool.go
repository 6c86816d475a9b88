package broadcast

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/G-m007/EmoStream/internal/adapter/metrics"
)

// Pool owns an ordered set of distribution units. Insertion order is assignment priority.
type Pool struct {
	capacity int
	maxUnits int
	metrics  *metrics.PoolMetrics

	mu     sync.RWMutex
	units  []*Unit
	nextID int
}

// UnitStats describes one unit for observability.
type UnitStats struct {
	ID          string `json:"id"`
	Connections int    `json:"connections"`
	Capacity    int    `json:"capacity"`
}

// PoolStats is a point-in-time aggregation over all units.
type PoolStats struct {
	TotalSubscribers int         `json:"totalSubscribers"`
	TotalConnections int         `json:"totalConnections"`
	TotalCapacity    int         `json:"totalCapacity"`
	SubscriberStats  []UnitStats `json:"subscriberStats"`
}

// NewPool creates a pool with initialUnits units of the given capacity.
// maxUnits bounds Grow; a value below initialUnits makes the pool fixed-size.
// poolMetrics may be nil.
func NewPool(initialUnits, maxUnits, capacity int, poolMetrics *metrics.PoolMetrics) *Pool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if maxUnits < initialUnits {
		maxUnits = initialUnits
	}

	p := &Pool{
		capacity: capacity,
		maxUnits: maxUnits,
		metrics:  poolMetrics,
	}
	for range initialUnits {
		p.AddUnit(p.newUnit())
	}
	return p
}

func (p *Pool) newUnit() *Unit {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.newUnitLocked()
}

// newUnitLocked names units subscriber-1, subscriber-2, ... in creation order.
// Must be called with mu held.
func (p *Pool) newUnitLocked() *Unit {
	p.nextID++
	unit := NewUnit(fmt.Sprintf("subscriber-%d", p.nextID), p.capacity)
	unit.metrics = p.metrics
	return unit
}

// AddUnit appends unit at the lowest priority. unit must not be shared yet.
func (p *Pool) AddUnit(unit *Unit) {
	unit.metrics = p.metrics

	p.mu.Lock()
	p.units = append(p.units, unit)
	total := len(p.units)
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.Units.Set(float64(total))
		p.metrics.ConnectedClients.Add(float64(unit.Size()))
	}
	slog.Info("Added subscriber", "unit_id", unit.ID(), "total_subscribers", total)
}

// RemoveUnit detaches the unit with the given id. Its connections are no longer
// reachable through the pool and stop counting as connected clients; closing
// them is up to the caller.
func (p *Pool) RemoveUnit(id string) (*Unit, bool) {
	p.mu.Lock()
	var removed *Unit
	for i, unit := range p.units {
		if unit.ID() == id {
			removed = unit
			p.units = append(p.units[:i:i], p.units[i+1:]...)
			break
		}
	}
	total := len(p.units)
	p.mu.Unlock()

	if removed == nil {
		return nil, false
	}

	members := removed.detach()
	if p.metrics != nil {
		p.metrics.Units.Set(float64(total))
		p.metrics.ConnectedClients.Sub(float64(members))
	}
	slog.Info("Removed subscriber", "unit_id", id, "total_subscribers", total)
	return removed, true
}

// Grow appends a fresh unit unless the pool already holds maxUnits.
func (p *Pool) Grow() (*Unit, bool) {
	p.mu.Lock()
	if len(p.units) >= p.maxUnits {
		p.mu.Unlock()
		return nil, false
	}
	unit := p.newUnitLocked()
	p.units = append(p.units, unit)
	total := len(p.units)
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.Units.Set(float64(total))
	}
	slog.Info("Pool grown", "unit_id", unit.ID(), "total_subscribers", total)
	return unit, true
}

// FindAvailable returns the first unit, by priority, that can accept a connection.
func (p *Pool) FindAvailable() (*Unit, bool) {
	for _, unit := range p.Units() {
		if unit.CanAccept() {
			return unit, true
		}
	}
	return nil, false
}

// Broadcast hands data to every unit. Returns the number of connections reached.
func (p *Pool) Broadcast(data []byte) int {
	delivered := 0
	for _, unit := range p.Units() {
		delivered += unit.Broadcast(data)
	}

	if p.metrics != nil {
		p.metrics.Broadcasts.Inc()
	}
	return delivered
}

// Units returns the current units in priority order.
func (p *Pool) Units() []*Unit {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*Unit(nil), p.units...)
}

// Saturated reports whether no unit can accept and the pool cannot grow.
func (p *Pool) Saturated() bool {
	if _, ok := p.FindAvailable(); ok {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.units) >= p.maxUnits
}

// Stats aggregates live connection counts per unit.
func (p *Pool) Stats() PoolStats {
	units := p.Units()
	stats := PoolStats{
		TotalSubscribers: len(units),
		SubscriberStats:  make([]UnitStats, 0, len(units)),
	}
	for _, unit := range units {
		size := unit.Size()
		stats.TotalConnections += size
		stats.TotalCapacity += unit.Capacity()
		stats.SubscriberStats = append(stats.SubscriberStats, UnitStats{
			ID:          unit.ID(),
			Connections: size,
			Capacity:    unit.Capacity(),
		})
	}
	return stats
}
