package engine

import (
	"sync"

	"github.com/udisondev/zonekit/internal/geo"
)

// PositionSource resolves current agent positions. It is called every
// tick for every tracked agent and must answer at low, bounded cost.
// A false return means "position unavailable" and is not an error:
// the agent is skipped for the tick.
type PositionSource interface {
	Position(agentID string) (geo.Point, bool)
}

// MemSource is a concurrency-safe in-memory PositionSource. The
// server feeds it from its ingest endpoint; tests script it directly.
type MemSource struct {
	mu        sync.RWMutex
	positions map[string]geo.Point
}

// NewMemSource creates an empty in-memory position source.
func NewMemSource() *MemSource {
	return &MemSource{positions: make(map[string]geo.Point)}
}

// Set records the agent's current position.
func (s *MemSource) Set(agentID string, x, y, z float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[agentID] = geo.Point{X: x, Y: y, Z: z}
}

// Delete drops the agent's position; subsequent lookups report
// "unavailable".
func (s *MemSource) Delete(agentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.positions, agentID)
}

// Position implements PositionSource.
func (s *MemSource) Position(agentID string) (geo.Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[agentID]
	return p, ok
}

// Len returns the number of known agent positions.
func (s *MemSource) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.positions)
}
