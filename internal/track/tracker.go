// Package track keeps per-agent last-known positions and movement
// deltas so the engine can skip re-evaluating agents that barely
// moved.
package track

import (
	"time"

	"github.com/udisondev/zonekit/internal/geo"
)

// Movement is the result of a position sample.
type Movement struct {
	// Moved is true when the sample travelled beyond the jitter
	// threshold. The first sample for an agent always reports true.
	Moved bool
	// Distance is the 3D euclidean distance from the previous sample.
	Distance float64
	// Velocity is Distance divided by the elapsed seconds since the
	// previous sample; zero for the first sample.
	Velocity float64
}

// Tracker owns the per-agent position records. Not internally
// synchronized — owned by the single-writer manager.
type Tracker struct {
	jitter  float64
	records map[string]*record
}

type record struct {
	pos      geo.Point
	at       time.Time
	velocity float64
}

// New creates a tracker. jitter is the sub-meter distance below which
// a sample is not considered movement.
func New(jitter float64) *Tracker {
	if jitter < 0 {
		jitter = 0
	}
	return &Tracker{
		jitter:  jitter,
		records: make(map[string]*record),
	}
}

// Update feeds a position sample for the agent at the given time and
// returns the movement delta. A record is created on the first call
// for an id.
func (t *Tracker) Update(agentID string, x, y, z float64, now time.Time) Movement {
	pos := geo.Point{X: x, Y: y, Z: z}

	rec, ok := t.records[agentID]
	if !ok {
		t.records[agentID] = &record{pos: pos, at: now}
		return Movement{Moved: true}
	}

	dist := geo.Dist3D(rec.pos, pos)
	velocity := 0.0
	if elapsed := now.Sub(rec.at).Seconds(); elapsed > 0 {
		velocity = dist / elapsed
	}

	rec.pos = pos
	rec.at = now
	rec.velocity = velocity

	return Movement{
		Moved:    dist > t.jitter,
		Distance: dist,
		Velocity: velocity,
	}
}

// Last returns the last sampled position for the agent.
func (t *Tracker) Last(agentID string) (geo.Point, bool) {
	rec, ok := t.records[agentID]
	if !ok {
		return geo.Point{}, false
	}
	return rec.pos, true
}

// Velocity returns the last computed velocity for the agent.
func (t *Tracker) Velocity(agentID string) float64 {
	if rec, ok := t.records[agentID]; ok {
		return rec.velocity
	}
	return 0
}

// Remove drops the agent's tracking state; the next Update for the id
// behaves as a first observation.
func (t *Tracker) Remove(agentID string) bool {
	_, ok := t.records[agentID]
	delete(t.records, agentID)
	return ok
}

// Clear drops all tracking state.
func (t *Tracker) Clear() {
	t.records = make(map[string]*record)
}

// Len returns the number of tracked agents.
func (t *Tracker) Len() int { return len(t.records) }
