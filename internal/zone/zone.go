package zone

import (
	"time"

	"github.com/udisondev/zonekit/internal/geo"
)

// EventSink receives occupancy transitions for a zone. Callbacks are
// arbitrary user code; the caller is responsible for isolating
// panics and must not assume they are side-effect free.
type EventSink interface {
	OnEnter(agentID string, z *Zone)
	OnInside(agentID string, z *Zone)
	OnExit(agentID string, z *Zone)
}

// Zone is a named region of space with a containment test, priority,
// tags, an exclusion list and per-agent occupancy state. Zones are
// owned exclusively by the engine manager; external callers hold only
// zone ids.
type Zone struct {
	id      int32
	name    string
	shape   Shape
	minZ    float64
	maxZ    float64
	enabled bool
	dynamic bool

	priority int
	tags     map[string]struct{}
	excludes map[int32]struct{}

	// checkInterval throttles repeated occupancy checks per agent.
	// Zero means every evaluation runs the state machine.
	checkInterval time.Duration

	// inside holds agents the state machine currently considers
	// occupants; lastCheck holds the per-agent throttle timestamp.
	inside    map[string]struct{}
	lastCheck map[string]time.Time

	bbox      geo.BBox
	bboxDirty bool
}

// New builds a zone around a validated shape. minZ/maxZ clamp the
// height range; use -/+Inf (or DefaultMinZ/DefaultMaxZ) to disable.
func New(id int32, name string, shape Shape, minZ, maxZ float64) *Zone {
	return &Zone{
		id:        id,
		name:      name,
		shape:     shape,
		minZ:      minZ,
		maxZ:      maxZ,
		enabled:   true,
		tags:      make(map[string]struct{}),
		excludes:  make(map[int32]struct{}),
		inside:    make(map[string]struct{}),
		lastCheck: make(map[string]time.Time),
		bboxDirty: true,
	}
}

// ID returns the zone identifier.
func (z *Zone) ID() int32 { return z.id }

// Name returns the zone display name.
func (z *Zone) Name() string { return z.name }

// Kind returns the shape kind string of the zone geometry.
func (z *Zone) Kind() string { return z.shape.Kind() }

// Shape returns the zone geometry.
func (z *Zone) Shape() Shape { return z.shape }

// SetShape replaces the zone geometry and invalidates the cached box.
func (z *Zone) SetShape(s Shape) {
	z.shape = s
	z.markDirty()
}

// MinZ returns the lower height clamp.
func (z *Zone) MinZ() float64 { return z.minZ }

// MaxZ returns the upper height clamp.
func (z *Zone) MaxZ() float64 { return z.maxZ }

// SetHeightRange updates the height clamp.
func (z *Zone) SetHeightRange(minZ, maxZ float64) {
	z.minZ = minZ
	z.maxZ = maxZ
}

// Enabled reports whether the zone participates in evaluation.
func (z *Zone) Enabled() bool { return z.enabled }

// SetEnabled toggles the zone on or off. A disabled zone short-circuits
// CheckOccupant to a no-op.
func (z *Zone) SetEnabled(v bool) { z.enabled = v }

// Dynamic reports whether the zone lives in the dynamic index.
func (z *Zone) Dynamic() bool { return z.dynamic }

// SetDynamic marks the zone as frequently-changing. Only consulted at
// index insertion time by the manager.
func (z *Zone) SetDynamic(v bool) { z.dynamic = v }

// Priority returns the zone priority; higher is checked first.
func (z *Zone) Priority() int { return z.priority }

// SetPriority updates the zone priority. Takes effect next tick.
func (z *Zone) SetPriority(p int) { z.priority = p }

// CheckInterval returns the per-agent recheck throttle.
func (z *Zone) CheckInterval() time.Duration { return z.checkInterval }

// SetCheckInterval updates the per-agent recheck throttle.
func (z *Zone) SetCheckInterval(d time.Duration) { z.checkInterval = d }

// AddTag adds a tag to the zone.
func (z *Zone) AddTag(tag string) { z.tags[tag] = struct{}{} }

// RemoveTag removes a tag from the zone.
func (z *Zone) RemoveTag(tag string) { delete(z.tags, tag) }

// HasTag reports whether the zone carries the tag.
func (z *Zone) HasTag(tag string) bool {
	_, ok := z.tags[tag]
	return ok
}

// Tags returns the zone tags as an unordered slice copy.
func (z *Zone) Tags() []string {
	out := make([]string, 0, len(z.tags))
	for t := range z.tags {
		out = append(out, t)
	}
	return out
}

// AddExclusion suppresses this zone's events while the agent is also
// inside the given zone. Stored as a plain id, resolved by the manager
// at evaluation time.
func (z *Zone) AddExclusion(zoneID int32) { z.excludes[zoneID] = struct{}{} }

// RemoveExclusion removes an exclusion rule.
func (z *Zone) RemoveExclusion(zoneID int32) { delete(z.excludes, zoneID) }

// ExcludedBy reports whether any id in insideSet suppresses this zone.
func (z *Zone) ExcludedBy(insideSet map[int32]struct{}) bool {
	if len(z.excludes) == 0 {
		return false
	}
	for id := range z.excludes {
		if _, ok := insideSet[id]; ok {
			return true
		}
	}
	return false
}

// Excludes returns the exclusion list as a slice copy.
func (z *Zone) Excludes() []int32 {
	out := make([]int32, 0, len(z.excludes))
	for id := range z.excludes {
		out = append(out, id)
	}
	return out
}

// Contains reports whether the point lies inside the zone. The height
// range is rejected first since it is the cheapest test.
func (z *Zone) Contains(x, y, zc float64) bool {
	if zc < z.minZ || zc > z.maxZ {
		return false
	}
	return z.shape.Contains(x, y, zc)
}

// BBox returns the cached bounding box, recomputing it only after the
// geometry was mutated. The box always fully encloses the shape's
// containment region.
func (z *Zone) BBox() geo.BBox {
	if z.bboxDirty {
		z.bbox = z.shape.BBox()
		z.bboxDirty = false
	}
	return z.bbox
}

// markDirty invalidates the cached bounding box. Called by every
// setter that changes geometry.
func (z *Zone) markDirty() { z.bboxDirty = true }

// CheckOccupant drives the per-(zone,agent) occupancy state machine:
//
//	Absent  --inside=true-->  Present  fires OnEnter
//	Present --inside=true-->  Present  fires OnInside
//	Present --inside=false--> Absent   fires OnExit
//	Absent  --inside=false--> Absent   no-op
//
// The per-zone recheck throttle skips the whole check when the agent
// was evaluated less than CheckInterval ago. A disabled zone is a
// no-op. Events go to sink, which may be nil.
func (z *Zone) CheckOccupant(agentID string, isInside bool, now time.Time, sink EventSink) {
	if !z.enabled {
		return
	}
	if z.checkInterval > 0 {
		if last, ok := z.lastCheck[agentID]; ok && now.Sub(last) < z.checkInterval {
			return
		}
	}
	z.lastCheck[agentID] = now

	_, present := z.inside[agentID]
	switch {
	case isInside && !present:
		z.inside[agentID] = struct{}{}
		if sink != nil {
			sink.OnEnter(agentID, z)
		}
	case isInside && present:
		if sink != nil {
			sink.OnInside(agentID, z)
		}
	case !isInside && present:
		delete(z.inside, agentID)
		delete(z.lastCheck, agentID)
		if sink != nil {
			sink.OnExit(agentID, z)
		}
	default:
		delete(z.lastCheck, agentID)
	}
}

// ForceRemove transitions the agent to Absent without firing OnExit.
// Used on agent eviction and manager shutdown ("silent removal").
func (z *Zone) ForceRemove(agentID string) bool {
	_, present := z.inside[agentID]
	delete(z.inside, agentID)
	delete(z.lastCheck, agentID)
	return present
}

// IsOccupant reports whether the agent is currently considered inside.
func (z *Zone) IsOccupant(agentID string) bool {
	_, ok := z.inside[agentID]
	return ok
}

// Occupants returns the ids of agents currently inside the zone.
func (z *Zone) Occupants() []string {
	out := make([]string, 0, len(z.inside))
	for id := range z.inside {
		out = append(out, id)
	}
	return out
}

// OccupantCount returns the number of agents currently inside.
func (z *Zone) OccupantCount() int { return len(z.inside) }
