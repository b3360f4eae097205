package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/udisondev/zonekit/internal/spatial"
	"github.com/udisondev/zonekit/internal/zone"
)

// Create validates the definition, builds the zone and indexes it.
// A zero def.ID is allocated from the manager's arena. Fails with a
// configuration error for an unknown type or invalid geometry; no
// zone is created on failure.
func (m *Manager) Create(def zone.Definition) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(def)
}

func (m *Manager) createLocked(def zone.Definition) (int32, error) {
	if def.ID == 0 {
		def.ID = m.nextID
	}
	if _, ok := m.zones[def.ID]; ok {
		return 0, fmt.Errorf("zone id %d already registered", def.ID)
	}

	z, err := zone.FromDefinition(def)
	if err != nil {
		return 0, fmt.Errorf("creating zone: %w", err)
	}

	m.zones[def.ID] = z
	if def.ID >= m.nextID {
		m.nextID = def.ID + 1
	}
	m.indexFor(z).Insert(z)
	// Новая зона может попадать в уже закэшированные запросы.
	m.cache.Purge()

	slog.Debug("zone created",
		"id", z.ID(), "name", z.Name(), "type", z.Kind(), "dynamic", z.Dynamic())
	return def.ID, nil
}

// Remove deletes the zone from registry, index and cache. Removal is
// idempotent: false for an unknown id, never an error.
func (m *Manager) Remove(zoneID int32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	z, ok := m.zones[zoneID]
	if !ok {
		return false
	}
	delete(m.zones, zoneID)
	delete(m.zoneSinks, zoneID)
	for _, set := range m.occupied {
		delete(set, zoneID)
	}
	m.indexFor(z).Remove(z)
	m.cache.InvalidateZone(zoneID)
	slog.Debug("zone removed", "id", zoneID, "name", z.Name())
	return true
}

// indexFor returns the partition the zone belongs to: dynamic zones
// are indexed apart from static ones to limit index churn.
func (m *Manager) indexFor(z *zone.Zone) spatial.Index {
	if z.Dynamic() {
		return m.dynamic
	}
	return m.static
}

// SetShape replaces a zone's geometry and re-indexes it. Cached query
// results referencing the zone are invalidated.
func (m *Manager) SetShape(zoneID int32, s zone.Shape) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	z, ok := m.zones[zoneID]
	if !ok {
		return false
	}
	idx := m.indexFor(z)
	idx.Remove(z)
	z.SetShape(s)
	idx.Insert(z)
	m.cache.InvalidateZone(zoneID)
	return true
}

// SetPriority updates a zone's priority; takes effect next tick.
func (m *Manager) SetPriority(zoneID int32, priority int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	z, ok := m.zones[zoneID]
	if !ok {
		return false
	}
	z.SetPriority(priority)
	return true
}

// SetEnabled toggles a zone on or off.
func (m *Manager) SetEnabled(zoneID int32, enabled bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	z, ok := m.zones[zoneID]
	if !ok {
		return false
	}
	z.SetEnabled(enabled)
	return true
}

// AddExclusion suppresses zoneID's events while an agent is also
// inside excludedByID.
func (m *Manager) AddExclusion(zoneID, excludedByID int32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	z, ok := m.zones[zoneID]
	if !ok {
		return false
	}
	z.AddExclusion(excludedByID)
	return true
}

// RemoveExclusion removes an exclusion rule from zoneID.
func (m *Manager) RemoveExclusion(zoneID, excludedByID int32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	z, ok := m.zones[zoneID]
	if !ok {
		return false
	}
	z.RemoveExclusion(excludedByID)
	return true
}

// IsOccupant reports whether the agent currently occupies the zone.
func (m *Manager) IsOccupant(agentID string, zoneID int32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	z, ok := m.zones[zoneID]
	if !ok {
		return false
	}
	return z.IsOccupant(agentID)
}

// Query returns ids of candidate zones whose bounding box intersects
// the range box around (x,y). Cache-backed; results are a conservative
// superset of actual containment.
func (m *Manager) Query(x, y, rng float64) []int32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	zones := m.candidatesLocked("", x, y, rng)
	out := make([]int32, len(zones))
	for i, z := range zones {
		out[i] = z.ID()
	}
	return out
}

// ZonesAt returns ids of enabled zones that actually contain the
// point, highest priority first.
func (m *Manager) ZonesAt(x, y, z float64) []int32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidates := m.candidatesLocked("", x, y, 0)
	var out []*zone.Zone
	for _, zn := range candidates {
		if zn.Enabled() && zn.Contains(x, y, z) {
			out = append(out, zn)
		}
	}
	sortByPriority(out)

	ids := make([]int32, len(out))
	for i, zn := range out {
		ids[i] = zn.ID()
	}
	return ids
}

// QueryByTag returns ids of all zones carrying the tag.
func (m *Manager) QueryByTag(tag string) []int32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []int32
	for id, z := range m.zones {
		if z.HasTag(tag) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Zone returns the definition of a zone, or false for an unknown id.
func (m *Manager) Zone(zoneID int32) (zone.Definition, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	z, ok := m.zones[zoneID]
	if !ok {
		return zone.Definition{}, false
	}
	return z.Definition(), true
}

// ExportAll returns the declarative definitions of every zone,
// ordered by id.
func (m *Manager) ExportAll() []zone.Definition {
	m.mu.Lock()
	defer m.mu.Unlock()

	defs := make([]zone.Definition, 0, len(m.zones))
	for _, z := range m.zones {
		defs = append(defs, z.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs
}

// ImportAll bulk-creates zones from definitions. Stops at the first
// invalid definition, leaving already-imported zones registered.
func (m *Manager) ImportAll(defs []zone.Definition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, def := range defs {
		if _, err := m.createLocked(def); err != nil {
			return fmt.Errorf("importing zone %d: %w", def.ID, err)
		}
	}
	slog.Info("zones imported", "count", len(defs))
	return nil
}

// sortByPriority orders zones highest priority first, stable, with id
// as the final tiebreaker for determinism.
func sortByPriority(zones []*zone.Zone) {
	sort.SliceStable(zones, func(i, j int) bool {
		if zones[i].Priority() != zones[j].Priority() {
			return zones[i].Priority() > zones[j].Priority()
		}
		return zones[i].ID() < zones[j].ID()
	})
}
