// Package engine implements the zone manager: the single owner of all
// zones, spatial indices, query cache and position tracker, and the
// periodic evaluation loop that drives occupancy events.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/udisondev/zonekit/internal/cache"
	"github.com/udisondev/zonekit/internal/geo"
	"github.com/udisondev/zonekit/internal/metrics"
	"github.com/udisondev/zonekit/internal/spatial"
	"github.com/udisondev/zonekit/internal/track"
	"github.com/udisondev/zonekit/internal/zone"
)

// Index kind names accepted by Options.Index.
const (
	IndexRTree    = "rtree"
	IndexGrid     = "grid"
	IndexQuadtree = "quadtree"
)

// Options configures a Manager. Zero values are replaced by the
// defaults documented per field.
type Options struct {
	// TickInterval is the evaluation period (default 100ms).
	TickInterval time.Duration
	// QueryRange is the candidate lookup radius around an agent
	// (default 200 world units).
	QueryRange float64
	// DeltaThreshold is the minimum movement between ticks before an
	// agent is re-evaluated (default 1.0). Coarser than the tracker's
	// jitter threshold.
	DeltaThreshold float64
	// JitterThreshold is the tracker's sub-meter noise floor
	// (default 0.1).
	JitterThreshold float64
	// MaxChecksPerTick caps agent evaluations per tick; the rest are
	// deferred to the next tick (default 0 = unlimited). Iteration
	// order rotates between ticks so no fixed agent starves.
	MaxChecksPerTick int
	// EvictAfterMisses evicts an agent's tracked state after this many
	// consecutive position lookup failures (default 0 = never).
	EvictAfterMisses int

	// CacheCapacity bounds the query cache entry count (default 512).
	CacheCapacity int
	// CacheTTL bounds query cache staleness (default 300ms).
	CacheTTL time.Duration
	// CacheBucketSize quantizes query coordinates (default 16).
	CacheBucketSize float64
	// CacheRangeBucket quantizes query ranges (default 50).
	CacheRangeBucket float64

	// Index selects the spatial index implementation (default rtree).
	Index string
	// RTreeMaxEntries is the R-tree node capacity (default 16).
	RTreeMaxEntries int
	// GridCellSize is the uniform grid cell size (default 256).
	GridCellSize float64
	// QuadtreeBounds are the world bounds for the quadtree index.
	QuadtreeBounds geo.BBox
	// QuadtreeCapacity is items per quadtree node before subdivision
	// (default 8).
	QuadtreeCapacity int
	// QuadtreeMaxDepth bounds quadtree subdivision (default 8).
	QuadtreeMaxDepth int

	// Metrics mirrors counters into the Prometheus collectors.
	Metrics bool
}

func (o *Options) applyDefaults() {
	if o.TickInterval <= 0 {
		o.TickInterval = 100 * time.Millisecond
	}
	if o.QueryRange <= 0 {
		o.QueryRange = 200
	}
	if o.DeltaThreshold <= 0 {
		o.DeltaThreshold = 1.0
	}
	if o.JitterThreshold <= 0 {
		o.JitterThreshold = 0.1
	}
	if o.CacheCapacity <= 0 {
		o.CacheCapacity = 512
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 300 * time.Millisecond
	}
	if o.CacheBucketSize <= 0 {
		o.CacheBucketSize = 16
	}
	if o.CacheRangeBucket <= 0 {
		o.CacheRangeBucket = 50
	}
	if o.Index == "" {
		o.Index = IndexRTree
	}
	if o.RTreeMaxEntries <= 0 {
		o.RTreeMaxEntries = 16
	}
	if o.GridCellSize <= 0 {
		o.GridCellSize = 256
	}
	if o.QuadtreeCapacity <= 0 {
		o.QuadtreeCapacity = 8
	}
	if o.QuadtreeMaxDepth <= 0 {
		o.QuadtreeMaxDepth = 8
	}
	if o.QuadtreeBounds == (geo.BBox{}) {
		o.QuadtreeBounds = geo.BBox{MinX: -1 << 16, MinY: -1 << 16, MaxX: 1 << 16, MaxY: 1 << 16}
	}
}

// Manager owns all mutable membership state. Every mutating operation
// is funneled through its mutex: the tick loop and public operations
// form a single-writer discipline because the R-tree split/condense
// paths are not safe for concurrent mutation.
type Manager struct {
	mu sync.Mutex

	opts Options

	zones  map[int32]*zone.Zone
	nextID int32

	// Zones are partitioned so rarely-changing zones are not churned
	// by frequent dynamic-zone updates.
	static  spatial.Index
	dynamic spatial.Index

	cache   *cache.QueryCache
	tracker *track.Tracker
	source  PositionSource

	agents     []string
	agentSet   map[string]struct{}
	missStreak map[string]int
	rotate     int

	// occupied mirrors per-agent zone membership so an agent that
	// leaves a zone's query range in one jump still gets its exit
	// evaluated (the zone is no longer in the candidate set then).
	occupied map[string]map[int32]struct{}

	sink      zone.EventSink
	zoneSinks map[int32]zone.EventSink

	stats   Stats
	stopped bool
}

// New builds a manager around the given position source.
func New(source PositionSource, opts Options) (*Manager, error) {
	opts.applyDefaults()

	qc, err := cache.New(opts.CacheCapacity, opts.CacheTTL, opts.CacheBucketSize, opts.CacheRangeBucket)
	if err != nil {
		return nil, fmt.Errorf("creating query cache: %w", err)
	}

	static, err := newIndex(opts)
	if err != nil {
		return nil, err
	}
	dynamic, err := newIndex(opts)
	if err != nil {
		return nil, err
	}

	return &Manager{
		opts:       opts,
		zones:      make(map[int32]*zone.Zone),
		nextID:     1,
		static:     static,
		dynamic:    dynamic,
		cache:      qc,
		tracker:    track.New(opts.JitterThreshold),
		source:     source,
		agentSet:   make(map[string]struct{}),
		missStreak: make(map[string]int),
		occupied:   make(map[string]map[int32]struct{}),
		zoneSinks:  make(map[int32]zone.EventSink),
	}, nil
}

func newIndex(opts Options) (spatial.Index, error) {
	switch opts.Index {
	case IndexRTree:
		return spatial.NewRTree(opts.RTreeMaxEntries), nil
	case IndexGrid:
		return spatial.NewGrid(opts.GridCellSize), nil
	case IndexQuadtree:
		return spatial.NewQuadtree(opts.QuadtreeBounds, opts.QuadtreeCapacity, opts.QuadtreeMaxDepth), nil
	default:
		return nil, fmt.Errorf("unknown index kind %q", opts.Index)
	}
}

// SetSink installs the default event sink for all zones.
func (m *Manager) SetSink(sink zone.EventSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink = sink
}

// SetZoneSink installs a per-zone event sink overriding the default.
// A nil sink removes the override.
func (m *Manager) SetZoneSink(zoneID int32, sink zone.EventSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sink == nil {
		delete(m.zoneSinks, zoneID)
		return
	}
	m.zoneSinks[zoneID] = sink
}

// TrackAgent registers an agent for periodic evaluation.
func (m *Manager) TrackAgent(agentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agentSet[agentID]; ok {
		return
	}
	m.agentSet[agentID] = struct{}{}
	m.agents = append(m.agents, agentID)
	slog.Debug("agent tracked", "agent", agentID, "total", len(m.agents))
}

// UntrackAgent drops the agent: tracker state, cache entries produced
// for it, and all its zone occupancy — silently, without firing
// OnExit. Callers needing a guaranteed exit notification must listen
// for their own agent-removal event.
func (m *Manager) UntrackAgent(agentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.untrackLocked(agentID)
}

func (m *Manager) untrackLocked(agentID string) {
	if _, ok := m.agentSet[agentID]; !ok {
		return
	}
	delete(m.agentSet, agentID)
	delete(m.missStreak, agentID)
	delete(m.occupied, agentID)
	for i, id := range m.agents {
		if id == agentID {
			m.agents = append(m.agents[:i], m.agents[i+1:]...)
			break
		}
	}
	m.tracker.Remove(agentID)
	m.cache.InvalidateAgent(agentID)
	for _, z := range m.zones {
		z.ForceRemove(agentID)
	}
	slog.Debug("agent untracked", "agent", agentID, "remaining", len(m.agents))
}

// TrackedAgents returns the ids of currently tracked agents.
func (m *Manager) TrackedAgents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.agents))
	copy(out, m.agents)
	return out
}

// Start runs the periodic evaluation loop until the context is
// cancelled, then stops the manager. Returns the context error.
func (m *Manager) Start(ctx context.Context) error {
	ticker := time.NewTicker(m.opts.TickInterval)
	defer ticker.Stop()

	slog.Info("zone engine started",
		"tick", m.opts.TickInterval,
		"index", m.opts.Index,
		"query_range", m.opts.QueryRange,
	)

	for {
		select {
		case <-ctx.Done():
			slog.Info("zone engine stopping")
			m.Stop()
			return ctx.Err()
		case <-ticker.C:
			m.Tick(time.Now())
		}
	}
}

// Stop halts evaluation and clears index, cache and tracker state.
// All occupancy transitions to Absent without firing OnExit.
// Idempotent; no new ticks run after Stop returns, in-flight
// callbacks are left to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.stopped = true
	for _, z := range m.zones {
		for _, agentID := range z.Occupants() {
			z.ForceRemove(agentID)
		}
	}
	m.static.Clear()
	m.dynamic.Clear()
	m.cache.Purge()
	m.tracker.Clear()
	m.agents = nil
	m.agentSet = make(map[string]struct{})
	m.missStreak = make(map[string]int)
	m.occupied = make(map[string]map[int32]struct{})
	slog.Info("zone engine stopped")
}

// Stats returns a snapshot of the engine counters.
func (m *Manager) Stats() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.stats.snapshot()
	snap.IndexSize = m.static.Size() + m.dynamic.Size()
	snap.CacheSize = m.cache.Len()
	snap.TrackedAgents = len(m.agents)
	snap.Zones = len(m.zones)
	return snap
}

// publishMetrics mirrors gauge values into Prometheus after a tick.
func (m *Manager) publishMetrics() {
	if !m.opts.Metrics {
		return
	}
	metrics.ZonesIndexed.Set(float64(m.static.Size() + m.dynamic.Size()))
	metrics.AgentsTracked.Set(float64(len(m.agents)))
}
