package engine

import (
	"sync/atomic"
	"time"
)

// Stats holds the engine instrumentation counters. An explicit struct
// with atomic fields so state lifetime and mutation stay visible and
// testable; safe to read while the tick loop runs.
type Stats struct {
	queries     atomic.Int64
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
	checks      atomic.Int64
	skipped     atomic.Int64
	deferred    atomic.Int64
	enters      atomic.Int64
	exits       atomic.Int64
	insides     atomic.Int64
	ticks       atomic.Int64
	lastTickNs  atomic.Int64
}

// Snapshot is a point-in-time copy of the counters with derived rates.
type Snapshot struct {
	Queries          int64         `json:"queries"`
	CacheHits        int64         `json:"cache_hits"`
	CacheMisses      int64         `json:"cache_misses"`
	CacheHitRate     float64       `json:"cache_hit_rate"`
	Checks           int64         `json:"checks"`
	Skipped          int64         `json:"skipped"`
	SkipRate         float64       `json:"skip_rate"`
	Deferred         int64         `json:"deferred"`
	Enters           int64         `json:"enters"`
	Exits            int64         `json:"exits"`
	Insides          int64         `json:"insides"`
	Ticks            int64         `json:"ticks"`
	LastTickDuration time.Duration `json:"last_tick_duration_ns"`

	// Filled in by the manager.
	IndexSize     int `json:"index_size"`
	CacheSize     int `json:"cache_size"`
	TrackedAgents int `json:"tracked_agents"`
	Zones         int `json:"zones"`
}

// Queries returns the total number of index queries.
func (s *Stats) Queries() int64 { return s.queries.Load() }

// Skipped returns how many agent evaluations the delta threshold skipped.
func (s *Stats) Skipped() int64 { return s.skipped.Load() }

// CacheHits returns the total query cache hits.
func (s *Stats) CacheHits() int64 { return s.cacheHits.Load() }

// CacheMisses returns the total query cache misses.
func (s *Stats) CacheMisses() int64 { return s.cacheMisses.Load() }

func (s *Stats) snapshot() Snapshot {
	snap := Snapshot{
		Queries:          s.queries.Load(),
		CacheHits:        s.cacheHits.Load(),
		CacheMisses:      s.cacheMisses.Load(),
		Checks:           s.checks.Load(),
		Skipped:          s.skipped.Load(),
		Deferred:         s.deferred.Load(),
		Enters:           s.enters.Load(),
		Exits:            s.exits.Load(),
		Insides:          s.insides.Load(),
		Ticks:            s.ticks.Load(),
		LastTickDuration: time.Duration(s.lastTickNs.Load()),
	}
	if lookups := snap.CacheHits + snap.CacheMisses; lookups > 0 {
		snap.CacheHitRate = float64(snap.CacheHits) / float64(lookups)
	}
	if evaluated := snap.Checks + snap.Skipped; evaluated > 0 {
		snap.SkipRate = float64(snap.Skipped) / float64(evaluated)
	}
	return snap
}
