// Package cache provides a bucketed LRU+TTL memoization layer for
// spatial index queries. The cache is purely an optimization: every
// caller must stay correct when it permanently misses.
package cache

import (
	"fmt"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/udisondev/zonekit/internal/zone"
)

// QueryCache memoizes candidate zone lists per quantized query point
// and range bucket. Capacity is enforced LRU; entries additionally
// expire after the TTL, and an expired entry is never returned as a
// hit. Not internally synchronized — owned by the single-writer
// manager.
type QueryCache struct {
	lru         *lru.Cache[qkey, *qentry]
	ttl         time.Duration
	bucketSize  float64
	rangeBucket float64
}

type qkey struct {
	bx, by, br int32
}

type qentry struct {
	zones    []*zone.Zone
	agentID  string
	storedAt time.Time
}

// New creates a query cache. capacity bounds the entry count;
// ttl bounds staleness (hundreds of milliseconds is typical);
// bucketSize quantizes coordinates, rangeBucket quantizes the query
// range so nearby queries with similar radii share entries.
func New(capacity int, ttl time.Duration, bucketSize, rangeBucket float64) (*QueryCache, error) {
	if bucketSize <= 0 {
		bucketSize = 16
	}
	if rangeBucket <= 0 {
		rangeBucket = 50
	}
	backing, err := lru.New[qkey, *qentry](capacity)
	if err != nil {
		return nil, fmt.Errorf("creating lru backing store: %w", err)
	}
	return &QueryCache{
		lru:         backing,
		ttl:         ttl,
		bucketSize:  bucketSize,
		rangeBucket: rangeBucket,
	}, nil
}

func (c *QueryCache) key(x, y, rng float64) qkey {
	return qkey{
		bx: int32(math.Floor(x / c.bucketSize)),
		by: int32(math.Floor(y / c.bucketSize)),
		br: int32(math.Ceil(rng / c.rangeBucket)),
	}
}

// Get returns the cached candidate list for the bucketed query, or
// (nil,false) on miss. Expired entries are dropped and treated as a
// miss.
func (c *QueryCache) Get(x, y, rng float64) ([]*zone.Zone, bool) {
	k := c.key(x, y, rng)
	e, ok := c.lru.Get(k)
	if !ok {
		return nil, false
	}
	if time.Since(e.storedAt) > c.ttl {
		c.lru.Remove(k)
		return nil, false
	}
	return e.zones, true
}

// Set stores the candidate list for the bucketed query. agentID
// records which agent's evaluation produced the entry, for
// per-agent invalidation.
func (c *QueryCache) Set(agentID string, x, y, rng float64, zones []*zone.Zone) {
	c.lru.Add(c.key(x, y, rng), &qentry{
		zones:    zones,
		agentID:  agentID,
		storedAt: time.Now(),
	})
}

// InvalidateZone removes every entry whose candidate list references
// the zone. Linear over the bounded cache, acceptable because
// invalidation is rare relative to reads.
func (c *QueryCache) InvalidateZone(zoneID int32) int {
	removed := 0
	for _, k := range c.lru.Keys() {
		e, ok := c.lru.Peek(k)
		if !ok {
			continue
		}
		for _, z := range e.zones {
			if z.ID() == zoneID {
				c.lru.Remove(k)
				removed++
				break
			}
		}
	}
	return removed
}

// InvalidateAgent removes every entry produced by the agent.
func (c *QueryCache) InvalidateAgent(agentID string) int {
	removed := 0
	for _, k := range c.lru.Keys() {
		if e, ok := c.lru.Peek(k); ok && e.agentID == agentID {
			c.lru.Remove(k)
			removed++
		}
	}
	return removed
}

// Cleanup drops all expired entries and returns how many were removed.
func (c *QueryCache) Cleanup() int {
	removed := 0
	now := time.Now()
	for _, k := range c.lru.Keys() {
		if e, ok := c.lru.Peek(k); ok && now.Sub(e.storedAt) > c.ttl {
			c.lru.Remove(k)
			removed++
		}
	}
	return removed
}

// Purge drops every entry.
func (c *QueryCache) Purge() { c.lru.Purge() }

// Len returns the current entry count including not-yet-collected
// expired entries.
func (c *QueryCache) Len() int { return c.lru.Len() }
