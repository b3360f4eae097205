package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/udisondev/zonekit/internal/zone"
)

func testZones(t *testing.T, ids ...int32) []*zone.Zone {
	t.Helper()
	out := make([]*zone.Zone, len(ids))
	for i, id := range ids {
		c, err := zone.NewCircle(float64(id)*100, 0, 0, 10, false)
		require.NoError(t, err)
		out[i] = zone.New(id, fmt.Sprintf("z%d", id), c, zone.DefaultMinZ, zone.DefaultMaxZ)
	}
	return out
}

func TestCache_HitAndMiss(t *testing.T) {
	c, err := New(16, time.Minute, 16, 50)
	require.NoError(t, err)

	if _, ok := c.Get(100, 100, 200); ok {
		t.Fatal("empty cache reported a hit")
	}

	zones := testZones(t, 1, 2)
	c.Set("a", 100, 100, 200, zones)

	got, ok := c.Get(100, 100, 200)
	if !ok {
		t.Fatal("stored entry not returned")
	}
	if len(got) != 2 {
		t.Fatalf("got %d zones, want 2", len(got))
	}

	// Запрос в том же бакете (16 единиц) делит запись.
	if _, ok := c.Get(105, 110, 200); !ok {
		t.Error("query in same bucket missed")
	}
	// Соседний бакет — промах.
	if _, ok := c.Get(200, 100, 200); ok {
		t.Error("query in different bucket hit")
	}
	// Другой диапазон — другой ключ.
	if _, ok := c.Get(100, 100, 900); ok {
		t.Error("query with different range bucket hit")
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c, err := New(16, 20*time.Millisecond, 16, 50)
	require.NoError(t, err)

	c.Set("a", 0, 0, 100, testZones(t, 1))
	if _, ok := c.Get(0, 0, 100); !ok {
		t.Fatal("fresh entry missed")
	}

	time.Sleep(30 * time.Millisecond)

	// Протухшая запись — промах и удаляется.
	if _, ok := c.Get(0, 0, 100); ok {
		t.Fatal("expired entry returned as hit")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry still resident, Len = %d", c.Len())
	}
}

func TestCache_LRUEviction(t *testing.T) {
	c, err := New(2, time.Minute, 16, 50)
	require.NoError(t, err)

	zones := testZones(t, 1)
	c.Set("a", 0, 0, 100, zones)
	c.Set("a", 1000, 0, 100, zones)
	c.Set("a", 2000, 0, 100, zones) // вытесняет самый старый

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want capacity 2", c.Len())
	}
	if _, ok := c.Get(0, 0, 100); ok {
		t.Error("oldest entry survived eviction")
	}
	if _, ok := c.Get(2000, 0, 100); !ok {
		t.Error("newest entry evicted")
	}
}

func TestCache_InvalidateZone(t *testing.T) {
	c, err := New(16, time.Minute, 16, 50)
	require.NoError(t, err)

	z12 := testZones(t, 1, 2)
	z3 := testZones(t, 3)
	c.Set("a", 0, 0, 100, z12)
	c.Set("a", 1000, 0, 100, z3)

	if removed := c.InvalidateZone(2); removed != 1 {
		t.Fatalf("InvalidateZone removed %d entries, want 1", removed)
	}
	if _, ok := c.Get(0, 0, 100); ok {
		t.Error("entry referencing invalidated zone still hit")
	}
	if _, ok := c.Get(1000, 0, 100); !ok {
		t.Error("unrelated entry was invalidated")
	}
}

func TestCache_InvalidateAgent(t *testing.T) {
	c, err := New(16, time.Minute, 16, 50)
	require.NoError(t, err)

	zones := testZones(t, 1)
	c.Set("a", 0, 0, 100, zones)
	c.Set("b", 1000, 0, 100, zones)

	if removed := c.InvalidateAgent("a"); removed != 1 {
		t.Fatalf("InvalidateAgent removed %d entries, want 1", removed)
	}
	if _, ok := c.Get(0, 0, 100); ok {
		t.Error("agent a's entry still hit")
	}
	if _, ok := c.Get(1000, 0, 100); !ok {
		t.Error("agent b's entry was invalidated")
	}
}

func TestCache_Cleanup(t *testing.T) {
	c, err := New(16, 20*time.Millisecond, 16, 50)
	require.NoError(t, err)

	zones := testZones(t, 1)
	c.Set("a", 0, 0, 100, zones)
	c.Set("a", 1000, 0, 100, zones)
	time.Sleep(30 * time.Millisecond)
	c.Set("a", 2000, 0, 100, zones)

	if removed := c.Cleanup(); removed != 2 {
		t.Fatalf("Cleanup removed %d entries, want 2", removed)
	}
	if c.Len() != 1 {
		t.Errorf("Len after cleanup = %d, want 1", c.Len())
	}
}

func TestCache_Purge(t *testing.T) {
	c, err := New(16, time.Minute, 16, 50)
	require.NoError(t, err)

	c.Set("a", 0, 0, 100, testZones(t, 1))
	c.Purge()
	if c.Len() != 0 {
		t.Errorf("Len after purge = %d, want 0", c.Len())
	}
}

func TestCache_DefaultBuckets(t *testing.T) {
	// Неположительные размеры бакетов заменяются дефолтами, а не ломают кэш.
	c, err := New(16, time.Minute, 0, -1)
	require.NoError(t, err)

	c.Set("a", 0, 0, 100, testZones(t, 1))
	if _, ok := c.Get(0, 0, 100); !ok {
		t.Error("cache with defaulted buckets missed its own entry")
	}
}
