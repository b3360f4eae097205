package engine

import (
	"log/slog"
	"time"

	"github.com/udisondev/zonekit/internal/geo"
	"github.com/udisondev/zonekit/internal/metrics"
	"github.com/udisondev/zonekit/internal/zone"
)

// Shape kind evaluation order: same-type containment checks are
// grouped so each hot loop runs over a single concrete shape type.
var kindOrder = [...]string{
	zone.KindCircle,
	zone.KindRectangle,
	zone.KindPolygon,
	zone.KindComposite,
}

// event is a deferred occupancy notification, dispatched after the
// tick's candidate work is done so a callback mutating zones cannot
// corrupt the in-flight candidate set.
type event struct {
	kind    string // "enter", "inside", "exit"
	agentID string
	zone    *zone.Zone
}

// collector implements zone.EventSink by buffering events for
// post-tick dispatch.
type collector struct {
	events []event
}

func (c *collector) OnEnter(agentID string, z *zone.Zone) {
	c.events = append(c.events, event{kind: "enter", agentID: agentID, zone: z})
}

func (c *collector) OnInside(agentID string, z *zone.Zone) {
	c.events = append(c.events, event{kind: "inside", agentID: agentID, zone: z})
}

func (c *collector) OnExit(agentID string, z *zone.Zone) {
	c.events = append(c.events, event{kind: "exit", agentID: agentID, zone: z})
}

// Tick runs one evaluation pass over all tracked agents. Normally
// invoked by Start's timer; tests drive it directly with scripted
// times. Event callbacks run after the mutex is released.
func (m *Manager) Tick(now time.Time) {
	started := time.Now()

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}

	col := &collector{}
	checks := 0
	ceiling := m.opts.MaxChecksPerTick

	// Начальная точка обхода вращается между тиками, чтобы при
	// насыщении потолка проверок ни один агент не голодал постоянно.
	n := len(m.agents)
	var evict []string
	for i := range n {
		agentID := m.agents[(m.rotate+i)%n]

		if ceiling > 0 && checks >= ceiling {
			m.stats.deferred.Add(int64(n - i))
			if m.opts.Metrics {
				metrics.DeferredTotal.Add(float64(n - i))
			}
			break
		}

		pos, ok := m.source.Position(agentID)
		if !ok {
			// Потеря позиции — не ошибка: пропускаем агента на этот
			// тик, при длительном отсутствии вычищаем его состояние.
			m.missStreak[agentID]++
			if m.opts.EvictAfterMisses > 0 && m.missStreak[agentID] >= m.opts.EvictAfterMisses {
				evict = append(evict, agentID)
			}
			continue
		}
		m.missStreak[agentID] = 0

		mv := m.tracker.Update(agentID, pos.X, pos.Y, pos.Z, now)
		first := mv.Moved && mv.Distance == 0
		if !first && mv.Distance < m.opts.DeltaThreshold {
			m.stats.skipped.Add(1)
			if m.opts.Metrics {
				metrics.SkippedTotal.Inc()
			}
			continue
		}

		m.evaluateAgent(agentID, pos, now, col)
		checks++
		m.stats.checks.Add(1)
		if m.opts.Metrics {
			metrics.ChecksTotal.Inc()
		}
	}
	if n > 0 {
		m.rotate = (m.rotate + 1) % n
	}

	for _, agentID := range evict {
		slog.Warn("evicting agent after sustained position failures",
			"agent", agentID, "misses", m.missStreak[agentID])
		m.untrackLocked(agentID)
	}

	m.stats.ticks.Add(1)
	elapsed := time.Since(started)
	m.stats.lastTickNs.Store(int64(elapsed))
	if m.opts.Metrics {
		metrics.TickDurationMs.Observe(float64(elapsed.Microseconds()) / 1000)
	}
	m.publishMetrics()

	// Снимок приёмников под мьютексом, доставка — после.
	sink := m.sink
	zoneSinks := make(map[int32]zone.EventSink, len(m.zoneSinks))
	for id, s := range m.zoneSinks {
		zoneSinks[id] = s
	}
	m.mu.Unlock()

	m.dispatch(col.events, sink, zoneSinks)
}

// evaluateAgent runs steps 3–7 of the tick for one agent: candidate
// lookup, priority ordering, grouped containment, exclusion rules and
// the occupancy state machine.
func (m *Manager) evaluateAgent(agentID string, pos geo.Point, now time.Time, col *collector) {
	candidates := m.candidatesLocked(agentID, pos.X, pos.Y, m.opts.QueryRange)
	prev := m.occupied[agentID]
	if len(candidates) == 0 && len(prev) == 0 {
		return
	}

	sorted := make([]*zone.Zone, len(candidates))
	copy(sorted, candidates)
	sortByPriority(sorted)

	// Сгруппированные по типу фигуры проверки containment.
	insideSet := make(map[int32]struct{})
	contains := make(map[int32]bool, len(sorted))
	for _, kind := range kindOrder {
		for _, z := range sorted {
			if z.Kind() != kind {
				continue
			}
			in := z.Contains(pos.X, pos.Y, pos.Z)
			contains[z.ID()] = in
			if in {
				insideSet[z.ID()] = struct{}{}
			}
		}
	}

	evaluated := make(map[int32]struct{}, len(sorted))
	for _, z := range sorted {
		evaluated[z.ID()] = struct{}{}
		if z.ExcludedBy(insideSet) {
			// Подавленная зона не трогает свою бухгалтерию: правило
			// исключения переоценивается заново на каждом тике.
			continue
		}
		z.CheckOccupant(agentID, contains[z.ID()], now, col)
	}

	// Занятые зоны, выпавшие из кандидатов: агент прыгнул дальше
	// радиуса запроса за один тик, но выход всё равно должен сработать.
	for id := range prev {
		if _, ok := evaluated[id]; ok {
			continue
		}
		z, ok := m.zones[id]
		if !ok {
			continue
		}
		z.CheckOccupant(agentID, false, now, col)
		sorted = append(sorted, z)
	}

	// Пересобираем членство по фактическому состоянию зон: throttle
	// и правила исключения могли оставить агента внутри.
	cur := make(map[int32]struct{})
	for _, z := range sorted {
		if z.IsOccupant(agentID) {
			cur[z.ID()] = struct{}{}
		}
	}
	if len(cur) == 0 {
		delete(m.occupied, agentID)
	} else {
		m.occupied[agentID] = cur
	}
}

// candidatesLocked resolves candidate zones for a point query through
// the cache, falling back to both index partitions on a miss.
func (m *Manager) candidatesLocked(agentID string, x, y, rng float64) []*zone.Zone {
	if zones, ok := m.cache.Get(x, y, rng); ok {
		m.stats.cacheHits.Add(1)
		if m.opts.Metrics {
			metrics.CacheHitsTotal.Inc()
		}
		return zones
	}
	m.stats.cacheMisses.Add(1)
	if m.opts.Metrics {
		metrics.CacheMissesTotal.Inc()
	}

	box := geo.PointRangeBBox(x, y, rng)
	items := m.static.Search(box)
	items = append(items, m.dynamic.Search(box)...)
	m.stats.queries.Add(1)
	if m.opts.Metrics {
		metrics.QueriesTotal.Inc()
	}

	zones := make([]*zone.Zone, 0, len(items))
	for _, it := range items {
		if z, ok := it.(*zone.Zone); ok {
			zones = append(zones, z)
		}
	}

	m.cache.Set(agentID, x, y, rng, zones)
	return zones
}

// dispatch delivers buffered events outside the manager mutex. Each
// callback is isolated: a panicking listener is logged and cannot
// break the loop for other agents and zones.
func (m *Manager) dispatch(events []event, sink zone.EventSink, zoneSinks map[int32]zone.EventSink) {
	for _, ev := range events {
		switch ev.kind {
		case "enter":
			m.stats.enters.Add(1)
		case "inside":
			m.stats.insides.Add(1)
		case "exit":
			m.stats.exits.Add(1)
		}
		if m.opts.Metrics {
			metrics.EventsTotal.WithLabelValues(ev.kind).Inc()
		}

		target := sink
		if zs, ok := zoneSinks[ev.zone.ID()]; ok {
			target = zs
		}
		if target == nil {
			continue
		}
		m.deliver(target, ev)
	}
}

func (m *Manager) deliver(sink zone.EventSink, ev event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event callback panicked",
				"event", ev.kind, "agent", ev.agentID, "zone", ev.zone.ID(), "panic", r)
		}
	}()

	switch ev.kind {
	case "enter":
		sink.OnEnter(ev.agentID, ev.zone)
	case "inside":
		sink.OnInside(ev.agentID, ev.zone)
	case "exit":
		sink.OnExit(ev.agentID, ev.zone)
	}
}
