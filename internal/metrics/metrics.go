// Package metrics exposes engine counters to Prometheus. The engine
// keeps its own Stats struct as the source of truth; these collectors
// mirror it for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zonekit_queries_total",
		Help: "Total spatial index queries",
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zonekit_cache_hits_total",
		Help: "Total query cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zonekit_cache_misses_total",
		Help: "Total query cache misses",
	})
	ChecksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zonekit_checks_total",
		Help: "Total per-agent zone evaluations",
	})
	SkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zonekit_skipped_total",
		Help: "Total agent evaluations skipped by the movement delta threshold",
	})
	DeferredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zonekit_deferred_total",
		Help: "Total agent evaluations deferred by the per-tick check ceiling",
	})
	EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zonekit_events_total",
		Help: "Zone occupancy events fired by type",
	}, []string{"type"})
	TickDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "zonekit_tick_duration_ms",
		Help:    "Evaluation tick duration in milliseconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 50, 100, 200},
	})
	ZonesIndexed = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zonekit_zones_indexed",
		Help: "Number of zones currently in the spatial indices",
	})
	AgentsTracked = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zonekit_agents_tracked",
		Help: "Number of agents currently tracked",
	})
)

func init() {
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(ChecksTotal)
	prometheus.MustRegister(SkippedTotal)
	prometheus.MustRegister(DeferredTotal)
	prometheus.MustRegister(EventsTotal)
	prometheus.MustRegister(TickDurationMs)
	prometheus.MustRegister(ZonesIndexed)
	prometheus.MustRegister(AgentsTracked)
}

// Handler returns the Prometheus scrape handler, mounted by the
// server main.
func Handler() http.Handler { return promhttp.Handler() }
