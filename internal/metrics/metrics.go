package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	initOnce sync.Once

	cacheLookupsCounter      *prometheus.CounterVec
	healthChecksCounter      *prometheus.CounterVec
	upstreamDurationMetric   prometheus.Histogram
	playbackSessionsGauge    prometheus.Gauge
	playbackTransitionsTotal *prometheus.CounterVec
)

// Cache lookup outcomes.
const (
	CacheHit   = "hit"
	CacheStale = "stale"
	CacheMiss  = "miss"
)

// Init registers metrics on the default Prometheus registry exactly once.
func Init() {
	initOnce.Do(func() {
		cacheLookupsCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "query_cache_lookups_total",
				Help: "Total number of query cache lookups by outcome.",
			},
			[]string{"outcome"},
		)

		healthChecksCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_health_checks_total",
				Help: "Total number of upstream health checks by result.",
			},
			[]string{"result"},
		)

		upstreamDurationMetric = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "upstream_request_duration_seconds",
				Help:    "Duration of calls to the event store in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		)

		playbackSessionsGauge = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "playback_sessions_active",
				Help: "Number of live playback sessions.",
			},
		)

		playbackTransitionsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playback_transitions_total",
				Help: "Total number of playback cursor transitions by kind.",
			},
			[]string{"kind"},
		)

		prometheus.MustRegister(
			cacheLookupsCounter,
			healthChecksCounter,
			upstreamDurationMetric,
			playbackSessionsGauge,
			playbackTransitionsTotal,
		)

		// Ensure counter vectors are visible at /metrics before first increment.
		for _, outcome := range []string{CacheHit, CacheStale, CacheMiss} {
			cacheLookupsCounter.WithLabelValues(outcome)
		}
		for _, result := range []string{"ok", "degraded", "error"} {
			healthChecksCounter.WithLabelValues(result)
		}
	})
}

func IncCacheLookup(outcome string) {
	Init()
	cacheLookupsCounter.WithLabelValues(outcome).Inc()
}

func IncHealthCheck(result string) {
	Init()
	healthChecksCounter.WithLabelValues(result).Inc()
}

func ObserveUpstreamDuration(d time.Duration) {
	Init()
	upstreamDurationMetric.Observe(d.Seconds())
}

func SetActivePlaybackSessions(n int) {
	Init()
	playbackSessionsGauge.Set(float64(n))
}

func IncPlaybackTransition(kind string) {
	Init()
	playbackTransitionsTotal.WithLabelValues(kind).Inc()
}
