package providers

import (
	"dashd/internal/structures"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	IncSearches()
	IncUploads()
	IncMerges()
	IncSyncFailures(target string)
	ObserveSnapshotFlushDuration(duration time.Duration)
	SetUpstreamReady(ready bool)
}

type MetricsProvider struct {
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	searchesTotal     prometheus.Counter
	uploadsTotal      prometheus.Counter
	mergesTotal       prometheus.Counter
	syncFailuresTotal *prometheus.CounterVec
	flushDuration     prometheus.Histogram
	upstreamReady     prometheus.Gauge
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) IncSearches() {
	m.searchesTotal.Inc()
}

func (m *MetricsProvider) IncUploads() {
	m.uploadsTotal.Inc()
}

func (m *MetricsProvider) IncMerges() {
	m.mergesTotal.Inc()
}

func (m *MetricsProvider) IncSyncFailures(target string) {
	m.syncFailuresTotal.WithLabelValues(target).Inc()
}

func (m *MetricsProvider) ObserveSnapshotFlushDuration(duration time.Duration) {
	m.flushDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) SetUpstreamReady(ready bool) {
	if ready {
		m.upstreamReady.Set(1)
	} else {
		m.upstreamReady.Set(0)
	}
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dashd_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dashd_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dashd_cache_hits_total",
			Help: "Total number of search cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dashd_cache_misses_total",
			Help: "Total number of search cache misses",
		}),

		searchesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dashd_searches_total",
			Help: "Total number of recorded searches",
		}),

		uploadsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dashd_uploads_total",
			Help: "Total number of recorded uploads",
		}),

		mergesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dashd_merges_total",
			Help: "Total number of merge operations",
		}),

		syncFailuresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dashd_sync_failures_total",
			Help: "Background synchronization failures by target store",
		}, []string{"target"}),

		flushDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dashd_snapshot_flush_duration_seconds",
			Help:    "Duration of snapshot flush operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		upstreamReady: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dashd_upstream_ready",
			Help: "Whether the upstream prediction service reports ready",
		}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) IncSearches()                                     {}
func (n *noopMetrics) IncUploads()                                      {}
func (n *noopMetrics) IncMerges()                                       {}
func (n *noopMetrics) IncSyncFailures(_ string)                         {}
func (n *noopMetrics) ObserveSnapshotFlushDuration(_ time.Duration)     {}
func (n *noopMetrics) SetUpstreamReady(_ bool)                          {}
