package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsSnapshot is the JSON view of the counters served next to /metrics.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	BookingConflicts         uint64    `json:"booking_conflicts"`
	FeedNotifications        uint64    `json:"feed_notifications"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// MetricsService owns the Prometheus registry of the API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheHitRatio   prometheus.Gauge
	cacheLookups    *prometheus.CounterVec
	bookingWrites   *prometheus.CounterVec
	bookingConflict *prometheus.CounterVec
	feedEvents      *prometheus.CounterVec
	reportJobs      *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	conflictCount        uint64
	feedCount            uint64
}

func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Latency for cache writes",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cache_hit_ratio",
			Help: "Ratio of cache hits to total cache lookups",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by result",
		}, []string{"result"}),
		bookingWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_writes_total",
			Help: "Accepted booking mutations by operation",
		}, []string{"op"}),
		bookingConflict: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_conflicts_total",
			Help: "Rejected booking writes by the layer that caught the overlap",
		}, []string{"source"}),
		feedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workorder_feed_events_total",
			Help: "Work order change notifications by operation",
		}, []string{"op"}),
		reportJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "report_jobs_total",
			Help: "Export jobs by terminal status",
		}, []string{"status"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(m.requestDuration, m.requestTotal, m.cacheLatency, m.cacheWrite,
		m.cacheHitRatio, m.cacheLookups, m.bookingWrites, m.bookingConflict, m.feedEvents, m.reportJobs, goroutines)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation counts a lookup and refreshes the hit ratio gauge.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordBookingWrite counts an accepted create, update or delete.
func (m *MetricsService) RecordBookingWrite(op string) {
	if m == nil {
		return
	}
	m.bookingWrites.WithLabelValues(op).Inc()
}

// RecordBookingConflict counts a rejection; source is "detector" or "storage".
func (m *MetricsService) RecordBookingConflict(source string) {
	if m == nil {
		return
	}
	m.bookingConflict.WithLabelValues(source).Inc()
	atomic.AddUint64(&m.conflictCount, 1)
}

func (m *MetricsService) RecordFeedEvent(op string) {
	if m == nil {
		return
	}
	m.feedEvents.WithLabelValues(op).Inc()
	atomic.AddUint64(&m.feedCount, 1)
}

func (m *MetricsService) RecordReportJob(status string) {
	if m == nil {
		return
	}
	m.reportJobs.WithLabelValues(status).Inc()
}

// Snapshot summarises the counters for the JSON metrics endpoint.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	snap := MetricsSnapshot{
		RequestsTotal:     requests,
		CacheHits:         hits,
		CacheMisses:       misses,
		BookingConflicts:  atomic.LoadUint64(&m.conflictCount),
		FeedNotifications: atomic.LoadUint64(&m.feedCount),
		Goroutines:        runtime.NumGoroutine(),
		GeneratedAt:       time.Now().UTC(),
	}
	if total := hits + misses; total > 0 {
		snap.CacheHitRatio = float64(hits) / float64(total)
	}
	if requests > 0 {
		snap.AverageRequestDurationMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}
	return snap
}
