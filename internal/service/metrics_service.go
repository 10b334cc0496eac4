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

// MetricsService owns the Prometheus registry for HTTP, cache and workflow metrics.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	decisions       *prometheus.CounterVec
	reportDuration  *prometheus.HistogramVec
	reportSkipped   prometheus.Counter

	cacheHitCount  uint64
	cacheMissCount uint64
	requestCount   uint64
	decisionCount  uint64
	skippedCount   uint64
}

// MetricsSnapshot is a JSON friendly summary of the counters.
type MetricsSnapshot struct {
	Requests      uint64  `json:"requests"`
	CacheHitRatio float64 `json:"cache_hit_ratio"`
	Decisions     uint64  `json:"decisions"`
	SkippedFiles  uint64  `json:"skipped_report_files"`
	Goroutines    int     `json:"goroutines"`
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_decisions_total",
		Help: "Approval decisions by requested decision and outcome",
	}, []string{"decision", "outcome"})

	reportDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "report_build_duration_seconds",
		Help:    "Time spent building report booklets",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"format"})

	reportSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "report_files_skipped_total",
		Help: "Approved documents left out of a booklet because their file could not be read",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses, decisions, reportDuration, reportSkipped, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		decisions:       decisions,
		reportDuration:  reportDuration,
		reportSkipped:   reportSkipped,
	}
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordDecision counts an approval decision. Outcome is one of applied,
// forbidden, conflict or error.
func (m *MetricsService) RecordDecision(decision, outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(decision, outcome).Inc()
	atomic.AddUint64(&m.decisionCount, 1)
}

// ObserveReportBuild records how long a booklet took and how many files were skipped.
func (m *MetricsService) ObserveReportBuild(format string, skipped int, duration time.Duration) {
	if m == nil {
		return
	}
	m.reportDuration.WithLabelValues(format).Observe(duration.Seconds())
	if skipped > 0 {
		m.reportSkipped.Add(float64(skipped))
		atomic.AddUint64(&m.skippedCount, uint64(skipped))
	}
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	var ratio float64
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}
	return MetricsSnapshot{
		Requests:      atomic.LoadUint64(&m.requestCount),
		CacheHitRatio: ratio,
		Decisions:     atomic.LoadUint64(&m.decisionCount),
		SkippedFiles:  atomic.LoadUint64(&m.skippedCount),
		Goroutines:    runtime.NumGoroutine(),
	}
}
