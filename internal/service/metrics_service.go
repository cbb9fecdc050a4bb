package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the grading
// engine.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	gradeRecalcTotal prometheus.Counter
	finalizeDuration prometheus.Histogram
}

// NewMetricsService registers core Prometheus collectors.
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

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grade_summary_cache_hits_total",
		Help: "Total grade summary cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grade_summary_cache_misses_total",
		Help: "Total grade summary cache misses",
	})

	gradeRecalcTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grade_recalculations_total",
		Help: "Total final grade recalculations",
	})

	finalizeDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "course_finalize_duration_seconds",
		Help:    "Duration of course finalize runs",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHits, cacheMisses, gradeRecalcTotal, finalizeDuration, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		gradeRecalcTotal: gradeRecalcTotal,
		finalizeDuration: finalizeDuration,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	return m.handler
}

// ObserveHTTPRequest records one request sample.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, d time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	m.requestDuration.WithLabelValues(labels...).Observe(d.Seconds())
	m.requestTotal.WithLabelValues(labels...).Inc()
}

// CacheHit counts one summary cache hit.
func (m *MetricsService) CacheHit() {
	m.cacheHits.Inc()
}

// CacheMiss counts one summary cache miss.
func (m *MetricsService) CacheMiss() {
	m.cacheMisses.Inc()
}

// GradeRecalculated counts one final grade recalculation.
func (m *MetricsService) GradeRecalculated() {
	m.gradeRecalcTotal.Inc()
}

// ObserveFinalize records the duration of a finalize run.
func (m *MetricsService) ObserveFinalize(d time.Duration) {
	m.finalizeDuration.Observe(d.Seconds())
}
