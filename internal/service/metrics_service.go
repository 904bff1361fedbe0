package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/uniodonto/urede-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the API and
// the escalation sweep.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	sweepDuration   prometheus.Histogram
	sweepTotal      prometheus.Counter
	escaladosTotal  *prometheus.CounterVec
	sweepFailures   prometheus.Counter
}

// NewMetricsService registers the collectors on a private registry.
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
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	sweepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "escalation_sweep_duration_seconds",
		Help:    "Duration of escalation sweeps",
		Buckets: prometheus.DefBuckets,
	})

	sweepTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "escalation_sweeps_total",
		Help: "Total escalation sweeps executed",
	})

	escaladosTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pedidos_escalados_total",
		Help: "Total pedidos escalated per sweep outcome",
	}, []string{"outcome"})

	sweepFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "escalation_sweep_failures_total",
		Help: "Total escalation sweeps that failed outright",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHits, cacheMisses,
		sweepDuration, sweepTotal, escaladosTotal, sweepFailures, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		sweepDuration:   sweepDuration,
		sweepTotal:      sweepTotal,
		escaladosTotal:  escaladosTotal,
		sweepFailures:   sweepFailures,
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
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveSweep records the outcome of one escalation sweep.
func (m *MetricsService) ObserveSweep(summary *models.EscalationSummary, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.sweepTotal.Inc()
	m.sweepDuration.Observe(duration.Seconds())
	if err != nil {
		m.sweepFailures.Inc()
		return
	}
	if summary == nil {
		return
	}
	m.escaladosTotal.WithLabelValues("escalated").Add(float64(summary.Escalated))
	m.escaladosTotal.WithLabelValues("already_at_top").Add(float64(summary.AlreadyAtTop))
	m.escaladosTotal.WithLabelValues("conflict").Add(float64(summary.Conflicts))
	m.escaladosTotal.WithLabelValues("failed").Add(float64(summary.Failed))
}
