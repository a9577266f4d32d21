// internal/utils/metrics.go
package utils

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "campaigndesk"

// Metrics holds every Prometheus collector the service exports.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	BackendDuration  *prometheus.HistogramVec
	BackendRequests  *prometheus.CounterVec
	FlowOutcomes     *prometheus.CounterVec
	StaleDiscarded   *prometheus.CounterVec
	ActiveSessions   prometheus.Gauge
	ActiveWebSockets prometheus.Gauge
}

// NewMetrics registers all collectors on a fresh registry, so tests can build
// as many instances as they like.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests served by the console",
		}, []string{"method", "endpoint", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "Console HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		BackendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Duration of calls to the content backend",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"endpoint"}),
		BackendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "backend_requests_total",
			Help:      "Calls to the content backend by outcome",
		}, []string{"endpoint", "outcome"}),
		FlowOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "flow_total",
			Help:      "Workflow runs by flow and outcome",
		}, []string{"flow", "outcome"}),
		StaleDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "stale_responses_discarded_total",
			Help:      "Specialization responses dropped because a newer request was issued",
		}, []string{"platform"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_sessions",
			Help:      "Console sessions currently held in memory",
		}),
		ActiveWebSockets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_websockets",
			Help:      "Open panel-update websocket connections",
		}),
	}

	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.BackendDuration,
		m.BackendRequests,
		m.FlowOutcomes,
		m.StaleDiscarded,
		m.ActiveSessions,
		m.ActiveWebSockets,
	)
	return m
}

// Registry exposes the registry for /metrics and tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveBackend records one backend call.
func (m *Metrics) ObserveBackend(endpoint, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BackendDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
	m.BackendRequests.WithLabelValues(endpoint, outcome).Inc()
}

// ObserveFlow records one settled workflow run.
func (m *Metrics) ObserveFlow(flow, outcome string) {
	if m == nil {
		return
	}
	m.FlowOutcomes.WithLabelValues(flow, outcome).Inc()
}

// ObserveStale counts a dropped out-of-order specialization response.
func (m *Metrics) ObserveStale(platform string) {
	if m == nil {
		return
	}
	m.StaleDiscarded.WithLabelValues(platform).Inc()
}

// Middleware collects HTTP metrics per route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		m.HTTPRequests.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	handler := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}
