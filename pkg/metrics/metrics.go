package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Total HTTP requests partitioned by method, route, and status code
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// PipelineMoves counts drag-and-drop completions by outcome
	// (moved, noop, rejected, failed).
	PipelineMoves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_moves_total",
			Help: "Pipeline drag-and-drop completions by outcome",
		},
		[]string{"outcome"},
	)

	// ContractConfirmations counts confirmation signals by delivery channel (poll, push).
	ContractConfirmations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sms_contract_confirmations_total",
			Help: "Contract confirmation signals applied, by channel",
		},
		[]string{"channel"},
	)

	// BackendRequests counts outbound calls to the CRM backend by status class.
	BackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_requests_total",
			Help: "Outbound requests to the CRM backend",
		},
		[]string{"method", "status"},
	)
)

// Middleware records basic Prometheus metrics per request.
// Labels are kept low-cardinality by using the matched route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		labels := prometheus.Labels{
			"method": c.Request.Method,
			"route":  route,
			"status": strconv.Itoa(c.Writer.Status()),
		}
		httpRequestsTotal.With(labels).Inc()
		httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
