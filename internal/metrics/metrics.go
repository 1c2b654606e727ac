package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Render outcomes.
const (
	OutcomeRendered = "rendered"
	OutcomeEmpty    = "empty"
	OutcomeError    = "error"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenario_explorer_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scenario_explorer_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scenario_explorer_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	ChartRendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenario_explorer_chart_renders_total",
			Help: "Total number of chart renders by outcome",
		},
		[]string{"chart", "outcome"},
	)

	ChartRenderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scenario_explorer_chart_render_duration_seconds",
			Help:    "Duration of uncached chart renders in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	RenderCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenario_explorer_render_cache_requests_total",
			Help: "Render cache lookups by result",
		},
		[]string{"result"}, // "hit", "miss"
	)

	ResultReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenario_explorer_result_reloads_total",
			Help: "Result reload attempts by outcome",
		},
		[]string{"outcome"}, // "published", "unchanged", "error"
	)

	ResultSetGeneration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scenario_explorer_result_set_generation",
			Help: "Generation of the currently published result set",
		},
	)

	ResultSetVariables = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scenario_explorer_result_set_variables",
			Help: "Number of variables in the currently published result set",
		},
	)
)

// Middleware returns a gin middleware that records HTTP metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		c.Next()

		// Use the route pattern if available, otherwise use the path
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		status := strconv.Itoa(c.Writer.Status())
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordRender records the outcome of one uncached chart render.
func RecordRender(chart, outcome string, duration time.Duration) {
	ChartRendersTotal.WithLabelValues(chart, outcome).Inc()
	ChartRenderDuration.Observe(duration.Seconds())
}

// RecordCache records a render cache lookup.
func RecordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	RenderCacheRequests.WithLabelValues(result).Inc()
}

// RecordReload records a reload attempt and, when published, the new set.
func RecordReload(outcome string, generation uint64, variables int) {
	ResultReloadsTotal.WithLabelValues(outcome).Inc()
	if outcome == "published" {
		ResultSetGeneration.Set(float64(generation))
		ResultSetVariables.Set(float64(variables))
	}
}
