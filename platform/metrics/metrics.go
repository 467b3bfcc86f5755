// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consultancy_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "consultancy_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	AutomationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consultancy_automation_runs_total",
			Help: "Automation runs by trigger and final status",
		},
		[]string{"trigger", "status"},
	)

	AutomationRunsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consultancy_automation_runs_rejected_total",
			Help: "Automation triggers rejected because a run was already in progress",
		},
		[]string{"trigger"},
	)

	AutomationTasksCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consultancy_automation_tasks_created_total",
			Help: "Follow-up tasks created by automation rules",
		},
		[]string{"trigger_type"},
	)

	AutomationMatchesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consultancy_automation_matches_skipped_total",
			Help: "Rule matches skipped because an equivalent pending task exists",
		},
		[]string{"trigger_type"},
	)

	AutomationRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "consultancy_automation_run_duration_seconds",
			Help:    "Wall time of automation runs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"trigger"},
	)

	AutomationRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "consultancy_automation_running",
			Help: "1 while an automation run holds the local run-lock",
		},
	)

	LeadScoresComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consultancy_lead_scores_computed_total",
			Help: "Lead scores computed by tier",
		},
		[]string{"tier", "persisted"},
	)

	LLMCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consultancy_llm_calls_total",
			Help: "Prompt completions by purpose and outcome",
		},
		[]string{"purpose", "outcome"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// GinMiddleware records request count and latency per route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
