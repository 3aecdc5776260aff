package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestsTotal counts HTTP requests by method, endpoint and status.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huginn_api_requests_total",
		Help: "Total HTTP API requests.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes HTTP request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "huginn_api_request_duration_seconds",
		Help:    "HTTP API request duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections gauges in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "huginn_api_active_connections",
		Help: "In-flight HTTP API requests.",
	})

	// DatabaseQueryDuration observes database statement latency by operation
	// and table (gorm paths) or the session pseudo-table (raw paths).
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "huginn_db_query_duration_seconds",
		Help:    "Database statement duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// DatabaseErrorsTotal counts database statement failures.
	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huginn_db_errors_total",
		Help: "Database statement failures.",
	}, []string{"operation", "reason"})

	// DatabaseConnectionsActive gauges open pool connections.
	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "huginn_db_connections_active",
		Help: "Open database connections.",
	})

	// SessionQueriesTotal counts successful raw session statements.
	SessionQueriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "huginn_db_session_queries_total",
		Help: "Successful raw session statements.",
	})

	// PlanBatchesTotal counts applied operation batches by outcome.
	PlanBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huginn_plan_batches_total",
		Help: "Show plan operation batches by outcome.",
	}, []string{"status"})

	// PlanOpsTotal counts individual plan operations by kind and status.
	PlanOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huginn_plan_ops_total",
		Help: "Show plan operations by kind and status.",
	}, []string{"kind", "status"})

	// LegacyPublishTotal counts legacy store publishes by outcome.
	LegacyPublishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huginn_legacy_publish_total",
		Help: "Legacy show plan publishes by outcome.",
	}, []string{"status"})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
