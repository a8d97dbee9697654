package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the picks automation service

var (
	// Game source metrics
	SourceFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picks_source_fetches_total",
			Help: "Total number of game source fetches",
		},
		[]string{"source", "status"},
	)

	SourceFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "picks_source_fetch_duration_seconds",
			Help:    "Duration of game source fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	GamesByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "picks_games_by_status",
			Help: "Number of games in the last source snapshot per status",
		},
		[]string{"status"},
	)

	// Pick metrics
	PicksPushedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picks_pushed_total",
			Help: "Total number of picks merged into a collection",
		},
		[]string{"collection", "market"},
	)

	PicksMovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picks_moved_total",
			Help: "Total number of picks moved between collections",
		},
		[]string{"from", "to"},
	)

	PicksGradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picks_graded_total",
			Help: "Total number of picks graded",
		},
		[]string{"market", "result"},
	)

	// Database metrics
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picks_db_queries_total",
			Help: "Total number of ledger database queries",
		},
		[]string{"operation", "table", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "picks_db_query_duration_seconds",
			Help:    "Duration of ledger database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "picks_db_connections_active",
			Help: "Number of active database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "picks_db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// Run metrics
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picks_runs_total",
			Help: "Total number of push, migrate and export runs",
		},
		[]string{"kind", "status"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "picks_run_duration_seconds",
			Help:    "Duration of runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"kind"},
	)

	RunsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picks_runs_skipped_total",
			Help: "Total number of runs skipped because another run held the lock",
		},
		[]string{"kind"},
	)

	LastSuccessfulRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "picks_last_successful_run_timestamp",
			Help: "Timestamp of the last successful run",
		},
		[]string{"kind"},
	)

	// Password reset metrics
	ResetTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picks_reset_tokens_total",
			Help: "Total number of password reset token operations",
		},
		[]string{"operation", "outcome"},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picks_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "picks_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)
)

// RecordSourceFetch records a game source fetch
func RecordSourceFetch(source, status string, duration float64) {
	SourceFetchesTotal.WithLabelValues(source, status).Inc()
	SourceFetchDuration.WithLabelValues(source).Observe(duration)
}

// UpdateGameStatusCounts sets the per-status game gauges
func UpdateGameStatusCounts(upcoming, live, completed int) {
	GamesByStatus.WithLabelValues("upcoming").Set(float64(upcoming))
	GamesByStatus.WithLabelValues("live").Set(float64(live))
	GamesByStatus.WithLabelValues("completed").Set(float64(completed))
}

// RecordPicksPushed records picks merged into a collection
func RecordPicksPushed(collection, market string, n int) {
	PicksPushedTotal.WithLabelValues(collection, market).Add(float64(n))
}

// RecordPickMoved records a pick moving between collections
func RecordPickMoved(from, to string) {
	PicksMovedTotal.WithLabelValues(from, to).Inc()
}

// RecordPickGraded records a graded pick
func RecordPickGraded(market, result string) {
	PicksGradedTotal.WithLabelValues(market, result).Inc()
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table, status string, duration float64) {
	DBQueriesTotal.WithLabelValues(operation, table, status).Inc()
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration)
}

// UpdateDBConnectionStats updates database connection pool statistics
func UpdateDBConnectionStats(active, idle int32) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}

// RecordRun records a finished run
func RecordRun(kind, status string, duration float64) {
	RunsTotal.WithLabelValues(kind, status).Inc()
	RunDuration.WithLabelValues(kind).Observe(duration)

	if status == "success" {
		LastSuccessfulRun.WithLabelValues(kind).SetToCurrentTime()
	}
}

// RecordRunSkipped records a run skipped on lock contention
func RecordRunSkipped(kind string) {
	RunsSkippedTotal.WithLabelValues(kind).Inc()
}

// RecordResetToken records a password reset token operation
func RecordResetToken(operation, outcome string) {
	ResetTokensTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
