package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "kitchensafe_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	logWrites   *prometheus.CounterVec
	checkWrites *prometheus.CounterVec

	reconcileTotal   *prometheus.CounterVec
	reconcileLatency *prometheus.HistogramVec

	reportExports *prometheus.CounterVec

	alertsSent *prometheus.CounterVec

	authFailures *prometheus.CounterVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		logWrites = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "temp_log_writes_total",
				Help: "Total food temperature log writes by status",
			},
			[]string{"status"},
		)
		checkWrites = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "unit_check_writes_total",
				Help: "Total refrigeration check writes by status and range verdict",
			},
			[]string{"status", "in_range"},
		)

		reconcileTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "blastchill_reconcile_total",
				Help: "Total blast-chill reconciliations by result",
			},
			[]string{"result"},
		)
		reconcileLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "blastchill_reconcile_latency_seconds",
				Help:    "Blast-chill reconciliation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		reportExports = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_exports_total",
				Help: "Total inspection pack exports by format",
			},
			[]string{"format"},
		)

		alertsSent = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_sent_total",
				Help: "Total food safety alerts sent by kind",
			},
			[]string{"kind"},
		)

		authFailures = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "auth_failures_total",
				Help: "Total rejected requests by reason",
			},
			[]string{"reason"},
		)

		prometheus.MustRegister(
			logWrites,
			checkWrites,
			reconcileTotal,
			reconcileLatency,
			reportExports,
			alertsSent,
			authFailures,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// IncLogWrite increments the food temperature log counter.
func IncLogWrite(status string) {
	if status == "" {
		status = "unknown"
	}
	if logWrites != nil {
		logWrites.WithLabelValues(status).Inc()
	}
}

// IncCheckWrite increments the refrigeration check counter.
func IncCheckWrite(status string, inRange bool) {
	if status == "" {
		status = "unknown"
	}
	verdict := "true"
	if !inRange {
		verdict = "false"
	}
	if checkWrites != nil {
		checkWrites.WithLabelValues(status, verdict).Inc()
	}
}

// ObserveReconcile records blast-chill reconciliation latency and result.
func ObserveReconcile(result string, seconds float64) {
	if result == "" {
		result = resultSuccess
	}
	if reconcileTotal != nil {
		reconcileTotal.WithLabelValues(result).Inc()
	}
	if reconcileLatency != nil {
		reconcileLatency.WithLabelValues(result).Observe(seconds)
	}
}

// ObserveReconcileDuration is ObserveReconcile for callers holding a Duration.
func ObserveReconcileDuration(result string, duration time.Duration) {
	ObserveReconcile(result, duration.Seconds())
}

// IncReportExport increments the inspection pack export counter.
func IncReportExport(format string) {
	if format == "" {
		format = "unknown"
	}
	if reportExports != nil {
		reportExports.WithLabelValues(format).Inc()
	}
}

// IncAlertSent increments the alert counter.
func IncAlertSent(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	if alertsSent != nil {
		alertsSent.WithLabelValues(kind).Inc()
	}
}

// IncAuthFailure increments the rejected request counter.
func IncAuthFailure(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if authFailures != nil {
		authFailures.WithLabelValues(reason).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
