// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "flash"

var (
	// HTTPRequestsTotal counts handled requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration observes request latency
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// LedgerOperationsTotal counts ledger operations by outcome (committed or an error code)
	LedgerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Ledger operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// LedgerOperationDuration observes ledger operation latency including lock waits
	LedgerOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operation_duration_seconds",
			Help:      "Ledger operation latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	// LedgerVolumeUSDT sums the absolute USDT moved per operation
	LedgerVolumeUSDT = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "volume_usdt_total",
			Help:      "Absolute USDT balance movement by operation",
		},
		[]string{"operation"},
	)

	// ReconciliationRunsTotal counts reconciliation runs by result
	ReconciliationRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciliation",
			Name:      "runs_total",
			Help:      "Reconciliation runs by result",
		},
		[]string{"result"},
	)

	// ReconciliationMismatchedAccounts is the number of drifting accounts found by the last run
	ReconciliationMismatchedAccounts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconciliation",
			Name:      "mismatched_accounts",
			Help:      "Accounts whose stored balance differs from their derived balance",
		},
	)

	// ReconciliationDriftUSDT is the summed absolute drift found by the last run
	ReconciliationDriftUSDT = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconciliation",
			Name:      "drift_usdt",
			Help:      "Sum of absolute balance drift in USDT",
		},
	)

	// PackageCacheTotal counts package catalog cache lookups
	PackageCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "cache_lookups_total",
			Help:      "Package catalog cache lookups by result",
		},
		[]string{"result"},
	)

	// DatabaseConnectionsGauge tracks the sql pool by state
	DatabaseConnectionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "connections",
			Help:      "Database pool connections by state",
		},
		[]string{"state"},
	)
)
