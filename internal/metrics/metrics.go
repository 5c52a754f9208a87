package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Query paths for owner wallet reads.
const (
	PathRemote   = "remote"
	PathFallback = "fallback"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coffee_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coffee_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	WalletQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coffee_owner_wallet_queries_total",
			Help: "Owner wallet reads by operation, query path and outcome",
		},
		[]string{"op", "path", "outcome"},
	)

	WalletQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coffee_owner_wallet_query_duration_seconds",
			Help:    "Owner wallet read duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op", "path"},
	)

	LedgerDiscrepanciesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coffee_wallet_ledger_discrepancies_total",
			Help: "Reconciliations that found a broken ledger chain or balance mismatch",
		},
	)

	ConcurrencyRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coffee_owner_concurrency_rejections_total",
			Help: "Requests rejected by the per-owner concurrency cap",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordWalletQuery counts one strategy attempt. outcome is "ok" or an error class.
func RecordWalletQuery(op, path, outcome string, duration float64) {
	WalletQueriesTotal.WithLabelValues(op, path, outcome).Inc()
	WalletQueryDuration.WithLabelValues(op, path).Observe(duration)
}

func RecordLedgerDiscrepancy() {
	LedgerDiscrepanciesTotal.Inc()
}

func RecordConcurrencyRejection() {
	ConcurrencyRejectionsTotal.Inc()
}
