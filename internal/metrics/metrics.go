// Package metrics holds the Prometheus instruments for alert runs,
// deliveries, provider calls and the HTTP surface. Instruments register on
// the default registry and are served by the API's /metrics route.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Alert runs
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yardgoats_alert_runs_total",
			Help: "Alert runs by outcome",
		},
		[]string{"outcome"}, // "ok", "partial", "failed", "aborted", "error"
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "yardgoats_alert_run_duration_seconds",
			Help:    "Wall time of an alert run",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	LastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "yardgoats_alert_last_run_timestamp_seconds",
			Help: "Unix time the last alert run finished",
		},
	)

	LastRunAlertsSent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "yardgoats_alert_last_run_alerts_sent",
			Help: "Successful sends in the last alert run",
		},
	)

	// Deliveries
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yardgoats_deliveries_total",
			Help: "Delivery attempts by channel and result",
		},
		[]string{"channel", "result"}, // result: "sent", "failed", "skipped"
	)

	// Providers
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yardgoats_provider_requests_total",
			Help: "Outbound provider calls by provider and result",
		},
		[]string{"provider", "result"}, // result: "ok", "error"
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yardgoats_provider_request_duration_seconds",
			Help:    "Outbound provider call latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "yardgoats_circuit_breaker_state",
			Help: "Circuit breaker state per provider (0=closed, 1=half-open, 2=open)",
		},
		[]string{"provider"},
	)

	// Maintenance
	LedgerPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "yardgoats_ledger_pruned_total",
			Help: "Ledger rows removed by retention cleanup",
		},
	)

	// HTTP
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yardgoats_api_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)
)

// RecordDelivery counts one dispatcher result.
func RecordDelivery(channel, result string) {
	DeliveriesTotal.WithLabelValues(channel, result).Inc()
}

// RecordProviderCall counts one outbound provider request and its latency.
func RecordProviderCall(provider string, duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ProviderRequests.WithLabelValues(provider, result).Inc()
	ProviderLatency.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordRun records the end of an alert run.
func RecordRun(outcome string, duration time.Duration, alertsSent int) {
	RunsTotal.WithLabelValues(outcome).Inc()
	RunDuration.Observe(duration.Seconds())
	LastRunTimestamp.SetToCurrentTime()
	LastRunAlertsSent.Set(float64(alertsSent))
}

// SetBreakerState publishes a breaker transition; state follows gobreaker's
// numbering.
func SetBreakerState(provider string, state int) {
	BreakerState.WithLabelValues(provider).Set(float64(state))
}
