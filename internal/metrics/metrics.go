package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for airdropd
type Metrics struct {
	// Payment counters
	PaymentsSubmittedTotal *prometheus.CounterVec
	PaymentsConfirmedTotal *prometheus.CounterVec
	PaymentsFailedTotal    *prometheus.CounterVec
	PaymentsSkippedTotal   *prometheus.CounterVec
	FeesPaidXRPTotal       prometheus.Counter

	// Campaign gauges
	CampaignsRunning prometheus.Gauge
	PacerWaitSeconds prometheus.Gauge

	// API metrics
	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates a Metrics instance with all metrics registered on a private
// registry, so independent instances never collide.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		PaymentsSubmittedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "airdropd_payments_submitted_total",
				Help: "Total number of payments submitted to the ledger",
			},
			[]string{"currency"},
		),
		PaymentsConfirmedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "airdropd_payments_confirmed_total",
				Help: "Total number of payments confirmed in a validated ledger",
			},
			[]string{"currency"},
		),
		PaymentsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "airdropd_payments_failed_total",
				Help: "Total number of failed payment units",
			},
			[]string{"currency", "reason"},
		),
		PaymentsSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "airdropd_payments_skipped_total",
				Help: "Total number of units skipped as already completed on resume",
			},
			[]string{"currency"},
		),
		FeesPaidXRPTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "airdropd_fees_paid_xrp_total",
				Help: "Total network fees paid in XRP",
			},
		),
		CampaignsRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "airdropd_campaigns_running",
				Help: "Number of campaigns currently executing",
			},
		),
		PacerWaitSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "airdropd_pacer_wait_seconds",
				Help: "Remaining seconds of the current pacing wait",
			},
		),
		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "airdropd_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "airdropd_api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.PaymentsSubmittedTotal,
		m.PaymentsConfirmedTotal,
		m.PaymentsFailedTotal,
		m.PaymentsSkippedTotal,
		m.FeesPaidXRPTotal,
		m.CampaignsRunning,
		m.PacerWaitSeconds,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
	)

	return m
}

// Handler returns the HTTP handler exposing this instance's registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
