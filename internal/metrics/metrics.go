// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "horoscase"

// Label names
const (
	LabelMethod = "method"
	LabelPath   = "path"
	LabelStatus = "status"
	LabelCase   = "case"
	LabelTier   = "tier"
)

// HTTPLatencyBuckets are tuned for JSON handlers backed by a single database round trip.
var HTTPLatencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being served",
		},
	)
)

// Business metrics
var (
	CasesOpened = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cases_opened_total",
			Help:      "Total number of cases opened, by case and drawn tier",
		},
		[]string{LabelCase, LabelTier},
	)

	ItemsSold = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_sold_total",
			Help:      "Total number of inventory items sold back",
		},
		[]string{LabelTier},
	)

	ItemsGifted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_gifted_total",
			Help:      "Total number of items gifted between users",
		},
	)

	MoneyDeposited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "money_deposited_cents_total",
			Help:      "Total money deposited into wallets, in minor units",
		},
	)

	MoneySpent = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "money_spent_cents_total",
			Help:      "Total money spent opening cases, in minor units",
		},
	)

	Registrations = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Total number of completed registrations",
		},
	)
)
