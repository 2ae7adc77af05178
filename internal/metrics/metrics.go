package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contactdesk_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contactdesk_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	// Business metrics
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contactdesk_submissions_total",
			Help: "Contact submissions by outcome",
		},
		[]string{"outcome"}, // accepted, malformed, missing_field, storage_failure
	)

	SubmissionCategories = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contactdesk_submission_categories_total",
			Help: "Accepted submissions by triage category",
		},
		[]string{"category", "source"},
	)

	Listings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contactdesk_listings_total",
			Help: "Message listings served to operators",
		},
		[]string{"outcome"},
	)

	Logins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contactdesk_logins_total",
			Help: "Operator login attempts",
		},
		[]string{"outcome"},
	)

	LiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "contactdesk_live_subscribers",
			Help: "Connected live feed subscribers",
		},
	)

	// Infrastructure metrics
	StoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contactdesk_store_latency_seconds",
			Help:    "Storage gateway operation latency",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .5},
		},
		[]string{"driver", "op"},
	)
)
