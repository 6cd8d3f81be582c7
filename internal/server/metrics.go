package server

import "github.com/prometheus/client_golang/prometheus"

var (
	runsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dropin_runs_written_total",
			Help: "Successful run writes by operation.",
		},
		[]string{"op"},
	)

	indexTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dropin_index_transitions_total",
			Help: "Active-index changes applied by updates.",
		},
		[]string{"action"},
	)

	eventPublishFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dropin_event_publish_failures_total",
			Help: "Lifecycle events that could not be published.",
		},
		[]string{"topic"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dropin_http_requests_total",
			Help: "HTTP requests by route and status code.",
		},
		[]string{"method", "route", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dropin_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dropin_http_rate_limited_total",
			Help: "Write requests rejected by the per-client limiter.",
		},
	)
)

func init() {
	prometheus.MustRegister(runsWritten)
	prometheus.MustRegister(indexTransitions)
	prometheus.MustRegister(eventPublishFailures)
	prometheus.MustRegister(httpRequests)
	prometheus.MustRegister(httpDuration)
	prometheus.MustRegister(rateLimited)
}
