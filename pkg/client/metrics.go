package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for API client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "idp_requests_total",
		Help: "Total identity-provider API requests by method, endpoint and status",
	}, []string{"method", "endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "idp_request_duration_seconds",
		Help:    "Identity-provider API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"method", "endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "idp_errors_total",
		Help: "Total identity-provider API errors by class",
	}, []string{"class"})

	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "idp_rate_limit_retries_total",
		Help: "Total number of requests repeated after a 429 response",
	})

	retryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "idp_rate_limit_retries_exhausted_total",
		Help: "Total number of requests abandoned after repeated 429 responses",
	})
)
