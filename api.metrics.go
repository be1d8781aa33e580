package main

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

var (
	// HTTP metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bcat_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bcat_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bcat_http_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)

	// ML metrics
	SummarizerDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bcat_summarizer_duration_seconds",
			Help:    "Duration of calls to the summarization model in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	SummarizerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bcat_summarizer_errors_total",
			Help: "Total number of failed summarization calls",
		},
		[]string{"reason"},
	)

	SummarizerBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bcat_summarizer_breaker_state",
			Help: "Summarizer circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bcat_recommendations_total",
			Help: "Total number of recommendations served by result",
		},
		[]string{"result"},
	)

	// Mirror metrics
	MirrorEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bcat_mirror_events_total",
			Help: "Total number of catalog events handled by the mirror",
		},
		[]string{"action", "outcome"},
	)
)

// RecordAPIRequest records a finished HTTP request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func breakerStateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
