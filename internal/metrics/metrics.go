// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Generation outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeStale   = "stale"
)

var (
	// RequestsTotal counts HTTP requests by method, route, and status code.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "svg_arena_http_requests_total",
		Help: "Total HTTP requests processed.",
	}, []string{"method", "path", "status"})

	// GenerationsTotal counts settled provider calls by outcome.
	GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "svg_arena_generations_total",
		Help: "Provider calls settled, by provider, model and outcome.",
	}, []string{"provider", "model", "outcome"})

	// GenerationDuration tracks provider latency.
	GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "svg_arena_generation_duration_seconds",
		Help:    "Time spent waiting for a provider to return a drawing.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 50, 60},
	}, []string{"provider"})

	// InFlight is the number of provider calls currently running.
	InFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "svg_arena_generations_in_flight",
		Help: "Provider calls started but not yet settled.",
	})

	// RelayRequestsTotal counts relay responses by status code.
	RelayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "svg_arena_relay_requests_total",
		Help: "Relay responses by HTTP status.",
	}, []string{"status"})
)
