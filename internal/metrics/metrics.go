// Package metrics exposes allocation counters and latencies in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Recorder observes allocation attempts.
type Recorder interface {
	ObserveAllocation(strategy, outcome string, elapsed time.Duration)
}

// Registry owns the service's collectors on a private Prometheus registry.
type Registry struct {
	registry    *prometheus.Registry
	allocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// New registers the allocation collectors plus Go runtime collectors.
func New() *Registry {
	reg := prometheus.NewRegistry()

	allocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gem_allocations_total",
		Help: "Allocation attempts by strategy and outcome.",
	}, []string{"strategy", "outcome"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gem_allocation_duration_seconds",
		Help:    "Time spent computing an allocation.",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
	}, []string{"strategy"})

	reg.MustRegister(
		allocations,
		duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Registry{
		registry:    reg,
		allocations: allocations,
		duration:    duration,
	}
}

// ObserveAllocation counts one attempt and records its latency.
func (r *Registry) ObserveAllocation(strategy, outcome string, elapsed time.Duration) {
	r.allocations.WithLabelValues(strategy, outcome).Inc()
	r.duration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Nop discards observations.
type Nop struct{}

// ObserveAllocation implements Recorder.
func (Nop) ObserveAllocation(string, string, time.Duration) {}
