// Package metrics exposes Prometheus instrumentation for the circuit registry.
package metrics

import (
	"fmt"
	"net/http"

	"PlayLine/internal/model"
	perrors "PlayLine/pkg/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "playline"

// Gauge values of playline_circuit_state.
const (
	StateValueClosed   = 0
	StateValueHalfOpen = 1
	StateValueOpen     = 2
)

// CircuitMetrics records breaker activity. It is attached to every breaker
// as a listener, execution observer and eviction observer.
type CircuitMetrics struct {
	State            *prometheus.GaugeVec
	Transitions      *prometheus.CounterVec
	Failures         *prometheus.CounterVec
	Executions       *prometheus.CounterVec
	ExecutionLatency *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewRegistry returns a registry preloaded with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewCircuitMetrics creates the circuit collectors and registers them on reg.
func NewCircuitMetrics(reg *prometheus.Registry) (*CircuitMetrics, error) {
	m := &CircuitMetrics{
		State: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "circuit",
				Name:      "state",
				Help:      "Current circuit state per endpoint (0 closed, 1 half-open, 2 open)",
			},
			[]string{"breaker", "endpoint"},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "circuit",
				Name:      "transitions_total",
				Help:      "Total number of circuit state transitions",
			},
			[]string{"breaker", "from", "to"},
		),
		Failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "circuit",
				Name:      "failures_total",
				Help:      "Total number of recorded upstream failures",
			},
			[]string{"breaker", "kind"},
		),
		Executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "circuit",
				Name:      "executions_total",
				Help:      "Total number of protected executions by result source",
			},
			[]string{"breaker", "source"},
		),
		ExecutionLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "circuit",
				Name:      "execution_latency_seconds",
				Help:      "Latency of protected executions including fallback",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"breaker"},
		),
		gatherer: reg,
	}

	for _, c := range []prometheus.Collector{m.State, m.Transitions, m.Failures, m.Executions, m.ExecutionLatency} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register circuit metrics: %w", err)
		}
	}

	return m, nil
}

// OnStateChange updates the state gauge and counts the transition.
func (m *CircuitMetrics) OnStateChange(ev model.TransitionEvent) {
	m.State.WithLabelValues(ev.Breaker, ev.Endpoint).Set(stateValue(ev.To))
	m.Transitions.WithLabelValues(ev.Breaker, ev.From.String(), ev.To.String()).Inc()
}

// OnEvict drops the state series of an endpoint the breaker no longer tracks.
func (m *CircuitMetrics) OnEvict(ev model.EvictionEvent) {
	m.State.DeleteLabelValues(ev.Breaker, ev.Endpoint)
}

// OnFailure counts the failure by kind.
func (m *CircuitMetrics) OnFailure(ev model.FailureEvent) {
	kind := ev.Kind
	if kind == "" {
		kind = string(perrors.Classify(ev.Err))
	}
	m.Failures.WithLabelValues(ev.Breaker, kind).Inc()
}

// OnExecution counts the execution and observes its latency.
func (m *CircuitMetrics) OnExecution(ev model.ExecutionEvent) {
	m.Executions.WithLabelValues(ev.Breaker, ev.Source).Inc()
	m.ExecutionLatency.WithLabelValues(ev.Breaker).Observe(ev.Latency.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *CircuitMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func stateValue(s model.CircuitState) float64 {
	switch s {
	case model.StateOpen:
		return StateValueOpen
	case model.StateHalfOpen:
		return StateValueHalfOpen
	default:
		return StateValueClosed
	}
}
