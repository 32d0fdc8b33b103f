// Package metrics exposes Prometheus instrumentation for plan execution,
// routing and the transformation interpreter.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	registry *prometheus.Registry

	// Plan metrics
	PlansProposedTotal  prometheus.Counter
	PlansApprovedTotal  prometheus.Counter
	PlansDiscardedTotal prometheus.Counter
	PlanExecutionsTotal prometheus.Counter

	// Step metrics
	StepExecutionsTotal   *prometheus.CounterVec
	StepDuration          *prometheus.HistogramVec
	ObservationKindsTotal *prometheus.CounterVec

	// Routing metrics
	RoutingDecisionsTotal *prometheus.CounterVec

	// Interpreter metrics
	SnippetRunsTotal        *prometheus.CounterVec
	ContractRejectionsTotal prometheus.Counter

	// Snapshot metrics
	SnapshotLoadsTotal   *prometheus.CounterVec
	SnapshotLoadDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		PlansProposedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "plans_proposed_total",
				Help: "Total number of plans proposed",
			},
		),
		PlansApprovedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "plans_approved_total",
				Help: "Total number of plans approved",
			},
		),
		PlansDiscardedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "plans_discarded_total",
				Help: "Total number of plans discarded",
			},
		),
		PlanExecutionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "plan_executions_total",
				Help: "Total number of plan execution attempts",
			},
		),

		StepExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "step_executions_total",
				Help: "Total number of step executions",
			},
			[]string{"tool", "status"},
		),
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "step_duration_seconds",
				Help:    "Duration of step executions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		ObservationKindsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "observation_kinds_total",
				Help: "Total number of normalized observations by kind",
			},
			[]string{"kind"},
		),

		RoutingDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routing_decisions_total",
				Help: "Total number of routing decisions",
			},
			[]string{"mode"},
		),

		SnippetRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snippet_runs_total",
				Help: "Total number of transformation snippet runs",
			},
			[]string{"status"},
		),
		ContractRejectionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "contract_rejections_total",
				Help: "Total number of generated snippets rejected by the contract validator",
			},
		),

		SnapshotLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapshot_loads_total",
				Help: "Total number of snapshot loads",
			},
			[]string{"status"},
		),
		SnapshotLoadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "snapshot_load_duration_seconds",
				Help:    "Duration of snapshot loads in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	m.registerMetrics()
	return m
}

func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.PlansProposedTotal)
	m.registry.MustRegister(m.PlansApprovedTotal)
	m.registry.MustRegister(m.PlansDiscardedTotal)
	m.registry.MustRegister(m.PlanExecutionsTotal)

	m.registry.MustRegister(m.StepExecutionsTotal)
	m.registry.MustRegister(m.StepDuration)
	m.registry.MustRegister(m.ObservationKindsTotal)

	m.registry.MustRegister(m.RoutingDecisionsTotal)

	m.registry.MustRegister(m.SnippetRunsTotal)
	m.registry.MustRegister(m.ContractRejectionsTotal)

	m.registry.MustRegister(m.SnapshotLoadsTotal)
	m.registry.MustRegister(m.SnapshotLoadDuration)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
