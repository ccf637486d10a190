package resolver

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the resolver's Prometheus collectors.
type Metrics struct {
	PassesTotal           *prometheus.CounterVec
	ActivationsTotal      prometheus.Counter
	TieBreaksTotal        prometheus.Counter
	BackendBindingsTotal  prometheus.Counter
	BackendDeferralsTotal prometheus.Counter
	PassDuration          prometheus.Histogram
}

// NewMetrics creates the resolver collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PassesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "depres_resolver_passes_total",
				Help: "Number of resolution passes by outcome (ok or error code).",
			},
			[]string{"outcome"},
		),
		ActivationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "depres_resolver_activations_total",
				Help: "Total number of module functions activated.",
			},
		),
		TieBreaksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "depres_resolver_model_tiebreaks_total",
				Help: "Number of requirements narrowed by the model-specificity tie-break.",
			},
		),
		BackendBindingsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "depres_resolver_backend_bindings_total",
				Help: "Total number of backend requirements bound.",
			},
		),
		BackendDeferralsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "depres_resolver_backend_deferrals_total",
				Help: "Number of backend requirement decisions deferred to a later round.",
			},
		),
		PassDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "depres_resolver_pass_duration_seconds",
				Help:    "Time taken by one resolution pass.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.PassesTotal,
			m.ActivationsTotal,
			m.TieBreaksTotal,
			m.BackendBindingsTotal,
			m.BackendDeferralsTotal,
			m.PassDuration,
		)
	}
	return m
}
