package explore

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects exploration counters. A nil *Metrics records nothing.
type Metrics struct {
	scenarios  *prometheus.CounterVec
	violations *prometheus.CounterVec
	envelopes  *prometheus.CounterVec
	drain      prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		scenarios: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "faultnet",
			Subsystem: "explore",
			Name:      "scenarios_total",
			Help:      "Scenarios executed, by outcome.",
		}, []string{"outcome"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "faultnet",
			Subsystem: "explore",
			Name:      "violations_total",
			Help:      "Violations detected, by type.",
		}, []string{"type"}),
		envelopes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "faultnet",
			Subsystem: "network",
			Name:      "envelopes_total",
			Help:      "Envelopes handled by simulated networks, by fate.",
		}, []string{"fate"}),
		drain: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "faultnet",
			Subsystem: "explore",
			Name:      "drain_sweeps",
			Help:      "Receive sweeps needed to drain the network after healing.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}

	reg.MustRegister(m.scenarios, m.violations, m.envelopes, m.drain)
	return m
}

// Observe records a finished scenario.
func (m *Metrics) Observe(r Result) {
	if m == nil {
		return
	}

	outcome := "pass"
	if !r.Success {
		outcome = "fail"
	}
	m.scenarios.WithLabelValues(outcome).Inc()

	for _, v := range r.Violations {
		m.violations.WithLabelValues(v.Type.String()).Inc()
	}

	m.envelopes.WithLabelValues("enqueued").Add(float64(r.Stats.Enqueued))
	m.envelopes.WithLabelValues("duplicated").Add(float64(r.Stats.Duplicates))
	m.envelopes.WithLabelValues("dropped").Add(float64(r.Stats.Dropped))
	m.envelopes.WithLabelValues("delivered").Add(float64(r.Stats.Delivered))

	m.drain.Observe(float64(r.DrainRounds))
}
