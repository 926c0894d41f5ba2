package core

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/JonMunkholm/monisenforest/internal/check"
	"github.com/JonMunkholm/monisenforest/internal/record"
)

// Metrics holds the counters the service updates after every check.
type Metrics struct {
	checks     *prometheus.CounterVec
	findings   *prometheus.CounterVec
	suppressed *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates the check metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "monisenforest",
			Name:      "checks_total",
			Help:      "Datasets checked, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "monisenforest",
			Name:      "findings_total",
			Help:      "Findings reported, by kind, rule and severity.",
		}, []string{"kind", "rule", "severity"}),
		suppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "monisenforest",
			Name:      "findings_suppressed_total",
			Help:      "Findings removed by the suppression list.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "monisenforest",
			Name:      "check_duration_seconds",
			Help:      "Time spent running the rules of one dataset.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.checks, m.findings, m.suppressed, m.duration)
	}
	return m
}

func (m *Metrics) observe(r *Report) {
	kind := string(r.Kind)
	m.checks.WithLabelValues(kind, "ok").Inc()
	m.duration.WithLabelValues(kind).Observe(r.Duration.Seconds())
	if r.Suppressed > 0 {
		m.suppressed.WithLabelValues(kind).Add(float64(r.Suppressed))
	}
	for _, f := range r.Findings {
		m.findings.WithLabelValues(kind, string(f.Rule), string(f.Severity)).Inc()
	}
}

func (m *Metrics) failed(kind record.Kind, err error) {
	outcome := "error"
	switch {
	case check.IsSchemaError(err):
		outcome = "schema_error"
	case check.IsConfigError(err):
		outcome = "config_error"
	}
	m.checks.WithLabelValues(string(kind), outcome).Inc()
}
