// Package metrics records compilation metrics with Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements ports.MetricsRecorder.
type Prometheus struct {
	expansions  *prometheus.CounterVec
	diagnostics *prometheus.CounterVec
	passes      *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		expansions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weft_expansions_total",
				Help: "Total number of compound instances expanded",
			},
			[]string{"class"},
		),
		diagnostics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weft_diagnostics_total",
				Help: "Total number of diagnostics reported",
			},
			[]string{"kind", "severity"},
		),
		passes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "weft_pass_duration_seconds",
				Help:    "Duration of compilation passes",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"pass"},
		),
	}
	for _, c := range []prometheus.Collector{p.expansions, p.diagnostics, p.passes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) Expansion(class string) {
	p.expansions.WithLabelValues(class).Inc()
}

func (p *Prometheus) Diagnostic(kind, severity string) {
	p.diagnostics.WithLabelValues(kind, severity).Inc()
}

func (p *Prometheus) PassDuration(pass string, d time.Duration) {
	p.passes.WithLabelValues(pass).Observe(d.Seconds())
}

// Nop discards everything.
type Nop struct{}

func (Nop) Expansion(string)                   {}
func (Nop) Diagnostic(string, string)          {}
func (Nop) PassDuration(string, time.Duration) {}
