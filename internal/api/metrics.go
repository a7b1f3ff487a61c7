package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// Metrics counts analyses per endpoint and outcome.
type Metrics struct {
	analyses *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ltiresp_analyses_total",
				Help: "Total number of analysis requests by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ltiresp_analysis_duration_seconds",
				Help:    "Duration of analysis requests",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"endpoint"},
		),
	}
	reg.MustRegister(m.analyses, m.duration)
	return m
}

func (m *Metrics) observe(endpoint string, start time.Time, err error) {
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeError
	}
	m.analyses.WithLabelValues(endpoint, outcome).Inc()
	m.duration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
