package table

import (
	"time"

	"datatables/identity"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts table operations. A nil *Metrics records nothing.
type Metrics struct {
	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	Rows       *prometheus.CounterVec
}

// NewMetrics creates the table metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "datatable",
				Name:      "operations_total",
				Help:      "Total number of table operations",
			},
			[]string{"operation", "status"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "datatable",
				Name:      "operation_duration_seconds",
				Help:      "Table operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		Rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "datatable",
				Name:      "fixed_rows_total",
				Help:      "Rows reconciled by Fix, by outcome",
			},
			[]string{"outcome"},
		),
	}

	reg.MustRegister(m.Operations, m.Duration, m.Rows)

	return m
}

// WithMetrics records operations in m.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func (m *Metrics) observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
	}

	m.Operations.WithLabelValues(operation, status).Inc()
	m.Duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) fixed(stats identity.Stats) {
	if m == nil {
		return
	}

	m.Rows.WithLabelValues("merged").Add(float64(stats.Merged))
	m.Rows.WithLabelValues("adopted").Add(float64(stats.Adopted))
	m.Rows.WithLabelValues("dropped").Add(float64(stats.Dropped))
}
