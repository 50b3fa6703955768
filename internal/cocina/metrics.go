package cocina

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the mapper. All methods are nil-safe.
type Metrics struct {
	Mapped   *prometheus.CounterVec
	Failures *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Mapped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dor_cocina_mapped_total",
			Help: "Objects mapped to Cocina, by variant",
		}, []string{"variant"}),
		Failures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dor_cocina_mapping_failures_total",
			Help: "Objects that could not be mapped, by variant",
		}, []string{"variant"}),
	}
}

func (m *Metrics) IncrementMapped(variant string) {
	if m == nil {
		return
	}
	m.Mapped.WithLabelValues(variant).Inc()
}

func (m *Metrics) IncrementFailure(variant string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(variant).Inc()
}
