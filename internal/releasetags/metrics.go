package releasetags

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for release resolution. All methods are nil-safe.
type Metrics struct {
	AncestorDepth prometheus.Histogram
	Failures      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		AncestorDepth: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dor_release_ancestor_depth",
			Help:    "Deepest collection ancestry walked per resolution",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		}),
		Failures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dor_release_resolution_failures_total",
			Help: "Release resolutions that failed, by reason",
		}, []string{"reason"}),
	}
}

func (m *Metrics) ObserveDepth(depth int) {
	if m == nil {
		return
	}
	m.AncestorDepth.Observe(float64(depth))
}

func (m *Metrics) IncrementFailure(reason string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(reason).Inc()
}
