package catalog

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for catalog calls. All methods are nil-safe.
type Metrics struct {
	FetchDuration *prometheus.HistogramVec
	Outcomes      *prometheus.CounterVec
	BreakerOpen   prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		FetchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dor_catalog_fetch_duration_seconds",
			Help:    "Latency of Symphony and barcode search calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"operation"}),
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dor_catalog_fetch_outcomes_total",
			Help: "Catalog call outcomes by operation",
		}, []string{"operation", "outcome"}),
		BreakerOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dor_catalog_breaker_open",
			Help: "1 while the Symphony circuit breaker is open",
		}),
	}
}

func (m *Metrics) ObserveFetch(operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(operation).Observe(d.Seconds())
	m.Outcomes.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerOpen.Set(1)
		return
	}
	m.BreakerOpen.Set(0)
}
