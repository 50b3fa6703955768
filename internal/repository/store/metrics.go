package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	backendRedis    = "redis"
	backendPostgres = "postgres"
)

// Metrics for store round trips. All methods are nil-safe.
type Metrics struct {
	OperationDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dor_object_store_duration_ms",
			Help:    "Latency of object store operations in milliseconds",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
		}, []string{"backend", "operation"}),
	}
}

func (m *Metrics) ObserveOperation(backend, operation string, start time.Time) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(backend, operation).
		Observe(float64(time.Since(start).Microseconds()) / 1000.0)
}
