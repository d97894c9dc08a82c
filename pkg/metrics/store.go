package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/dittogrid/pkg/store"
)

// storeCollectors are shared by every storeMetrics; the store type is a
// label.
type storeCollectors struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// storeMetrics is the Prometheus implementation of store.Metrics.
type storeMetrics struct {
	*storeCollectors
	storeType string
}

var (
	storeOnce       sync.Once
	storeCollection *storeCollectors
)

// NewStoreMetrics creates a new Prometheus-backed store.Metrics instance.
//
// Parameters:
//   - storeType: Type of backing store (e.g., "memory", "badger", "s3")
//     Used as a label to distinguish metrics from different adapters.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// makes store.Instrument a no-op.
func NewStoreMetrics(storeType string) store.Metrics {
	if !IsEnabled() {
		return nil
	}
	storeOnce.Do(func() {
		storeCollection = newStoreCollectors(GetRegistry())
	})
	return &storeMetrics{storeCollectors: storeCollection, storeType: storeType}
}

func newStoreCollectors(reg prometheus.Registerer) *storeCollectors {
	return &storeCollectors{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittogrid_store_operations_total",
				Help: "Total number of backing store operations by store type, collection, operation, and status",
			},
			[]string{"store_type", "collection", "operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittogrid_store_operation_duration_seconds",
				Help: "Duration of backing store operations in seconds",
				Buckets: []float64{
					0.0001, // 100µs
					0.0005, // 500µs
					0.001,  // 1ms
					0.005,  // 5ms
					0.01,   // 10ms
					0.025,  // 25ms
					0.05,   // 50ms
					0.1,    // 100ms
					0.25,   // 250ms
					0.5,    // 500ms
					1.0,    // 1s
				},
			},
			[]string{"store_type", "operation"},
		),
	}
}

// RecordOperation implements store.Metrics.RecordOperation
func (m *storeMetrics) RecordOperation(collection, operation string, duration time.Duration, err error) {
	m.operationsTotal.WithLabelValues(m.storeType, collection, operation, status(err)).Inc()
	m.operationDuration.WithLabelValues(m.storeType, operation).Observe(duration.Seconds())
}
