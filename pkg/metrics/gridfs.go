package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/dittogrid/pkg/gridfs"
)

// gridfsMetrics is the Prometheus implementation of gridfs.Metrics.
//
// This implementation collects:
//   - Operation counts by operation and status
//   - Operation latency
//   - Bytes read and written through file handles
//   - Chunks persisted to the backing store
type gridfsMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesRead         prometheus.Counter
	bytesWritten      prometheus.Counter
	chunksPersisted   prometheus.Counter
}

var (
	gridfsOnce     sync.Once
	gridfsInstance *gridfsMetrics
)

// NewGridFSMetrics returns the Prometheus-backed gridfs.Metrics instance.
//
// The collectors are registered once; later calls share them.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// makes the bucket use its built-in no-op implementation.
func NewGridFSMetrics() gridfs.Metrics {
	if !IsEnabled() {
		return nil
	}
	gridfsOnce.Do(func() {
		gridfsInstance = newGridFSMetrics(GetRegistry())
	})
	return gridfsInstance
}

func newGridFSMetrics(reg prometheus.Registerer) *gridfsMetrics {
	return &gridfsMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittogrid_gridfs_operations_total",
				Help: "Total number of GridFS operations by operation and status",
			},
			[]string{"operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittogrid_gridfs_operation_duration_seconds",
				Help: "Duration of GridFS operations in seconds",
				Buckets: []float64{
					0.0001, // 100µs
					0.0005, // 500µs
					0.001,  // 1ms
					0.005,  // 5ms
					0.01,   // 10ms
					0.05,   // 50ms
					0.1,    // 100ms
					0.5,    // 500ms
					1.0,    // 1s
					5.0,    // 5s
				},
			},
			[]string{"operation"},
		),
		bytesRead: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittogrid_gridfs_read_bytes_total",
				Help: "Total bytes returned to GridFS readers",
			},
		),
		bytesWritten: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittogrid_gridfs_write_bytes_total",
				Help: "Total bytes accepted from GridFS writers",
			},
		),
		chunksPersisted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittogrid_gridfs_chunks_persisted_total",
				Help: "Total number of chunks saved to the backing store",
			},
		),
	}
}

// ObserveOperation implements gridfs.Metrics.ObserveOperation
func (m *gridfsMetrics) ObserveOperation(op string, duration time.Duration, err error) {
	m.operationsTotal.WithLabelValues(op, status(err)).Inc()
	m.operationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordBytesRead implements gridfs.Metrics.RecordBytesRead
func (m *gridfsMetrics) RecordBytesRead(n int) {
	m.bytesRead.Add(float64(n))
}

// RecordBytesWritten implements gridfs.Metrics.RecordBytesWritten
func (m *gridfsMetrics) RecordBytesWritten(n int) {
	m.bytesWritten.Add(float64(n))
}

// RecordChunkPersisted implements gridfs.Metrics.RecordChunkPersisted
func (m *gridfsMetrics) RecordChunkPersisted() {
	m.chunksPersisted.Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
