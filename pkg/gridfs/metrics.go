package gridfs

import "time"

// Metrics receives GridFS observations. pkg/metrics provides a Prometheus
// implementation; a nil Metrics disables collection.
type Metrics interface {
	// ObserveOperation records one operation ("open", "write", "read",
	// "seek", "close", "unlink", ...) with its duration and outcome.
	ObserveOperation(op string, duration time.Duration, err error)

	// RecordBytesRead adds n bytes returned to readers.
	RecordBytesRead(n int)

	// RecordBytesWritten adds n bytes accepted from writers.
	RecordBytesWritten(n int)

	// RecordChunkPersisted counts one chunk saved to the backing store.
	RecordChunkPersisted()
}

// noopMetrics is used when no Metrics is configured.
type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, time.Duration, error) {}
func (noopMetrics) RecordBytesRead(int)                          {}
func (noopMetrics) RecordBytesWritten(int)                       {}
func (noopMetrics) RecordChunkPersisted()                        {}

func metricsOrNoop(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
