// Package metrics exports Prometheus collectors for the GridFS layer and the
// backing stores beneath it.
//
// Two groups of families are registered, each on first use:
//
//	NewGridFSMetrics   dittogrid_gridfs_operations_total{operation,status}
//	                   dittogrid_gridfs_operation_duration_seconds{operation}
//	                   dittogrid_gridfs_read_bytes_total
//	                   dittogrid_gridfs_write_bytes_total
//	                   dittogrid_gridfs_chunks_persisted_total
//	NewStoreMetrics    dittogrid_store_operations_total{store_type,collection,operation,status}
//	                   dittogrid_store_operation_duration_seconds{store_type,operation}
//
// Operation labels are the handle and bucket verbs ("open", "write", "close",
// "unlink", ...) and the store calls ("find", "save", "remove",
// "create_index", "command").
//
// Until InitRegistry runs, both constructors return nil and gridfs.Bucket and
// store.Instrument fall back to their no-op hooks:
//
//	metrics.InitRegistry() // when metrics.enabled is set
//	db = store.Instrument(db, metrics.NewStoreMetrics("badger"))
//	bucket := gridfs.NewBucket(db, gridfs.BucketOptions{Metrics: metrics.NewGridFSMetrics()})
//
// The CLI has no scrape endpoint; --dump-metrics prints Gather's result when a
// command ends.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

var (
	// registry is written once by InitRegistry and read afterwards
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry enables metrics by creating the process-wide registry.
// Calls after the first are ignored, so the collectors created by the
// constructors stay registered on a single registry.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the registry, or nil while metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has run.
func IsEnabled() bool {
	return GetRegistry() != nil
}

// Gather snapshots every gridfs and store family registered so far.
//
// Returns nil when metrics are disabled.
func Gather() ([]*dto.MetricFamily, error) {
	reg := GetRegistry()
	if reg == nil {
		return nil, nil
	}
	return reg.Gather()
}
