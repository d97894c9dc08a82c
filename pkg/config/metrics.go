package config

import (
	"github.com/marmos91/dittogrid/pkg/metrics"
)

// InitializeMetrics initializes the global Prometheus registry when metrics
// are enabled in the configuration.
//
// It must run before CreateDatabase and CreateBucket: both ask pkg/metrics
// for collectors and get nil (no-op) ones while the registry is absent.
//
// Parameters:
//   - cfg: The complete dittogrid configuration
//
// Returns:
//   - bool: true if metrics are being collected
func InitializeMetrics(cfg *Config) bool {
	if !cfg.Metrics.Enabled {
		return false
	}

	metrics.InitRegistry()
	return true
}
