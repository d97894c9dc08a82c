package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/dittogrid/pkg/gridfs"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Store-specific defaults are handled by store implementations
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyStoreDefaults(&cfg.Store)
	applyGridFSDefaults(&cfg.GridFS)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyStoreDefaults sets backing store defaults.
func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "badger"
	}

	// Initialize maps if nil
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if cfg.Mongo == nil {
		cfg.Mongo = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}

	// Apply defaults for all store types (for config file generation)
	if _, ok := cfg.Badger["path"]; !ok {
		cfg.Badger["path"] = defaultDataDir()
	}
	if _, ok := cfg.Mongo["uri"]; !ok {
		cfg.Mongo["uri"] = "mongodb://localhost:27017"
	}
	if _, ok := cfg.Mongo["database"]; !ok {
		cfg.Mongo["database"] = "dittogrid"
	}
	if _, ok := cfg.S3["region"]; !ok {
		cfg.S3["region"] = "us-east-1"
	}
}

// applyGridFSDefaults sets GridFS bucket defaults.
func applyGridFSDefaults(cfg *GridFSConfig) {
	if cfg.Root == "" {
		cfg.Root = gridfs.DefaultRoot
	}
	if cfg.ContentType == "" {
		cfg.ContentType = gridfs.DefaultContentType
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = gridfs.DefaultChunkSize
	}
	if cfg.UnlinkConcurrency == 0 {
		cfg.UnlinkConcurrency = gridfs.DefaultUnlinkConcurrency
	}
}

// defaultDataDir returns where the badger store keeps its files by default:
// $XDG_DATA_HOME/dittogrid, ~/.local/share/dittogrid, or /tmp/dittogrid.
func defaultDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "dittogrid")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "dittogrid")
	}
	return filepath.Join(home, ".local", "share", "dittogrid")
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Store: StoreConfig{
			Badger: make(map[string]any),
			Mongo:  make(map[string]any),
			S3:     make(map[string]any),
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
