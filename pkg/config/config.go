package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete dittogrid configuration.
//
// This structure captures all configurable aspects of dittogrid including:
//   - Logging configuration
//   - Backing store selection and configuration (store-specific)
//   - GridFS defaults (root prefix, content type, chunk size)
//   - Metrics collection
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (DITTOGRID_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each store implementation defines its own configuration type and factory function.
// The Config struct contains type-specific sections (e.g., store.badger, store.s3)
// and only the section matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Store specifies the backing store type and type-specific configuration
	Store StoreConfig `mapstructure:"store" yaml:"store"`

	// GridFS contains the defaults applied to files created through the bucket
	GridFS GridFSConfig `mapstructure:"gridfs" yaml:"gridfs"`

	// Metrics controls Prometheus metrics collection
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// StoreConfig specifies backing store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type StoreConfig struct {
	// Type specifies which store implementation to use
	// Valid values: memory, badger, mongo, s3
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory badger mongo s3"`

	// RateLimit throttles every round trip to the store
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger"`

	// Mongo contains MongoDB-specific configuration
	// Only used when Type = "mongo"
	Mongo map[string]any `mapstructure:"mongo" yaml:"mongo"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3" yaml:"s3"`
}

// RateLimitConfig configures the token bucket in front of the store.
// Zero values mean unlimited.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate of store calls
	RequestsPerSecond uint `mapstructure:"requests_per_second" yaml:"requests_per_second"`

	// Burst is the number of calls allowed above the sustained rate
	Burst uint `mapstructure:"burst" yaml:"burst"`
}

// GridFSConfig contains defaults for the GridFS bucket.
type GridFSConfig struct {
	// Root is the collection prefix (<root>.files, <root>.chunks)
	Root string `mapstructure:"root" yaml:"root" validate:"required,excludes=/"`

	// ContentType is stamped on new files without an explicit one
	ContentType string `mapstructure:"content_type" yaml:"content_type" validate:"required"`

	// ChunkSize is the chunk size in bytes for new files
	ChunkSize int `mapstructure:"chunk_size" yaml:"chunk_size" validate:"required,gt=0,lte=2147483647"`

	// UnlinkConcurrency bounds parallel removals when deleting many files
	UnlinkConcurrency int `mapstructure:"unlink_concurrency" yaml:"unlink_concurrency" validate:"required,gt=0,lte=1024"`
}

// MetricsConfig controls metrics collection.
type MetricsConfig struct {
	// Enabled turns on the Prometheus registry
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DITTOGRID_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Configure viper
	setupViper(v, configPath)

	// Read configuration file if it exists
	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults for any missing values
	ApplyDefaults(&cfg)

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// envKeys lists the keys that can be set through the environment even
// when the config file does not mention them. viper's AutomaticEnv only
// consults the environment for keys it already knows about.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.output",
	"store.type",
	"store.rate_limit.requests_per_second",
	"store.rate_limit.burst",
	"gridfs.root",
	"gridfs.content_type",
	"gridfs.chunk_size",
	"gridfs.unlink_concurrency",
	"metrics.enabled",
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Set up environment variable support
	// Environment variables use DITTOGRID_ prefix and underscores
	// Example: DITTOGRID_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("DITTOGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// Configure config file search
	if configPath != "" {
		// Use explicitly specified config file
		v.SetConfigFile(configPath)
	} else {
		// Use default location: $XDG_CONFIG_HOME/dittogrid/config.yaml
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// Check if error is "config file not found"
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is acceptable - use defaults
			return nil
		}
		// Other errors are problems
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	// Check XDG_CONFIG_HOME
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dittogrid")
	}

	// Fall back to ~/.config
	home, err := os.UserHomeDir()
	if err != nil {
		// If we can't get home dir, use current directory as last resort
		return "."
	}

	return filepath.Join(home, ".config", "dittogrid")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
