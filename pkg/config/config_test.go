package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultConfig(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Write minimal config
	configContent := `
logging:
  level: "INFO"

store:
  type: "memory"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	// Load config
	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify defaults were applied
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Expected default output 'stderr', got %q", cfg.Logging.Output)
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("Expected store type 'memory', got %q", cfg.Store.Type)
	}
	if cfg.GridFS.Root != "fs" {
		t.Errorf("Expected default root 'fs', got %q", cfg.GridFS.Root)
	}
	if cfg.GridFS.ChunkSize != 256*1024 {
		t.Errorf("Expected default chunk size 262144, got %d", cfg.GridFS.ChunkSize)
	}
	if cfg.GridFS.ContentType != "text/plain" {
		t.Errorf("Expected default content type 'text/plain', got %q", cfg.GridFS.ContentType)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// Point XDG_CONFIG_HOME at an empty directory so the user's own config
	// in ~/.config/dittogrid/ is not picked up
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Expected no error with missing config file, got: %v", err)
	}

	if cfg.Store.Type != "badger" {
		t.Errorf("Expected default store type 'badger', got %q", cfg.Store.Type)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Write invalid YAML
	configContent := `
logging:
  level: INFO
  invalid yaml here [[[
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid YAML, got nil")
	}
}

func TestLoad_TOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	configContent := `
[logging]
level = "DEBUG"

[store]
type = "memory"

[gridfs]
root = "photos"
chunk_size = 1024
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected log level 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.GridFS.Root != "photos" {
		t.Errorf("Expected root 'photos', got %q", cfg.GridFS.Root)
	}
	if cfg.GridFS.ChunkSize != 1024 {
		t.Errorf("Expected chunk size 1024, got %d", cfg.GridFS.ChunkSize)
	}
}

func TestLoad_StoreSections(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
store:
  type: "s3"
  rate_limit:
    requests_per_second: 100
    burst: 200
  s3:
    region: "eu-west-1"
    bucket: "grid"
    key_prefix: "prod/"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Store.RateLimit.RequestsPerSecond != 100 || cfg.Store.RateLimit.Burst != 200 {
		t.Errorf("Unexpected rate limit: %+v", cfg.Store.RateLimit)
	}
	if cfg.Store.S3["bucket"] != "grid" {
		t.Errorf("Expected s3 bucket 'grid', got %v", cfg.Store.S3["bucket"])
	}
	if cfg.Store.S3["region"] != "eu-west-1" {
		t.Errorf("Explicit s3 region was overwritten: %v", cfg.Store.S3["region"])
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
store:
  type: "cassandra"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected validation error for unknown store type")
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Store.Type != "badger" {
		t.Errorf("Expected default store type 'badger', got %q", cfg.Store.Type)
	}
	if cfg.Store.Badger["path"] == "" {
		t.Error("Expected default badger path to be set")
	}
	if cfg.Store.Mongo["uri"] != "mongodb://localhost:27017" {
		t.Errorf("Unexpected default mongo uri: %v", cfg.Store.Mongo["uri"])
	}
	if cfg.GridFS.UnlinkConcurrency != 8 {
		t.Errorf("Expected default unlink concurrency 8, got %d", cfg.GridFS.UnlinkConcurrency)
	}
	if cfg.Metrics.Enabled {
		t.Error("Expected metrics to be disabled by default")
	}
}

func TestConfigExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if ConfigExists() {
		t.Fatal("Expected no config in an empty config dir")
	}
	if err := InitConfigToPath(GetDefaultConfigPath(), false); err != nil {
		t.Fatalf("InitConfigToPath failed: %v", err)
	}
	if !ConfigExists() {
		t.Fatal("Expected config to exist after init")
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	path := GetDefaultConfigPath()
	expected := filepath.Join(tmpDir, "dittogrid", "config.yaml")
	if path != expected {
		t.Errorf("Expected %q, got %q", expected, path)
	}
}

func TestGetConfigDir(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", tmpDir)

	dir := GetConfigDir()
	expected := filepath.Join(tmpDir, ".config", "dittogrid")
	if dir != expected {
		t.Errorf("Expected %q, got %q", expected, dir)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("DITTOGRID_LOGGING_LEVEL", "debug")
	t.Setenv("DITTOGRID_STORE_TYPE", "memory")
	t.Setenv("DITTOGRID_GRIDFS_CHUNK_SIZE", "4096")
	t.Setenv("DITTOGRID_GRIDFS_ROOT", "media")
	t.Setenv("DITTOGRID_METRICS_ENABLED", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected log level 'DEBUG' from env, got %q", cfg.Logging.Level)
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("Expected store type 'memory' from env, got %q", cfg.Store.Type)
	}
	if cfg.GridFS.ChunkSize != 4096 {
		t.Errorf("Expected chunk size 4096 from env, got %d", cfg.GridFS.ChunkSize)
	}
	if cfg.GridFS.Root != "media" {
		t.Errorf("Expected root 'media' from env, got %q", cfg.GridFS.Root)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Expected metrics enabled from env")
	}
}
