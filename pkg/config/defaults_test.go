package config

import (
	"path/filepath"
	"testing"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Expected default output 'stderr', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_LogLevelNormalized(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "warn"}}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected normalized level 'WARN', got %q", cfg.Logging.Level)
	}
}

func TestApplyDefaults_Store(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")

	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Store.Type != "badger" {
		t.Errorf("Expected default store type 'badger', got %q", cfg.Store.Type)
	}
	if cfg.Store.Badger["path"] != filepath.Join("/data", "dittogrid") {
		t.Errorf("Unexpected default badger path: %v", cfg.Store.Badger["path"])
	}
	if cfg.Store.Mongo["database"] != "dittogrid" {
		t.Errorf("Unexpected default mongo database: %v", cfg.Store.Mongo["database"])
	}
	if cfg.Store.S3["region"] != "us-east-1" {
		t.Errorf("Unexpected default s3 region: %v", cfg.Store.S3["region"])
	}
	if cfg.Store.RateLimit.RequestsPerSecond != 0 {
		t.Errorf("Expected unlimited store rate by default, got %d", cfg.Store.RateLimit.RequestsPerSecond)
	}
}

func TestApplyDefaults_GridFS(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.GridFS.Root != "fs" {
		t.Errorf("Expected default root 'fs', got %q", cfg.GridFS.Root)
	}
	if cfg.GridFS.ContentType != "text/plain" {
		t.Errorf("Expected default content type 'text/plain', got %q", cfg.GridFS.ContentType)
	}
	if cfg.GridFS.ChunkSize != 262144 {
		t.Errorf("Expected default chunk size 262144, got %d", cfg.GridFS.ChunkSize)
	}
	if cfg.GridFS.UnlinkConcurrency != 8 {
		t.Errorf("Expected default unlink concurrency 8, got %d", cfg.GridFS.UnlinkConcurrency)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{Level: "ERROR", Format: "json", Output: "stderr"},
		Store: StoreConfig{
			Type:   "mongo",
			Badger: map[string]any{"path": "/srv/grid"},
			Mongo:  map[string]any{"uri": "mongodb://db:27017", "database": "media"},
		},
		GridFS: GridFSConfig{
			Root:              "photos",
			ContentType:       "image/jpeg",
			ChunkSize:         1024,
			UnlinkConcurrency: 2,
		},
	}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "ERROR" || cfg.Logging.Format != "json" || cfg.Logging.Output != "stderr" {
		t.Errorf("Logging values were overwritten: %+v", cfg.Logging)
	}
	if cfg.Store.Type != "mongo" {
		t.Errorf("Store type was overwritten: %q", cfg.Store.Type)
	}
	if cfg.Store.Badger["path"] != "/srv/grid" {
		t.Errorf("Badger path was overwritten: %v", cfg.Store.Badger["path"])
	}
	if cfg.Store.Mongo["uri"] != "mongodb://db:27017" || cfg.Store.Mongo["database"] != "media" {
		t.Errorf("Mongo settings were overwritten: %v", cfg.Store.Mongo)
	}
	if cfg.GridFS != (GridFSConfig{Root: "photos", ContentType: "image/jpeg", ChunkSize: 1024, UnlinkConcurrency: 2}) {
		t.Errorf("GridFS values were overwritten: %+v", cfg.GridFS)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	cfg := GetDefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
}
