package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid config, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "TRACE"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected error for invalid log level")
	}
	if !strings.Contains(err.Error(), "Level") {
		t.Errorf("Expected error to mention Level, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Error("Expected error for invalid log format")
	}
}

func TestValidate_InvalidStoreType(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Type = "postgres"

	if err := Validate(cfg); err == nil {
		t.Error("Expected error for invalid store type")
	}
}

func TestValidate_ChunkSize(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
		wantErr   bool
	}{
		{"one byte", 1, false},
		{"default", 262144, false},
		{"max int32", 2147483647, false},
		{"negative", -1, true},
		{"above int32", 2147483648, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			cfg.GridFS.ChunkSize = tt.chunkSize

			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_RootWithSlash(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.GridFS.Root = "a/b"

	if err := Validate(cfg); err == nil {
		t.Error("Expected error for root containing '/'")
	}
}

func TestValidate_UnlinkConcurrency(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.GridFS.UnlinkConcurrency = -3

	if err := Validate(cfg); err == nil {
		t.Error("Expected error for negative unlink concurrency")
	}
}

func TestValidate_BurstWithoutRate(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.RateLimit.Burst = 10

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected error for burst without rate")
	}
	if !strings.Contains(err.Error(), "rate_limit") {
		t.Errorf("Expected error to mention rate_limit, got: %v", err)
	}
}

func TestValidate_StoreRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "badger without path",
			mutate: func(c *Config) {
				c.Store.Type = "badger"
				c.Store.Badger = map[string]any{}
			},
			wantErr: "store.badger",
		},
		{
			name: "mongo without uri",
			mutate: func(c *Config) {
				c.Store.Type = "mongo"
				c.Store.Mongo = map[string]any{"database": "x"}
			},
			wantErr: "store.mongo",
		},
		{
			name: "s3 without bucket",
			mutate: func(c *Config) {
				c.Store.Type = "s3"
			},
			wantErr: "bucket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_BadgerInMemory(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Badger = map[string]any{"in_memory": true}

	if err := Validate(cfg); err != nil {
		t.Errorf("In-memory badger needs no path, got: %v", err)
	}
}

func TestValidate_LogLevelNormalization(t *testing.T) {
	// Validation accepts lowercase; ApplyDefaults normalizes
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "debug"

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected lowercase log level to be accepted, got: %v", err)
	}
}
