package config

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/dittogrid/pkg/store"
	"github.com/marmos91/dittogrid/pkg/store/badger"
	"github.com/marmos91/dittogrid/pkg/store/memory"
	"github.com/marmos91/dittogrid/pkg/store/mongo"
	storeS3 "github.com/marmos91/dittogrid/pkg/store/s3"
)

// s3YAMLConfig represents S3 configuration loaded from YAML files.
type s3YAMLConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	Region           string `mapstructure:"region"`
	Bucket           string `mapstructure:"bucket"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	KeyPrefix        string `mapstructure:"key_prefix"`
	MaxRetries       int    `mapstructure:"max_retries"`
	FetchConcurrency int    `mapstructure:"fetch_concurrency"`
}

// createDatabase creates the bare store adapter selected by cfg.Type.
func createDatabase(ctx context.Context, cfg *StoreConfig) (store.Database, error) {
	switch cfg.Type {
	case "memory":
		return createMemoryDatabase(ctx)
	case "badger":
		return createBadgerDatabase(ctx, cfg.Badger)
	case "mongo":
		return createMongoDatabase(ctx, cfg.Mongo)
	case "s3":
		return createS3Database(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown store type: %q (supported: memory, badger, mongo, s3)", cfg.Type)
	}
}

// createMemoryDatabase creates an in-memory database. Contents are lost
// when the process exits.
func createMemoryDatabase(ctx context.Context) (store.Database, error) {
	db, err := memory.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory store: %w", err)
	}
	return db, nil
}

// createBadgerDatabase creates a BadgerDB-backed database.
func createBadgerDatabase(ctx context.Context, options map[string]any) (store.Database, error) {
	// Decode BadgerDB-specific configuration
	var badgerCfg badger.Config
	if err := mapstructure.Decode(options, &badgerCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger store config: %w", err)
	}

	if badgerCfg.Path == "" && !badgerCfg.InMemory {
		return nil, fmt.Errorf("badger store: path is required")
	}

	db, err := badger.New(ctx, badgerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger store: %w", err)
	}

	return db, nil
}

// createMongoDatabase connects to a MongoDB deployment.
func createMongoDatabase(ctx context.Context, options map[string]any) (store.Database, error) {
	// Decode store-specific options (connect_timeout accepts "10s" style strings)
	var mongoCfg mongo.Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     &mongoCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to decode mongo store config: %w", err)
	}

	db, err := mongo.New(ctx, mongoCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo store: %w", err)
	}

	return db, nil
}

// createS3Database creates an S3-backed database.
func createS3Database(ctx context.Context, options map[string]any) (store.Database, error) {
	// Decode S3 configuration from YAML
	var yamlCfg s3YAMLConfig
	if err := mapstructure.Decode(options, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 store config: %w", err)
	}

	// Validate required fields
	if yamlCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 store: bucket is required")
	}
	if yamlCfg.Region == "" {
		return nil, fmt.Errorf("S3 store: region is required")
	}

	client, err := newS3Client(ctx, yamlCfg)
	if err != nil {
		return nil, err
	}

	db, err := storeS3.New(ctx, storeS3.Config{
		Client:           client,
		Bucket:           yamlCfg.Bucket,
		KeyPrefix:        yamlCfg.KeyPrefix,
		FetchConcurrency: yamlCfg.FetchConcurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 store: %w", err)
	}

	return db, nil
}
