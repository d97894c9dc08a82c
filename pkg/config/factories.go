package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/marmos91/dittogrid/internal/logger"
	"github.com/marmos91/dittogrid/internal/ratelimiter"
	"github.com/marmos91/dittogrid/pkg/gridfs"
	"github.com/marmos91/dittogrid/pkg/metrics"
	"github.com/marmos91/dittogrid/pkg/store"
)

// CreateDatabase creates a backing store based on configuration.
//
// This factory function uses the Type field to determine which store implementation
// to create, then decodes the type-specific configuration from the corresponding
// map and passes it to the store's constructor.
//
// Supported types:
//   - "memory": Uses pkg/store/memory (in-memory storage, ephemeral)
//   - "badger": Uses pkg/store/badger (BadgerDB storage, persistent)
//   - "mongo": Uses pkg/store/mongo (a real MongoDB deployment)
//   - "s3": Uses pkg/store/s3 (Amazon S3 or compatible storage)
//
// The returned database is instrumented (when metrics are enabled) and
// throttled (when a rate limit is configured).
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Store configuration
//
// Returns:
//   - store.Database: Initialized database; the caller must Close it
//   - error: Configuration or initialization error
func CreateDatabase(ctx context.Context, cfg *StoreConfig) (store.Database, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db, err := createDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	db = store.Instrument(db, metrics.NewStoreMetrics(cfg.Type))

	limiter := ratelimiter.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	if !limiter.Unlimited() {
		logger.Info("store: rate limited to %d req/s (burst %d)",
			cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		db = store.Throttle(db, limiter)
	}

	return db, nil
}

// CreateBucket creates the backing store and a GridFS bucket over it.
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: The complete dittogrid configuration
//
// Returns:
//   - *gridfs.Bucket: Bucket using the configured defaults
//   - store.Database: The database behind the bucket; the caller must Close it
//   - error: Configuration or initialization error
func CreateBucket(ctx context.Context, cfg *Config) (*gridfs.Bucket, store.Database, error) {
	db, err := CreateDatabase(ctx, &cfg.Store)
	if err != nil {
		return nil, nil, err
	}

	bucket := gridfs.NewBucket(db, gridfs.BucketOptions{
		Root:              cfg.GridFS.Root,
		ContentType:       cfg.GridFS.ContentType,
		ChunkSize:         cfg.GridFS.ChunkSize,
		UnlinkConcurrency: cfg.GridFS.UnlinkConcurrency,
		Metrics:           metrics.NewGridFSMetrics(),
	})

	return bucket, db, nil
}

// newS3Client builds an S3 client from the decoded store options.
func newS3Client(ctx context.Context, storeCfg s3YAMLConfig) (*s3.Client, error) {
	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	var configOptions []func(*awsConfig.LoadOptions) error

	// Set region
	configOptions = append(configOptions, awsConfig.WithRegion(storeCfg.Region))

	// Set credentials if provided, otherwise use default credential chain
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	// Default to 10 attempts if not specified (AWS default is 3)
	maxRetries := storeCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	// Load AWS config
	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Custom endpoints (MinIO, Localstack) need path-style addressing
		if storeCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(storeCfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Info("S3 store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return client, nil
}
