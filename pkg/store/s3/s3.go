// Package s3 implements store.Database on Amazon S3 or S3-compatible storage.
package s3

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/marmos91/dittogrid/internal/logger"
	"github.com/marmos91/dittogrid/pkg/store"
)

// Client is the subset of the S3 API the adapter uses. *s3.Client satisfies
// it; tests substitute an in-memory fake.
type Client interface {
	s3.ListObjectsV2APIClient
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Database implements store.Database using one S3 object per document.
//
// Key Design:
//
//	<prefix><coll>/d/<idtoken>                    BSON document
//	<prefix><coll>/x/<index>/<indextoken>         pointer object, body = <idtoken>
//	<prefix><coll>/i/<index>                      BSON index definition
//
// Tokens come from store.EncodeKeyValue and store.IndexKey, so keys are
// plain ASCII. Pointer objects make unique-index lookups a GET and
// leading-field lookups (all chunks of a file) a prefix listing. Listings
// come back in key order, which for the chunk index is ascending n.
//
// S3 Characteristics:
//   - No multi-object transactions: a Save writes the document first and its
//     index pointers second. A crash in between can leave a stale pointer,
//     which lookups detect (pointer body no longer matches) and ignore.
//   - Uniqueness is enforced within one process only; two processes racing
//     on the same index key can both succeed.
//
// Thread Safety:
// Safe for concurrent use. Writes to one collection are serialized by a
// per-collection mutex.
type Database struct {
	client    Client
	bucket    string
	keyPrefix string

	// fetchConcurrency bounds parallel GETs when materializing a result set
	fetchConcurrency int

	collections map[string]*collection
	mu          sync.Mutex
}

var _ store.Database = (*Database)(nil)

// Config contains configuration for the S3 adapter.
type Config struct {
	// Client is the configured S3 client
	Client Client

	// Bucket is the S3 bucket name. It must already exist.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys
	// Example: "gridfs/" results in keys like "gridfs/fs.files/d/o65f..."
	KeyPrefix string

	// FetchConcurrency bounds parallel GetObject calls per Find (default: 16)
	FetchConcurrency int
}

// New creates an S3-backed database.
//
// This verifies bucket access with HeadBucket. The bucket must already
// exist; this function does not create it.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: S3 configuration
//
// Returns:
//   - *Database: Initialized database
//   - error: Returns error if bucket access fails or context is cancelled
func New(ctx context.Context, cfg Config) (*Database, error) {
	// ========================================================================
	// Step 1: Check context and validate configuration
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	concurrency := cfg.FetchConcurrency
	if concurrency <= 0 {
		concurrency = 16
	}

	// ========================================================================
	// Step 2: Verify bucket access
	// ========================================================================

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	logger.Debug("s3: using bucket=%s prefix=%s", cfg.Bucket, cfg.KeyPrefix)

	return &Database{
		client:           cfg.Client,
		bucket:           cfg.Bucket,
		keyPrefix:        cfg.KeyPrefix,
		fetchConcurrency: concurrency,
		collections:      make(map[string]*collection),
	}, nil
}

// Collection returns the named collection.
func (d *Database) Collection(name string) store.Collection {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c, ok := d.collections[name]; ok {
		return c
	}
	c := &collection{db: d, name: name}
	if name == "" || strings.Contains(name, "/") {
		c.nameErr = fmt.Errorf("s3: invalid collection name %q", name)
	}
	d.collections[name] = c
	return c
}

// RunCommand executes filemd5 and ping.
func (d *Database) RunCommand(ctx context.Context, cmd bson.D) (bson.M, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return store.ExecuteCommand(ctx, d, cmd)
}

// Close is a no-op; the S3 client holds no per-database resources.
func (d *Database) Close(ctx context.Context) error {
	return nil
}

func (d *Database) docPrefix(coll string) string {
	return d.keyPrefix + coll + "/d/"
}

func (d *Database) docKey(coll, idToken string) string {
	return d.docPrefix(coll) + idToken
}

func (d *Database) pointerPrefix(coll, index, token string) string {
	return d.keyPrefix + coll + "/x/" + index + "/" + token
}

func (d *Database) indexDefPrefix(coll string) string {
	return d.keyPrefix + coll + "/i/"
}
