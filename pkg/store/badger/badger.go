// Package badger provides a persistent store.Database on top of BadgerDB.
package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/marmos91/dittogrid/internal/logger"
	"github.com/marmos91/dittogrid/pkg/store"
)

// Database implements store.Database using BadgerDB for persistence.
//
// This implementation keeps GridFS collections in a single embedded
// key-value store. It is suitable for:
//   - Single-node deployments that must survive restarts
//   - Running the CLI against a local directory
//   - Tests that need persistence without an external service
//
// Key Features:
//   - Persistent storage with crash recovery (WAL-based)
//   - Unique indexes backed by dedicated keys (point lookups, prefix scans)
//   - Insertion-ordered scans via a leased sequence
//
// Thread Safety:
// BadgerDB transactions are safe for concurrent use. Writes to one
// collection are additionally serialized by a per-collection mutex so that
// the unique-index check and the write happen atomically without relying on
// transaction conflict retries.
//
// Storage Model:
// See keys.go for the key namespace layout.
type Database struct {
	// db is the BadgerDB database handle (thread-safe, uses internal MVCC)
	db *badger.DB

	// seq hands out document sequence numbers
	seq *badger.Sequence

	// collections caches collection handles (and their loaded indexes)
	collections map[string]*collection

	mu sync.Mutex
}

var _ store.Database = (*Database)(nil)

// Config contains configuration for opening a BadgerDB database.
type Config struct {
	// Path is the directory where BadgerDB stores its files.
	// Ignored when InMemory is true.
	Path string `mapstructure:"path"`

	// InMemory runs BadgerDB without touching disk (tests).
	InMemory bool `mapstructure:"in_memory"`

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 256)
	// This caches LSM-tree data blocks for faster reads
	BlockCacheSizeMB int64 `mapstructure:"block_cache_mb"`

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 128)
	// This caches LSM-tree indices for faster lookups
	IndexCacheSizeMB int64 `mapstructure:"index_cache_mb"`

	// BadgerOptions allows full customization of BadgerDB behavior.
	// If nil, defaults tuned for chunk storage are used.
	BadgerOptions *badger.Options `mapstructure:"-"`
}

// New opens (or creates) a BadgerDB database.
//
// Parameters:
//   - ctx: Context for cancellation (checked before opening)
//   - config: Path and cache sizing
//
// Returns:
//   - *Database: Open database ready for use
//   - error: Error if BadgerDB cannot be opened
//
// Example:
//
//	db, err := badger.New(ctx, badger.Config{Path: "/var/lib/dittogrid"})
func New(ctx context.Context, config Config) (*Database, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 1: Prepare BadgerDB options
	// ========================================================================

	var opts badger.Options
	if config.BadgerOptions != nil {
		opts = *config.BadgerOptions
	} else {
		if config.InMemory {
			opts = badger.DefaultOptions("").WithInMemory(true)
		} else {
			opts = badger.DefaultOptions(config.Path)
		}

		// Chunk payloads are already whatever the user uploaded; compressing
		// them again rarely pays off.
		opts = opts.WithLoggingLevel(badger.WARNING)
		opts = opts.WithCompression(options.None)

		blockCacheMB := config.BlockCacheSizeMB
		if blockCacheMB == 0 {
			blockCacheMB = 256
		}
		indexCacheMB := config.IndexCacheSizeMB
		if indexCacheMB == 0 {
			indexCacheMB = 128
		}

		opts = opts.WithBlockCacheSize(blockCacheMB << 20)
		opts = opts.WithIndexCacheSize(indexCacheMB << 20)
	}

	// ========================================================================
	// Step 2: Open BadgerDB and lease the document sequence
	// ========================================================================

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.Path, err)
	}

	seq, err := db.GetSequence([]byte(sequenceKey), sequenceBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to lease document sequence: %w", err)
	}

	logger.Debug("badger: opened database at %s (in_memory=%v)", config.Path, config.InMemory)

	return &Database{
		db:          db,
		seq:         seq,
		collections: make(map[string]*collection),
	}, nil
}

// Collection returns the named collection.
func (d *Database) Collection(name string) store.Collection {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c, ok := d.collections[name]; ok {
		return c
	}
	c := &collection{
		db:      d,
		name:    name,
		nameErr: validCollectionName(name),
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

// Close releases the sequence lease and closes BadgerDB.
func (d *Database) Close(ctx context.Context) error {
	var errs []error
	if err := d.seq.Release(); err != nil {
		errs = append(errs, fmt.Errorf("release sequence: %w", err))
	}
	if err := d.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close badger: %w", err))
	}
	return errors.Join(errs...)
}

func (d *Database) nextSeq() (string, error) {
	n, err := d.seq.Next()
	if err != nil {
		return "", fmt.Errorf("next document sequence: %w", err)
	}
	return formatSeq(n), nil
}
