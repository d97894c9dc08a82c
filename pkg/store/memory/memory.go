// Package memory provides a volatile store.Database kept entirely in process.
package memory

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/marmos91/dittogrid/pkg/store"
)

// Database implements store.Database using in-memory storage.
//
// This implementation keeps every collection as an ordered slice of raw BSON
// documents. It's designed for:
//   - Testing and development
//   - Ephemeral buckets (scratch space, caches)
//   - Running the CLI without any external service
//
// Characteristics:
//   - Fast: All operations are memory-speed
//   - Volatile: Data lost on restart
//   - Memory-bound: Limited by available RAM
//   - Thread-safe: Protected by RWMutex
//
// Thread Safety:
// The database map is protected by one mutex and every collection by its
// own, so traffic on fs.files and fs.chunks does not contend. Documents are
// copied on the way in and out, so callers never share buffers with the
// store.
type Database struct {
	// collections holds every collection created so far, keyed by name
	collections map[string]*collection

	// closed is set by Close; later calls fail with store.ErrClosed
	closed bool

	// mu protects collections and closed
	mu sync.RWMutex
}

var _ store.Database = (*Database)(nil)

// New creates a new empty in-memory database.
//
// Parameters:
//   - ctx: Context for cancellation (checked before initialization)
//
// Returns:
//   - *Database: Initialized database
//   - error: Only returns error if context is cancelled
func New(ctx context.Context) (*Database, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Database{
		collections: make(map[string]*collection),
	}, nil
}

// Collection returns the named collection, creating it on first use.
func (d *Database) Collection(name string) store.Collection {
	d.mu.RLock()
	c, ok := d.collections[name]
	d.mu.RUnlock()
	if ok {
		return c
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if c, ok = d.collections[name]; ok {
		return c
	}
	c = &collection{
		db:   d,
		name: name,
		ids:  make(map[string]int),
	}
	d.collections[name] = c
	return c
}

// RunCommand executes filemd5 and ping against the in-memory collections.
func (d *Database) RunCommand(ctx context.Context, cmd bson.D) (bson.M, error) {
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	return store.ExecuteCommand(ctx, d, cmd)
}

// Close drops every collection. The database cannot be reused afterwards.
func (d *Database) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.collections = make(map[string]*collection)
	return nil
}

// Stats returns the number of documents and total BSON bytes per collection.
//
// Intended for tests and the CLI; the numbers are a snapshot.
func (d *Database) Stats() map[string]CollectionStats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stats := make(map[string]CollectionStats, len(d.collections))
	for name, c := range d.collections {
		c.mu.RLock()
		s := CollectionStats{Documents: len(c.docs)}
		for _, doc := range c.docs {
			s.Bytes += int64(len(doc))
		}
		c.mu.RUnlock()
		stats[name] = s
	}
	return stats
}

// CollectionStats summarizes one collection.
type CollectionStats struct {
	Documents int
	Bytes     int64
}

func (d *Database) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return fmt.Errorf("memory: %w", store.ErrClosed)
	}
	return nil
}
