// Package store defines the backing-store boundary consumed by pkg/gridfs.
//
// A backing store is a document database exposing named collections. The
// GridFS layer needs exactly five things from it: find by equality filter
// returning a cursor, index creation, removal by filter, upsert by _id, and
// one administrative command (filemd5). Everything else (connections,
// encoding, query planning) belongs to the adapter.
//
// Adapters shipped with this module:
//   - memory: in-process, for tests and ephemeral use
//   - badger: embedded persistent store (BadgerDB)
//   - mongo:  a real MongoDB deployment
//   - s3:     one object per document in an S3-compatible bucket
//
// Documents are BSON. Callers pass any value the BSON encoder accepts
// (structs with bson tags, bson.M, bson.D) and decode results through the
// cursor.
package store

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// ============================================================================
// Database Interface
// ============================================================================

// Database is a handle to a document database.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
// The GridFS layer never issues concurrent calls on behalf of one file
// handle, but several handles may share a Database.
type Database interface {
	// Collection returns the named collection. Collections are created
	// lazily; asking for one never fails.
	Collection(name string) Collection

	// RunCommand executes an administrative command.
	//
	// The command name is the key of the first element, as in MongoDB.
	// Every adapter supports:
	//
	//	{filemd5: <files_id>, root: <prefix>}  ->  {md5: <hex>, numChunks: <n>}
	//
	// Embedded adapters return ErrUnsupportedCommand for anything else
	// except "ping".
	RunCommand(ctx context.Context, cmd bson.D) (bson.M, error)

	// Close releases resources held by the adapter.
	Close(ctx context.Context) error
}

// ============================================================================
// Collection Interface
// ============================================================================

// Collection is a named set of documents.
type Collection interface {
	// Name returns the collection name (e.g. "fs.chunks").
	Name() string

	// Find returns a cursor over documents matching filter.
	//
	// Filters are top-level equality matches. Numbers compare by value
	// across int32, int64 and double. A nil value matches a missing or null
	// field. An empty or nil filter matches every document. The memory,
	// badger and mongo adapters return results in insertion order; s3
	// returns them in key order.
	Find(ctx context.Context, filter bson.M) (Cursor, error)

	// CreateIndex declares an index. Creating an index that already exists
	// is a no-op. Unique indexes make Save fail with ErrDuplicateKey when
	// another document already holds the same key values.
	CreateIndex(ctx context.Context, index Index) error

	// Remove deletes every document matching filter. Removing nothing is
	// not an error.
	Remove(ctx context.Context, filter bson.M) error

	// Save upserts doc by its _id field. Replacing a document keeps its
	// original insertion position. Documents without _id fail with
	// ErrMissingID.
	Save(ctx context.Context, doc any) error
}

// ============================================================================
// Cursor Interface
// ============================================================================

// Cursor iterates over the result of a Find. It is exhaustible and cannot be
// restarted.
//
// Example:
//
//	cur, err := coll.Find(ctx, bson.M{"filename": name})
//	if err != nil {
//	    return err
//	}
//	defer cur.Close(ctx)
//
//	for cur.Next(ctx) {
//	    var rec fileRecord
//	    if err := cur.Decode(&rec); err != nil {
//	        return err
//	    }
//	}
//	return cur.Err()
type Cursor interface {
	// Next advances to the next document. It returns false when the cursor
	// is exhausted or an error occurred (see Err).
	Next(ctx context.Context) bool

	// Decode unmarshals the current document into v.
	Decode(v any) error

	// Err returns the error that stopped iteration, if any.
	Err() error

	// Close releases the cursor.
	Close(ctx context.Context) error
}

// ============================================================================
// Index
// ============================================================================

// Index describes a (possibly compound) index.
type Index struct {
	// Keys lists indexed fields in order with their direction (1 or -1).
	Keys bson.D

	// Unique rejects two documents with identical key values.
	Unique bool
}

// Name returns the MongoDB-style index name, e.g. "files_id_1_n_1".
func (i Index) Name() string {
	parts := make([]string, 0, len(i.Keys)*2)
	for _, k := range i.Keys {
		parts = append(parts, k.Key, fmt.Sprint(k.Value))
	}
	return strings.Join(parts, "_")
}

// Fields returns the indexed field names in order.
func (i Index) Fields() []string {
	fields := make([]string, len(i.Keys))
	for n, k := range i.Keys {
		fields[n] = k.Key
	}
	return fields
}
