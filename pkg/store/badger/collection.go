package badger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/marmos91/dittogrid/pkg/store"
)

// collection is one named collection inside the shared BadgerDB.
type collection struct {
	db      *Database
	name    string
	nameErr error

	// indexes is loaded from m:<coll>: keys on first use
	indexes       []store.Index
	indexesLoaded bool

	// mu serializes writers and guards indexes
	mu sync.Mutex
}

// entry is a stored document with its sequence number.
type entry struct {
	seq string
	doc bson.Raw
}

func (c *collection) Name() string { return c.name }

// ============================================================================
// Find
// ============================================================================

// Find resolves filter through the best unique index when one applies,
// through the _id table when the filter names _id, and otherwise scans the
// collection in insertion order.
func (c *collection) Find(ctx context.Context, filter bson.M) (store.Cursor, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}

	indexes, err := c.loadIndexes()
	if err != nil {
		return nil, err
	}

	var entries []entry
	err = c.db.db.View(func(txn *badger.Txn) error {
		var err error
		entries, err = c.lookup(txn, indexes, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", c.name, err)
	}

	docs := make([]bson.Raw, len(entries))
	for i, e := range entries {
		docs[i] = e.doc
	}
	return store.NewSliceCursor(docs), nil
}

// lookup returns matching documents in insertion order.
func (c *collection) lookup(txn *badger.Txn, indexes []store.Index, filter bson.M) ([]entry, error) {
	var seqs []string

	index, key, complete, found, err := store.BestIndex(indexes, filter)
	if err != nil {
		return nil, err
	}

	switch {
	case found && complete:
		seq, ok, err := getString(txn, keyIndexEntry(c.name, index.Name(), key))
		if err != nil || !ok {
			return nil, err
		}
		seqs = []string{seq}

	case found:
		seqs, err = scanValues(txn, keyIndexEntry(c.name, index.Name(), key))
		if err != nil {
			return nil, err
		}
		slices.Sort(seqs)

	case filter["_id"] != nil:
		idValue, err := store.RawValueOf(filter["_id"])
		if err != nil {
			return nil, err
		}
		seq, ok, err := getString(txn, keyID(c.name, store.EncodeKeyValue(idValue)))
		if err != nil || !ok {
			return nil, err
		}
		seqs = []string{seq}

	default:
		return c.scan(txn, filter)
	}

	out := make([]entry, 0, len(seqs))
	for _, seq := range seqs {
		doc, ok, err := getBytes(txn, keyDocument(c.name, seq))
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		match, err := store.Match(doc, filter)
		if err != nil {
			return nil, err
		}
		if match {
			out = append(out, entry{seq: seq, doc: doc})
		}
	}
	return out, nil
}

// scan walks every document of the collection.
func (c *collection) scan(txn *badger.Txn, filter bson.M) ([]entry, error) {
	prefix := keyDocumentPrefix(c.name)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	var out []entry
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		doc, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		match, err := store.Match(doc, filter)
		if err != nil {
			return nil, err
		}
		if match {
			out = append(out, entry{seq: string(item.Key()[len(prefix):]), doc: doc})
		}
	}
	return out, nil
}

// ============================================================================
// CreateIndex
// ============================================================================

// CreateIndex persists the index definition. Unique indexes are backfilled
// from existing documents; a backfill conflict fails with ErrDuplicateKey
// and leaves the index undeclared.
func (c *collection) CreateIndex(ctx context.Context, index store.Index) error {
	if err := c.check(ctx); err != nil {
		return err
	}
	if len(index.Keys) == 0 {
		return fmt.Errorf("create index on %s: no keys", c.name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadIndexesLocked(); err != nil {
		return err
	}
	name := index.Name()
	for _, existing := range c.indexes {
		if existing.Name() == name {
			return nil
		}
	}

	def, err := bson.Marshal(index)
	if err != nil {
		return fmt.Errorf("create index on %s: %w", c.name, err)
	}

	err = c.db.db.Update(func(txn *badger.Txn) error {
		if index.Unique {
			docs, err := c.scan(txn, nil)
			if err != nil {
				return err
			}
			for _, e := range docs {
				k := keyIndexEntry(c.name, name, store.IndexKey(index, e.doc))
				if _, taken, err := getString(txn, k); err != nil {
					return err
				} else if taken {
					return fmt.Errorf("index %s: %w", name, store.ErrDuplicateKey)
				}
				if err := txn.Set(k, []byte(e.seq)); err != nil {
					return err
				}
			}
		}
		return txn.Set(keyMeta(c.name, name), def)
	})
	if err != nil {
		return fmt.Errorf("create index on %s: %w", c.name, err)
	}

	c.indexes = append(c.indexes, index)
	return nil
}

func (c *collection) loadIndexes() ([]store.Index, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadIndexesLocked(); err != nil {
		return nil, err
	}
	return slices.Clone(c.indexes), nil
}

func (c *collection) loadIndexesLocked() error {
	if c.indexesLoaded {
		return nil
	}

	var indexes []store.Index
	err := c.db.db.View(func(txn *badger.Txn) error {
		prefix := keyMetaPrefix(c.name)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var idx store.Index
				if err := bson.Unmarshal(val, &idx); err != nil {
					return err
				}
				indexes = append(indexes, idx)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("load indexes of %s: %w", c.name, err)
	}

	c.indexes = indexes
	c.indexesLoaded = true
	return nil
}

// ============================================================================
// Remove
// ============================================================================

// Remove deletes matching documents together with their _id and index
// entries. Deletions go through a WriteBatch so removing every chunk of a
// large file never exceeds the transaction size limit.
func (c *collection) Remove(ctx context.Context, filter bson.M) error {
	if err := c.check(ctx); err != nil {
		return err
	}

	indexes, err := c.loadIndexes()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var victims []entry
	err = c.db.db.View(func(txn *badger.Txn) error {
		var err error
		victims, err = c.lookup(txn, indexes, filter)
		return err
	})
	if err != nil {
		return fmt.Errorf("remove from %s: %w", c.name, err)
	}
	if len(victims) == 0 {
		return nil
	}

	wb := c.db.db.NewWriteBatch()
	defer wb.Cancel()

	for _, e := range victims {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, k := range c.entryKeys(indexes, e) {
			if err := wb.Delete(k); err != nil {
				return fmt.Errorf("remove from %s: %w", c.name, err)
			}
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("remove from %s: %w", c.name, err)
	}
	return nil
}

// entryKeys lists every key owned by a stored document.
func (c *collection) entryKeys(indexes []store.Index, e entry) [][]byte {
	keys := [][]byte{keyDocument(c.name, e.seq)}
	if id, err := store.IDKey(e.doc); err == nil {
		keys = append(keys, keyID(c.name, id))
	}
	for _, idx := range indexes {
		if idx.Unique {
			keys = append(keys, keyIndexEntry(c.name, idx.Name(), store.IndexKey(idx, e.doc)))
		}
	}
	return keys
}

// ============================================================================
// Save
// ============================================================================

// Save upserts doc by _id. A replaced document keeps its sequence number and
// therefore its position in scans.
func (c *collection) Save(ctx context.Context, doc any) error {
	if err := c.check(ctx); err != nil {
		return err
	}

	raw, err := store.MarshalDocument(doc)
	if err != nil {
		return fmt.Errorf("save into %s: %w", c.name, err)
	}
	id, err := store.IDKey(raw)
	if err != nil {
		return fmt.Errorf("save into %s: %w", c.name, err)
	}

	indexes, err := c.loadIndexes()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Writers to this collection are serialized by c.mu, so the _id lookup
	// stays valid until the update below commits.
	var seq string
	var exists bool
	err = c.db.db.View(func(txn *badger.Txn) error {
		var err error
		seq, exists, err = getString(txn, keyID(c.name, id))
		return err
	})
	if err != nil {
		return fmt.Errorf("save into %s: %w", c.name, err)
	}
	if !exists {
		if seq, err = c.db.nextSeq(); err != nil {
			return fmt.Errorf("save into %s: %w", c.name, err)
		}
	}

	err = c.db.db.Update(func(txn *badger.Txn) error {
		// Reject before touching anything.
		for _, idx := range indexes {
			if !idx.Unique {
				continue
			}
			owner, taken, err := getString(txn, keyIndexEntry(c.name, idx.Name(), store.IndexKey(idx, raw)))
			if err != nil {
				return err
			}
			if taken && owner != seq {
				return fmt.Errorf("index %s: %w", idx.Name(), store.ErrDuplicateKey)
			}
		}

		if exists {
			old, ok, err := getBytes(txn, keyDocument(c.name, seq))
			if err != nil {
				return err
			}
			if ok {
				for _, k := range c.entryKeys(indexes, entry{seq: seq, doc: old})[1:] {
					if err := txn.Delete(k); err != nil {
						return err
					}
				}
			}
		}

		if err := txn.Set(keyDocument(c.name, seq), raw); err != nil {
			return err
		}
		for _, k := range c.entryKeys(indexes, entry{seq: seq, doc: raw})[1:] {
			if err := txn.Set(k, []byte(seq)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save into %s: %w", c.name, err)
	}
	return nil
}

// ============================================================================
// Helpers
// ============================================================================

func (c *collection) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.nameErr != nil {
		return c.nameErr
	}
	if c.db.db.IsClosed() {
		return fmt.Errorf("badger: %w", store.ErrClosed)
	}
	return nil
}

func getBytes(txn *badger.Txn, key []byte) ([]byte, bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func getString(txn *badger.Txn, key []byte) (string, bool, error) {
	val, ok, err := getBytes(txn, key)
	return string(val), ok, err
}

// scanValues collects the values of every key under prefix.
func scanValues(txn *badger.Txn, prefix []byte) ([]string, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	var out []string
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		val, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		out = append(out, string(val))
	}
	return out, nil
}
