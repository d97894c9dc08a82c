package s3

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/marmos91/dittogrid/pkg/store"
)

// collection is one key namespace inside the bucket.
type collection struct {
	db      *Database
	name    string
	nameErr error

	indexes       []store.Index
	indexesLoaded bool

	// mu serializes writers and guards indexes
	mu sync.Mutex
}

// stored is a document together with its _id token.
type stored struct {
	id  string
	doc bson.Raw
}

func (c *collection) Name() string { return c.name }

func (c *collection) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.nameErr
}

// ============================================================================
// Find
// ============================================================================

func (c *collection) Find(ctx context.Context, filter bson.M) (store.Cursor, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}
	indexes, err := c.loadIndexes(ctx)
	if err != nil {
		return nil, err
	}

	found, err := c.lookup(ctx, indexes, filter)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", c.name, err)
	}

	docs := make([]bson.Raw, len(found))
	for i, s := range found {
		docs[i] = s.doc
	}
	return store.NewSliceCursor(docs), nil
}

// lookup picks the cheapest access path for filter:
//
//	complete unique index key  ->  GET pointer, GET document
//	leading index fields       ->  LIST pointers, GET documents
//	_id                        ->  GET document
//	anything else              ->  LIST documents, GET each
func (c *collection) lookup(ctx context.Context, indexes []store.Index, filter bson.M) ([]stored, error) {
	index, key, complete, found, err := store.BestIndex(indexes, filter)
	if err != nil {
		return nil, err
	}

	var ids []string
	switch {
	case found && complete:
		ptr, ok, err := c.db.getObject(ctx, c.db.pointerPrefix(c.name, index.Name(), key))
		if err != nil || !ok {
			return nil, err
		}
		ids = []string{string(ptr)}

	case found:
		keys, err := c.db.listKeys(ctx, c.db.pointerPrefix(c.name, index.Name(), key))
		if err != nil {
			return nil, err
		}
		ptrs, err := c.db.getObjects(ctx, keys)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]bool, len(ptrs))
		for _, ptr := range ptrs {
			if ptr != nil && !seen[string(ptr)] {
				seen[string(ptr)] = true
				ids = append(ids, string(ptr))
			}
		}

	case filter["_id"] != nil:
		idValue, err := store.RawValueOf(filter["_id"])
		if err != nil {
			return nil, err
		}
		ids = []string{store.EncodeKeyValue(idValue)}

	default:
		keys, err := c.db.listKeys(ctx, c.db.docPrefix(c.name))
		if err != nil {
			return nil, err
		}
		prefix := c.db.docPrefix(c.name)
		for _, k := range keys {
			ids = append(ids, strings.TrimPrefix(k, prefix))
		}
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.db.docKey(c.name, id)
	}
	bodies, err := c.db.getObjects(ctx, keys)
	if err != nil {
		return nil, err
	}

	var out []stored
	for i, body := range bodies {
		if body == nil {
			continue
		}
		doc := bson.Raw(body)
		ok, err := store.Match(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, stored{id: ids[i], doc: doc})
		}
	}
	return out, nil
}

// ============================================================================
// CreateIndex
// ============================================================================

// CreateIndex persists the index definition and, for unique indexes, writes
// pointer objects for existing documents.
func (c *collection) CreateIndex(ctx context.Context, index store.Index) error {
	if err := c.check(ctx); err != nil {
		return err
	}
	if len(index.Keys) == 0 {
		return fmt.Errorf("create index on %s: no keys", c.name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadIndexesLocked(ctx); err != nil {
		return err
	}
	name := index.Name()
	for _, existing := range c.indexes {
		if existing.Name() == name {
			return nil
		}
	}

	if index.Unique {
		existing, err := c.lookup(ctx, nil, nil)
		if err != nil {
			return fmt.Errorf("create index on %s: %w", c.name, err)
		}
		seen := make(map[string]bool, len(existing))
		for _, s := range existing {
			token := store.IndexKey(index, s.doc)
			if seen[token] {
				return fmt.Errorf("create index on %s: index %s: %w", c.name, name, store.ErrDuplicateKey)
			}
			seen[token] = true
		}
		for _, s := range existing {
			ptrKey := c.db.pointerPrefix(c.name, name, store.IndexKey(index, s.doc))
			if err := c.db.putObject(ctx, ptrKey, []byte(s.id)); err != nil {
				return fmt.Errorf("create index on %s: %w", c.name, err)
			}
		}
	}

	def, err := bson.Marshal(index)
	if err != nil {
		return fmt.Errorf("create index on %s: %w", c.name, err)
	}
	if err := c.db.putObject(ctx, c.db.indexDefPrefix(c.name)+name, def); err != nil {
		return fmt.Errorf("create index on %s: %w", c.name, err)
	}

	c.indexes = append(c.indexes, index)
	return nil
}

func (c *collection) loadIndexes(ctx context.Context) ([]store.Index, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadIndexesLocked(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(c.indexes), nil
}

func (c *collection) loadIndexesLocked(ctx context.Context) error {
	if c.indexesLoaded {
		return nil
	}

	keys, err := c.db.listKeys(ctx, c.db.indexDefPrefix(c.name))
	if err != nil {
		return fmt.Errorf("load indexes of %s: %w", c.name, err)
	}
	defs, err := c.db.getObjects(ctx, keys)
	if err != nil {
		return fmt.Errorf("load indexes of %s: %w", c.name, err)
	}

	var indexes []store.Index
	for _, def := range defs {
		if def == nil {
			continue
		}
		var idx store.Index
		if err := bson.Unmarshal(def, &idx); err != nil {
			return fmt.Errorf("load indexes of %s: %w", c.name, err)
		}
		indexes = append(indexes, idx)
	}

	c.indexes = indexes
	c.indexesLoaded = true
	return nil
}

// ============================================================================
// Remove
// ============================================================================

func (c *collection) Remove(ctx context.Context, filter bson.M) error {
	if err := c.check(ctx); err != nil {
		return err
	}
	indexes, err := c.loadIndexes(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	victims, err := c.lookup(ctx, indexes, filter)
	if err != nil {
		return fmt.Errorf("remove from %s: %w", c.name, err)
	}

	var keys []string
	for _, s := range victims {
		keys = append(keys, c.db.docKey(c.name, s.id))
		keys = append(keys, c.pointerKeys(indexes, s.doc)...)
	}
	if err := c.db.deleteKeys(ctx, keys); err != nil {
		return fmt.Errorf("remove from %s: %w", c.name, err)
	}
	return nil
}

func (c *collection) pointerKeys(indexes []store.Index, doc bson.Raw) []string {
	var keys []string
	for _, idx := range indexes {
		if idx.Unique {
			keys = append(keys, c.db.pointerPrefix(c.name, idx.Name(), store.IndexKey(idx, doc)))
		}
	}
	return keys
}

// ============================================================================
// Save
// ============================================================================

// Save writes the document and then its index pointers; pointers left
// over from a previous version of the document are deleted last.
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

	indexes, err := c.loadIndexes(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	docKey := c.db.docKey(c.name, id)

	// Reject duplicates before writing anything.
	newPointers := c.pointerKeys(indexes, raw)
	for _, ptrKey := range newPointers {
		owner, taken, err := c.db.getObject(ctx, ptrKey)
		if err != nil {
			return fmt.Errorf("save into %s: %w", c.name, err)
		}
		if !taken || string(owner) == id {
			continue
		}
		// A pointer whose document is gone or no longer carries this key
		// is stale and can be overwritten.
		live, err := c.pointerIsLive(ctx, indexes, ptrKey, string(owner))
		if err != nil {
			return fmt.Errorf("save into %s: %w", c.name, err)
		}
		if live {
			return fmt.Errorf("save into %s: %w", c.name, store.ErrDuplicateKey)
		}
	}

	old, existed, err := c.db.getObject(ctx, docKey)
	if err != nil {
		return fmt.Errorf("save into %s: %w", c.name, err)
	}

	if err := c.db.putObject(ctx, docKey, raw); err != nil {
		return fmt.Errorf("save into %s: %w", c.name, err)
	}
	for _, ptrKey := range newPointers {
		if err := c.db.putObject(ctx, ptrKey, []byte(id)); err != nil {
			return fmt.Errorf("save into %s: %w", c.name, err)
		}
	}

	if existed {
		var stale []string
		for _, ptrKey := range c.pointerKeys(indexes, old) {
			if !slices.Contains(newPointers, ptrKey) {
				stale = append(stale, ptrKey)
			}
		}
		if err := c.db.deleteKeys(ctx, stale); err != nil {
			return fmt.Errorf("save into %s: %w", c.name, err)
		}
	}
	return nil
}

// pointerIsLive reports whether the document owner still maps to ptrKey.
func (c *collection) pointerIsLive(ctx context.Context, indexes []store.Index, ptrKey, owner string) (bool, error) {
	body, ok, err := c.db.getObject(ctx, c.db.docKey(c.name, owner))
	if err != nil || !ok {
		return false, err
	}
	return slices.Contains(c.pointerKeys(indexes, body), ptrKey), nil
}
