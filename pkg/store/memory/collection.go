package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/marmos91/dittogrid/pkg/store"
)

// collection is one named, insertion-ordered set of documents.
type collection struct {
	db   *Database
	name string

	// docs holds documents in insertion order
	docs []bson.Raw

	// ids maps an encoded _id to its position in docs
	ids map[string]int

	// indexes lists declared indexes; only unique ones are enforced
	indexes []store.Index

	mu sync.RWMutex
}

func (c *collection) Name() string { return c.name }

// Find scans the collection and returns copies of every matching document.
func (c *collection) Find(ctx context.Context, filter bson.M) (store.Cursor, error) {
	if err := c.db.check(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []bson.Raw
	for _, doc := range c.docs {
		ok, err := store.Match(doc, filter)
		if err != nil {
			return nil, fmt.Errorf("find in %s: %w", c.name, err)
		}
		if ok {
			out = append(out, slices.Clone(doc))
		}
	}
	return store.NewSliceCursor(out), nil
}

// CreateIndex records the index. Uniqueness is checked on later saves only.
func (c *collection) CreateIndex(ctx context.Context, index store.Index) error {
	if err := c.db.check(ctx); err != nil {
		return err
	}
	if len(index.Keys) == 0 {
		return fmt.Errorf("create index on %s: no keys", c.name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	name := index.Name()
	for _, existing := range c.indexes {
		if existing.Name() == name {
			return nil
		}
	}
	c.indexes = append(c.indexes, index)
	return nil
}

// Remove deletes every matching document and compacts the slice.
func (c *collection) Remove(ctx context.Context, filter bson.M) error {
	if err := c.db.check(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.docs[:0]
	for _, doc := range c.docs {
		ok, err := store.Match(doc, filter)
		if err != nil {
			return fmt.Errorf("remove from %s: %w", c.name, err)
		}
		if !ok {
			kept = append(kept, doc)
		}
	}
	clear(c.docs[len(kept):])
	c.docs = kept

	c.ids = make(map[string]int, len(c.docs))
	for i, doc := range c.docs {
		key, _ := store.IDKey(doc)
		c.ids[key] = i
	}
	return nil
}

// Save upserts doc by _id, enforcing unique indexes.
func (c *collection) Save(ctx context.Context, doc any) error {
	if err := c.db.check(ctx); err != nil {
		return err
	}

	raw, err := store.MarshalDocument(doc)
	if err != nil {
		return fmt.Errorf("save into %s: %w", c.name, err)
	}
	raw = slices.Clone(raw)

	id, err := store.IDKey(raw)
	if err != nil {
		return fmt.Errorf("save into %s: %w", c.name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	pos, exists := c.ids[id]

	for _, index := range c.indexes {
		if !index.Unique {
			continue
		}
		key := store.IndexKey(index, raw)
		for i, other := range c.docs {
			if exists && i == pos {
				continue
			}
			if store.IndexKey(index, other) == key {
				return fmt.Errorf("save into %s: index %s: %w", c.name, index.Name(), store.ErrDuplicateKey)
			}
		}
	}

	if exists {
		c.docs[pos] = raw
		return nil
	}
	c.ids[id] = len(c.docs)
	c.docs = append(c.docs, raw)
	return nil
}
