package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// SliceCursor is a Cursor over documents already held in memory.
//
// The embedded adapters materialize query results before returning them,
// which keeps their read transactions short.
type SliceCursor struct {
	docs    []bson.Raw
	pos     int
	current bson.Raw
	err     error
	closed  bool
}

// NewSliceCursor returns a cursor over docs in order.
func NewSliceCursor(docs []bson.Raw) *SliceCursor {
	return &SliceCursor{docs: docs}
}

// Next advances to the next document.
func (c *SliceCursor) Next(ctx context.Context) bool {
	if c.closed || c.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		c.err = err
		return false
	}
	if c.pos >= len(c.docs) {
		c.current = nil
		return false
	}
	c.current = c.docs[c.pos]
	c.pos++
	return true
}

// Decode unmarshals the current document into v.
func (c *SliceCursor) Decode(v any) error {
	if c.current == nil {
		return ErrNoDocument
	}
	return bson.Unmarshal(c.current, v)
}

// Current returns the raw current document, or nil.
func (c *SliceCursor) Current() bson.Raw {
	return c.current
}

// Err returns the error that stopped iteration.
func (c *SliceCursor) Err() error {
	return c.err
}

// Close releases the cursor. Subsequent Next calls return false.
func (c *SliceCursor) Close(ctx context.Context) error {
	c.closed = true
	c.current = nil
	c.docs = nil
	return nil
}

// Len returns the total number of documents in the cursor.
func (c *SliceCursor) Len() int {
	return len(c.docs)
}
