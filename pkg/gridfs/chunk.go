package gridfs

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/marmos91/dittogrid/pkg/store"
)

// chunkDocument is the stored shape of a chunk in <root>.chunks.
type chunkDocument struct {
	ID      primitive.ObjectID `bson:"_id"`
	FilesID primitive.ObjectID `bson:"files_id"`
	N       int32              `bson:"n"`
	Data    []byte             `bson:"data"`
}

// chunk holds one slice of a file, covering bytes
// [n*chunkSize, (n+1)*chunkSize), plus a cursor into it.
type chunk struct {
	id      primitive.ObjectID
	filesID primitive.ObjectID
	n       int64
	data    []byte

	// cursor is the read/write offset inside data
	cursor int

	// dirty is set by write and cleared by save
	dirty bool
}

// newChunk returns an empty, never-stored chunk.
func newChunk(filesID primitive.ObjectID, n int64) *chunk {
	return &chunk{
		id:      primitive.NewObjectID(),
		filesID: filesID,
		n:       n,
	}
}

// loadChunk fetches chunk n of filesID. found is false when no such chunk is
// stored.
func loadChunk(ctx context.Context, coll store.Collection, filesID primitive.ObjectID, n int64) (c *chunk, found bool, err error) {
	cur, err := coll.Find(ctx, bson.M{"files_id": filesID, "n": int32(n)})
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = cur.Close(ctx) }()

	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	var doc chunkDocument
	if err := cur.Decode(&doc); err != nil {
		return nil, false, err
	}
	return &chunk{
		id:      doc.ID,
		filesID: doc.FilesID,
		n:       int64(doc.N),
		data:    doc.Data,
	}, true, nil
}

// write copies p at the cursor, overwriting existing bytes and extending
// data as needed. The caller guarantees the result fits in one chunk.
func (c *chunk) write(p []byte) {
	if len(p) == 0 {
		return
	}
	end := c.cursor + len(p)
	if end > len(c.data) {
		grown := make([]byte, end)
		copy(grown, c.data)
		c.data = grown
	}
	copy(c.data[c.cursor:end], p)
	c.cursor = end
	c.dirty = true
}

// read returns up to n bytes from the cursor and advances it.
func (c *chunk) read(n int) []byte {
	avail := c.remaining()
	if n > avail {
		n = avail
	}
	if n <= 0 {
		return nil
	}
	out := c.data[c.cursor : c.cursor+n]
	c.cursor += n
	return out
}

// remaining is the number of unread bytes after the cursor.
func (c *chunk) remaining() int {
	if c.cursor >= len(c.data) {
		return 0
	}
	return len(c.data) - c.cursor
}

// save upserts the chunk document.
func (c *chunk) save(ctx context.Context, coll store.Collection) error {
	err := coll.Save(ctx, chunkDocument{
		ID:      c.id,
		FilesID: c.filesID,
		N:       int32(c.n),
		Data:    c.data,
	})
	if err != nil {
		return err
	}
	c.dirty = false
	return nil
}
