package gridfs

import (
	"context"

	"github.com/marmos91/dittogrid/pkg/store"
)

// Listing iterates over the filenames stored in a bucket, one per file
// record, in the backing store's result order.
//
// A Listing is finite and cannot be restarted:
//
//	l, err := bucket.List(ctx)
//	if err != nil { ... }
//	defer l.Close(ctx)
//	for l.Next(ctx) {
//	    fmt.Println(l.Name())
//	}
//	if err := l.Err(); err != nil { ... }
type Listing struct {
	cur  store.Cursor
	name string
	err  error
}

// List starts a Listing over every file record of the bucket.
func (b *Bucket) List(ctx context.Context) (*Listing, error) {
	cur, err := b.db.Collection(filesCollection(b.root)).Find(ctx, nil)
	if err != nil {
		return nil, storeError("list files", err)
	}
	return &Listing{cur: cur}, nil
}

// ListAll drains a Listing into a slice.
func (b *Bucket) ListAll(ctx context.Context) ([]string, error) {
	l, err := b.List(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = l.Close(ctx) }()

	names := []string{}
	for l.Next(ctx) {
		names = append(names, l.Name())
	}
	return names, l.Err()
}

// Next advances to the next filename.
func (l *Listing) Next(ctx context.Context) bool {
	if l.err != nil {
		return false
	}
	if !l.cur.Next(ctx) {
		if err := l.cur.Err(); err != nil {
			l.err = storeError("list files", err)
		}
		return false
	}

	var doc struct {
		Filename string `bson:"filename"`
	}
	if err := l.cur.Decode(&doc); err != nil {
		l.err = storeError("decode file", err)
		return false
	}
	l.name = doc.Filename
	return true
}

// Name returns the current filename.
func (l *Listing) Name() string { return l.name }

// Err returns the error that stopped the iteration, if any.
func (l *Listing) Err() error { return l.err }

// Close releases the underlying cursor.
func (l *Listing) Close(ctx context.Context) error {
	return l.cur.Close(ctx)
}
