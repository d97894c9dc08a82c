package gridfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/dittogrid/internal/logger"
	"github.com/marmos91/dittogrid/pkg/store"
)

// DefaultUnlinkConcurrency bounds how many files a multi-name Unlink
// removes at once.
const DefaultUnlinkConcurrency = 8

// BucketOptions configures a Bucket. Zero values select the package
// defaults.
type BucketOptions struct {
	// Root is the collection prefix (default "fs").
	Root string

	// ContentType is stamped on new files (default "text/plain").
	ContentType string

	// ChunkSize is the chunk size of new files (default 256 KiB).
	ChunkSize int

	// UnlinkConcurrency bounds parallel removals in Unlink (default 8).
	UnlinkConcurrency int

	// Metrics receives observations from the bucket and its handles.
	Metrics Metrics
}

// Bucket groups the files stored under one root prefix and offers
// directory operations on them.
//
// A Bucket carries no state besides its configuration; it is safe for
// concurrent use when the underlying store.Database is.
type Bucket struct {
	db                store.Database
	root              string
	contentType       string
	chunkSize         int
	unlinkConcurrency int
	metrics           Metrics
}

// NewBucket creates a Bucket over db.
func NewBucket(db store.Database, opts BucketOptions) *Bucket {
	b := &Bucket{
		db:                db,
		root:              opts.Root,
		contentType:       opts.ContentType,
		chunkSize:         opts.ChunkSize,
		unlinkConcurrency: opts.UnlinkConcurrency,
		metrics:           metricsOrNoop(opts.Metrics),
	}
	if b.root == "" {
		b.root = DefaultRoot
	}
	if b.contentType == "" {
		b.contentType = DefaultContentType
	}
	if b.chunkSize <= 0 {
		b.chunkSize = DefaultChunkSize
	}
	if b.unlinkConcurrency <= 0 {
		b.unlinkConcurrency = DefaultUnlinkConcurrency
	}
	return b
}

// Root returns the collection prefix of the bucket.
func (b *Bucket) Root() string { return b.root }

// Database returns the backing store.
func (b *Bucket) Database() store.Database { return b.db }

// New creates an unopened handle carrying the bucket's defaults. A Root in
// opts takes precedence over the bucket's.
func (b *Bucket) New(filename string, mode Mode, opts *OpenOptions) *GridStore {
	gs := New(b.db, filename, mode, opts)
	if opts == nil || opts.Root == "" {
		gs.root = b.root
	}
	gs.defaultContentType = b.contentType
	gs.defaultChunkSize = b.chunkSize
	gs.metrics = b.metrics
	return gs
}

// Open creates a handle and opens it.
func (b *Bucket) Open(ctx context.Context, filename string, mode Mode, opts *OpenOptions) (*GridStore, error) {
	gs := b.New(filename, mode, opts)
	if err := gs.Open(ctx); err != nil {
		return nil, err
	}
	return gs, nil
}

// Exists reports whether a file record named filename is stored.
func (b *Bucket) Exists(ctx context.Context, filename string) (ok bool, err error) {
	defer b.observe("exists", time.Now(), &err)

	_, found, err := findRecord(ctx, b.db, b.root, filename)
	return found, err
}

// Stat returns the stored record of filename.
//
// Returns ErrFileNotFound when no record carries that name.
func (b *Bucket) Stat(ctx context.Context, filename string) (record *FileRecord, err error) {
	defer b.observe("stat", time.Now(), &err)

	record, found, err := findRecord(ctx, b.db, b.root, filename)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, filename)
	}
	return record, nil
}

// ============================================================================
// Unlink
// ============================================================================

// Unlink removes each named file: all of its chunks, then its record.
//
// Names that do not exist are skipped silently. With several names the
// removals run concurrently, bounded by UnlinkConcurrency; every failure is
// reported, joined with errors.Join.
func (b *Bucket) Unlink(ctx context.Context, names ...string) (err error) {
	defer b.observe("unlink", time.Now(), &err)

	switch len(names) {
	case 0:
		return nil
	case 1:
		return b.unlinkOne(ctx, names[0])
	}

	errs := make([]error, len(names))
	var g errgroup.Group
	g.SetLimit(b.unlinkConcurrency)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			errs[i] = b.unlinkOne(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// unlinkOne removes every record carrying name, since filenames are not
// unique, together with the chunks of each.
func (b *Bucket) unlinkOne(ctx context.Context, name string) error {
	ids, err := b.recordIDs(ctx, name)
	if err != nil {
		return fmt.Errorf("unlink %q: %w", name, err)
	}

	files := b.db.Collection(filesCollection(b.root))
	chunks := b.db.Collection(chunksCollection(b.root))
	for _, id := range ids {
		if err := chunks.Remove(ctx, bson.M{"files_id": id}); err != nil {
			return fmt.Errorf("unlink %q: %w", name, storeError("delete chunks", err))
		}
		if err := files.Remove(ctx, bson.M{"_id": id}); err != nil {
			return fmt.Errorf("unlink %q: %w", name, storeError("remove file", err))
		}
		logger.Debug("gridfs: unlinked %q (id=%v)", name, id)
	}
	return nil
}

// recordIDs returns the _id of every file record named name.
func (b *Bucket) recordIDs(ctx context.Context, name string) ([]any, error) {
	cur, err := b.db.Collection(filesCollection(b.root)).Find(ctx, bson.M{"filename": name})
	if err != nil {
		return nil, storeError("find file", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var ids []any
	for cur.Next(ctx) {
		var doc struct {
			ID any `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, storeError("decode file", err)
		}
		ids = append(ids, doc.ID)
	}
	if err := cur.Err(); err != nil {
		return nil, storeError("find file", err)
	}
	return ids, nil
}

// ============================================================================
// One-shot Reads
// ============================================================================

// ReadFile returns length bytes of filename starting at offset. A negative
// length reads to the end. A missing file reads as empty.
func (b *Bucket) ReadFile(ctx context.Context, filename string, length int, offset int64) ([]byte, error) {
	gs, err := b.Open(ctx, filename, ModeRead, nil)
	if err != nil {
		return nil, err
	}
	if offset != 0 {
		if _, err := gs.Seek(ctx, offset, SeekSet); err != nil {
			return nil, err
		}
	}
	return gs.Read(ctx, length)
}

// ReadLines returns the lines of filename split after sep (default "\n").
// A missing file yields no lines.
func (b *Bucket) ReadLines(ctx context.Context, filename, sep string) ([]string, error) {
	gs, err := b.Open(ctx, filename, ModeRead, nil)
	if err != nil {
		return nil, err
	}
	return gs.Readlines(ctx, sep)
}

// ============================================================================
// Streaming
// ============================================================================

// Put stores everything read from r as filename, replacing the previous
// content. Returns the saved record.
func (b *Bucket) Put(ctx context.Context, filename string, r io.Reader, opts *OpenOptions) (*FileRecord, error) {
	return b.copyIn(ctx, filename, ModeWrite, r, opts)
}

// Append adds everything read from r at the end of filename, creating it
// if needed. Returns the saved record.
func (b *Bucket) Append(ctx context.Context, filename string, r io.Reader, opts *OpenOptions) (*FileRecord, error) {
	return b.copyIn(ctx, filename, ModeAppend, r, opts)
}

func (b *Bucket) copyIn(ctx context.Context, filename string, mode Mode, r io.Reader, opts *OpenOptions) (*FileRecord, error) {
	gs, err := b.Open(ctx, filename, mode, opts)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, gs.ChunkSize())
	for {
		n, readErr := io.ReadFull(r, buf)
		if n > 0 {
			if _, err := gs.Write(ctx, buf[:n]); err != nil {
				return nil, err
			}
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("read input: %w", readErr)
		}
	}

	if err := gs.Close(ctx); err != nil {
		return nil, err
	}
	record := gs.Record()
	return &record, nil
}

// Get writes the content of filename to w one chunk at a time and returns
// the number of bytes written.
//
// Returns ErrFileNotFound when no record carries that name.
func (b *Bucket) Get(ctx context.Context, filename string, w io.Writer) (int64, error) {
	gs, err := b.Open(ctx, filename, ModeRead, nil)
	if err != nil {
		return 0, err
	}
	if !gs.existing {
		return 0, fmt.Errorf("%w: %s", ErrFileNotFound, filename)
	}

	var total int64
	for {
		data, err := gs.Read(ctx, gs.ChunkSize())
		if err != nil {
			return total, err
		}
		if len(data) == 0 {
			return total, nil
		}
		n, err := w.Write(data)
		total += int64(n)
		if err != nil {
			return total, fmt.Errorf("write output: %w", err)
		}
	}
}

func (b *Bucket) observe(op string, start time.Time, err *error) {
	b.metrics.ObserveOperation(op, time.Since(start), *err)
}
