// Package gridfs stores large binary objects as fixed-size chunks in a
// document database, the GridFS layout.
//
// A file is two kinds of documents under a root prefix (default "fs"):
//
//	<root>.files   one FileRecord per file
//	<root>.chunks  {_id, files_id, n, data}, chunk n covers
//	               bytes [n*chunkSize, (n+1)*chunkSize)
//
// GridStore turns those documents into a seekable byte stream with
// open-mode semantics ("r", "w", "w+"). Bucket adds directory operations
// (list, exists, unlink, one-shot reads and writes) on top of it.
//
// The package depends only on the store interfaces; any adapter from
// pkg/store can back it.
package gridfs

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/marmos91/dittogrid/internal/logger"
	"github.com/marmos91/dittogrid/pkg/store"
)

// handleState tracks where a GridStore is in its lifecycle.
type handleState int

const (
	stateNew handleState = iota
	stateOpen
	stateClosed

	// stateFailed is entered when Open rejects the mode
	stateFailed
)

// GridStore is a handle on one stored file.
//
// Lifecycle:
//
//	gs := gridfs.New(db, "report.csv", gridfs.ModeWrite, nil)
//	if err := gs.Open(ctx); err != nil { ... }
//	if _, err := gs.Write(ctx, data); err != nil { ... }
//	if err := gs.Close(ctx); err != nil { ... }
//
// Only Close persists the file record; data reaches storage chunk by chunk
// as writes cross chunk boundaries and at Close.
//
// Thread Safety:
// A GridStore is not safe for concurrent use. Several handles may share one
// store.Database, but nothing coordinates handles on the same filename: the
// last Close wins on the file record.
type GridStore struct {
	db       store.Database
	root     string
	filename string
	mode     Mode
	opts     *OpenOptions

	defaultContentType string
	defaultChunkSize   int

	metrics Metrics
	state   handleState

	// record mirrors the stored file document
	record FileRecord

	// existing is set when Open found a stored record
	existing bool

	// position is the global byte offset of the stream
	position int64

	// extent is the logical end of the data: the stored length in read
	// mode, the furthest byte written so far in write modes
	extent int64

	// maxOrdinal is the highest chunk ordinal known to exist in storage,
	// -1 when there is none
	maxOrdinal int64

	// chunk is the chunk under the position
	chunk *chunk
}

// New creates an unopened handle for filename in the given mode.
//
// The mode is validated by Open, not here. opts may be nil.
//
// Parameters:
//   - db: Backing store holding <root>.files and <root>.chunks
//   - filename: Name of the file; names are not unique at the storage layer
//   - mode: ModeRead, ModeWrite or ModeAppend
//   - opts: Optional per-open overrides
//
// Returns:
//   - *GridStore: Handle in the unopened state
func New(db store.Database, filename string, mode Mode, opts *OpenOptions) *GridStore {
	gs := &GridStore{
		db:                 db,
		root:               DefaultRoot,
		filename:           filename,
		mode:               mode,
		opts:               opts,
		defaultContentType: DefaultContentType,
		defaultChunkSize:   DefaultChunkSize,
		metrics:            noopMetrics{},
		maxOrdinal:         -1,
	}
	if opts != nil && opts.Root != "" {
		gs.root = opts.Root
	}
	return gs
}

// ============================================================================
// Open
// ============================================================================

// Open loads or creates the file record and positions the stream according
// to the mode.
//
// Behavior per mode:
//   - "r":  position 0; a missing file reads as empty
//   - "w":  every existing chunk is deleted; overrides from the options apply
//   - "w+": position at the end of the existing data; the chunk size
//     override only applies to a file that does not exist yet
//
// Errors:
//   - ErrInvalidMode: the handle becomes unusable
//   - ErrAlreadyOpen: Open was already called
//   - ErrInvalidChunkSize: the options carry an unusable chunk size
//   - ErrBackingStore: wrapping the adapter's error
func (gs *GridStore) Open(ctx context.Context) (err error) {
	defer gs.observe("open", time.Now(), &err)

	switch gs.state {
	case stateNew:
	case stateFailed:
		return ErrInvalidMode
	default:
		return ErrAlreadyOpen
	}

	if !gs.mode.Valid() {
		gs.state = stateFailed
		return ErrInvalidMode
	}
	if gs.opts != nil && gs.opts.ChunkSize != 0 {
		if err := validateChunkSize(gs.opts.ChunkSize); err != nil {
			return err
		}
	}

	// Step 1: load the existing record or start a new one
	found, err := gs.loadRecord(ctx)
	if err != nil {
		return err
	}
	gs.existing = found

	// Step 2: position the stream
	switch gs.mode {
	case ModeRead:
		err = gs.openRead(ctx)
	case ModeWrite:
		err = gs.openWrite(ctx)
	case ModeAppend:
		err = gs.openAppend(ctx, found)
	}
	if err != nil {
		return err
	}

	gs.state = stateOpen
	logger.Debug("gridfs: opened %q in %q mode (id=%s, length=%d, chunkSize=%d, existing=%v)",
		gs.filename, gs.mode, gs.record.ID.Hex(), gs.record.Length, gs.record.ChunkSize, found)
	return nil
}

// loadRecord reads the first file record named gs.filename, or prepares a
// fresh one when none exists.
func (gs *GridStore) loadRecord(ctx context.Context) (bool, error) {
	record, found, err := findRecord(ctx, gs.db, gs.root, gs.filename)
	if err != nil {
		return false, err
	}
	if found {
		gs.record = *record
		return true, nil
	}

	gs.record = FileRecord{
		ID:          primitive.NewObjectID(),
		Filename:    gs.filename,
		ContentType: gs.defaultContentType,
		ChunkSize:   int32(gs.defaultChunkSize),
	}
	return false, nil
}

func (gs *GridStore) openRead(ctx context.Context) error {
	gs.position = 0
	gs.extent = gs.record.Length
	if gs.record.Length > 0 {
		gs.maxOrdinal = gs.record.NumChunks() - 1
	}
	return gs.selectChunk(ctx, 0, 0)
}

func (gs *GridStore) openWrite(ctx context.Context) error {
	if err := gs.ensureChunkIndex(ctx); err != nil {
		return err
	}
	if err := gs.deleteChunks(ctx); err != nil {
		return err
	}

	gs.applyOverrides(true)
	gs.position = 0
	gs.extent = 0
	gs.maxOrdinal = -1
	gs.chunk = newChunk(gs.record.ID, 0)
	return nil
}

func (gs *GridStore) openAppend(ctx context.Context, existing bool) error {
	if err := gs.ensureChunkIndex(ctx); err != nil {
		return err
	}

	gs.applyOverrides(!existing)
	if existing && gs.opts != nil && gs.opts.ChunkSize != 0 && gs.opts.ChunkSize != int(gs.record.ChunkSize) {
		logger.Warn("gridfs: ignoring chunk size %d for existing file %q (keeps %d)",
			gs.opts.ChunkSize, gs.filename, gs.record.ChunkSize)
	}

	length := gs.record.Length
	gs.position = length
	gs.extent = length
	gs.maxOrdinal = -1
	if length > 0 {
		gs.maxOrdinal = gs.record.NumChunks() - 1
	}

	ordinal := length / int64(gs.record.ChunkSize)
	c, found, err := loadChunk(ctx, gs.chunks(), gs.record.ID, ordinal)
	if err != nil {
		return storeError("load chunk", err)
	}
	if !found {
		c = newChunk(gs.record.ID, ordinal)
	}
	c.cursor = len(c.data)
	gs.chunk = c
	return nil
}

// applyOverrides copies the open options onto the record. The chunk size is
// only taken when withChunkSize is set.
func (gs *GridStore) applyOverrides(withChunkSize bool) {
	o := gs.opts
	if o == nil {
		return
	}
	if o.ContentType != "" {
		gs.record.ContentType = o.ContentType
	}
	if withChunkSize && o.ChunkSize != 0 {
		gs.record.ChunkSize = int32(o.ChunkSize)
	}
	if o.Metadata != nil {
		gs.record.Metadata = o.Metadata
	}
	if o.Aliases != nil {
		gs.record.Aliases = o.Aliases
	}
}

// ============================================================================
// Accessors
// ============================================================================

// FileID returns the identifier of the file record.
func (gs *GridStore) FileID() primitive.ObjectID { return gs.record.ID }

// Filename returns the name the handle was created for.
func (gs *GridStore) Filename() string { return gs.filename }

// Root returns the collection prefix.
func (gs *GridStore) Root() string { return gs.root }

// Mode returns the open mode.
func (gs *GridStore) Mode() Mode { return gs.mode }

// ContentType returns the content type of the file.
func (gs *GridStore) ContentType() string { return gs.record.ContentType }

// ChunkSize returns the chunk size in bytes.
func (gs *GridStore) ChunkSize() int { return int(gs.record.ChunkSize) }

// Length returns the length of the file. For open write handles this is the
// logical end of the data written so far; the stored length changes at Close.
func (gs *GridStore) Length() int64 {
	if gs.state == stateOpen && gs.mode.Writable() {
		return gs.extent
	}
	return gs.record.Length
}

// UploadDate returns when the file was first closed. The zero time means
// the file was never stored.
func (gs *GridStore) UploadDate() time.Time {
	if gs.record.UploadDate == nil {
		return time.Time{}
	}
	return *gs.record.UploadDate
}

// MD5 returns the checksum computed at the last Close.
func (gs *GridStore) MD5() string { return gs.record.MD5 }

// Metadata returns the opaque metadata value.
func (gs *GridStore) Metadata() any { return gs.record.Metadata }

// Aliases returns the opaque aliases value.
func (gs *GridStore) Aliases() any { return gs.record.Aliases }

// Record returns a copy of the file record as currently known.
func (gs *GridStore) Record() FileRecord {
	r := gs.record
	if gs.state == stateOpen && gs.mode.Writable() {
		r.Length = gs.extent
	}
	return r
}

// Tell returns the current position.
func (gs *GridStore) Tell() int64 { return gs.position }

// EOF reports whether the position is at the end of the data.
func (gs *GridStore) EOF() bool { return gs.position >= gs.extent }

// IsOpen reports whether the handle accepts stream operations.
func (gs *GridStore) IsOpen() bool { return gs.state == stateOpen }

// ============================================================================
// Setters
// ============================================================================

// SetChunkSize changes the chunk size of a file that has not been stored
// yet and holds no data.
//
// Returns ErrChunkSizeLocked once the size is immutable: the handle is
// read-only, the file was loaded from storage, or data was written.
func (gs *GridStore) SetChunkSize(size int) error {
	if gs.state != stateOpen {
		return ErrNotOpen
	}
	if !gs.mode.Writable() || gs.record.UploadDate != nil || gs.position > 0 || gs.extent > 0 {
		return ErrChunkSizeLocked
	}
	if err := validateChunkSize(size); err != nil {
		return err
	}
	gs.record.ChunkSize = int32(size)
	return nil
}

// SetContentType replaces the content type stored at Close.
func (gs *GridStore) SetContentType(contentType string) error {
	if err := gs.checkWritable(); err != nil {
		return err
	}
	gs.record.ContentType = contentType
	return nil
}

// SetMetadata replaces the metadata value stored at Close.
func (gs *GridStore) SetMetadata(metadata any) error {
	if err := gs.checkWritable(); err != nil {
		return err
	}
	gs.record.Metadata = metadata
	return nil
}

// SetAliases replaces the aliases value stored at Close.
func (gs *GridStore) SetAliases(aliases any) error {
	if err := gs.checkWritable(); err != nil {
		return err
	}
	gs.record.Aliases = aliases
	return nil
}

// ============================================================================
// Helpers
// ============================================================================

func (gs *GridStore) files() store.Collection  { return gs.db.Collection(filesCollection(gs.root)) }
func (gs *GridStore) chunks() store.Collection { return gs.db.Collection(chunksCollection(gs.root)) }

func (gs *GridStore) checkOpen() error {
	if gs.state != stateOpen {
		return ErrNotOpen
	}
	return nil
}

func (gs *GridStore) checkWritable() error {
	if err := gs.checkOpen(); err != nil {
		return err
	}
	if !gs.mode.Writable() {
		return ErrNotWritable
	}
	return nil
}

func (gs *GridStore) checkReadable() error {
	if err := gs.checkOpen(); err != nil {
		return err
	}
	if gs.mode != ModeRead {
		return ErrNotReadable
	}
	return nil
}

// chunkIndex is the unique (files_id, n) index on <root>.chunks.
var chunkIndex = store.Index{
	Keys:   bson.D{{Key: "files_id", Value: 1}, {Key: "n", Value: 1}},
	Unique: true,
}

func (gs *GridStore) ensureChunkIndex(ctx context.Context) error {
	if err := gs.chunks().CreateIndex(ctx, chunkIndex); err != nil {
		return storeError("create chunk index", err)
	}
	return nil
}

func (gs *GridStore) deleteChunks(ctx context.Context) error {
	if err := gs.chunks().Remove(ctx, bson.M{"files_id": gs.record.ID}); err != nil {
		return storeError("delete chunks", err)
	}
	return nil
}

// flush persists the current chunk if it holds unsaved bytes.
func (gs *GridStore) flush(ctx context.Context) error {
	c := gs.chunk
	if c == nil || !c.dirty {
		return nil
	}
	if err := c.save(ctx, gs.chunks()); err != nil {
		return storeError("save chunk", err)
	}
	if c.n > gs.maxOrdinal {
		gs.maxOrdinal = c.n
	}
	gs.metrics.RecordChunkPersisted()
	logger.Debug("gridfs: flushed chunk %d of %q (%d bytes)", c.n, gs.filename, len(c.data))
	return nil
}

// selectChunk makes ordinal the current chunk with its cursor at offset.
// Ordinals known to exist are loaded; others start empty.
func (gs *GridStore) selectChunk(ctx context.Context, ordinal int64, offset int) error {
	if gs.chunk != nil && gs.chunk.n == ordinal {
		gs.chunk.cursor = offset
		return nil
	}

	var c *chunk
	if ordinal <= gs.maxOrdinal {
		loaded, found, err := loadChunk(ctx, gs.chunks(), gs.record.ID, ordinal)
		if err != nil {
			return storeError("load chunk", err)
		}
		if found {
			c = loaded
		}
	}
	if c == nil {
		c = newChunk(gs.record.ID, ordinal)
	}
	c.cursor = offset
	gs.chunk = c
	return nil
}

func (gs *GridStore) observe(op string, start time.Time, err *error) {
	gs.metrics.ObserveOperation(op, time.Since(start), *err)
}

func validateChunkSize(size int) error {
	if size <= 0 || size > MaxChunkSize {
		return ErrInvalidChunkSize
	}
	return nil
}

// findRecord returns the first file record named filename under root.
func findRecord(ctx context.Context, db store.Database, root, filename string) (*FileRecord, bool, error) {
	cur, err := db.Collection(filesCollection(root)).Find(ctx, bson.M{"filename": filename})
	if err != nil {
		return nil, false, storeError("find file", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return nil, false, storeError("find file", err)
		}
		return nil, false, nil
	}

	var record FileRecord
	if err := cur.Decode(&record); err != nil {
		return nil, false, storeError("decode file", err)
	}
	if record.ChunkSize <= 0 {
		record.ChunkSize = DefaultChunkSize
	}
	return &record, true, nil
}
