package gridfs

import "math"

// ============================================================================
// Defaults
// ============================================================================

const (
	// DefaultRoot is the collection prefix: files live in "fs.files" and
	// chunks in "fs.chunks".
	DefaultRoot = "fs"

	// DefaultContentType is stamped on new files without an override.
	DefaultContentType = "text/plain"

	// DefaultChunkSize is the chunk size of new files (256 KiB).
	DefaultChunkSize = 256 * 1024

	// MaxChunkSize is the largest chunk size the int32 wire field can carry.
	MaxChunkSize = math.MaxInt32
)

// ============================================================================
// Open Modes
// ============================================================================

// Mode selects how a GridStore is opened.
type Mode string

const (
	// ModeRead opens an existing file for reading. A missing file reads as
	// empty.
	ModeRead Mode = "r"

	// ModeWrite truncates: every existing chunk of the file is deleted.
	ModeWrite Mode = "w"

	// ModeAppend positions at the end of the existing data.
	ModeAppend Mode = "w+"
)

// Valid reports whether m is one of the three supported modes.
func (m Mode) Valid() bool {
	return m == ModeRead || m == ModeWrite || m == ModeAppend
}

// Writable reports whether m allows writing.
func (m Mode) Writable() bool {
	return m == ModeWrite || m == ModeAppend
}

// ============================================================================
// Seek Origins
// ============================================================================

// Seek origins, numbered as in the GridFS wire convention.
const (
	SeekSet = 0
	SeekCur = 1
	SeekEnd = 2
)

// ============================================================================
// Open Options
// ============================================================================

// OpenOptions carries per-open overrides. A nil *OpenOptions means "no
// overrides".
//
// ContentType, Metadata and Aliases are applied in both write modes.
// ChunkSize is applied in "w" mode, and in "w+" only while the file is new.
// All are ignored in "r" mode.
type OpenOptions struct {
	// Root overrides the collection prefix (default "fs").
	Root string

	// ContentType overrides the stored content type.
	ContentType string

	// ChunkSize overrides the chunk size in bytes. Zero keeps the current one.
	ChunkSize int

	// Metadata replaces the opaque metadata document when non-nil.
	Metadata any

	// Aliases replaces the opaque aliases value when non-nil.
	Aliases any
}
