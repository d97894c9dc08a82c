package gridfs

import (
	"errors"
	"fmt"
)

// ============================================================================
// Standard GridFS Errors
// ============================================================================

// These errors describe why a GridStore or Bucket operation was refused.
// Callers test for them with errors.Is:
//
//	data, err := gs.Read(ctx, 1024)
//	if err != nil {
//	    if errors.Is(err, gridfs.ErrNotReadable) {
//	        // opened for writing
//	    }
//	    return err
//	}
//
// Backing-store failures are wrapped twice, so both the GridFS sentinel and
// the adapter's own error remain visible:
//
//	errors.Is(err, gridfs.ErrBackingStore)  // true
//	errors.Is(err, store.ErrDuplicateKey)   // true if that was the cause

var (
	// ErrInvalidMode indicates Open was called with a mode other than
	// "r", "w" or "w+". The handle stays unusable.
	ErrInvalidMode = errors.New("invalid open mode")

	// ErrNotWritable indicates a write-side operation (Write, Puts, Close,
	// setters) on a handle opened in "r" mode.
	ErrNotWritable = errors.New("file not opened for writing")

	// ErrNotReadable indicates a read-side operation (Read, Getc, Readlines)
	// on a handle opened in "w" or "w+" mode.
	ErrNotReadable = errors.New("file not opened for reading")

	// ErrNotOpen indicates a stream operation on a handle that was never
	// opened or was already closed.
	ErrNotOpen = errors.New("file not open")

	// ErrAlreadyOpen indicates Open was called twice on the same handle.
	ErrAlreadyOpen = errors.New("file already open")

	// ErrChunkSizeLocked indicates SetChunkSize after the chunk size became
	// immutable: the file was loaded from storage, data was written, or the
	// handle is read-only.
	ErrChunkSizeLocked = errors.New("chunk size can no longer be changed")

	// ErrInvalidChunkSize indicates a chunk size that is not positive or does
	// not fit the int32 wire field.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidOffset indicates a seek target outside [0, length].
	ErrInvalidOffset = errors.New("invalid offset")

	// ErrInvalidWhence indicates a seek origin other than SeekSet, SeekCur
	// or SeekEnd.
	ErrInvalidWhence = errors.New("invalid whence")

	// ErrMissingChunk indicates the file record promises more data than the
	// chunks collection holds.
	ErrMissingChunk = errors.New("missing chunk")

	// ErrFileNotFound indicates no file record carries the requested name.
	// Only Stat and Get report it; Open in "r" mode yields an empty file.
	ErrFileNotFound = errors.New("file not found")

	// ErrBackingStore wraps every failure reported by the store.Database.
	ErrBackingStore = errors.New("backing store error")
)

// storeError wraps a backing-store failure.
func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrBackingStore, op, err)
}
