package store

import "errors"

// ============================================================================
// Standard Backing Store Errors
// ============================================================================

// Adapters wrap these with context:
//
//	return fmt.Errorf("save into %s: %w", c.name, store.ErrDuplicateKey)
//
// so callers can test with errors.Is.

var (
	// ErrDuplicateKey indicates a Save would violate a unique index.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrMissingID indicates a document without an _id field was saved.
	ErrMissingID = errors.New("document has no _id")

	// ErrUnsupportedCommand indicates RunCommand received a command the
	// adapter does not implement.
	ErrUnsupportedCommand = errors.New("unsupported command")

	// ErrInvalidCommand indicates a malformed command document.
	ErrInvalidCommand = errors.New("invalid command")

	// ErrNoDocument indicates Decode was called without a current document.
	ErrNoDocument = errors.New("cursor has no current document")

	// ErrClosed indicates the adapter or cursor was already closed.
	ErrClosed = errors.New("store closed")
)
