package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	// The index cache returns it for a missing (fingerprint, scheme) key.
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates a chunking or search configuration that
	// fails eager validation (non-positive token budget, overlap >= 1, ...).
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingUnavailable indicates an embedding service is not
	// configured. The engine cannot build or query without both models.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrSchemeMismatch indicates vectors from different embedding schemes
	// were compared. Indices are rebuilt wholesale on scheme change; a
	// mismatch at query time means the caller paired a query with a stale
	// index.
	ErrSchemeMismatch = errors.New("embedding scheme mismatch")
)

// EmbedItemError reports an embedding failure for one item of a batch.
// Position is the zero-based index of the failing text in the input order,
// so callers can locate the offending chunk.
type EmbedItemError struct {
	Position int
	Text     string
	Err      error
}

// Error implements the error interface.
func (e *EmbedItemError) Error() string {
	text := e.Text
	if len(text) > 80 {
		text = text[:80] + "..."
	}
	return fmt.Sprintf("embed item %d (%q): %v", e.Position, text, e.Err)
}

// Unwrap returns the underlying embedding error.
func (e *EmbedItemError) Unwrap() error {
	return e.Err
}
