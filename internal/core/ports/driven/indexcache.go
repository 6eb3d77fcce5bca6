package driven

import (
	"context"

	"github.com/MIMICLab/DocsRay/internal/core/domain"
)

// IndexCache persists built indices keyed by (document fingerprint,
// embedding scheme version). The scheme is part of the key so that a
// synthesis upgrade can never serve dimensionally incompatible vectors:
// a scheme change is simply a miss, triggering a full rebuild.
//
// Store must be atomic with respect to concurrent readers; a reader must
// never observe a partially written index. Eviction is an external
// storage-quota concern, not the cache's.
type IndexCache interface {
	// Load returns the cached index for the key, or domain.ErrNotFound.
	Load(ctx context.Context, fingerprint, scheme string) (*domain.Index, error)

	// Store persists the index under its own (Fingerprint, Scheme) key,
	// replacing any previous entry for that key.
	Store(ctx context.Context, index *domain.Index) error

	// Close releases resources.
	Close() error
}
