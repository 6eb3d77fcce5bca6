package driving

import (
	"context"

	"github.com/MIMICLab/DocsRay/internal/core/domain"
)

// Indexer builds searchable indices from extracted documents.
type Indexer interface {
	// Build chunks, embeds and aggregates the document into a fresh index,
	// then stores it in the cache. A cache write failure is logged and the
	// in-memory index is still returned.
	Build(ctx context.Context, doc *domain.Document, cfg domain.ChunkingConfig) (*domain.Index, error)

	// Ensure returns the cached index for the document's fingerprint and
	// the current scheme, building one on a miss. Concurrent calls for the
	// same key share a single build.
	Ensure(ctx context.Context, doc *domain.Document, cfg domain.ChunkingConfig) (*domain.Index, error)
}
