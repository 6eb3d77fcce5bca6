package driving

import (
	"context"

	"github.com/MIMICLab/DocsRay/internal/core/domain"
)

// Searcher resolves natural-language queries against a built index.
type Searcher interface {
	// Query embeds the query text and runs coarse-to-fine search over the
	// index, returning at most cfg.FineN passages ranked by similarity.
	Query(ctx context.Context, index *domain.Index, query string, cfg domain.SearchConfig) ([]domain.Passage, error)
}
