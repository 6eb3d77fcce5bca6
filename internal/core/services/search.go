package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/MIMICLab/DocsRay/internal/core/domain"
	"github.com/MIMICLab/DocsRay/internal/core/ports/driving"
	"github.com/MIMICLab/DocsRay/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.Searcher = (*SearchService)(nil)

// SearchService resolves queries against a built index with coarse-to-fine
// search: cheap section-level filtering first, then precise chunk-level
// ranking restricted to the shortlisted sections. Queries are read-only
// over the immutable index and safe to run concurrently.
type SearchService struct {
	synth *Synthesizer
}

// NewSearchService creates a search service.
func NewSearchService(synth *Synthesizer) (*SearchService, error) {
	if synth == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	return &SearchService{synth: synth}, nil
}

// Query embeds the query text and runs coarse-to-fine search over the
// index. An empty query or an empty index yields an empty result, not an
// error.
func (s *SearchService) Query(ctx context.Context, index *domain.Index, query string, cfg domain.SearchConfig) ([]domain.Passage, error) {
	logger.Section("Query Execution")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.Passage{}, nil
	}
	if index == nil || index.Empty() {
		logger.Debug("Empty index, returning no results")
		return []domain.Passage{}, nil
	}
	if index.Scheme != s.synth.Scheme() {
		return nil, fmt.Errorf("index built under scheme %q, querying with %q: %w",
			index.Scheme, s.synth.Scheme(), domain.ErrSchemeMismatch)
	}

	qvec, err := s.synth.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(qvec) != index.Dimensions() {
		return nil, fmt.Errorf("query vector has %d dimensions, index has %d: %w",
			len(qvec), index.Dimensions(), domain.ErrSchemeMismatch)
	}

	var eligible map[int]bool
	if cfg.FineOnly {
		logger.Debug("Fine-only mode: ranking all %d chunks", len(index.Chunks))
	} else {
		hits := CoarseSearch(index, qvec, cfg.CoarseK)
		logger.Debug("Coarse search: %d of %d sections shortlisted", len(hits), len(index.Sections))
		if len(hits) == 0 {
			return []domain.Passage{}, nil
		}
		eligible = make(map[int]bool, len(hits))
		for _, h := range hits {
			eligible[h.SectionIndex] = true
		}
	}

	passages := FineSearch(index, qvec, eligible, cfg.FineN)
	logger.Info("Query returned %d passages", len(passages))
	return passages, nil
}

// CoarseSearch ranks section representative vectors against the query
// vector and returns the top k sections. Sections without a representative
// (zero chunks) are absent from the index's rep list and therefore never
// scored. Ties keep document order; if the index has fewer sections than
// k, all are returned.
func CoarseSearch(index *domain.Index, qvec []float32, k int) []domain.SectionHit {
	hits := make([]domain.SectionHit, 0, len(index.Sections))
	for _, rep := range index.Sections {
		hits = append(hits, domain.SectionHit{
			SectionIndex: rep.SectionIndex,
			Title:        rep.Title,
			Score:        domain.Cosine(qvec, rep.Vector),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits
}

// FineSearch ranks chunks against the query vector and returns the top n
// passages. When eligible is non-nil, only chunks of the listed sections
// are scored; this pruning is what makes the search coarse-to-fine.
// Ties keep document order.
func FineSearch(index *domain.Index, qvec []float32, eligible map[int]bool, n int) []domain.Passage {
	titles := make(map[int]domain.SectionRep, len(index.Sections))
	for _, rep := range index.Sections {
		titles[rep.SectionIndex] = rep
	}

	passages := make([]domain.Passage, 0, len(index.Chunks))
	for _, c := range index.Chunks {
		if eligible != nil && !eligible[c.SectionIndex] {
			continue
		}
		passages = append(passages, domain.Passage{
			ChunkID:      c.ID,
			Content:      c.Content,
			SectionIndex: c.SectionIndex,
			SectionTitle: titles[c.SectionIndex].Title,
			Page:         c.Page,
			Score:        domain.Cosine(qvec, c.Embedding),
		})
	}

	sort.SliceStable(passages, func(i, j int) bool {
		return passages[i].Score > passages[j].Score
	})

	if n < len(passages) {
		passages = passages[:n]
	}
	return passages
}
