package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/MIMICLab/DocsRay/internal/chunker"
	"github.com/MIMICLab/DocsRay/internal/core/domain"
	"github.com/MIMICLab/DocsRay/internal/core/ports/driven"
	"github.com/MIMICLab/DocsRay/internal/core/ports/driving"
	"github.com/MIMICLab/DocsRay/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.Indexer = (*IndexService)(nil)

// Embedding batch defaults.
const (
	// DefaultEmbedBatchSize is the number of chunk texts sent to the
	// models per call.
	DefaultEmbedBatchSize = 32

	// DefaultEmbedWorkers bounds the number of in-flight embedding
	// batches during a build.
	DefaultEmbedWorkers = 4
)

// IndexService builds searchable indices: chunk, embed, aggregate, cache.
// Builds for the same (fingerprint, scheme) key are deduplicated so that
// at most one builder runs per key; concurrent requesters share its result.
type IndexService struct {
	synth     *Synthesizer
	cache     driven.IndexCache
	batchSize int
	workers   int
	builds    singleflight.Group
}

// IndexOption configures the index service.
type IndexOption func(*IndexService)

// WithEmbedBatchSize sets the embedding batch size.
func WithEmbedBatchSize(size int) IndexOption {
	return func(s *IndexService) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// WithEmbedWorkers sets the number of concurrent embedding batches.
func WithEmbedWorkers(n int) IndexOption {
	return func(s *IndexService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewIndexService creates an index service. The cache is optional; when
// nil, indices are built on demand and never persisted.
func NewIndexService(synth *Synthesizer, cache driven.IndexCache, opts ...IndexOption) (*IndexService, error) {
	if synth == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	s := &IndexService{
		synth:     synth,
		cache:     cache,
		batchSize: DefaultEmbedBatchSize,
		workers:   DefaultEmbedWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Scheme returns the embedding scheme version the service builds under.
func (s *IndexService) Scheme() string {
	return s.synth.Scheme()
}

// Build chunks, embeds and aggregates the document into a fresh index.
// The built index is stored in the cache; a store failure is downgraded to
// a warning and the in-memory index is still returned. No partial index is
// ever persisted: the cache write happens only after the whole build
// succeeded.
func (s *IndexService) Build(ctx context.Context, doc *domain.Document, cfg domain.ChunkingConfig) (*domain.Index, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fingerprint := doc.Fingerprint
	if fingerprint == "" {
		fingerprint = doc.ComputeFingerprint()
	}

	key := buildKey(fingerprint, s.synth.Scheme())
	result, err, shared := s.builds.Do(key, func() (any, error) {
		return s.build(ctx, doc, fingerprint, cfg)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debug("Build for %s shared with concurrent requester", key)
	}
	return result.(*domain.Index), nil
}

// Ensure returns the cached index for the document, building one on a
// cache miss. Cache read errors are treated as misses.
func (s *IndexService) Ensure(ctx context.Context, doc *domain.Document, cfg domain.ChunkingConfig) (*domain.Index, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fingerprint := doc.Fingerprint
	if fingerprint == "" {
		fingerprint = doc.ComputeFingerprint()
	}

	if s.cache != nil {
		cached, err := s.cache.Load(ctx, fingerprint, s.synth.Scheme())
		if err == nil {
			logger.Debug("Cache hit for %s", buildKey(fingerprint, s.synth.Scheme()))
			return cached, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Cache read failed, rebuilding: %v", err)
		}
	}

	docCopy := *doc
	docCopy.Fingerprint = fingerprint
	return s.Build(ctx, &docCopy, cfg)
}

func (s *IndexService) build(ctx context.Context, doc *domain.Document, fingerprint string, cfg domain.ChunkingConfig) (*domain.Index, error) {
	logger.Section("Index Build")
	buildID := uuid.New().String()
	logger.Debug("Build %s: document %q, %d sections, scheme %s",
		buildID, doc.Title, len(doc.Sections), s.synth.Scheme())

	// Malformed or empty extraction yields an empty index, not an error.
	if doc.IsEmpty() {
		logger.Info("Document %q has no text, producing empty index", doc.Title)
		return s.publish(ctx, domain.NewIndex(fingerprint, s.synth.Scheme(), buildID, doc.Title, nil, nil)), nil
	}

	chunks := s.chunkDocument(doc, fingerprint, cfg)
	logger.Debug("Chunked into %d chunks", len(chunks))

	if err := s.embedChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}

	reps := buildSectionReps(doc, chunks)
	logger.Debug("Built %d section representatives", len(reps))

	return s.publish(ctx, domain.NewIndex(fingerprint, s.synth.Scheme(), buildID, doc.Title, chunks, reps)), nil
}

// chunkDocument runs the chunker over every section, assigning
// deterministic chunk IDs.
func (s *IndexService) chunkDocument(doc *domain.Document, fingerprint string, cfg domain.ChunkingConfig) []domain.Chunk {
	ch := chunker.FromConfig(cfg)

	var chunks []domain.Chunk
	for si, sec := range doc.Sections {
		for pi, piece := range ch.Split(sec.Text) {
			chunks = append(chunks, domain.Chunk{
				ID:           domain.ChunkID(fingerprint, si, pi),
				SectionIndex: si,
				Position:     pi,
				Content:      piece.Content,
				TokenCount:   piece.Tokens,
				Page:         sec.StartPage,
			})
		}
	}
	return chunks
}

// embedChunks synthesizes embeddings for every chunk, batched and
// parallel. Results land at their chunk's position regardless of batch
// completion order. Any failure aborts the whole build.
func (s *IndexService) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for offset := 0; offset < len(chunks); offset += s.batchSize {
		end := offset + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[offset:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Content
			}
			vecs, err := s.synth.EmbedPassages(gctx, texts)
			if err != nil {
				return err
			}
			for i := range batch {
				batch[i].Embedding = vecs[i]
			}
			return nil
		})
	}

	return g.Wait()
}

// buildSectionReps derives one representative vector per non-empty
// section: the re-normalized mean of the section's chunk vectors.
// Zero-chunk sections get no representative and are thereby excluded from
// coarse search.
func buildSectionReps(doc *domain.Document, chunks []domain.Chunk) []domain.SectionRep {
	bySection := make(map[int][][]float32)
	for _, c := range chunks {
		bySection[c.SectionIndex] = append(bySection[c.SectionIndex], c.Embedding)
	}

	var reps []domain.SectionRep
	for si, sec := range doc.Sections {
		vecs := bySection[si]
		if len(vecs) == 0 {
			continue
		}
		reps = append(reps, domain.SectionRep{
			SectionIndex: si,
			Title:        sec.Title,
			StartPage:    sec.StartPage,
			Vector:       domain.Mean(vecs),
		})
	}
	return reps
}

// publish stores the finished index in the cache. Persistence failure is
// non-fatal: the index is still served from memory.
func (s *IndexService) publish(ctx context.Context, index *domain.Index) *domain.Index {
	if s.cache == nil {
		return index
	}
	if err := s.cache.Store(ctx, index); err != nil {
		logger.Warn("Cache store failed for %s: %v (index kept in memory)",
			buildKey(index.Fingerprint, index.Scheme), err)
	}
	return index
}

func buildKey(fingerprint, scheme string) string {
	return fingerprint + "|" + scheme
}
