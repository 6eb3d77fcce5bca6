// Package docsray is the coarse-to-fine retrieval engine behind DocsRay's
// document question answering: it turns extracted document text into a
// two-level searchable index (sections, then chunks) and resolves a query
// into a ranked set of passages.
//
// The engine consumes already-extracted section text and produces ranked
// passages; extraction, answer generation and all user-facing surfaces are
// collaborators outside this module.
package docsray

import (
	"context"

	"github.com/MIMICLab/DocsRay/internal/adapters/driven/ai"
	"github.com/MIMICLab/DocsRay/internal/adapters/driven/cache/sqlite"
	"github.com/MIMICLab/DocsRay/internal/adapters/driven/config/file"
	"github.com/MIMICLab/DocsRay/internal/core/domain"
	"github.com/MIMICLab/DocsRay/internal/core/ports/driven"
	"github.com/MIMICLab/DocsRay/internal/core/services"
)

// Re-exported domain types, so callers outside the module can name them.
type (
	// Document is an extracted document: an ordered sequence of sections.
	Document = domain.Document

	// Section is a titled region of a document.
	Section = domain.Section

	// Chunk is the smallest retrievable unit.
	Chunk = domain.Chunk

	// Index is the built, immutable search structure for one document
	// version under one embedding scheme.
	Index = domain.Index

	// Passage is one ranked fine-search result.
	Passage = domain.Passage

	// ChunkingConfig controls how section text is split into chunks.
	ChunkingConfig = domain.ChunkingConfig

	// SearchConfig controls the coarse-to-fine search cutoffs.
	SearchConfig = domain.SearchConfig

	// ModelSlot pairs an embedding service with the prefixes its model
	// expects.
	ModelSlot = services.ModelSlot
)

// Re-exported sentinel errors.
var (
	ErrNotFound      = domain.ErrNotFound
	ErrInvalidConfig = domain.ErrInvalidConfig
)

// DefaultChunkingConfig returns the default chunking configuration.
func DefaultChunkingConfig() ChunkingConfig { return domain.DefaultChunkingConfig() }

// DefaultSearchConfig returns the default search configuration.
func DefaultSearchConfig() SearchConfig { return domain.DefaultSearchConfig() }

// Engine bundles the synthesizer, index builder and searcher behind one
// handle. An Engine is safe for concurrent use.
type Engine struct {
	synth    *services.Synthesizer
	indexer  *services.IndexService
	searcher *services.SearchService
	cache    driven.IndexCache
}

// Option configures the engine.
type Option func(*engineConfig)

type engineConfig struct {
	cache     driven.IndexCache
	indexOpts []services.IndexOption
}

// WithCache sets the index cache. Without one, indices are rebuilt on
// every Ensure call and never persisted.
func WithCache(cache driven.IndexCache) Option {
	return func(c *engineConfig) {
		c.cache = cache
	}
}

// WithEmbedBatchSize sets the embedding batch size used during builds.
func WithEmbedBatchSize(size int) Option {
	return func(c *engineConfig) {
		c.indexOpts = append(c.indexOpts, services.WithEmbedBatchSize(size))
	}
}

// WithEmbedWorkers sets the number of concurrent embedding batches.
func WithEmbedWorkers(n int) Option {
	return func(c *engineConfig) {
		c.indexOpts = append(c.indexOpts, services.WithEmbedWorkers(n))
	}
}

// New creates an engine over the two embedding model slots.
func New(primary, secondary ModelSlot, opts ...Option) (*Engine, error) {
	var cfg engineConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	synth, err := services.NewSynthesizer(primary, secondary)
	if err != nil {
		return nil, err
	}
	indexer, err := services.NewIndexService(synth, cfg.cache, cfg.indexOpts...)
	if err != nil {
		return nil, err
	}
	searcher, err := services.NewSearchService(synth)
	if err != nil {
		return nil, err
	}

	return &Engine{
		synth:    synth,
		indexer:  indexer,
		searcher: searcher,
		cache:    cfg.cache,
	}, nil
}

// Open creates an engine from the TOML config file at path (or the
// default location when path is empty), wiring the configured embedding
// providers and a SQLite cache under cacheDir.
func Open(path, cacheDir string) (*Engine, error) {
	cfg, err := file.Load(path)
	if err != nil {
		return nil, err
	}

	primarySvc, err := ai.CreateEmbeddingService(cfg.Embedding.Primary)
	if err != nil {
		return nil, err
	}
	secondarySvc, err := ai.CreateEmbeddingService(cfg.Embedding.Secondary)
	if err != nil {
		primarySvc.Close()
		return nil, err
	}

	cache, err := sqlite.NewCache(cacheDir)
	if err != nil {
		primarySvc.Close()
		secondarySvc.Close()
		return nil, err
	}

	return New(
		ModelSlot{
			Service:       primarySvc,
			QueryPrefix:   cfg.Embedding.Primary.QueryPrefix,
			PassagePrefix: cfg.Embedding.Primary.PassagePrefix,
		},
		ModelSlot{
			Service:       secondarySvc,
			QueryPrefix:   cfg.Embedding.Secondary.QueryPrefix,
			PassagePrefix: cfg.Embedding.Secondary.PassagePrefix,
		},
		WithCache(cache),
	)
}

// Scheme returns the engine's embedding scheme version string.
func (e *Engine) Scheme() string {
	return e.synth.Scheme()
}

// Ping verifies both underlying embedding models are reachable.
func (e *Engine) Ping(ctx context.Context) error {
	return e.synth.Ping(ctx)
}

// BuildIndex builds a fresh index for the document and stores it in the
// cache. The in-memory index is returned even if persistence failed.
func (e *Engine) BuildIndex(ctx context.Context, doc *Document, cfg ChunkingConfig) (*Index, error) {
	return e.indexer.Build(ctx, doc, cfg)
}

// EnsureIndex returns the cached index for the document, building one on
// a miss. Concurrent calls for the same document share a single build.
func (e *Engine) EnsureIndex(ctx context.Context, doc *Document, cfg ChunkingConfig) (*Index, error) {
	return e.indexer.Ensure(ctx, doc, cfg)
}

// Query runs coarse-to-fine search over the index and returns ranked
// passages for the answering collaborator.
func (e *Engine) Query(ctx context.Context, index *Index, query string, cfg SearchConfig) ([]Passage, error) {
	return e.searcher.Query(ctx, index, query, cfg)
}

// Close releases the embedding services and the cache.
func (e *Engine) Close() error {
	err := e.synth.Close()
	if e.cache != nil {
		if cerr := e.cache.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
