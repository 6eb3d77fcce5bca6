package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MIMICLab/DocsRay/internal/core/domain"
)

func sampleIndex(fingerprint, scheme string) *domain.Index {
	chunks := []domain.Chunk{
		{ID: domain.ChunkID(fingerprint, 0, 0), SectionIndex: 0, Position: 0,
			Content: "first chunk", TokenCount: 2, Embedding: []float32{1, 0, 0}},
		{ID: domain.ChunkID(fingerprint, 1, 0), SectionIndex: 1, Position: 0,
			Content: "second chunk", TokenCount: 2, Embedding: []float32{0, 1, 0}},
	}
	sections := []domain.SectionRep{
		{SectionIndex: 0, Title: "One", Vector: []float32{1, 0, 0}},
		{SectionIndex: 1, Title: "Two", Vector: []float32{0, 1, 0}},
	}
	return domain.NewIndex(fingerprint, scheme, "build-1", "Sample", chunks, sections)
}

func TestIndexCache_RoundTrip(t *testing.T) {
	cache := NewIndexCache()
	ctx := context.Background()
	idx := sampleIndex("fp-a", "scheme-1")

	require.NoError(t, cache.Store(ctx, idx))

	got, err := cache.Load(ctx, "fp-a", "scheme-1")
	require.NoError(t, err)
	assert.Equal(t, idx.Fingerprint, got.Fingerprint)
	assert.Equal(t, idx.BuildID, got.BuildID)
	assert.Equal(t, idx.Chunks, got.Chunks)
	assert.Equal(t, idx.Sections, got.Sections)

	// The lookup table must be rebuilt on load.
	_, ok := got.Chunk(idx.Chunks[0].ID)
	assert.True(t, ok)
}

func TestIndexCache_Miss(t *testing.T) {
	cache := NewIndexCache()

	_, err := cache.Load(context.Background(), "unknown", "scheme-1")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIndexCache_SchemeIsolation(t *testing.T) {
	cache := NewIndexCache()
	ctx := context.Background()

	require.NoError(t, cache.Store(ctx, sampleIndex("fp-a", "scheme-1")))

	_, err := cache.Load(ctx, "fp-a", "scheme-2")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, cache.Store(ctx, sampleIndex("fp-a", "scheme-2")))
	assert.Equal(t, 2, cache.Len())
}

func TestIndexCache_StoreReplaces(t *testing.T) {
	cache := NewIndexCache()
	ctx := context.Background()

	first := sampleIndex("fp-a", "scheme-1")
	require.NoError(t, cache.Store(ctx, first))

	second := sampleIndex("fp-a", "scheme-1")
	second.BuildID = "build-2"
	require.NoError(t, cache.Store(ctx, second))

	got, err := cache.Load(ctx, "fp-a", "scheme-1")
	require.NoError(t, err)
	assert.Equal(t, "build-2", got.BuildID)
	assert.Equal(t, 1, cache.Len())
}

func TestIndexCache_IsolatesCallerMutations(t *testing.T) {
	cache := NewIndexCache()
	ctx := context.Background()

	idx := sampleIndex("fp-a", "scheme-1")
	require.NoError(t, cache.Store(ctx, idx))

	// Mutating the stored index must not leak into the cache.
	idx.Chunks[0].Content = "tampered"
	idx.Chunks[0].Embedding[0] = 99

	got, err := cache.Load(ctx, "fp-a", "scheme-1")
	require.NoError(t, err)
	assert.Equal(t, "first chunk", got.Chunks[0].Content)
	assert.Equal(t, float32(1), got.Chunks[0].Embedding[0])

	// Mutating a loaded index must not leak either.
	got.Chunks[0].Embedding[0] = 42
	again, err := cache.Load(ctx, "fp-a", "scheme-1")
	require.NoError(t, err)
	assert.Equal(t, float32(1), again.Chunks[0].Embedding[0])
}
