package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MIMICLab/DocsRay/internal/core/domain"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func sampleIndex(fingerprint, scheme string) *domain.Index {
	chunks := []domain.Chunk{
		{ID: domain.ChunkID(fingerprint, 0, 0), SectionIndex: 0, Position: 0,
			Content: "first chunk text", TokenCount: 3, Page: 1,
			Embedding: []float32{0.25, -0.5, 0.75, 1}},
		{ID: domain.ChunkID(fingerprint, 0, 1), SectionIndex: 0, Position: 1,
			Content: "second chunk text", TokenCount: 3, Page: 1,
			Embedding: []float32{1, 0, 0, 0}},
		{ID: domain.ChunkID(fingerprint, 2, 0), SectionIndex: 2, Position: 0,
			Content: "third chunk text", TokenCount: 3, Page: 4,
			Embedding: []float32{0, 0, -1, 0}},
	}
	sections := []domain.SectionRep{
		{SectionIndex: 0, Title: "Opening", StartPage: 1, Vector: []float32{0.5, 0.5, 0.5, 0.5}},
		{SectionIndex: 2, Title: "Closing", StartPage: 4, Vector: []float32{0, 0, -1, 0}},
	}
	return domain.NewIndex(fingerprint, scheme, "build-1", "Sample Doc", chunks, sections)
}

func TestCache_StoreAndLoad(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	idx := sampleIndex("fp-round-trip", "scheme-1")

	require.NoError(t, cache.Store(ctx, idx))

	got, err := cache.Load(ctx, "fp-round-trip", "scheme-1")
	require.NoError(t, err)

	assert.Equal(t, idx.Fingerprint, got.Fingerprint)
	assert.Equal(t, idx.Scheme, got.Scheme)
	assert.Equal(t, idx.BuildID, got.BuildID)
	assert.Equal(t, idx.Title, got.Title)
	assert.WithinDuration(t, idx.CreatedAt, got.CreatedAt, time.Second)

	require.Len(t, got.Chunks, len(idx.Chunks))
	for i, want := range idx.Chunks {
		assert.Equal(t, want.ID, got.Chunks[i].ID)
		assert.Equal(t, want.SectionIndex, got.Chunks[i].SectionIndex)
		assert.Equal(t, want.Position, got.Chunks[i].Position)
		assert.Equal(t, want.Content, got.Chunks[i].Content)
		assert.Equal(t, want.TokenCount, got.Chunks[i].TokenCount)
		assert.Equal(t, want.Page, got.Chunks[i].Page)
		assert.Equal(t, want.Embedding, got.Chunks[i].Embedding)
	}

	require.Len(t, got.Sections, len(idx.Sections))
	for i, want := range idx.Sections {
		assert.Equal(t, want.SectionIndex, got.Sections[i].SectionIndex)
		assert.Equal(t, want.Title, got.Sections[i].Title)
		assert.Equal(t, want.StartPage, got.Sections[i].StartPage)
		assert.Equal(t, want.Vector, got.Sections[i].Vector)
	}

	// Lookup table must work after deserialization.
	c, ok := got.Chunk(idx.Chunks[2].ID)
	require.True(t, ok)
	assert.Equal(t, "third chunk text", c.Content)
}

func TestCache_LoadMiss(t *testing.T) {
	cache := newTestCache(t)

	_, err := cache.Load(context.Background(), "never-stored", "scheme-1")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCache_SchemeIsolation(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Store(ctx, sampleIndex("fp-a", "scheme-1")))

	_, err := cache.Load(ctx, "fp-a", "scheme-2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCache_StoreReplaces(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	first := sampleIndex("fp-a", "scheme-1")
	require.NoError(t, cache.Store(ctx, first))

	second := domain.NewIndex("fp-a", "scheme-1", "build-2", "Sample Doc",
		first.Chunks[:1], first.Sections[:1])
	require.NoError(t, cache.Store(ctx, second))

	got, err := cache.Load(ctx, "fp-a", "scheme-1")
	require.NoError(t, err)
	assert.Equal(t, "build-2", got.BuildID)
	assert.Len(t, got.Chunks, 1, "replaced entry must not retain old chunks")
	assert.Len(t, got.Sections, 1)
}

func TestCache_Delete(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Store(ctx, sampleIndex("fp-a", "scheme-1")))
	require.NoError(t, cache.Delete(ctx, "fp-a", "scheme-1"))

	_, err := cache.Load(ctx, "fp-a", "scheme-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting a missing entry is not an error.
	assert.NoError(t, cache.Delete(ctx, "fp-a", "scheme-1"))
}

func TestCache_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	cache, err := NewCache(dir)
	require.NoError(t, err)
	idx := sampleIndex("fp-persist", "scheme-1")
	require.NoError(t, cache.Store(ctx, idx))
	require.NoError(t, cache.Close())

	reopened, err := NewCache(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(ctx, "fp-persist", "scheme-1")
	require.NoError(t, err)
	assert.Equal(t, idx.BuildID, got.BuildID)
	assert.Equal(t, idx.Chunks[0].Embedding, got.Chunks[0].Embedding)
}

func TestCache_EmptyIndex(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	empty := domain.NewIndex("fp-empty", "scheme-1", "build-1", "Blank", nil, nil)
	require.NoError(t, cache.Store(ctx, empty))

	got, err := cache.Load(ctx, "fp-empty", "scheme-1")
	require.NoError(t, err)
	assert.True(t, got.Empty())
	assert.Empty(t, got.Sections)
}

func TestCache_Path(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewCache(dir)
	require.NoError(t, err)
	defer cache.Close()

	assert.Equal(t, filepath.Join(dir, "index.db"), cache.Path())
}

func TestVectorSerialization(t *testing.T) {
	vecs := [][]float32{
		{0.1, -0.2, 0.3},
		{1},
		nil,
	}
	for _, v := range vecs {
		assert.Equal(t, v, bytesToFloat32Slice(float32SliceToBytes(v)))
	}
}
