package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIndex() *Index {
	chunks := []Chunk{
		{ID: "fp-0-0", SectionIndex: 0, Position: 0, Content: "a", Embedding: []float32{1, 0}},
		{ID: "fp-0-1", SectionIndex: 0, Position: 1, Content: "b", Embedding: []float32{0, 1}},
		{ID: "fp-2-0", SectionIndex: 2, Position: 0, Content: "c", Embedding: []float32{1, 1}},
	}
	sections := []SectionRep{
		{SectionIndex: 0, Title: "First", Vector: []float32{1, 0}},
		{SectionIndex: 2, Title: "Third", Vector: []float32{0, 1}},
	}
	return NewIndex("fp", "scheme", "build-1", "Doc", chunks, sections)
}

func TestIndex_ChunkLookup(t *testing.T) {
	idx := testIndex()

	c, ok := idx.Chunk("fp-2-0")
	require.True(t, ok)
	assert.Equal(t, "c", c.Content)

	_, ok = idx.Chunk("missing")
	assert.False(t, ok)
}

func TestIndex_Reindex(t *testing.T) {
	idx := &Index{Chunks: []Chunk{{ID: "x"}, {ID: "y"}}}

	_, ok := idx.Chunk("x")
	assert.False(t, ok, "lookup table absent before Reindex")

	idx.Reindex()
	_, ok = idx.Chunk("x")
	assert.True(t, ok)
}

func TestIndex_SectionChunks(t *testing.T) {
	idx := testIndex()

	got := idx.SectionChunks(0)
	require.Len(t, got, 2)
	assert.Equal(t, "fp-0-0", got[0].ID)
	assert.Equal(t, "fp-0-1", got[1].ID)

	assert.Empty(t, idx.SectionChunks(1))
}

func TestIndex_Dimensions(t *testing.T) {
	assert.Equal(t, 2, testIndex().Dimensions())

	sectionsOnly := NewIndex("fp", "s", "b", "", nil,
		[]SectionRep{{SectionIndex: 0, Vector: []float32{0, 0, 1}}})
	assert.Equal(t, 3, sectionsOnly.Dimensions())

	assert.Equal(t, 0, NewIndex("fp", "s", "b", "", nil, nil).Dimensions())
}

func TestIndex_Empty(t *testing.T) {
	assert.False(t, testIndex().Empty())
	assert.True(t, NewIndex("fp", "s", "b", "", nil, nil).Empty())
}
