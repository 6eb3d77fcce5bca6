package domain

import "time"

// SectionRep is the representative vector of one section: the re-normalized
// mean of the section's chunk vectors. Sections with zero chunks have no
// representative and are absent from the index's rep list.
type SectionRep struct {
	// SectionIndex is the position of the section in the document.
	SectionIndex int

	// Title is the section heading, carried for result hydration.
	Title string

	// StartPage is the section's 1-based start page, zero when unknown.
	StartPage int

	// Vector is the unit-length representative vector.
	Vector []float32
}

// Index is the built, immutable search structure for one document version
// under one embedding scheme: the flat chunk collection plus the section
// representative vectors. An Index must not be mutated after publish; that
// is what makes concurrent queries safe without locking.
type Index struct {
	// Fingerprint is the indexed document's content fingerprint.
	Fingerprint string

	// Scheme is the embedding scheme version the vectors were produced
	// under. Vectors from different schemes are not comparable.
	Scheme string

	// BuildID identifies this particular build, for log correlation.
	BuildID string

	// Title is the document title.
	Title string

	// CreatedAt is when the index was built.
	CreatedAt time.Time

	// Chunks holds every chunk in document order.
	Chunks []Chunk

	// Sections holds the representative vectors of non-empty sections,
	// in document order.
	Sections []SectionRep

	byID map[string]int
}

// NewIndex assembles an index and prepares its chunk lookup table.
func NewIndex(fingerprint, scheme, buildID, title string, chunks []Chunk, sections []SectionRep) *Index {
	idx := &Index{
		Fingerprint: fingerprint,
		Scheme:      scheme,
		BuildID:     buildID,
		Title:       title,
		CreatedAt:   time.Now().UTC(),
		Chunks:      chunks,
		Sections:    sections,
	}
	idx.Reindex()
	return idx
}

// Reindex rebuilds the chunk-ID lookup table. Callers that populate Chunks
// directly (the cache adapters, after deserialization) must call it before
// the index is queried.
func (idx *Index) Reindex() {
	idx.byID = make(map[string]int, len(idx.Chunks))
	for i, c := range idx.Chunks {
		idx.byID[c.ID] = i
	}
}

// Chunk returns the chunk with the given ID, or false when absent.
func (idx *Index) Chunk(id string) (Chunk, bool) {
	i, ok := idx.byID[id]
	if !ok {
		return Chunk{}, false
	}
	return idx.Chunks[i], true
}

// SectionChunks returns the chunks belonging to the given section, in
// document order.
func (idx *Index) SectionChunks(sectionIndex int) []Chunk {
	var out []Chunk
	for _, c := range idx.Chunks {
		if c.SectionIndex == sectionIndex {
			out = append(out, c)
		}
	}
	return out
}

// Dimensions returns the vector width of the index, or zero when the index
// holds no vectors.
func (idx *Index) Dimensions() int {
	if len(idx.Chunks) > 0 {
		return len(idx.Chunks[0].Embedding)
	}
	if len(idx.Sections) > 0 {
		return len(idx.Sections[0].Vector)
	}
	return 0
}

// Empty reports whether the index holds no chunks.
func (idx *Index) Empty() bool {
	return len(idx.Chunks) == 0
}
