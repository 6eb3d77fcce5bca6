package domain

// Passage is one ranked result from fine search, shaped for the answering
// collaborator to splice into a prompt.
type Passage struct {
	// ChunkID identifies the underlying chunk.
	ChunkID string

	// Content is the chunk's text.
	Content string

	// SectionIndex is the position of the owning section in the document.
	SectionIndex int

	// SectionTitle is the owning section's heading.
	SectionTitle string

	// Page is the 1-based page the chunk starts on, zero when unknown.
	Page int

	// Score is the cosine similarity against the query vector, in [-1, 1].
	Score float64
}

// SectionHit is one ranked result from coarse search.
type SectionHit struct {
	// SectionIndex is the position of the section in the document.
	SectionIndex int

	// Title is the section heading.
	Title string

	// Score is the cosine similarity of the section's representative
	// vector against the query vector.
	Score float64
}
