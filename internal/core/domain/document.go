package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Document is the extracted form of one source document as handed over by
// the extraction collaborator: an ordered sequence of titled sections.
// Documents are immutable once extracted; a content change produces a new
// fingerprint and therefore a new index.
type Document struct {
	// Fingerprint is the content-derived identity used as the cache key.
	// When empty, callers should fill it via ComputeFingerprint.
	Fingerprint string

	// Title is the human-readable document title.
	Title string

	// Sections is the ordered sequence of extracted sections.
	Sections []Section
}

// Section is a titled region of a document.
type Section struct {
	// Title is the section heading.
	Title string

	// StartPage is the 1-based page the section starts on.
	// Zero when the extraction has no pagination.
	StartPage int

	// Text is the section's full text, pages concatenated in order.
	Text string
}

// Chunk is the smallest retrievable unit. Chunks within a section preserve
// document order; adjacent chunks may share text through the configured
// overlap window.
type Chunk struct {
	// ID identifies the chunk. IDs are derived from the document
	// fingerprint and the chunk's position, so rebuilding the same
	// document version yields the same IDs.
	ID string

	// SectionIndex is the position of the owning section in the document.
	SectionIndex int

	// Position is the ordinal position within the section.
	Position int

	// Content is the chunk's text.
	Content string

	// TokenCount is the chunk's size in tokens as counted by the chunker.
	TokenCount int

	// Page is the 1-based page the chunk starts on, inherited from the
	// section. Zero when unknown.
	Page int

	// Embedding is the synthesized vector for this chunk. Populated during
	// index build; comparable only to vectors of the same scheme.
	Embedding []float32
}

// ComputeFingerprint derives the document's content fingerprint from its
// section titles and text. The fingerprint deliberately ignores the title
// and filename: the same content under a different name is the same
// document.
func (d *Document) ComputeFingerprint() string {
	h := sha256.New()
	for _, sec := range d.Sections {
		fmt.Fprintf(h, "%d:%s\n", len(sec.Title), sec.Title)
		fmt.Fprintf(h, "%d:%s\n", len(sec.Text), sec.Text)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// IsEmpty reports whether the document has no section text at all.
func (d *Document) IsEmpty() bool {
	for _, sec := range d.Sections {
		if strings.TrimSpace(sec.Text) != "" {
			return false
		}
	}
	return true
}

// ChunkID builds the deterministic chunk identifier for a chunk at the
// given section and position of the fingerprinted document.
func ChunkID(fingerprint string, sectionIndex, position int) string {
	prefix := fingerprint
	if len(prefix) > 12 {
		prefix = prefix[:12]
	}
	return fmt.Sprintf("%s-%d-%d", prefix, sectionIndex, position)
}
