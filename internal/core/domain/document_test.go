package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeFingerprint_Stable(t *testing.T) {
	doc := &Document{
		Title: "Manual",
		Sections: []Section{
			{Title: "Intro", Text: "Some introductory text."},
			{Title: "Body", Text: "The main content."},
		},
	}

	a := doc.ComputeFingerprint()
	b := doc.ComputeFingerprint()

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestComputeFingerprint_IgnoresDocumentTitle(t *testing.T) {
	sections := []Section{{Title: "S", Text: "same content"}}
	a := (&Document{Title: "report.pdf", Sections: sections}).ComputeFingerprint()
	b := (&Document{Title: "copy-of-report.pdf", Sections: sections}).ComputeFingerprint()

	assert.Equal(t, a, b)
}

func TestComputeFingerprint_ContentSensitive(t *testing.T) {
	base := &Document{Sections: []Section{{Title: "S", Text: "original"}}}
	edited := &Document{Sections: []Section{{Title: "S", Text: "edited"}}}
	retitled := &Document{Sections: []Section{{Title: "T", Text: "original"}}}

	assert.NotEqual(t, base.ComputeFingerprint(), edited.ComputeFingerprint())
	assert.NotEqual(t, base.ComputeFingerprint(), retitled.ComputeFingerprint())
}

func TestComputeFingerprint_SectionBoundaries(t *testing.T) {
	// Same concatenated text split differently must not collide.
	a := &Document{Sections: []Section{{Text: "ab"}, {Text: "c"}}}
	b := &Document{Sections: []Section{{Text: "a"}, {Text: "bc"}}}

	assert.NotEqual(t, a.ComputeFingerprint(), b.ComputeFingerprint())
}

func TestDocument_IsEmpty(t *testing.T) {
	assert.True(t, (&Document{}).IsEmpty())
	assert.True(t, (&Document{Sections: []Section{{Title: "T", Text: "  \n\t "}}}).IsEmpty())
	assert.False(t, (&Document{Sections: []Section{{Text: ""}, {Text: "content"}}}).IsEmpty())
}

func TestChunkID(t *testing.T) {
	fp := "0123456789abcdef0123456789abcdef"

	assert.Equal(t, "0123456789ab-2-7", ChunkID(fp, 2, 7))
	assert.Equal(t, "short-0-0", ChunkID("short", 0, 0))
}
