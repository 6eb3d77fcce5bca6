package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MIMICLab/DocsRay/internal/core/domain"
)

func TestSplit_Empty(t *testing.T) {
	c := New()

	assert.Nil(t, c.Split(""))
	assert.Nil(t, c.Split("   \n\n \t "))
}

func TestSplit_SingleSentence(t *testing.T) {
	c := New(WithTokenBudget(50))

	pieces := c.Split("The quick brown fox jumps over the lazy dog.")

	require.Len(t, pieces, 1)
	assert.Equal(t, 0, pieces[0].Start)
	assert.Equal(t, 9, pieces[0].Tokens)
}

func TestSplit_Coverage(t *testing.T) {
	texts := []string{
		"One. Two. Three. Four. Five. Six. Seven. Eight. Nine. Ten.",
		"First paragraph with several words in it.\n\nSecond paragraph here. It has two sentences.\n\nThird one!",
		strings.Repeat("Some sentence with exactly six tokens. ", 40),
		"  \n leading whitespace then text. More text follows here? Yes it does.",
	}

	for i, text := range texts {
		t.Run(fmt.Sprintf("text_%d", i), func(t *testing.T) {
			c := New(WithTokenBudget(10), WithOverlap(0.2))
			pieces := c.Split(text)
			require.NotEmpty(t, pieces)

			covered := make([]bool, len(text))
			for _, p := range pieces {
				assert.Equal(t, text[p.Start:p.End], p.Content)
				for j := p.Start; j < p.End; j++ {
					covered[j] = true
				}
			}
			for j := range covered {
				assert.True(t, covered[j], "byte %d not covered", j)
			}
		})
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("Alpha beta gamma delta. Epsilon zeta eta theta!\n\n", 30)
	c := New(WithTokenBudget(25), WithOverlap(0.3))

	first := c.Split(text)
	for run := 0; run < 5; run++ {
		assert.Equal(t, first, c.Split(text))
	}
}

func TestSplit_BudgetRespected(t *testing.T) {
	text := strings.Repeat("Seven words in every single short sentence. ", 50)
	budget := 30
	c := New(WithTokenBudget(budget), WithOverlap(0.1))

	for _, p := range c.Split(text) {
		assert.LessOrEqual(t, p.Tokens, budget)
	}
}

func TestSplit_OversizedParagraph(t *testing.T) {
	// A single 500-token unit with a 100-token budget must become exactly
	// one oversized piece, never a mid-sentence split.
	words := make([]string, 500)
	for i := range words {
		words[i] = fmt.Sprintf("word%d", i)
	}
	text := strings.Join(words, " ")

	c := New(WithTokenBudget(100))
	pieces := c.Split(text)

	require.Len(t, pieces, 1)
	assert.Equal(t, 500, pieces[0].Tokens)
	assert.Equal(t, text, pieces[0].Content)
}

func TestSplit_Overlap(t *testing.T) {
	text := strings.Repeat("Tok tok tok tok tok. ", 30)
	c := New(WithTokenBudget(10), WithOverlap(0.5))

	pieces := c.Split(text)
	require.Greater(t, len(pieces), 1)

	for i := 1; i < len(pieces); i++ {
		assert.Less(t, pieces[i].Start, pieces[i-1].End,
			"piece %d should overlap its predecessor", i)
	}
}

func TestSplit_NoOverlapConfigured(t *testing.T) {
	text := strings.Repeat("Tok tok tok tok tok. ", 30)
	c := New(WithTokenBudget(10), WithOverlap(0))

	pieces := c.Split(text)
	require.Greater(t, len(pieces), 1)

	for i := 1; i < len(pieces); i++ {
		assert.Equal(t, pieces[i-1].End, pieces[i].Start)
	}
}

func TestSplit_PrefersParagraphBoundary(t *testing.T) {
	// 8 tokens, paragraph break, then more text. With a 10-token budget
	// and tolerance, the first piece should end at the paragraph break
	// instead of dragging in the next paragraph's first sentence.
	text := "Eight tokens make up this very first paragraph.\n\nNext paragraph starts here. And keeps going with more words."

	c := New(WithTokenBudget(10), WithOverlap(0), WithTolerance(0.3))
	pieces := c.Split(text)

	require.GreaterOrEqual(t, len(pieces), 2)
	assert.True(t, strings.HasPrefix(pieces[1].Content, "Next paragraph"),
		"second piece should start at the new paragraph, got %q", pieces[1].Content)
}

func TestFromConfig(t *testing.T) {
	cfg := domain.ChunkingConfig{TokenBudget: 42, OverlapFraction: 0.25}
	c := FromConfig(cfg)

	assert.Equal(t, 42, c.budget)
	assert.InDelta(t, 0.25, c.overlap, 1e-9)
}
