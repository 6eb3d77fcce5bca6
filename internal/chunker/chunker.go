// Package chunker splits section text into overlapping, token-bounded
// pieces. Splitting is pure and deterministic: identical text and
// configuration always yield identical boundaries, which is what keeps
// cache keys stable across rebuilds.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MIMICLab/DocsRay/internal/core/domain"
)

// DefaultTolerance is the fraction of the budget within which a chunk may
// end early to land on a paragraph boundary.
const DefaultTolerance = 0.2

// Piece is one chunk of a section's text: a contiguous byte span of the
// input. Consecutive pieces overlap by the configured fraction of the
// token budget; the duplicated text is intentional.
type Piece struct {
	// Start and End are byte offsets into the input text.
	Start int
	End   int

	// Content is the text of the span.
	Content string

	// Tokens is the whitespace-delimited token count of Content.
	Tokens int
}

// Chunker splits text into token-bounded pieces at sentence and paragraph
// boundaries.
type Chunker struct {
	budget    int
	overlap   float64
	tolerance float64
}

// Option configures the chunker.
type Option func(*Chunker)

// WithTokenBudget sets the target maximum tokens per piece.
func WithTokenBudget(budget int) Option {
	return func(c *Chunker) {
		if budget > 0 {
			c.budget = budget
		}
	}
}

// WithOverlap sets the overlap between pieces as a fraction of the budget.
func WithOverlap(fraction float64) Option {
	return func(c *Chunker) {
		if fraction >= 0 && fraction < 1 {
			c.overlap = fraction
		}
	}
}

// WithTolerance sets the paragraph-boundary tolerance as a fraction of the
// budget.
func WithTolerance(fraction float64) Option {
	return func(c *Chunker) {
		if fraction >= 0 && fraction < 1 {
			c.tolerance = fraction
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		budget:    domain.DefaultTokenBudget,
		overlap:   domain.DefaultOverlapFraction,
		tolerance: DefaultTolerance,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromConfig creates a chunker from a validated chunking configuration.
func FromConfig(cfg domain.ChunkingConfig) *Chunker {
	return New(WithTokenBudget(cfg.TokenBudget), WithOverlap(cfg.OverlapFraction))
}

// sentence is one semantic unit of the input: a sentence or a line,
// including its trailing whitespace.
type sentence struct {
	start   int
	end     int
	tokens  int
	paraEnd bool
}

// Split splits text into pieces. Empty or whitespace-only text yields no
// pieces, not an error.
func (c *Chunker) Split(text string) []Piece {
	sents := splitSentences(text)
	if len(sents) == 0 {
		return nil
	}

	overlapTokens := int(float64(c.budget) * c.overlap)
	tolerance := int(float64(c.budget) * c.tolerance)

	var pieces []Piece
	start := 0

	for start < len(sents) {
		// Greedy fill up to the budget. A single unit larger than the
		// budget becomes its own oversized piece rather than being split
		// mid-sentence.
		i := start
		tokens := 0
		for i < len(sents) {
			if tokens > 0 && tokens+sents[i].tokens > c.budget {
				break
			}
			tokens += sents[i].tokens
			i++
			if tokens >= c.budget {
				break
			}
		}
		last := i - 1

		// Prefer ending on a paragraph boundary within the tolerance
		// window.
		if !sents[last].paraEnd {
			cum := tokens
			for j := last; j > start; j-- {
				cum -= sents[j].tokens
				if sents[j-1].paraEnd && cum >= c.budget-tolerance {
					last = j - 1
					break
				}
			}
		}

		span := text[sents[start].start:sents[last].end]
		pieces = append(pieces, Piece{
			Start:   sents[start].start,
			End:     sents[last].end,
			Content: span,
			Tokens:  len(strings.Fields(span)),
		})

		if last == len(sents)-1 {
			break
		}

		// Carry the tail of this piece into the next one.
		next := last + 1
		carried := 0
		for k := last; k > start; k-- {
			if carried+sents[k].tokens > overlapTokens {
				break
			}
			carried += sents[k].tokens
			next = k
		}
		start = next
	}

	return pieces
}

// splitSentences divides text into contiguous sentence spans. A span ends
// after '.', '!', '?' or a newline, and absorbs the whitespace that
// follows, so the spans jointly cover every character of the input.
func splitSentences(text string) []sentence {
	var out []sentence
	start := 0
	i := 0

	emit := func(end int, newlines int) {
		seg := text[start:end]
		atEOF := end == len(text)
		switch {
		case strings.TrimSpace(seg) != "":
			out = append(out, sentence{
				start:   start,
				end:     end,
				tokens:  len(strings.Fields(seg)),
				paraEnd: newlines >= 2 || atEOF,
			})
			start = end
		case len(out) > 0:
			// Whitespace run: fold into the previous sentence.
			out[len(out)-1].end = end
			if newlines >= 2 {
				out[len(out)-1].paraEnd = true
			}
			start = end
		default:
			// Leading whitespace: fold into the next sentence by leaving
			// start where it is.
		}
	}

	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r != '.' && r != '!' && r != '?' && r != '\n' {
			continue
		}
		end := i
		newlines := 0
		if r == '\n' {
			newlines = 1
		}
		for end < len(text) {
			r2, s2 := utf8.DecodeRuneInString(text[end:])
			if !unicode.IsSpace(r2) {
				break
			}
			if r2 == '\n' {
				newlines++
			}
			end += s2
		}
		emit(end, newlines)
		i = end
	}

	if start < len(text) {
		emit(len(text), 0)
	}

	return out
}
