package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/MIMICLab/DocsRay/internal/core/domain"
	"github.com/MIMICLab/DocsRay/internal/core/ports/driven"
)

// synthRevision versions the synthesis method itself, independent of the
// underlying models. Bump it when the combination rule changes; cached
// indices built under the old revision then miss and rebuild.
const synthRevision = "v1"

// ModelSlot pairs an embedding service with the text prefixes its model
// expects. E5-family models are trained with "query: " / "passage: "
// prefixes; most others want none.
type ModelSlot struct {
	Service       driven.EmbeddingService
	QueryPrefix   string
	PassagePrefix string
}

// Synthesizer combines two independently trained embedding models into one
// scheme: each text is embedded by both models and the two unit vectors are
// concatenated, then the concatenation is L2-normalized. Concatenation
// keeps both models' information intact and avoids cross-model magnitude
// interference; normalization makes dot product and cosine equivalent.
type Synthesizer struct {
	primary   ModelSlot
	secondary ModelSlot
}

// NewSynthesizer creates a synthesizer over the two model slots.
func NewSynthesizer(primary, secondary ModelSlot) (*Synthesizer, error) {
	if primary.Service == nil || secondary.Service == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	return &Synthesizer{primary: primary, secondary: secondary}, nil
}

// Dimensions returns the synthesized vector width: the sum of both models'
// native dimensionalities.
func (s *Synthesizer) Dimensions() int {
	return s.primary.Service.Dimensions() + s.secondary.Service.Dimensions()
}

// Scheme returns the embedding scheme version string. It ties the vectors'
// dimensionality and semantics to the exact models and combination rule
// that produced them, and is part of every cache key.
func (s *Synthesizer) Scheme() string {
	return fmt.Sprintf("concat(%s+%s)/%s",
		s.primary.Service.ModelName(), s.secondary.Service.ModelName(), synthRevision)
}

// Ping verifies both underlying models are reachable.
func (s *Synthesizer) Ping(ctx context.Context) error {
	if err := s.primary.Service.Ping(ctx); err != nil {
		return fmt.Errorf("primary model %s: %w", s.primary.Service.ModelName(), err)
	}
	if err := s.secondary.Service.Ping(ctx); err != nil {
		return fmt.Errorf("secondary model %s: %w", s.secondary.Service.ModelName(), err)
	}
	return nil
}

// Close releases both underlying services.
func (s *Synthesizer) Close() error {
	err1 := s.primary.Service.Close()
	err2 := s.secondary.Service.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// EmbedQuery synthesizes the vector for a query text.
func (s *Synthesizer) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.embedBatch(ctx, []string{text}, true)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedPassage synthesizes the vector for a single passage text.
func (s *Synthesizer) EmbedPassage(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.embedBatch(ctx, []string{text}, false)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedPassages synthesizes vectors for an ordered sequence of passage
// texts. Output order matches input order. Failure of either model for any
// item is fatal to the whole batch; there is no silent fallback to a
// half-vector.
func (s *Synthesizer) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return s.embedBatch(ctx, texts, false)
}

func (s *Synthesizer) embedBatch(ctx context.Context, texts []string, isQuery bool) ([][]float32, error) {
	prefix := func(slot ModelSlot) []string {
		p := slot.PassagePrefix
		if isQuery {
			p = slot.QueryPrefix
		}
		if p == "" {
			return texts
		}
		out := make([]string, len(texts))
		for i, t := range texts {
			out[i] = p + t
		}
		return out
	}

	// The two model calls are independent; run them in parallel.
	var primaryVecs, secondaryVecs [][]float32
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vecs, err := s.primary.Service.EmbedBatch(gctx, prefix(s.primary))
		if err != nil {
			return fmt.Errorf("primary model %s: %w", s.primary.Service.ModelName(), err)
		}
		primaryVecs = vecs
		return nil
	})
	g.Go(func() error {
		vecs, err := s.secondary.Service.EmbedBatch(gctx, prefix(s.secondary))
		if err != nil {
			return fmt.Errorf("secondary model %s: %w", s.secondary.Service.ModelName(), err)
		}
		secondaryVecs = vecs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(primaryVecs) != len(texts) || len(secondaryVecs) != len(texts) {
		return nil, fmt.Errorf("embedding batch size mismatch: want %d, got %d/%d",
			len(texts), len(primaryVecs), len(secondaryVecs))
	}

	out := make([][]float32, len(texts))
	for i := range texts {
		a, b := primaryVecs[i], secondaryVecs[i]
		if len(a) == 0 || len(b) == 0 {
			return nil, &domain.EmbedItemError{
				Position: i,
				Text:     texts[i],
				Err:      domain.ErrEmbeddingUnavailable,
			}
		}
		vec := make([]float32, 0, len(a)+len(b))
		vec = append(vec, domain.Normalize(a)...)
		vec = append(vec, domain.Normalize(b)...)
		out[i] = domain.Normalize(vec)
	}
	return out, nil
}
