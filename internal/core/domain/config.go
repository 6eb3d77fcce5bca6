package domain

import "fmt"

// Default configuration values.
const (
	// DefaultTokenBudget is the target chunk size in tokens.
	DefaultTokenBudget = 200

	// DefaultOverlapFraction is the fraction of the token budget carried
	// over between consecutive chunks.
	DefaultOverlapFraction = 0.15

	// DefaultCoarseK is the number of sections shortlisted by coarse search.
	DefaultCoarseK = 5

	// DefaultFineN is the number of chunks returned by fine search.
	DefaultFineN = 10
)

// ChunkingConfig controls how section text is split into chunks.
// Identical text and config always produce identical chunk boundaries;
// the cache key depends on that.
type ChunkingConfig struct {
	// TokenBudget is the target maximum tokens per chunk. A single
	// sentence or paragraph larger than the budget becomes one oversized
	// chunk rather than being split mid-sentence.
	TokenBudget int

	// OverlapFraction in [0, 1) is the fraction of the budget repeated
	// from the tail of the previous chunk.
	OverlapFraction float64
}

// DefaultChunkingConfig returns the default chunking configuration.
func DefaultChunkingConfig() ChunkingConfig {
	return ChunkingConfig{
		TokenBudget:     DefaultTokenBudget,
		OverlapFraction: DefaultOverlapFraction,
	}
}

// Validate rejects invalid budgets eagerly, before any work starts.
func (c ChunkingConfig) Validate() error {
	if c.TokenBudget <= 0 {
		return fmt.Errorf("%w: token budget must be positive, got %d", ErrInvalidConfig, c.TokenBudget)
	}
	if c.OverlapFraction < 0 || c.OverlapFraction >= 1 {
		return fmt.Errorf("%w: overlap fraction must be in [0, 1), got %g", ErrInvalidConfig, c.OverlapFraction)
	}
	return nil
}

// SearchConfig controls the coarse-to-fine search cutoffs.
type SearchConfig struct {
	// CoarseK is the number of sections the coarse stage shortlists.
	CoarseK int

	// FineN is the number of chunks the fine stage returns.
	FineN int

	// FineOnly skips the coarse stage and ranks every chunk in the index.
	// Slower, occasionally better recall on short documents.
	FineOnly bool
}

// DefaultSearchConfig returns the default search configuration.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		CoarseK: DefaultCoarseK,
		FineN:   DefaultFineN,
	}
}

// Validate rejects invalid cutoffs eagerly.
func (c SearchConfig) Validate() error {
	if c.CoarseK <= 0 && !c.FineOnly {
		return fmt.Errorf("%w: coarse K must be positive, got %d", ErrInvalidConfig, c.CoarseK)
	}
	if c.FineN <= 0 {
		return fmt.Errorf("%w: fine N must be positive, got %d", ErrInvalidConfig, c.FineN)
	}
	return nil
}
