// Package memory provides an in-memory index cache. It backs tests and
// deployments where persistence is unwanted; entries live for the process
// lifetime only.
package memory

import (
	"context"
	"sync"

	"github.com/MIMICLab/DocsRay/internal/core/domain"
	"github.com/MIMICLab/DocsRay/internal/core/ports/driven"
)

// Ensure IndexCache implements the interface.
var _ driven.IndexCache = (*IndexCache)(nil)

// IndexCache is an in-memory implementation of driven.IndexCache.
// Entries are deep-copied on store and load so a cached index can never be
// mutated through a caller's reference.
type IndexCache struct {
	mu      sync.RWMutex
	entries map[string]*domain.Index
}

// NewIndexCache creates a new in-memory index cache.
func NewIndexCache() *IndexCache {
	return &IndexCache{
		entries: make(map[string]*domain.Index),
	}
}

// Load returns the cached index for the key, or domain.ErrNotFound.
func (c *IndexCache) Load(_ context.Context, fingerprint, scheme string) (*domain.Index, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	idx, ok := c.entries[key(fingerprint, scheme)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(idx), nil
}

// Store replaces the entry for the index's (Fingerprint, Scheme) key.
func (c *IndexCache) Store(_ context.Context, index *domain.Index) error {
	snapshot := clone(index)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(index.Fingerprint, index.Scheme)] = snapshot
	return nil
}

// Len returns the number of cached entries.
func (c *IndexCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close releases resources.
func (c *IndexCache) Close() error {
	return nil
}

func key(fingerprint, scheme string) string {
	return fingerprint + "|" + scheme
}

func clone(idx *domain.Index) *domain.Index {
	chunks := make([]domain.Chunk, len(idx.Chunks))
	for i, c := range idx.Chunks {
		c.Embedding = append([]float32(nil), c.Embedding...)
		chunks[i] = c
	}
	sections := make([]domain.SectionRep, len(idx.Sections))
	for i, rep := range idx.Sections {
		rep.Vector = append([]float32(nil), rep.Vector...)
		sections[i] = rep
	}

	out := &domain.Index{
		Fingerprint: idx.Fingerprint,
		Scheme:      idx.Scheme,
		BuildID:     idx.BuildID,
		Title:       idx.Title,
		CreatedAt:   idx.CreatedAt,
		Chunks:      chunks,
		Sections:    sections,
	}
	out.Reindex()
	return out
}
