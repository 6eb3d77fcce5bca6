// Package ai provides factory functions for creating embedding service
// adapters from configuration.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/MIMICLab/DocsRay/internal/adapters/driven/config/file"
	ollamaembed "github.com/MIMICLab/DocsRay/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/MIMICLab/DocsRay/internal/adapters/driven/embedding/openai"
	"github.com/MIMICLab/DocsRay/internal/core/domain"
	"github.com/MIMICLab/DocsRay/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateEmbeddingService creates an embedding service for the configured
// provider.
func CreateEmbeddingService(m file.ModelSection) (driven.EmbeddingService, error) {
	switch m.Provider {
	case file.ProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     m.ResolveAPIKey(),
			BaseURL:    m.BaseURL,
			Model:      m.Model,
			Dimensions: m.Dimensions,
		})
	case file.ProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    m.BaseURL,
			Model:      m.Model,
			Dimensions: m.Dimensions,
		}), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidConfig, m.Provider)
	}
}

// CreateAndValidateEmbeddingService creates an embedding service and
// validates connectivity with a short ping.
func CreateAndValidateEmbeddingService(m file.ModelSection) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}
