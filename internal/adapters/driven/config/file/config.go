// Package file loads engine configuration from a TOML file.
// The engine accepts this configuration; it does not own it — callers may
// just as well fill the domain config types directly.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/MIMICLab/DocsRay/internal/core/domain"
)

// Provider names for embedding model configuration.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Config is the on-disk configuration shape.
type Config struct {
	Chunking  ChunkingSection  `toml:"chunking"`
	Search    SearchSection    `toml:"search"`
	Embedding EmbeddingSection `toml:"embedding"`
}

// ChunkingSection configures the chunker.
type ChunkingSection struct {
	TokenBudget     int     `toml:"token_budget"`
	OverlapFraction float64 `toml:"overlap_fraction"`
}

// SearchSection configures the coarse-to-fine cutoffs.
type SearchSection struct {
	CoarseK  int  `toml:"coarse_k"`
	FineN    int  `toml:"fine_n"`
	FineOnly bool `toml:"fine_only"`
}

// EmbeddingSection configures the two underlying embedding models.
type EmbeddingSection struct {
	Primary   ModelSection `toml:"primary"`
	Secondary ModelSection `toml:"secondary"`
}

// ModelSection configures one embedding model collaborator.
type ModelSection struct {
	// Provider selects the adapter: "openai" or "ollama".
	Provider string `toml:"provider"`

	// Model is the model name the provider should use.
	Model string `toml:"model"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `toml:"base_url"`

	// Dimensions overrides the model's native vector size.
	Dimensions int `toml:"dimensions"`

	// QueryPrefix and PassagePrefix are prepended to texts before
	// embedding. E5-family models require "query: " / "passage: ".
	QueryPrefix   string `toml:"query_prefix"`
	PassagePrefix string `toml:"passage_prefix"`

	// APIKey for hosted providers. Falls back to the OPENAI_API_KEY
	// environment variable.
	APIKey string `toml:"api_key"`
}

// Default returns the built-in configuration: a local bge-m3 plus an
// e5-style multilingual model, both served by Ollama.
func Default() *Config {
	return &Config{
		Chunking: ChunkingSection{
			TokenBudget:     domain.DefaultTokenBudget,
			OverlapFraction: domain.DefaultOverlapFraction,
		},
		Search: SearchSection{
			CoarseK: domain.DefaultCoarseK,
			FineN:   domain.DefaultFineN,
		},
		Embedding: EmbeddingSection{
			Primary: ModelSection{
				Provider: ProviderOllama,
				Model:    "bge-m3",
			},
			Secondary: ModelSection{
				Provider:      ProviderOllama,
				Model:         "multilingual-e5-large",
				QueryPrefix:   "query: ",
				PassagePrefix: "passage: ",
			},
		},
	}
}

// DefaultPath returns the default config file location,
// ~/.docsray/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".docsray", "config.toml"), nil
}

// Load reads configuration from the given TOML file, merged over the
// defaults. A missing file is not an error; the defaults apply. A .env
// file in the working directory is loaded first so api keys can live
// outside the config file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // .env is optional

	cfg := Default()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", domain.ErrInvalidConfig, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded values eagerly.
func (c *Config) Validate() error {
	if err := c.ChunkingConfig().Validate(); err != nil {
		return err
	}
	if err := c.SearchConfig().Validate(); err != nil {
		return err
	}
	for _, m := range []ModelSection{c.Embedding.Primary, c.Embedding.Secondary} {
		switch m.Provider {
		case ProviderOpenAI, ProviderOllama:
		default:
			return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidConfig, m.Provider)
		}
	}
	return nil
}

// ChunkingConfig converts the chunking section to its domain type.
func (c *Config) ChunkingConfig() domain.ChunkingConfig {
	return domain.ChunkingConfig{
		TokenBudget:     c.Chunking.TokenBudget,
		OverlapFraction: c.Chunking.OverlapFraction,
	}
}

// SearchConfig converts the search section to its domain type.
func (c *Config) SearchConfig() domain.SearchConfig {
	return domain.SearchConfig{
		CoarseK:  c.Search.CoarseK,
		FineN:    c.Search.FineN,
		FineOnly: c.Search.FineOnly,
	}
}

// ResolveAPIKey returns the model's API key, falling back to the
// OPENAI_API_KEY environment variable.
func (m ModelSection) ResolveAPIKey() string {
	if m.APIKey != "" {
		return m.APIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}
