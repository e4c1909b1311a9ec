package ai

import (
	"github.com/pkg/errors"

	"github.com/strangecodee/SHL-TASK/ai/balancer"
	"github.com/strangecodee/SHL-TASK/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Embedding EmbeddingConfig
	Reranker  balancer.LLMConfig
	Balancer  balancer.Config
	Retrieval RetrievalConfig
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Provider       string
	Model          string
	APIKey         string
	BaseURL        string
	Dimensions     int
	TimeoutSeconds int
	// MaxConcurrent bounds in-flight embedding calls. Set to 1 for
	// providers that cannot take concurrent inference.
	MaxConcurrent int
	// RequestsPerSecond caps the provider call rate. Zero means unlimited.
	RequestsPerSecond float64
}

// RetrievalConfig holds the retrieval depth and output size defaults.
type RetrievalConfig struct {
	TopK       int // candidates fetched from the index before balancing
	FinalCount int // recommendations returned to the caller
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) (*Config, error) {
	cfg := &Config{
		Embedding: EmbeddingConfig{
			Provider:       p.AIEmbeddingProvider,
			Model:          p.AIEmbeddingModel,
			APIKey:         p.AIEmbeddingAPIKey,
			BaseURL:        p.AIEmbeddingBaseURL,
			Dimensions:     p.AIEmbeddingDimensions,
			TimeoutSeconds: p.AIEmbeddingTimeout,
			MaxConcurrent:  4,
		},
		Reranker: balancer.LLMConfig{
			Model:   p.AIRerankModel,
			APIKey:  p.AIRerankAPIKey,
			BaseURL: p.AIRerankBaseURL,
			Enabled: p.IsRerankerEnabled(),
		},
		Balancer: *balancer.DefaultConfig(),
		Retrieval: RetrievalConfig{
			TopK:       p.TopKRetrieval,
			FinalCount: p.FinalCount,
		},
	}

	if p.KeywordsFile != "" {
		lexicon, err := balancer.LoadLexiconFile(p.KeywordsFile)
		if err != nil {
			return nil, err
		}
		cfg.Balancer.Lexicon = lexicon
	}

	return cfg, nil
}

// Validate validates the configuration. Failures here are fatal at startup;
// the service never starts with a half-configured embedding provider.
func (c *Config) Validate() error {
	if c.Embedding.Provider == "" {
		return errors.New("embedding provider is required")
	}
	if c.Embedding.Model == "" {
		return errors.New("embedding model is required")
	}
	if c.Embedding.Provider != "ollama" && c.Embedding.APIKey == "" {
		return errors.New("embedding API key is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return errors.New("embedding dimensions must be positive")
	}
	if c.Retrieval.TopK < 1 {
		return errors.New("retrieval top-k must be >= 1")
	}
	if c.Retrieval.FinalCount < 1 {
		return errors.New("final count must be >= 1")
	}
	return nil
}
