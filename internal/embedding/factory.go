package embedding

import (
	"fmt"
	"time"
)

// Config selects and configures an embedding provider.
type Config struct {
	Provider   string
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	Timeout    time.Duration
	CacheSize  int
}

// New builds an embedder for the configured provider, wrapped with an LRU
// cache when CacheSize is positive.
func New(cfg Config) (Embedder, error) {
	var (
		inner Embedder
		err   error
	)
	switch cfg.Provider {
	case "openai":
		inner, err = NewOpenAIEmbedder(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Dimensions, cfg.Timeout)
	case "ollama":
		inner = NewOllamaEmbedder(cfg.BaseURL, cfg.Model, cfg.Dimensions, cfg.Timeout)
	case "mock":
		inner = NewMockEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewCachingEmbedder(inner, cfg.CacheSize), nil
}
