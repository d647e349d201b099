// Package llm provides answer generation via remote chat providers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

// Generator produces a completion from a system directive and a user prompt.
type Generator interface {
	Generate(ctx context.Context, system, user string, temperature float64) (string, error)
	Close() error
}

// Config selects and configures a generation provider.
type Config struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// New builds a generator for the configured provider.
func New(cfg Config) (Generator, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIGenerator(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout)
	case "ollama":
		return NewOllamaGenerator(cfg.BaseURL, cfg.Model, cfg.Timeout), nil
	case "mock":
		return NewMockGenerator(""), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.Provider)
	}
}

func wrapBackendErr(provider string, err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%s: %w: %v", provider, models.ErrBackendTimeout, err)
	}
	return fmt.Errorf("%s: %w: %v", provider, models.ErrBackend, err)
}
