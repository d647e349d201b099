// Package embedding provides text embedding via remote providers and caching.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/hyperjump/kotae/internal/models"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// wrapBackendErr classifies a provider failure so callers can distinguish
// timeouts from other backend faults with errors.Is.
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
