// Package retrieval runs similarity search with role-based filtering.
package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

// Retriever embeds a question and returns the top chunks visible to the
// caller's role.
type Retriever struct {
	embedder  embedding.Embedder
	store     *vector.Store
	topK      int
	overfetch int
	logger    *zap.Logger // optional
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// NewRetriever creates a retriever. topK is the default result count;
// candidateMultiplier controls how many extra candidates are fetched before
// role filtering so a restrictive role still fills k results.
func NewRetriever(embedder embedding.Embedder, store *vector.Store, topK, candidateMultiplier int, opts ...Option) *Retriever {
	if topK <= 0 {
		topK = 4
	}
	if candidateMultiplier <= 0 {
		candidateMultiplier = 3
	}
	r := &Retriever{
		embedder:  embedder,
		store:     store,
		topK:      topK,
		overfetch: candidateMultiplier,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TopK returns the default result count used when a query does not specify k.
func (r *Retriever) TopK() int {
	return r.topK
}

// Retrieve returns up to k chunks relevant to the question, filtered to those
// visible to role, ranked 1-based by descending score. k <= 0 uses the
// configured default.
func (r *Retriever) Retrieve(ctx context.Context, question, role string, k int) ([]models.RetrievedChunk, error) {
	if k <= 0 {
		k = r.topK
	}
	query, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	// Overfetch so role filtering does not starve the result set.
	limit := k * r.overfetch
	if limit < k {
		limit = k
	}
	candidates, err := r.store.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	var out []models.RetrievedChunk
	for _, cand := range candidates {
		if !cand.Chunk.VisibleTo(role) {
			continue
		}
		out = append(out, models.RetrievedChunk{
			Chunk: cand.Chunk,
			Score: cand.Score,
			Rank:  len(out) + 1,
		})
		if len(out) == k {
			break
		}
	}
	if r.logger != nil {
		r.logger.Debug("retrieval complete",
			zap.Int("candidates", len(candidates)),
			zap.Int("returned", len(out)),
			zap.String("role", role))
	}
	return out, nil
}
