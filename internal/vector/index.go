// Package vector provides the similarity index used for chunk retrieval.
package vector

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// Result is a single similarity hit.
type Result struct {
	Chunk *models.Chunk
	Score float64 // normalized relevance in [0,1], 1 = identical
}

// Index stores chunks with their embedding vectors and answers similarity
// queries. The index exclusively owns inserted chunks; no other component
// mutates them after Upsert.
type Index interface {
	Upsert(ctx context.Context, chunks []*models.Chunk, vectors [][]float32) error
	Search(ctx context.Context, query []float32, limit int) ([]*Result, error)
	Size() int
}
