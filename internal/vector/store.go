package vector

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/kotae/internal/models"
)

// Store holds the active similarity index. Ingestion builds a fresh index and
// swaps it in atomically, so a concurrent query never observes a half-rebuilt
// index.
type Store struct {
	mu  sync.RWMutex
	idx Index
}

// NewStore returns a store with no active index. Queries fail with
// models.ErrNoIndex until the first Replace.
func NewStore() *Store {
	return &Store{}
}

// Replace swaps the active index. The previous index is discarded wholesale;
// retrieval sees only the new batch.
func (s *Store) Replace(idx Index) {
	s.mu.Lock()
	s.idx = idx
	s.mu.Unlock()
}

// Search queries the active index.
func (s *Store) Search(ctx context.Context, query []float32, limit int) ([]*Result, error) {
	s.mu.RLock()
	idx := s.idx
	s.mu.RUnlock()
	if idx == nil {
		return nil, fmt.Errorf("similarity search: %w", models.ErrNoIndex)
	}
	return idx.Search(ctx, query, limit)
}

// Size returns the number of chunks in the active index, or 0 when none.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.idx == nil {
		return 0
	}
	return s.idx.Size()
}

// Save writes a snapshot of the active index to path, when the index supports it.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	idx := s.idx
	s.mu.RUnlock()
	snap, ok := idx.(interface{ Save(string) error })
	if !ok {
		return nil
	}
	return snap.Save(path)
}

// LoadSnapshot reads a snapshot from path into a fresh memory index and makes
// it active. A missing snapshot leaves the store without an index.
func (s *Store) LoadSnapshot(path string, dimensions int) error {
	idx, err := NewMemoryIndex(dimensions)
	if err != nil {
		return err
	}
	if err := idx.Load(path); err != nil {
		return err
	}
	if idx.Size() == 0 {
		return nil
	}
	s.Replace(idx)
	return nil
}
