package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

func newTestIndexer(t *testing.T, opts ...Option) (*Indexer, *vector.Store) {
	t.Helper()
	store := vector.NewStore()
	cfg := &config.RetrievalConfig{ChunkSize: 1000, ChunkOverlap: 200}
	idx := NewIndexer(embedding.NewMockEmbedder(16), store, cfg, extract.NewExtractor(), opts...)
	return idx, store
}

func writeDoc(t *testing.T, dir, name, content string) models.DocumentDescriptor {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return models.DocumentDescriptor{Path: path}
}

func TestRebuildReplacesIndex(t *testing.T) {
	dir := t.TempDir()
	idx, store := newTestIndexer(t)
	ctx := context.Background()

	first := []models.DocumentDescriptor{writeDoc(t, dir, "a.md", "# A\nalpha content here")}
	if _, err := idx.Rebuild(ctx, first); err != nil {
		t.Fatal(err)
	}
	if store.Size() == 0 {
		t.Fatal("index empty after first rebuild")
	}

	second := []models.DocumentDescriptor{writeDoc(t, dir, "b.md", "# B\nbeta content here")}
	result, err := idx.Rebuild(ctx, second)
	if err != nil {
		t.Fatal(err)
	}
	if result.DocsIndexed != 1 {
		t.Errorf("DocsIndexed = %d", result.DocsIndexed)
	}
	if store.Size() != result.ChunkCount {
		t.Errorf("store size %d != chunk count %d", store.Size(), result.ChunkCount)
	}

	vec, _ := embedding.NewMockEmbedder(16).Embed(ctx, "beta content here")
	results, err := store.Search(ctx, vec, 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Chunk.Metadata.Source == "a.md" {
			t.Error("old document survived the rebuild")
		}
	}
}

func TestRebuildEmptyInput(t *testing.T) {
	idx, store := newTestIndexer(t)
	_, err := idx.Rebuild(context.Background(), nil)
	if !errors.Is(err, models.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
	if store.Size() != 0 {
		t.Error("store should remain empty")
	}
}

func TestRebuildKeepsOldIndexOnEmptyInput(t *testing.T) {
	dir := t.TempDir()
	idx, store := newTestIndexer(t)
	ctx := context.Background()

	docs := []models.DocumentDescriptor{writeDoc(t, dir, "a.txt", "alpha")}
	if _, err := idx.Rebuild(ctx, docs); err != nil {
		t.Fatal(err)
	}
	size := store.Size()

	_, err := idx.Rebuild(ctx, []models.DocumentDescriptor{{Path: filepath.Join(dir, "missing.txt")}})
	if !errors.Is(err, models.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if store.Size() != size {
		t.Error("failed rebuild must not touch the active index")
	}
}

func TestRebuildCollectsPerDocumentErrors(t *testing.T) {
	dir := t.TempDir()
	idx, _ := newTestIndexer(t)
	ctx := context.Background()

	docs := []models.DocumentDescriptor{
		writeDoc(t, dir, "good.md", "# Policy\nall good"),
		{Path: filepath.Join(dir, "gone.md")},
	}
	result, err := idx.Rebuild(ctx, docs)
	if err != nil {
		t.Fatal(err)
	}
	if result.DocsIndexed != 1 {
		t.Errorf("DocsIndexed = %d", result.DocsIndexed)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("errors = %+v", result.Errors)
	}
}

func TestRebuildWritesSnapshot(t *testing.T) {
	dir := t.TempDir()
	snapshot := filepath.Join(dir, "vectors.bin")
	idx, _ := newTestIndexer(t, WithSnapshotPath(snapshot))

	docs := []models.DocumentDescriptor{writeDoc(t, dir, "a.txt", "alpha content")}
	if _, err := idx.Rebuild(context.Background(), docs); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(snapshot); err != nil {
		t.Errorf("snapshot not written: %v", err)
	}
}
