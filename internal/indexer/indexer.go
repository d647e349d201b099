package indexer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

// Indexer builds the similarity index from manifest documents. Each rebuild
// produces a fresh index that replaces the active one wholesale.
type Indexer struct {
	embedder     embedding.Embedder
	store        *vector.Store
	chunker      *Chunker
	extractor    *extract.Extractor
	snapshotPath string
	logger       *zap.Logger // optional; when set, logs debug events
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets a logger for debug output (document chunked, index replaced, etc.).
func WithLogger(l *zap.Logger) Option {
	return func(idx *Indexer) { idx.logger = l }
}

// WithSnapshotPath enables writing an index snapshot after each rebuild so a
// restarted server can answer without re-embedding.
func WithSnapshotPath(path string) Option {
	return func(idx *Indexer) { idx.snapshotPath = path }
}

// NewIndexer creates an indexer with the given dependencies.
func NewIndexer(
	embedder embedding.Embedder,
	store *vector.Store,
	cfg *config.RetrievalConfig,
	extractor *extract.Extractor,
	opts ...Option,
) *Indexer {
	idx := &Indexer{
		embedder:  embedder,
		store:     store,
		chunker:   NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		extractor: extractor,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// BuildResult reports what a rebuild indexed and which documents failed.
type BuildResult struct {
	DocsIndexed int
	ChunkCount  int
	Errors      []models.SyncError
}

// Rebuild extracts, chunks, and embeds all documents, then swaps the fresh
// index in. A document that fails extraction is recorded in the result and
// skipped; the rest of the corpus still indexes. If no document yields any
// chunk the active index is left untouched and ErrEmptyInput is returned.
func (idx *Indexer) Rebuild(ctx context.Context, docs []models.DocumentDescriptor) (*BuildResult, error) {
	result := &BuildResult{}
	var chunks []*models.Chunk

	for _, doc := range docs {
		segments, err := idx.extractor.Segments(doc.Path, "")
		if err != nil {
			result.Errors = append(result.Errors, models.SyncError{Doc: doc.DocID(), Error: err.Error()})
			if idx.logger != nil {
				idx.logger.Warn("indexer skipping document", zap.String("doc", doc.DocID()), zap.Error(err))
			}
			continue
		}
		docChunks := idx.chunker.ChunkDocument(doc, segments)
		if len(docChunks) == 0 {
			result.Errors = append(result.Errors, models.SyncError{Doc: doc.DocID(), Error: "document produced no chunks"})
			continue
		}
		chunks = append(chunks, docChunks...)
		result.DocsIndexed++
		if idx.logger != nil {
			idx.logger.Debug("indexer document chunked",
				zap.String("doc", doc.DocID()),
				zap.Int("chunks", len(docChunks)))
		}
	}

	if len(chunks) == 0 {
		return result, fmt.Errorf("rebuild produced no chunks: %w", models.ErrEmptyInput)
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return result, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	fresh, err := vector.NewMemoryIndex(idx.embedder.Dimensions())
	if err != nil {
		return result, err
	}
	if err := fresh.Upsert(ctx, chunks, embeddings); err != nil {
		return result, fmt.Errorf("failed to index vectors: %w", err)
	}
	idx.store.Replace(fresh)
	result.ChunkCount = len(chunks)

	if idx.snapshotPath != "" {
		if err := idx.store.Save(idx.snapshotPath); err != nil && idx.logger != nil {
			idx.logger.Warn("indexer snapshot write failed", zap.String("path", idx.snapshotPath), zap.Error(err))
		}
	}
	if idx.logger != nil {
		idx.logger.Info("indexer index replaced",
			zap.Int("docs", result.DocsIndexed),
			zap.Int("chunks", result.ChunkCount),
			zap.Int("failed", len(result.Errors)))
	}
	return result, nil
}
