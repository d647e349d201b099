// Package syncer runs the ingestion pipeline: manifest to index to recorded state.
package syncer

import (
	"context"
	"errors"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/audit"
	"github.com/hyperjump/kotae/internal/fileid"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/manifest"
	"github.com/hyperjump/kotae/internal/models"
)

// Syncer loads a manifest, detects changed documents, rebuilds the index, and
// records the run.
type Syncer struct {
	indexer *indexer.Indexer
	tracker audit.Tracker
	logger  *zap.Logger // optional
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets a logger for progress output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Syncer) { s.logger = l }
}

// NewSyncer creates a syncer with the given dependencies.
func NewSyncer(idx *indexer.Indexer, tracker audit.Tracker, opts ...Option) *Syncer {
	s := &Syncer{indexer: idx, tracker: tracker}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Report is the outcome of one sync run. OK is true only when every declared
// document indexed cleanly.
type Report struct {
	models.SyncRun
	OK bool
}

// Run executes one sync against the manifest at manifestPath. The whole index
// is rebuilt from the manifest's current contents; per-document failures are
// collected into the report while the rest of the corpus still indexes. Every
// run appends one SyncRun record. A manifest that cannot be loaded at all
// fails before any indexing.
func (s *Syncer) Run(ctx context.Context, manifestPath string) (*Report, error) {
	docs, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}
	manifestDir := filepath.Dir(manifestPath)
	for i := range docs {
		if !filepath.IsAbs(docs[i].Path) {
			docs[i].Path = filepath.Join(manifestDir, docs[i].Path)
		}
	}

	run := models.SyncRun{
		ManifestPath: manifestPath,
		DocsTotal:    len(docs),
	}

	// Hash every reachable document and compare against recorded state.
	hashes := make(map[string]string)
	var indexable []models.DocumentDescriptor
	for _, doc := range docs {
		docID := doc.DocID()
		hash, err := fileid.ContentHash(doc.Path)
		if err != nil {
			run.Errors = append(run.Errors, models.SyncError{Doc: docID, Error: err.Error()})
			if s.logger != nil {
				s.logger.Warn("sync cannot hash document", zap.String("doc", docID), zap.Error(err))
			}
			continue
		}
		hashes[docID] = hash
		indexable = append(indexable, doc)

		state, err := s.tracker.GetDocState(ctx, docID)
		switch {
		case errors.Is(err, models.ErrNotFound):
			run.ChangedDocs++
		case err != nil:
			return nil, err
		case state.ContentHash != hash:
			run.ChangedDocs++
		}
	}

	result, rebuildErr := s.indexer.Rebuild(ctx, indexable)
	run.DocsIndexed = result.DocsIndexed
	run.Errors = append(run.Errors, result.Errors...)
	run.DocsFailed = len(run.Errors)

	// Record state only for documents that made it into the index, so a
	// doc that failed this run is retried as changed next time.
	failed := make(map[string]bool, len(result.Errors))
	for _, e := range result.Errors {
		failed[e.Doc] = true
	}
	if rebuildErr == nil {
		for _, doc := range indexable {
			docID := doc.DocID()
			if failed[docID] {
				continue
			}
			state := &models.DocState{DocID: docID, Path: doc.Path, ContentHash: hashes[docID]}
			if err := s.tracker.UpsertDocState(ctx, state); err != nil {
				return nil, err
			}
		}
		if err := s.pruneDocState(ctx, docs); err != nil {
			return nil, err
		}
	}

	if err := s.tracker.LogSyncRun(ctx, &run); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Info("sync run complete",
			zap.Int("total", run.DocsTotal),
			zap.Int("indexed", run.DocsIndexed),
			zap.Int("changed", run.ChangedDocs),
			zap.Int("failed", run.DocsFailed))
	}

	report := &Report{SyncRun: run, OK: run.DocsFailed == 0}
	if rebuildErr != nil {
		report.OK = false
		return report, rebuildErr
	}
	return report, nil
}

// pruneDocState deletes recorded state for documents no longer declared in the
// manifest, so a removed document re-indexes as changed if it is ever added
// back.
func (s *Syncer) pruneDocState(ctx context.Context, docs []models.DocumentDescriptor) error {
	declared := make(map[string]bool, len(docs))
	for _, doc := range docs {
		declared[doc.DocID()] = true
	}
	states, err := s.tracker.ListDocStates(ctx)
	if err != nil {
		return err
	}
	for _, state := range states {
		if declared[state.DocID] {
			continue
		}
		if err := s.tracker.DeleteDocState(ctx, state.DocID); err != nil {
			return err
		}
		if s.logger != nil {
			s.logger.Info("sync pruned state for removed document",
				zap.String("doc", state.DocID), zap.String("path", state.Path))
		}
	}
	return nil
}
