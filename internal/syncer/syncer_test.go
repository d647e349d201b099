package syncer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kotae/internal/audit"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

type env struct {
	dir     string
	syncer  *Syncer
	tracker *audit.SQLiteTracker
	store   *vector.Store
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	store := vector.NewStore()
	cfg := &config.RetrievalConfig{ChunkSize: 1000, ChunkOverlap: 200}
	idx := indexer.NewIndexer(embedding.NewMockEmbedder(16), store, cfg, extract.NewExtractor())
	tracker, err := audit.NewSQLiteTracker(filepath.Join(dir, "audit.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { tracker.Close() })
	return &env{
		dir:     dir,
		syncer:  NewSyncer(idx, tracker),
		tracker: tracker,
		store:   store,
	}
}

func (e *env) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func (e *env) writeManifest(t *testing.T, content string) string {
	return e.writeFile(t, "docs.yaml", content)
}

func TestRunIndexesManifest(t *testing.T) {
	e := newEnv(t)
	e.writeFile(t, "sop.md", "# Returns\nReturns are accepted within 30 days.")
	e.writeFile(t, "faq.txt", "Shipping takes one week.")
	manifestPath := e.writeManifest(t, "- sop.md\n- faq.txt\n")

	report, err := e.syncer.Run(context.Background(), manifestPath)
	if err != nil {
		t.Fatal(err)
	}
	if !report.OK {
		t.Errorf("report not OK: %+v", report)
	}
	if report.DocsTotal != 2 || report.DocsIndexed != 2 || report.ChangedDocs != 2 {
		t.Errorf("report = %+v", report.SyncRun)
	}
	if e.store.Size() == 0 {
		t.Error("index should be populated")
	}
}

func TestRunIdempotentSecondRun(t *testing.T) {
	e := newEnv(t)
	e.writeFile(t, "sop.md", "# Returns\nReturns are accepted within 30 days.")
	manifestPath := e.writeManifest(t, "- sop.md\n")
	ctx := context.Background()

	if _, err := e.syncer.Run(ctx, manifestPath); err != nil {
		t.Fatal(err)
	}
	report, err := e.syncer.Run(ctx, manifestPath)
	if err != nil {
		t.Fatal(err)
	}
	if report.ChangedDocs != 0 {
		t.Errorf("unchanged corpus should report 0 changed docs, got %d", report.ChangedDocs)
	}

	runs, err := e.tracker.RecentSyncRuns(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 recorded runs, got %d", len(runs))
	}
}

func TestRunDetectsChangedContent(t *testing.T) {
	e := newEnv(t)
	path := e.writeFile(t, "sop.md", "# Returns\noriginal policy text")
	manifestPath := e.writeManifest(t, "- sop.md\n")
	ctx := context.Background()

	if _, err := e.syncer.Run(ctx, manifestPath); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("# Returns\nrevised policy text"), 0644); err != nil {
		t.Fatal(err)
	}
	report, err := e.syncer.Run(ctx, manifestPath)
	if err != nil {
		t.Fatal(err)
	}
	if report.ChangedDocs != 1 {
		t.Errorf("changed docs = %d, want 1", report.ChangedDocs)
	}
}

func TestRunCollectsMissingDocErrors(t *testing.T) {
	e := newEnv(t)
	e.writeFile(t, "good.md", "# Policy\nall fine here")
	manifestPath := e.writeManifest(t, "- good.md\n- missing.md\n")

	report, err := e.syncer.Run(context.Background(), manifestPath)
	if err != nil {
		t.Fatal(err)
	}
	if report.OK {
		t.Error("report should not be OK with a failed doc")
	}
	if report.DocsIndexed != 1 || report.DocsFailed != 1 {
		t.Errorf("report = %+v", report.SyncRun)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("errors = %+v", report.Errors)
	}
}

func TestRunFailedDocRetriedAsChanged(t *testing.T) {
	e := newEnv(t)
	e.writeFile(t, "good.md", "# Policy\nall fine here")
	manifestPath := e.writeManifest(t, "- good.md\n- late.md\n")
	ctx := context.Background()

	if _, err := e.syncer.Run(ctx, manifestPath); err != nil {
		t.Fatal(err)
	}
	e.writeFile(t, "late.md", "# Late\nnow it exists")

	report, err := e.syncer.Run(ctx, manifestPath)
	if err != nil {
		t.Fatal(err)
	}
	if report.ChangedDocs != 1 {
		t.Errorf("newly available doc should count as changed, got %d", report.ChangedDocs)
	}
	if !report.OK {
		t.Errorf("second run should succeed: %+v", report.SyncRun)
	}
}

func TestRunPrunesRemovedDocState(t *testing.T) {
	e := newEnv(t)
	sopPath := e.writeFile(t, "sop.md", "# Returns\nReturns are accepted within 30 days.")
	faqPath := e.writeFile(t, "faq.txt", "Shipping takes one week.")
	manifestPath := e.writeManifest(t, "- sop.md\n- faq.txt\n")
	ctx := context.Background()

	if _, err := e.syncer.Run(ctx, manifestPath); err != nil {
		t.Fatal(err)
	}
	faqID := (&models.DocumentDescriptor{Path: faqPath}).DocID()
	if _, err := e.tracker.GetDocState(ctx, faqID); err != nil {
		t.Fatalf("state for declared doc: %v", err)
	}

	e.writeManifest(t, "- sop.md\n")
	if _, err := e.syncer.Run(ctx, manifestPath); err != nil {
		t.Fatal(err)
	}
	if _, err := e.tracker.GetDocState(ctx, faqID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("state for removed doc should be pruned, got %v", err)
	}
	sopID := (&models.DocumentDescriptor{Path: sopPath}).DocID()
	if _, err := e.tracker.GetDocState(ctx, sopID); err != nil {
		t.Errorf("state for remaining doc should survive pruning: %v", err)
	}
}

func TestRunEmptyManifest(t *testing.T) {
	e := newEnv(t)
	manifestPath := e.writeManifest(t, "[]\n")

	report, err := e.syncer.Run(context.Background(), manifestPath)
	if !errors.Is(err, models.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if report == nil || report.OK {
		t.Error("empty manifest run should report not OK")
	}
}

func TestRunMissingManifest(t *testing.T) {
	e := newEnv(t)
	_, err := e.syncer.Run(context.Background(), filepath.Join(e.dir, "absent.yaml"))
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
