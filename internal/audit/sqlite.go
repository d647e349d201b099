// Package audit provides SQLite-backed persistence for query logs, sync runs,
// and document state.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/models"
)

// SQLiteTracker implements audit persistence using SQLite.
type SQLiteTracker struct {
	db *sql.DB
}

// NewSQLiteTracker opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteTracker(dbPath string) (*SQLiteTracker, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteTracker{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS qa_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts TIMESTAMP NOT NULL,
		question TEXT NOT NULL,
		status TEXT NOT NULL,
		best_score REAL NOT NULL,
		k INTEGER NOT NULL,
		sources TEXT,
		answer TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_qa_logs_ts ON qa_logs(ts);

	CREATE TABLE IF NOT EXISTS sync_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts TIMESTAMP NOT NULL,
		manifest_path TEXT NOT NULL,
		docs_total INTEGER NOT NULL,
		docs_indexed INTEGER NOT NULL,
		docs_failed INTEGER NOT NULL,
		changed_docs INTEGER NOT NULL,
		errors TEXT
	);

	CREATE TABLE IF NOT EXISTS doc_state (
		doc_id TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		indexed_at TIMESTAMP NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Log appends a query record and fills in its assigned ID and timestamp.
func (t *SQLiteTracker) Log(ctx context.Context, rec *models.QALogRecord) error {
	if rec.TS.IsZero() {
		rec.TS = time.Now().UTC()
	}
	sourcesJSON, err := json.Marshal(rec.Sources)
	if err != nil {
		return fmt.Errorf("%w: marshal sources: %v", models.ErrAuditWrite, err)
	}
	res, err := t.db.ExecContext(ctx,
		`INSERT INTO qa_logs (ts, question, status, best_score, k, sources, answer)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.TS, rec.Question, rec.Status, rec.BestScore, rec.K, string(sourcesJSON), rec.Answer,
	)
	if err != nil {
		return fmt.Errorf("%w: insert qa_log: %v", models.ErrAuditWrite, err)
	}
	rec.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: last insert id: %v", models.ErrAuditWrite, err)
	}
	return nil
}

// Recent returns the latest query records, newest first.
func (t *SQLiteTracker) Recent(ctx context.Context, limit int) ([]*models.QALogRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, ts, question, status, best_score, k, sources, answer
		 FROM qa_logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.QALogRecord
	for rows.Next() {
		rec, err := scanQALog(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetAnswer returns one query record by ID.
func (t *SQLiteTracker) GetAnswer(ctx context.Context, id int64) (*models.QALogRecord, error) {
	row := t.db.QueryRowContext(ctx,
		`SELECT id, ts, question, status, best_score, k, sources, answer
		 FROM qa_logs WHERE id = ?`, id)
	rec, err := scanQALog(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("qa log %d: %w", id, models.ErrNotFound)
	}
	return rec, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQALog(row rowScanner) (*models.QALogRecord, error) {
	var rec models.QALogRecord
	var sourcesJSON sql.NullString
	if err := row.Scan(&rec.ID, &rec.TS, &rec.Question, &rec.Status, &rec.BestScore, &rec.K, &sourcesJSON, &rec.Answer); err != nil {
		return nil, err
	}
	if sourcesJSON.Valid && sourcesJSON.String != "" {
		if err := json.Unmarshal([]byte(sourcesJSON.String), &rec.Sources); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sources: %w", err)
		}
	}
	return &rec, nil
}

// LogSyncRun appends a sync run record and fills in its assigned ID and timestamp.
func (t *SQLiteTracker) LogSyncRun(ctx context.Context, run *models.SyncRun) error {
	if run.TS.IsZero() {
		run.TS = time.Now().UTC()
	}
	errorsJSON, err := json.Marshal(run.Errors)
	if err != nil {
		return fmt.Errorf("%w: marshal errors: %v", models.ErrAuditWrite, err)
	}
	res, err := t.db.ExecContext(ctx,
		`INSERT INTO sync_runs (ts, manifest_path, docs_total, docs_indexed, docs_failed, changed_docs, errors)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.TS, run.ManifestPath, run.DocsTotal, run.DocsIndexed, run.DocsFailed, run.ChangedDocs, string(errorsJSON),
	)
	if err != nil {
		return fmt.Errorf("%w: insert sync_run: %v", models.ErrAuditWrite, err)
	}
	run.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: last insert id: %v", models.ErrAuditWrite, err)
	}
	return nil
}

// RecentSyncRuns returns the latest sync runs, newest first.
func (t *SQLiteTracker) RecentSyncRuns(ctx context.Context, limit int) ([]*models.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, ts, manifest_path, docs_total, docs_indexed, docs_failed, changed_docs, errors
		 FROM sync_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		var run models.SyncRun
		var errorsJSON sql.NullString
		if err := rows.Scan(&run.ID, &run.TS, &run.ManifestPath, &run.DocsTotal, &run.DocsIndexed, &run.DocsFailed, &run.ChangedDocs, &errorsJSON); err != nil {
			return nil, err
		}
		if errorsJSON.Valid && errorsJSON.String != "" {
			if err := json.Unmarshal([]byte(errorsJSON.String), &run.Errors); err != nil {
				return nil, fmt.Errorf("failed to unmarshal sync errors: %w", err)
			}
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// UpsertDocState records a document's content hash, replacing any previous state.
func (t *SQLiteTracker) UpsertDocState(ctx context.Context, state *models.DocState) error {
	if state.IndexedAt.IsZero() {
		state.IndexedAt = time.Now().UTC()
	}
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO doc_state (doc_id, path, content_hash, indexed_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(doc_id) DO UPDATE SET path = excluded.path, content_hash = excluded.content_hash, indexed_at = excluded.indexed_at`,
		state.DocID, state.Path, state.ContentHash, state.IndexedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: upsert doc_state: %v", models.ErrAuditWrite, err)
	}
	return nil
}

// GetDocState returns the recorded state for a document, or ErrNotFound.
func (t *SQLiteTracker) GetDocState(ctx context.Context, docID string) (*models.DocState, error) {
	var state models.DocState
	err := t.db.QueryRowContext(ctx,
		`SELECT doc_id, path, content_hash, indexed_at FROM doc_state WHERE doc_id = ?`, docID,
	).Scan(&state.DocID, &state.Path, &state.ContentHash, &state.IndexedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("doc state %s: %w", docID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// ListDocStates returns the recorded state for every known document.
func (t *SQLiteTracker) ListDocStates(ctx context.Context) ([]*models.DocState, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT doc_id, path, content_hash, indexed_at FROM doc_state ORDER BY doc_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []*models.DocState
	for rows.Next() {
		var state models.DocState
		if err := rows.Scan(&state.DocID, &state.Path, &state.ContentHash, &state.IndexedAt); err != nil {
			return nil, err
		}
		states = append(states, &state)
	}
	return states, rows.Err()
}

// DeleteDocState removes the recorded state for a document.
func (t *SQLiteTracker) DeleteDocState(ctx context.Context, docID string) error {
	_, err := t.db.ExecContext(ctx, `DELETE FROM doc_state WHERE doc_id = ?`, docID)
	if err != nil {
		return fmt.Errorf("%w: delete doc_state: %v", models.ErrAuditWrite, err)
	}
	return nil
}

// Close closes the underlying database.
func (t *SQLiteTracker) Close() error {
	return t.db.Close()
}
