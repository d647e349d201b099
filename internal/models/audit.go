package models

import "time"

// Query statuses recorded in the audit log.
const (
	StatusAnswered = "answered"
	StatusNotInKB  = "not_in_kb"
	StatusError    = "error"
)

// QALogRecord is one append-only audit entry per query.
type QALogRecord struct {
	ID        int64     `json:"id"`
	TS        time.Time `json:"ts"`
	Question  string    `json:"question"`
	Status    string    `json:"status"`
	BestScore float64   `json:"best_score"`
	K         int       `json:"k"`
	Sources   []string  `json:"sources"`
	Answer    string    `json:"answer"`
}

// SyncError records one document's failure during a sync run.
type SyncError struct {
	Doc   string `json:"doc"`
	Error string `json:"error"`
}

// SyncRun records one execution of the ingestion pipeline against a manifest.
type SyncRun struct {
	ID           int64       `json:"id"`
	TS           time.Time   `json:"ts"`
	ManifestPath string      `json:"manifest_path"`
	DocsTotal    int         `json:"docs_total"`
	DocsIndexed  int         `json:"docs_indexed"`
	DocsFailed   int         `json:"docs_failed"`
	ChangedDocs  int         `json:"changed_docs"`
	Errors       []SyncError `json:"errors,omitempty"`
}

// DocState is the last-known content hash and index time for a document
// identity, used to detect content changes across sync runs.
type DocState struct {
	DocID       string    `json:"doc_id"`
	Path        string    `json:"path"`
	ContentHash string    `json:"content_hash"`
	IndexedAt   time.Time `json:"indexed_at"`
}
