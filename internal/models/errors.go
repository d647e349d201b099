package models

import "errors"

// Error taxonomy shared across the pipeline. Components wrap these with
// fmt.Errorf("...: %w", err) so callers can branch with errors.Is.
var (
	// ErrNotFound indicates a missing manifest or document path.
	ErrNotFound = errors.New("not found")
	// ErrUnsupportedFormat indicates an unrecognized manifest or document
	// extension. During batch ingestion it is skipped per-document rather
	// than failing the batch.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrEmptyInput indicates ingestion produced zero usable chunks.
	ErrEmptyInput = errors.New("no usable input")
	// ErrNoIndex indicates a query arrived before any ingestion built an index.
	ErrNoIndex = errors.New("no index built")
	// ErrBackend indicates an embedding or generation backend failure.
	ErrBackend = errors.New("backend failure")
	// ErrBackendTimeout indicates a backend call exceeded its deadline.
	ErrBackendTimeout = errors.New("backend timeout")
	// ErrAuditWrite indicates the audit store failed to persist a record.
	ErrAuditWrite = errors.New("audit write failure")
)
