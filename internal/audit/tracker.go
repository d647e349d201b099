package audit

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// Tracker records query logs, sync runs, and document state.
type Tracker interface {
	Log(ctx context.Context, rec *models.QALogRecord) error
	Recent(ctx context.Context, limit int) ([]*models.QALogRecord, error)
	GetAnswer(ctx context.Context, id int64) (*models.QALogRecord, error)

	LogSyncRun(ctx context.Context, run *models.SyncRun) error
	RecentSyncRuns(ctx context.Context, limit int) ([]*models.SyncRun, error)

	UpsertDocState(ctx context.Context, state *models.DocState) error
	GetDocState(ctx context.Context, docID string) (*models.DocState, error)
	ListDocStates(ctx context.Context) ([]*models.DocState, error)
	DeleteDocState(ctx context.Context, docID string) error

	Close() error
}

var _ Tracker = (*SQLiteTracker)(nil)
