// Package cli provides CLI output utilities for Kotae.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/syncer"
	"github.com/hyperjump/kotae/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteQueryResult writes a query result to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteQueryResult(w io.Writer, result *models.QueryResult, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, result)
	default:
		writeQueryResultText(w, result)
		return nil
	}
}

func writeQueryResultText(w io.Writer, result *models.QueryResult) {
	fmt.Fprintf(w, "\n%s\n", result.Answer)
	if len(result.Retrieval) > 0 {
		fmt.Fprintf(w, "\n--- Retrieval trace ---\n")
		for _, trace := range result.Retrieval {
			fmt.Fprintf(w, "[S%d] Score: %.4f | %s (chunk %d)", trace.Rank, trace.Score, trace.Source, trace.Chunk)
			if trace.Page > 0 {
				fmt.Fprintf(w, " page %d", trace.Page)
			}
			if trace.Section != "" {
				fmt.Fprintf(w, " § %s", trace.Section)
			}
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintln(w)
}

// WriteSyncReport writes a sync report to w in the given format.
func WriteSyncReport(w io.Writer, report *syncer.Report, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, report)
	default:
		writeSyncReportText(w, report)
		return nil
	}
}

func writeSyncReportText(w io.Writer, report *syncer.Report) {
	status := "OK"
	if !report.OK {
		status = "FAILED"
	}
	fmt.Fprintf(w, "\nSync %s: %d/%d documents indexed (%d changed, %d failed)\n",
		status, report.DocsIndexed, report.DocsTotal, report.ChangedDocs, report.DocsFailed)
	for _, syncErr := range report.Errors {
		fmt.Fprintf(w, "  %s: %s\n", syncErr.Doc, syncErr.Error)
	}
	fmt.Fprintln(w)
}

// WriteAuditRecords writes audit log records to w in the given format,
// newest first as returned by the tracker.
func WriteAuditRecords(w io.Writer, records []*models.QALogRecord, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, records)
	default:
		writeAuditRecordsText(w, records)
		return nil
	}
}

func writeAuditRecordsText(w io.Writer, records []*models.QALogRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "\nNo audit records.")
		return
	}
	fmt.Fprintln(w)
	for _, rec := range records {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "#%d %s | %s | best score %.4f | k=%d\n",
			rec.ID, rec.TS.Format("2006-01-02 15:04:05"), rec.Status, rec.BestScore, rec.K)
		fmt.Fprintf(w, "Q: %s\n", utils.Truncate(rec.Question, 120))
		if rec.Answer != "" {
			fmt.Fprintf(w, "A: %s\n", utils.Truncate(rec.Answer, 200))
		}
		for _, src := range rec.Sources {
			fmt.Fprintf(w, "  - %s\n", src)
		}
	}
	fmt.Fprintln(w)
}
