package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/hyperjump/kotae/internal/models"
)

// segmentPDF returns one segment per non-empty page so chunks keep page
// provenance for citations.
func segmentPDF(content []byte, sourceName string) ([]models.Segment, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	var segments []models.Segment
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		segments = append(segments, models.Segment{
			Text:   text,
			Source: sourceName,
			Page:   i,
		})
	}
	return segments, nil
}
