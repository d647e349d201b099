package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/kotae/internal/models"
)

// segmentExcel returns one segment per non-empty sheet, with the sheet name
// as the section path.
func segmentExcel(content []byte, sourceName string) ([]models.Segment, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var segments []models.Segment
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		var buf strings.Builder
		for _, row := range rows {
			buf.WriteString(strings.Join(row, "\t"))
			buf.WriteByte('\n')
		}
		text := strings.TrimSpace(buf.String())
		if text == "" {
			continue
		}
		segments = append(segments, models.Segment{
			Text:        text,
			Source:      sourceName,
			SectionPath: sheet,
		})
	}
	return segments, nil
}
