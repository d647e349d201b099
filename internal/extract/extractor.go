// Package extract loads documents and splits them into citable segments.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// Extractor produces section-attributed segments from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Segments reads the file at path and returns its citable segments in
// document order. sourceName is the declared name recorded on every segment
// (defaults to the file's base name when empty). Markdown is split by
// headings, PDF by pages, XLSX by sheets; TXT and DOCX yield one segment.
// Returns models.ErrNotFound when the file is missing and
// models.ErrUnsupportedFormat for unrecognized extensions.
func (e *Extractor) Segments(path, sourceName string) ([]models.Segment, error) {
	if sourceName == "" {
		sourceName = filepath.Base(path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("document %s: %w", path, models.ErrNotFound)
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.SegmentBytes(content, strings.ToLower(filepath.Ext(path)), sourceName)
}

// SegmentBytes splits raw content into segments based on the given extension.
// ext should include the leading dot (e.g. ".md").
func (e *Extractor) SegmentBytes(content []byte, ext, sourceName string) ([]models.Segment, error) {
	switch ext {
	case ".md", ".markdown":
		text, err := extractPlain(content)
		if err != nil {
			return nil, err
		}
		return SegmentMarkdown(text, sourceName), nil
	case ".txt", ".rst":
		text, err := extractPlain(content)
		if err != nil {
			return nil, err
		}
		return plainSegment(text, sourceName), nil
	case ".pdf":
		return segmentPDF(content, sourceName)
	case ".docx":
		text, err := extractDOCX(content)
		if err != nil {
			return nil, err
		}
		return plainSegment(text, sourceName), nil
	case ".xlsx":
		return segmentExcel(content, sourceName)
	default:
		return nil, fmt.Errorf("document extension %q: %w", ext, models.ErrUnsupportedFormat)
	}
}

// plainSegment wraps unstructured text in a single segment with an empty
// section path, or none when the text is blank.
func plainSegment(text, sourceName string) []models.Segment {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return []models.Segment{{Text: text, Source: sourceName}}
}
