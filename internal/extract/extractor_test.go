package extract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

func TestExtractorSegmentsPlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0644); err != nil {
		t.Fatal(err)
	}
	e := NewExtractor()
	segs, err := e.Segments(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].Source != "note.txt" {
		t.Errorf("source should default to base name, got %q", segs[0].Source)
	}
	if segs[0].SectionPath != "" || segs[0].Page != 0 {
		t.Errorf("plain text segment should carry no section/page: %+v", segs[0])
	}
}

func TestExtractorSegmentsMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sop.md")
	if err := os.WriteFile(path, []byte("# Returns Policy\nReturns must be processed within 30 days."), 0644); err != nil {
		t.Fatal(err)
	}
	e := NewExtractor()
	segs, err := e.Segments(path, "sop.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(segs) != 1 || segs[0].SectionPath != "Returns Policy" {
		t.Fatalf("segments = %+v", segs)
	}
}

func TestExtractorUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.png")
	if err := os.WriteFile(path, []byte{0x89, 0x50}, 0644); err != nil {
		t.Fatal(err)
	}
	_, err := NewExtractor().Segments(path, "")
	if !errors.Is(err, models.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtractorMissingFile(t *testing.T) {
	_, err := NewExtractor().Segments(filepath.Join(t.TempDir(), "gone.md"), "")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestExtractPlainInvalidUTF8(t *testing.T) {
	text, err := extractPlain([]byte{0xff, 'o', 'k'})
	if err != nil {
		t.Fatal(err)
	}
	if text == "" {
		t.Error("expected replacement text, got empty")
	}
}
