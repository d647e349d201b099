package fileid

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileDocID(t *testing.T) {
	id1 := FileDocID("/kb/sop.md")
	id2 := FileDocID("/kb/sop.md")
	if id1 != id2 {
		t.Errorf("same path should give same ID: %q vs %q", id1, id2)
	}
	if id1[:len(prefix)] != prefix {
		t.Errorf("ID should have prefix %q: got %q", prefix, id1)
	}
	if FileDocID("/kb/other.md") == id1 {
		t.Error("different paths should give different IDs")
	}
	if FileDocID("/kb/./sop.md") != id1 {
		t.Error("paths should be cleaned before hashing")
	}
}

func TestContentHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	if err := os.WriteFile(path, []byte("version one"), 0644); err != nil {
		t.Fatal(err)
	}

	h1, err := ContentHash(path)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := ContentHash(path)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Error("hash of unchanged file should be stable")
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(h1))
	}

	if err := os.WriteFile(path, []byte("version two"), 0644); err != nil {
		t.Fatal(err)
	}
	h3, err := ContentHash(path)
	if err != nil {
		t.Fatal(err)
	}
	if h3 == h1 {
		t.Error("hash should change when content changes")
	}
}

func TestContentHashMissingFile(t *testing.T) {
	if _, err := ContentHash(filepath.Join(t.TempDir(), "gone.md")); err == nil {
		t.Error("expected error for missing file")
	}
}
