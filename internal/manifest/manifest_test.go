package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

func writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMinimalJSON(t *testing.T) {
	path := writeManifest(t, "m.json", `{"documents": ["docs/a.md", "docs/b.pdf"]}`)
	docs, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[0].Path != "docs/a.md" || docs[1].Path != "docs/b.pdf" {
		t.Errorf("paths = %q, %q", docs[0].Path, docs[1].Path)
	}
	if docs[0].ID != "" || docs[0].Title != "" || docs[0].Tags != nil || docs[0].AllowedRoles != nil {
		t.Errorf("minimal entry should have empty optional fields: %+v", docs[0])
	}
}

func TestLoadRichYAML(t *testing.T) {
	path := writeManifest(t, "m.yaml", `
documents:
  - id: sop-001
    title: Warehouse SOP
    path: docs/sop.md
    tags: [warehouse, returns]
    allowed_roles: [qc]
  - docs/open.md
`)
	docs, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	d := docs[0]
	if d.ID != "sop-001" || d.Title != "Warehouse SOP" || d.Path != "docs/sop.md" {
		t.Errorf("rich entry parsed wrong: %+v", d)
	}
	if len(d.Tags) != 2 || len(d.AllowedRoles) != 1 || d.AllowedRoles[0] != "qc" {
		t.Errorf("tags/roles parsed wrong: %+v", d)
	}
	if docs[1].Path != "docs/open.md" || docs[1].AllowedRoles != nil {
		t.Errorf("bare entry parsed wrong: %+v", docs[1])
	}
}

func TestLoadRichJSONEquivalent(t *testing.T) {
	path := writeManifest(t, "m.json",
		`{"documents": [{"id": "sop-001", "path": "docs/sop.md", "allowed_roles": ["qc"]}]}`)
	docs, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].ID != "sop-001" || docs[0].AllowedRoles[0] != "qc" {
		t.Errorf("rich JSON parsed wrong: %+v", docs)
	}
}

func TestLoadBareListForms(t *testing.T) {
	yamlPath := writeManifest(t, "m.yaml", "- sop.md\n- id: faq-001\n  path: faq.txt\n")
	docs, err := Load(yamlPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 || docs[0].Path != "sop.md" || docs[1].ID != "faq-001" {
		t.Errorf("bare YAML list parsed wrong: %+v", docs)
	}

	jsonPath := writeManifest(t, "m.json", `["sop.md", {"path": "faq.txt"}]`)
	docs, err = Load(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 || docs[0].Path != "sop.md" || docs[1].Path != "faq.txt" {
		t.Errorf("bare JSON list parsed wrong: %+v", docs)
	}

	emptyPath := writeManifest(t, "empty.yaml", "[]\n")
	docs, err = Load(emptyPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 0 {
		t.Errorf("empty list should load as zero docs, got %+v", docs)
	}
}

func TestLoadMalformedOptionalFieldIsTotal(t *testing.T) {
	// tags is a string instead of a list: the load must still succeed with empty tags.
	path := writeManifest(t, "m.yaml", `
documents:
  - path: docs/a.md
    tags: oops
`)
	docs, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Path != "docs/a.md" {
		t.Fatalf("docs = %+v", docs)
	}
	if docs[0].Tags != nil {
		t.Errorf("malformed tags should coerce to empty, got %v", docs[0].Tags)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := writeManifest(t, "m.toml", `documents = []`)
	_, err := Load(path)
	if !errors.Is(err, models.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}
