package models

import (
	"testing"

	"github.com/hyperjump/kotae/internal/fileid"
)

func TestChunkRef(t *testing.T) {
	c := &Chunk{Metadata: ChunkMetadata{Source: "sop.md", Chunk: 3}}
	if got := c.Ref(); got != "sop.md (chunk 3)" {
		t.Errorf("Ref() = %q", got)
	}
	c.Metadata.Title = "Warehouse SOP"
	c.Metadata.Page = 2
	c.Metadata.Section = "Returns Policy"
	want := "Warehouse SOP (chunk 3, page 2, section Returns Policy)"
	if got := c.Ref(); got != want {
		t.Errorf("Ref() = %q, want %q", got, want)
	}
}

func TestChunkVisibleTo(t *testing.T) {
	open := &Chunk{}
	restricted := &Chunk{Metadata: ChunkMetadata{AllowedRoles: []string{"qc"}}}

	if !open.VisibleTo("warehouse") {
		t.Error("chunk without role restriction should be visible to any role")
	}
	if restricted.VisibleTo("warehouse") {
		t.Error("qc-only chunk should not be visible to warehouse")
	}
	if !restricted.VisibleTo("qc") {
		t.Error("qc-only chunk should be visible to qc")
	}
	if !restricted.VisibleTo("") || !restricted.VisibleTo(RoleAll) {
		t.Error("empty role and RoleAll must disable filtering")
	}
}

func TestDocumentDescriptorDocID(t *testing.T) {
	d := &DocumentDescriptor{Path: "docs/sop.md"}
	if got := d.DocID(); got != fileid.FileDocID("docs/sop.md") {
		t.Errorf("DocID() = %q, want the path-derived ID", got)
	}
	if d.DocID() != (&DocumentDescriptor{Path: "docs/sop.md"}).DocID() {
		t.Error("DocID() must be stable for the same path")
	}
	if d.DocID() == (&DocumentDescriptor{Path: "docs/faq.md"}).DocID() {
		t.Error("distinct paths must yield distinct IDs")
	}
	d.ID = "sop-001"
	if d.DocID() != "sop-001" {
		t.Errorf("DocID() = %q", d.DocID())
	}
}
