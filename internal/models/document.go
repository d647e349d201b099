// Package models defines core data structures for documents, chunks, retrieval, and audit records.
package models

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/fileid"
)

// DocumentDescriptor is one declared knowledge-base entry from a manifest.
// Fields other than Path are optional and default to empty.
type DocumentDescriptor struct {
	ID           string   `json:"id,omitempty" yaml:"id,omitempty"`
	Title        string   `json:"title,omitempty" yaml:"title,omitempty"`
	Path         string   `json:"path" yaml:"path"`
	Tags         []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	AllowedRoles []string `json:"allowed_roles,omitempty" yaml:"allowed_roles,omitempty"`
}

// DocID returns the identity used for sync bookkeeping and chunk provenance:
// the declared ID, or a stable ID derived from the path when none was given.
func (d *DocumentDescriptor) DocID() string {
	if d.ID != "" {
		return d.ID
	}
	return fileid.FileDocID(d.Path)
}

// Segment is a heading- or page-delimited slice of a document, the unit of
// section attribution. Segments partition the document text in order.
type Segment struct {
	Text        string
	Source      string
	SectionPath string // ancestor heading titles joined by " > "; empty when the document has no headings
	Page        int    // 1-based page for paginated formats; 0 when not applicable
}

// ChunkMetadata carries the citation-relevant provenance of a chunk.
type ChunkMetadata struct {
	Source       string   `json:"source"`
	Chunk        int      `json:"chunk"` // 1-based sequence number, unique and increasing per Source
	Page         int      `json:"page,omitempty"`
	Section      string   `json:"section,omitempty"`
	Title        string   `json:"title,omitempty"`
	DocID        string   `json:"doc_id,omitempty"`
	AllowedRoles []string `json:"allowed_roles,omitempty"`
}

// Chunk is a bounded-size slice of a document's text, the unit of retrieval and citation.
type Chunk struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// Ref returns the human-readable citation reference for the chunk: the title
// (or source when untitled) plus whichever of chunk number, page, and section
// are present.
func (c *Chunk) Ref() string {
	name := c.Metadata.Title
	if name == "" {
		name = c.Metadata.Source
	}
	parts := []string{fmt.Sprintf("chunk %d", c.Metadata.Chunk)}
	if c.Metadata.Page > 0 {
		parts = append(parts, fmt.Sprintf("page %d", c.Metadata.Page))
	}
	if c.Metadata.Section != "" {
		parts = append(parts, "section "+c.Metadata.Section)
	}
	return fmt.Sprintf("%s (%s)", name, strings.Join(parts, ", "))
}

// VisibleTo reports whether a requesting role may see the chunk. An empty
// AllowedRoles set means visible to every role; an empty role or RoleAll
// disables filtering entirely.
func (c *Chunk) VisibleTo(role string) bool {
	if role == "" || role == RoleAll {
		return true
	}
	if len(c.Metadata.AllowedRoles) == 0 {
		return true
	}
	for _, r := range c.Metadata.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}
