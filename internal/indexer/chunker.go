// Package indexer provides document chunking and index building.
package indexer

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperjump/kotae/internal/models"
)

// Chunker splits document segments into overlapping character-based chunks.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in characters).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// ChunkDocument splits a document's segments into chunks carrying the
// document's metadata. Chunk numbers are 1-based and increase across all
// segments of the document, so citations like "sop.md (chunk 3)" stay stable
// within one build.
func (c *Chunker) ChunkDocument(doc models.DocumentDescriptor, segments []models.Segment) []*models.Chunk {
	docID := doc.DocID()
	var chunks []*models.Chunk
	number := 0
	for _, seg := range segments {
		for _, piece := range c.split(seg.Text) {
			number++
			chunks = append(chunks, &models.Chunk{
				ID:   fmt.Sprintf("%s_%s", docID, uuid.New().String()[:8]),
				Text: piece,
				Metadata: models.ChunkMetadata{
					Source:       seg.Source,
					Chunk:        number,
					Page:         seg.Page,
					Section:      seg.SectionPath,
					Title:        doc.Title,
					DocID:        docID,
					AllowedRoles: doc.AllowedRoles,
				},
			})
		}
	}
	return chunks
}

// split cuts text into overlapping windows of chunkSize runes.
func (c *Chunker) split(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= c.chunkSize {
		return []string{string(runes)}
	}
	step := c.chunkSize - c.chunkOverlap
	var pieces []string
	for i := 0; i < len(runes); i += step {
		end := i + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[i:end]))
		if piece != "" {
			pieces = append(pieces, piece)
		}
		if end >= len(runes) {
			break
		}
	}
	return pieces
}
