// Package metadata provides a processor that copies document metadata onto chunks.
package metadata

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Metadata keys set on every chunk.
const (
	KeySource = "source"
	KeyFormat = "format"
	KeyTitle  = "title"
)

// Processor stamps each chunk with its document's metadata.
// Keys already present on a chunk are kept.
type Processor struct{}

// New creates a new metadata processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "metadata"
}

// Process copies document metadata, source, format and title onto chunks.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if doc == nil {
		return chunks, nil
	}

	for i := range chunks {
		if chunks[i].Metadata == nil {
			chunks[i].Metadata = make(map[string]any, len(doc.Metadata)+3)
		}
		md := chunks[i].Metadata
		for k, v := range doc.Metadata {
			if _, exists := md[k]; !exists {
				md[k] = v
			}
		}
		md[KeySource] = doc.SourceID
		md[KeyFormat] = string(doc.Format)
		if doc.Title != "" {
			md[KeyTitle] = doc.Title
		}
		if chunks[i].SourceID == "" {
			chunks[i].SourceID = doc.SourceID
		}
	}

	return chunks, nil
}
