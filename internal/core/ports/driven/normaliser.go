package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Normaliser parses the bytes of one file format into documents.
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Format returns the file format this normaliser parses.
	Format() domain.Format

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise transforms a raw file into one or more documents.
	// Corrupt input returns an error; the caller wraps it as a ParseError.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
// Note: Normalisation only produces Documents with Content.
// Chunking is handled by the PostProcessor pipeline.
type NormaliseResult struct {
	// Documents are the text blocks read from the file, in file order.
	// Pages for PDF, rows for CSV, elements for JSON arrays.
	Documents []domain.Document
}
