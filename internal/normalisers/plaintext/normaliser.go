package plaintext

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/normalisers/textclean"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/plain"}
}

// Format returns the file format this normaliser parses.
func (n *Normaliser) Format() domain.Format {
	return domain.FormatTXT
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise reads the file as UTF-8 text into a single document.
// Invalid UTF-8 is treated as a corrupt file.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if !utf8.Valid(raw.Content) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", domain.ErrInvalidInput)
	}

	doc := domain.Document{
		ID:        uuid.New().String(),
		SourceID:  raw.SourceID,
		URI:       raw.URI,
		Title:     extractTitleFromMetadataOrURI(raw),
		Format:    domain.FormatTXT,
		Content:   textclean.Clean(string(raw.Content)),
		Metadata:  textclean.CopyMetadata(raw.Metadata),
		CreatedAt: time.Now(),
	}
	doc.Metadata["mime_type"] = raw.MIMEType

	return &driven.NormaliseResult{
		Documents: []domain.Document{doc},
	}, nil
}

// extractTitleFromMetadataOrURI checks metadata for title first, then falls back to URI.
func extractTitleFromMetadataOrURI(raw *domain.RawDocument) string {
	if title, ok := raw.Metadata["title"].(string); ok && title != "" {
		return title
	}
	return textclean.TitleFromPath(raw.URI)
}
