package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// NormaliserRegistry selects the appropriate normaliser for a file.
// It maintains a priority-ordered list of normalisers and dispatches
// based on MIME type.
type NormaliserRegistry interface {
	// Normalise transforms a raw file using the best matching normaliser.
	// Returns ErrUnsupportedFormat when no normaliser handles the MIME type.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedMIMETypes returns all MIME types that can be normalised.
	SupportedMIMETypes() []string
}
