package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// PostProcessor is one stage between a normalised document and the chunks
// that get embedded. The first stage receives nil chunks and splits the
// document; later stages rewrite the chunks they are given.
type PostProcessor interface {
	Name() string
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline runs the configured stages over a document.
type PostProcessorPipeline interface {
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
