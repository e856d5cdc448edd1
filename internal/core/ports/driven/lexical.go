package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// LexicalIndex provides keyword matching over chunk text.
// It backs the lexical pass of hybrid retrieval.
type LexicalIndex interface {
	// Index adds or replaces chunks, keyed by Chunk.Key().
	Index(ctx context.Context, chunks []domain.Chunk) error

	// Search returns up to limit chunk keys matching query, best first.
	Search(ctx context.Context, query string, limit int) ([]LexicalHit, error)

	// DeleteSource removes every chunk of a source.
	DeleteSource(ctx context.Context, sourceID string) error

	// Reset removes every chunk.
	Reset(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// LexicalHit represents a keyword match.
type LexicalHit struct {
	// Key is the matched chunk's source+ordinal key.
	Key string

	// Score is the engine's relevance score (unbounded, higher is better).
	Score float64
}
