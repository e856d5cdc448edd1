package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// IndexAdmin exposes maintenance operations on the vector index.
type IndexAdmin interface {
	// Stats summarises configuration and index contents.
	Stats(ctx context.Context) (*domain.Stats, error)

	// Sources lists indexed sources.
	Sources(ctx context.Context) ([]domain.SourceStat, error)

	// DeleteSource removes every entry of one source.
	DeleteSource(ctx context.Context, sourceID string) error

	// Reset removes every entry from the vector and lexical indexes.
	Reset(ctx context.Context) error

	// Backup copies the persisted index into dir and returns the backup path.
	Backup(ctx context.Context, dir string) (string, error)
}
