package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// VectorIndex stores index entries and answers nearest-neighbour queries.
// Entries are keyed by source+ordinal: writing an entry with an existing key
// replaces it. Callers serialise writes; concurrent Upserts are not supported.
type VectorIndex interface {
	// Upsert writes entries, replacing any entry with the same key.
	Upsert(ctx context.Context, entries []domain.IndexEntry) error

	// Query returns up to k entries most similar to vector, best first.
	// A nil filter matches every entry. k <= 0 returns no results.
	Query(ctx context.Context, vector []float32, k int, filter domain.MetadataFilter) ([]domain.ScoredChunk, error)

	// Get returns the stored chunks for the given keys. Unknown keys are skipped.
	Get(ctx context.Context, keys []string) ([]domain.Chunk, error)

	// Count returns the number of entries.
	Count(ctx context.Context) (int, error)

	// Sources summarises entries per source.
	Sources(ctx context.Context) ([]domain.SourceStat, error)

	// DeleteSource removes every entry of a source.
	DeleteSource(ctx context.Context, sourceID string) error

	// Prune removes entries of a source whose ordinal is >= keep.
	Prune(ctx context.Context, sourceID string, keep int) error

	// Reset removes every entry.
	Reset(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Persister is implemented by vector indexes that keep entries in memory
// and persist them only when asked.
type Persister interface {
	// Save writes the index to its persist location.
	Save(ctx context.Context) error

	// Load replaces the in-memory entries with the persisted ones.
	// A missing snapshot is not an error.
	Load(ctx context.Context) error
}
