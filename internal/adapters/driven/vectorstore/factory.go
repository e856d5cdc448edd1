// Package vectorstore selects the vector index backend at startup.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore/sqlite"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// New opens the backend named by cfg.Type. The in-memory backend is loaded
// from its snapshot before it is returned.
func New(ctx context.Context, cfg domain.VectorStoreSettings) (driven.VectorIndex, error) {
	if cfg.PersistDirectory == "" {
		return nil, fmt.Errorf("%w: vector_store.persist_directory is empty", domain.ErrInvalidInput)
	}

	switch cfg.Type {
	case domain.VectorStoreChroma:
		store, err := sqlite.New(cfg.PersistDirectory)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite index: %w", err)
		}
		logger.Debug("vector store: sqlite at %s", store.Path())
		return store, nil

	case domain.VectorStoreFAISS:
		store := memory.New(cfg.PersistDirectory)
		if err := store.Load(ctx); err != nil {
			return nil, fmt.Errorf("loading in-memory index: %w", err)
		}
		n, _ := store.Count(ctx)
		logger.Debug("vector store: in-memory, %d entries loaded from %s", n, store.Path())
		return store, nil

	default:
		return nil, fmt.Errorf("%w: vector store %q", domain.ErrUnsupportedType, cfg.Type)
	}
}

// Save persists idx when the backend keeps entries in memory.
// Write-through backends need nothing and return nil.
func Save(ctx context.Context, idx driven.VectorIndex) error {
	p, ok := idx.(driven.Persister)
	if !ok {
		return nil
	}
	return p.Save(ctx)
}
