package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// RetrieverService finds the passages most relevant to a query.
type RetrieverService interface {
	// Retrieve dispatches to the given strategy and returns up to k passages.
	// k == 0 or an empty index yields an empty result, not an error.
	Retrieve(ctx context.Context, query string, strategy domain.Strategy, k int) (*domain.RetrievalResult, error)

	// RetrieveFiltered runs a similarity query restricted by metadata.
	RetrieveFiltered(ctx context.Context, query string, k int, filter domain.MetadataFilter) (*domain.RetrievalResult, error)
}
