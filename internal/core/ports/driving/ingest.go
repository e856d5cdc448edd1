package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// IngestProgress receives per-file progress during ingestion.
// Services accept a nil IngestProgress.
type IngestProgress interface {
	// Start is called once with the number of files to process.
	Start(total int)

	// FileDone is called after each file, successful or not.
	FileDone(path string, err error)

	// Finish is called once when the run ends.
	Finish()
}

// IngestService loads documents from a directory tree into the index.
type IngestService interface {
	// Ingest walks root, parses every supported file, chunks and indexes it.
	// Per-file failures are recorded in the report and do not stop the run.
	// External service failures abort the run and are returned.
	Ingest(ctx context.Context, root string, progress IngestProgress) (*domain.IngestReport, error)

	// Load parses every file under root without indexing it. fn is called for
	// each document as it is produced; per-file errors are returned in order.
	Load(ctx context.Context, root string, fn func(domain.Document) error) ([]domain.FileFailure, error)

	// Scan lists the supported files under root without reading them.
	Scan(ctx context.Context, root string) ([]domain.FileInfo, error)
}
