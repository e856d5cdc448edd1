package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/postprocessors/chunker"
	"github.com/custodia-labs/docqa/internal/postprocessors/metadata"
)

// RegisterDefaults registers the chunker and metadata stages.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("metadata", func(map[string]any) (driven.PostProcessor, error) {
		return metadata.New(), nil
	})
}

// ForChunking builds the standard chunker then metadata pipeline.
func ForChunking(settings domain.ChunkerSettings) (*Pipeline, error) {
	return NewDefaultRegistry().Pipeline(domain.PipelineConfigFor(settings))
}

// buildChunker reads chunk_size and overlap. A missing or zero size keeps
// the default; an overlap of 0 is honoured when the key is present.
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	size, _ := intSetting(cfg, "chunk_size")
	if size < 0 {
		return nil, fmt.Errorf("%w: chunk_size %d", domain.ErrInvalidInput, size)
	}
	if size > 0 {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap, ok := intSetting(cfg, "overlap"); ok {
		if overlap < 0 {
			return nil, fmt.Errorf("%w: overlap %d", domain.ErrInvalidInput, overlap)
		}
		opts = append(opts, chunker.WithOverlap(overlap))
	}

	return chunker.New(opts...), nil
}

// intSetting reads a numeric setting decoded from TOML, JSON or Go code.
func intSetting(cfg map[string]any, key string) (int, bool) {
	switch v := cfg[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
