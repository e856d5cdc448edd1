package services

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// IndexService embeds chunks and keeps the vector and lexical indexes in
// step. Writes are serialised; queries may run concurrently with them.
type IndexService struct {
	vectors   driven.VectorIndex
	lexical   driven.LexicalIndex
	embedder  driven.EmbeddingService
	batchSize int
	limiter   *rate.Limiter

	mu sync.Mutex
}

// NewIndexService creates an index service.
// The lexical index is optional (can be nil); without it hybrid retrieval
// falls back to vector results only.
func NewIndexService(
	vectors driven.VectorIndex,
	lexical driven.LexicalIndex,
	embedder driven.EmbeddingService,
	settings domain.EmbeddingSettings,
) *IndexService {
	batch := settings.BatchSize
	if batch <= 0 {
		batch = domain.DefaultEmbeddingBatch
	}

	var limiter *rate.Limiter
	if settings.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(settings.RequestsPerSecond), 1)
	}

	return &IndexService{
		vectors:   vectors,
		lexical:   lexical,
		embedder:  embedder,
		batchSize: batch,
		limiter:   limiter,
	}
}

// HasLexical returns true if a lexical index is attached.
func (s *IndexService) HasLexical() bool {
	return s.lexical != nil
}

// Upsert embeds chunks in batches and writes them, replacing entries with
// the same key. It returns the number of entries written. An embedding
// failure stops the run; batches already written stay written.
func (s *IndexService) Upsert(ctx context.Context, chunks []domain.Chunk) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsert(ctx, chunks)
}

// ReplaceSource writes chunks for one source and drops any entries left
// over from a longer previous version of it. Every chunk is embedded before
// either index changes, so an embedding failure leaves the old version intact.
func (s *IndexService) ReplaceSource(ctx context.Context, sourceID string, chunks []domain.Chunk) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.embedAll(ctx, chunks)
	if err != nil {
		return 0, err
	}

	// The lexical index has no prune; the write below re-adds the live chunks.
	if s.lexical != nil {
		if err := s.lexical.DeleteSource(ctx, sourceID); err != nil {
			return 0, fmt.Errorf("lexical delete %s: %w", sourceID, err)
		}
	}

	n, err := s.write(ctx, entries)
	if err != nil {
		return n, err
	}
	if err := s.vectors.Prune(ctx, sourceID, len(chunks)); err != nil {
		return n, fmt.Errorf("prune %s: %w", sourceID, err)
	}
	return n, nil
}

func (s *IndexService) upsert(ctx context.Context, chunks []domain.Chunk) (int, error) {
	if err := s.writable(chunks); err != nil || len(chunks) == 0 {
		return 0, err
	}

	written := 0
	for start := 0; start < len(chunks); start += s.batchSize {
		entries, err := s.embedBatch(ctx, chunks[start:min(start+s.batchSize, len(chunks))])
		if err != nil {
			return written, err
		}
		n, err := s.write(ctx, entries)
		written += n
		if err != nil {
			return written, err
		}
		logger.Debug("Indexed %d/%d chunks", written, len(chunks))
	}
	return written, nil
}

// embedAll embeds every chunk without writing anything.
func (s *IndexService) embedAll(ctx context.Context, chunks []domain.Chunk) ([]domain.IndexEntry, error) {
	if err := s.writable(chunks); err != nil || len(chunks) == 0 {
		return nil, err
	}

	entries := make([]domain.IndexEntry, 0, len(chunks))
	for start := 0; start < len(chunks); start += s.batchSize {
		batch, err := s.embedBatch(ctx, chunks[start:min(start+s.batchSize, len(chunks))])
		if err != nil {
			return nil, err
		}
		entries = append(entries, batch...)
		logger.Debug("Embedded %d/%d chunks", len(entries), len(chunks))
	}
	return entries, nil
}

// writable reports why chunks cannot be indexed, if they cannot.
func (s *IndexService) writable(chunks []domain.Chunk) error {
	if s.vectors == nil {
		return domain.ErrVectorIndexUnavailable
	}
	if len(chunks) > 0 && s.embedder == nil {
		return domain.ErrEmbeddingUnavailable
	}
	return nil
}

func (s *IndexService) embedBatch(ctx context.Context, batch []domain.Chunk) ([]domain.IndexEntry, error) {
	vectors, err := s.embed(ctx, batch)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.IndexEntry, len(batch))
	for i, c := range batch {
		c.Embedding = nil
		entries[i] = domain.IndexEntry{Chunk: c, Embedding: vectors[i]}
	}
	return entries, nil
}

// write stores embedded entries in both indexes.
func (s *IndexService) write(ctx context.Context, entries []domain.IndexEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	if err := s.vectors.Upsert(ctx, entries); err != nil {
		return 0, fmt.Errorf("vector upsert: %w", err)
	}
	if s.lexical != nil {
		chunks := make([]domain.Chunk, len(entries))
		for i, e := range entries {
			chunks[i] = e.Chunk
		}
		if err := s.lexical.Index(ctx, chunks); err != nil {
			return 0, fmt.Errorf("lexical index: %w", err)
		}
	}
	return len(entries), nil
}

// embed waits for the rate limiter and embeds one batch.
func (s *IndexService) embed(ctx context.Context, batch []domain.Chunk) ([][]float32, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("embedding rate limit: %w", err)
		}
	}

	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Content
	}

	model := s.embedder.ModelName()
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, domain.NewEmbeddingServiceError(model, err)
	}
	if len(vectors) != len(texts) {
		return nil, domain.NewEmbeddingServiceError(model,
			fmt.Errorf("got %d embeddings for %d texts", len(vectors), len(texts)))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, domain.NewEmbeddingServiceError(model, fmt.Errorf("empty embedding for text %d", i))
		}
	}
	return vectors, nil
}

// Query embeds text and returns the k most similar entries.
// k <= 0 or an empty index returns no results without calling the embedder.
func (s *IndexService) Query(
	ctx context.Context,
	text string,
	k int,
	filter domain.MetadataFilter,
) ([]domain.ScoredChunk, error) {
	if s.vectors == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	if k <= 0 {
		return nil, nil
	}

	n, err := s.vectors.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}
	if n == 0 {
		logger.Debug("Vector query skipped: index is empty")
		return nil, nil
	}

	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("embedding rate limit: %w", err)
		}
	}
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, domain.NewEmbeddingServiceError(s.embedder.ModelName(), err)
	}

	results, err := s.vectors.Query(ctx, vector, k, filter)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	logger.Debug("Vector query: %d hits (k=%d)", len(results), k)
	return results, nil
}

// LexicalSearch runs a keyword query. It returns nothing when no lexical
// index is attached.
func (s *IndexService) LexicalSearch(ctx context.Context, query string, limit int) ([]driven.LexicalHit, error) {
	if s.lexical == nil || limit <= 0 {
		return nil, nil
	}
	hits, err := s.lexical.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	return hits, nil
}

// Get returns stored chunks by key.
func (s *IndexService) Get(ctx context.Context, keys []string) ([]domain.Chunk, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	return s.vectors.Get(ctx, keys)
}

// Count returns the number of vector entries.
func (s *IndexService) Count(ctx context.Context) (int, error) {
	return s.vectors.Count(ctx)
}

// Sources summarises entries per source.
func (s *IndexService) Sources(ctx context.Context) ([]domain.SourceStat, error) {
	return s.vectors.Sources(ctx)
}

// DeleteSource removes a source from both indexes.
func (s *IndexService) DeleteSource(ctx context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.vectors.DeleteSource(ctx, sourceID); err != nil {
		return fmt.Errorf("vector delete: %w", err)
	}
	if s.lexical != nil {
		if err := s.lexical.DeleteSource(ctx, sourceID); err != nil {
			return fmt.Errorf("lexical delete: %w", err)
		}
	}
	return nil
}

// Reset empties both indexes.
func (s *IndexService) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.vectors.Reset(ctx); err != nil {
		return fmt.Errorf("vector reset: %w", err)
	}
	if s.lexical != nil {
		if err := s.lexical.Reset(ctx); err != nil {
			return fmt.Errorf("lexical reset: %w", err)
		}
	}
	return nil
}

// Save persists the vector index when its backend needs an explicit save.
func (s *IndexService) Save(ctx context.Context) error {
	p, ok := s.vectors.(driven.Persister)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := p.Save(ctx); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	return nil
}
