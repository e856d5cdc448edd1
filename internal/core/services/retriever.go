package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure RetrieverService implements the interface.
var _ driving.RetrieverService = (*RetrieverService)(nil)

// noOutput is the compressor's reply when a passage has nothing relevant.
const noOutput = "NO_OUTPUT"

// noContext is the rendered context when nothing was retrieved.
const noContext = "No relevant context found."

// RetrieverService finds passages for a query using one of the retrieval
// strategies.
type RetrieverService struct {
	index    *IndexService
	llm      driven.LLMService
	prompts  driven.PromptStore
	settings domain.RetrievalSettings
}

// NewRetrieverService creates a retriever.
// The llm is optional (can be nil); without it the compression strategy fails
// with ErrLLMUnavailable.
func NewRetrieverService(
	index *IndexService,
	llm driven.LLMService,
	prompts driven.PromptStore,
	settings domain.RetrievalSettings,
) *RetrieverService {
	d := domain.DefaultConfig().Retrieval
	if settings.CompressionFactor <= 0 {
		settings.CompressionFactor = d.CompressionFactor
	}
	if settings.VectorWeight == 0 && settings.LexicalWeight == 0 {
		settings.VectorWeight, settings.LexicalWeight = d.VectorWeight, d.LexicalWeight
	}
	return &RetrieverService{
		index:    index,
		llm:      llm,
		prompts:  prompts,
		settings: settings,
	}
}

// Retrieve dispatches to strategy and returns up to k passages.
func (r *RetrieverService) Retrieve(
	ctx context.Context,
	query string,
	strategy domain.Strategy,
	k int,
) (*domain.RetrievalResult, error) {
	logger.Section("Retrieval")

	query = strings.TrimSpace(query)
	result := &domain.RetrievalResult{Query: query, Strategy: strategy}
	if !strategy.IsValid() {
		return nil, fmt.Errorf("%w: retrieval strategy %q", domain.ErrInvalidInput, strategy)
	}
	if k <= 0 || query == "" {
		return result, nil
	}
	logger.Debug("Query: %q, strategy: %s, k: %d", query, strategy, k)

	var (
		passages []domain.ScoredChunk
		err      error
	)
	switch strategy {
	case domain.StrategySimilarity:
		passages, err = r.index.Query(ctx, query, k, nil)
	case domain.StrategyCompression:
		passages, err = r.compression(ctx, query, k)
	case domain.StrategyHybrid:
		passages, err = r.hybrid(ctx, query, k)
	}
	if err != nil {
		logger.Warn("Retrieval failed: %v", err)
		return nil, fmt.Errorf("%s retrieval: %w", strategy, err)
	}

	result.Passages = passages
	logger.Info("Retrieved %d passages", len(passages))
	return result, nil
}

// RetrieveFiltered runs a similarity query restricted by metadata.
func (r *RetrieverService) RetrieveFiltered(
	ctx context.Context,
	query string,
	k int,
	filter domain.MetadataFilter,
) (*domain.RetrievalResult, error) {
	query = strings.TrimSpace(query)
	result := &domain.RetrievalResult{Query: query, Strategy: domain.StrategySimilarity}
	if k <= 0 || query == "" {
		return result, nil
	}

	passages, err := r.index.Query(ctx, query, k, filter)
	if err != nil {
		return nil, fmt.Errorf("filtered retrieval: %w", err)
	}
	result.Passages = passages
	return result, nil
}

// compression over-fetches candidates and keeps only the sentences the LLM
// extracts as relevant. Candidates with nothing relevant are dropped.
func (r *RetrieverService) compression(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if r.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	candidates, err := r.index.Query(ctx, query, k*r.settings.CompressionFactor, nil)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	template, err := r.prompts.Load(driven.PromptCompress)
	if err != nil {
		return nil, fmt.Errorf("load compress prompt: %w", err)
	}

	logger.Debug("Compression: %d candidates for k=%d", len(candidates), k)
	kept := make([]domain.ScoredChunk, 0, k)
	for _, c := range candidates {
		if len(kept) == k {
			break
		}
		prompt := RenderPrompt(template, map[string]string{
			"question": query,
			"context":  c.Chunk.Content,
		})
		extracted, err := r.llm.Generate(ctx, prompt, driven.GenerateOptions{Temperature: 0})
		if err != nil {
			return nil, domain.NewLLMServiceError(r.llm.ModelName(), err)
		}
		extracted = strings.TrimSpace(extracted)
		if extracted == "" || strings.HasPrefix(extracted, noOutput) {
			logger.Debug("Compression dropped %s", c.Chunk.Key())
			continue
		}
		c.Chunk.Content = extracted
		kept = append(kept, c)
	}
	return kept, nil
}

// hybrid merges vector and lexical results. Each list is min-max normalised
// and the combined score is a weighted sum; a missing side counts as zero.
func (r *RetrieverService) hybrid(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	fetch := k * 2

	vectorHits, err := r.index.Query(ctx, query, fetch, nil)
	if err != nil {
		return nil, err
	}
	if !r.index.HasLexical() {
		logger.Warn("Hybrid retrieval: no lexical index, using vector results only")
	}
	lexicalHits, err := r.index.LexicalSearch(ctx, query, fetch)
	if err != nil {
		return nil, err
	}
	logger.Debug("Hybrid: %d vector + %d lexical hits", len(vectorHits), len(lexicalHits))

	merged := make(map[string]*domain.ScoredChunk, len(vectorHits)+len(lexicalHits))

	vectorNorm := minMax(len(vectorHits), func(i int) float64 { return vectorHits[i].Score })
	for i := range vectorHits {
		c := vectorHits[i]
		c.VectorScore = vectorHits[i].Score
		c.Score = r.settings.VectorWeight * vectorNorm[i]
		merged[c.Chunk.Key()] = &c
	}

	lexicalNorm := minMax(len(lexicalHits), func(i int) float64 { return lexicalHits[i].Score })
	var missing []string
	for _, hit := range lexicalHits {
		if _, ok := merged[hit.Key]; !ok {
			missing = append(missing, hit.Key)
		}
	}
	hydrated, err := r.index.Get(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("hydrate lexical hits: %w", err)
	}
	for _, chunk := range hydrated {
		chunk.Embedding = nil
		merged[chunk.Key()] = &domain.ScoredChunk{Chunk: chunk}
	}
	for i, hit := range lexicalHits {
		c, ok := merged[hit.Key]
		if !ok {
			// Lexical entry without a vector entry; the indexes are out of step.
			logger.Debug("Hybrid: skipping stale lexical hit %s", hit.Key)
			continue
		}
		c.LexicalScore = lexicalNorm[i]
		c.Score += r.settings.LexicalWeight * lexicalNorm[i]
	}

	results := make([]domain.ScoredChunk, 0, len(merged))
	for _, c := range merged {
		results = append(results, *c)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.Key() < results[j].Chunk.Key()
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// minMax normalises n scores to [0,1]. When every score is equal they all
// normalise to 1.
func minMax(n int, score func(int) float64) []float64 {
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	lo, hi := score(0), score(0)
	for i := 1; i < n; i++ {
		s := score(i)
		lo = min(lo, s)
		hi = max(hi, s)
	}
	for i := range out {
		if hi == lo {
			out[i] = 1
			continue
		}
		out[i] = (score(i) - lo) / (hi - lo)
	}
	return out
}

// FormatContext renders a retrieval result for the {{context}} placeholder.
func FormatContext(result *domain.RetrievalResult) string {
	if result.IsEmpty() {
		return noContext
	}
	var b strings.Builder
	for i, p := range result.Passages {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[Document %d - %s]\n%s\n", i+1, p.Chunk.SourceID, p.Chunk.Content)
	}
	return b.String()
}

// RenderPrompt replaces {{name}} placeholders in template.
// Unknown placeholders are left as they are.
func RenderPrompt(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
