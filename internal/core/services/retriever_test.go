package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

func passageKeys(result *domain.RetrievalResult) []string {
	var keys []string
	for _, p := range result.Passages {
		keys = append(keys, p.Chunk.Key())
	}
	return keys
}

// seededIndex indexes a small corpus with fixed embeddings.
func seededIndex(t *testing.T) *IndexService {
	t.Helper()
	embedder := &fakeEmbedder{fixed: map[string][]float32{
		"Revenue grew ten percent in the third quarter.": {1, 0, 0},
		"The office picnic is scheduled for June.":       {0, 1, 0},
		"Quarterly revenue targets were missed.":         {0.9, 0.1, 0},
		"Parking rules changed last week.":               {0, 0, 1},
		"revenue":                                        {1, 0.05, 0},
		"picnic":                                         {0, 1, 0},
		"parking":                                        {0.1, 0.1, 1},
		"What happened to revenue?":                      {1, 0, 0},
		"first question":                                 {0, 1, 0},
		"second question":                                {0, 1, 0},
		"third question":                                 {0, 1, 0},
	}}
	idx, _ := testIndex(t, embedder, 0)
	_, err := idx.Upsert(context.Background(), []domain.Chunk{
		testChunk("report.pdf", 0, "Revenue grew ten percent in the third quarter.", map[string]any{"page": 1, "format": "pdf"}),
		testChunk("memo.txt", 0, "The office picnic is scheduled for June.", map[string]any{"format": "txt"}),
		testChunk("report.pdf", 1, "Quarterly revenue targets were missed.", map[string]any{"page": 2, "format": "pdf"}),
		testChunk("memo.txt", 1, "Parking rules changed last week.", map[string]any{"format": "txt"}),
	})
	require.NoError(t, err)
	return idx
}

func TestRetrieverService_Similarity(t *testing.T) {
	r := NewRetrieverService(seededIndex(t), nil, testPrompts(), domain.RetrievalSettings{})

	result, err := r.Retrieve(context.Background(), "revenue", domain.StrategySimilarity, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.StrategySimilarity, result.Strategy)
	assert.Equal(t, []string{"report.pdf#0", "report.pdf#1"}, passageKeys(result))
	assert.GreaterOrEqual(t, result.Passages[0].Score, result.Passages[1].Score)
}

func TestRetrieverService_EmptyCases(t *testing.T) {
	ctx := context.Background()
	empty, _ := testIndex(t, &fakeEmbedder{}, 0)

	tests := []struct {
		name     string
		index    *IndexService
		query    string
		strategy domain.Strategy
		k        int
	}{
		{name: "zero k", index: seededIndex(t), query: "revenue", strategy: domain.StrategySimilarity, k: 0},
		{name: "blank query", index: seededIndex(t), query: "   ", strategy: domain.StrategyHybrid, k: 3},
		{name: "empty index similarity", index: empty, query: "revenue", strategy: domain.StrategySimilarity, k: 3},
		{name: "empty index hybrid", index: empty, query: "revenue", strategy: domain.StrategyHybrid, k: 3},
		{name: "empty index compression", index: empty, query: "revenue", strategy: domain.StrategyCompression, k: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeLLM{}
			r := NewRetrieverService(tt.index, llm, testPrompts(), domain.RetrievalSettings{})
			result, err := r.Retrieve(ctx, tt.query, tt.strategy, tt.k)
			require.NoError(t, err)
			assert.True(t, result.IsEmpty())
			assert.Empty(t, llm.prompts)
		})
	}
}

func TestRetrieverService_InvalidStrategy(t *testing.T) {
	r := NewRetrieverService(seededIndex(t), nil, testPrompts(), domain.RetrievalSettings{})
	_, err := r.Retrieve(context.Background(), "revenue", "mmr", 2)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetrieverService_Compression(t *testing.T) {
	llm := &fakeLLM{generate: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "Revenue grew"):
			return "  Revenue grew ten percent  ", nil
		case strings.Contains(prompt, "Quarterly revenue"):
			return "NO_OUTPUT", nil
		case strings.Contains(prompt, "Parking"):
			return "", nil
		default:
			return "The office picnic", nil
		}
	}}
	r := NewRetrieverService(seededIndex(t), llm, testPrompts(), domain.RetrievalSettings{CompressionFactor: 3})

	result, err := r.Retrieve(context.Background(), "revenue", domain.StrategyCompression, 1)
	require.NoError(t, err)
	require.Len(t, result.Passages, 1)
	assert.Equal(t, "report.pdf#0", result.Passages[0].Chunk.Key())
	assert.Equal(t, "Revenue grew ten percent", result.Passages[0].Chunk.Content)
	assert.Greater(t, result.Passages[0].Score, 0.9, "original score is kept")

	require.NotEmpty(t, llm.prompts)
	assert.Contains(t, llm.prompts[0], "Question: revenue")
	assert.NotContains(t, llm.prompts[0], "{{context}}")
}

func TestRetrieverService_CompressionDropsIrrelevant(t *testing.T) {
	llm := &fakeLLM{generate: func(prompt string) (string, error) {
		if strings.Contains(prompt, "picnic is scheduled") {
			return "The office picnic is scheduled for June.", nil
		}
		return "NO_OUTPUT", nil
	}}
	r := NewRetrieverService(seededIndex(t), llm, testPrompts(), domain.RetrievalSettings{CompressionFactor: 3})

	result, err := r.Retrieve(context.Background(), "revenue", domain.StrategyCompression, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"memo.txt#0"}, passageKeys(result))
	assert.Len(t, llm.prompts, 4, "over-fetch is capped by the index size")
}

func TestRetrieverService_CompressionErrors(t *testing.T) {
	ctx := context.Background()

	r := NewRetrieverService(seededIndex(t), nil, testPrompts(), domain.RetrievalSettings{})
	_, err := r.Retrieve(ctx, "revenue", domain.StrategyCompression, 2)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)

	llm := &fakeLLM{generate: func(string) (string, error) { return "", errors.New("rate limited") }}
	r = NewRetrieverService(seededIndex(t), llm, testPrompts(), domain.RetrievalSettings{})
	_, err = r.Retrieve(ctx, "revenue", domain.StrategyCompression, 2)
	var llmErr *domain.LLMServiceError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, "fake-chat", llmErr.Model)
}

func TestRetrieverService_Hybrid(t *testing.T) {
	r := NewRetrieverService(seededIndex(t), nil, testPrompts(), domain.RetrievalSettings{
		VectorWeight:  0.7,
		LexicalWeight: 0.3,
	})

	result, err := r.Retrieve(context.Background(), "parking", domain.StrategyHybrid, 2)
	require.NoError(t, err)
	require.Len(t, result.Passages, 2)

	top := result.Passages[0]
	assert.Equal(t, "memo.txt#1", top.Chunk.Key())
	assert.InDelta(t, 1.0, top.Score, 1e-9, "best on both lists scores the full weight")
	assert.InDelta(t, 1.0, top.LexicalScore, 1e-9)
	assert.Greater(t, top.VectorScore, 0.9)

	for i := 1; i < len(result.Passages); i++ {
		assert.GreaterOrEqual(t, result.Passages[i-1].Score, result.Passages[i].Score)
	}
}

func TestRetrieverService_HybridLexicalOnlyHit(t *testing.T) {
	embedder := &fakeEmbedder{fixed: map[string][]float32{
		"zebra crossing rules": {0, 1},
		"vector favourite":     {1, 0},
		"another favourite":    {0.9, 0.1},
		"zebra":                {1, 0},
	}}
	idx, _ := testIndex(t, embedder, 0)
	_, err := idx.Upsert(context.Background(), []domain.Chunk{
		testChunk("a.txt", 0, "zebra crossing rules", nil),
		testChunk("b.txt", 0, "vector favourite", nil),
		testChunk("c.txt", 0, "another favourite", nil),
	})
	require.NoError(t, err)

	r := NewRetrieverService(idx, nil, testPrompts(), domain.RetrievalSettings{VectorWeight: 0.5, LexicalWeight: 0.5})
	result, err := r.Retrieve(context.Background(), "zebra", domain.StrategyHybrid, 1)
	require.NoError(t, err)
	require.Len(t, result.Passages, 1)

	// a.txt is outside the vector fetch and b.txt tops it; both score 0.5
	// and ties break by key.
	top := result.Passages[0]
	assert.Equal(t, "a.txt#0", top.Chunk.Key())
	assert.Equal(t, "zebra crossing rules", top.Chunk.Content)
	assert.InDelta(t, 0.5, top.Score, 1e-9)
	assert.Zero(t, top.VectorScore)
	assert.Nil(t, top.Chunk.Embedding)
}

func TestRetrieverService_HybridWithoutLexical(t *testing.T) {
	embedder := &fakeEmbedder{fixed: map[string][]float32{"alpha": {1, 0}, "beta": {0, 1}, "q": {1, 0}}}
	idx := NewIndexService(memory.New(t.TempDir()), nil, embedder, domain.EmbeddingSettings{})
	_, err := idx.Upsert(context.Background(), []domain.Chunk{
		testChunk("a.txt", 0, "alpha", nil),
		testChunk("a.txt", 1, "beta", nil),
	})
	require.NoError(t, err)

	r := NewRetrieverService(idx, nil, testPrompts(), domain.RetrievalSettings{})
	result, err := r.Retrieve(context.Background(), "q", domain.StrategyHybrid, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt#0"}, passageKeys(result))
	assert.InDelta(t, domain.DefaultVectorWeight, result.Passages[0].Score, 1e-9)
}

func TestRetrieverService_RetrieveFiltered(t *testing.T) {
	r := NewRetrieverService(seededIndex(t), nil, testPrompts(), domain.RetrievalSettings{})

	result, err := r.RetrieveFiltered(context.Background(), "revenue", 5, domain.MetadataFilter{"page": "2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"report.pdf#1"}, passageKeys(result))

	result, err = r.RetrieveFiltered(context.Background(), "revenue", 0, nil)
	require.NoError(t, err)
	assert.True(t, result.IsEmpty())
}

func TestMinMax(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   []float64
	}{
		{name: "empty", scores: nil, want: []float64{}},
		{name: "single", scores: []float64{0.3}, want: []float64{1}},
		{name: "equal", scores: []float64{2, 2}, want: []float64{1, 1}},
		{name: "spread", scores: []float64{4, 2, 3}, want: []float64{1, 0, 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := minMax(len(tt.scores), func(i int) float64 { return tt.scores[i] })
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatContext(t *testing.T) {
	assert.Equal(t, "No relevant context found.", FormatContext(nil))
	assert.Equal(t, "No relevant context found.", FormatContext(&domain.RetrievalResult{}))

	result := &domain.RetrievalResult{Passages: []domain.ScoredChunk{
		{Chunk: testChunk("a.txt", 0, "first", nil)},
		{Chunk: testChunk("b.pdf", 3, "second", nil)},
	}}
	assert.Equal(t, "[Document 1 - a.txt]\nfirst\n\n[Document 2 - b.pdf]\nsecond\n", FormatContext(result))
}

func TestRenderPrompt(t *testing.T) {
	got := RenderPrompt("Q: {{question}} C: {{context}} H: {{chat_history}}", map[string]string{
		"question": "why?",
		"context":  "because {{question}}",
	})
	assert.Equal(t, "Q: why? C: because {{question}} H: {{chat_history}}", got)
}
