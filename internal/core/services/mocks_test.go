package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa/internal/adapters/driven/lexical/bleve"
	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// fakeEmbedder embeds text as a letter histogram, so texts sharing words
// score as similar. Fixed vectors can be set per text.
type fakeEmbedder struct {
	mu         sync.Mutex
	fixed      map[string][]float32
	err        error
	failAfter  int // fail batch calls after this many succeed; 0 disables
	batchCalls int
	embedCalls int
	batchSizes []int
}

func (f *fakeEmbedder) vector(text string) []float32 {
	if v, ok := f.fixed[text]; ok {
		return v
	}
	v := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		} else if unicode.IsDigit(r) {
			v[0] += 0.01
		}
	}
	return v
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embedCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector(text), nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	f.batchSizes = append(f.batchSizes, len(texts))
	if f.err != nil && (f.failAfter == 0 || f.batchCalls > f.failAfter) {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vector(t)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int             { return 26 }
func (f *fakeEmbedder) ModelName() string           { return "fake-embed" }
func (f *fakeEmbedder) Ping(_ context.Context) error { return nil }
func (f *fakeEmbedder) Close() error                { return nil }

// fakeLLM records prompts and replies from a script.
type fakeLLM struct {
	mu       sync.Mutex
	generate func(prompt string) (string, error)
	chat     func(messages []driven.ChatMessage) (string, error)
	prompts  []string
	messages [][]driven.ChatMessage
	chatOpts []driven.ChatOptions
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.generate == nil {
		return "", errors.New("generate not scripted")
	}
	return f.generate(prompt)
}

func (f *fakeLLM) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, messages)
	f.chatOpts = append(f.chatOpts, opts)
	if f.chat == nil {
		return "", errors.New("chat not scripted")
	}
	return f.chat(messages)
}

func (f *fakeLLM) ModelName() string           { return "fake-chat" }
func (f *fakeLLM) Ping(_ context.Context) error { return nil }
func (f *fakeLLM) Close() error                { return nil }

// fakeValidator returns canned results.
type fakeValidator struct {
	embedErr error
	llmErr   error
	warning  string
	checked  []domain.AIProvider
}

func (f *fakeValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error { return f.embedErr }
func (f *fakeValidator) ValidateLLM(_ *domain.LLMSettings) error             { return f.llmErr }

func (f *fakeValidator) CheckAPIKey(provider domain.AIProvider, _ string) string {
	f.checked = append(f.checked, provider)
	return f.warning
}

// fakeProgress records ingestion progress callbacks.
type fakeProgress struct {
	total    int
	done     []string
	errs     []error
	finished bool
}

func (p *fakeProgress) Start(total int) { p.total = total }

func (p *fakeProgress) FileDone(path string, err error) {
	p.done = append(p.done, path)
	p.errs = append(p.errs, err)
}

func (p *fakeProgress) Finish() { p.finished = true }

// testIndex builds an IndexService over an in-memory vector store and an
// in-memory lexical index.
func testIndex(t *testing.T, embedder driven.EmbeddingService, batchSize int) (*IndexService, *memory.Store) {
	t.Helper()
	vectors := memory.New(t.TempDir())
	lexical, err := bleve.NewMemOnly()
	require.NoError(t, err)
	t.Cleanup(func() { _ = lexical.Close() })
	return NewIndexService(vectors, lexical, embedder, domain.EmbeddingSettings{BatchSize: batchSize}), vectors
}

func testPrompts() driven.PromptStore {
	return file.NewPromptStore("")
}

func testChunk(source string, ordinal int, content string, md map[string]any) domain.Chunk {
	if md == nil {
		md = map[string]any{}
	}
	return domain.Chunk{
		ID:       ChunkID(source, ordinal),
		SourceID: source,
		Ordinal:  ordinal,
		Content:  content,
		Metadata: md,
	}
}
