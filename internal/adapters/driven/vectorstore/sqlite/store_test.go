package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func entry(source string, ordinal int, content string, vec []float32, md map[string]any) domain.IndexEntry {
	if md == nil {
		md = map[string]any{}
	}
	if _, ok := md["format"]; !ok {
		md["format"] = "txt"
	}
	return domain.IndexEntry{
		Chunk: domain.Chunk{
			ID:         domain.ChunkKey(source, ordinal),
			DocumentID: source,
			SourceID:   source,
			Ordinal:    ordinal,
			Content:    content,
			Metadata:   md,
		},
		Embedding: vec,
	}
}

func TestNew(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, DBFile), store.Path())
	assert.FileExists(t, store.Path())
}

func TestNew_EmptyDir(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNew_ReopenKeepsEntries(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, []domain.IndexEntry{entry("a.txt", 0, "alpha", []float32{1, 0}, nil)}))
	require.NoError(t, store.Close())

	reopened, err := New(dir)
	require.NoError(t, err)
	defer reopened.Close()

	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_UpsertReplacesByKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []domain.IndexEntry{
		entry("a.txt", 0, "old", []float32{1, 0}, nil),
		entry("a.txt", 1, "second", []float32{0, 1}, nil),
	}))
	require.NoError(t, store.Upsert(ctx, []domain.IndexEntry{
		entry("a.txt", 0, "new", []float32{1, 0}, nil),
	}))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	chunks, err := store.Get(ctx, []string{"a.txt#0"})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "new", chunks[0].Content)
	assert.Equal(t, []float32{1, 0}, chunks[0].Embedding)
}

func TestStore_UpsertRequiresEmbedding(t *testing.T) {
	store := newTestStore(t)
	err := store.Upsert(context.Background(), []domain.IndexEntry{entry("a.txt", 0, "x", nil, nil)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_Query(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []domain.IndexEntry{
		entry("a.txt", 0, "east", []float32{1, 0}, nil),
		entry("a.txt", 1, "north", []float32{0, 1}, nil),
		entry("b.txt", 0, "north-east", []float32{1, 1}, nil),
	}))

	tests := []struct {
		name     string
		k        int
		wantKeys []string
	}{
		{name: "top one", k: 1, wantKeys: []string{"a.txt#0"}},
		{name: "top two", k: 2, wantKeys: []string{"a.txt#0", "b.txt#0"}},
		{name: "k larger than index", k: 10, wantKeys: []string{"a.txt#0", "b.txt#0", "a.txt#1"}},
		{name: "zero k", k: 0, wantKeys: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := store.Query(ctx, []float32{1, 0}, tt.k, nil)
			require.NoError(t, err)

			var keys []string
			for _, r := range results {
				keys = append(keys, r.Chunk.Key())
			}
			assert.Equal(t, tt.wantKeys, keys)
		})
	}
}

func TestStore_QueryScores(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, []domain.IndexEntry{
		entry("a.txt", 0, "east", []float32{1, 0}, map[string]any{"page": 3}),
	}))

	results, err := store.Query(ctx, []float32{2, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.InDelta(t, 1.0, results[0].VectorScore, 1e-9)
	assert.Equal(t, 3, domain.Page(results[0].Chunk.Metadata))
}

func TestStore_QueryEmptyIndex(t *testing.T) {
	store := newTestStore(t)
	results, err := store.Query(context.Background(), []float32{1, 0}, 4, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStore_QueryDimensionMismatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, []domain.IndexEntry{entry("a.txt", 0, "x", []float32{1, 0, 0}, nil)}))

	_, err := store.Query(ctx, []float32{1, 0}, 1, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_QueryFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []domain.IndexEntry{
		entry("r.pdf", 0, "page one", []float32{1, 0}, map[string]any{"page": 1, "format": "pdf"}),
		entry("r.pdf", 1, "page two", []float32{1, 0.1}, map[string]any{"page": 2, "format": "pdf"}),
		entry("n.txt", 0, "notes", []float32{1, 0.2}, map[string]any{"draft": true, "tags": []any{"a", "b"}}),
	}))

	tests := []struct {
		name     string
		filter   domain.MetadataFilter
		wantKeys []string
	}{
		{name: "by page", filter: domain.MetadataFilter{"page": "2"}, wantKeys: []string{"r.pdf#1"}},
		{name: "by format", filter: domain.MetadataFilter{"format": "pdf"}, wantKeys: []string{"r.pdf#0", "r.pdf#1"}},
		{name: "by bool", filter: domain.MetadataFilter{"draft": "true"}, wantKeys: []string{"n.txt#0"}},
		{name: "combined", filter: domain.MetadataFilter{"format": "pdf", "page": "1"}, wantKeys: []string{"r.pdf#0"}},
		{name: "missing key", filter: domain.MetadataFilter{"author": "x"}, wantKeys: nil},
		{name: "list never matches", filter: domain.MetadataFilter{"tags": `["a","b"]`}, wantKeys: nil},
		{name: "list string form never matches", filter: domain.MetadataFilter{"tags": "[a b]"}, wantKeys: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := store.Query(ctx, []float32{1, 0}, 10, tt.filter)
			require.NoError(t, err)

			var keys []string
			for _, r := range results {
				keys = append(keys, r.Chunk.Key())
			}
			assert.Equal(t, tt.wantKeys, keys)
		})
	}
}

func TestStore_Get(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, []domain.IndexEntry{
		entry("a.txt", 0, "zero", []float32{1}, nil),
		entry("a.txt", 1, "one", []float32{1}, nil),
	}))

	chunks, err := store.Get(ctx, []string{"a.txt#1", "missing#0", "garbage", "a.txt#0"})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "one", chunks[0].Content)
	assert.Equal(t, "zero", chunks[1].Content)
}

func TestStore_Sources(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, []domain.IndexEntry{
		entry("b.csv", 0, "row", []float32{1}, map[string]any{"format": "csv"}),
		entry("a.txt", 0, "hello", []float32{1}, nil),
		entry("a.txt", 1, "world!", []float32{1}, nil),
	}))

	stats, err := store.Sources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.SourceStat{
		{SourceID: "a.txt", Format: domain.FormatTXT, Chunks: 2, Characters: 11},
		{SourceID: "b.csv", Format: domain.FormatCSV, Chunks: 1, Characters: 3},
	}, stats)
}

func TestStore_DeleteSourceAndPrune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, []domain.IndexEntry{
		entry("a.txt", 0, "0", []float32{1}, nil),
		entry("a.txt", 1, "1", []float32{1}, nil),
		entry("a.txt", 2, "2", []float32{1}, nil),
		entry("b.txt", 0, "0", []float32{1}, nil),
	}))

	require.NoError(t, store.Prune(ctx, "a.txt", 1))
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, store.DeleteSource(ctx, "b.txt"))
	stats, err := store.Sources(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "a.txt", stats[0].SourceID)
	assert.Equal(t, 1, stats[0].Chunks)
}

func TestStore_Reset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, []domain.IndexEntry{entry("a.txt", 0, "x", []float32{1}, nil)}))

	require.NoError(t, store.Reset(ctx))
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFloat32Conversion(t *testing.T) {
	tests := []struct {
		name  string
		input []float32
	}{
		{name: "empty", input: nil},
		{name: "single", input: []float32{1.5}},
		{name: "mixed", input: []float32{-1, 0, 0.25, 3.4e38}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := bytesToFloat32Slice(float32SliceToBytes(tt.input))
			assert.Equal(t, tt.input, got)
		})
	}
}
