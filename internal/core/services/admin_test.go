package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestAdminService_Stats(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.VectorStore.Type = domain.VectorStoreFAISS
	cfg.LLM.Model = "gpt-4o-mini"
	cfg.Embedding.Model = "text-embedding-3-small"

	mem := NewMemory(3)
	mem.Append(domain.ConversationTurn{Question: "q", Answer: "a"})
	admin := NewAdminService(seededIndex(t), mem, cfg)

	stats, err := admin.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "faiss", stats.VectorStore)
	assert.Equal(t, "gpt-4o-mini", stats.ChatModel)
	assert.Equal(t, "text-embedding-3-small", stats.EmbeddingModel)
	assert.Equal(t, cfg.Chunker.Size, stats.ChunkSize)
	assert.Equal(t, cfg.Retrieval.K, stats.RetrievalK)
	assert.Equal(t, 4, stats.TotalEntries)
	assert.Equal(t, 39, stats.ApproxTokens)
	assert.Equal(t, 1, stats.MemoryTurns)
	assert.Equal(t, cfg.Memory.Window, stats.MemoryWindow)

	require.Len(t, stats.Sources, 2)
	assert.Equal(t, domain.SourceStat{SourceID: "memo.txt", Format: "txt", Chunks: 2, Characters: 72}, stats.Sources[0])
	assert.Equal(t, "report.pdf", stats.Sources[1].SourceID)
	assert.Equal(t, 84, stats.Sources[1].Characters)
}

func TestAdminService_DeleteAndReset(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	idx := NewIndexService(memory.New(dir), nil, &fakeEmbedder{}, domain.EmbeddingSettings{})
	_, err := idx.Upsert(ctx, []domain.Chunk{
		testChunk("a.txt", 0, "alpha", nil),
		testChunk("b.txt", 0, "bravo", nil),
	})
	require.NoError(t, err)
	admin := NewAdminService(idx, nil, domain.DefaultConfig())

	assert.ErrorIs(t, admin.DeleteSource(ctx, ""), domain.ErrInvalidInput)

	require.NoError(t, admin.DeleteSource(ctx, "a.txt"))
	sources, err := admin.Sources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "b.txt", sources[0].SourceID)
	assert.FileExists(t, filepath.Join(dir, memory.SnapshotFile), "deletes are saved")

	reloaded := memory.New(dir)
	require.NoError(t, reloaded.Load(ctx))
	n, err := reloaded.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, admin.Reset(ctx))
	stats, err := admin.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalEntries)
	assert.Empty(t, stats.Sources)
	assert.Zero(t, stats.MemoryTurns)
}

func TestAdminService_Backup(t *testing.T) {
	ctx := context.Background()
	persist := t.TempDir()
	idx := NewIndexService(memory.New(persist), nil, &fakeEmbedder{}, domain.EmbeddingSettings{})
	_, err := idx.Upsert(ctx, []domain.Chunk{testChunk("a.txt", 0, "alpha", nil)})
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(persist, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(persist, "nested", "extra.bin"), []byte{1, 2, 3}, 0o600))

	cfg := domain.DefaultConfig()
	cfg.VectorStore.PersistDirectory = persist
	admin := NewAdminService(idx, nil, cfg)
	admin.now = func() time.Time { return time.Date(2024, 3, 1, 9, 5, 7, 0, time.UTC) }

	out := t.TempDir()
	dst, err := admin.Backup(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "backup_20240301_090507"), dst)
	assert.FileExists(t, filepath.Join(dst, memory.SnapshotFile))

	extra, err := os.ReadFile(filepath.Join(dst, "nested", "extra.bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, extra)

	restored := memory.New(dst)
	require.NoError(t, restored.Load(ctx))
	n, err := restored.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAdminService_BackupMissingDirectory(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.VectorStore.PersistDirectory = filepath.Join(t.TempDir(), "missing")
	admin := NewAdminService(seededIndex(t), nil, cfg)

	_, err := admin.Backup(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApproxTokens(t *testing.T) {
	assert.Equal(t, 0, ApproxTokens(3))
	assert.Equal(t, 25, ApproxTokens(100))
}
