package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure AdminService implements the interface.
var _ driving.IndexAdmin = (*AdminService)(nil)

// AdminService reports on and maintains the index.
type AdminService struct {
	index  *IndexService
	memory *Memory
	cfg    domain.Config
	now    func() time.Time
}

// NewAdminService creates an admin service. The memory is optional
// (can be nil) and only feeds Stats.
func NewAdminService(index *IndexService, memory *Memory, cfg domain.Config) *AdminService {
	return &AdminService{index: index, memory: memory, cfg: cfg, now: time.Now}
}

// Stats summarises configuration and index contents.
func (a *AdminService) Stats(ctx context.Context) (*domain.Stats, error) {
	total, err := a.index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}
	sources, err := a.index.Sources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	chars := 0
	for _, s := range sources {
		chars += s.Characters
	}

	stats := &domain.Stats{
		VectorStore:    a.cfg.VectorStore.Type.String(),
		ChatModel:      a.cfg.LLM.Model,
		EmbeddingModel: a.cfg.Embedding.Model,
		ChunkSize:      a.cfg.Chunker.Size,
		ChunkOverlap:   a.cfg.Chunker.Overlap,
		RetrievalK:     a.cfg.Retrieval.K,
		Strategy:       a.cfg.Retrieval.Strategy,
		TotalEntries:   total,
		Sources:        sources,
		ApproxTokens:   ApproxTokens(chars),
		MemoryWindow:   a.cfg.Memory.Window,
	}
	if a.memory != nil {
		stats.MemoryTurns = a.memory.Len()
	}
	return stats, nil
}

// Sources lists indexed sources.
func (a *AdminService) Sources(ctx context.Context) ([]domain.SourceStat, error) {
	return a.index.Sources(ctx)
}

// DeleteSource removes every entry of one source.
func (a *AdminService) DeleteSource(ctx context.Context, sourceID string) error {
	if sourceID == "" {
		return fmt.Errorf("%w: source is empty", domain.ErrInvalidInput)
	}
	if err := a.index.DeleteSource(ctx, sourceID); err != nil {
		return err
	}
	logger.Info("Deleted source %s", sourceID)
	return a.index.Save(ctx)
}

// Reset removes every entry from the vector and lexical indexes.
func (a *AdminService) Reset(ctx context.Context) error {
	if err := a.index.Reset(ctx); err != nil {
		return err
	}
	logger.Info("Index reset")
	return a.index.Save(ctx)
}

// Backup copies the persist directory to dir/backup_<timestamp> and
// returns that path.
func (a *AdminService) Backup(ctx context.Context, dir string) (string, error) {
	src := a.cfg.VectorStore.PersistDirectory
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: persist directory %s", domain.ErrNotFound, src)
	}
	if err := a.index.Save(ctx); err != nil {
		return "", err
	}

	dst := filepath.Join(dir, "backup_"+a.now().Format("20060102_150405"))
	if err := copyTree(ctx, src, dst); err != nil {
		return "", fmt.Errorf("backup %s: %w", src, err)
	}
	logger.Info("Backed up %s to %s", src, dst)
	return dst, nil
}

// ApproxTokens estimates the token count of chars characters.
func ApproxTokens(chars int) int {
	return chars / 4
}

func copyTree(ctx context.Context, src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0700)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
