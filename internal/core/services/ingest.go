package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService loads files from a directory tree, normalises them into
// documents, chunks them and writes the chunks to the index.
// The tree is only read.
type IngestService struct {
	registry driven.NormaliserRegistry
	pipeline driven.PostProcessorPipeline
	index    *IndexService
	include  []string
	exclude  []string

	running sync.Mutex
}

// NewIngestService creates an ingest service.
// The index is optional (can be nil) for callers that only Load or Scan.
func NewIngestService(
	registry driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	index *IndexService,
	settings domain.IngestSettings,
) *IngestService {
	return &IngestService{
		registry: registry,
		pipeline: pipeline,
		index:    index,
		include:  settings.Include,
		exclude:  settings.Exclude,
	}
}

// candidate is a file selected by the walk.
type candidate struct {
	path   string
	format domain.Format
	size   int64
}

// Ingest walks root and indexes every supported file. Per-file failures are
// recorded in the report; an index or embedding failure aborts the run and
// is returned together with the partial report.
func (s *IngestService) Ingest(
	ctx context.Context,
	root string,
	progress driving.IngestProgress,
) (*domain.IngestReport, error) {
	if s.index == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	if !s.running.TryLock() {
		return nil, domain.ErrIngestInProgress
	}
	defer s.running.Unlock()

	logger.Section("Ingestion")
	report := &domain.IngestReport{Root: root, StartedAt: time.Now()}
	defer func() { report.Duration = time.Since(report.StartedAt) }()

	files, failures, err := s.walk(ctx, root)
	if err != nil {
		return nil, err
	}
	report.Failures = failures

	if progress != nil {
		progress.Start(len(files))
		defer progress.Finish()
	}
	logger.Info("Ingesting %d files from %s", len(files), root)

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		docs, err := s.parse(ctx, f)
		if err == nil {
			var n int
			n, err = s.indexFile(ctx, f, docs)
			if err != nil && !isFileError(err) {
				if progress != nil {
					progress.FileDone(f.path, err)
				}
				return report, fmt.Errorf("index %s: %w", f.path, err)
			}
			report.Chunks += n
		}
		if err != nil {
			logger.Warn("Skipping %s: %v", f.path, err)
			report.Failures = append(report.Failures, domain.FileFailure{Path: f.path, Err: err})
		} else {
			report.Files++
			report.Documents += len(docs)
		}
		if progress != nil {
			progress.FileDone(f.path, err)
		}
	}

	logger.Info("Ingested %d files, %d documents, %d chunks, %d failures",
		report.Files, report.Documents, report.Chunks, len(report.Failures))
	return report, nil
}

// Load parses every supported file under root and calls fn for each
// document as it is produced. Returning an error from fn stops the walk.
func (s *IngestService) Load(
	ctx context.Context,
	root string,
	fn func(domain.Document) error,
) ([]domain.FileFailure, error) {
	files, failures, err := s.walk(ctx, root)
	if err != nil {
		return nil, err
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return failures, err
		}
		docs, err := s.parse(ctx, f)
		if err != nil {
			failures = append(failures, domain.FileFailure{Path: f.path, Err: err})
			continue
		}
		for _, doc := range docs {
			if err := fn(doc); err != nil {
				return failures, err
			}
		}
	}
	return failures, nil
}

// Scan lists the supported files under root without reading them.
func (s *IngestService) Scan(ctx context.Context, root string) ([]domain.FileInfo, error) {
	files, _, err := s.walk(ctx, root)
	if err != nil {
		return nil, err
	}
	infos := make([]domain.FileInfo, len(files))
	for i, f := range files {
		infos[i] = domain.FileInfo{Path: f.path, Format: f.format, Size: f.size}
	}
	return infos, nil
}

// walk collects the files under root that pass the include and exclude
// filters. Hidden files and directories are skipped. Files with an
// unsupported extension are returned as failures. Paths are absolute, so
// a file keeps one source ID however root was spelled.
func (s *IngestService) walk(ctx context.Context, root string) ([]candidate, []domain.FileFailure, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving %s: %w", root, err)
	}
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: directory %s", domain.ErrNotFound, root)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("stat %s: %w", root, err)
	}

	var (
		files    []candidate
		failures []domain.FileFailure
	)
	visit := func(path string, size int64) {
		format, ok := domain.FormatFromPath(path)
		if !ok {
			logger.Debug("Unsupported file: %s", path)
			failures = append(failures, domain.FileFailure{
				Path: path,
				Err:  &domain.UnsupportedFormatError{Path: path, Extension: filepath.Ext(path)},
			})
			return
		}
		files = append(files, candidate{path: path, format: format, size: size})
	}

	if !info.IsDir() {
		visit(root, info.Size())
		return files, failures, nil
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		if !s.selected(filepath.ToSlash(rel)) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		visit(path, fi.Size())
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, failures, nil
}

// selected applies the include and exclude globs to a slash separated path
// relative to the root. Patterns also match against the base name.
func (s *IngestService) selected(rel string) bool {
	matches := func(patterns []string) bool {
		base := filepath.Base(rel)
		for _, p := range patterns {
			if ok, _ := doublestar.Match(p, rel); ok {
				return true
			}
			if ok, _ := doublestar.Match(p, base); ok {
				return true
			}
		}
		return false
	}
	if len(s.include) > 0 && !matches(s.include) {
		return false
	}
	return !matches(s.exclude)
}

// parse reads and normalises one file. Failures are *domain.ParseError.
func (s *IngestService) parse(ctx context.Context, f candidate) ([]domain.Document, error) {
	content, err := os.ReadFile(f.path)
	if err != nil {
		return nil, &domain.ParseError{Path: f.path, Format: f.format, Err: err}
	}

	raw := &domain.RawDocument{
		SourceID: f.path,
		URI:      f.path,
		MIMEType: f.format.MIMEType(),
		Format:   f.format,
		Content:  content,
		Metadata: map[string]any{"filename": filepath.Base(f.path)},
	}
	result, err := s.registry.Normalise(ctx, raw)
	if err != nil {
		return nil, &domain.ParseError{Path: f.path, Format: f.format, Err: err}
	}

	docs := result.Documents
	for i := range docs {
		docs[i].ID = documentID(f.path, i)
		docs[i].SourceID = f.path
		if docs[i].Format == "" {
			docs[i].Format = f.format
		}
	}
	logger.Debug("Parsed %s: %d documents", f.path, len(docs))
	return docs, nil
}

// indexFile chunks the documents of one file, numbers the chunks
// continuously across documents and replaces the file's index entries.
func (s *IngestService) indexFile(ctx context.Context, f candidate, docs []domain.Document) (int, error) {
	var all []domain.Chunk
	for i := range docs {
		chunks, err := s.pipeline.Process(ctx, &docs[i])
		if err != nil {
			return 0, &domain.ParseError{Path: f.path, Format: f.format, Err: err}
		}
		all = append(all, chunks...)
	}

	for i := range all {
		all[i].Ordinal = i
		all[i].SourceID = f.path
		all[i].ID = ChunkID(f.path, i)
	}

	return s.index.ReplaceSource(ctx, f.path, all)
}

// isFileError reports whether err only concerns the file being ingested.
func isFileError(err error) bool {
	return errors.Is(err, domain.ErrParse) || errors.Is(err, domain.ErrUnsupportedFormat)
}

// ChunkID returns the deterministic chunk ID for a source and ordinal.
func ChunkID(sourceID string, ordinal int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(domain.ChunkKey(sourceID, ordinal))).String()
}

func documentID(sourceID string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s@%d", sourceID, index))).String()
}
