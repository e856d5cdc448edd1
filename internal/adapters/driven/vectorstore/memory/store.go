// Package memory provides the in-memory vector index backend.
//
// Entries live in a map and queries are a flat cosine scan. Nothing is
// written until Save is called; Save and Load use a gob snapshot in the
// persist directory.
package memory

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore/vecmath"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// SnapshotFile is the snapshot name inside the persist directory.
const SnapshotFile = "index.gob"

// Ensure Store implements the interfaces.
var (
	_ driven.VectorIndex = (*Store)(nil)
	_ driven.Persister   = (*Store)(nil)
)

// Store is an in-memory vector index.
type Store struct {
	mu      sync.RWMutex
	dir     string
	entries map[string]domain.IndexEntry
}

// New creates an empty index that persists into dir.
// An empty dir gives an index that cannot be saved.
func New(dir string) *Store {
	return &Store{
		dir:     dir,
		entries: make(map[string]domain.IndexEntry),
	}
}

// Path returns the snapshot path, or "" when the index is not persisted.
func (s *Store) Path() string {
	if s.dir == "" {
		return ""
	}
	return filepath.Join(s.dir, SnapshotFile)
}

// Upsert stores entries, replacing any entry with the same key.
func (s *Store) Upsert(_ context.Context, entries []domain.IndexEntry) error {
	for _, e := range entries {
		if len(e.Embedding) == 0 {
			return fmt.Errorf("%w: entry %s has no embedding", domain.ErrInvalidInput, e.Chunk.Key())
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		e.Chunk.Embedding = nil
		e.Chunk.Metadata = copyMetadata(e.Chunk.Metadata)
		s.entries[e.Chunk.Key()] = e
	}
	return nil
}

// Query scans every entry and returns the k most similar that pass filter.
func (s *Store) Query(
	_ context.Context,
	vector []float32,
	k int,
	filter domain.MetadataFilter,
) ([]domain.ScoredChunk, error) {
	if k <= 0 || len(vector) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	top := vecmath.NewTopK(k)
	for _, e := range s.entries {
		if len(e.Embedding) != len(vector) {
			return nil, fmt.Errorf("%w: query has %d dimensions, index has %d; reset the index after changing the embedding model",
				domain.ErrInvalidInput, len(vector), len(e.Embedding))
		}
		if len(filter) > 0 && !filter.Matches(e.Chunk.Metadata) {
			continue
		}
		score := vecmath.Cosine(vector, e.Embedding)
		chunk := e.Chunk
		chunk.Metadata = copyMetadata(e.Chunk.Metadata)
		top.Push(domain.ScoredChunk{Chunk: chunk, Score: score, VectorScore: score})
	}
	return top.Results(), nil
}

// Get returns the stored chunks for keys, in key order.
func (s *Store) Get(_ context.Context, keys []string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks := make([]domain.Chunk, 0, len(keys))
	for _, key := range keys {
		e, ok := s.entries[key]
		if !ok {
			continue
		}
		chunk := e.Chunk
		chunk.Metadata = copyMetadata(e.Chunk.Metadata)
		chunk.Embedding = append([]float32(nil), e.Embedding...)
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// Count returns the number of entries.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// Sources summarises entries per source, ordered by source.
func (s *Store) Sources(_ context.Context) ([]domain.SourceStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bySource := make(map[string]*domain.SourceStat)
	for _, e := range s.entries {
		st, ok := bySource[e.Chunk.SourceID]
		if !ok {
			st = &domain.SourceStat{SourceID: e.Chunk.SourceID}
			bySource[e.Chunk.SourceID] = st
		}
		if f, ok := e.Chunk.Metadata["format"].(string); ok && st.Format == "" {
			st.Format = domain.Format(f)
		}
		st.Chunks++
		st.Characters += len([]rune(e.Chunk.Content))
	}

	stats := make([]domain.SourceStat, 0, len(bySource))
	for _, st := range bySource {
		stats = append(stats, *st)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].SourceID < stats[j].SourceID })
	return stats, nil
}

// DeleteSource removes every entry of a source.
func (s *Store) DeleteSource(_ context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.entries {
		if e.Chunk.SourceID == sourceID {
			delete(s.entries, key)
		}
	}
	return nil
}

// Prune removes entries of a source whose ordinal is >= keep.
func (s *Store) Prune(_ context.Context, sourceID string, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.entries {
		if e.Chunk.SourceID == sourceID && e.Chunk.Ordinal >= keep {
			delete(s.entries, key)
		}
	}
	return nil
}

// Reset removes every entry. The snapshot on disk is left until the next Save.
func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]domain.IndexEntry)
	return nil
}

// Close releases resources. Unsaved entries are discarded.
func (s *Store) Close() error {
	return nil
}

// snapshot is the on-disk form of the index.
type snapshot struct {
	Entries []domain.IndexEntry
}

// Save writes the index to the persist directory, replacing any snapshot.
func (s *Store) Save(_ context.Context) error {
	if s.dir == "" {
		return fmt.Errorf("%w: index has no persist directory", domain.ErrInvalidInput)
	}

	s.mu.RLock()
	snap := snapshot{Entries: make([]domain.IndexEntry, 0, len(s.entries))}
	for _, e := range s.entries {
		e.Chunk.Metadata = gobSafe(e.Chunk.Metadata)
		snap.Entries = append(snap.Entries, e)
	}
	s.mu.RUnlock()

	sort.Slice(snap.Entries, func(i, j int) bool {
		a, b := snap.Entries[i].Chunk, snap.Entries[j].Chunk
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		return a.Ordinal < b.Ordinal
	})

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("creating persist directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, SnapshotFile+".*")
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := gob.NewEncoder(tmp).Encode(&snap); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.Path()); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// Load replaces the entries with the saved snapshot.
// A missing snapshot leaves the index empty.
func (s *Store) Load(_ context.Context) error {
	if s.dir == "" {
		return nil
	}

	f, err := os.Open(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return fmt.Errorf("decoding snapshot %s: %w", s.Path(), err)
	}

	entries := make(map[string]domain.IndexEntry, len(snap.Entries))
	for _, e := range snap.Entries {
		entries[e.Chunk.Key()] = e
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	return nil
}

func copyMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// gobSafe keeps the metadata values gob can encode without registration
// and renders anything else as a string.
func gobSafe(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch v.(type) {
		case string, bool, int, int64, float64, []string:
			out[k] = v
		case nil:
		default:
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}
