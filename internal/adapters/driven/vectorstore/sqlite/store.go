package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore/sqlite/migrations"
	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore/vecmath"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// DBFile is the database file name inside the persist directory.
const DBFile = "index.db"

// Ensure Store implements the interface.
var _ driven.VectorIndex = (*Store)(nil)

// Store is a SQLite-backed vector index.
type Store struct {
	db   *sql.DB
	path string
}

// New opens or creates the index in dir.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: persist directory is required", domain.ErrInvalidInput)
	}

	// Ensure directory exists
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating persist directory: %w", err)
	}

	dbPath := filepath.Join(dir, DBFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_entries.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// Upsert writes entries in one transaction, replacing rows with the same
// source and ordinal.
func (s *Store) Upsert(ctx context.Context, entries []domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (source_id, ordinal, id, document_id, content, metadata, embedding, dimensions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, ordinal) DO UPDATE SET
			id = excluded.id,
			document_id = excluded.document_id,
			content = excluded.content,
			metadata = excluded.metadata,
			embedding = excluded.embedding,
			dimensions = excluded.dimensions,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if len(e.Embedding) == 0 {
			return fmt.Errorf("%w: entry %s has no embedding", domain.ErrInvalidInput, e.Chunk.Key())
		}
		metadataJSON, err := marshalMetadata(e.Chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata for %s: %w", e.Chunk.Key(), err)
		}
		if _, err := stmt.ExecContext(ctx,
			e.Chunk.SourceID, e.Chunk.Ordinal, e.Chunk.ID, e.Chunk.DocumentID, e.Chunk.Content,
			metadataJSON, float32SliceToBytes(e.Embedding), len(e.Embedding),
		); err != nil {
			return fmt.Errorf("saving entry %s: %w", e.Chunk.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Query scans the rows matching filter and returns the k most similar.
func (s *Store) Query(
	ctx context.Context,
	vector []float32,
	k int,
	filter domain.MetadataFilter,
) ([]domain.ScoredChunk, error) {
	if k <= 0 || len(vector) == 0 {
		return nil, nil
	}

	where, args := filterClause(filter)
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, ordinal, id, document_id, content, metadata, embedding, dimensions
		FROM entries`+where, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	top := vecmath.NewTopK(k)
	for rows.Next() {
		chunk, embedding, dims, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		if dims != len(vector) {
			return nil, fmt.Errorf("%w: query has %d dimensions, index has %d; reset the index after changing the embedding model",
				domain.ErrInvalidInput, len(vector), dims)
		}
		score := vecmath.Cosine(vector, embedding)
		top.Push(domain.ScoredChunk{Chunk: chunk, Score: score, VectorScore: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}

	return top.Results(), nil
}

// filterClause renders a metadata filter as a WHERE clause. Booleans are
// compared by their JSON spelling so "true" matches like it does in Go.
func filterClause(filter domain.MetadataFilter) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)*4)
	for _, k := range keys {
		path := `$."` + strings.ReplaceAll(k, `"`, ``) + `"`
		conds = append(conds, `(CASE json_type(metadata, ?)
			WHEN 'true' THEN 'true'
			WHEN 'false' THEN 'false'
			WHEN 'array' THEN NULL
			WHEN 'object' THEN NULL
			ELSE CAST(json_extract(metadata, ?) AS TEXT) END) = ?`)
		args = append(args, path, path, filter[k])
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Get returns the chunks stored under the given keys, in key order.
func (s *Store) Get(ctx context.Context, keys []string) ([]domain.Chunk, error) {
	chunks := make([]domain.Chunk, 0, len(keys))
	for _, key := range keys {
		source, ordinal, ok := domain.ParseChunkKey(key)
		if !ok {
			continue
		}
		rows, err := s.db.QueryContext(ctx, `
			SELECT source_id, ordinal, id, document_id, content, metadata, embedding, dimensions
			FROM entries WHERE source_id = ? AND ordinal = ?`, source, ordinal)
		if err != nil {
			return nil, fmt.Errorf("getting entry %s: %w", key, err)
		}
		for rows.Next() {
			chunk, embedding, _, err := scanEntry(rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			chunk.Embedding = embedding
			chunks = append(chunks, chunk)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("getting entry %s: %w", key, err)
		}
	}
	return chunks, nil
}

// Count returns the number of entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return n, nil
}

// Sources summarises entries per source, ordered by source.
func (s *Store) Sources(ctx context.Context) ([]domain.SourceStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id,
		       COALESCE(MAX(json_extract(metadata, '$.format')), ''),
		       COUNT(*),
		       COALESCE(SUM(LENGTH(content)), 0)
		FROM entries
		GROUP BY source_id
		ORDER BY source_id`)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	defer rows.Close()

	var stats []domain.SourceStat
	for rows.Next() {
		var st domain.SourceStat
		var format string
		if err := rows.Scan(&st.SourceID, &format, &st.Chunks, &st.Characters); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		st.Format = domain.Format(format)
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// DeleteSource removes every entry of a source.
func (s *Store) DeleteSource(ctx context.Context, sourceID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE source_id = ?", sourceID); err != nil {
		return fmt.Errorf("deleting source %s: %w", sourceID, err)
	}
	return nil
}

// Prune removes entries of a source whose ordinal is >= keep.
func (s *Store) Prune(ctx context.Context, sourceID string, keep int) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM entries WHERE source_id = ? AND ordinal >= ?", sourceID, keep); err != nil {
		return fmt.Errorf("pruning source %s: %w", sourceID, err)
	}
	return nil
}

// Reset removes every entry.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM entries"); err != nil {
		return fmt.Errorf("resetting index: %w", err)
	}
	return nil
}

func scanEntry(rows *sql.Rows) (domain.Chunk, []float32, int, error) {
	var (
		c            domain.Chunk
		metadataJSON string
		blob         []byte
		dims         int
	)
	if err := rows.Scan(&c.SourceID, &c.Ordinal, &c.ID, &c.DocumentID, &c.Content,
		&metadataJSON, &blob, &dims); err != nil {
		return domain.Chunk{}, nil, 0, fmt.Errorf("scanning entry: %w", err)
	}
	if err := json.Unmarshal([]byte(metadataJSON), &c.Metadata); err != nil {
		return domain.Chunk{}, nil, 0, fmt.Errorf("decoding metadata for %s: %w", c.Key(), err)
	}
	return c, bytesToFloat32Slice(blob), dims, nil
}

func marshalMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
