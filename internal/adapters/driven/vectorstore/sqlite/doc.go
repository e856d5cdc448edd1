// Package sqlite provides the persistent vector index backend.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Every entry is one row keyed by
// (source_id, ordinal); writes go straight to disk.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Search
//
// Metadata is stored as JSON and filtered in SQL with json_extract. Embeddings
// are little-endian float32 blobs; cosine similarity is computed in Go over the
// filtered rows, which is a flat scan.
//
// # Data Location
//
// The database is stored at <persist_directory>/index.db.
package sqlite
