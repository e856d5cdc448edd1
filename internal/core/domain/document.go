package domain

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Format identifies the file format a document was read from.
type Format string

// Supported document formats.
const (
	FormatPDF  Format = "pdf"
	FormatTXT  Format = "txt"
	FormatJSON Format = "json"
	FormatDOCX Format = "docx"
	FormatCSV  Format = "csv"
)

// IsValid returns true if the format is one of the supported formats.
func (f Format) IsValid() bool {
	switch f {
	case FormatPDF, FormatTXT, FormatJSON, FormatDOCX, FormatCSV:
		return true
	default:
		return false
	}
}

// MIMEType returns the canonical MIME type for the format.
func (f Format) MIMEType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatTXT:
		return "text/plain"
	case FormatJSON:
		return "application/json"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatCSV:
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}

// String returns the string representation.
func (f Format) String() string {
	return string(f)
}

// AllFormats returns every supported format.
func AllFormats() []Format {
	return []Format{FormatPDF, FormatTXT, FormatJSON, FormatDOCX, FormatCSV}
}

// FormatFromPath maps a file extension to a Format.
// The second return value is false for unsupported extensions.
func FormatFromPath(path string) (Format, bool) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	f := Format(ext)
	return f, f.IsValid()
}

// Document represents a block of text read from a source file.
// PDFs produce one document per page and CSVs one per row; the other
// formats produce one document per file.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// SourceID is the file path the document was read from.
	SourceID string

	// URI is the original location of the file.
	URI string

	// Title is the human-readable title.
	Title string

	// Format is the file format the document was parsed from.
	Format Format

	// Content is the full text content after normalisation.
	// This is the complete document text before chunking.
	Content string

	// Metadata contains arbitrary key-value pairs (page, row, header).
	Metadata map[string]any

	// CreatedAt is when the document was ingested.
	CreatedAt time.Time
}

// Chunk represents a contiguous passage of a document's text.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	// Derived from the source and ordinal so re-ingestion reuses it.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// SourceID is the file path of the parent document.
	SourceID string

	// Ordinal is the position of the chunk within its source.
	// Ordinals run continuously across all documents of one source.
	Ordinal int

	// Content is the text content of this chunk.
	Content string

	// Embedding is the vector representation for semantic search.
	Embedding []float32

	// Metadata contains key-value pairs inherited from the document.
	Metadata map[string]any
}

// Key returns the source+ordinal key that identifies the chunk in an index.
func (c Chunk) Key() string {
	return ChunkKey(c.SourceID, c.Ordinal)
}

// ChunkKey builds the index key for a source and ordinal.
func ChunkKey(sourceID string, ordinal int) string {
	return fmt.Sprintf("%s#%d", sourceID, ordinal)
}

// ParseChunkKey splits a key built by ChunkKey.
func ParseChunkKey(key string) (sourceID string, ordinal int, ok bool) {
	i := strings.LastIndexByte(key, '#')
	if i < 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(key[i+1:])
	if err != nil || n < 0 {
		return "", 0, false
	}
	return key[:i], n, true
}

// IndexEntry is a chunk with its embedding as persisted in a vector index.
type IndexEntry struct {
	// Chunk carries the text, key and metadata.
	Chunk Chunk

	// Embedding is the vector for Chunk.Content.
	Embedding []float32
}

// Page returns the page number recorded in metadata, or 0 when absent.
func Page(metadata map[string]any) int {
	if metadata == nil {
		return 0
	}
	switch v := metadata["page"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
