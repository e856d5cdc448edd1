package domain

// RawDocument represents the bytes of one file before normalisation.
type RawDocument struct {
	// SourceID is the file path the bytes were read from.
	SourceID string

	// URI is the original location (file path).
	URI string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// Format is the detected file format.
	Format Format

	// Content is the raw bytes.
	Content []byte

	// Metadata contains loader-specific key-value pairs.
	Metadata map[string]any
}
