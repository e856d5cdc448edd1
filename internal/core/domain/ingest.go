package domain

import "time"

// FileFailure records a file that was skipped during ingestion.
type FileFailure struct {
	// Path is the skipped file.
	Path string

	// Err is an *UnsupportedFormatError or a *ParseError.
	Err error
}

// IngestReport summarises one ingestion run.
type IngestReport struct {
	// Root is the directory that was walked.
	Root string

	// Files is the number of files parsed successfully.
	Files int

	// Documents is the number of documents produced.
	Documents int

	// Chunks is the number of chunks written to the index.
	Chunks int

	// Failures lists files that were skipped.
	Failures []FileFailure

	// StartedAt is when the run began.
	StartedAt time.Time

	// Duration is how long the run took.
	Duration time.Duration
}

// HasFailures returns true if any file was skipped.
func (r *IngestReport) HasFailures() bool {
	return r != nil && len(r.Failures) > 0
}

// FileInfo describes a supported file found by a directory scan.
type FileInfo struct {
	// Path is the file path.
	Path string

	// Format is the detected format.
	Format Format

	// Size is the file size in bytes.
	Size int64
}
