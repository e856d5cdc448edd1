package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider or backend type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrIngestInProgress indicates another ingestion run holds the index.
	ErrIngestInProgress = errors.New("ingestion in progress")

	// Ingestion and model errors. The typed errors below unwrap to these.

	// ErrUnsupportedFormat indicates a file extension no normaliser handles.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrParse indicates a file could not be parsed.
	ErrParse = errors.New("parse error")

	// ErrEmbeddingService indicates the embedding model call failed.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrLLMService indicates the completion model call failed.
	ErrLLMService = errors.New("LLM service error")
)

// UnsupportedFormatError reports a file whose extension is not supported.
// It is per-file and does not stop an ingestion run.
type UnsupportedFormatError struct {
	Path      string
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format %q: %s", e.Extension, e.Path)
}

// Unwrap lets errors.Is match ErrUnsupportedFormat.
func (e *UnsupportedFormatError) Unwrap() error {
	return ErrUnsupportedFormat
}

// ParseError reports a file that could not be parsed.
// It is per-file and does not stop an ingestion run.
type ParseError struct {
	Path   string
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s file %s: %v", e.Format, e.Path, e.Err)
}

// Unwrap returns both the sentinel and the underlying cause.
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// EmbeddingServiceError reports a failed or timed out embedding call.
// It fails the operation that triggered it.
type EmbeddingServiceError struct {
	Model string
	Err   error
}

func (e *EmbeddingServiceError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("embedding service: %v", e.Err)
	}
	return fmt.Sprintf("embedding service (%s): %v", e.Model, e.Err)
}

// Unwrap returns both the sentinel and the underlying cause.
func (e *EmbeddingServiceError) Unwrap() []error {
	return []error{ErrEmbeddingService, e.Err}
}

// LLMServiceError reports a failed or timed out completion call.
// It fails the operation that triggered it and is never retried here.
type LLMServiceError struct {
	Model string
	Err   error
}

func (e *LLMServiceError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("LLM service: %v", e.Err)
	}
	return fmt.Sprintf("LLM service (%s): %v", e.Model, e.Err)
}

// Unwrap returns both the sentinel and the underlying cause.
func (e *LLMServiceError) Unwrap() []error {
	return []error{ErrLLMService, e.Err}
}

// NewEmbeddingServiceError wraps err unless it already is an EmbeddingServiceError.
func NewEmbeddingServiceError(model string, err error) error {
	if err == nil {
		return nil
	}
	var existing *EmbeddingServiceError
	if errors.As(err, &existing) {
		return err
	}
	return &EmbeddingServiceError{Model: model, Err: err}
}

// NewLLMServiceError wraps err unless it already is an LLMServiceError.
func NewLLMServiceError(model string, err error) error {
	if err == nil {
		return nil
	}
	var existing *LLMServiceError
	if errors.As(err, &existing) {
		return err
	}
	return &LLMServiceError{Model: model, Err: err}
}
