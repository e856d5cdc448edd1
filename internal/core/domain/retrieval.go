package domain

import (
	"fmt"
	"reflect"
	"strings"
)

// Strategy selects how the retriever finds passages for a query.
type Strategy string

// Available retrieval strategies.
const (
	// StrategySimilarity queries the vector index directly.
	StrategySimilarity Strategy = "similarity"

	// StrategyCompression over-fetches candidates and keeps only the
	// sentences the LLM judges relevant to the query.
	StrategyCompression Strategy = "compression"

	// StrategyHybrid combines vector similarity with lexical matching.
	StrategyHybrid Strategy = "hybrid"
)

// IsValid returns true if the strategy is recognised.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategySimilarity, StrategyCompression, StrategyHybrid:
		return true
	default:
		return false
	}
}

// RequiresLLM returns true if the strategy makes completion calls.
func (s Strategy) RequiresLLM() bool {
	return s == StrategyCompression
}

// String returns the string representation.
func (s Strategy) String() string {
	return string(s)
}

// Description returns a human-readable description of the strategy.
func (s Strategy) Description() string {
	switch s {
	case StrategySimilarity:
		return "Similarity (vector nearest neighbours)"
	case StrategyCompression:
		return "Compression (LLM extracts relevant sentences)"
	case StrategyHybrid:
		return "Hybrid (vector + lexical)"
	default:
		return "Unknown"
	}
}

// ParseStrategy converts user input into a Strategy.
// An empty string selects StrategySimilarity.
func ParseStrategy(s string) (Strategy, error) {
	if s == "" {
		return StrategySimilarity, nil
	}
	st := Strategy(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: retrieval strategy %q", ErrInvalidInput, s)
	}
	return st, nil
}

// AllStrategies returns every retrieval strategy.
func AllStrategies() []Strategy {
	return []Strategy{StrategySimilarity, StrategyCompression, StrategyHybrid}
}

// ScoredChunk is a chunk with its relevance to a query.
type ScoredChunk struct {
	// Chunk is the matched passage.
	Chunk Chunk

	// Score is the final relevance score used for ordering.
	Score float64

	// VectorScore is the cosine similarity component, if any.
	VectorScore float64

	// LexicalScore is the normalised lexical component, if any.
	LexicalScore float64
}

// RetrievalResult is the ordered set of passages judged relevant to a query.
// It is built per query and never persisted.
type RetrievalResult struct {
	// Query is the text that was searched for.
	Query string

	// Strategy is the strategy that produced the result.
	Strategy Strategy

	// Passages are ordered by Score, highest first.
	Passages []ScoredChunk
}

// Len returns the number of passages.
func (r *RetrievalResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Passages)
}

// IsEmpty returns true if no passage was retrieved.
func (r *RetrievalResult) IsEmpty() bool {
	return r.Len() == 0
}

// MetadataFilter restricts a query to entries whose metadata matches
// every key/value pair. Only scalar values (strings, numbers, booleans)
// can match; they are compared by their string form. List and object
// values never match.
type MetadataFilter map[string]string

// Matches returns true if metadata satisfies the filter.
func (f MetadataFilter) Matches(metadata map[string]any) bool {
	for k, want := range f {
		got, ok := scalarString(metadata[k])
		if !ok || got != want {
			return false
		}
	}
	return true
}

func scalarString(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprint(v), true
	default:
		return "", false
	}
}

// SourceStat summarises the entries of one source in the index.
type SourceStat struct {
	// SourceID is the file path.
	SourceID string

	// Format is the file format recorded at ingestion.
	Format Format

	// Chunks is the number of index entries for the source.
	Chunks int

	// Characters is the total length of the source's chunk text.
	Characters int
}

// PreviewLength is the number of characters shown for a passage preview.
const PreviewLength = 200

// Preview returns the first PreviewLength characters of text on one line.
func Preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= PreviewLength {
		return text
	}
	return string(runes[:PreviewLength]) + "..."
}
