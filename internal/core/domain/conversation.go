package domain

import (
	"fmt"
	"time"
)

// Citation identifies a retrieved passage used to ground an answer.
type Citation struct {
	// Source is the file path of the passage.
	Source string

	// Page is the 1-based page number, or 0 when not paged.
	Page int

	// Ordinal is the chunk position within the source.
	Ordinal int

	// Score is the retrieval score of the passage.
	Score float64

	// Preview is the beginning of the passage text.
	Preview string
}

// Label returns the source with its page number when the passage is paged.
func (c Citation) Label() string {
	if c.Page > 0 {
		return fmt.Sprintf("%s (page %d)", c.Source, c.Page)
	}
	return c.Source
}

// ConversationTurn is one question/answer exchange.
type ConversationTurn struct {
	// Question is what the user asked.
	Question string

	// Answer is the model's reply.
	Answer string

	// Sources are the citations returned with the answer.
	Sources []Citation

	// At is when the turn completed.
	At time.Time
}

// Answer is the result of the answering pipeline.
type Answer struct {
	// Question is the question that was answered.
	Question string

	// Text is the model's answer.
	Text string

	// Sources are the cited passages, one per source and page.
	Sources []Citation

	// Retrieval is the result the prompt was grounded on.
	Retrieval *RetrievalResult
}

// Stats summarises the assistant's current state.
type Stats struct {
	// VectorStore is the active backend name.
	VectorStore string

	// ChatModel is the completion model identifier.
	ChatModel string

	// EmbeddingModel is the embedding model identifier.
	EmbeddingModel string

	// ChunkSize is the configured maximum chunk length.
	ChunkSize int

	// ChunkOverlap is the configured overlap length.
	ChunkOverlap int

	// RetrievalK is the default number of passages retrieved.
	RetrievalK int

	// Strategy is the default retrieval strategy.
	Strategy Strategy

	// TotalEntries is the number of index entries.
	TotalEntries int

	// Sources lists per-source entry counts.
	Sources []SourceStat

	// ApproxTokens estimates the token count of the indexed text.
	ApproxTokens int

	// MemoryTurns is the number of turns currently remembered.
	MemoryTurns int

	// MemoryWindow is the memory capacity.
	MemoryWindow int
}
