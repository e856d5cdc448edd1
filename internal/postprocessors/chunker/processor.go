// Package chunker provides an overlapping text chunking processor.
package chunker

import (
	"context"
	"unicode"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 100

// Processor splits document content into overlapping chunks.
// Lengths are counted in characters (runes), not bytes.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the effective maximum chunk length.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the effective overlap length.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
//
// Each chunk after the first starts exactly overlap characters before the end
// of the previous one, so dropping the first overlap characters of every chunk
// but the first and concatenating reproduces the content.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if doc == nil || doc.Content == "" {
		// Empty content produces no chunks
		return nil, nil
	}

	spans := p.Split(doc.Content)
	runes := []rune(doc.Content)
	chunks := make([]domain.Chunk, 0, len(spans))

	for i, s := range spans {
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			SourceID:   doc.SourceID,
			Ordinal:    i,
			Content:    string(runes[s.Start:s.End]),
			Metadata:   make(map[string]any),
		})
	}

	return chunks, nil
}

// Span is a half-open rune range [Start, End) of the input text.
type Span struct {
	Start int
	End   int
}

// Split returns the chunk spans for text.
func (p *Processor) Split(text string) []Span {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	spans := make([]Span, 0, n/(p.chunkSize-p.overlap)+1)
	start := 0
	for {
		end := start + p.chunkSize
		if end >= n {
			spans = append(spans, Span{Start: start, End: n})
			break
		}

		end = p.boundary(runes, start, end)
		spans = append(spans, Span{Start: start, End: end})
		start = end - p.overlap
	}

	return spans
}

// boundary picks the cut point for the window [start, limit).
// Candidates must leave the next chunk starting after start and must
// lie in the back half of the window; otherwise limit is a hard cut.
func (p *Processor) boundary(runes []rune, start, limit int) int {
	lowest := start + p.chunkSize/2
	if floor := start + p.overlap + 1; floor > lowest {
		lowest = floor
	}
	if lowest > limit {
		return limit
	}

	for _, match := range []func(runes []rune, i int) bool{
		isParagraphBreak,
		isLineBreak,
		isSentenceEnd,
		isSpace,
	} {
		for end := limit; end >= lowest; end-- {
			if match(runes, end) {
				return end
			}
		}
	}

	return limit
}

// Each matcher reports whether a cut before index i ends on that boundary.

func isParagraphBreak(runes []rune, i int) bool {
	return i >= 2 && runes[i-1] == '\n' && runes[i-2] == '\n'
}

func isLineBreak(runes []rune, i int) bool {
	return i >= 1 && runes[i-1] == '\n'
}

func isSentenceEnd(runes []rune, i int) bool {
	if i < 2 || !unicode.IsSpace(runes[i-1]) {
		return false
	}
	switch runes[i-2] {
	case '.', '!', '?':
		return true
	}
	return false
}

func isSpace(runes []rune, i int) bool {
	return i >= 1 && unicode.IsSpace(runes[i-1])
}
