// Package postprocessors turns normalised documents into indexable chunks.
//
// A Pipeline is an ordered list of stages. The first stage (the chunker)
// creates chunks from the document text; later stages rewrite them.
package postprocessors

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Pipeline implements the interface.
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline runs its stages over one document at a time.
type Pipeline struct {
	stages []driven.PostProcessor
}

// NewPipeline creates a pipeline running stages in the given order.
func NewPipeline(stages ...driven.PostProcessor) *Pipeline {
	return &Pipeline{stages: stages}
}

// Process chunks doc. A document without visible text yields no chunks.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(doc.Content) == "" {
		return nil, nil
	}

	var chunks []domain.Chunk
	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		chunks, err = stage.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("%s stage on %s: %w", stage.Name(), doc.SourceID, err)
		}
	}
	return chunks, nil
}

// Add appends a stage.
func (p *Pipeline) Add(stage driven.PostProcessor) {
	p.stages = append(p.stages, stage)
}

// Stages returns the stage names in run order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}
