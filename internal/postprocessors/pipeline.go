// Package postprocessors turns extracted book text into chunks through a
// configurable chain of processors.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/librarian/internal/core/domain"
	"github.com/custodia-labs/librarian/internal/core/ports/driven"
)

var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline runs its processors in order, each one receiving the chunks
// produced so far. Text-cleaning stages run before the chunker and see
// nil chunks.
type Pipeline struct {
	stages []driven.PostProcessor
}

func NewPipeline(stages ...driven.PostProcessor) *Pipeline {
	return &Pipeline{stages: stages}
}

// BuildPipeline assembles cfg.Processors in the listed order.
func BuildPipeline(r *Registry, cfg domain.PipelineConfig) (*Pipeline, error) {
	p := NewPipeline()
	for _, name := range cfg.Processors {
		stage, err := r.Build(name, cfg.GetProcessorConfig(name))
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		p.Add(stage)
	}
	return p, nil
}

func (p *Pipeline) Process(ctx context.Context, doc *domain.ExtractedText) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("extracted text is nil")
	}
	var chunks []domain.Chunk
	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := stage.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", stage.Name(), err)
		}
		chunks = next
	}
	return chunks, nil
}

func (p *Pipeline) Add(stage driven.PostProcessor) {
	p.stages = append(p.stages, stage)
}

func (p *Pipeline) Len() int {
	return len(p.stages)
}
