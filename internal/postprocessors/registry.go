package postprocessors

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Builder creates a stage from its settings table.
// Values may be int, int64 or float64 depending on where they were parsed.
type Builder func(cfg map[string]any) (driven.PostProcessor, error)

// Registry maps the stage names used in domain.PipelineConfig to builders.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// NewDefaultRegistry creates a registry holding the built-in stages.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}

// Register adds or replaces the builder for name.
func (r *Registry) Register(name string, b Builder) {
	r.builders[name] = b
}

// Build creates the stage called name.
func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	b, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: pipeline stage %q", domain.ErrUnsupportedType, name)
	}
	return b(cfg)
}

// Has reports whether a stage called name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns the registered stage names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pipeline builds the stages listed in cfg, in order.
func (r *Registry) Pipeline(cfg domain.PipelineConfig) (*Pipeline, error) {
	if len(cfg.Processors) == 0 {
		return nil, fmt.Errorf("%w: pipeline has no stages", domain.ErrInvalidInput)
	}

	p := NewPipeline()
	for _, name := range cfg.Processors {
		stage, err := r.Build(name, cfg.GetProcessorConfig(name))
		if err != nil {
			return nil, fmt.Errorf("building pipeline: %w", err)
		}
		p.Add(stage)
	}
	return p, nil
}
