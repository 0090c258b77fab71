package postprocessors

import (
	"fmt"
	"slices"
	"strings"

	"github.com/custodia-labs/librarian/internal/core/ports/driven"
)

// BuilderFunc makes a processor from its [pipeline.<name>] settings table.
// Values arrive untyped because the table may come from TOML or JSON.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// Registry resolves the processor names listed in pipeline settings.
type Registry struct {
	builders map[string]BuilderFunc
}

func NewRegistry() *Registry {
	return &Registry{builders: map[string]BuilderFunc{}}
}

// Register binds name to builder, replacing any earlier binding.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

func (r *Registry) Has(name string) bool {
	return r.builders[name] != nil
}

// Build fails for names nobody registered, listing the ones that exist.
func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	builder := r.builders[name]
	if builder == nil {
		return nil, fmt.Errorf("unknown processor %q (known: %s)", name, strings.Join(r.Names(), ", "))
	}
	proc, err := builder(cfg)
	if err != nil {
		return nil, fmt.Errorf("build processor %s: %w", name, err)
	}
	return proc, nil
}

// Names is sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
