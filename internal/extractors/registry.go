package extractors

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/librarian/internal/core/domain"
	"github.com/custodia-labs/librarian/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry maps file types to extractors.
// A later registration for a file type replaces the earlier one.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]driven.Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[string]driven.Extractor),
	}
}

// normaliseType lowercases a file type and strips a leading dot.
func normaliseType(fileType string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(fileType)), ".")
}

// Register adds an extractor for each of its supported types.
func (r *Registry) Register(extractor driven.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range extractor.SupportedTypes() {
		r.extractors[normaliseType(t)] = extractor
	}
}

// Supports returns true if an extractor handles fileType.
func (r *Registry) Supports(fileType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.extractors[normaliseType(fileType)]
	return ok
}

// SupportedTypes returns every registered file type in sorted order.
func (r *Registry) SupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.extractors))
	for t := range r.extractors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Extract dispatches to the extractor registered for fileType.
func (r *Registry) Extract(ctx context.Context, fileType, path string) (string, error) {
	r.mu.RLock()
	extractor, ok := r.extractors[normaliseType(fileType)]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, fileType)
	}
	return extractor.Extract(ctx, path)
}
