package normalisers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/normalisers/docconv"
	"github.com/custodia-labs/docsearch/internal/normalisers/html"
	"github.com/custodia-labs/docsearch/internal/normalisers/markdown"
	"github.com/custodia-labs/docsearch/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry maps declared types to extractors.
// A later registration for the same type replaces the earlier one.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]driven.TextExtractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[string]driven.TextExtractor),
	}
}

// RegisterDefaults registers all built-in extractors.
func RegisterDefaults(r *Registry) {
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docconv.New())
}

// Register adds an extractor for all of its supported types.
func (r *Registry) Register(extractor driven.TextExtractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range extractor.SupportedTypes() {
		r.extractors[normaliseType(t)] = extractor
	}
}

// Extract uses the registered extractor for declaredType.
func (r *Registry) Extract(ctx context.Context, path, declaredType string) (string, error) {
	declaredType = normaliseType(declaredType)

	r.mu.RLock()
	extractor, ok := r.extractors[declaredType]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedType, declaredType)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return extractor.Extract(ctx, path, declaredType)
}

// Supports reports whether declaredType has an extractor.
func (r *Registry) Supports(declaredType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.extractors[normaliseType(declaredType)]
	return ok
}

// SupportedTypes returns all registered types, sorted.
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

func normaliseType(t string) string {
	return strings.ToLower(strings.TrimPrefix(t, "."))
}
