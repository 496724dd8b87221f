// Package provider defines the interface and implementations for enrichment
// data providers. Providers never return Go errors from Fetch: every outcome,
// including failure, is a ProviderResult with a status.
package provider

import (
	"context"
	"sync"

	"github.com/sells-group/callintel/internal/model"
)

// Provider supplies enrichment fields for a single subject.
type Provider interface {
	// Name returns the provider identifier used in priority config and
	// provenance records.
	Name() string
	// Accepts reports whether the provider can enrich subjects of the
	// given kind.
	Accepts(kind model.SubjectKind) bool
	// Fetch looks up the subject and returns a result. Failures are
	// statuses on the result, never errors.
	Fetch(ctx context.Context, query model.EnrichmentQuery) model.ProviderResult
}

// Registry manages available providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns a provider by name, or nil if not found.
func (r *Registry) Get(name string) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[name]
}

// List returns all registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// For returns the providers from names that accept the given kind, preserving
// the order of names. Unknown names are skipped.
func (r *Registry) For(kind model.SubjectKind, names []string) []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(names))
	for _, name := range names {
		p, ok := r.providers[name]
		if !ok || !p.Accepts(kind) {
			continue
		}
		out = append(out, p)
	}
	return out
}
