package ai

import (
	"fmt"
	"sort"
	"sync"

	"github.com/chatforge/backend/internal/domain/shared"
)

// ProviderRegistry holds the adapter for each AI provider
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[ProviderName]ModelProvider
}

// NewProviderRegistry creates an empty provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[ProviderName]ModelProvider),
	}
}

// Register adds a provider adapter under its name
func (r *ProviderRegistry) Register(p ModelProvider) error {
	if p == nil {
		return fmt.Errorf("%w: provider cannot be nil", shared.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if !name.IsValid() {
		return fmt.Errorf("%w: unknown provider '%s'", shared.ErrInvalidInput, name)
	}
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("%w: provider '%s' already registered", shared.ErrAlreadyExists, name)
	}

	r.providers[name] = p
	return nil
}

// Get returns the adapter for a provider
func (r *ProviderRegistry) Get(name ProviderName) (ModelProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("%w: '%s'", ErrProviderNotConfigured, name)
	}
	return p, nil
}

// List returns the registered provider names in stable order
func (r *ProviderRegistry) List() []ProviderName {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]ProviderName, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Count returns the number of registered providers
func (r *ProviderRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
