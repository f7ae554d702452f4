// Package crm provides adapters that push captured leads into a
// tenant's CRM. Adapters implement the integration.CRMPlatform port and
// are stateless: account credentials arrive per call, already opened by
// the persistence layer.
package crm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/chatforge/backend/internal/domain/integration"
)

// maxResponseSize is the maximum allowed platform response size (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Registry implements integration.CRMPlatformRegistry over a fixed set
// of adapters
type Registry struct {
	mu        sync.RWMutex
	platforms map[integration.CRMPlatformCode]integration.CRMPlatform
}

// NewRegistry creates a registry with the given platform adapters
func NewRegistry(platforms ...integration.CRMPlatform) *Registry {
	r := &Registry{
		platforms: make(map[integration.CRMPlatformCode]integration.CRMPlatform),
	}
	for _, p := range platforms {
		r.Register(p)
	}
	return r
}

// Register adds a platform adapter, replacing any previous adapter for
// the same code
func (r *Registry) Register(p integration.CRMPlatform) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.platforms[p.Code()] = p
}

// GetPlatform returns the adapter for the specified code
func (r *Registry) GetPlatform(code integration.CRMPlatformCode) (integration.CRMPlatform, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.platforms[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", integration.ErrPlatformNotSupported, code)
	}
	return p, nil
}

// ListPlatforms returns all registered platform adapters in stable order
func (r *Registry) ListPlatforms() []integration.CRMPlatform {
	r.mu.RLock()
	defer r.mu.RUnlock()

	platforms := make([]integration.CRMPlatform, 0, len(r.platforms))
	for _, p := range r.platforms {
		platforms = append(platforms, p)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i].Code() < platforms[j].Code() })
	return platforms
}

// Ensure Registry implements the registry port
var _ integration.CRMPlatformRegistry = (*Registry)(nil)
