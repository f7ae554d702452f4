// Package commerce provides adapters that let bots answer order and
// product questions from a tenant's connected store. Adapters implement
// the integration.CommercePlatform port and are stateless: account
// credentials arrive per call, already opened by the persistence layer.
package commerce

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/chatforge/backend/internal/domain/integration"
)

// maxResponseSize is the maximum allowed platform response size (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Registry implements integration.CommercePlatformRegistry over a fixed
// set of adapters
type Registry struct {
	mu        sync.RWMutex
	platforms map[integration.CommercePlatformCode]integration.CommercePlatform
}

// NewRegistry creates a registry with the given platform adapters
func NewRegistry(platforms ...integration.CommercePlatform) *Registry {
	r := &Registry{
		platforms: make(map[integration.CommercePlatformCode]integration.CommercePlatform),
	}
	for _, p := range platforms {
		r.Register(p)
	}
	return r
}

// Register adds a platform adapter, replacing any previous adapter for
// the same code
func (r *Registry) Register(p integration.CommercePlatform) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.platforms[p.Code()] = p
}

// GetPlatform returns the adapter for the specified code
func (r *Registry) GetPlatform(code integration.CommercePlatformCode) (integration.CommercePlatform, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.platforms[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", integration.ErrPlatformNotSupported, code)
	}
	return p, nil
}

// ListPlatforms returns all registered platform adapters in stable order
func (r *Registry) ListPlatforms() []integration.CommercePlatform {
	r.mu.RLock()
	defer r.mu.RUnlock()

	platforms := make([]integration.CommercePlatform, 0, len(r.platforms))
	for _, p := range r.platforms {
		platforms = append(platforms, p)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i].Code() < platforms[j].Code() })
	return platforms
}

// Ensure Registry implements the registry port
var _ integration.CommercePlatformRegistry = (*Registry)(nil)

// parsePrice converts a platform price string to a decimal, zero when
// the platform sends an empty or malformed value
func parsePrice(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// htmlToText strips markup from a platform description so it can be fed
// into a prompt, collapsing runs of whitespace
func htmlToText(s string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			sb.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
