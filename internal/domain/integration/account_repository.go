package integration

import (
	"context"

	"github.com/google/uuid"
)

// Integration accounts are a handful of rows per tenant, so the
// repositories list without pagination.

// CommerceAccountRepository defines the interface for commerce account
// persistence
type CommerceAccountRepository interface {
	// Create creates a new commerce account
	Create(ctx context.Context, a *CommerceAccount) error

	// Update updates an existing commerce account
	Update(ctx context.Context, a *CommerceAccount) error

	// Delete deletes a commerce account by ID
	Delete(ctx context.Context, id uuid.UUID) error

	// FindByID finds a commerce account by ID
	FindByID(ctx context.Context, id uuid.UUID) (*CommerceAccount, error)

	// FindAll returns all commerce accounts for the current tenant
	FindAll(ctx context.Context) ([]*CommerceAccount, error)

	// FindActive returns the active commerce accounts of the given
	// tenant in creation order. The tenant is explicit because callers
	// (the reply engine, event handlers) run outside a request context.
	FindActive(ctx context.Context, tenantID uuid.UUID) ([]*CommerceAccount, error)

	// ExistsByPlatform checks if the tenant already connected a platform
	ExistsByPlatform(ctx context.Context, platform CommercePlatformCode) (bool, error)
}

// CRMAccountRepository defines the interface for CRM account
// persistence
type CRMAccountRepository interface {
	// Create creates a new CRM account
	Create(ctx context.Context, a *CRMAccount) error

	// Update updates an existing CRM account
	Update(ctx context.Context, a *CRMAccount) error

	// Delete deletes a CRM account by ID
	Delete(ctx context.Context, id uuid.UUID) error

	// FindByID finds a CRM account by ID
	FindByID(ctx context.Context, id uuid.UUID) (*CRMAccount, error)

	// FindAll returns all CRM accounts for the current tenant
	FindAll(ctx context.Context) ([]*CRMAccount, error)

	// FindActive returns the active CRM accounts of the given tenant.
	// The tenant is explicit because the lead sync handler runs outside
	// a request context.
	FindActive(ctx context.Context, tenantID uuid.UUID) ([]*CRMAccount, error)

	// ExistsByPlatform checks if the tenant already connected a platform
	ExistsByPlatform(ctx context.Context, platform CRMPlatformCode) (bool, error)
}
