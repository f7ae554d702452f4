package persistence

import (
	"context"

	"github.com/chatforge/backend/internal/infrastructure/logger"
	"github.com/chatforge/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// tenantFromContext extracts and validates the tenant ID carried by the
// request context. Repositories serving "current tenant" queries fail
// closed when it is absent.
func tenantFromContext(ctx context.Context) (uuid.UUID, error) {
	raw := logger.GetTenantID(ctx)
	if raw == "" {
		return uuid.Nil, tenant.ErrTenantIDRequired
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, tenant.ErrInvalidTenantID
	}
	return id, nil
}

// scopedToTenant returns db narrowed to the context tenant
func scopedToTenant(ctx context.Context, db *gorm.DB) (*gorm.DB, error) {
	id, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return db.WithContext(ctx).Scopes(tenant.TenantScope(id)), nil
}
