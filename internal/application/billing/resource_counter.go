package billing

import (
	"context"

	"github.com/chatforge/backend/internal/domain/billing"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormResourceCounter is the GORM implementation of ResourceCounter.
// Snapshots run in the background across all tenants, so every query
// filters by an explicit tenant ID instead of the request context.
type GormResourceCounter struct {
	db *gorm.DB
}

// NewGormResourceCounter creates a new GORM resource counter
func NewGormResourceCounter(db *gorm.DB) *GormResourceCounter {
	return &GormResourceCounter{db: db}
}

// CountUsers counts users belonging to a tenant
func (r *GormResourceCounter) CountUsers(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return r.countTable(ctx, "users", tenantID)
}

// CountBots counts bots belonging to a tenant, archived bots included
func (r *GormResourceCounter) CountBots(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return r.countTable(ctx, "bots", tenantID)
}

// CountDocuments counts knowledge documents belonging to a tenant
func (r *GormResourceCounter) CountDocuments(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return r.countTable(ctx, "documents", tenantID)
}

// CountChannelAccounts counts connected channel accounts for a tenant
func (r *GormResourceCounter) CountChannelAccounts(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return r.countTable(ctx, "channel_accounts", tenantID)
}

// CountConversations counts conversations for a tenant
func (r *GormResourceCounter) CountConversations(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return r.countTable(ctx, "conversations", tenantID)
}

// CountMessages counts stored messages for a tenant
func (r *GormResourceCounter) CountMessages(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return r.countTable(ctx, "messages", tenantID)
}

// SumTokens sums AI tokens metered against a tenant
func (r *GormResourceCounter) SumTokens(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Table("usage_records").
		Where("tenant_id = ? AND usage_type = ?", tenantID, string(billing.UsageTypeAITokens)).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	return total, err
}

// SumStorageBytes sums the stored size of a tenant's documents
func (r *GormResourceCounter) SumStorageBytes(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Table("documents").
		Where("tenant_id = ? AND deleted_at IS NULL", tenantID).
		Select("COALESCE(SUM(size_bytes), 0)").
		Scan(&total).Error
	return total, err
}

func (r *GormResourceCounter) countTable(ctx context.Context, table string, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table(table).
		Where("tenant_id = ? AND deleted_at IS NULL", tenantID).
		Count(&count).Error
	return count, err
}
