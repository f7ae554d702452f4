// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormChatMetricsProvider implements ChatMetricsProvider using GORM.
// It queries the conversations and documents tables directly for
// aggregated metrics.
type GormChatMetricsProvider struct {
	db *gorm.DB
}

// NewGormChatMetricsProvider creates a new GormChatMetricsProvider.
func NewGormChatMetricsProvider(db *gorm.DB) *GormChatMetricsProvider {
	return &GormChatMetricsProvider{db: db}
}

// GetOpenConversationCount returns the number of open conversations per
// channel type for a tenant. Handed-off conversations count as open.
func (p *GormChatMetricsProvider) GetOpenConversationCount(ctx context.Context, tenantID uuid.UUID) (map[string]int64, error) {
	type result struct {
		Channel string `gorm:"column:channel"`
		Count   int64  `gorm:"column:count"`
	}

	var results []result
	err := p.db.WithContext(ctx).
		Table("conversations").
		Select("channel, COUNT(*) as count").
		Where("tenant_id = ? AND deleted_at IS NULL", tenantID).
		Where("status IN ?", []string{"active", "handed_off"}).
		Group("channel").
		Find(&results).Error

	if err != nil {
		return nil, err
	}

	m := make(map[string]int64, len(results))
	for _, r := range results {
		m[r.Channel] = r.Count
	}

	return m, nil
}

// GetPendingDocumentCount returns the number of documents waiting for
// ingestion for a tenant.
func (p *GormChatMetricsProvider) GetPendingDocumentCount(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("documents").
		Where("tenant_id = ? AND deleted_at IS NULL", tenantID).
		Where("status IN ?", []string{"pending", "processing"}).
		Count(&count).Error

	return count, err
}

// GormTenantProvider implements TenantProvider using GORM.
type GormTenantProvider struct {
	db *gorm.DB
}

// NewGormTenantProvider creates a new GormTenantProvider.
func NewGormTenantProvider(db *gorm.DB) *GormTenantProvider {
	return &GormTenantProvider{db: db}
}

// GetActiveTenantIDs returns all active tenant IDs, trial tenants included.
func (p *GormTenantProvider) GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("tenants").
		Select("id").
		Where("deleted_at IS NULL AND status IN ?", []string{"active", "trial"}).
		Find(&ids).Error

	return ids, err
}
