package models

import (
	"time"

	"github.com/chatforge/backend/internal/domain/integration"
	"github.com/chatforge/backend/internal/domain/shared"
)

// CommerceAccountModel is the persistence model for a tenant's commerce
// platform connection. Credentials are sealed by the repository.
type CommerceAccountModel struct {
	TenantAggregateModel
	Platform    integration.CommercePlatformCode `gorm:"type:varchar(20);not null;uniqueIndex:idx_commerce_account_tenant_platform,priority:2"`
	ShopDomain  string                           `gorm:"type:varchar(300);not null"`
	Credentials string                           `gorm:"type:text"`
	Status      integration.AccountStatus        `gorm:"type:varchar(20);not null;default:'active'"`
	LastError   string                           `gorm:"type:text"`
	LastErrorAt *time.Time
}

// TableName returns the table name for GORM
func (CommerceAccountModel) TableName() string {
	return "commerce_accounts"
}

// ToDomain converts the persistence model to a domain CommerceAccount entity.
func (m *CommerceAccountModel) ToDomain() *integration.CommerceAccount {
	return &integration.CommerceAccount{
		TenantAggregateRoot: shared.TenantAggregateRoot{
			BaseAggregateRoot: shared.BaseAggregateRoot{
				BaseEntity: shared.BaseEntity{
					ID:        m.ID,
					CreatedAt: m.CreatedAt,
					UpdatedAt: m.UpdatedAt,
				},
				Version: m.Version,
			},
			TenantID:  m.TenantID,
			CreatedBy: m.CreatedBy,
		},
		Platform:    m.Platform,
		ShopDomain:  m.ShopDomain,
		Credentials: m.Credentials,
		Status:      m.Status,
		LastError:   m.LastError,
		LastErrorAt: m.LastErrorAt,
	}
}

// FromDomain populates the persistence model from a domain CommerceAccount entity.
func (m *CommerceAccountModel) FromDomain(a *integration.CommerceAccount) {
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	m.Platform = a.Platform
	m.ShopDomain = a.ShopDomain
	m.Credentials = a.Credentials
	m.Status = a.Status
	m.LastError = a.LastError
	m.LastErrorAt = a.LastErrorAt
}

// CommerceAccountModelFromDomain creates a persistence model from a domain entity.
func CommerceAccountModelFromDomain(a *integration.CommerceAccount) *CommerceAccountModel {
	m := &CommerceAccountModel{}
	m.FromDomain(a)
	return m
}

// CRMAccountModel is the persistence model for a tenant's CRM platform
// connection. Credentials are sealed by the repository.
type CRMAccountModel struct {
	TenantAggregateModel
	Platform    integration.CRMPlatformCode `gorm:"type:varchar(20);not null;uniqueIndex:idx_crm_account_tenant_platform,priority:2"`
	Credentials string                      `gorm:"type:text"`
	Status      integration.AccountStatus   `gorm:"type:varchar(20);not null;default:'active'"`
	LastError   string                      `gorm:"type:text"`
	LastErrorAt *time.Time
}

// TableName returns the table name for GORM
func (CRMAccountModel) TableName() string {
	return "crm_accounts"
}

// ToDomain converts the persistence model to a domain CRMAccount entity.
func (m *CRMAccountModel) ToDomain() *integration.CRMAccount {
	return &integration.CRMAccount{
		TenantAggregateRoot: shared.TenantAggregateRoot{
			BaseAggregateRoot: shared.BaseAggregateRoot{
				BaseEntity: shared.BaseEntity{
					ID:        m.ID,
					CreatedAt: m.CreatedAt,
					UpdatedAt: m.UpdatedAt,
				},
				Version: m.Version,
			},
			TenantID:  m.TenantID,
			CreatedBy: m.CreatedBy,
		},
		Platform:    m.Platform,
		Credentials: m.Credentials,
		Status:      m.Status,
		LastError:   m.LastError,
		LastErrorAt: m.LastErrorAt,
	}
}

// FromDomain populates the persistence model from a domain CRMAccount entity.
func (m *CRMAccountModel) FromDomain(a *integration.CRMAccount) {
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	m.Platform = a.Platform
	m.Credentials = a.Credentials
	m.Status = a.Status
	m.LastError = a.LastError
	m.LastErrorAt = a.LastErrorAt
}

// CRMAccountModelFromDomain creates a persistence model from a domain entity.
func CRMAccountModelFromDomain(a *integration.CRMAccount) *CRMAccountModel {
	m := &CRMAccountModel{}
	m.FromDomain(a)
	return m
}
