package models

import (
	"time"

	"github.com/chatforge/backend/internal/domain/identity"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// UserModel is the persistence model for the User domain entity.
// Email is globally unique: login carries no tenant context, the user
// row resolves the tenant.
type UserModel struct {
	TenantAggregateModel
	Email              string              `gorm:"type:varchar(200);not null;uniqueIndex"`
	PasswordHash       string              `gorm:"type:varchar(255);not null"`
	DisplayName        string              `gorm:"type:varchar(200)"`
	Avatar             string              `gorm:"type:varchar(500)"`
	Role               identity.UserRole   `gorm:"type:varchar(20);not null;default:'member'"`
	Status             identity.UserStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	LastLoginAt        *time.Time          `gorm:"index"`
	LastLoginIP        string              `gorm:"type:varchar(45)"`
	FailedAttempts     int                 `gorm:"not null;default:0"`
	LockedUntil        *time.Time
	PasswordChangedAt  *time.Time
	MustChangePassword bool   `gorm:"not null;default:false"`
	Notes              string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User entity.
func (m *UserModel) ToDomain() *identity.User {
	user := &identity.User{
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
		Email:              m.Email,
		PasswordHash:       m.PasswordHash,
		DisplayName:        m.DisplayName,
		Avatar:             m.Avatar,
		Role:               m.Role,
		Status:             m.Status,
		LastLoginAt:        m.LastLoginAt,
		LastLoginIP:        m.LastLoginIP,
		FailedAttempts:     m.FailedAttempts,
		LockedUntil:        m.LockedUntil,
		PasswordChangedAt:  m.PasswordChangedAt,
		MustChangePassword: m.MustChangePassword,
		Notes:              m.Notes,
	}
	return user
}

// FromDomain populates the persistence model from a domain User entity.
func (m *UserModel) FromDomain(u *identity.User) {
	m.FromDomainTenantAggregateRoot(u.TenantAggregateRoot)
	m.Email = u.Email
	m.PasswordHash = u.PasswordHash
	m.DisplayName = u.DisplayName
	m.Avatar = u.Avatar
	m.Role = u.Role
	m.Status = u.Status
	m.LastLoginAt = u.LastLoginAt
	m.LastLoginIP = u.LastLoginIP
	m.FailedAttempts = u.FailedAttempts
	m.LockedUntil = u.LockedUntil
	m.PasswordChangedAt = u.PasswordChangedAt
	m.MustChangePassword = u.MustChangePassword
	m.Notes = u.Notes
}

// UserModelFromDomain creates a new persistence model from a domain User entity.
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{}
	m.FromDomain(u)
	return m
}

// TenantModel is the persistence model for the Tenant domain entity.
type TenantModel struct {
	AggregateModel
	Code         string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name         string                `gorm:"type:varchar(200);not null"`
	ShortName    string                `gorm:"type:varchar(100)"`
	Status       identity.TenantStatus `gorm:"type:varchar(20);not null;default:'active'"`
	Plan         identity.TenantPlan   `gorm:"type:varchar(20);not null;default:'free'"`
	ContactName  string                `gorm:"type:varchar(100)"`
	ContactPhone string                `gorm:"type:varchar(50)"`
	ContactEmail string                `gorm:"type:varchar(200)"`
	LogoURL      string                `gorm:"type:varchar(500)"`
	Domain       string                `gorm:"type:varchar(200);uniqueIndex"`
	ExpiresAt    *time.Time            `gorm:"index"`
	TrialEndsAt  *time.Time
	// Embedded config fields
	ConfigMaxUsers            int    `gorm:"column:config_max_users;not null;default:2"`
	ConfigMaxBots             int    `gorm:"column:config_max_bots;not null;default:1"`
	ConfigMaxDocuments        int    `gorm:"column:config_max_documents;not null;default:10"`
	ConfigMaxMessagesPerMonth int    `gorm:"column:config_max_messages_per_month;not null;default:200"`
	ConfigMaxChannels         int    `gorm:"column:config_max_channels;not null;default:1"`
	ConfigAllowAPIAccess      bool   `gorm:"column:config_allow_api_access;not null;default:false"`
	ConfigRemoveBranding      bool   `gorm:"column:config_remove_branding;not null;default:false"`
	ConfigFeatures            string `gorm:"column:config_features;type:jsonb;default:'{}'"`
	ConfigSettings            string `gorm:"column:config_settings;type:jsonb;default:'{}'"`
	ConfigTimezone            string `gorm:"column:config_timezone;type:varchar(50);default:'UTC'"`
	ConfigLocale              string `gorm:"column:config_locale;type:varchar(20);default:'en-US'"`
	Notes                     string `gorm:"type:text"`
	// Stripe billing fields
	StripeCustomerID     string `gorm:"column:stripe_customer_id;type:varchar(255);index"`
	StripeSubscriptionID string `gorm:"column:stripe_subscription_id;type:varchar(255);index"`
}

// TableName returns the table name for GORM
func (TenantModel) TableName() string {
	return "tenants"
}

// ToDomain converts the persistence model to a domain Tenant entity.
func (m *TenantModel) ToDomain() *identity.Tenant {
	return &identity.Tenant{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		Code:         m.Code,
		Name:         m.Name,
		ShortName:    m.ShortName,
		Status:       m.Status,
		Plan:         m.Plan,
		ContactName:  m.ContactName,
		ContactPhone: m.ContactPhone,
		ContactEmail: m.ContactEmail,
		LogoURL:      m.LogoURL,
		Domain:       m.Domain,
		ExpiresAt:    m.ExpiresAt,
		TrialEndsAt:  m.TrialEndsAt,
		Config: identity.TenantConfig{
			MaxUsers:            m.ConfigMaxUsers,
			MaxBots:             m.ConfigMaxBots,
			MaxDocuments:        m.ConfigMaxDocuments,
			MaxMessagesPerMonth: m.ConfigMaxMessagesPerMonth,
			MaxChannels:         m.ConfigMaxChannels,
			AllowAPIAccess:      m.ConfigAllowAPIAccess,
			RemoveBranding:      m.ConfigRemoveBranding,
			Features:            m.ConfigFeatures,
			Settings:            m.ConfigSettings,
			Timezone:            m.ConfigTimezone,
			Locale:              m.ConfigLocale,
		},
		Notes:                m.Notes,
		StripeCustomerID:     m.StripeCustomerID,
		StripeSubscriptionID: m.StripeSubscriptionID,
	}
}

// FromDomain populates the persistence model from a domain Tenant entity.
func (m *TenantModel) FromDomain(t *identity.Tenant) {
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	m.Code = t.Code
	m.Name = t.Name
	m.ShortName = t.ShortName
	m.Status = t.Status
	m.Plan = t.Plan
	m.ContactName = t.ContactName
	m.ContactPhone = t.ContactPhone
	m.ContactEmail = t.ContactEmail
	m.LogoURL = t.LogoURL
	m.Domain = t.Domain
	m.ExpiresAt = t.ExpiresAt
	m.TrialEndsAt = t.TrialEndsAt
	m.ConfigMaxUsers = t.Config.MaxUsers
	m.ConfigMaxBots = t.Config.MaxBots
	m.ConfigMaxDocuments = t.Config.MaxDocuments
	m.ConfigMaxMessagesPerMonth = t.Config.MaxMessagesPerMonth
	m.ConfigMaxChannels = t.Config.MaxChannels
	m.ConfigAllowAPIAccess = t.Config.AllowAPIAccess
	m.ConfigRemoveBranding = t.Config.RemoveBranding
	m.ConfigFeatures = t.Config.Features
	m.ConfigSettings = t.Config.Settings
	m.ConfigTimezone = t.Config.Timezone
	m.ConfigLocale = t.Config.Locale
	m.Notes = t.Notes
	m.StripeCustomerID = t.StripeCustomerID
	m.StripeSubscriptionID = t.StripeSubscriptionID
}

// TenantModelFromDomain creates a new persistence model from a domain Tenant entity.
func TenantModelFromDomain(t *identity.Tenant) *TenantModel {
	m := &TenantModel{}
	m.FromDomain(t)
	return m
}

// PlanFeatureModel is the persistence model for the PlanFeature domain entity.
type PlanFeatureModel struct {
	ID          uuid.UUID           `gorm:"type:uuid;primary_key"`
	PlanID      identity.TenantPlan `gorm:"column:plan_id;type:varchar(50);not null"`
	FeatureKey  string              `gorm:"column:feature_key;type:varchar(100);not null"`
	Enabled     bool                `gorm:"not null;default:false"`
	Limit       *int                `gorm:"column:feature_limit"`
	Description string              `gorm:"type:text"`
	CreatedAt   time.Time           `gorm:"not null"`
	UpdatedAt   time.Time           `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PlanFeatureModel) TableName() string {
	return "plan_features"
}

// ToDomain converts the persistence model to a domain PlanFeature entity.
func (m *PlanFeatureModel) ToDomain() *identity.PlanFeature {
	return &identity.PlanFeature{
		ID:          m.ID,
		PlanID:      m.PlanID,
		FeatureKey:  identity.FeatureKey(m.FeatureKey),
		Enabled:     m.Enabled,
		Limit:       m.Limit,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain PlanFeature entity.
func (m *PlanFeatureModel) FromDomain(pf *identity.PlanFeature) {
	m.ID = pf.ID
	m.PlanID = pf.PlanID
	m.FeatureKey = string(pf.FeatureKey)
	m.Enabled = pf.Enabled
	m.Limit = pf.Limit
	m.Description = pf.Description
	m.CreatedAt = pf.CreatedAt
	m.UpdatedAt = pf.UpdatedAt
}

// PlanFeatureModelFromDomain creates a new persistence model from a domain PlanFeature entity.
func PlanFeatureModelFromDomain(pf *identity.PlanFeature) *PlanFeatureModel {
	m := &PlanFeatureModel{}
	m.FromDomain(pf)
	return m
}

// PlanFeatureChangeLogModel is the persistence model for audit logging plan feature changes.
type PlanFeatureChangeLogModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key"`
	PlanID     string     `gorm:"column:plan_id;type:varchar(50);not null"`
	FeatureKey string     `gorm:"column:feature_key;type:varchar(100);not null"`
	ChangeType string     `gorm:"column:change_type;type:varchar(20);not null"` // created, updated, deleted
	OldEnabled *bool      `gorm:"column:old_enabled"`
	NewEnabled *bool      `gorm:"column:new_enabled"`
	OldLimit   *int       `gorm:"column:old_limit"`
	NewLimit   *int       `gorm:"column:new_limit"`
	ChangedBy  *uuid.UUID `gorm:"column:changed_by;type:uuid"`
	ChangedAt  time.Time  `gorm:"column:changed_at;not null"`
}

// TableName returns the table name for GORM
func (PlanFeatureChangeLogModel) TableName() string {
	return "plan_feature_change_logs"
}
