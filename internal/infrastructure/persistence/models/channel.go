package models

import (
	"time"

	"github.com/chatforge/backend/internal/domain/channel"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ChannelAccountModel is the persistence model for the ChannelAccount
// aggregate. Credentials are sealed by the repository before they reach
// this model, the column never holds plaintext.
type ChannelAccountModel struct {
	TenantAggregateModel
	BotID         uuid.UUID             `gorm:"type:uuid;not null;index:idx_channel_account_bot,priority:1"`
	ChannelType   channel.ChannelType   `gorm:"type:varchar(20);not null"`
	Name          string                `gorm:"type:varchar(200);not null"`
	Credentials   string                `gorm:"type:text"`
	WebhookSecret string                `gorm:"type:varchar(500)"`
	Status        channel.AccountStatus `gorm:"type:varchar(20);not null;default:'active'"`
	LastError     string                `gorm:"type:text"`
	LastErrorAt   *time.Time
}

// TableName returns the table name for GORM
func (ChannelAccountModel) TableName() string {
	return "channel_accounts"
}

// ToDomain converts the persistence model to a domain ChannelAccount entity.
func (m *ChannelAccountModel) ToDomain() *channel.ChannelAccount {
	return &channel.ChannelAccount{
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
		BotID:         m.BotID,
		ChannelType:   m.ChannelType,
		Name:          m.Name,
		Credentials:   m.Credentials,
		WebhookSecret: m.WebhookSecret,
		Status:        m.Status,
		LastError:     m.LastError,
		LastErrorAt:   m.LastErrorAt,
	}
}

// FromDomain populates the persistence model from a domain ChannelAccount entity.
func (m *ChannelAccountModel) FromDomain(a *channel.ChannelAccount) {
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	m.BotID = a.BotID
	m.ChannelType = a.ChannelType
	m.Name = a.Name
	m.Credentials = a.Credentials
	m.WebhookSecret = a.WebhookSecret
	m.Status = a.Status
	m.LastError = a.LastError
	m.LastErrorAt = a.LastErrorAt
}

// ChannelAccountModelFromDomain creates a persistence model from a domain entity.
func ChannelAccountModelFromDomain(a *channel.ChannelAccount) *ChannelAccountModel {
	m := &ChannelAccountModel{}
	m.FromDomain(a)
	return m
}
