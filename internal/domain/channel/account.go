package channel

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ChannelType identifies a messaging channel
type ChannelType string

const (
	ChannelTypeWeb      ChannelType = "web"
	ChannelTypeWhatsApp ChannelType = "whatsapp"
	ChannelTypeTelegram ChannelType = "telegram"
	ChannelTypeSlack    ChannelType = "slack"
	ChannelTypeDiscord  ChannelType = "discord"
)

// String returns the string representation of the channel type
func (t ChannelType) String() string {
	return string(t)
}

// IsValid returns true if the channel type is known
func (t ChannelType) IsValid() bool {
	switch t {
	case ChannelTypeWeb, ChannelTypeWhatsApp, ChannelTypeTelegram, ChannelTypeSlack, ChannelTypeDiscord:
		return true
	default:
		return false
	}
}

// AccountStatus represents the operational state of a channel account
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusInactive AccountStatus = "inactive"
	AccountStatusError    AccountStatus = "error" // Last delivery or verification failed
)

const maxAccountErrorLength = 500

// ChannelAccount connects a bot to one external messaging account.
// Credentials hold provider-specific secrets as JSON and are encrypted
// at rest by the persistence layer.
type ChannelAccount struct {
	shared.TenantAggregateRoot
	BotID         uuid.UUID
	ChannelType   ChannelType
	Name          string
	Credentials   string
	WebhookSecret string
	Status        AccountStatus
	LastError     string
	LastErrorAt   *time.Time
}

// NewChannelAccount connects a bot to an external channel.
// The web widget is built in and needs no account.
func NewChannelAccount(tenantID, botID uuid.UUID, channelType ChannelType, name, credentials, webhookSecret string) (*ChannelAccount, error) {
	if botID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BOT", "Bot ID is required")
	}
	if !channelType.IsValid() {
		return nil, shared.NewDomainError("INVALID_CHANNEL_TYPE", "Invalid channel type")
	}
	if channelType == ChannelTypeWeb {
		return nil, shared.NewDomainError("INVALID_CHANNEL_TYPE", "The web channel does not use accounts")
	}
	if err := validateAccountName(name); err != nil {
		return nil, err
	}
	if err := validateCredentials(credentials); err != nil {
		return nil, err
	}
	if len(webhookSecret) > 200 {
		return nil, shared.NewDomainError("INVALID_WEBHOOK_SECRET", "Webhook secret cannot exceed 200 characters")
	}

	a := &ChannelAccount{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		BotID:               botID,
		ChannelType:         channelType,
		Name:                name,
		Credentials:         credentials,
		WebhookSecret:       webhookSecret,
		Status:              AccountStatusActive,
	}

	a.AddDomainEvent(NewChannelAccountCreatedEvent(a))

	return a, nil
}

// Rename updates the display name of the account
func (a *ChannelAccount) Rename(name string) error {
	if err := validateAccountName(name); err != nil {
		return err
	}

	a.Name = name
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	return nil
}

// UpdateCredentials replaces the account's secrets. An account in the
// error state recovers to active, fresh credentials are the usual fix.
func (a *ChannelAccount) UpdateCredentials(credentials, webhookSecret string) error {
	if err := validateCredentials(credentials); err != nil {
		return err
	}
	if len(webhookSecret) > 200 {
		return shared.NewDomainError("INVALID_WEBHOOK_SECRET", "Webhook secret cannot exceed 200 characters")
	}

	a.Credentials = credentials
	a.WebhookSecret = webhookSecret
	if a.Status == AccountStatusError {
		a.Status = AccountStatusActive
	}
	a.LastError = ""
	a.LastErrorAt = nil
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	a.AddDomainEvent(NewChannelAccountUpdatedEvent(a))

	return nil
}

// Activate resumes message handling for the account
func (a *ChannelAccount) Activate() error {
	if a.Status == AccountStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Channel account is already active")
	}

	a.Status = AccountStatusActive
	a.LastError = ""
	a.LastErrorAt = nil
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	a.AddDomainEvent(NewChannelAccountActivatedEvent(a))

	return nil
}

// Deactivate stops message handling. Webhooks for an inactive account
// are acknowledged and dropped so the vendor does not retry.
func (a *ChannelAccount) Deactivate() error {
	if a.Status == AccountStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Channel account is already inactive")
	}

	a.Status = AccountStatusInactive
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	a.AddDomainEvent(NewChannelAccountDeactivatedEvent(a))

	return nil
}

// RecordError puts the account into the error state with the reason
func (a *ChannelAccount) RecordError(message string) {
	if len(message) > maxAccountErrorLength {
		message = message[:maxAccountErrorLength]
	}

	now := time.Now()
	a.Status = AccountStatusError
	a.LastError = message
	a.LastErrorAt = &now
	a.UpdatedAt = now
	a.IncrementVersion()

	a.AddDomainEvent(NewChannelAccountErroredEvent(a))
}

// IsActive returns true if the account handles messages
func (a *ChannelAccount) IsActive() bool {
	return a.Status == AccountStatusActive
}

// CanReceive returns true if inbound webhooks should be processed
func (a *ChannelAccount) CanReceive() bool {
	return a.Status == AccountStatusActive
}

// Validation functions

func validateAccountName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Account name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_NAME", "Account name cannot exceed 100 characters")
	}
	return nil
}

func validateCredentials(credentials string) error {
	if strings.TrimSpace(credentials) == "" {
		return shared.NewDomainError("INVALID_CREDENTIALS", "Credentials cannot be empty")
	}
	if !json.Valid([]byte(credentials)) {
		return shared.NewDomainError("INVALID_CREDENTIALS", "Credentials must be valid JSON")
	}
	return nil
}
