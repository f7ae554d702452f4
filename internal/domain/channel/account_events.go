package channel

import (
	"github.com/chatforge/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeChannelAccount = "ChannelAccount"

// Event type constants
const (
	EventTypeChannelAccountCreated     = "ChannelAccountCreated"
	EventTypeChannelAccountUpdated     = "ChannelAccountUpdated"
	EventTypeChannelAccountActivated   = "ChannelAccountActivated"
	EventTypeChannelAccountDeactivated = "ChannelAccountDeactivated"
	EventTypeChannelAccountErrored     = "ChannelAccountErrored"
	EventTypeChannelAccountDeleted     = "ChannelAccountDeleted"
)

// ChannelAccountCreatedEvent is published when a bot is connected to a
// channel
type ChannelAccountCreatedEvent struct {
	shared.BaseDomainEvent
	BotID       string      `json:"bot_id"`
	ChannelType ChannelType `json:"channel_type"`
	Name        string      `json:"name"`
}

// NewChannelAccountCreatedEvent creates a new ChannelAccountCreatedEvent
func NewChannelAccountCreatedEvent(a *ChannelAccount) *ChannelAccountCreatedEvent {
	return &ChannelAccountCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChannelAccountCreated, AggregateTypeChannelAccount, a.ID, a.TenantID),
		BotID:           a.BotID.String(),
		ChannelType:     a.ChannelType,
		Name:            a.Name,
	}
}

// ChannelAccountUpdatedEvent is published when credentials change
type ChannelAccountUpdatedEvent struct {
	shared.BaseDomainEvent
	ChannelType ChannelType `json:"channel_type"`
	Name        string      `json:"name"`
}

// NewChannelAccountUpdatedEvent creates a new ChannelAccountUpdatedEvent
func NewChannelAccountUpdatedEvent(a *ChannelAccount) *ChannelAccountUpdatedEvent {
	return &ChannelAccountUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChannelAccountUpdated, AggregateTypeChannelAccount, a.ID, a.TenantID),
		ChannelType:     a.ChannelType,
		Name:            a.Name,
	}
}

// ChannelAccountActivatedEvent is published when an account resumes
// handling messages
type ChannelAccountActivatedEvent struct {
	shared.BaseDomainEvent
	ChannelType ChannelType `json:"channel_type"`
}

// NewChannelAccountActivatedEvent creates a new ChannelAccountActivatedEvent
func NewChannelAccountActivatedEvent(a *ChannelAccount) *ChannelAccountActivatedEvent {
	return &ChannelAccountActivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChannelAccountActivated, AggregateTypeChannelAccount, a.ID, a.TenantID),
		ChannelType:     a.ChannelType,
	}
}

// ChannelAccountDeactivatedEvent is published when an account stops
// handling messages
type ChannelAccountDeactivatedEvent struct {
	shared.BaseDomainEvent
	ChannelType ChannelType `json:"channel_type"`
}

// NewChannelAccountDeactivatedEvent creates a new ChannelAccountDeactivatedEvent
func NewChannelAccountDeactivatedEvent(a *ChannelAccount) *ChannelAccountDeactivatedEvent {
	return &ChannelAccountDeactivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChannelAccountDeactivated, AggregateTypeChannelAccount, a.ID, a.TenantID),
		ChannelType:     a.ChannelType,
	}
}

// ChannelAccountErroredEvent is published when delivery or verification
// fails for an account
type ChannelAccountErroredEvent struct {
	shared.BaseDomainEvent
	ChannelType ChannelType `json:"channel_type"`
	Reason      string      `json:"reason"`
}

// NewChannelAccountErroredEvent creates a new ChannelAccountErroredEvent
func NewChannelAccountErroredEvent(a *ChannelAccount) *ChannelAccountErroredEvent {
	return &ChannelAccountErroredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChannelAccountErrored, AggregateTypeChannelAccount, a.ID, a.TenantID),
		ChannelType:     a.ChannelType,
		Reason:          a.LastError,
	}
}

// ChannelAccountDeletedEvent is published when an account is removed
type ChannelAccountDeletedEvent struct {
	shared.BaseDomainEvent
	ChannelType ChannelType `json:"channel_type"`
	Name        string      `json:"name"`
}

// NewChannelAccountDeletedEvent creates a new ChannelAccountDeletedEvent
func NewChannelAccountDeletedEvent(a *ChannelAccount) *ChannelAccountDeletedEvent {
	return &ChannelAccountDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChannelAccountDeleted, AggregateTypeChannelAccount, a.ID, a.TenantID),
		ChannelType:     a.ChannelType,
		Name:            a.Name,
	}
}
