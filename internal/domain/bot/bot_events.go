package bot

import (
	"github.com/chatforge/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeBot = "Bot"

// Event type constants
const (
	EventTypeBotCreated              = "BotCreated"
	EventTypeBotUpdated              = "BotUpdated"
	EventTypeBotModelSettingsChanged = "BotModelSettingsChanged"
	EventTypeBotPublished            = "BotPublished"
	EventTypeBotUnpublished          = "BotUnpublished"
	EventTypeBotArchived             = "BotArchived"
	EventTypeBotWidgetKeyRotated     = "BotWidgetKeyRotated"
	EventTypeBotDeleted              = "BotDeleted"
)

// BotCreatedEvent is published when a new bot is created
type BotCreatedEvent struct {
	shared.BaseDomainEvent
	Name   string    `json:"name"`
	Slug   string    `json:"slug"`
	Status BotStatus `json:"status"`
}

// NewBotCreatedEvent creates a new BotCreatedEvent
func NewBotCreatedEvent(b *Bot) *BotCreatedEvent {
	return &BotCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBotCreated, AggregateTypeBot, b.ID, b.TenantID),
		Name:            b.Name,
		Slug:            b.Slug,
		Status:          b.Status,
	}
}

// BotUpdatedEvent is published when a bot's configuration changes
type BotUpdatedEvent struct {
	shared.BaseDomainEvent
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// NewBotUpdatedEvent creates a new BotUpdatedEvent
func NewBotUpdatedEvent(b *Bot) *BotUpdatedEvent {
	return &BotUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBotUpdated, AggregateTypeBot, b.ID, b.TenantID),
		Name:            b.Name,
		Slug:            b.Slug,
	}
}

// BotModelSettingsChangedEvent is published when model settings change
type BotModelSettingsChangedEvent struct {
	shared.BaseDomainEvent
	Provider ModelProvider `json:"provider"`
	Model    string        `json:"model"`
}

// NewBotModelSettingsChangedEvent creates a new BotModelSettingsChangedEvent
func NewBotModelSettingsChangedEvent(b *Bot) *BotModelSettingsChangedEvent {
	return &BotModelSettingsChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBotModelSettingsChanged, AggregateTypeBot, b.ID, b.TenantID),
		Provider:        b.ModelSettings.Provider,
		Model:           b.ModelSettings.Model,
	}
}

// BotPublishedEvent is published when a bot goes live
type BotPublishedEvent struct {
	shared.BaseDomainEvent
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// NewBotPublishedEvent creates a new BotPublishedEvent
func NewBotPublishedEvent(b *Bot) *BotPublishedEvent {
	return &BotPublishedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBotPublished, AggregateTypeBot, b.ID, b.TenantID),
		Name:            b.Name,
		Slug:            b.Slug,
	}
}

// BotUnpublishedEvent is published when a bot is taken offline
type BotUnpublishedEvent struct {
	shared.BaseDomainEvent
	Name string `json:"name"`
}

// NewBotUnpublishedEvent creates a new BotUnpublishedEvent
func NewBotUnpublishedEvent(b *Bot) *BotUnpublishedEvent {
	return &BotUnpublishedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBotUnpublished, AggregateTypeBot, b.ID, b.TenantID),
		Name:            b.Name,
	}
}

// BotArchivedEvent is published when a bot is archived.
// Channel bindings listen for this to deactivate themselves.
type BotArchivedEvent struct {
	shared.BaseDomainEvent
	Name string `json:"name"`
}

// NewBotArchivedEvent creates a new BotArchivedEvent
func NewBotArchivedEvent(b *Bot) *BotArchivedEvent {
	return &BotArchivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBotArchived, AggregateTypeBot, b.ID, b.TenantID),
		Name:            b.Name,
	}
}

// BotWidgetKeyRotatedEvent is published when the widget key is rotated
type BotWidgetKeyRotatedEvent struct {
	shared.BaseDomainEvent
	OldKey string `json:"old_key"`
}

// NewBotWidgetKeyRotatedEvent creates a new BotWidgetKeyRotatedEvent
func NewBotWidgetKeyRotatedEvent(b *Bot, oldKey string) *BotWidgetKeyRotatedEvent {
	return &BotWidgetKeyRotatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBotWidgetKeyRotated, AggregateTypeBot, b.ID, b.TenantID),
		OldKey:          oldKey,
	}
}

// BotDeletedEvent is published when a bot is deleted
type BotDeletedEvent struct {
	shared.BaseDomainEvent
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// NewBotDeletedEvent creates a new BotDeletedEvent
func NewBotDeletedEvent(b *Bot) *BotDeletedEvent {
	return &BotDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBotDeleted, AggregateTypeBot, b.ID, b.TenantID),
		Name:            b.Name,
		Slug:            b.Slug,
	}
}
