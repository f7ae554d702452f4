package conversation

import (
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant
const AggregateTypeConversation = "Conversation"

// Event type constants
const (
	EventTypeConversationStarted   = "ConversationStarted"
	EventTypeConversationHandedOff = "ConversationHandedOff"
	EventTypeConversationClosed    = "ConversationClosed"
	EventTypeConversationReopened  = "ConversationReopened"
	EventTypeVisitorIdentified     = "VisitorIdentified"
	EventTypeMessageProcessed      = "MessageProcessed"
)

// ConversationStartedEvent is published when a conversation starts
type ConversationStartedEvent struct {
	shared.BaseDomainEvent
	BotID     uuid.UUID `json:"bot_id"`
	Channel   Channel   `json:"channel"`
	VisitorID string    `json:"visitor_id"`
}

// NewConversationStartedEvent creates a new ConversationStartedEvent
func NewConversationStartedEvent(c *Conversation) *ConversationStartedEvent {
	return &ConversationStartedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConversationStarted, AggregateTypeConversation, c.ID, c.TenantID),
		BotID:           c.BotID,
		Channel:         c.Channel,
		VisitorID:       c.VisitorID,
	}
}

// ConversationHandedOffEvent is published when a human agent takes over
type ConversationHandedOffEvent struct {
	shared.BaseDomainEvent
	BotID   uuid.UUID `json:"bot_id"`
	Channel Channel   `json:"channel"`
}

// NewConversationHandedOffEvent creates a new ConversationHandedOffEvent
func NewConversationHandedOffEvent(c *Conversation) *ConversationHandedOffEvent {
	return &ConversationHandedOffEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConversationHandedOff, AggregateTypeConversation, c.ID, c.TenantID),
		BotID:           c.BotID,
		Channel:         c.Channel,
	}
}

// ConversationClosedEvent is published when a conversation closes
type ConversationClosedEvent struct {
	shared.BaseDomainEvent
	BotID        uuid.UUID `json:"bot_id"`
	MessageCount int       `json:"message_count"`
}

// NewConversationClosedEvent creates a new ConversationClosedEvent
func NewConversationClosedEvent(c *Conversation) *ConversationClosedEvent {
	return &ConversationClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConversationClosed, AggregateTypeConversation, c.ID, c.TenantID),
		BotID:           c.BotID,
		MessageCount:    c.MessageCount,
	}
}

// ConversationReopenedEvent is published when a conversation reopens
type ConversationReopenedEvent struct {
	shared.BaseDomainEvent
	BotID uuid.UUID `json:"bot_id"`
}

// NewConversationReopenedEvent creates a new ConversationReopenedEvent
func NewConversationReopenedEvent(c *Conversation) *ConversationReopenedEvent {
	return &ConversationReopenedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConversationReopened, AggregateTypeConversation, c.ID, c.TenantID),
		BotID:           c.BotID,
	}
}

// VisitorIdentifiedEvent is published the first time a visitor shares
// an email address. The CRM sync handler subscribes to it.
type VisitorIdentifiedEvent struct {
	shared.BaseDomainEvent
	BotID        uuid.UUID `json:"bot_id"`
	VisitorEmail string    `json:"visitor_email"`
	VisitorName  string    `json:"visitor_name,omitempty"`
	Channel      Channel   `json:"channel"`
}

// NewVisitorIdentifiedEvent creates a new VisitorIdentifiedEvent
func NewVisitorIdentifiedEvent(c *Conversation) *VisitorIdentifiedEvent {
	return &VisitorIdentifiedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVisitorIdentified, AggregateTypeConversation, c.ID, c.TenantID),
		BotID:           c.BotID,
		VisitorEmail:    c.VisitorEmail,
		VisitorName:     c.VisitorName,
		Channel:         c.Channel,
	}
}

// MessageProcessedEvent is published after the engine persists an
// assistant reply. The usage recorder subscribes to it.
type MessageProcessedEvent struct {
	shared.BaseDomainEvent
	BotID            uuid.UUID `json:"bot_id"`
	MessageID        uuid.UUID `json:"message_id"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	TokensPrompt     int       `json:"tokens_prompt"`
	TokensCompletion int       `json:"tokens_completion"`
	LatencyMS        int64     `json:"latency_ms"`
}

// NewMessageProcessedEvent creates a new MessageProcessedEvent
func NewMessageProcessedEvent(c *Conversation, m *Message) *MessageProcessedEvent {
	return &MessageProcessedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeMessageProcessed, AggregateTypeConversation, c.ID, c.TenantID),
		BotID:            c.BotID,
		MessageID:        m.ID,
		Provider:         m.Provider,
		Model:            m.Model,
		TokensPrompt:     m.TokensPrompt,
		TokensCompletion: m.TokensCompletion,
		LatencyMS:        m.LatencyMS,
	}
}
