package conversation

import (
	"strings"
	"time"

	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Channel identifies the surface a conversation arrived on
type Channel string

const (
	ChannelWeb      Channel = "web"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelTelegram Channel = "telegram"
	ChannelSlack    Channel = "slack"
	ChannelDiscord  Channel = "discord"
)

// ConversationStatus represents the status of a conversation
type ConversationStatus string

const (
	ConversationStatusActive    ConversationStatus = "active"     // Bot replies automatically
	ConversationStatusHandedOff ConversationStatus = "handed_off" // A human agent took over
	ConversationStatusClosed    ConversationStatus = "closed"
)

// Conversation represents a chat session between a visitor and a bot
// It is the aggregate root for conversation-related operations
type Conversation struct {
	shared.TenantAggregateRoot
	BotID            uuid.UUID
	Channel          Channel
	VisitorID        string // Stable per external user or widget session
	VisitorEmail     string
	VisitorName      string
	Status           ConversationStatus
	ExternalThreadID string // Vendor-side thread/chat identifier for channel conversations
	MessageCount     int
	LastMessageAt    *time.Time
	ClosedAt         *time.Time
}

// NewConversation starts a new conversation for a visitor
func NewConversation(tenantID, botID uuid.UUID, channel Channel, visitorID string) (*Conversation, error) {
	if botID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BOT_ID", "Bot ID cannot be empty")
	}
	if err := validateChannel(channel); err != nil {
		return nil, err
	}
	visitorID = strings.TrimSpace(visitorID)
	if visitorID == "" {
		return nil, shared.NewDomainError("INVALID_VISITOR_ID", "Visitor ID cannot be empty")
	}
	if len(visitorID) > 200 {
		return nil, shared.NewDomainError("INVALID_VISITOR_ID", "Visitor ID cannot exceed 200 characters")
	}

	c := &Conversation{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		BotID:               botID,
		Channel:             channel,
		VisitorID:           visitorID,
		Status:              ConversationStatusActive,
	}

	c.AddDomainEvent(NewConversationStartedEvent(c))

	return c, nil
}

// SetExternalThread links the conversation to a vendor-side thread
func (c *Conversation) SetExternalThread(threadID string) error {
	if len(threadID) > 200 {
		return shared.NewDomainError("INVALID_THREAD_ID", "External thread ID cannot exceed 200 characters")
	}

	c.ExternalThreadID = threadID
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	return nil
}

// SetVisitorContact records contact details the visitor shared
func (c *Conversation) SetVisitorContact(email, name string) error {
	if email != "" && len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if name != "" && len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Name cannot exceed 200 characters")
	}

	hadEmail := c.VisitorEmail != ""
	c.VisitorEmail = strings.ToLower(strings.TrimSpace(email))
	c.VisitorName = strings.TrimSpace(name)
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	// First captured email is a lead for CRM sync
	if !hadEmail && c.VisitorEmail != "" {
		c.AddDomainEvent(NewVisitorIdentifiedEvent(c))
	}

	return nil
}

// RecordMessage updates the running counters after a message append.
// Called once per persisted message.
func (c *Conversation) RecordMessage(at time.Time) {
	c.MessageCount++
	c.LastMessageAt = &at
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// HandOff marks the conversation as taken over by a human agent.
// The bot stops replying; user messages are still stored.
func (c *Conversation) HandOff() error {
	if c.Status == ConversationStatusHandedOff {
		return shared.NewDomainError("ALREADY_HANDED_OFF", "Conversation is already handed off")
	}
	if c.Status == ConversationStatusClosed {
		return shared.NewDomainError("CONVERSATION_CLOSED", "Cannot hand off a closed conversation")
	}

	c.Status = ConversationStatusHandedOff
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	c.AddDomainEvent(NewConversationHandedOffEvent(c))

	return nil
}

// Close closes the conversation
func (c *Conversation) Close() error {
	if c.Status == ConversationStatusClosed {
		return shared.NewDomainError("ALREADY_CLOSED", "Conversation is already closed")
	}

	now := time.Now()
	c.Status = ConversationStatusClosed
	c.ClosedAt = &now
	c.UpdatedAt = now
	c.IncrementVersion()

	c.AddDomainEvent(NewConversationClosedEvent(c))

	return nil
}

// Reopen returns a closed or handed-off conversation to the bot
func (c *Conversation) Reopen() error {
	if c.Status == ConversationStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Conversation is already active")
	}

	c.Status = ConversationStatusActive
	c.ClosedAt = nil
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	c.AddDomainEvent(NewConversationReopenedEvent(c))

	return nil
}

// IsActive returns true if the conversation is active
func (c *Conversation) IsActive() bool {
	return c.Status == ConversationStatusActive
}

// IsClosed returns true if the conversation is closed
func (c *Conversation) IsClosed() bool {
	return c.Status == ConversationStatusClosed
}

// IsHandedOff returns true if a human agent owns the conversation
func (c *Conversation) IsHandedOff() bool {
	return c.Status == ConversationStatusHandedOff
}

// CanBotReply returns true if the engine may generate a reply
func (c *Conversation) CanBotReply() bool {
	return c.Status == ConversationStatusActive
}

func validateChannel(channel Channel) error {
	switch channel {
	case ChannelWeb, ChannelWhatsApp, ChannelTelegram, ChannelSlack, ChannelDiscord:
		return nil
	default:
		return shared.NewDomainError("INVALID_CHANNEL", "Invalid conversation channel")
	}
}
