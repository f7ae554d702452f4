package conversation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ConversationRepository defines the interface for conversation persistence
type ConversationRepository interface {
	// Create creates a new conversation
	Create(ctx context.Context, c *Conversation) error

	// Update updates an existing conversation
	Update(ctx context.Context, c *Conversation) error

	// FindByID finds a conversation by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Conversation, error)

	// FindActiveByVisitor finds the most recent active conversation for a
	// visitor on a bot and channel, if its last activity is within idleWindow.
	// Used to resume instead of starting a new session.
	FindActiveByVisitor(ctx context.Context, botID uuid.UUID, channel Channel, visitorID string, idleWindow time.Duration) (*Conversation, error)

	// FindByExternalThread finds a conversation by its vendor-side thread ID
	FindByExternalThread(ctx context.Context, botID uuid.UUID, channel Channel, externalThreadID string) (*Conversation, error)

	// FindAll returns conversations for the current tenant with pagination
	FindAll(ctx context.Context, filter ConversationFilter) ([]*Conversation, int64, error)

	// Count returns the total number of conversations for the tenant
	Count(ctx context.Context) (int64, error)

	// CountByBot counts conversations of a bot
	CountByBot(ctx context.Context, botID uuid.UUID) (int64, error)
}

// MessageRepository defines the interface for message persistence
type MessageRepository interface {
	// Create persists a message, assigning the next sequence number
	// within its conversation
	Create(ctx context.Context, m *Message) error

	// Update updates a message (failure annotation only)
	Update(ctx context.Context, m *Message) error

	// FindByID finds a message by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Message, error)

	// FindByConversation returns the transcript of a conversation ordered
	// by creation time then sequence
	FindByConversation(ctx context.Context, conversationID uuid.UUID, filter MessageFilter) ([]*Message, int64, error)

	// FindRecent returns the latest N messages of a conversation in
	// chronological order, for the engine's history window
	FindRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]*Message, error)

	// CountByConversation counts messages in a conversation
	CountByConversation(ctx context.Context, conversationID uuid.UUID) (int64, error)
}

// ConversationFilter contains filter options for querying conversations
type ConversationFilter struct {
	// Filter by bot
	BotID *uuid.UUID

	// Filter by channel
	Channel *Channel

	// Filter by status
	Status *ConversationStatus

	// Search keyword for visitor ID, email, or name
	Keyword string

	// Only conversations with activity after this time
	Since *time.Time

	// Pagination
	Page     int
	PageSize int

	// Sorting
	SortBy    string
	SortOrder string // "asc" or "desc"
}

// NewConversationFilter creates a filter with default values
func NewConversationFilter() ConversationFilter {
	return ConversationFilter{
		Page:      1,
		PageSize:  20,
		SortBy:    "last_message_at",
		SortOrder: "desc",
	}
}

// WithBot sets the bot filter
func (f ConversationFilter) WithBot(botID uuid.UUID) ConversationFilter {
	f.BotID = &botID
	return f
}

// WithChannel sets the channel filter
func (f ConversationFilter) WithChannel(channel Channel) ConversationFilter {
	f.Channel = &channel
	return f
}

// WithStatus sets the status filter
func (f ConversationFilter) WithStatus(status ConversationStatus) ConversationFilter {
	f.Status = &status
	return f
}

// WithPagination sets pagination parameters
func (f ConversationFilter) WithPagination(page, pageSize int) ConversationFilter {
	f.Page = page
	f.PageSize = pageSize
	return f
}

// Offset returns the offset for pagination
func (f ConversationFilter) Offset() int {
	if f.Page <= 0 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Limit returns the limit for pagination
func (f ConversationFilter) Limit() int {
	if f.PageSize <= 0 {
		return 20
	}
	if f.PageSize > 100 {
		return 100
	}
	return f.PageSize
}

// MessageFilter contains pagination options for transcripts
type MessageFilter struct {
	Page     int
	PageSize int
}

// NewMessageFilter creates a filter with default values
func NewMessageFilter() MessageFilter {
	return MessageFilter{
		Page:     1,
		PageSize: 50,
	}
}

// Offset returns the offset for pagination
func (f MessageFilter) Offset() int {
	if f.Page <= 0 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Limit returns the limit for pagination
func (f MessageFilter) Limit() int {
	if f.PageSize <= 0 {
		return 50
	}
	if f.PageSize > 200 {
		return 200
	}
	return f.PageSize
}
