package conversation

import (
	"strings"
	"time"

	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MessageRole identifies who authored a message
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// Maximum accepted length for a single message
const MaxMessageLength = 8000

// ChunkRef points at a knowledge chunk an assistant reply was grounded on
type ChunkRef struct {
	DocumentID   uuid.UUID `json:"document_id"`
	ChunkID      uuid.UUID `json:"chunk_id"`
	DocumentName string    `json:"document_name"`
	Score        float64   `json:"score"`
}

// Message is a single turn in a conversation.
// Messages are immutable once created, except for failure annotation
// on user messages when reply generation fails.
type Message struct {
	shared.BaseEntity
	TenantID         uuid.UUID
	ConversationID   uuid.UUID
	Sequence         int // Dense per conversation, assigned by the repository
	Role             MessageRole
	Content          string
	Provider         string
	Model            string
	TokensPrompt     int
	TokensCompletion int
	LatencyMS        int64
	Sources          []ChunkRef
	FailureReason    string
}

// NewUserMessage creates a message authored by the visitor
func NewUserMessage(tenantID, conversationID uuid.UUID, content string) (*Message, error) {
	if err := validateMessageContent(content); err != nil {
		return nil, err
	}

	return &Message{
		BaseEntity:     shared.NewBaseEntity(),
		TenantID:       tenantID,
		ConversationID: conversationID,
		Role:           MessageRoleUser,
		Content:        content,
	}, nil
}

// AssistantUsage carries the generation metadata of an assistant reply
type AssistantUsage struct {
	Provider         string
	Model            string
	TokensPrompt     int
	TokensCompletion int
	LatencyMS        int64
}

// NewAssistantMessage creates a bot reply with its generation metadata
func NewAssistantMessage(tenantID, conversationID uuid.UUID, content string, usage AssistantUsage, sources []ChunkRef) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, shared.NewDomainError("EMPTY_REPLY", "Assistant reply cannot be empty")
	}

	return &Message{
		BaseEntity:       shared.NewBaseEntity(),
		TenantID:         tenantID,
		ConversationID:   conversationID,
		Role:             MessageRoleAssistant,
		Content:          content,
		Provider:         usage.Provider,
		Model:            usage.Model,
		TokensPrompt:     usage.TokensPrompt,
		TokensCompletion: usage.TokensCompletion,
		LatencyMS:        usage.LatencyMS,
		Sources:          sources,
	}, nil
}

// MarkFailed annotates a user message whose reply generation failed
func (m *Message) MarkFailed(reason string) {
	if len(reason) > 500 {
		reason = reason[:500]
	}
	m.FailureReason = reason
	m.UpdatedAt = time.Now()
}

// TotalTokens returns prompt + completion token usage
func (m *Message) TotalTokens() int {
	return m.TokensPrompt + m.TokensCompletion
}

// IsFromVisitor returns true for user-authored messages
func (m *Message) IsFromVisitor() bool {
	return m.Role == MessageRoleUser
}

func validateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return shared.NewDomainError("EMPTY_MESSAGE", "Message content cannot be empty")
	}
	if len(content) > MaxMessageLength {
		return shared.NewDomainError("MESSAGE_TOO_LONG", "Message content cannot exceed 8000 characters")
	}
	return nil
}
