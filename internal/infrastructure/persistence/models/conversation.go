package models

import (
	"encoding/json"
	"time"

	"github.com/chatforge/backend/internal/domain/conversation"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ConversationModel is the persistence model for the Conversation aggregate.
type ConversationModel struct {
	TenantAggregateModel
	BotID            uuid.UUID                       `gorm:"type:uuid;not null;index:idx_conversation_bot,priority:1"`
	Channel          conversation.Channel            `gorm:"type:varchar(20);not null;index:idx_conversation_visitor,priority:2"`
	VisitorID        string                          `gorm:"type:varchar(200);not null;index:idx_conversation_visitor,priority:3"`
	VisitorEmail     string                          `gorm:"type:varchar(200)"`
	VisitorName      string                          `gorm:"type:varchar(200)"`
	Status           conversation.ConversationStatus `gorm:"type:varchar(20);not null;default:'active'"`
	ExternalThreadID string                          `gorm:"type:varchar(200);index"`
	MessageCount     int                             `gorm:"not null;default:0"`
	LastMessageAt    *time.Time                      `gorm:"index"`
	ClosedAt         *time.Time
}

// TableName returns the table name for GORM
func (ConversationModel) TableName() string {
	return "conversations"
}

// ToDomain converts the persistence model to a domain Conversation entity.
func (m *ConversationModel) ToDomain() *conversation.Conversation {
	c := &conversation.Conversation{
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
		BotID:            m.BotID,
		Channel:          m.Channel,
		VisitorID:        m.VisitorID,
		VisitorEmail:     m.VisitorEmail,
		VisitorName:      m.VisitorName,
		Status:           m.Status,
		ExternalThreadID: m.ExternalThreadID,
		MessageCount:     m.MessageCount,
		LastMessageAt:    m.LastMessageAt,
		ClosedAt:         m.ClosedAt,
	}
	return c
}

// FromDomain populates the persistence model from a domain Conversation entity.
func (m *ConversationModel) FromDomain(c *conversation.Conversation) {
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	m.BotID = c.BotID
	m.Channel = c.Channel
	m.VisitorID = c.VisitorID
	m.VisitorEmail = c.VisitorEmail
	m.VisitorName = c.VisitorName
	m.Status = c.Status
	m.ExternalThreadID = c.ExternalThreadID
	m.MessageCount = c.MessageCount
	m.LastMessageAt = c.LastMessageAt
	m.ClosedAt = c.ClosedAt
}

// ConversationModelFromDomain creates a persistence model from a domain Conversation entity.
func ConversationModelFromDomain(c *conversation.Conversation) *ConversationModel {
	m := &ConversationModel{}
	m.FromDomain(c)
	return m
}

// MessageModel is the persistence model for conversation messages.
type MessageModel struct {
	BaseModel
	TenantID         uuid.UUID                `gorm:"type:uuid;not null;index"`
	ConversationID   uuid.UUID                `gorm:"type:uuid;not null;uniqueIndex:idx_message_conversation_seq,priority:1"`
	Sequence         int                      `gorm:"not null;uniqueIndex:idx_message_conversation_seq,priority:2"`
	Role             conversation.MessageRole `gorm:"type:varchar(20);not null"`
	Content          string                   `gorm:"type:text;not null"`
	Provider         string                   `gorm:"type:varchar(30)"`
	Model            string                   `gorm:"type:varchar(100)"`
	TokensPrompt     int                      `gorm:"not null;default:0"`
	TokensCompletion int                      `gorm:"not null;default:0"`
	LatencyMS        int64                    `gorm:"not null;default:0"`
	SourcesJSON      string                   `gorm:"type:jsonb;column:sources"`
	FailureReason    string                   `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts the persistence model to a domain Message entity.
func (m *MessageModel) ToDomain() *conversation.Message {
	msg := &conversation.Message{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		TenantID:         m.TenantID,
		ConversationID:   m.ConversationID,
		Sequence:         m.Sequence,
		Role:             m.Role,
		Content:          m.Content,
		Provider:         m.Provider,
		Model:            m.Model,
		TokensPrompt:     m.TokensPrompt,
		TokensCompletion: m.TokensCompletion,
		LatencyMS:        m.LatencyMS,
		FailureReason:    m.FailureReason,
		Sources:          make([]conversation.ChunkRef, 0),
	}

	if m.SourcesJSON != "" {
		var sources []conversation.ChunkRef
		if err := json.Unmarshal([]byte(m.SourcesJSON), &sources); err == nil {
			msg.Sources = sources
		}
	}

	return msg
}

// FromDomain populates the persistence model from a domain Message entity.
func (m *MessageModel) FromDomain(msg *conversation.Message) {
	m.FromDomainBaseEntity(msg.BaseEntity)
	m.TenantID = msg.TenantID
	m.ConversationID = msg.ConversationID
	m.Sequence = msg.Sequence
	m.Role = msg.Role
	m.Content = msg.Content
	m.Provider = msg.Provider
	m.Model = msg.Model
	m.TokensPrompt = msg.TokensPrompt
	m.TokensCompletion = msg.TokensCompletion
	m.LatencyMS = msg.LatencyMS
	m.FailureReason = msg.FailureReason

	if len(msg.Sources) > 0 {
		if data, err := json.Marshal(msg.Sources); err == nil {
			m.SourcesJSON = string(data)
		}
	} else {
		m.SourcesJSON = ""
	}
}

// MessageModelFromDomain creates a persistence model from a domain Message entity.
func MessageModelFromDomain(msg *conversation.Message) *MessageModel {
	m := &MessageModel{}
	m.FromDomain(msg)
	return m
}
