package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/chatforge/backend/internal/domain/conversation"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultIdleWindow is how long a visitor's conversation stays resumable
// before a new message opens a fresh one
const DefaultIdleWindow = 24 * time.Hour

// ReplyGenerator produces the assistant answer to a persisted user message
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, c *conversation.Conversation, userMsg *conversation.Message) (*conversation.Message, error)
}

// ConversationService handles conversation lifecycle and messaging
type ConversationService struct {
	convRepo   conversation.ConversationRepository
	msgRepo    conversation.MessageRepository
	engine     ReplyGenerator
	history    HistoryCache
	idleWindow time.Duration
	logger     *zap.Logger
}

// NewConversationService creates a new conversation service. The history
// cache is optional and only used to drop stale windows on reopen.
func NewConversationService(
	convRepo conversation.ConversationRepository,
	msgRepo conversation.MessageRepository,
	engine ReplyGenerator,
	history HistoryCache,
	idleWindow time.Duration,
	logger *zap.Logger,
) *ConversationService {
	if idleWindow <= 0 {
		idleWindow = DefaultIdleWindow
	}
	return &ConversationService{
		convRepo:   convRepo,
		msgRepo:    msgRepo,
		engine:     engine,
		history:    history,
		idleWindow: idleWindow,
		logger:     logger,
	}
}

// StartConversationInput contains input for starting or resuming a conversation
type StartConversationInput struct {
	TenantID         uuid.UUID
	BotID            uuid.UUID
	Channel          conversation.Channel
	VisitorID        string
	ExternalThreadID string
}

// SendMessageInput contains input for appending a visitor message
type SendMessageInput struct {
	ConversationID uuid.UUID
	Content        string
}

// IdentifyVisitorInput contains input for attaching visitor contact details
type IdentifyVisitorInput struct {
	ConversationID uuid.UUID
	Email          string
	Name           string
}

// ListConversationsInput contains input for listing conversations
type ListConversationsInput struct {
	BotID     *uuid.UUID
	Channel   string
	Status    string
	Keyword   string
	Since     *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// ChunkRefDTO points at a knowledge chunk cited by a reply
type ChunkRefDTO struct {
	DocumentID   uuid.UUID `json:"document_id"`
	ChunkID      uuid.UUID `json:"chunk_id"`
	DocumentName string    `json:"document_name"`
	Score        float64   `json:"score"`
}

// MessageDTO represents a single message of a transcript
type MessageDTO struct {
	ID               uuid.UUID     `json:"id"`
	ConversationID   uuid.UUID     `json:"conversation_id"`
	Sequence         int           `json:"sequence"`
	Role             string        `json:"role"`
	Content          string        `json:"content"`
	Provider         string        `json:"provider,omitempty"`
	Model            string        `json:"model,omitempty"`
	TokensPrompt     int           `json:"tokens_prompt,omitempty"`
	TokensCompletion int           `json:"tokens_completion,omitempty"`
	LatencyMS        int64         `json:"latency_ms,omitempty"`
	Sources          []ChunkRefDTO `json:"sources,omitempty"`
	FailureReason    string        `json:"failure_reason,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}

// ConversationDTO represents conversation data transfer object
type ConversationDTO struct {
	ID               uuid.UUID  `json:"id"`
	TenantID         uuid.UUID  `json:"tenant_id"`
	BotID            uuid.UUID  `json:"bot_id"`
	Channel          string     `json:"channel"`
	VisitorID        string     `json:"visitor_id"`
	VisitorEmail     string     `json:"visitor_email,omitempty"`
	VisitorName      string     `json:"visitor_name,omitempty"`
	Status           string     `json:"status"`
	ExternalThreadID string     `json:"external_thread_id,omitempty"`
	MessageCount     int        `json:"message_count"`
	LastMessageAt    *time.Time `json:"last_message_at,omitempty"`
	ClosedAt         *time.Time `json:"closed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ReplyResultDTO is the outcome of appending a visitor message.
// Reply is nil when the bot did not answer, such as after a hand off.
type ReplyResultDTO struct {
	Conversation *ConversationDTO `json:"conversation"`
	UserMessage  *MessageDTO      `json:"user_message"`
	Reply        *MessageDTO      `json:"reply,omitempty"`
}

// ConversationListResult represents paginated conversation list result
type ConversationListResult struct {
	Conversations []ConversationDTO `json:"conversations"`
	Total         int64             `json:"total"`
	Page          int               `json:"page"`
	PageSize      int               `json:"page_size"`
	TotalPages    int               `json:"total_pages"`
}

// TranscriptResult represents a paginated conversation transcript
type TranscriptResult struct {
	Conversation *ConversationDTO `json:"conversation"`
	Messages     []MessageDTO     `json:"messages"`
	Total        int64            `json:"total"`
	Page         int              `json:"page"`
	PageSize     int              `json:"page_size"`
	TotalPages   int              `json:"total_pages"`
}

// StartOrResume returns the visitor's active conversation on the bot and
// channel when one exists within the idle window, otherwise starts a new one
func (s *ConversationService) StartOrResume(ctx context.Context, input StartConversationInput) (*ConversationDTO, error) {
	existing, err := s.convRepo.FindActiveByVisitor(ctx, input.BotID, input.Channel, input.VisitorID, s.idleWindow)
	if err == nil {
		return s.toConversationDTO(existing), nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		s.logger.Error("Failed to look up visitor conversation",
			zap.String("bot_id", input.BotID.String()),
			zap.String("visitor_id", input.VisitorID),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to look up conversation")
	}

	s.logger.Info("Starting new conversation",
		zap.String("bot_id", input.BotID.String()),
		zap.String("channel", string(input.Channel)),
		zap.String("visitor_id", input.VisitorID))

	c, err := conversation.NewConversation(input.TenantID, input.BotID, input.Channel, input.VisitorID)
	if err != nil {
		return nil, err
	}
	if input.ExternalThreadID != "" {
		if err := c.SetExternalThread(input.ExternalThreadID); err != nil {
			return nil, err
		}
	}

	if err := s.convRepo.Create(ctx, c); err != nil {
		s.logger.Error("Failed to create conversation",
			zap.String("bot_id", input.BotID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create conversation")
	}

	return s.toConversationDTO(c), nil
}

// ResumeByExternalThread finds the conversation bound to a vendor-side
// thread, for channel adapters that carry their own thread identifiers
func (s *ConversationService) ResumeByExternalThread(ctx context.Context, botID uuid.UUID, channel conversation.Channel, externalThreadID string) (*ConversationDTO, error) {
	c, err := s.convRepo.FindByExternalThread(ctx, botID, channel, externalThreadID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("CONVERSATION_NOT_FOUND", "Conversation not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to look up conversation")
	}
	return s.toConversationDTO(c), nil
}

// SendMessage appends a visitor message and, when the bot may reply, runs
// the engine and appends the assistant answer. On closed or handed off
// conversations the message is stored for the human agent and no reply is
// generated.
func (s *ConversationService) SendMessage(ctx context.Context, input SendMessageInput) (*ReplyResultDTO, error) {
	c, err := s.findConversation(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}

	userMsg, err := conversation.NewUserMessage(c.TenantID, c.ID, input.Content)
	if err != nil {
		return nil, err
	}
	if err := s.msgRepo.Create(ctx, userMsg); err != nil {
		s.logger.Error("Failed to persist user message",
			zap.String("conversation_id", c.ID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save message")
	}
	c.RecordMessage(userMsg.CreatedAt)

	if !c.CanBotReply() {
		if err := s.convRepo.Update(ctx, c); err != nil {
			s.logger.Error("Failed to update conversation",
				zap.String("conversation_id", c.ID.String()),
				zap.Error(err))
		}
		return &ReplyResultDTO{
			Conversation: s.toConversationDTO(c),
			UserMessage:  s.toMessageDTO(userMsg),
		}, nil
	}

	reply, err := s.engine.GenerateReply(ctx, c, userMsg)
	if err != nil {
		// The engine updates the conversation only on success; persist
		// the user message count before surfacing the failure.
		if uerr := s.convRepo.Update(ctx, c); uerr != nil {
			s.logger.Error("Failed to update conversation after reply failure",
				zap.String("conversation_id", c.ID.String()),
				zap.Error(uerr))
		}
		return nil, err
	}

	return &ReplyResultDTO{
		Conversation: s.toConversationDTO(c),
		UserMessage:  s.toMessageDTO(userMsg),
		Reply:        s.toMessageDTO(reply),
	}, nil
}

// IdentifyVisitor attaches contact details the visitor shared
func (s *ConversationService) IdentifyVisitor(ctx context.Context, input IdentifyVisitorInput) (*ConversationDTO, error) {
	c, err := s.findConversation(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}

	if err := c.SetVisitorContact(input.Email, input.Name); err != nil {
		return nil, err
	}

	if err := s.convRepo.Update(ctx, c); err != nil {
		s.logger.Error("Failed to update visitor contact",
			zap.String("conversation_id", c.ID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update conversation")
	}

	return s.toConversationDTO(c), nil
}

// Get returns a conversation by ID
func (s *ConversationService) Get(ctx context.Context, id uuid.UUID) (*ConversationDTO, error) {
	c, err := s.findConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toConversationDTO(c), nil
}

// List returns conversations matching the filter with pagination
func (s *ConversationService) List(ctx context.Context, input ListConversationsInput) (*ConversationListResult, error) {
	filter := conversation.NewConversationFilter()
	filter.BotID = input.BotID
	filter.Keyword = input.Keyword
	filter.Since = input.Since
	if input.Channel != "" {
		ch := conversation.Channel(input.Channel)
		filter.Channel = &ch
	}
	if input.Status != "" {
		st := conversation.ConversationStatus(input.Status)
		filter.Status = &st
	}
	if input.Page > 0 {
		filter.Page = input.Page
	}
	if input.PageSize > 0 {
		filter.PageSize = input.PageSize
	}
	if input.SortBy != "" {
		filter.SortBy = input.SortBy
	}
	if input.SortOrder != "" {
		filter.SortOrder = input.SortOrder
	}

	items, total, err := s.convRepo.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list conversations", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list conversations")
	}

	dtos := make([]ConversationDTO, len(items))
	for i, c := range items {
		dtos[i] = *s.toConversationDTO(c)
	}

	totalPages := int(total) / filter.Limit()
	if int(total)%filter.Limit() > 0 {
		totalPages++
	}

	return &ConversationListResult{
		Conversations: dtos,
		Total:         total,
		Page:          filter.Page,
		PageSize:      filter.Limit(),
		TotalPages:    totalPages,
	}, nil
}

// GetTranscript returns the messages of a conversation in order
func (s *ConversationService) GetTranscript(ctx context.Context, conversationID uuid.UUID, page, pageSize int) (*TranscriptResult, error) {
	c, err := s.findConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	filter := conversation.NewMessageFilter()
	if page > 0 {
		filter.Page = page
	}
	if pageSize > 0 {
		filter.PageSize = pageSize
	}

	messages, total, err := s.msgRepo.FindByConversation(ctx, conversationID, filter)
	if err != nil {
		s.logger.Error("Failed to load transcript",
			zap.String("conversation_id", conversationID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load transcript")
	}

	dtos := make([]MessageDTO, len(messages))
	for i, m := range messages {
		dtos[i] = *s.toMessageDTO(m)
	}

	totalPages := int(total) / filter.Limit()
	if int(total)%filter.Limit() > 0 {
		totalPages++
	}

	return &TranscriptResult{
		Conversation: s.toConversationDTO(c),
		Messages:     dtos,
		Total:        total,
		Page:         filter.Page,
		PageSize:     filter.Limit(),
		TotalPages:   totalPages,
	}, nil
}

// HandOff moves a conversation to a human agent; the bot stops replying
func (s *ConversationService) HandOff(ctx context.Context, id uuid.UUID) (*ConversationDTO, error) {
	return s.transition(ctx, id, func(c *conversation.Conversation) error { return c.HandOff() })
}

// Close closes a conversation
func (s *ConversationService) Close(ctx context.Context, id uuid.UUID) (*ConversationDTO, error) {
	return s.transition(ctx, id, func(c *conversation.Conversation) error { return c.Close() })
}

// Reopen reactivates a closed or handed off conversation
func (s *ConversationService) Reopen(ctx context.Context, id uuid.UUID) (*ConversationDTO, error) {
	dto, err := s.transition(ctx, id, func(c *conversation.Conversation) error { return c.Reopen() })
	if err != nil {
		return nil, err
	}
	if s.history != nil {
		// Stale cached history could leak turns from before the pause
		if cerr := s.history.Invalidate(ctx, id); cerr != nil {
			s.logger.Warn("Failed to invalidate history cache",
				zap.String("conversation_id", id.String()),
				zap.Error(cerr))
		}
	}
	return dto, nil
}

// transition applies a state change and persists it
func (s *ConversationService) transition(ctx context.Context, id uuid.UUID, apply func(*conversation.Conversation) error) (*ConversationDTO, error) {
	c, err := s.findConversation(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := apply(c); err != nil {
		return nil, err
	}

	if err := s.convRepo.Update(ctx, c); err != nil {
		s.logger.Error("Failed to update conversation",
			zap.String("conversation_id", c.ID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update conversation")
	}

	return s.toConversationDTO(c), nil
}

// findConversation finds a conversation or returns a typed error
func (s *ConversationService) findConversation(ctx context.Context, id uuid.UUID) (*conversation.Conversation, error) {
	c, err := s.convRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("CONVERSATION_NOT_FOUND", "Conversation not found")
		}
		s.logger.Error("Failed to find conversation",
			zap.String("conversation_id", id.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find conversation")
	}
	return c, nil
}

// toConversationDTO converts a domain conversation to DTO
func (s *ConversationService) toConversationDTO(c *conversation.Conversation) *ConversationDTO {
	return &ConversationDTO{
		ID:               c.ID,
		TenantID:         c.TenantID,
		BotID:            c.BotID,
		Channel:          string(c.Channel),
		VisitorID:        c.VisitorID,
		VisitorEmail:     c.VisitorEmail,
		VisitorName:      c.VisitorName,
		Status:           string(c.Status),
		ExternalThreadID: c.ExternalThreadID,
		MessageCount:     c.MessageCount,
		LastMessageAt:    c.LastMessageAt,
		ClosedAt:         c.ClosedAt,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

// toMessageDTO converts a domain message to DTO
func (s *ConversationService) toMessageDTO(m *conversation.Message) *MessageDTO {
	dto := &MessageDTO{
		ID:               m.ID,
		ConversationID:   m.ConversationID,
		Sequence:         m.Sequence,
		Role:             string(m.Role),
		Content:          m.Content,
		Provider:         m.Provider,
		Model:            m.Model,
		TokensPrompt:     m.TokensPrompt,
		TokensCompletion: m.TokensCompletion,
		LatencyMS:        m.LatencyMS,
		FailureReason:    m.FailureReason,
		CreatedAt:        m.CreatedAt,
	}
	if len(m.Sources) > 0 {
		dto.Sources = make([]ChunkRefDTO, len(m.Sources))
		for i, src := range m.Sources {
			dto.Sources[i] = ChunkRefDTO{
				DocumentID:   src.DocumentID,
				ChunkID:      src.ChunkID,
				DocumentName: src.DocumentName,
				Score:        src.Score,
			}
		}
	}
	return dto
}
