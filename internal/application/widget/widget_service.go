package widget

import (
	"context"
	"errors"
	"time"

	conversationapp "github.com/chatforge/backend/internal/application/conversation"
	reviewapp "github.com/chatforge/backend/internal/application/review"
	"github.com/chatforge/backend/internal/domain/bot"
	"github.com/chatforge/backend/internal/domain/conversation"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/chatforge/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenIssuer mints short-lived visitor tokens scoped to one bot
type TokenIssuer interface {
	IssueWidgetToken(ctx context.Context, tenantID, botID uuid.UUID, visitorID string) (token string, expiresAt time.Time, err error)
}

// ConversationFlow is the slice of the conversation service the widget
// drives
type ConversationFlow interface {
	StartOrResume(ctx context.Context, input conversationapp.StartConversationInput) (*conversationapp.ConversationDTO, error)
	SendMessage(ctx context.Context, input conversationapp.SendMessageInput) (*conversationapp.ReplyResultDTO, error)
	IdentifyVisitor(ctx context.Context, input conversationapp.IdentifyVisitorInput) (*conversationapp.ConversationDTO, error)
}

// ReviewSubmitter accepts visitor reviews
type ReviewSubmitter interface {
	Submit(ctx context.Context, input reviewapp.SubmitReviewInput) (*reviewapp.ReviewDTO, error)
}

// WidgetService backs the public embeddable chat widget. Callers are
// anonymous visitors: the widget key authenticates config and session
// requests, a widget-scoped token authenticates everything after.
// Unknown, unpublished and archived bots are indistinguishable from
// absent ones.
type WidgetService struct {
	botRepo bot.BotRepository
	flow    ConversationFlow
	reviews ReviewSubmitter
	tokens  TokenIssuer
	logger  *zap.Logger
}

// NewWidgetService creates a new widget service
func NewWidgetService(
	botRepo bot.BotRepository,
	flow ConversationFlow,
	reviews ReviewSubmitter,
	tokens TokenIssuer,
	logger *zap.Logger,
) *WidgetService {
	return &WidgetService{
		botRepo: botRepo,
		flow:    flow,
		reviews: reviews,
		tokens:  tokens,
		logger:  logger,
	}
}

// StartSessionInput contains input for opening a widget session
type StartSessionInput struct {
	WidgetKey string
	VisitorID string
}

// SendMessageInput contains input for a widget chat turn. Identity
// fields come from the widget token, not the request body.
type SendMessageInput struct {
	TenantID     uuid.UUID
	BotID        uuid.UUID
	VisitorID    string
	Text         string
	VisitorEmail string
	VisitorName  string
}

// SubmitReviewInput contains input for a widget review submission
type SubmitReviewInput struct {
	TenantID       uuid.UUID
	BotID          uuid.UUID
	ConversationID *uuid.UUID
	Rating         int
	Comment        string
	VisitorName    string
	VisitorEmail   string
}

// ConfigDTO is the widget bootstrap payload
type ConfigDTO struct {
	BotID          uuid.UUID `json:"bot_id"`
	BotName        string    `json:"bot_name"`
	WelcomeMessage string    `json:"welcome_message"`
	Placeholder    string    `json:"placeholder"`
	AccentColor    string    `json:"accent_color"`
	Position       string    `json:"position"`
	CollectEmail   bool      `json:"collect_email"`
	ShowSources    bool      `json:"show_sources"`
}

// SessionDTO is an opened widget session
type SessionDTO struct {
	VisitorID string    `json:"visitor_id"`
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MessageViewDTO is a message as the widget renders it
type MessageViewDTO struct {
	ID        uuid.UUID                     `json:"id"`
	Role      string                        `json:"role"`
	Content   string                        `json:"content"`
	Sources   []conversationapp.ChunkRefDTO `json:"sources,omitempty"`
	CreatedAt time.Time                     `json:"created_at"`
}

// ReplyDTO is the outcome of a widget chat turn. Reply is absent when
// the conversation is handed off to a human.
type ReplyDTO struct {
	ConversationID     uuid.UUID       `json:"conversation_id"`
	ConversationStatus string          `json:"conversation_status"`
	Reply              *MessageViewDTO `json:"reply,omitempty"`
}

// ReviewAckDTO acknowledges a submitted review without exposing
// moderation state details beyond the initial status
type ReviewAckDTO struct {
	ID     uuid.UUID `json:"id"`
	Rating int       `json:"rating"`
	Status string    `json:"status"`
}

// GetConfig returns the widget configuration for a published bot
func (s *WidgetService) GetConfig(ctx context.Context, widgetKey string) (*ConfigDTO, error) {
	b, err := s.findPublishedBot(ctx, widgetKey)
	if err != nil {
		return nil, err
	}

	return &ConfigDTO{
		BotID:          b.ID,
		BotName:        b.Name,
		WelcomeMessage: b.WidgetSettings.WelcomeMessage,
		Placeholder:    b.WidgetSettings.Placeholder,
		AccentColor:    b.WidgetSettings.AccentColor,
		Position:       string(b.WidgetSettings.Position),
		CollectEmail:   b.WidgetSettings.CollectEmail,
		ShowSources:    b.WidgetSettings.ShowSources,
	}, nil
}

// StartSession opens a visitor session on a published bot and mints the
// widget token for it. A missing visitor ID starts a fresh visitor.
func (s *WidgetService) StartSession(ctx context.Context, input StartSessionInput) (*SessionDTO, error) {
	b, err := s.findPublishedBot(ctx, input.WidgetKey)
	if err != nil {
		return nil, err
	}

	visitorID := input.VisitorID
	if visitorID == "" {
		visitorID = uuid.NewString()
	}

	token, expiresAt, err := s.tokens.IssueWidgetToken(ctx, b.TenantID, b.ID, visitorID)
	if err != nil {
		s.logger.Error("Failed to issue widget token",
			zap.String("bot_id", b.ID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to open widget session")
	}

	return &SessionDTO{
		VisitorID: visitorID,
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
	}, nil
}

// SendMessage runs one widget chat turn: resume or start the visitor's
// conversation, capture contact details if the bot collects them, and
// generate the reply
func (s *WidgetService) SendMessage(ctx context.Context, input SendMessageInput) (*ReplyDTO, error) {
	ctx, _ = logger.WithTenantID(ctx, logger.FromContext(ctx), input.TenantID.String())

	b, err := s.findBotByID(ctx, input.BotID)
	if err != nil {
		return nil, err
	}
	if !b.IsPublished() {
		return nil, shared.NewDomainError("BOT_NOT_FOUND", "Bot not found")
	}

	conv, err := s.flow.StartOrResume(ctx, conversationapp.StartConversationInput{
		TenantID:  input.TenantID,
		BotID:     b.ID,
		Channel:   conversation.ChannelWeb,
		VisitorID: input.VisitorID,
	})
	if err != nil {
		return nil, err
	}

	// Contact capture is best effort, the turn proceeds without it
	if input.VisitorEmail != "" && b.WidgetSettings.CollectEmail {
		if _, err := s.flow.IdentifyVisitor(ctx, conversationapp.IdentifyVisitorInput{
			ConversationID: conv.ID,
			Email:          input.VisitorEmail,
			Name:           input.VisitorName,
		}); err != nil {
			s.logger.Warn("Failed to record visitor contact",
				zap.String("conversation_id", conv.ID.String()),
				zap.Error(err))
		}
	}

	result, err := s.flow.SendMessage(ctx, conversationapp.SendMessageInput{
		ConversationID: conv.ID,
		Content:        input.Text,
	})
	if err != nil {
		return nil, err
	}

	out := &ReplyDTO{
		ConversationID:     result.Conversation.ID,
		ConversationStatus: result.Conversation.Status,
	}
	if result.Reply != nil {
		view := &MessageViewDTO{
			ID:        result.Reply.ID,
			Role:      result.Reply.Role,
			Content:   result.Reply.Content,
			CreatedAt: result.Reply.CreatedAt,
		}
		if b.WidgetSettings.ShowSources {
			view.Sources = result.Reply.Sources
		}
		out.Reply = view
	}

	return out, nil
}

// SubmitReview records a visitor review for the bot
func (s *WidgetService) SubmitReview(ctx context.Context, input SubmitReviewInput) (*ReviewAckDTO, error) {
	ctx, _ = logger.WithTenantID(ctx, logger.FromContext(ctx), input.TenantID.String())

	b, err := s.findBotByID(ctx, input.BotID)
	if err != nil {
		return nil, err
	}
	if !b.IsPublished() {
		return nil, shared.NewDomainError("BOT_NOT_FOUND", "Bot not found")
	}

	dto, err := s.reviews.Submit(ctx, reviewapp.SubmitReviewInput{
		TenantID:       input.TenantID,
		BotID:          b.ID,
		ConversationID: input.ConversationID,
		Rating:         input.Rating,
		Comment:        input.Comment,
		VisitorName:    input.VisitorName,
		VisitorEmail:   input.VisitorEmail,
		Source:         "widget",
	})
	if err != nil {
		return nil, err
	}

	return &ReviewAckDTO{
		ID:     dto.ID,
		Rating: dto.Rating,
		Status: dto.Status,
	}, nil
}

// findPublishedBot resolves a widget key to its published bot. The key
// itself is the credential, the lookup is tenant-unscoped.
func (s *WidgetService) findPublishedBot(ctx context.Context, widgetKey string) (*bot.Bot, error) {
	if widgetKey == "" {
		return nil, shared.NewDomainError("BOT_NOT_FOUND", "Bot not found")
	}

	b, err := s.botRepo.FindByWidgetKey(ctx, widgetKey)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("BOT_NOT_FOUND", "Bot not found")
		}
		s.logger.Error("Failed to resolve widget key", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to resolve widget")
	}

	if !b.IsPublished() {
		return nil, shared.NewDomainError("BOT_NOT_FOUND", "Bot not found")
	}

	return b, nil
}

func (s *WidgetService) findBotByID(ctx context.Context, id uuid.UUID) (*bot.Bot, error) {
	b, err := s.botRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("BOT_NOT_FOUND", "Bot not found")
		}
		s.logger.Error("Failed to find bot",
			zap.String("bot_id", id.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find bot")
	}
	return b, nil
}
