package channel

import (
	"context"
	"errors"
	"net/http"

	appconversation "github.com/chatforge/backend/internal/application/conversation"
	"github.com/chatforge/backend/internal/domain/channel"
	"github.com/chatforge/backend/internal/domain/conversation"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConversationFlow starts or resumes conversations and runs the reply
// pipeline for inbound channel messages
type ConversationFlow interface {
	StartOrResume(ctx context.Context, input appconversation.StartConversationInput) (*appconversation.ConversationDTO, error)
	SendMessage(ctx context.Context, input appconversation.SendMessageInput) (*appconversation.ReplyResultDTO, error)
}

// WebhookOutcome describes how an inbound webhook was handled
type WebhookOutcome string

const (
	// OutcomeProcessed means a user message went through the reply pipeline
	OutcomeProcessed WebhookOutcome = "processed"
	// OutcomeIgnored means the event carried no user message
	OutcomeIgnored WebhookOutcome = "ignored"
	// OutcomeDropped means the account is inactive and the event was
	// acknowledged without processing
	OutcomeDropped WebhookOutcome = "dropped"
	// OutcomeChallenge means the event was a vendor verification
	// handshake and Response must be echoed back
	OutcomeChallenge WebhookOutcome = "challenge"
	// OutcomeReplyFailed means the message was stored but no reply was
	// delivered. The vendor still gets an acknowledgement so it does not
	// redeliver the same message.
	OutcomeReplyFailed WebhookOutcome = "reply_failed"
)

// WebhookResult is the outcome of one inbound webhook
type WebhookResult struct {
	Outcome             WebhookOutcome
	ConversationID      uuid.UUID
	Response            []byte
	ResponseContentType string
}

// WebhookInput carries one inbound vendor request
type WebhookInput struct {
	AccountID   uuid.UUID
	ChannelType channel.ChannelType
	Payload     []byte
	Headers     http.Header
}

// WebhookService routes inbound channel webhooks through verification,
// parsing, the conversation engine and outbound delivery
type WebhookService struct {
	accountRepo   channel.ChannelAccountRepository
	connectors    *channel.ConnectorRegistry
	conversations ConversationFlow
	logger        *zap.Logger
}

// NewWebhookService creates a new webhook dispatch service
func NewWebhookService(
	accountRepo channel.ChannelAccountRepository,
	connectors *channel.ConnectorRegistry,
	conversations ConversationFlow,
	logger *zap.Logger,
) *WebhookService {
	return &WebhookService{
		accountRepo:   accountRepo,
		connectors:    connectors,
		conversations: conversations,
		logger:        logger,
	}
}

// HandleInbound processes one vendor webhook request end to end
func (s *WebhookService) HandleInbound(ctx context.Context, input WebhookInput) (*WebhookResult, error) {
	account, err := s.accountRepo.FindForWebhook(ctx, input.AccountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("CHANNEL_ACCOUNT_NOT_FOUND", "Channel account not found")
		}
		s.logger.Error("Failed to load channel account for webhook",
			zap.String("account_id", input.AccountID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load channel account")
	}

	// A webhook URL is bound to one channel; a mismatch means the
	// caller guessed an account ID from another channel
	if account.ChannelType != input.ChannelType {
		return nil, shared.NewDomainError("CHANNEL_ACCOUNT_NOT_FOUND", "Channel account not found")
	}

	connector, err := s.connectors.Get(account.ChannelType)
	if err != nil {
		return nil, err
	}

	if err := connector.VerifyWebhook(account, input.Payload, input.Headers); err != nil {
		s.logger.Warn("Webhook verification failed",
			zap.String("account_id", account.ID.String()),
			zap.String("channel_type", string(account.ChannelType)),
			zap.Error(err))
		return nil, err
	}

	if !account.CanReceive() {
		// Acknowledge so the vendor does not retry into a paused account
		s.logger.Info("Dropping webhook for inactive account",
			zap.String("account_id", account.ID.String()),
			zap.String("status", string(account.Status)))
		return &WebhookResult{Outcome: OutcomeDropped}, nil
	}

	inbound, err := connector.ParseInbound(ctx, account, input.Payload, input.Headers)
	if err != nil {
		var challenge *channel.ChallengeError
		if errors.As(err, &challenge) {
			return &WebhookResult{
				Outcome:             OutcomeChallenge,
				Response:            challenge.Body,
				ResponseContentType: challenge.ContentType,
			}, nil
		}
		if errors.Is(err, channel.ErrEventIgnored) {
			return &WebhookResult{Outcome: OutcomeIgnored}, nil
		}
		return nil, err
	}

	conv, err := s.conversations.StartOrResume(ctx, appconversation.StartConversationInput{
		TenantID:         account.TenantID,
		BotID:            account.BotID,
		Channel:          conversation.Channel(account.ChannelType),
		VisitorID:        inbound.ExternalUserID,
		ExternalThreadID: inbound.ExternalThreadID,
	})
	if err != nil {
		s.logger.Error("Failed to open conversation for inbound message",
			zap.String("account_id", account.ID.String()),
			zap.String("external_user_id", inbound.ExternalUserID),
			zap.Error(err))
		return nil, err
	}

	result, err := s.conversations.SendMessage(ctx, appconversation.SendMessageInput{
		ConversationID: conv.ID,
		Content:        inbound.Text,
	})
	if err != nil {
		// The user message may not have been stored; either way the
		// vendor must not redeliver, a retry would duplicate the turn
		s.logger.Error("Reply pipeline failed for channel message",
			zap.String("conversation_id", conv.ID.String()),
			zap.String("channel_type", string(account.ChannelType)),
			zap.Error(err))
		return &WebhookResult{Outcome: OutcomeReplyFailed, ConversationID: conv.ID}, nil
	}

	if result.Reply == nil {
		// Handed off or closed: stored for the human agent, nothing to send
		return &WebhookResult{Outcome: OutcomeProcessed, ConversationID: conv.ID}, nil
	}

	outbound := channel.OutboundMessage{
		ExternalUserID:   inbound.ExternalUserID,
		ExternalThreadID: inbound.ExternalThreadID,
		Text:             result.Reply.Content,
	}
	if err := connector.Send(ctx, account, outbound); err != nil {
		s.logger.Error("Failed to deliver reply through channel",
			zap.String("account_id", account.ID.String()),
			zap.String("channel_type", string(account.ChannelType)),
			zap.Error(err))
		account.RecordError(err.Error())
		if uerr := s.accountRepo.Update(ctx, account); uerr != nil {
			s.logger.Error("Failed to record channel delivery error",
				zap.String("account_id", account.ID.String()),
				zap.Error(uerr))
		}
		return &WebhookResult{Outcome: OutcomeReplyFailed, ConversationID: conv.ID}, nil
	}

	return &WebhookResult{Outcome: OutcomeProcessed, ConversationID: conv.ID}, nil
}

// HandleSubscriptionCheck answers a WhatsApp-style GET subscription
// handshake: the vendor sends a verify token and a challenge, and expects
// the challenge echoed back when the token matches the account's secret.
func (s *WebhookService) HandleSubscriptionCheck(ctx context.Context, accountID uuid.UUID, channelType channel.ChannelType, mode, verifyToken, challenge string) (string, error) {
	account, err := s.accountRepo.FindForWebhook(ctx, accountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", shared.NewDomainError("CHANNEL_ACCOUNT_NOT_FOUND", "Channel account not found")
		}
		return "", shared.NewDomainError("INTERNAL_ERROR", "Failed to load channel account")
	}
	if account.ChannelType != channelType {
		return "", shared.NewDomainError("CHANNEL_ACCOUNT_NOT_FOUND", "Channel account not found")
	}

	if mode != "subscribe" || account.WebhookSecret == "" || verifyToken != account.WebhookSecret {
		return "", channel.ErrWebhookVerification
	}

	s.logger.Info("Webhook subscription verified",
		zap.String("account_id", account.ID.String()),
		zap.String("channel_type", string(account.ChannelType)))

	return challenge, nil
}
