package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/chatforge/backend/internal/domain/conversation"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockReplyGenerator struct {
	mock.Mock
}

func (m *mockReplyGenerator) GenerateReply(ctx context.Context, c *conversation.Conversation, userMsg *conversation.Message) (*conversation.Message, error) {
	args := m.Called(ctx, c, userMsg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*conversation.Message), args.Error(1)
}

func newTestConversationService(convRepo *mockConversationRepository, msgRepo *mockMessageRepository, engine *mockReplyGenerator, history *mockHistoryCache) *ConversationService {
	var h HistoryCache
	if history != nil {
		h = history
	}
	return NewConversationService(convRepo, msgRepo, engine, h, DefaultIdleWindow, zap.NewNop())
}

func TestConversationService_StartOrResume(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	botID := uuid.New()

	t.Run("resumes active conversation within idle window", func(t *testing.T) {
		convRepo := new(mockConversationRepository)
		msgRepo := new(mockMessageRepository)
		engine := new(mockReplyGenerator)
		service := newTestConversationService(convRepo, msgRepo, engine, nil)

		existing, err := conversation.NewConversation(tenantID, botID, conversation.ChannelWeb, "visitor-1")
		require.NoError(t, err)

		convRepo.On("FindActiveByVisitor", ctx, botID, conversation.ChannelWeb, "visitor-1", DefaultIdleWindow).
			Return(existing, nil)

		dto, err := service.StartOrResume(ctx, StartConversationInput{
			TenantID:  tenantID,
			BotID:     botID,
			Channel:   conversation.ChannelWeb,
			VisitorID: "visitor-1",
		})

		require.NoError(t, err)
		assert.Equal(t, existing.ID, dto.ID)
		convRepo.AssertNotCalled(t, "Create")
	})

	t.Run("starts new conversation when none active", func(t *testing.T) {
		convRepo := new(mockConversationRepository)
		msgRepo := new(mockMessageRepository)
		engine := new(mockReplyGenerator)
		service := newTestConversationService(convRepo, msgRepo, engine, nil)

		convRepo.On("FindActiveByVisitor", ctx, botID, conversation.ChannelTelegram, "tg-42", DefaultIdleWindow).
			Return(nil, shared.ErrNotFound)
		convRepo.On("Create", ctx, mock.AnythingOfType("*conversation.Conversation")).Return(nil)

		dto, err := service.StartOrResume(ctx, StartConversationInput{
			TenantID:         tenantID,
			BotID:            botID,
			Channel:          conversation.ChannelTelegram,
			VisitorID:        "tg-42",
			ExternalThreadID: "chat-100",
		})

		require.NoError(t, err)
		assert.Equal(t, "telegram", dto.Channel)
		assert.Equal(t, "chat-100", dto.ExternalThreadID)
		assert.Equal(t, "active", dto.Status)
		convRepo.AssertExpectations(t)
	})
}

func TestConversationService_SendMessage(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	botID := uuid.New()

	t.Run("appends user message and assistant reply", func(t *testing.T) {
		convRepo := new(mockConversationRepository)
		msgRepo := new(mockMessageRepository)
		engine := new(mockReplyGenerator)
		service := newTestConversationService(convRepo, msgRepo, engine, nil)

		c, err := conversation.NewConversation(tenantID, botID, conversation.ChannelWeb, "visitor-1")
		require.NoError(t, err)

		reply, err := conversation.NewAssistantMessage(tenantID, c.ID, "Sure, here is how.", conversation.AssistantUsage{
			Provider: "openai", Model: "gpt-4o-mini", TokensPrompt: 20, TokensCompletion: 8, LatencyMS: 350,
		}, nil)
		require.NoError(t, err)

		convRepo.On("FindByID", ctx, c.ID).Return(c, nil)
		msgRepo.On("Create", ctx, mock.AnythingOfType("*conversation.Message")).Return(nil)
		engine.On("GenerateReply", ctx, c, mock.AnythingOfType("*conversation.Message")).Return(reply, nil)

		result, err := service.SendMessage(ctx, SendMessageInput{
			ConversationID: c.ID,
			Content:        "How do I reset my password?",
		})

		require.NoError(t, err)
		assert.Equal(t, "How do I reset my password?", result.UserMessage.Content)
		require.NotNil(t, result.Reply)
		assert.Equal(t, "Sure, here is how.", result.Reply.Content)
		engine.AssertExpectations(t)
	})

	t.Run("stores user message without reply after hand off", func(t *testing.T) {
		convRepo := new(mockConversationRepository)
		msgRepo := new(mockMessageRepository)
		engine := new(mockReplyGenerator)
		service := newTestConversationService(convRepo, msgRepo, engine, nil)

		c, err := conversation.NewConversation(tenantID, botID, conversation.ChannelWeb, "visitor-1")
		require.NoError(t, err)
		require.NoError(t, c.HandOff())

		convRepo.On("FindByID", ctx, c.ID).Return(c, nil)
		msgRepo.On("Create", ctx, mock.AnythingOfType("*conversation.Message")).Return(nil)
		convRepo.On("Update", ctx, c).Return(nil)

		result, err := service.SendMessage(ctx, SendMessageInput{
			ConversationID: c.ID,
			Content:        "I need a human",
		})

		require.NoError(t, err)
		assert.Nil(t, result.Reply)
		assert.Equal(t, 1, result.Conversation.MessageCount)
		engine.AssertNotCalled(t, "GenerateReply")
	})

	t.Run("persists message count when the engine fails", func(t *testing.T) {
		convRepo := new(mockConversationRepository)
		msgRepo := new(mockMessageRepository)
		engine := new(mockReplyGenerator)
		service := newTestConversationService(convRepo, msgRepo, engine, nil)

		c, err := conversation.NewConversation(tenantID, botID, conversation.ChannelWeb, "visitor-1")
		require.NoError(t, err)

		engineErr := errors.New("provider down")
		convRepo.On("FindByID", ctx, c.ID).Return(c, nil)
		msgRepo.On("Create", ctx, mock.AnythingOfType("*conversation.Message")).Return(nil)
		engine.On("GenerateReply", ctx, c, mock.AnythingOfType("*conversation.Message")).Return(nil, engineErr)
		convRepo.On("Update", ctx, c).Return(nil)

		_, err = service.SendMessage(ctx, SendMessageInput{
			ConversationID: c.ID,
			Content:        "Hello?",
		})

		assert.ErrorIs(t, err, engineErr)
		convRepo.AssertCalled(t, "Update", ctx, c)
	})

	t.Run("rejects unknown conversation", func(t *testing.T) {
		convRepo := new(mockConversationRepository)
		msgRepo := new(mockMessageRepository)
		engine := new(mockReplyGenerator)
		service := newTestConversationService(convRepo, msgRepo, engine, nil)

		id := uuid.New()
		convRepo.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

		_, err := service.SendMessage(ctx, SendMessageInput{ConversationID: id, Content: "Hi"})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CONVERSATION_NOT_FOUND", domainErr.Code)
	})
}

func TestConversationService_Transitions(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	botID := uuid.New()

	newActive := func(t *testing.T) *conversation.Conversation {
		c, err := conversation.NewConversation(tenantID, botID, conversation.ChannelWeb, "visitor-1")
		require.NoError(t, err)
		c.ClearDomainEvents()
		return c
	}

	t.Run("hands off to a human agent", func(t *testing.T) {
		convRepo := new(mockConversationRepository)
		service := newTestConversationService(convRepo, new(mockMessageRepository), new(mockReplyGenerator), nil)

		c := newActive(t)
		convRepo.On("FindByID", ctx, c.ID).Return(c, nil)
		convRepo.On("Update", ctx, c).Return(nil)

		dto, err := service.HandOff(ctx, c.ID)

		require.NoError(t, err)
		assert.Equal(t, "handed_off", dto.Status)
	})

	t.Run("rejects closing twice", func(t *testing.T) {
		convRepo := new(mockConversationRepository)
		service := newTestConversationService(convRepo, new(mockMessageRepository), new(mockReplyGenerator), nil)

		c := newActive(t)
		require.NoError(t, c.Close())
		convRepo.On("FindByID", ctx, c.ID).Return(c, nil)

		_, err := service.Close(ctx, c.ID)

		require.Error(t, err)
		convRepo.AssertNotCalled(t, "Update")
	})

	t.Run("reopen invalidates cached history", func(t *testing.T) {
		convRepo := new(mockConversationRepository)
		history := new(mockHistoryCache)
		service := newTestConversationService(convRepo, new(mockMessageRepository), new(mockReplyGenerator), history)

		c := newActive(t)
		require.NoError(t, c.Close())
		convRepo.On("FindByID", ctx, c.ID).Return(c, nil)
		convRepo.On("Update", ctx, c).Return(nil)
		history.On("Invalidate", ctx, c.ID).Return(nil)

		dto, err := service.Reopen(ctx, c.ID)

		require.NoError(t, err)
		assert.Equal(t, "active", dto.Status)
		history.AssertExpectations(t)
	})
}

func TestConversationService_List(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	botID := uuid.New()

	t.Run("returns paginated conversations", func(t *testing.T) {
		convRepo := new(mockConversationRepository)
		service := newTestConversationService(convRepo, new(mockMessageRepository), new(mockReplyGenerator), nil)

		c1, err := conversation.NewConversation(tenantID, botID, conversation.ChannelWeb, "visitor-1")
		require.NoError(t, err)
		c2, err := conversation.NewConversation(tenantID, botID, conversation.ChannelSlack, "U123")
		require.NoError(t, err)

		convRepo.On("FindAll", ctx, mock.MatchedBy(func(f conversation.ConversationFilter) bool {
			return f.BotID != nil && *f.BotID == botID && f.Status != nil && *f.Status == conversation.ConversationStatusActive
		})).Return([]*conversation.Conversation{c1, c2}, int64(2), nil)

		result, err := service.List(ctx, ListConversationsInput{
			BotID:  &botID,
			Status: "active",
		})

		require.NoError(t, err)
		assert.Len(t, result.Conversations, 2)
		assert.Equal(t, int64(2), result.Total)
		assert.Equal(t, 1, result.TotalPages)
	})
}

func TestConversationService_GetTranscript(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	botID := uuid.New()

	t.Run("returns messages in order", func(t *testing.T) {
		convRepo := new(mockConversationRepository)
		msgRepo := new(mockMessageRepository)
		service := newTestConversationService(convRepo, msgRepo, new(mockReplyGenerator), nil)

		c, err := conversation.NewConversation(tenantID, botID, conversation.ChannelWeb, "visitor-1")
		require.NoError(t, err)

		m1, err := conversation.NewUserMessage(tenantID, c.ID, "Hi")
		require.NoError(t, err)
		m2, err := conversation.NewAssistantMessage(tenantID, c.ID, "Hello!", conversation.AssistantUsage{
			Provider: "openai", Model: "gpt-4o-mini", TokensPrompt: 5, TokensCompletion: 2, LatencyMS: 100,
		}, nil)
		require.NoError(t, err)

		convRepo.On("FindByID", ctx, c.ID).Return(c, nil)
		msgRepo.On("FindByConversation", ctx, c.ID, mock.AnythingOfType("conversation.MessageFilter")).
			Return([]*conversation.Message{m1, m2}, int64(2), nil)

		result, err := service.GetTranscript(ctx, c.ID, 1, 50)

		require.NoError(t, err)
		require.Len(t, result.Messages, 2)
		assert.Equal(t, "user", result.Messages[0].Role)
		assert.Equal(t, "assistant", result.Messages[1].Role)
	})
}
