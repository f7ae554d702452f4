package widget

import (
	"context"
	"errors"
	"testing"
	"time"

	conversationapp "github.com/chatforge/backend/internal/application/conversation"
	reviewapp "github.com/chatforge/backend/internal/application/review"
	"github.com/chatforge/backend/internal/domain/bot"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockBotRepository struct {
	mock.Mock
}

func (m *mockBotRepository) Create(ctx context.Context, b *bot.Bot) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *mockBotRepository) Update(ctx context.Context, b *bot.Bot) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *mockBotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockBotRepository) FindByID(ctx context.Context, id uuid.UUID) (*bot.Bot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bot.Bot), args.Error(1)
}

func (m *mockBotRepository) FindBySlug(ctx context.Context, slug string) (*bot.Bot, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bot.Bot), args.Error(1)
}

func (m *mockBotRepository) FindByWidgetKey(ctx context.Context, widgetKey string) (*bot.Bot, error) {
	args := m.Called(ctx, widgetKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bot.Bot), args.Error(1)
}

func (m *mockBotRepository) FindAll(ctx context.Context, filter bot.BotFilter) ([]*bot.Bot, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*bot.Bot), args.Get(1).(int64), args.Error(2)
}

func (m *mockBotRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

func (m *mockBotRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBotRepository) CountByStatus(ctx context.Context, status bot.BotStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

type mockConversationFlow struct {
	mock.Mock
}

func (m *mockConversationFlow) StartOrResume(ctx context.Context, input conversationapp.StartConversationInput) (*conversationapp.ConversationDTO, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*conversationapp.ConversationDTO), args.Error(1)
}

func (m *mockConversationFlow) SendMessage(ctx context.Context, input conversationapp.SendMessageInput) (*conversationapp.ReplyResultDTO, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*conversationapp.ReplyResultDTO), args.Error(1)
}

func (m *mockConversationFlow) IdentifyVisitor(ctx context.Context, input conversationapp.IdentifyVisitorInput) (*conversationapp.ConversationDTO, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*conversationapp.ConversationDTO), args.Error(1)
}

type mockReviewSubmitter struct {
	mock.Mock
}

func (m *mockReviewSubmitter) Submit(ctx context.Context, input reviewapp.SubmitReviewInput) (*reviewapp.ReviewDTO, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reviewapp.ReviewDTO), args.Error(1)
}

type mockTokenIssuer struct {
	mock.Mock
}

func (m *mockTokenIssuer) IssueWidgetToken(ctx context.Context, tenantID, botID uuid.UUID, visitorID string) (string, time.Time, error) {
	args := m.Called(ctx, tenantID, botID, visitorID)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

type widgetFixture struct {
	botRepo *mockBotRepository
	flow    *mockConversationFlow
	reviews *mockReviewSubmitter
	tokens  *mockTokenIssuer
	service *WidgetService
}

func newWidgetFixture() *widgetFixture {
	f := &widgetFixture{
		botRepo: new(mockBotRepository),
		flow:    new(mockConversationFlow),
		reviews: new(mockReviewSubmitter),
		tokens:  new(mockTokenIssuer),
	}
	f.service = NewWidgetService(f.botRepo, f.flow, f.reviews, f.tokens, zap.NewNop())
	return f
}

func newPublishedBot(t *testing.T, tenantID uuid.UUID) *bot.Bot {
	t.Helper()
	b, err := bot.NewBot(tenantID, "Support Bot", "support-bot")
	require.NoError(t, err)
	require.NoError(t, b.Publish())
	b.ClearDomainEvents()
	return b
}

func assertBotNotFound(t *testing.T, err error) {
	t.Helper()
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "BOT_NOT_FOUND", domainErr.Code)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestWidgetService_GetConfig(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("returns widget settings of a published bot", func(t *testing.T) {
		f := newWidgetFixture()
		b := newPublishedBot(t, tenantID)
		f.botRepo.On("FindByWidgetKey", ctx, b.WidgetKey).Return(b, nil)

		cfg, err := f.service.GetConfig(ctx, b.WidgetKey)

		require.NoError(t, err)
		assert.Equal(t, b.ID, cfg.BotID)
		assert.Equal(t, "Support Bot", cfg.BotName)
		assert.Equal(t, b.WidgetSettings.WelcomeMessage, cfg.WelcomeMessage)
		assert.Equal(t, b.WidgetSettings.AccentColor, cfg.AccentColor)
	})

	t.Run("hides unpublished bots", func(t *testing.T) {
		f := newWidgetFixture()
		b, err := bot.NewBot(tenantID, "Draft Bot", "draft-bot")
		require.NoError(t, err)
		f.botRepo.On("FindByWidgetKey", ctx, b.WidgetKey).Return(b, nil)

		_, err = f.service.GetConfig(ctx, b.WidgetKey)

		assertBotNotFound(t, err)
	})

	t.Run("hides unknown widget keys", func(t *testing.T) {
		f := newWidgetFixture()
		f.botRepo.On("FindByWidgetKey", ctx, "missing").Return(nil, shared.ErrNotFound)

		_, err := f.service.GetConfig(ctx, "missing")

		assertBotNotFound(t, err)
	})

	t.Run("rejects empty keys without touching storage", func(t *testing.T) {
		f := newWidgetFixture()

		_, err := f.service.GetConfig(ctx, "")

		assertBotNotFound(t, err)
		f.botRepo.AssertNotCalled(t, "FindByWidgetKey", mock.Anything, mock.Anything)
	})
}

func TestWidgetService_StartSession(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("mints a token for a fresh visitor", func(t *testing.T) {
		f := newWidgetFixture()
		b := newPublishedBot(t, tenantID)
		expires := time.Now().Add(30 * time.Minute)

		f.botRepo.On("FindByWidgetKey", ctx, b.WidgetKey).Return(b, nil)
		f.tokens.On("IssueWidgetToken", ctx, tenantID, b.ID, mock.AnythingOfType("string")).
			Return("widget-jwt", expires, nil)

		session, err := f.service.StartSession(ctx, StartSessionInput{WidgetKey: b.WidgetKey})

		require.NoError(t, err)
		assert.NotEmpty(t, session.VisitorID)
		assert.Equal(t, "widget-jwt", session.Token)
		assert.Equal(t, "Bearer", session.TokenType)
		assert.Equal(t, expires, session.ExpiresAt)
	})

	t.Run("keeps a returning visitor's id", func(t *testing.T) {
		f := newWidgetFixture()
		b := newPublishedBot(t, tenantID)
		expires := time.Now().Add(30 * time.Minute)

		f.botRepo.On("FindByWidgetKey", ctx, b.WidgetKey).Return(b, nil)
		f.tokens.On("IssueWidgetToken", ctx, tenantID, b.ID, "visitor-7").
			Return("widget-jwt", expires, nil)

		session, err := f.service.StartSession(ctx, StartSessionInput{
			WidgetKey: b.WidgetKey,
			VisitorID: "visitor-7",
		})

		require.NoError(t, err)
		assert.Equal(t, "visitor-7", session.VisitorID)
	})
}

func TestWidgetService_SendMessage(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	newReplyResult := func(convID uuid.UUID, sources []conversationapp.ChunkRefDTO) *conversationapp.ReplyResultDTO {
		return &conversationapp.ReplyResultDTO{
			Conversation: &conversationapp.ConversationDTO{ID: convID, Status: "active"},
			UserMessage:  &conversationapp.MessageDTO{ID: uuid.New(), Role: "user", Content: "hi"},
			Reply: &conversationapp.MessageDTO{
				ID:      uuid.New(),
				Role:    "assistant",
				Content: "Our refund window is 30 days.",
				Sources: sources,
			},
		}
	}

	t.Run("runs a chat turn and keeps sources when the bot shows them", func(t *testing.T) {
		f := newWidgetFixture()
		b := newPublishedBot(t, tenantID)
		b.WidgetSettings.ShowSources = true
		convID := uuid.New()
		sources := []conversationapp.ChunkRefDTO{{DocumentID: uuid.New(), ChunkID: uuid.New(), DocumentName: "Refund Policy", Score: 0.9}}

		f.botRepo.On("FindByID", mock.Anything, b.ID).Return(b, nil)
		f.flow.On("StartOrResume", mock.Anything, mock.MatchedBy(func(input conversationapp.StartConversationInput) bool {
			return input.BotID == b.ID && input.Channel == "web" && input.VisitorID == "visitor-7"
		})).Return(&conversationapp.ConversationDTO{ID: convID, Status: "active"}, nil)
		f.flow.On("SendMessage", mock.Anything, conversationapp.SendMessageInput{
			ConversationID: convID,
			Content:        "what is your refund policy?",
		}).Return(newReplyResult(convID, sources), nil)

		reply, err := f.service.SendMessage(ctx, SendMessageInput{
			TenantID:  tenantID,
			BotID:     b.ID,
			VisitorID: "visitor-7",
			Text:      "what is your refund policy?",
		})

		require.NoError(t, err)
		assert.Equal(t, convID, reply.ConversationID)
		require.NotNil(t, reply.Reply)
		assert.Equal(t, "Our refund window is 30 days.", reply.Reply.Content)
		assert.Len(t, reply.Reply.Sources, 1)
	})

	t.Run("strips sources when the bot hides them", func(t *testing.T) {
		f := newWidgetFixture()
		b := newPublishedBot(t, tenantID)
		b.WidgetSettings.ShowSources = false
		convID := uuid.New()
		sources := []conversationapp.ChunkRefDTO{{DocumentID: uuid.New(), ChunkID: uuid.New(), Score: 0.8}}

		f.botRepo.On("FindByID", mock.Anything, b.ID).Return(b, nil)
		f.flow.On("StartOrResume", mock.Anything, mock.Anything).
			Return(&conversationapp.ConversationDTO{ID: convID, Status: "active"}, nil)
		f.flow.On("SendMessage", mock.Anything, mock.Anything).Return(newReplyResult(convID, sources), nil)

		reply, err := f.service.SendMessage(ctx, SendMessageInput{
			TenantID:  tenantID,
			BotID:     b.ID,
			VisitorID: "visitor-7",
			Text:      "what is your refund policy?",
		})

		require.NoError(t, err)
		require.NotNil(t, reply.Reply)
		assert.Empty(t, reply.Reply.Sources)
	})

	t.Run("captures visitor email when the bot collects them", func(t *testing.T) {
		f := newWidgetFixture()
		b := newPublishedBot(t, tenantID)
		b.WidgetSettings.CollectEmail = true
		convID := uuid.New()

		f.botRepo.On("FindByID", mock.Anything, b.ID).Return(b, nil)
		f.flow.On("StartOrResume", mock.Anything, mock.Anything).
			Return(&conversationapp.ConversationDTO{ID: convID, Status: "active"}, nil)
		f.flow.On("IdentifyVisitor", mock.Anything, conversationapp.IdentifyVisitorInput{
			ConversationID: convID,
			Email:          "jamie@example.com",
			Name:           "Jamie",
		}).Return(&conversationapp.ConversationDTO{ID: convID}, nil)
		f.flow.On("SendMessage", mock.Anything, mock.Anything).Return(newReplyResult(convID, nil), nil)

		_, err := f.service.SendMessage(ctx, SendMessageInput{
			TenantID:     tenantID,
			BotID:        b.ID,
			VisitorID:    "visitor-7",
			Text:         "hello",
			VisitorEmail: "jamie@example.com",
			VisitorName:  "Jamie",
		})

		require.NoError(t, err)
		f.flow.AssertCalled(t, "IdentifyVisitor", mock.Anything, mock.Anything)
	})

	t.Run("ignores email when the bot does not collect them", func(t *testing.T) {
		f := newWidgetFixture()
		b := newPublishedBot(t, tenantID)
		b.WidgetSettings.CollectEmail = false
		convID := uuid.New()

		f.botRepo.On("FindByID", mock.Anything, b.ID).Return(b, nil)
		f.flow.On("StartOrResume", mock.Anything, mock.Anything).
			Return(&conversationapp.ConversationDTO{ID: convID, Status: "active"}, nil)
		f.flow.On("SendMessage", mock.Anything, mock.Anything).Return(newReplyResult(convID, nil), nil)

		_, err := f.service.SendMessage(ctx, SendMessageInput{
			TenantID:     tenantID,
			BotID:        b.ID,
			VisitorID:    "visitor-7",
			Text:         "hello",
			VisitorEmail: "jamie@example.com",
		})

		require.NoError(t, err)
		f.flow.AssertNotCalled(t, "IdentifyVisitor", mock.Anything, mock.Anything)
	})

	t.Run("refuses chat on an unpublished bot", func(t *testing.T) {
		f := newWidgetFixture()
		b, err := bot.NewBot(tenantID, "Draft Bot", "draft-bot")
		require.NoError(t, err)
		f.botRepo.On("FindByID", mock.Anything, b.ID).Return(b, nil)

		_, err = f.service.SendMessage(ctx, SendMessageInput{
			TenantID:  tenantID,
			BotID:     b.ID,
			VisitorID: "visitor-7",
			Text:      "hello",
		})

		assertBotNotFound(t, err)
		f.flow.AssertNotCalled(t, "StartOrResume", mock.Anything, mock.Anything)
	})
}

func TestWidgetService_SubmitReview(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("submits with the widget source", func(t *testing.T) {
		f := newWidgetFixture()
		b := newPublishedBot(t, tenantID)
		reviewID := uuid.New()

		f.botRepo.On("FindByID", mock.Anything, b.ID).Return(b, nil)
		f.reviews.On("Submit", mock.Anything, mock.MatchedBy(func(input reviewapp.SubmitReviewInput) bool {
			return input.Source == "widget" && input.BotID == b.ID && input.Rating == 5
		})).Return(&reviewapp.ReviewDTO{ID: reviewID, BotID: b.ID, Rating: 5, Status: "pending"}, nil)

		ack, err := f.service.SubmitReview(ctx, SubmitReviewInput{
			TenantID: tenantID,
			BotID:    b.ID,
			Rating:   5,
			Comment:  "Sorted my issue in seconds.",
		})

		require.NoError(t, err)
		assert.Equal(t, reviewID, ack.ID)
		assert.Equal(t, "pending", ack.Status)
	})

	t.Run("propagates duplicate review rejections", func(t *testing.T) {
		f := newWidgetFixture()
		b := newPublishedBot(t, tenantID)
		convID := uuid.New()

		f.botRepo.On("FindByID", mock.Anything, b.ID).Return(b, nil)
		f.reviews.On("Submit", mock.Anything, mock.Anything).Return(nil, shared.ErrAlreadyExists)

		_, err := f.service.SubmitReview(ctx, SubmitReviewInput{
			TenantID:       tenantID,
			BotID:          b.ID,
			ConversationID: &convID,
			Rating:         4,
		})

		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})
}
