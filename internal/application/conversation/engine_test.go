package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chatforge/backend/internal/domain/ai"
	"github.com/chatforge/backend/internal/domain/billing"
	"github.com/chatforge/backend/internal/domain/bot"
	"github.com/chatforge/backend/internal/domain/conversation"
	"github.com/chatforge/backend/internal/domain/knowledge"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Mock implementations

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
		return nil, args.Get(1).(int64), args.Error(2)
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

type mockConversationRepository struct {
	mock.Mock
}

func (m *mockConversationRepository) Create(ctx context.Context, c *conversation.Conversation) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockConversationRepository) Update(ctx context.Context, c *conversation.Conversation) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockConversationRepository) FindByID(ctx context.Context, id uuid.UUID) (*conversation.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*conversation.Conversation), args.Error(1)
}

func (m *mockConversationRepository) FindActiveByVisitor(ctx context.Context, botID uuid.UUID, channel conversation.Channel, visitorID string, idleWindow time.Duration) (*conversation.Conversation, error) {
	args := m.Called(ctx, botID, channel, visitorID, idleWindow)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*conversation.Conversation), args.Error(1)
}

func (m *mockConversationRepository) FindByExternalThread(ctx context.Context, botID uuid.UUID, channel conversation.Channel, externalThreadID string) (*conversation.Conversation, error) {
	args := m.Called(ctx, botID, channel, externalThreadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*conversation.Conversation), args.Error(1)
}

func (m *mockConversationRepository) FindAll(ctx context.Context, filter conversation.ConversationFilter) ([]*conversation.Conversation, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*conversation.Conversation), args.Get(1).(int64), args.Error(2)
}

func (m *mockConversationRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockConversationRepository) CountByBot(ctx context.Context, botID uuid.UUID) (int64, error) {
	args := m.Called(ctx, botID)
	return args.Get(0).(int64), args.Error(1)
}

type mockMessageRepository struct {
	mock.Mock
}

func (m *mockMessageRepository) Create(ctx context.Context, msg *conversation.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *mockMessageRepository) Update(ctx context.Context, msg *conversation.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *mockMessageRepository) FindByID(ctx context.Context, id uuid.UUID) (*conversation.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*conversation.Message), args.Error(1)
}

func (m *mockMessageRepository) FindByConversation(ctx context.Context, conversationID uuid.UUID, filter conversation.MessageFilter) ([]*conversation.Message, int64, error) {
	args := m.Called(ctx, conversationID, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*conversation.Message), args.Get(1).(int64), args.Error(2)
}

func (m *mockMessageRepository) FindRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]*conversation.Message, error) {
	args := m.Called(ctx, conversationID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*conversation.Message), args.Error(1)
}

func (m *mockMessageRepository) CountByConversation(ctx context.Context, conversationID uuid.UUID) (int64, error) {
	args := m.Called(ctx, conversationID)
	return args.Get(0).(int64), args.Error(1)
}

type mockDocumentRepository struct {
	mock.Mock
}

func (m *mockDocumentRepository) Create(ctx context.Context, d *knowledge.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *mockDocumentRepository) Update(ctx context.Context, d *knowledge.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *mockDocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*knowledge.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*knowledge.Document), args.Error(1)
}

func (m *mockDocumentRepository) FindAll(ctx context.Context, filter knowledge.DocumentFilter) ([]*knowledge.Document, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*knowledge.Document), args.Get(1).(int64), args.Error(2)
}

func (m *mockDocumentRepository) FindPending(ctx context.Context, limit int) ([]*knowledge.Document, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*knowledge.Document), args.Error(1)
}

func (m *mockDocumentRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockDocumentRepository) CountByBot(ctx context.Context, botID uuid.UUID) (int64, error) {
	args := m.Called(ctx, botID)
	return args.Get(0).(int64), args.Error(1)
}

type mockUsageRecordRepository struct {
	mock.Mock
}

func (m *mockUsageRecordRepository) Save(ctx context.Context, record *billing.UsageRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockUsageRecordRepository) SaveBatch(ctx context.Context, records []*billing.UsageRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *mockUsageRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.UsageRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.UsageRecord), args.Error(1)
}

func (m *mockUsageRecordRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, filter billing.UsageRecordFilter) ([]*billing.UsageRecord, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.UsageRecord), args.Error(1)
}

func (m *mockUsageRecordRepository) FindByTenantAndType(ctx context.Context, tenantID uuid.UUID, usageType billing.UsageType, filter billing.UsageRecordFilter) ([]*billing.UsageRecord, error) {
	args := m.Called(ctx, tenantID, usageType, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.UsageRecord), args.Error(1)
}

func (m *mockUsageRecordRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID, filter billing.UsageRecordFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUsageRecordRepository) SumByTenantAndType(ctx context.Context, tenantID uuid.UUID, usageType billing.UsageType, start, end time.Time) (int64, error) {
	args := m.Called(ctx, tenantID, usageType, start, end)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUsageRecordRepository) GetAggregatedUsage(ctx context.Context, tenantID uuid.UUID, usageType billing.UsageType, start, end time.Time, groupBy billing.AggregationPeriod) ([]billing.UsageAggregation, error) {
	args := m.Called(ctx, tenantID, usageType, start, end, groupBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.UsageAggregation), args.Error(1)
}

func (m *mockUsageRecordRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

type mockProvider struct {
	mock.Mock
	name ai.ProviderName
}

func (m *mockProvider) Name() ai.ProviderName {
	return m.name
}

func (m *mockProvider) Chat(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ai.ChatResponse), args.Error(1)
}

func (m *mockProvider) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	args := m.Called(ctx, inputs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

type mockRetriever struct {
	mock.Mock
}

func (m *mockRetriever) Search(ctx context.Context, botID uuid.UUID, queryEmbedding []float32, topK int, minScore float64) ([]knowledge.ScoredChunk, error) {
	args := m.Called(ctx, botID, queryEmbedding, topK, minScore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]knowledge.ScoredChunk), args.Error(1)
}

type mockHistoryCache struct {
	mock.Mock
}

func (m *mockHistoryCache) Get(ctx context.Context, conversationID uuid.UUID) ([]ai.ChatMessage, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ai.ChatMessage), args.Error(1)
}

func (m *mockHistoryCache) Set(ctx context.Context, conversationID uuid.UUID, history []ai.ChatMessage) error {
	args := m.Called(ctx, conversationID, history)
	return args.Error(0)
}

func (m *mockHistoryCache) Invalidate(ctx context.Context, conversationID uuid.UUID) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}

type mockQuotaChecker struct {
	mock.Mock
}

func (m *mockQuotaChecker) CheckMessageQuota(ctx context.Context, tenantID uuid.UUID) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

type mockContextEnricher struct {
	mock.Mock
}

func (m *mockContextEnricher) BuildContext(ctx context.Context, tenantID uuid.UUID, query string) (string, error) {
	args := m.Called(ctx, tenantID, query)
	return args.String(0), args.Error(1)
}

// Fixture

type engineFixture struct {
	botRepo   *mockBotRepository
	convRepo  *mockConversationRepository
	msgRepo   *mockMessageRepository
	docRepo   *mockDocumentRepository
	usageRepo *mockUsageRecordRepository
	provider  *mockProvider
	fallback  *mockProvider
	retriever *mockRetriever
	history   *mockHistoryCache
	quota     *mockQuotaChecker
	enricher  *mockContextEnricher
	engine    *ReplyEngine
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	f := &engineFixture{
		botRepo:   new(mockBotRepository),
		convRepo:  new(mockConversationRepository),
		msgRepo:   new(mockMessageRepository),
		docRepo:   new(mockDocumentRepository),
		usageRepo: new(mockUsageRecordRepository),
		provider:  &mockProvider{name: ai.ProviderOpenAI},
		fallback:  &mockProvider{name: ai.ProviderAnthropic},
		retriever: new(mockRetriever),
		history:   new(mockHistoryCache),
		quota:     new(mockQuotaChecker),
		enricher:  new(mockContextEnricher),
	}

	registry := ai.NewProviderRegistry()
	require.NoError(t, registry.Register(f.provider))
	require.NoError(t, registry.Register(f.fallback))

	f.engine = NewReplyEngine(
		f.botRepo, f.convRepo, f.msgRepo, f.docRepo, f.usageRepo,
		registry, f.retriever, f.history, f.quota, f.enricher,
		DefaultEngineConfig(), zap.NewNop(),
	)
	return f
}

func newTestBot(t *testing.T, tenantID uuid.UUID) *bot.Bot {
	t.Helper()
	b, err := bot.NewBot(tenantID, "Support Bot", "support-bot")
	require.NoError(t, err)
	require.NoError(t, b.Publish())
	b.ClearDomainEvents()
	return b
}

func newTestConversation(t *testing.T, tenantID, botID uuid.UUID) *conversation.Conversation {
	t.Helper()
	c, err := conversation.NewConversation(tenantID, botID, conversation.ChannelWeb, "visitor-1")
	require.NoError(t, err)
	c.ClearDomainEvents()
	return c
}

func newTestUserMessage(t *testing.T, c *conversation.Conversation, content string) *conversation.Message {
	t.Helper()
	m, err := conversation.NewUserMessage(c.TenantID, c.ID, content)
	require.NoError(t, err)
	return m
}

func TestReplyEngine_GenerateReply(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("generates reply with retrieval and history", func(t *testing.T) {
		f := newEngineFixture(t)
		b := newTestBot(t, tenantID)
		c := newTestConversation(t, tenantID, b.ID)
		userMsg := newTestUserMessage(t, c, "What is your refund policy?")

		doc, err := knowledge.NewTextDocument(tenantID, b.ID, "Refund Policy", "tenants/docs/refund-policy.md", 64)
		require.NoError(t, err)
		chunk := knowledge.NewChunk(doc, 0, "Refunds", "Refunds are granted within 30 days.")

		f.quota.On("CheckMessageQuota", ctx, tenantID).Return(nil)
		f.botRepo.On("FindByID", ctx, b.ID).Return(b, nil)
		f.provider.On("Embed", ctx, []string{"What is your refund policy?"}).
			Return([][]float32{{0.1, 0.2, 0.3}}, nil)
		f.retriever.On("Search", ctx, b.ID, []float32{0.1, 0.2, 0.3}, 4, 0.35).
			Return([]knowledge.ScoredChunk{{Chunk: chunk, Score: 0.91}}, nil)
		f.docRepo.On("FindByID", ctx, doc.ID).Return(doc, nil)
		f.history.On("Get", ctx, c.ID).
			Return([]ai.ChatMessage{
				{Role: ai.RoleUser, Content: "Hi"},
				{Role: ai.RoleAssistant, Content: "Hello! How can I help?"},
			}, nil)
		f.enricher.On("BuildContext", ctx, tenantID, "What is your refund policy?").Return("", nil)
		f.provider.On("Chat", ctx, mock.MatchedBy(func(req ai.ChatRequest) bool {
			return req.Model == "gpt-4o-mini" &&
				len(req.Messages) == 4 &&
				req.Messages[0].Role == ai.RoleSystem &&
				req.Messages[3].Content == "What is your refund policy?"
		})).Return(&ai.ChatResponse{
			Content:      "You can request a refund within 30 days.",
			FinishReason: "stop",
			Usage:        ai.Usage{PromptTokens: 120, CompletionTokens: 18},
		}, nil)
		f.msgRepo.On("Create", ctx, mock.AnythingOfType("*conversation.Message")).Return(nil)
		f.convRepo.On("Update", ctx, c).Return(nil)
		f.usageRepo.On("Save", ctx, mock.AnythingOfType("*billing.UsageRecord")).Return(nil).Twice()
		f.history.On("Set", ctx, c.ID, mock.AnythingOfType("[]ai.ChatMessage")).Return(nil)

		reply, err := f.engine.GenerateReply(ctx, c, userMsg)

		require.NoError(t, err)
		assert.Equal(t, "You can request a refund within 30 days.", reply.Content)
		assert.Equal(t, conversation.MessageRoleAssistant, reply.Role)
		assert.Equal(t, "openai", reply.Provider)
		assert.Equal(t, "gpt-4o-mini", reply.Model)
		assert.Equal(t, 120, reply.TokensPrompt)
		assert.Equal(t, 18, reply.TokensCompletion)
		require.Len(t, reply.Sources, 1)
		assert.Equal(t, doc.ID, reply.Sources[0].DocumentID)
		assert.Equal(t, "Refund Policy", reply.Sources[0].DocumentName)
		assert.InDelta(t, 0.91, reply.Sources[0].Score, 0.001)
		assert.Equal(t, 1, c.MessageCount)

		events := c.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, conversation.EventTypeMessageProcessed, events[0].EventType())

		f.provider.AssertExpectations(t)
		f.msgRepo.AssertExpectations(t)
		f.usageRepo.AssertExpectations(t)
		f.history.AssertExpectations(t)
	})

	t.Run("skips retrieval when knowledge base is empty", func(t *testing.T) {
		f := newEngineFixture(t)
		b := newTestBot(t, tenantID)
		c := newTestConversation(t, tenantID, b.ID)
		userMsg := newTestUserMessage(t, c, "Hello")

		f.quota.On("CheckMessageQuota", ctx, tenantID).Return(nil)
		f.botRepo.On("FindByID", ctx, b.ID).Return(b, nil)
		f.provider.On("Embed", ctx, []string{"Hello"}).Return([][]float32{{0.5}}, nil)
		f.retriever.On("Search", ctx, b.ID, []float32{0.5}, 4, 0.35).
			Return([]knowledge.ScoredChunk{}, nil)
		f.history.On("Get", ctx, c.ID).Return(nil, shared.ErrNotFound)
		f.msgRepo.On("FindRecent", ctx, c.ID, 13).Return([]*conversation.Message{userMsg}, nil)
		f.enricher.On("BuildContext", ctx, tenantID, "Hello").Return("", nil)
		f.provider.On("Chat", ctx, mock.MatchedBy(func(req ai.ChatRequest) bool {
			// System prompt plus the user turn only
			return len(req.Messages) == 2
		})).Return(&ai.ChatResponse{Content: "Hi there!", Usage: ai.Usage{PromptTokens: 10, CompletionTokens: 3}}, nil)
		f.msgRepo.On("Create", ctx, mock.AnythingOfType("*conversation.Message")).Return(nil)
		f.convRepo.On("Update", ctx, c).Return(nil)
		f.usageRepo.On("Save", ctx, mock.AnythingOfType("*billing.UsageRecord")).Return(nil)
		f.history.On("Set", ctx, c.ID, mock.AnythingOfType("[]ai.ChatMessage")).Return(nil)

		reply, err := f.engine.GenerateReply(ctx, c, userMsg)

		require.NoError(t, err)
		assert.Empty(t, reply.Sources)
		f.docRepo.AssertNotCalled(t, "FindByID")
	})

	t.Run("rejects when message quota exceeded", func(t *testing.T) {
		f := newEngineFixture(t)
		b := newTestBot(t, tenantID)
		c := newTestConversation(t, tenantID, b.ID)
		userMsg := newTestUserMessage(t, c, "Hello")

		quotaErr := errors.New("monthly message quota exceeded")
		f.quota.On("CheckMessageQuota", ctx, tenantID).Return(quotaErr)

		_, err := f.engine.GenerateReply(ctx, c, userMsg)

		assert.ErrorIs(t, err, quotaErr)
		f.botRepo.AssertNotCalled(t, "FindByID")
		f.provider.AssertNotCalled(t, "Chat")
	})

	t.Run("refuses handed off conversation", func(t *testing.T) {
		f := newEngineFixture(t)
		b := newTestBot(t, tenantID)
		c := newTestConversation(t, tenantID, b.ID)
		require.NoError(t, c.HandOff())
		userMsg := newTestUserMessage(t, c, "Hello")

		_, err := f.engine.GenerateReply(ctx, c, userMsg)

		assert.ErrorIs(t, err, shared.ErrInvalidState)
		f.quota.AssertNotCalled(t, "CheckMessageQuota")
	})

	t.Run("records failure on user message when provider fails", func(t *testing.T) {
		f := newEngineFixture(t)
		b := newTestBot(t, tenantID)
		c := newTestConversation(t, tenantID, b.ID)
		userMsg := newTestUserMessage(t, c, "Hello")

		f.quota.On("CheckMessageQuota", ctx, tenantID).Return(nil)
		f.botRepo.On("FindByID", ctx, b.ID).Return(b, nil)
		f.provider.On("Embed", ctx, []string{"Hello"}).Return([][]float32{{0.5}}, nil)
		f.retriever.On("Search", ctx, b.ID, []float32{0.5}, 4, 0.35).
			Return([]knowledge.ScoredChunk{}, nil)
		f.history.On("Get", ctx, c.ID).Return(nil, shared.ErrNotFound)
		f.msgRepo.On("FindRecent", ctx, c.ID, 13).Return([]*conversation.Message{}, nil)
		f.enricher.On("BuildContext", ctx, tenantID, "Hello").Return("", nil)
		f.provider.On("Chat", ctx, mock.AnythingOfType("ai.ChatRequest")).
			Return(nil, ai.ErrRateLimited)
		f.msgRepo.On("Update", ctx, userMsg).Return(nil)

		_, err := f.engine.GenerateReply(ctx, c, userMsg)

		assert.ErrorIs(t, err, shared.ErrProviderUnavailable)
		assert.NotEmpty(t, userMsg.FailureReason)
		f.msgRepo.AssertNotCalled(t, "Create")
		f.convRepo.AssertNotCalled(t, "Update")
		f.usageRepo.AssertNotCalled(t, "Save")
	})

	t.Run("falls back for embeddings when provider has none", func(t *testing.T) {
		f := newEngineFixture(t)
		b := newTestBot(t, tenantID)
		require.NoError(t, b.UpdateModelSettings(bot.ModelSettings{
			Provider:    bot.ModelProviderAnthropic,
			Model:       "claude-sonnet-4-5",
			Temperature: 0.5,
			MaxTokens:   2048,
		}))
		c := newTestConversation(t, tenantID, b.ID)
		userMsg := newTestUserMessage(t, c, "Hello")

		engine := NewReplyEngine(
			f.botRepo, f.convRepo, f.msgRepo, f.docRepo, f.usageRepo,
			mustRegistry(t, f.fallback, f.provider), f.retriever, f.history, f.quota, f.enricher,
			EngineConfig{HistoryWindow: 12, EmbedFallback: ai.ProviderOpenAI}, zap.NewNop(),
		)

		f.quota.On("CheckMessageQuota", ctx, tenantID).Return(nil)
		f.botRepo.On("FindByID", ctx, b.ID).Return(b, nil)
		f.fallback.On("Embed", ctx, []string{"Hello"}).Return(nil, ai.ErrEmbeddingsUnsupported)
		f.provider.On("Embed", ctx, []string{"Hello"}).Return([][]float32{{0.7}}, nil)
		f.retriever.On("Search", ctx, b.ID, []float32{0.7}, 4, 0.35).
			Return([]knowledge.ScoredChunk{}, nil)
		f.history.On("Get", ctx, c.ID).Return(nil, shared.ErrNotFound)
		f.msgRepo.On("FindRecent", ctx, c.ID, 13).Return([]*conversation.Message{}, nil)
		f.enricher.On("BuildContext", ctx, tenantID, "Hello").Return("", nil)
		f.fallback.On("Chat", ctx, mock.AnythingOfType("ai.ChatRequest")).
			Return(&ai.ChatResponse{Content: "Hi!", Usage: ai.Usage{PromptTokens: 8, CompletionTokens: 2}}, nil)
		f.msgRepo.On("Create", ctx, mock.AnythingOfType("*conversation.Message")).Return(nil)
		f.convRepo.On("Update", ctx, c).Return(nil)
		f.usageRepo.On("Save", ctx, mock.AnythingOfType("*billing.UsageRecord")).Return(nil)
		f.history.On("Set", ctx, c.ID, mock.AnythingOfType("[]ai.ChatMessage")).Return(nil)

		reply, err := engine.GenerateReply(ctx, c, userMsg)

		require.NoError(t, err)
		assert.Equal(t, "anthropic", reply.Provider)
		f.provider.AssertCalled(t, "Embed", ctx, []string{"Hello"})
	})

	t.Run("degrades when integration context fails", func(t *testing.T) {
		f := newEngineFixture(t)
		b := newTestBot(t, tenantID)
		c := newTestConversation(t, tenantID, b.ID)
		userMsg := newTestUserMessage(t, c, "Where is my order?")

		f.quota.On("CheckMessageQuota", ctx, tenantID).Return(nil)
		f.botRepo.On("FindByID", ctx, b.ID).Return(b, nil)
		f.provider.On("Embed", ctx, []string{"Where is my order?"}).Return([][]float32{{0.2}}, nil)
		f.retriever.On("Search", ctx, b.ID, []float32{0.2}, 4, 0.35).
			Return([]knowledge.ScoredChunk{}, nil)
		f.history.On("Get", ctx, c.ID).Return(nil, shared.ErrNotFound)
		f.msgRepo.On("FindRecent", ctx, c.ID, 13).Return([]*conversation.Message{}, nil)
		f.enricher.On("BuildContext", ctx, tenantID, "Where is my order?").
			Return("", errors.New("store unreachable"))
		f.provider.On("Chat", ctx, mock.AnythingOfType("ai.ChatRequest")).
			Return(&ai.ChatResponse{Content: "Let me check.", Usage: ai.Usage{PromptTokens: 9, CompletionTokens: 3}}, nil)
		f.msgRepo.On("Create", ctx, mock.AnythingOfType("*conversation.Message")).Return(nil)
		f.convRepo.On("Update", ctx, c).Return(nil)
		f.usageRepo.On("Save", ctx, mock.AnythingOfType("*billing.UsageRecord")).Return(nil)
		f.history.On("Set", ctx, c.ID, mock.AnythingOfType("[]ai.ChatMessage")).Return(nil)

		reply, err := f.engine.GenerateReply(ctx, c, userMsg)

		require.NoError(t, err)
		assert.Equal(t, "Let me check.", reply.Content)
	})

	t.Run("uses cached history without hitting the database", func(t *testing.T) {
		f := newEngineFixture(t)
		b := newTestBot(t, tenantID)
		c := newTestConversation(t, tenantID, b.ID)
		userMsg := newTestUserMessage(t, c, "And shipping?")

		f.quota.On("CheckMessageQuota", ctx, tenantID).Return(nil)
		f.botRepo.On("FindByID", ctx, b.ID).Return(b, nil)
		f.provider.On("Embed", ctx, []string{"And shipping?"}).Return([][]float32{{0.3}}, nil)
		f.retriever.On("Search", ctx, b.ID, []float32{0.3}, 4, 0.35).
			Return([]knowledge.ScoredChunk{}, nil)
		f.history.On("Get", ctx, c.ID).Return([]ai.ChatMessage{
			{Role: ai.RoleUser, Content: "What is your refund policy?"},
			{Role: ai.RoleAssistant, Content: "30 days."},
		}, nil)
		f.enricher.On("BuildContext", ctx, tenantID, "And shipping?").Return("", nil)
		f.provider.On("Chat", ctx, mock.MatchedBy(func(req ai.ChatRequest) bool {
			return len(req.Messages) == 4 && req.Messages[1].Content == "What is your refund policy?"
		})).Return(&ai.ChatResponse{Content: "Free over $50.", Usage: ai.Usage{PromptTokens: 30, CompletionTokens: 5}}, nil)
		f.msgRepo.On("Create", ctx, mock.AnythingOfType("*conversation.Message")).Return(nil)
		f.convRepo.On("Update", ctx, c).Return(nil)
		f.usageRepo.On("Save", ctx, mock.AnythingOfType("*billing.UsageRecord")).Return(nil)
		f.history.On("Set", ctx, c.ID, mock.AnythingOfType("[]ai.ChatMessage")).Return(nil)

		_, err := f.engine.GenerateReply(ctx, c, userMsg)

		require.NoError(t, err)
		f.msgRepo.AssertNotCalled(t, "FindRecent")
	})
}

func mustRegistry(t *testing.T, providers ...ai.ModelProvider) *ai.ProviderRegistry {
	t.Helper()
	registry := ai.NewProviderRegistry()
	for _, p := range providers {
		require.NoError(t, registry.Register(p))
	}
	return registry
}
