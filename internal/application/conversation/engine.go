package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chatforge/backend/internal/domain/ai"
	"github.com/chatforge/backend/internal/domain/billing"
	"github.com/chatforge/backend/internal/domain/bot"
	"github.com/chatforge/backend/internal/domain/conversation"
	"github.com/chatforge/backend/internal/domain/knowledge"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QuotaChecker verifies the monthly message quota before a reply is generated
type QuotaChecker interface {
	CheckMessageQuota(ctx context.Context, tenantID uuid.UUID) error
}

// HistoryCache caches the rolling chat history of a conversation so the
// engine does not hit the database on every turn
type HistoryCache interface {
	Get(ctx context.Context, conversationID uuid.UUID) ([]ai.ChatMessage, error)
	Set(ctx context.Context, conversationID uuid.UUID, history []ai.ChatMessage) error
	Invalidate(ctx context.Context, conversationID uuid.UUID) error
}

// ContextEnricher contributes extra system context for a user query,
// such as live commerce answers when a shopping intent is detected.
// Implementations return an empty string when they have nothing to add.
type ContextEnricher interface {
	BuildContext(ctx context.Context, tenantID uuid.UUID, query string) (string, error)
}

// EngineConfig tunes the reply pipeline
type EngineConfig struct {
	// HistoryWindow is the maximum number of past messages sent to the provider
	HistoryWindow int
	// EmbedFallback is used for query embeddings when the bot's provider
	// has no embeddings API
	EmbedFallback ai.ProviderName
}

// DefaultEngineConfig returns the engine defaults
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		HistoryWindow: 12,
		EmbedFallback: ai.ProviderOpenAI,
	}
}

// ReplyEngine assembles the prompt for a user message and produces the
// assistant reply: retrieval over the bot's knowledge base, rolling
// history, optional integration context, then one provider round trip
type ReplyEngine struct {
	botRepo   bot.BotRepository
	convRepo  conversation.ConversationRepository
	msgRepo   conversation.MessageRepository
	docRepo   knowledge.DocumentRepository
	usageRepo billing.UsageRecordRepository
	providers *ai.ProviderRegistry
	retriever knowledge.Retriever
	history   HistoryCache
	quota     QuotaChecker
	enricher  ContextEnricher
	config    EngineConfig
	logger    *zap.Logger
}

// NewReplyEngine creates a reply engine. The history cache, quota checker
// and context enricher are optional; the engine degrades gracefully
// without them.
func NewReplyEngine(
	botRepo bot.BotRepository,
	convRepo conversation.ConversationRepository,
	msgRepo conversation.MessageRepository,
	docRepo knowledge.DocumentRepository,
	usageRepo billing.UsageRecordRepository,
	providers *ai.ProviderRegistry,
	retriever knowledge.Retriever,
	history HistoryCache,
	quota QuotaChecker,
	enricher ContextEnricher,
	config EngineConfig,
	logger *zap.Logger,
) *ReplyEngine {
	if config.HistoryWindow <= 0 {
		config.HistoryWindow = DefaultEngineConfig().HistoryWindow
	}
	if config.EmbedFallback == "" {
		config.EmbedFallback = DefaultEngineConfig().EmbedFallback
	}
	return &ReplyEngine{
		botRepo:   botRepo,
		convRepo:  convRepo,
		msgRepo:   msgRepo,
		docRepo:   docRepo,
		usageRepo: usageRepo,
		providers: providers,
		retriever: retriever,
		history:   history,
		quota:     quota,
		enricher:  enricher,
		config:    config,
		logger:    logger,
	}
}

// GenerateReply produces and persists the assistant reply to userMsg.
// The user message must already be persisted. On provider failure the
// failure is recorded on the user message and no assistant message is
// stored.
func (e *ReplyEngine) GenerateReply(ctx context.Context, conv *conversation.Conversation, userMsg *conversation.Message) (*conversation.Message, error) {
	if !conv.CanBotReply() {
		return nil, shared.ErrInvalidState
	}

	if e.quota != nil {
		if err := e.quota.CheckMessageQuota(ctx, conv.TenantID); err != nil {
			return nil, err
		}
	}

	b, err := e.botRepo.FindByID(ctx, conv.BotID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("BOT_NOT_FOUND", "Bot not found")
		}
		e.logger.Error("Failed to load bot for reply",
			zap.String("bot_id", conv.BotID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load bot")
	}

	provider, err := e.providers.Get(ai.ProviderName(b.ModelSettings.Provider))
	if err != nil {
		return nil, err
	}

	sources := e.retrieve(ctx, b, userMsg.Content)
	turns := e.loadHistory(ctx, conv, userMsg)
	system := e.composeSystemPrompt(ctx, b, userMsg.Content, sources)

	messages := make([]ai.ChatMessage, 0, len(turns)+2)
	messages = append(messages, ai.ChatMessage{Role: ai.RoleSystem, Content: system})
	messages = append(messages, turns...)
	messages = append(messages, ai.ChatMessage{Role: ai.RoleUser, Content: userMsg.Content})

	req := ai.ChatRequest{
		Model:       b.ModelSettings.Model,
		Messages:    messages,
		Temperature: b.ModelSettings.Temperature,
		MaxTokens:   b.ModelSettings.MaxTokens,
	}

	start := time.Now()
	resp, err := provider.Chat(ctx, req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		e.logger.Error("Provider call failed",
			zap.String("conversation_id", conv.ID.String()),
			zap.String("provider", string(b.ModelSettings.Provider)),
			zap.String("model", b.ModelSettings.Model),
			zap.Error(err))
		e.recordFailure(ctx, userMsg, err)
		return nil, fmt.Errorf("%w: %s provider: %v", shared.ErrProviderUnavailable, b.ModelSettings.Provider, err)
	}

	usage := conversation.AssistantUsage{
		Provider:         string(b.ModelSettings.Provider),
		Model:            b.ModelSettings.Model,
		TokensPrompt:     resp.Usage.PromptTokens,
		TokensCompletion: resp.Usage.CompletionTokens,
		LatencyMS:        latency,
	}

	reply, err := conversation.NewAssistantMessage(conv.TenantID, conv.ID, resp.Content, usage, e.usedSources(sources))
	if err != nil {
		return nil, err
	}
	if err := e.msgRepo.Create(ctx, reply); err != nil {
		e.logger.Error("Failed to persist assistant message",
			zap.String("conversation_id", conv.ID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save reply")
	}

	conv.RecordMessage(reply.CreatedAt)
	conv.AddDomainEvent(conversation.NewMessageProcessedEvent(conv, reply))
	if err := e.convRepo.Update(ctx, conv); err != nil {
		e.logger.Error("Failed to update conversation after reply",
			zap.String("conversation_id", conv.ID.String()),
			zap.Error(err))
	}

	e.recordUsage(ctx, conv, reply)
	e.cacheHistory(ctx, conv.ID, turns, userMsg.Content, reply.Content)

	return reply, nil
}

// retrieve embeds the query and ranks the bot's chunks. Retrieval is best
// effort: any failure logs a warning and the reply proceeds without sources.
func (e *ReplyEngine) retrieve(ctx context.Context, b *bot.Bot, query string) []scoredSource {
	if e.retriever == nil {
		return nil
	}

	vector, err := e.embedQuery(ctx, ai.ProviderName(b.ModelSettings.Provider), query)
	if err != nil {
		e.logger.Warn("Query embedding failed, replying without retrieval",
			zap.String("bot_id", b.ID.String()),
			zap.Error(err))
		return nil
	}

	scored, err := e.retriever.Search(ctx, b.ID, vector, b.RetrievalTopK, b.RetrievalMinScore)
	if err != nil {
		e.logger.Warn("Chunk retrieval failed, replying without sources",
			zap.String("bot_id", b.ID.String()),
			zap.Error(err))
		return nil
	}
	if len(scored) == 0 {
		return nil
	}

	names := make(map[uuid.UUID]string, len(scored))
	sources := make([]scoredSource, 0, len(scored))
	for _, sc := range scored {
		name, ok := names[sc.Chunk.DocumentID]
		if !ok {
			if doc, derr := e.docRepo.FindByID(ctx, sc.Chunk.DocumentID); derr == nil {
				name = doc.Name
			}
			names[sc.Chunk.DocumentID] = name
		}
		sources = append(sources, scoredSource{chunk: sc.Chunk, score: sc.Score, documentName: name})
	}
	return sources
}

// embedQuery produces the query embedding, falling back to the configured
// embeddings provider when the bot's provider has none
func (e *ReplyEngine) embedQuery(ctx context.Context, name ai.ProviderName, query string) ([]float32, error) {
	provider, err := e.providers.Get(name)
	if err != nil {
		return nil, err
	}

	vectors, err := provider.Embed(ctx, []string{query})
	if errors.Is(err, ai.ErrEmbeddingsUnsupported) && name != e.config.EmbedFallback {
		fallback, ferr := e.providers.Get(e.config.EmbedFallback)
		if ferr != nil {
			return nil, ferr
		}
		vectors, err = fallback.Embed(ctx, []string{query})
	}
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: empty embedding response", ai.ErrProviderRequestFailed)
	}
	return vectors[0], nil
}

// loadHistory returns the prior turns of the conversation, preferring the
// cache and falling back to the database. The current user message is
// excluded; it is appended separately.
func (e *ReplyEngine) loadHistory(ctx context.Context, conv *conversation.Conversation, userMsg *conversation.Message) []ai.ChatMessage {
	if e.history != nil {
		cached, err := e.history.Get(ctx, conv.ID)
		if err == nil && cached != nil {
			return trimHistory(cached, e.config.HistoryWindow)
		}
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			e.logger.Warn("History cache read failed, falling back to database",
				zap.String("conversation_id", conv.ID.String()),
				zap.Error(err))
		}
	}

	recent, err := e.msgRepo.FindRecent(ctx, conv.ID, e.config.HistoryWindow+1)
	if err != nil {
		e.logger.Warn("Failed to load conversation history",
			zap.String("conversation_id", conv.ID.String()),
			zap.Error(err))
		return nil
	}

	turns := make([]ai.ChatMessage, 0, len(recent))
	for _, m := range recent {
		if m.ID == userMsg.ID || m.FailureReason != "" {
			continue
		}
		switch m.Role {
		case conversation.MessageRoleUser:
			turns = append(turns, ai.ChatMessage{Role: ai.RoleUser, Content: m.Content})
		case conversation.MessageRoleAssistant:
			turns = append(turns, ai.ChatMessage{Role: ai.RoleAssistant, Content: m.Content})
		}
	}
	return trimHistory(turns, e.config.HistoryWindow)
}

// composeSystemPrompt layers the bot persona, integration context and
// retrieved knowledge into a single system message
func (e *ReplyEngine) composeSystemPrompt(ctx context.Context, b *bot.Bot, query string, sources []scoredSource) string {
	var sb strings.Builder

	prompt := strings.TrimSpace(b.ModelSettings.SystemPrompt)
	if prompt == "" {
		prompt = "You are a helpful customer support assistant."
	}
	sb.WriteString(prompt)

	if e.enricher != nil {
		extra, err := e.enricher.BuildContext(ctx, b.TenantID, query)
		if err != nil {
			e.logger.Warn("Integration context lookup failed",
				zap.String("tenant_id", b.TenantID.String()),
				zap.Error(err))
		} else if extra != "" {
			sb.WriteString("\n\n")
			sb.WriteString(extra)
		}
	}

	if len(sources) > 0 {
		sb.WriteString("\n\nAnswer using the knowledge base excerpts below when they are relevant. ")
		sb.WriteString("If they do not cover the question, say you are not sure instead of guessing.\n")
		for _, src := range sources {
			sb.WriteString("\n[Source: ")
			if src.documentName != "" {
				sb.WriteString(src.documentName)
			} else {
				sb.WriteString(src.chunk.DocumentID.String())
			}
			if src.chunk.Heading != "" {
				sb.WriteString(" / ")
				sb.WriteString(src.chunk.Heading)
			}
			sb.WriteString("]\n")
			sb.WriteString(src.chunk.Content)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// recordFailure annotates the user message with the provider failure
func (e *ReplyEngine) recordFailure(ctx context.Context, userMsg *conversation.Message, cause error) {
	userMsg.MarkFailed(cause.Error())
	if err := e.msgRepo.Update(ctx, userMsg); err != nil {
		e.logger.Error("Failed to record reply failure",
			zap.String("message_id", userMsg.ID.String()),
			zap.Error(err))
	}
}

// recordUsage writes the message and token usage records. Failures are
// logged; a metering problem never loses a reply.
func (e *ReplyEngine) recordUsage(ctx context.Context, conv *conversation.Conversation, reply *conversation.Message) {
	if e.usageRepo == nil {
		return
	}

	msgRecord, err := billing.CreateMessageRecord(conv.TenantID, conv.BotID.String(), conv.ID.String())
	if err == nil {
		err = e.usageRepo.Save(ctx, msgRecord)
	}
	if err != nil {
		e.logger.Error("Failed to record message usage",
			zap.String("tenant_id", conv.TenantID.String()),
			zap.Error(err))
	}

	total := int64(reply.TotalTokens())
	if total <= 0 {
		return
	}
	tokenRecord, err := billing.CreateTokenRecord(conv.TenantID, total, reply.Provider, reply.Model, reply.ID.String())
	if err == nil {
		err = e.usageRepo.Save(ctx, tokenRecord)
	}
	if err != nil {
		e.logger.Error("Failed to record token usage",
			zap.String("tenant_id", conv.TenantID.String()),
			zap.Error(err))
	}
}

// cacheHistory stores the updated rolling window after a completed turn
func (e *ReplyEngine) cacheHistory(ctx context.Context, conversationID uuid.UUID, turns []ai.ChatMessage, userContent, replyContent string) {
	if e.history == nil {
		return
	}
	window := append(turns,
		ai.ChatMessage{Role: ai.RoleUser, Content: userContent},
		ai.ChatMessage{Role: ai.RoleAssistant, Content: replyContent},
	)
	window = trimHistory(window, e.config.HistoryWindow)
	if err := e.history.Set(ctx, conversationID, window); err != nil {
		e.logger.Warn("Failed to cache conversation history",
			zap.String("conversation_id", conversationID.String()),
			zap.Error(err))
	}
}

// usedSources converts retrieval hits into the chunk references stored on
// the assistant message
func (e *ReplyEngine) usedSources(sources []scoredSource) []conversation.ChunkRef {
	if len(sources) == 0 {
		return nil
	}
	refs := make([]conversation.ChunkRef, len(sources))
	for i, src := range sources {
		refs[i] = conversation.ChunkRef{
			DocumentID:   src.chunk.DocumentID,
			ChunkID:      src.chunk.ID,
			DocumentName: src.documentName,
			Score:        src.score,
		}
	}
	return refs
}

// scoredSource pairs a retrieved chunk with its resolved document name
type scoredSource struct {
	chunk        *knowledge.Chunk
	score        float64
	documentName string
}

func trimHistory(turns []ai.ChatMessage, window int) []ai.ChatMessage {
	if window <= 0 || len(turns) <= window {
		return turns
	}
	return turns[len(turns)-window:]
}
