package knowledge

import (
	"context"
	"errors"
	"fmt"

	"github.com/chatforge/backend/internal/domain/ai"
	"github.com/chatforge/backend/internal/domain/billing"
	"github.com/chatforge/backend/internal/domain/bot"
	"github.com/chatforge/backend/internal/domain/knowledge"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/chatforge/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PageFetcher renders a web page and returns its visible text.
// Implemented by the headless-browser crawler in the infrastructure layer.
type PageFetcher interface {
	FetchText(ctx context.Context, pageURL string) (string, error)
}

// TextExtractor turns stored document bytes into plain text
type TextExtractor interface {
	Extract(mimeType string, data []byte) (string, error)
}

// IngestionConfig holds configuration for the ingestion service
type IngestionConfig struct {
	// EmbedBatchSize is the number of chunks embedded per provider call
	EmbedBatchSize int
	// DefaultEmbedProvider is used when a bot's chat provider has no
	// embeddings endpoint
	DefaultEmbedProvider ai.ProviderName
}

// DefaultIngestionConfig returns default ingestion configuration
func DefaultIngestionConfig() IngestionConfig {
	return IngestionConfig{
		EmbedBatchSize:       64,
		DefaultEmbedProvider: ai.ProviderOpenAI,
	}
}

// IngestionService runs the document ingestion pipeline: extract text,
// chunk it, embed the chunks, and store them for retrieval.
type IngestionService struct {
	docRepo   knowledge.DocumentRepository
	chunkRepo knowledge.ChunkRepository
	botRepo   bot.BotRepository
	storage   ObjectStorageService
	crawler   PageFetcher
	extractor TextExtractor
	providers *ai.ProviderRegistry
	usageRepo billing.UsageRecordRepository
	config    IngestionConfig
	logger    *zap.Logger
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(
	docRepo knowledge.DocumentRepository,
	chunkRepo knowledge.ChunkRepository,
	botRepo bot.BotRepository,
	storage ObjectStorageService,
	crawler PageFetcher,
	extractor TextExtractor,
	providers *ai.ProviderRegistry,
	usageRepo billing.UsageRecordRepository,
	config IngestionConfig,
	logger *zap.Logger,
) *IngestionService {
	if config.EmbedBatchSize <= 0 {
		config.EmbedBatchSize = DefaultIngestionConfig().EmbedBatchSize
	}
	if config.DefaultEmbedProvider == "" {
		config.DefaultEmbedProvider = DefaultIngestionConfig().DefaultEmbedProvider
	}
	return &IngestionService{
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		botRepo:   botRepo,
		storage:   storage,
		crawler:   crawler,
		extractor: extractor,
		providers: providers,
		usageRepo: usageRepo,
		config:    config,
		logger:    logger,
	}
}

// ProcessPending picks up to limit pending documents and ingests them.
// Returns the number of documents processed, counting failures.
func (s *IngestionService) ProcessPending(ctx context.Context, limit int) (int, error) {
	docs, err := s.docRepo.FindPending(ctx, limit)
	if err != nil {
		s.logger.Error("Failed to fetch pending documents", zap.Error(err))
		return 0, err
	}

	processed := 0
	for _, doc := range docs {
		// Pending lookup is cross-tenant, repositories downstream expect
		// the document's tenant on the context
		docCtx, _ := logger.WithTenantID(ctx, logger.FromContext(ctx), doc.TenantID.String())

		if err := s.ProcessDocument(docCtx, doc); err != nil {
			s.logger.Warn("Document ingestion failed",
				zap.String("document_id", doc.ID.String()),
				zap.Error(err))
		}
		processed++

		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
	}

	return processed, nil
}

// ProcessDocument runs the full ingestion pipeline for one document.
// Failures are recorded on the document and returned.
func (s *IngestionService) ProcessDocument(ctx context.Context, doc *knowledge.Document) error {
	s.logger.Info("Ingesting document",
		zap.String("document_id", doc.ID.String()),
		zap.String("source_type", string(doc.SourceType)),
		zap.String("name", doc.Name))

	if err := doc.StartProcessing(); err != nil {
		return err
	}
	if err := s.docRepo.Update(ctx, doc); err != nil {
		s.logger.Error("Failed to mark document processing", zap.Error(err))
		return err
	}

	text, err := s.loadText(ctx, doc)
	if err != nil {
		return s.fail(ctx, doc, err)
	}

	sections := knowledge.SplitText(text, knowledge.MaxChunkSize, knowledge.ChunkOverlap)
	if len(sections) == 0 {
		return s.fail(ctx, doc, errors.New("document contains no extractable text"))
	}

	chunks := make([]*knowledge.Chunk, len(sections))
	texts := make([]string, len(sections))
	for i, sec := range sections {
		chunks[i] = knowledge.NewChunk(doc, i, sec.Heading, sec.Content)
		texts[i] = sec.Content
	}

	embeddings, err := s.embed(ctx, doc.BotID, texts)
	if err != nil {
		return s.fail(ctx, doc, err)
	}
	for i := range chunks {
		chunks[i].SetEmbedding(embeddings[i])
	}

	if err := s.chunkRepo.ReplaceForDocument(ctx, doc.ID, chunks); err != nil {
		return s.fail(ctx, doc, fmt.Errorf("failed to store chunks: %w", err))
	}

	if err := doc.MarkReady(len(chunks)); err != nil {
		return err
	}
	if err := s.docRepo.Update(ctx, doc); err != nil {
		s.logger.Error("Failed to mark document ready", zap.Error(err))
		return err
	}

	s.logger.Info("Document ingested",
		zap.String("document_id", doc.ID.String()),
		zap.Int("chunks", len(chunks)))

	return nil
}

// loadText fetches and extracts the document's plain text
func (s *IngestionService) loadText(ctx context.Context, doc *knowledge.Document) (string, error) {
	if doc.SourceType == knowledge.SourceTypeURL {
		text, err := s.crawler.FetchText(ctx, doc.SourceURL)
		if err != nil {
			return "", fmt.Errorf("failed to crawl page: %w", err)
		}
		s.recordCrawlUsage(ctx, doc)
		return text, nil
	}

	if !knowledge.IsExtractableMimeType(doc.MimeType) {
		return "", knowledge.ErrUnsupportedFormat
	}

	data, err := s.storage.Download(ctx, doc.StorageKey)
	if err != nil {
		return "", fmt.Errorf("failed to read stored file: %w", err)
	}

	text, err := s.extractor.Extract(doc.MimeType, data)
	if err != nil {
		return "", err
	}
	return text, nil
}

// embed returns one embedding per input text, batched to the provider.
// A bot whose chat provider has no embeddings endpoint falls back to the
// configured default.
func (s *IngestionService) embed(ctx context.Context, botID uuid.UUID, texts []string) ([][]float32, error) {
	b, err := s.botRepo.FindByID(ctx, botID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bot: %w", err)
	}

	provider, err := s.providers.Get(ai.ProviderName(b.ModelSettings.Provider))
	if err != nil {
		return nil, err
	}

	embeddings := make([][]float32, 0, len(texts))
	usedFallback := false

	for start := 0; start < len(texts); start += s.config.EmbedBatchSize {
		end := start + s.config.EmbedBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := provider.Embed(ctx, texts[start:end])
		if errors.Is(err, ai.ErrEmbeddingsUnsupported) && !usedFallback {
			provider, err = s.providers.Get(s.config.DefaultEmbedProvider)
			if err != nil {
				return nil, err
			}
			usedFallback = true
			batch, err = provider.Embed(ctx, texts[start:end])
		}
		if err != nil {
			return nil, fmt.Errorf("embedding failed: %w", err)
		}
		if len(batch) != end-start {
			return nil, shared.NewDomainError("EMBEDDING_MISMATCH", "Provider returned a wrong number of embeddings")
		}

		embeddings = append(embeddings, batch...)
	}

	if usedFallback {
		s.logger.Debug("Used fallback embedding provider",
			zap.String("bot_id", botID.String()),
			zap.String("provider", string(s.config.DefaultEmbedProvider)))
	}

	return embeddings, nil
}

// fail records the failure on the document and returns the original error
func (s *IngestionService) fail(ctx context.Context, doc *knowledge.Document, cause error) error {
	if err := doc.MarkFailed(cause.Error()); err != nil {
		s.logger.Error("Failed to mark document failed",
			zap.String("document_id", doc.ID.String()),
			zap.Error(err))
		return cause
	}
	if err := s.docRepo.Update(ctx, doc); err != nil {
		s.logger.Error("Failed to record ingestion failure",
			zap.String("document_id", doc.ID.String()),
			zap.Error(err))
	}
	return cause
}

// recordCrawlUsage counts one crawled page against the tenant's plan
func (s *IngestionService) recordCrawlUsage(ctx context.Context, doc *knowledge.Document) {
	if s.usageRepo == nil {
		return
	}
	record, err := billing.NewUsageRecordSimple(doc.TenantID, billing.UsageTypeCrawlPages, 1)
	if err != nil {
		return
	}
	record.WithSource("document", doc.ID.String())
	record.WithMetadata("url", doc.SourceURL)
	if err := s.usageRepo.Save(ctx, record); err != nil {
		s.logger.Warn("Failed to record crawl usage", zap.Error(err))
	}
}
