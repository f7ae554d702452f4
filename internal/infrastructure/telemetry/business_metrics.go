// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics provides business metrics for the chatbot platform.
// It tracks message traffic, AI token spend, and knowledge base health.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	messageProcessedTotal *Counter
	aiTokensTotal         *Counter
	documentIngestedTotal *Counter

	// Gauge metrics (point-in-time values)
	conversationOpenCount *Gauge
	documentPendingCount  *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data providers for periodic collection
	chatProvider ChatMetricsProvider
}

// ChatMetricsProvider provides conversation and knowledge data for
// periodic metrics collection. This interface lets the telemetry layer
// query aggregate state without depending on the domain packages.
type ChatMetricsProvider interface {
	// GetOpenConversationCount returns the number of open conversations per channel type
	GetOpenConversationCount(ctx context.Context, tenantID uuid.UUID) (map[string]int64, error)

	// GetPendingDocumentCount returns the number of documents waiting for ingestion
	GetPendingDocumentCount(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	ChatProvider    ChatMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:        cfg.Meter,
		logger:       logger,
		stopChan:     make(chan struct{}),
		chatProvider: cfg.ChatProvider,
	}

	// Initialize counter metrics
	var err error

	// Message metrics
	bm.messageProcessedTotal, err = NewCounter(
		cfg.Meter,
		"chatforge_message_processed_total",
		"Total number of inbound messages processed",
		"{messages}",
	)
	if err != nil {
		return nil, err
	}

	// Token metrics
	bm.aiTokensTotal, err = NewCounter(
		cfg.Meter,
		"chatforge_ai_tokens_total",
		"Total AI tokens consumed",
		"{tokens}",
	)
	if err != nil {
		return nil, err
	}

	// Ingestion metrics
	bm.documentIngestedTotal, err = NewCounter(
		cfg.Meter,
		"chatforge_document_ingested_total",
		"Total number of knowledge documents ingested",
		"{documents}",
	)
	if err != nil {
		return nil, err
	}

	// Conversation gauge metrics
	bm.conversationOpenCount, err = NewGauge(
		cfg.Meter,
		"chatforge_conversation_open_count",
		"Current number of open conversations",
		"{conversations}",
	)
	if err != nil {
		return nil, err
	}

	bm.documentPendingCount, err = NewGauge(
		cfg.Meter,
		"chatforge_document_pending_count",
		"Number of documents waiting for ingestion",
		"{documents}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Message Metrics
// =============================================================================

// RecordMessageProcessed records an inbound message that produced a reply.
// This should be called from the conversation flow after each turn.
func (bm *BusinessMetrics) RecordMessageProcessed(ctx context.Context, tenantID uuid.UUID, channelType string) {
	bm.messageProcessedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrChannelType.String(channelType),
	)
}

// =============================================================================
// AI Token Metrics
// =============================================================================

// TokenKind distinguishes prompt from completion tokens for labeling.
type TokenKind string

const (
	TokenKindPrompt     TokenKind = "prompt"
	TokenKindCompletion TokenKind = "completion"
	TokenKindEmbedding  TokenKind = "embedding"
)

// RecordAITokens records tokens consumed against a provider.
func (bm *BusinessMetrics) RecordAITokens(ctx context.Context, tenantID uuid.UUID, provider string, kind TokenKind, tokens int64) {
	bm.aiTokensTotal.Add(ctx, tokens,
		AttrTenantID.String(tenantID.String()),
		AttrProvider.String(provider),
		AttrTokenKind.String(string(kind)),
	)
}

// RecordChatUsage is a convenience method recording prompt and completion
// tokens of one model call.
func (bm *BusinessMetrics) RecordChatUsage(ctx context.Context, tenantID uuid.UUID, provider string, promptTokens, completionTokens int64) {
	bm.RecordAITokens(ctx, tenantID, provider, TokenKindPrompt, promptTokens)
	bm.RecordAITokens(ctx, tenantID, provider, TokenKindCompletion, completionTokens)
}

// =============================================================================
// Ingestion Metrics
// =============================================================================

// IngestStatus represents the outcome of a document ingestion for labeling.
type IngestStatus string

const (
	IngestStatusReady  IngestStatus = "ready"
	IngestStatusFailed IngestStatus = "failed"
)

// RecordDocumentIngested records a completed ingestion attempt.
func (bm *BusinessMetrics) RecordDocumentIngested(ctx context.Context, tenantID uuid.UUID, status IngestStatus) {
	bm.documentIngestedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrIngestStatus.String(string(status)),
	)
}

// =============================================================================
// Conversation Metrics
// =============================================================================

// RecordOpenConversations records the current open conversation count for
// a channel type. This is a gauge metric updated periodically.
func (bm *BusinessMetrics) RecordOpenConversations(ctx context.Context, tenantID uuid.UUID, channelType string, count int64) {
	bm.conversationOpenCount.Record(ctx, count,
		AttrTenantID.String(tenantID.String()),
		AttrChannelType.String(channelType),
	)
}

// RecordPendingDocuments records the number of documents waiting for
// ingestion. This is a gauge metric updated periodically.
func (bm *BusinessMetrics) RecordPendingDocuments(ctx context.Context, tenantID uuid.UUID, count int64) {
	bm.documentPendingCount.Record(ctx, count,
		AttrTenantID.String(tenantID.String()),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// TenantProvider provides tenant IDs for periodic metrics collection.
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects conversation and ingestion metrics every interval
// (default: 5 minutes). This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, tenantProvider, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectChatMetrics(ctx, tenantProvider)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectChatMetrics(ctx, tenantProvider)
		}
	}
}

// collectChatMetrics collects gauge metrics for all tenants.
func (bm *BusinessMetrics) collectChatMetrics(ctx context.Context, tenantProvider TenantProvider) {
	if bm.chatProvider == nil {
		bm.logger.Debug("No chat provider configured, skipping chat metrics collection")
		return
	}

	tenantIDs, err := tenantProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		bm.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		bm.collectTenantChatMetrics(ctx, tenantID)
	}
}

// collectTenantChatMetrics collects chat metrics for a single tenant.
func (bm *BusinessMetrics) collectTenantChatMetrics(ctx context.Context, tenantID uuid.UUID) {
	// Collect open conversations by channel type
	openByChannel, err := bm.chatProvider.GetOpenConversationCount(ctx, tenantID)
	if err != nil {
		bm.logger.Warn("Failed to get open conversation count for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		for channelType, count := range openByChannel {
			bm.RecordOpenConversations(ctx, tenantID, channelType, count)
		}
	}

	// Collect pending document count
	pendingCount, err := bm.chatProvider.GetPendingDocumentCount(ctx, tenantID)
	if err != nil {
		bm.logger.Warn("Failed to get pending document count for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		bm.RecordPendingDocuments(ctx, tenantID, pendingCount)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
