package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chatforge/backend/internal/domain/knowledge"
)

// InProcessRetriever ranks a bot's chunks against a query embedding in
// application memory. Knowledge bases on the supported plans stay small
// enough that loading a bot's ready chunks and scoring them in-process
// beats the operational cost of a dedicated vector store.
type InProcessRetriever struct {
	chunks knowledge.ChunkRepository
	logger *zap.Logger
}

// NewInProcessRetriever creates a retriever backed by the chunk repository
func NewInProcessRetriever(chunks knowledge.ChunkRepository, logger *zap.Logger) *InProcessRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InProcessRetriever{
		chunks: chunks,
		logger: logger,
	}
}

// Search loads the bot's ready chunks and returns the topK most similar
// to queryEmbedding, dropping anything below minScore
func (r *InProcessRetriever) Search(
	ctx context.Context,
	botID uuid.UUID,
	queryEmbedding []float32,
	topK int,
	minScore float64,
) ([]knowledge.ScoredChunk, error) {
	chunks, err := r.chunks.FindReadyByBot(ctx, botID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks for retrieval: %w", err)
	}

	scored := knowledge.RankChunks(chunks, queryEmbedding, topK, minScore)

	r.logger.Debug("Knowledge retrieval completed",
		zap.String("bot_id", botID.String()),
		zap.Int("candidates", len(chunks)),
		zap.Int("matches", len(scored)))

	return scored, nil
}

// Ensure InProcessRetriever implements Retriever
var _ knowledge.Retriever = (*InProcessRetriever)(nil)
