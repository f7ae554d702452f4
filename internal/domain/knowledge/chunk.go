package knowledge

import (
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Chunk is a retrievable slice of a document with its embedding.
// BotID is denormalized so retrieval can load a bot's chunks without
// joining documents.
type Chunk struct {
	shared.BaseEntity
	TenantID      uuid.UUID
	BotID         uuid.UUID
	DocumentID    uuid.UUID
	Index         int // Dense per document, starting at 0
	Heading       string
	Content       string
	TokenEstimate int
	Embedding     []float32
}

// NewChunk creates a chunk at the given position within a document
func NewChunk(doc *Document, index int, heading, content string) *Chunk {
	return &Chunk{
		BaseEntity:    shared.NewBaseEntity(),
		TenantID:      doc.TenantID,
		BotID:         doc.BotID,
		DocumentID:    doc.ID,
		Index:         index,
		Heading:       heading,
		Content:       content,
		TokenEstimate: EstimateTokens(content),
	}
}

// SetEmbedding attaches the embedding vector produced for this chunk
func (c *Chunk) SetEmbedding(vector []float32) {
	c.Embedding = vector
}

// HasEmbedding returns true if the chunk carries an embedding vector
func (c *Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// EstimateTokens approximates the token count of a text.
// Four characters per token is close enough for budget checks.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}
