package knowledge

import (
	"context"
	"math"
	"sort"

	"github.com/google/uuid"
)

// ScoredChunk pairs a chunk with its similarity to a query
type ScoredChunk struct {
	Chunk *Chunk
	Score float64
}

// Retriever finds the chunks most relevant to a query embedding.
// The default implementation scores in-process; a vector database can
// replace it behind this interface.
type Retriever interface {
	Search(ctx context.Context, botID uuid.UUID, queryEmbedding []float32, topK int, minScore float64) ([]ScoredChunk, error)
}

// CosineSimilarity returns the cosine of the angle between two vectors,
// 1 for identical direction, 0 for orthogonal. Mismatched dimensions or
// zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// RankChunks scores chunks against a query embedding and returns the
// top K above minScore, highest first. Chunks without embeddings are
// skipped.
func RankChunks(chunks []*Chunk, queryEmbedding []float32, topK int, minScore float64) []ScoredChunk {
	if topK <= 0 {
		topK = 4
	}

	scored := make([]ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		if !c.HasEmbedding() {
			continue
		}
		score := CosineSimilarity(queryEmbedding, c.Embedding)
		if score < minScore {
			continue
		}
		scored = append(scored, ScoredChunk{Chunk: c, Score: score})
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}

	return scored
}
