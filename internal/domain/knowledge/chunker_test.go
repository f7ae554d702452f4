package knowledge

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitText(t *testing.T) {
	t.Run("splits on markdown headings", func(t *testing.T) {
		content := "# Shipping\n\nWe ship worldwide.\n\n## Returns\n\nReturns accepted within 30 days.\n"

		sections := SplitText(content, MaxChunkSize, ChunkOverlap)

		require.Len(t, sections, 2)
		assert.Equal(t, "Shipping", sections[0].Heading)
		assert.Equal(t, "We ship worldwide.", sections[0].Content)
		assert.Equal(t, "Returns", sections[1].Heading)
		assert.Equal(t, "Returns accepted within 30 days.", sections[1].Content)
	})

	t.Run("preamble before first heading has empty heading", func(t *testing.T) {
		content := "Welcome to our store.\n\n# Hours\n\nOpen 9 to 5.\n"

		sections := SplitText(content, MaxChunkSize, ChunkOverlap)

		require.Len(t, sections, 2)
		assert.Empty(t, sections[0].Heading)
		assert.Equal(t, "Welcome to our store.", sections[0].Content)
		assert.Equal(t, "Hours", sections[1].Heading)
	})

	t.Run("plain text without headings is one section", func(t *testing.T) {
		content := "Just a short note.\n\nNothing fancy here."

		sections := SplitText(content, MaxChunkSize, ChunkOverlap)

		require.Len(t, sections, 1)
		assert.Empty(t, sections[0].Heading)
		assert.Contains(t, sections[0].Content, "Just a short note.")
		assert.Contains(t, sections[0].Content, "Nothing fancy here.")
	})

	t.Run("empty input yields no sections", func(t *testing.T) {
		assert.Empty(t, SplitText("", MaxChunkSize, ChunkOverlap))
		assert.Empty(t, SplitText("   \n\n  ", MaxChunkSize, ChunkOverlap))
	})

	t.Run("heading with no body yields no section", func(t *testing.T) {
		sections := SplitText("# Orphan heading\n", MaxChunkSize, ChunkOverlap)

		assert.Empty(t, sections)
	})

	t.Run("oversized section splits at paragraph boundaries", func(t *testing.T) {
		para := strings.Repeat("word ", 80) // ~400 chars
		content := "# Policy\n\n" + strings.TrimSpace(para) + "\n\n" + strings.TrimSpace(para) + "\n\n" + strings.TrimSpace(para)

		sections := SplitText(content, 500, 0)

		require.Greater(t, len(sections), 1)
		for _, s := range sections {
			assert.Equal(t, "Policy", s.Heading)
			assert.LessOrEqual(t, len(s.Content), 500)
		}
	})

	t.Run("consecutive chunks overlap", func(t *testing.T) {
		para := strings.TrimSpace(strings.Repeat("alpha beta gamma delta ", 13)) // ~300 chars
		content := para + "\n\n" + para + "\n\n" + para

		sections := SplitText(content, 500, 100)

		require.Greater(t, len(sections), 1)
		// The second chunk starts with the tail of the first
		first := sections[0].Content
		second := sections[1].Content
		tail := first[len(first)-40:]
		assert.Contains(t, second, strings.TrimSpace(tail))
		for _, s := range sections {
			assert.LessOrEqual(t, len(s.Content), 500)
		}
	})

	t.Run("single paragraph larger than max size is hard split", func(t *testing.T) {
		content := strings.Repeat("x", 3200)

		sections := SplitText(content, 1000, 200)

		require.GreaterOrEqual(t, len(sections), 4)
		for _, s := range sections {
			assert.LessOrEqual(t, len(s.Content), 1000)
		}
		// Windows step by maxSize-overlap, so neighbors share content
		assert.Equal(t, 1000, len(sections[0].Content))
	})

	t.Run("defaults applied for non-positive max size", func(t *testing.T) {
		content := "# A\n\n" + strings.Repeat("y", 2000)

		sections := SplitText(content, 0, 0)

		require.NotEmpty(t, sections)
		for _, s := range sections {
			assert.LessOrEqual(t, len(s.Content), MaxChunkSize)
		}
	})
}

func TestCosineSimilarity(t *testing.T) {
	t.Run("identical vectors score one", func(t *testing.T) {
		v := []float32{0.5, 0.5, 0.5}

		assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-9)
	})

	t.Run("orthogonal vectors score zero", func(t *testing.T) {
		a := []float32{1, 0}
		b := []float32{0, 1}

		assert.InDelta(t, 0.0, CosineSimilarity(a, b), 1e-9)
	})

	t.Run("opposite vectors score minus one", func(t *testing.T) {
		a := []float32{1, 2}
		b := []float32{-1, -2}

		assert.InDelta(t, -1.0, CosineSimilarity(a, b), 1e-9)
	})

	t.Run("mismatched dimensions score zero", func(t *testing.T) {
		assert.Zero(t, CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}))
	})

	t.Run("zero vector scores zero", func(t *testing.T) {
		assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
		assert.Zero(t, CosineSimilarity(nil, nil))
	})
}

func TestRankChunks(t *testing.T) {
	chunkWithEmbedding := func(d *Document, index int, embedding []float32) *Chunk {
		c := NewChunk(d, index, "", "content")
		c.SetEmbedding(embedding)
		return c
	}

	t.Run("returns top K above min score, highest first", func(t *testing.T) {
		d := newTestDocument(t)
		// Scores against the query: 1.0, ~0.707, 0, ~0.994
		chunks := []*Chunk{
			chunkWithEmbedding(d, 0, []float32{1, 0}),
			chunkWithEmbedding(d, 1, []float32{0.7, 0.7}),
			chunkWithEmbedding(d, 2, []float32{0, 1}),
			chunkWithEmbedding(d, 3, []float32{0.9, 0.1}),
		}

		ranked := RankChunks(chunks, []float32{1, 0}, 2, 0.3)

		require.Len(t, ranked, 2)
		assert.Equal(t, 0, ranked[0].Chunk.Index)
		assert.Equal(t, 3, ranked[1].Chunk.Index)
		assert.Greater(t, ranked[0].Score, ranked[1].Score)
	})

	t.Run("filters below min score", func(t *testing.T) {
		d := newTestDocument(t)
		chunks := []*Chunk{
			chunkWithEmbedding(d, 0, []float32{0, 1}),
		}

		ranked := RankChunks(chunks, []float32{1, 0}, 4, 0.35)

		assert.Empty(t, ranked)
	})

	t.Run("skips chunks without embeddings", func(t *testing.T) {
		d := newTestDocument(t)
		chunks := []*Chunk{
			NewChunk(d, 0, "", "no embedding"),
			chunkWithEmbedding(d, 1, []float32{1, 0}),
		}

		ranked := RankChunks(chunks, []float32{1, 0}, 4, 0.3)

		require.Len(t, ranked, 1)
		assert.Equal(t, 1, ranked[0].Chunk.Index)
	})

	t.Run("non-positive top K falls back to default", func(t *testing.T) {
		d := newTestDocument(t)
		var chunks []*Chunk
		for i := 0; i < 6; i++ {
			chunks = append(chunks, chunkWithEmbedding(d, i, []float32{1, 0}))
		}

		ranked := RankChunks(chunks, []float32{1, 0}, 0, 0)

		assert.Len(t, ranked, 4)
	})
}

func newTestDocument(t *testing.T) *Document {
	t.Helper()
	d, err := NewFileDocument(uuid.New(), uuid.New(), "doc.md", "key", "text/markdown", 1024)
	require.NoError(t, err)
	return d
}
