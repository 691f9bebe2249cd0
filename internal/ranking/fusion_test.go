package ranking

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joblens/matcher/internal/models"
)

func TestValidContent(t *testing.T) {
	assert.False(t, ValidContent(""))
	assert.False(t, ValidContent("   \n\t  "))
	assert.False(t, ValidContent(strings.Repeat("x", 49)))
	assert.True(t, ValidContent(strings.Repeat("x", 50)))

	t.Run("trims before counting", func(t *testing.T) {
		assert.False(t, ValidContent("  "+strings.Repeat("x", 49)+"  "))
		assert.True(t, ValidContent("  "+strings.Repeat("x", 50)+"  "))
	})

	t.Run("counts runes not bytes", func(t *testing.T) {
		assert.False(t, ValidContent(strings.Repeat("ж", 49)))
		assert.True(t, ValidContent(strings.Repeat("ж", 50)))
	})
}

func TestSemanticScore(t *testing.T) {
	assert.Equal(t, 1.0, SemanticScore(0))
	assert.InDelta(t, 0.75, SemanticScore(0.25), 1e-12)
	assert.Equal(t, 0.0, SemanticScore(1))
	// Cosine distance can exceed 1 for dissimilar vectors; never go negative.
	assert.Equal(t, 0.0, SemanticScore(1.7))
}

// embeddingWithSimilarity returns a unit vector whose dot product with the
// reference [1, 0] equals sim.
func embeddingWithSimilarity(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim))}
}

func TestFuseAndRank(t *testing.T) {
	reference := []float32{1, 0}

	t.Run("empty input yields empty output", func(t *testing.T) {
		got := FuseAndRank(nil, nil, reference, FusionOptions{})
		assert.Empty(t, got)
	})

	t.Run("score is exactly relevance times confidence", func(t *testing.T) {
		cands := []models.Candidate{
			{ID: 1, Content: uniqueTokens(40), Embedding: embeddingWithSimilarity(0.5)},
			{ID: 2, Content: "tiny", Embedding: embeddingWithSimilarity(0.9)},
		}
		relevance := []float64{0.37, 1.44}

		got := FuseAndRank(cands, relevance, reference, FusionOptions{})
		require.Len(t, got, 2)

		for _, m := range got {
			var cand models.Candidate
			var rel float64
			for i, c := range cands {
				if c.ID == m.ID {
					cand, rel = c, relevance[i]
				}
			}
			assert.Equal(t, rel*Confidence(cand.Content, cand.Embedding, reference), m.Score)
		}
	})

	t.Run("ranks backend developer scenario", func(t *testing.T) {
		// Reranker scores 0.9/0.4/0.1 against confidences 0.8/0.9/0.2 must
		// multiply out to 0.72/0.36/0.02 and keep that order.
		long := uniqueTokens(40) // density 1.0, length 1.0 => base 0.7
		cands := []models.Candidate{
			{ID: 1, Content: long, Embedding: embeddingWithSimilarity(2.0 / 3.0)},
			{ID: 2, Content: long, Embedding: embeddingWithSimilarity(1.0 / 3.0)},
			{ID: 3, Content: "short stub", Embedding: embeddingWithSimilarity(14.0 / 15.0)},
		}
		got := FuseAndRank(cands, []float64{0.9, 0.4, 0.1}, reference, FusionOptions{})

		require.Len(t, got, 3)
		assert.Equal(t, []int64{1, 2, 3}, []int64{got[0].ID, got[1].ID, got[2].ID})
		assert.InDelta(t, 0.72, got[0].Score, 1e-6)
		assert.InDelta(t, 0.36, got[1].Score, 1e-6)
		assert.InDelta(t, 0.02, got[2].Score, 1e-6)
	})

	t.Run("sorted descending", func(t *testing.T) {
		text := uniqueTokens(40)
		emb := embeddingWithSimilarity(0.2)
		cands := []models.Candidate{
			{ID: 1, Content: text, Embedding: emb},
			{ID: 2, Content: text, Embedding: emb},
			{ID: 3, Content: text, Embedding: emb},
		}
		got := FuseAndRank(cands, []float64{0.1, 0.9, 0.5}, reference, FusionOptions{})

		require.Len(t, got, 3)
		assert.Equal(t, int64(2), got[0].ID)
		assert.Equal(t, int64(3), got[1].ID)
		assert.Equal(t, int64(1), got[2].ID)
	})

	t.Run("equal scores keep input order", func(t *testing.T) {
		text := uniqueTokens(40)
		emb := embeddingWithSimilarity(0.2)
		cands := []models.Candidate{
			{ID: 7, Content: text, Embedding: emb},
			{ID: 3, Content: text, Embedding: emb},
			{ID: 9, Content: text, Embedding: emb},
		}
		got := FuseAndRank(cands, []float64{0.5, 0.5, 0.5}, reference, FusionOptions{})

		require.Len(t, got, 3)
		assert.Equal(t, []int64{7, 3, 9}, []int64{got[0].ID, got[1].ID, got[2].ID})
	})

	t.Run("drops candidates below the floor", func(t *testing.T) {
		text := uniqueTokens(40)
		emb := embeddingWithSimilarity(0.0) // confidence 1.0
		cands := []models.Candidate{
			{ID: 1, Content: text, Embedding: emb},
			{ID: 2, Content: text, Embedding: emb},
		}
		got := FuseAndRank(cands, []float64{0.9, 0.2}, reference, FusionOptions{MinScore: 0.3})

		require.Len(t, got, 1)
		assert.Equal(t, int64(1), got[0].ID)
	})

	t.Run("zero floor disables filtering", func(t *testing.T) {
		cands := []models.Candidate{
			{ID: 1, Content: "x", Embedding: embeddingWithSimilarity(1.0)},
		}
		got := FuseAndRank(cands, []float64{0.0001}, reference, FusionOptions{})
		assert.Len(t, got, 1)
	})

	t.Run("truncates to the result cap", func(t *testing.T) {
		text := uniqueTokens(40)
		emb := embeddingWithSimilarity(0.2)
		var cands []models.Candidate
		var relevance []float64
		for i := 1; i <= 5; i++ {
			cands = append(cands, models.Candidate{ID: int64(i), Content: text, Embedding: emb})
			relevance = append(relevance, float64(i)/10)
		}
		got := FuseAndRank(cands, relevance, reference, FusionOptions{Limit: 2})

		require.Len(t, got, 2)
		assert.Equal(t, int64(5), got[0].ID)
		assert.Equal(t, int64(4), got[1].ID)
	})
}
