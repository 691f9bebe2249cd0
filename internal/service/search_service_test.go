package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joblens/matcher/internal/embeddings"
	"github.com/joblens/matcher/internal/models"
	"github.com/joblens/matcher/internal/ranking"
	"github.com/joblens/matcher/internal/rerank"
)

type mockRetriever struct {
	nearestFunc func(ctx context.Context, queryEmbedding []float32, limit int) ([]models.Candidate, error)
}

func (m *mockRetriever) NearestByEmbedding(
	ctx context.Context, queryEmbedding []float32, limit int,
) ([]models.Candidate, error) {
	if m.nearestFunc != nil {
		return m.nearestFunc(ctx, queryEmbedding, limit)
	}

	return nil, nil
}

type mockRecorder struct {
	recordFunc func(ctx context.Context, query, direction string) error
}

func (m *mockRecorder) Record(ctx context.Context, query, direction string) error {
	if m.recordFunc != nil {
		return m.recordFunc(ctx, query, direction)
	}

	return nil
}

type mockExtractor struct {
	extractFunc func(ctx context.Context, text string) (*models.VacancyAttributes, error)
}

func (m *mockExtractor) Extract(ctx context.Context, text string) (*models.VacancyAttributes, error) {
	if m.extractFunc != nil {
		return m.extractFunc(ctx, text)
	}

	return &models.VacancyAttributes{}, nil
}

// countingEmbedder wraps the deterministic mock client and counts calls.
type countingEmbedder struct {
	inner *embeddings.MockClient
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, role embeddings.Role) ([]float32, error) {
	c.calls++

	return c.inner.Embed(ctx, text, role)
}

// validContent returns text long and varied enough to pass both the validity
// filter and the density floor.
func validContent(seed int) string {
	tokens := make([]string, 30)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("word%d_%d", seed, i)
	}

	return strings.Join(tokens, " ")
}

func newTestService(t *testing.T, p SearchServiceParams) *SearchService {
	t.Helper()

	if p.EmbeddingClient == nil {
		p.EmbeddingClient = embeddings.NewMockClient(8)
	}

	if p.TopK == 0 {
		p.TopK = 50
	}

	svc, err := NewSearchService(context.Background(), p)
	require.NoError(t, err)

	return svc
}

func TestSearchVacancies(t *testing.T) {
	ctx := context.Background()

	t.Run("empty query returns ErrEmptyQuery", func(t *testing.T) {
		svc := newTestService(t, SearchServiceParams{Vacancies: &mockRetriever{}})

		_, err := svc.SearchVacancies(ctx, "   ", 10)
		assert.ErrorIs(t, err, ErrEmptyQuery)
	})

	t.Run("empty retrieval yields empty result", func(t *testing.T) {
		svc := newTestService(t, SearchServiceParams{Vacancies: &mockRetriever{}})

		results, err := svc.SearchVacancies(ctx, "backend developer", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("reranked mode fuses scores with confidence", func(t *testing.T) {
		emb := []float32{1, 0}
		cands := []models.Candidate{
			{ID: 1, Content: validContent(1), Embedding: emb, Distance: 0.1},
			{ID: 2, Content: validContent(2), Embedding: emb, Distance: 0.2},
			{ID: 3, Content: validContent(3), Embedding: emb, Distance: 0.3},
		}

		var gotQuery string
		var gotDocs []string

		svc := newTestService(t, SearchServiceParams{
			Vacancies: &mockRetriever{
				nearestFunc: func(_ context.Context, _ []float32, limit int) ([]models.Candidate, error) {
					assert.Equal(t, 50, limit)

					return cands, nil
				},
			},
			Scorer: &rerank.MockScorer{
				ScoreFunc: func(_ context.Context, query string, documents []string) ([]float64, error) {
					gotQuery = query
					gotDocs = documents

					return []float64{0.9, 0.4, 0.1}, nil
				},
			},
			RerankedMode: ModePolicy{ResultCap: 10},
		})

		results, err := svc.SearchVacancies(ctx, "python backend", 10)
		require.NoError(t, err)
		require.Len(t, results, 3)

		// Pair texts carry the role prefixes, applied in one place.
		assert.Equal(t, "query: python backend", gotQuery)
		require.Len(t, gotDocs, 3)
		for _, doc := range gotDocs {
			assert.True(t, strings.HasPrefix(doc, "passage: "), "doc %q", doc)
		}

		// Final score is exactly reranker score times confidence.
		scores := []float64{0.9, 0.4, 0.1}
		for i, cand := range cands {
			want := scores[i] * ranking.Confidence(cand.Content, cand.Embedding, svc.genericVacancyRef)
			assert.Equal(t, want, results[i].Score)
			assert.Equal(t, cand.ID, results[i].ID)
		}
	})

	t.Run("garbage candidates never reach the reranker", func(t *testing.T) {
		cands := []models.Candidate{
			{ID: 1, Content: "too short", Embedding: []float32{1, 0}},
			{ID: 2, Content: validContent(2), Embedding: []float32{1, 0}},
			{ID: 3, Content: "   ", Embedding: []float32{1, 0}},
		}

		svc := newTestService(t, SearchServiceParams{
			Vacancies: &mockRetriever{
				nearestFunc: func(_ context.Context, _ []float32, _ int) ([]models.Candidate, error) {
					return cands, nil
				},
			},
			Scorer: &rerank.MockScorer{
				ScoreFunc: func(_ context.Context, _ string, documents []string) ([]float64, error) {
					assert.Len(t, documents, 1)

					return []float64{0.8}, nil
				},
			},
		})

		results, err := svc.SearchVacancies(ctx, "devops", 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, int64(2), results[0].ID)
	})

	t.Run("retrieval-only mode scores by distance", func(t *testing.T) {
		emb := []float32{1, 0}
		cands := []models.Candidate{
			{ID: 1, Content: validContent(1), Embedding: emb, Distance: 0.4},
			{ID: 2, Content: validContent(1), Embedding: emb, Distance: 0.1},
		}

		svc := newTestService(t, SearchServiceParams{
			Vacancies: &mockRetriever{
				nearestFunc: func(_ context.Context, _ []float32, _ int) ([]models.Candidate, error) {
					return cands, nil
				},
			},
			RetrievalMode: ModePolicy{ResultCap: 50},
		})

		results, err := svc.SearchVacancies(ctx, "golang", 10)
		require.NoError(t, err)
		require.Len(t, results, 2)

		// Same content and embedding, so confidence is equal and the lower
		// distance must win.
		assert.Equal(t, int64(2), results[0].ID)
		assert.Equal(t, int64(1), results[1].ID)

		conf := ranking.Confidence(cands[1].Content, emb, svc.genericVacancyRef)
		assert.Equal(t, ranking.SemanticScore(0.1)*conf, results[0].Score)
	})

	t.Run("topN restricts but never widens the cap", func(t *testing.T) {
		emb := []float32{1, 0}
		var cands []models.Candidate
		for i := 1; i <= 5; i++ {
			cands = append(cands, models.Candidate{
				ID: int64(i), Content: validContent(1), Embedding: emb, Distance: float64(i) / 10,
			})
		}

		svc := newTestService(t, SearchServiceParams{
			Vacancies: &mockRetriever{
				nearestFunc: func(_ context.Context, _ []float32, _ int) ([]models.Candidate, error) {
					return cands, nil
				},
			},
			RetrievalMode: ModePolicy{ResultCap: 3},
		})

		results, err := svc.SearchVacancies(ctx, "golang", 2)
		require.NoError(t, err)
		assert.Len(t, results, 2)

		results, err = svc.SearchVacancies(ctx, "golang", 10)
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("reranker failure aborts the request", func(t *testing.T) {
		svc := newTestService(t, SearchServiceParams{
			Vacancies: &mockRetriever{
				nearestFunc: func(_ context.Context, _ []float32, _ int) ([]models.Candidate, error) {
					return []models.Candidate{{ID: 1, Content: validContent(1), Embedding: []float32{1, 0}}}, nil
				},
			},
			Scorer: &rerank.MockScorer{
				ScoreFunc: func(_ context.Context, _ string, _ []string) ([]float64, error) {
					return nil, errors.New("model unavailable")
				},
			},
		})

		_, err := svc.SearchVacancies(ctx, "golang", 10)
		assert.ErrorContains(t, err, "rerank candidates")
	})

	t.Run("audit failure does not fail the search", func(t *testing.T) {
		svc := newTestService(t, SearchServiceParams{
			Vacancies: &mockRetriever{},
			Queries: &mockRecorder{
				recordFunc: func(_ context.Context, _, _ string) error {
					return errors.New("db down")
				},
			},
		})

		_, err := svc.SearchVacancies(ctx, "golang", 10)
		assert.NoError(t, err)
	})

	t.Run("query embedding cache avoids repeat model calls", func(t *testing.T) {
		cache, err := lru.New[string, []float32](8)
		require.NoError(t, err)

		embedder := &countingEmbedder{inner: embeddings.NewMockClient(8)}

		svc := newTestService(t, SearchServiceParams{
			EmbeddingClient: embedder,
			Vacancies:       &mockRetriever{},
			QueryCache:      cache,
		})

		// Two reference embeds happen at construction time.
		baseline := embedder.calls

		_, err = svc.SearchVacancies(ctx, "golang remote", 10)
		require.NoError(t, err)
		assert.Equal(t, baseline+1, embedder.calls)

		_, err = svc.SearchVacancies(ctx, "golang remote", 10)
		require.NoError(t, err)
		assert.Equal(t, baseline+1, embedder.calls)
	})
}

func TestSearchProfilesByVacancy(t *testing.T) {
	ctx := context.Background()

	t.Run("empty vacancy text returns ErrEmptyQuery", func(t *testing.T) {
		svc := newTestService(t, SearchServiceParams{Profiles: &mockRetriever{}})

		_, err := svc.SearchProfilesByVacancy(ctx, "", 10)
		assert.ErrorIs(t, err, ErrEmptyQuery)
	})

	t.Run("structured extraction builds the query text", func(t *testing.T) {
		var gotQuery string

		svc := newTestService(t, SearchServiceParams{
			Profiles: &mockRetriever{
				nearestFunc: func(_ context.Context, _ []float32, _ int) ([]models.Candidate, error) {
					return []models.Candidate{
						{ID: 1, Content: validContent(1), Embedding: []float32{1, 0}},
					}, nil
				},
			},
			Extractor: &mockExtractor{
				extractFunc: func(_ context.Context, text string) (*models.VacancyAttributes, error) {
					assert.Contains(t, text, "Go developer")

					return &models.VacancyAttributes{JobTitle: "Go Developer", Occupation: "IT"}, nil
				},
			},
			Scorer: &rerank.MockScorer{
				ScoreFunc: func(_ context.Context, query string, documents []string) ([]float64, error) {
					gotQuery = query

					return make([]float64, len(documents)), nil
				},
			},
		})

		_, err := svc.SearchProfilesByVacancy(ctx, "<p>Go developer wanted</p>", 10)
		require.NoError(t, err)
		assert.Contains(t, gotQuery, "Job title: Go Developer")
		assert.True(t, strings.HasPrefix(gotQuery, "query: "))
	})

	t.Run("extraction failure degrades to plain text", func(t *testing.T) {
		var gotQuery string

		svc := newTestService(t, SearchServiceParams{
			Profiles: &mockRetriever{
				nearestFunc: func(_ context.Context, _ []float32, _ int) ([]models.Candidate, error) {
					return []models.Candidate{
						{ID: 1, Content: validContent(1), Embedding: []float32{1, 0}},
					}, nil
				},
			},
			Extractor: &mockExtractor{
				extractFunc: func(_ context.Context, _ string) (*models.VacancyAttributes, error) {
					return nil, errors.New("model unreachable")
				},
			},
			Scorer: &rerank.MockScorer{
				ScoreFunc: func(_ context.Context, query string, documents []string) ([]float64, error) {
					gotQuery = query

					return make([]float64, len(documents)), nil
				},
			},
		})

		results, err := svc.SearchProfilesByVacancy(ctx, "<p>Java developer wanted</p>", 10)
		require.NoError(t, err)
		assert.Len(t, results, 1)
		assert.Equal(t, "query: Java developer wanted", gotQuery)
	})
}
