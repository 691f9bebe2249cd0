package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/joblens/matcher/internal/embeddings"
	"github.com/joblens/matcher/internal/extract"
	"github.com/joblens/matcher/internal/models"
	"github.com/joblens/matcher/internal/observability"
	"github.com/joblens/matcher/internal/ranking"
	"github.com/joblens/matcher/internal/rerank"
	"github.com/joblens/matcher/internal/textnorm"
)

const searchQueryEmbeddingCacheName = "search_query_embedding"

// ErrEmptyQuery is returned when the query is empty after trimming
// (handlers map it to 400).
var ErrEmptyQuery = errors.New("query is required and must be non-empty")

// Reference texts for the confidence scorer's distinctiveness signal: a
// deliberately bland posting/profile with no real content. Documents whose
// embeddings sit near these are generic boilerplate and get suppressed.
// Embedded once at service construction; changing either text changes
// confidence values for every query.
const (
	genericVacancyText = "Job posting with no stated duties, requirements, " +
		"occupation, or working conditions."
	genericProfileText = "Candidate profile with no stated skills, experience, " +
		"occupation, or job preferences."
)

// Search directions, used for audit rows and metric labels.
const (
	directionVacancies = "vacancies"
	directionProfiles  = "profiles"
)

// CandidateRetriever provides nearest-neighbor retrieval over one document
// collection (vacancies or profiles). Rows without embeddings are never
// returned; an empty collection yields an empty slice, not an error.
type CandidateRetriever interface {
	NearestByEmbedding(ctx context.Context, queryEmbedding []float32, limit int) ([]models.Candidate, error)
}

// QueryRecorder appends to the search audit log.
type QueryRecorder interface {
	Record(ctx context.Context, query, direction string) error
}

// ModePolicy is the fusion policy for one operating mode: the absolute
// final-score floor and the result cap. Both are product knobs, not laws.
type ModePolicy struct {
	MinScore  float64
	ResultCap int
}

// SearchService runs the candidate-ranking pipeline in both directions:
// vacancies ranked against a free-text query, and profiles ranked against a
// vacancy. It holds no per-request state; the reference embeddings and
// capability handles are read-only after construction.
type SearchService struct {
	embeddingClient embeddings.Client
	scorer          rerank.Scorer
	extractor       extract.Extractor
	vacancies       CandidateRetriever
	profiles        CandidateRetriever
	queries         QueryRecorder

	topK          int
	rerankedMode  ModePolicy
	retrievalMode ModePolicy

	genericVacancyRef []float32
	genericProfileRef []float32

	queryCache     *lru.Cache[string, []float32]
	queryLoadGroup singleflight.Group
	cacheMetrics   observability.CacheMetrics
	searchMetrics  observability.SearchMetrics
	logger         *slog.Logger
}

// SearchServiceParams configures SearchService. Scorer may be nil
// (retrieval-only mode), Extractor may be nil (plain-text query rendering in
// the reverse direction), Queries, QueryCache, and the metrics may be nil.
type SearchServiceParams struct {
	EmbeddingClient embeddings.Client
	Scorer          rerank.Scorer
	Extractor       extract.Extractor
	Vacancies       CandidateRetriever
	Profiles        CandidateRetriever
	Queries         QueryRecorder

	// TopK is the retrieval over-fetch: the reranker sees a larger pool than
	// the result cap ultimately returned.
	TopK          int
	RerankedMode  ModePolicy
	RetrievalMode ModePolicy

	QueryCache    *lru.Cache[string, []float32]
	CacheMetrics  observability.CacheMetrics
	SearchMetrics observability.SearchMetrics
	Logger        *slog.Logger
}

// NewSearchService creates a SearchService and embeds the generic reference
// texts. A failure here is fatal: without the references the confidence
// scorer cannot run.
func NewSearchService(ctx context.Context, p SearchServiceParams) (*SearchService, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	vacancyRef, err := p.EmbeddingClient.Embed(ctx, genericVacancyText, embeddings.RoleDocument)
	if err != nil {
		return nil, fmt.Errorf("embed generic vacancy reference: %w", err)
	}

	profileRef, err := p.EmbeddingClient.Embed(ctx, genericProfileText, embeddings.RoleDocument)
	if err != nil {
		return nil, fmt.Errorf("embed generic profile reference: %w", err)
	}

	return &SearchService{
		embeddingClient:   p.EmbeddingClient,
		scorer:            p.Scorer,
		extractor:         p.Extractor,
		vacancies:         p.Vacancies,
		profiles:          p.Profiles,
		queries:           p.Queries,
		topK:              p.TopK,
		rerankedMode:      p.RerankedMode,
		retrievalMode:     p.RetrievalMode,
		genericVacancyRef: vacancyRef,
		genericProfileRef: profileRef,
		queryCache:        p.QueryCache,
		cacheMetrics:      p.CacheMetrics,
		searchMetrics:     p.SearchMetrics,
		logger:            logger,
	}, nil
}

// SearchVacancies ranks stored vacancies against a free-text candidate
// query. topN further restricts the mode's result cap when positive; it can
// never widen it. Scores are call-local and carry no absolute meaning.
func (s *SearchService) SearchVacancies(ctx context.Context, query string, topN int) ([]models.RankedMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	s.auditQuery(ctx, query, directionVacancies)

	start := time.Now()

	results, err := s.run(ctx, query, s.vacancies, vacancyDocument, s.genericVacancyRef, topN)

	s.recordSearch(ctx, directionVacancies, time.Since(start), err)

	if err != nil {
		s.logger.Error("vacancy search failed", "error", err)

		return nil, err
	}

	return results, nil
}

// SearchProfilesByVacancy ranks stored candidate profiles against a vacancy.
// The vacancy text goes through structured extraction to build the query
// text; when extraction is unavailable or fails, the plain normalized text is
// used and only quality degrades.
func (s *SearchService) SearchProfilesByVacancy(ctx context.Context, vacancyText string, topN int) ([]models.RankedMatch, error) {
	vacancyText = strings.TrimSpace(vacancyText)
	if vacancyText == "" {
		return nil, ErrEmptyQuery
	}

	queryText := s.vacancyQueryText(ctx, vacancyText)

	s.auditQuery(ctx, queryText, directionProfiles)

	start := time.Now()

	results, err := s.run(ctx, queryText, s.profiles, profileDocument, s.genericProfileRef, topN)

	s.recordSearch(ctx, directionProfiles, time.Since(start), err)

	if err != nil {
		s.logger.Error("profile search failed", "error", err)

		return nil, err
	}

	return results, nil
}

// vacancyDocument renders a retrieved vacancy for the reranker: structured
// attributes when extraction succeeded, plain normalized text otherwise.
func vacancyDocument(cand models.Candidate) string {
	return extract.DocumentText(cand.Content, cand.Attributes)
}

// profileDocument renders a retrieved profile for the reranker.
func profileDocument(cand models.Candidate) string {
	return textnorm.Document(cand.Content)
}

// run is the pipeline shape shared by both directions and both modes:
// embed query, retrieve, validity-filter, score (cross-encoder or distance
// fallback), fuse, sort, truncate. Only the relevance-score source differs
// between modes.
func (s *SearchService) run(
	ctx context.Context,
	queryText string,
	retriever CandidateRetriever,
	document func(models.Candidate) string,
	reference []float32,
	topN int,
) ([]models.RankedMatch, error) {
	queryEmbedding, err := s.queryEmbedding(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates, err := retriever.NearestByEmbedding(ctx, queryEmbedding, s.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve candidates: %w", err)
	}

	// Garbage goes before the reranker sees it: no point paying a
	// cross-encoder call for a stub posting.
	valid := candidates[:0:0]
	for _, cand := range candidates {
		if ranking.ValidContent(cand.Content) {
			valid = append(valid, cand)
		}
	}

	if len(valid) == 0 {
		return []models.RankedMatch{}, nil
	}

	var (
		relevance []float64
		policy    ModePolicy
	)

	if s.scorer != nil {
		documents := make([]string, len(valid))
		for i, cand := range valid {
			documents[i] = embeddings.RoleDocument.Apply(document(cand))
		}

		relevance, err = s.scorer.Score(ctx, embeddings.RoleQuery.Apply(queryText), documents)
		if err != nil {
			return nil, fmt.Errorf("rerank candidates: %w", err)
		}

		policy = s.rerankedMode
	} else {
		relevance = make([]float64, len(valid))
		for i, cand := range valid {
			relevance[i] = ranking.SemanticScore(cand.Distance)
		}

		policy = s.retrievalMode
	}

	limit := policy.ResultCap
	if topN > 0 && (limit == 0 || topN < limit) {
		limit = topN
	}

	return ranking.FuseAndRank(valid, relevance, reference, ranking.FusionOptions{
		MinScore: policy.MinScore,
		Limit:    limit,
	}), nil
}

// vacancyQueryText turns vacancy text into the query-side rendering for the
// reverse direction. Extraction problems are quality degradations, never
// request failures.
func (s *SearchService) vacancyQueryText(ctx context.Context, vacancyText string) string {
	normalized := textnorm.Document(vacancyText)
	if s.extractor == nil {
		return normalized
	}

	attrs, err := s.extractor.Extract(ctx, normalized)
	if err != nil {
		s.logger.Warn("vacancy extraction unavailable, using plain text", "error", err)

		return normalized
	}

	return extract.DocumentText(vacancyText, attrs)
}

// auditQuery appends the raw query to the audit log. Best-effort: a failed
// insert is logged and the search proceeds.
func (s *SearchService) auditQuery(ctx context.Context, query, direction string) {
	if s.queries == nil {
		return
	}

	if err := s.queries.Record(ctx, query, direction); err != nil {
		s.logger.Warn("failed to record search query", "direction", direction, "error", err)
	}
}

func (s *SearchService) recordSearch(ctx context.Context, direction string, elapsed time.Duration, err error) {
	if s.searchMetrics == nil {
		return
	}

	mode := "retrieval"
	if s.scorer != nil {
		mode = "reranked"
	}

	status := "ok"
	if err != nil {
		status = "error"
	}

	s.searchMetrics.RecordSearch(ctx, direction, mode, status)
	s.searchMetrics.RecordSearchDuration(ctx, elapsed, direction)
}

// queryEmbedding returns the query-role embedding, via the LRU cache when one
// is configured. Concurrent misses for the same query collapse into a single
// model call.
func (s *SearchService) queryEmbedding(ctx context.Context, query string) ([]float32, error) {
	if s.queryCache == nil {
		return s.embeddingClient.Embed(ctx, query, embeddings.RoleQuery)
	}

	if vec, ok := s.queryCache.Get(query); ok {
		if s.cacheMetrics != nil {
			s.cacheMetrics.RecordHit(ctx, searchQueryEmbeddingCacheName)
		}

		return vec, nil
	}

	val, err, _ := s.queryLoadGroup.Do(query, func() (any, error) {
		vec, loadErr := s.embeddingClient.Embed(ctx, query, embeddings.RoleQuery)
		if loadErr != nil {
			return nil, fmt.Errorf("create embedding: %w", loadErr)
		}

		s.queryCache.Add(query, vec)

		return vec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	if s.cacheMetrics != nil {
		s.cacheMetrics.RecordMiss(ctx, searchQueryEmbeddingCacheName)
	}

	return val.([]float32), nil
}
