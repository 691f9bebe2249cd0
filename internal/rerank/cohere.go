package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultEndpoint = "https://api.cohere.ai/v1/rerank"
	defaultModel    = "rerank-multilingual-v3.0"

	// maxDocuments is Cohere's per-request document limit.
	maxDocuments = 1000

	requestTimeout = 30 * time.Second
)

// ErrMissingAPIKey is returned by NewCohereScorer when no API key is given.
var ErrMissingAPIKey = errors.New("rerank: Cohere API key is required")

// CohereScorer implements Scorer against Cohere's rerank HTTP API.
type CohereScorer struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// CohereOption configures the CohereScorer.
type CohereOption func(*CohereScorer)

// WithCohereModel overrides the rerank model.
func WithCohereModel(model string) CohereOption {
	return func(s *CohereScorer) {
		if model != "" {
			s.model = model
		}
	}
}

// WithCohereEndpoint overrides the API endpoint (tests, proxies).
func WithCohereEndpoint(url string) CohereOption {
	return func(s *CohereScorer) {
		if url != "" {
			s.endpoint = url
		}
	}
}

// NewCohereScorer creates a Cohere-backed cross-encoder scorer.
func NewCohereScorer(apiKey string, opts ...CohereOption) (*CohereScorer, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	scorer := &CohereScorer{
		apiKey:   apiKey,
		model:    defaultModel,
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: requestTimeout},
	}

	for _, opt := range opts {
		opt(scorer)
	}

	return scorer, nil
}

var _ Scorer = (*CohereScorer)(nil)

type cohereRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model"`
}

type cohereResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Score returns one relevance score per document, in input order. The API
// responds sorted by score with original indices; scores are placed back by
// index so callers can zip them with their candidate slice.
func (s *CohereScorer) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	if len(documents) > maxDocuments {
		return nil, fmt.Errorf("rerank: %d documents exceeds the per-request limit of %d", len(documents), maxDocuments)
	}

	body, err := json.Marshal(cohereRequest{
		Query:     query,
		Documents: documents,
		Model:     s.model,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rerank response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank API returned status %d: %s", resp.StatusCode, respBody)
	}

	var parsed cohereResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("parse rerank response: %w", err)
	}

	scores := make([]float64, len(documents))

	for _, res := range parsed.Results {
		if res.Index < 0 || res.Index >= len(documents) {
			return nil, fmt.Errorf("rerank response index %d out of range for %d documents", res.Index, len(documents))
		}

		scores[res.Index] = res.RelevanceScore
	}

	return scores, nil
}
