// Package handlers provides the HTTP handlers for the matching API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/joblens/matcher/internal/api/response"
	"github.com/joblens/matcher/internal/models"
	"github.com/joblens/matcher/internal/service"
)

// SearchService defines the interface for both matching directions.
type SearchService interface {
	SearchVacancies(ctx context.Context, query string, topN int) ([]models.RankedMatch, error)
	SearchProfilesByVacancy(ctx context.Context, vacancyText string, topN int) ([]models.RankedMatch, error)
}

// SearchHandler handles HTTP requests for vacancy and profile matching.
type SearchHandler struct {
	service SearchService
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(service SearchService) *SearchHandler {
	return &SearchHandler{service: service}
}

// VacancySearchRequest is the body for POST /v1/search/vacancies.
// API contract uses camelCase (topN).
type VacancySearchRequest struct {
	Query string `json:"query"`
	TopN  int    `json:"topN"` //nolint:tagliatelle // API contract
}

// ProfileSearchRequest is the body for POST /v1/search/profiles.
type ProfileSearchRequest struct {
	VacancyText string `json:"vacancyText"` //nolint:tagliatelle // API contract
	TopN        int    `json:"topN"`        //nolint:tagliatelle // API contract
}

// SearchResponse is the response for both matching directions.
type SearchResponse struct {
	Query   string             `json:"query"`
	Results []SearchResultItem `json:"results"`
}

// SearchResultItem is one match with its page-relative relevance percent.
type SearchResultItem struct {
	ID               int64   `json:"id"`
	Text             string  `json:"text"`
	RelevancePercent float64 `json:"relevancePercent"` //nolint:tagliatelle // API contract
}

const (
	defaultTopN = 5
	maxTopN     = 20
)

// clampTopN applies the request-level bound. The service keeps its own
// mode-level result caps; this only bounds what one HTTP page can ask for.
func clampTopN(topN int) int {
	if topN <= 0 {
		return defaultTopN
	}

	return min(topN, maxTopN)
}

// SearchVacancies handles POST /v1/search/vacancies.
func (h *SearchHandler) SearchVacancies(w http.ResponseWriter, r *http.Request) {
	var req VacancySearchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	results, err := h.service.SearchVacancies(r.Context(), req.Query, clampTopN(req.TopN))
	if err != nil {
		respondSearchError(w, err, "query is required and must be non-empty", "Search failed")

		return
	}

	response.RespondJSON(w, http.StatusOK, SearchResponse{
		Query:   req.Query,
		Results: toResultItems(results),
	})
}

// SearchProfiles handles POST /v1/search/profiles.
func (h *SearchHandler) SearchProfiles(w http.ResponseWriter, r *http.Request) {
	var req ProfileSearchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	results, err := h.service.SearchProfilesByVacancy(r.Context(), req.VacancyText, clampTopN(req.TopN))
	if err != nil {
		respondSearchError(w, err, "vacancyText is required and must be non-empty", "Search failed")

		return
	}

	response.RespondJSON(w, http.StatusOK, SearchResponse{
		Query:   req.VacancyText,
		Results: toResultItems(results),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			response.RespondError(w, http.StatusRequestEntityTooLarge,
				"Request Entity Too Large", "request body exceeds maximum allowed size")

			return false
		}

		response.RespondBadRequest(w, "Invalid request body")

		return false
	}

	return true
}

func respondSearchError(w http.ResponseWriter, err error, emptyDetail, fallback string) {
	if errors.Is(err, service.ErrEmptyQuery) {
		response.RespondBadRequest(w, emptyDetail)

		return
	}

	response.RespondInternalServerError(w, fallback)
}

// toResultItems converts raw fused scores into page-relative percents with
// min-max normalization. The percents are presentation only: the top result
// on any page reads 100 and the bottom 0, regardless of absolute score.
func toResultItems(results []models.RankedMatch) []SearchResultItem {
	items := make([]SearchResultItem, len(results))
	if len(results) == 0 {
		return items
	}

	// Results arrive sorted descending, so min and max sit at the ends.
	maxScore := results[0].Score
	minScore := results[len(results)-1].Score
	spread := maxScore - minScore

	for i := range results {
		percent := 100.0
		if spread > 0 {
			percent = (results[i].Score - minScore) / spread * 100
		}

		items[i] = SearchResultItem{
			ID:               results[i].ID,
			Text:             results[i].Content,
			RelevancePercent: percent,
		}
	}

	return items
}
