package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/joblens/matcher/internal/api/response"
	"github.com/joblens/matcher/internal/embeddings"
)

// EmbeddingClient is the minimal embedding surface the debug endpoint needs.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string, role embeddings.Role) ([]float32, error)
}

// EmbedHandler exposes the raw embedding call for operational checks.
type EmbedHandler struct {
	client EmbeddingClient
}

// NewEmbedHandler creates a new embed handler.
func NewEmbedHandler(client EmbeddingClient) *EmbedHandler {
	return &EmbedHandler{client: client}
}

// EmbedRequest is the body for POST /v1/embed.
type EmbedRequest struct {
	Text string `json:"text"`
}

// EmbedResponse carries the query-role embedding of the submitted text.
type EmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed handles POST /v1/embed.
func (h *EmbedHandler) Embed(w http.ResponseWriter, r *http.Request) {
	var req EmbedRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		response.RespondBadRequest(w, "text is required and must be non-empty")

		return
	}

	embedding, err := h.client.Embed(r.Context(), req.Text, embeddings.RoleQuery)
	if err != nil {
		response.RespondInternalServerError(w, "Embedding failed")

		return
	}

	response.RespondJSON(w, http.StatusOK, EmbedResponse{Embedding: embedding})
}
