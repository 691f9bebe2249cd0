package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	vec "github.com/joblens/matcher/pkg/embeddings"
)

var (
	// ErrEmptyInput is returned when Embed is called with empty input.
	ErrEmptyInput = errors.New("embeddings: input text is empty")
	// ErrInvalidDims is returned when dimensions is not positive.
	ErrInvalidDims = errors.New("embeddings: dimensions must be positive")
	// ErrNoEmbeddingInResponse is returned when the API response contains no embedding data.
	ErrNoEmbeddingInResponse = errors.New("embeddings: no embedding in response")
	// ErrDimensionMismatch is returned when the response embedding length does not match configured dimensions.
	ErrDimensionMismatch = errors.New("embeddings: embedding dimension mismatch")
)

const defaultDimensions = 1536

// OpenAIClient calls the OpenAI embeddings API via the official SDK.
// Returned vectors are L2-normalized so cosine similarity reduces to a dot
// product downstream.
type OpenAIClient struct {
	sdk        openaisdk.Client
	model      openaisdk.EmbeddingModel
	dimensions int
}

// OpenAIOption configures the OpenAIClient.
type OpenAIOption func(*OpenAIClient)

// WithDimensions sets the requested embedding dimension (must match the
// vector column in the database).
func WithDimensions(dim int) OpenAIOption {
	return func(c *OpenAIClient) {
		c.dimensions = dim
	}
}

// WithModel overrides the embedding model.
func WithModel(model string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.model = openaisdk.EmbeddingModel(model)
	}
}

// NewOpenAIClient creates an OpenAI embeddings client using the official SDK.
// Defaults to text-embedding-3-small at 1536 dimensions.
func NewOpenAIClient(apiKey string, opts ...OpenAIOption) *OpenAIClient {
	client := &OpenAIClient{
		sdk:        openaisdk.NewClient(option.WithAPIKey(apiKey)),
		model:      openaisdk.EmbeddingModelTextEmbedding3Small,
		dimensions: defaultDimensions,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

var _ Client = (*OpenAIClient)(nil)

// Embed returns the unit-normalized embedding for text in the given role.
// The returned slice length equals the configured dimensions.
func (c *OpenAIClient) Embed(ctx context.Context, text string, role Role) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	if c.dimensions <= 0 {
		return nil, ErrInvalidDims
	}

	resp, err := c.sdk.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfString: param.NewOpt(role.Apply(text)),
		},
		Model:      c.model,
		Dimensions: param.NewOpt(int64(c.dimensions)),
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, ErrNoEmbeddingInResponse
	}

	emb := resp.Data[0].Embedding
	if len(emb) != c.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(emb), c.dimensions)
	}

	out := make([]float32, len(emb))
	for i, v := range emb {
		out[i] = float32(v)
	}

	vec.NormalizeL2(out)

	return out, nil
}
