package embeddings

import (
	"context"
	"crypto/sha256"

	vec "github.com/joblens/matcher/pkg/embeddings"
)

// MockClient implements Client for tests. It derives a deterministic unit
// vector from the hash of the role-prefixed text, so the same text embedded
// in different roles lands in different places, like a real asymmetric model.
type MockClient struct {
	dimensions int
}

// NewMockClient creates a mock embedding client with the given dimensions.
func NewMockClient(dimensions int) *MockClient {
	return &MockClient{dimensions: dimensions}
}

var _ Client = (*MockClient)(nil)

// Embed generates a deterministic unit vector from the prefixed text hash.
func (c *MockClient) Embed(_ context.Context, text string, role Role) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}

	hash := sha256.Sum256([]byte(role.Apply(text)))
	embedding := make([]float32, c.dimensions)

	for i := range embedding {
		// Cycle through hash bytes, mapped into [-1, 1].
		embedding[i] = (float32(hash[i%len(hash)]) / 127.5) - 1.0
	}

	vec.NormalizeL2(embedding)

	return embedding, nil
}
