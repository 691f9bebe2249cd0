package embeddings

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRolePrefix(t *testing.T) {
	assert.Equal(t, "query: ", RoleQuery.Prefix())
	assert.Equal(t, "passage: ", RoleDocument.Prefix())
	assert.Equal(t, "query: backend developer", RoleQuery.Apply("backend developer"))
	assert.Equal(t, "passage: backend developer", RoleDocument.Apply("backend developer"))
}

func TestMockClient(t *testing.T) {
	client := NewMockClient(64)
	ctx := context.Background()

	t.Run("deterministic", func(t *testing.T) {
		a, err := client.Embed(ctx, "golang remote", RoleQuery)
		require.NoError(t, err)
		b, err := client.Embed(ctx, "golang remote", RoleQuery)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("unit length", func(t *testing.T) {
		emb, err := client.Embed(ctx, "data engineer", RoleDocument)
		require.NoError(t, err)
		require.Len(t, emb, 64)

		var sum float64
		for _, v := range emb {
			sum += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
	})

	t.Run("roles produce distinct vectors", func(t *testing.T) {
		q, err := client.Embed(ctx, "devops", RoleQuery)
		require.NoError(t, err)
		d, err := client.Embed(ctx, "devops", RoleDocument)
		require.NoError(t, err)
		assert.NotEqual(t, q, d)
	})

	t.Run("empty text rejected", func(t *testing.T) {
		_, err := client.Embed(ctx, "", RoleQuery)
		assert.ErrorIs(t, err, ErrEmptyInput)
	})
}
