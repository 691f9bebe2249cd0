package ranking

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// uniqueTokens returns n distinct multi-char tokens joined by single spaces.
func uniqueTokens(n int) string {
	tokens := make([]string, n)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("tok%03d", i)
	}

	return strings.Join(tokens, " ")
}

func TestInformationDensity(t *testing.T) {
	t.Run("short text gets flat floor", func(t *testing.T) {
		assert.Equal(t, 0.3, informationDensity("go go go go go"))
		assert.Equal(t, 0.3, informationDensity(""))
		assert.Equal(t, 0.3, informationDensity(uniqueTokens(19)))
	})

	t.Run("all-unique text caps at 1", func(t *testing.T) {
		assert.Equal(t, 1.0, informationDensity(uniqueTokens(40)))
	})

	t.Run("repetitive text scores low", func(t *testing.T) {
		// 2 unique tokens out of 40: ratio 0.05, scaled 0.1.
		text := strings.Repeat("foo bar ", 20)
		assert.InDelta(t, 0.1, informationDensity(text), 1e-12)
	})

	t.Run("case-insensitive tokenization", func(t *testing.T) {
		lower := strings.Repeat("java ", 25)
		mixed := strings.Repeat("Java JAVA java jAva java ", 5)
		assert.Equal(t, informationDensity(lower), informationDensity(mixed))
	})

	t.Run("monotone in unique ratio up to the cap", func(t *testing.T) {
		prev := 0.0
		// 40 tokens, k of them unique, the rest a repeated filler.
		for k := 2; k <= 20; k++ {
			text := uniqueTokens(k) + strings.Repeat(" filler", 40-k)
			score := informationDensity(text)
			assert.GreaterOrEqual(t, score, prev, "unique count %d", k)
			prev = score
		}
	})
}

func TestLengthScore(t *testing.T) {
	assert.Equal(t, 0.2, lengthScore(""))
	assert.Equal(t, 0.2, lengthScore(strings.Repeat("x", 79)))
	assert.Equal(t, 0.6, lengthScore(strings.Repeat("x", 80)))
	assert.Equal(t, 0.6, lengthScore(strings.Repeat("x", 199)))
	assert.Equal(t, 1.0, lengthScore(strings.Repeat("x", 200)))

	t.Run("counts runes not bytes", func(t *testing.T) {
		// 79 cyrillic characters occupy 158 bytes but are still a stub.
		assert.Equal(t, 0.2, lengthScore(strings.Repeat("ж", 79)))
	})
}

func TestDistinctiveness(t *testing.T) {
	t.Run("identical embeddings score zero", func(t *testing.T) {
		v := []float32{1, 0, 0}
		assert.Equal(t, 0.0, distinctiveness(v, v))
	})

	t.Run("orthogonal embeddings score one", func(t *testing.T) {
		assert.Equal(t, 1.0, distinctiveness([]float32{1, 0}, []float32{0, 1}))
	})

	t.Run("clamped at zero, never negative", func(t *testing.T) {
		// Similarity above 1 cannot happen with unit vectors, but the clamp
		// must hold for whatever numeric noise arrives.
		assert.Equal(t, 0.0, distinctiveness([]float32{2, 0}, []float32{1, 0}))
	})
}

func TestConfidence(t *testing.T) {
	subject := []float32{1, 0}
	generic := []float32{0, 1}

	t.Run("deterministic to full precision", func(t *testing.T) {
		text := uniqueTokens(30)
		first := Confidence(text, subject, generic)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, Confidence(text, subject, generic))
		}
	})

	t.Run("stays within [0,1] for unit embeddings", func(t *testing.T) {
		texts := []string{
			"",
			"short stub",
			uniqueTokens(25),
			strings.Repeat("duplicate ", 50),
			strings.Repeat("ж", 300),
		}
		pairs := [][2][]float32{
			{{1, 0}, {1, 0}},
			{{1, 0}, {0, 1}},
			{{0.6, 0.8}, {0.8, 0.6}},
		}
		for _, text := range texts {
			for _, p := range pairs {
				got := Confidence(text, p[0], p[1])
				assert.GreaterOrEqual(t, got, 0.0)
				assert.LessOrEqual(t, got, 1.0)
			}
		}
	})

	t.Run("79 runes of 25 unique tokens", func(t *testing.T) {
		// 24 two-char tokens + one seven-char token + 24 spaces = 79 runes.
		tokens := make([]string, 0, 25)
		for c := 'a'; c < 'a'+24; c++ {
			tokens = append(tokens, "q"+string(c))
		}
		tokens = append(tokens, "golangx")
		text := strings.Join(tokens, " ")
		require.Len(t, []rune(text), 79)

		assert.Equal(t, 1.0, informationDensity(text))
		assert.Equal(t, 0.2, lengthScore(text))

		// With subject == reference the distinctiveness term vanishes.
		assert.InDelta(t, 0.4*1.0+0.3*0.2, Confidence(text, subject, subject), 1e-12)
	})

	t.Run("generic posting is penalized", func(t *testing.T) {
		text := uniqueTokens(40)
		near := Confidence(text, subject, subject)
		far := Confidence(text, subject, generic)
		assert.Greater(t, far, near)
		assert.InDelta(t, 0.3, far-near, 1e-12)
	})
}
