// Package ranking implements the scoring policy of the matching pipeline:
// the text-quality confidence heuristic and the fusion of retrieval,
// reranker, and confidence signals into one final ordering.
package ranking

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/joblens/matcher/pkg/embeddings"
)

// Confidence signal weights. Fixed policy, not tunable per request.
const (
	densityWeight  = 0.4
	lengthWeight   = 0.3
	distinctWeight = 0.3
)

// minDensityTokens is the floor below which unique-token ratio is too noisy
// to measure: a 5-word posting repeated or not tells us nothing.
const minDensityTokens = 20

// Length adequacy steps, in runes. Policy constants, not derived.
const (
	stubLengthLimit     = 80
	adequateLengthLimit = 200
)

// informationDensity scores how varied the vocabulary of text is: unique
// tokens over total tokens, scaled by 2 and capped at 1. Texts under
// minDensityTokens get a flat 0.3 rather than a formula output, so a
// degenerate one-word-repeated posting cannot score well.
func informationDensity(text string) float64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) < minDensityTokens {
		return 0.3
	}

	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[w] = struct{}{}
	}

	ratio := float64(len(unique)) / float64(len(words))

	return math.Min(1.0, ratio*2)
}

// lengthScore is a step function of text length: under 80 runes is likely a
// stub posting, under 200 is borderline, anything longer counts as adequate.
func lengthScore(text string) float64 {
	switch l := utf8.RuneCountInString(text); {
	case l < stubLengthLimit:
		return 0.2
	case l < adequateLengthLimit:
		return 0.6
	default:
		return 1.0
	}
}

// distinctiveness penalizes postings whose embedding sits next to the generic
// boilerplate reference: 1 minus cosine similarity, clamped at zero. Both
// vectors must be unit-normalized; the dot product is then the cosine.
func distinctiveness(subject, reference []float32) float64 {
	return math.Max(0, 1-embeddings.Dot(subject, reference))
}

// Confidence estimates how specific and informative a posting is, in [0, 1],
// independent of any query. It is the weighted sum of information density,
// length adequacy, and distinctiveness from the generic reference embedding.
// The output is not re-clamped: callers must pass unit-normalized embeddings
// with non-negative similarity to the reference for the bound to hold.
func Confidence(text string, subject, reference []float32) float64 {
	return densityWeight*informationDensity(text) +
		lengthWeight*lengthScore(text) +
		distinctWeight*distinctiveness(subject, reference)
}
