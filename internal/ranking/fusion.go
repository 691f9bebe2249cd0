package ranking

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/joblens/matcher/internal/models"
)

// minContentRunes is the garbage filter threshold: anything shorter after
// trimming is a stub or junk row not worth a reranker call.
const minContentRunes = 50

// ValidContent reports whether candidate content passes the garbage filter.
func ValidContent(s string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) >= minContentRunes
}

// SemanticScore converts a raw cosine distance into the relevance score used
// by the retrieval-only mode, in place of a reranker score.
func SemanticScore(distance float64) float64 {
	return math.Max(0, 1-distance)
}

// FusionOptions is the per-mode ranking policy. MinScore of 0 disables the
// absolute floor; Limit of 0 disables truncation.
type FusionOptions struct {
	MinScore float64
	Limit    int
}

// FuseAndRank combines one relevance score per candidate (reranker output, or
// SemanticScore in retrieval-only mode) with the confidence heuristic, then
// filters, sorts, and truncates. relevance must be parallel to candidates.
//
// Fusion is multiplicative: a relevant-looking match that is also a
// low-confidence generic posting is suppressed, not averaged down. Ties keep
// their input order.
func FuseAndRank(
	candidates []models.Candidate, relevance []float64, reference []float32, opts FusionOptions,
) []models.RankedMatch {
	results := make([]models.RankedMatch, 0, len(candidates))

	for i, cand := range candidates {
		score := relevance[i] * Confidence(cand.Content, cand.Embedding, reference)
		if opts.MinScore > 0 && score < opts.MinScore {
			continue
		}

		results = append(results, models.RankedMatch{
			ID:      cand.ID,
			Content: cand.Content,
			Score:   score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	return results
}
