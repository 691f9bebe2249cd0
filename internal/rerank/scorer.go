// Package rerank defines the cross-encoder capability: scoring
// (query, document) pairs jointly, which is more accurate but costlier than
// vector distance alone.
package rerank

import "context"

// Scorer scores each document against the query with a cross-encoder model.
// The result has one score per document, in input order, regardless of how
// the backend batches or reorders internally. Higher is more relevant; the
// scale is model-specific and carries no absolute meaning.
type Scorer interface {
	Score(ctx context.Context, query string, documents []string) ([]float64, error)
}
