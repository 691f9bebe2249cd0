package rerank

import "context"

// MockScorer implements Scorer for tests with a function field, matching the
// hand-written mock style used across the service tests.
type MockScorer struct {
	ScoreFunc func(ctx context.Context, query string, documents []string) ([]float64, error)
}

var _ Scorer = (*MockScorer)(nil)

// Score delegates to ScoreFunc, or returns a flat zero score per document.
func (m *MockScorer) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	if m.ScoreFunc != nil {
		return m.ScoreFunc(ctx, query, documents)
	}

	return make([]float64, len(documents)), nil
}
