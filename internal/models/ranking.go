package models

// Candidate is one retrieval row: a document close to the query vector, with
// its raw cosine distance (lower is more similar). Attributes is nil for
// profiles and for vacancies that have not been through extraction yet.
type Candidate struct {
	ID         int64
	Content    string
	Attributes *VacancyAttributes
	Embedding  []float32
	Distance   float64
}

// RankedMatch is one final search result. Score is call-local: it orders
// results within a single query and has no absolute meaning across calls.
type RankedMatch struct {
	ID      int64
	Content string
	Score   float64
}
