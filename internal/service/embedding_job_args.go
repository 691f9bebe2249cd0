// Package service implements the matching pipeline: query preparation,
// retrieval, reranking, score fusion, and the background job definitions for
// indexing.
package service

// EmbeddingsQueueName is the River queue processing indexing jobs.
const EmbeddingsQueueName = "embeddings"

// VacancyEmbeddingArgs is the payload for a vacancy indexing job: structured
// extraction (when missing) followed by document embedding.
type VacancyEmbeddingArgs struct {
	VacancyID int64 `json:"vacancy_id"`
}

// Kind names the job type for River.
func (VacancyEmbeddingArgs) Kind() string { return "vacancy_embedding" }

// ProfileEmbeddingArgs is the payload for a profile indexing job.
type ProfileEmbeddingArgs struct {
	ProfileID int64 `json:"profile_id"`
}

// Kind names the job type for River.
func (ProfileEmbeddingArgs) Kind() string { return "profile_embedding" }
