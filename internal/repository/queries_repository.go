package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// QueriesRepository appends to the search audit log. The log is a write-only
// side effect of the pipeline: nothing in the service reads it back.
type QueriesRepository struct {
	db *pgxpool.Pool
}

// NewQueriesRepository creates a new search queries repository.
func NewQueriesRepository(db *pgxpool.Pool) *QueriesRepository {
	return &QueriesRepository{db: db}
}

// Record stores the raw query text and search direction.
func (r *QueriesRepository) Record(ctx context.Context, query, direction string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO search_queries (query, direction, created_at) VALUES ($1, $2, $3)`,
		query, direction, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("record search query: %w", err)
	}

	return nil
}
