package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/joblens/matcher/internal/models"
)

// ErrVacancyNotFound is returned when no vacancy row exists for the given id.
var ErrVacancyNotFound = errors.New("vacancy not found")

// VacanciesRepository handles data access for the vacancies table.
type VacanciesRepository struct {
	db *pgxpool.Pool
}

// NewVacanciesRepository creates a new vacancies repository.
func NewVacanciesRepository(db *pgxpool.Pool) *VacanciesRepository {
	return &VacanciesRepository{db: db}
}

// Create inserts a vacancy with raw content only; attributes and embedding
// are filled in later by the indexing workers.
func (r *VacanciesRepository) Create(ctx context.Context, content string) (int64, error) {
	var id int64

	now := time.Now()

	err := r.db.QueryRow(ctx, `
		INSERT INTO vacancies (content, created_at, updated_at)
		VALUES ($1, $2, $2)
		RETURNING id`,
		content, now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("vacancies insert: %w", err)
	}

	return id, nil
}

// GetByID returns the vacancy with the given id, or ErrVacancyNotFound.
func (r *VacanciesRepository) GetByID(ctx context.Context, id int64) (*models.Vacancy, error) {
	var (
		v         models.Vacancy
		attrsJSON []byte
		embRaw    any
	)

	err := r.db.QueryRow(ctx, `
		SELECT id, content, attributes, embedding, created_at, updated_at
		FROM vacancies WHERE id = $1`,
		id,
	).Scan(&v.ID, &v.Content, &attrsJSON, &embRaw, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVacancyNotFound
		}

		return nil, fmt.Errorf("get vacancy: %w", err)
	}

	if len(attrsJSON) > 0 {
		var attrs models.VacancyAttributes
		if err := json.Unmarshal(attrsJSON, &attrs); err != nil {
			return nil, fmt.Errorf("decode vacancy attributes: %w", err)
		}

		v.Attributes = &attrs
	}

	v.Embedding, err = ParseVector(embRaw)
	if err != nil {
		return nil, fmt.Errorf("vacancy %d embedding: %w", id, err)
	}

	return &v, nil
}

// SetAttributes stores the structured-extraction record (including failure
// markers, so a broken posting is not re-extracted on every job run).
func (r *VacanciesRepository) SetAttributes(ctx context.Context, id int64, attrs *models.VacancyAttributes) error {
	data, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("encode vacancy attributes: %w", err)
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE vacancies SET attributes = $1, updated_at = $2 WHERE id = $3`,
		data, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("set vacancy attributes: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrVacancyNotFound
	}

	return nil
}

// SetEmbedding stores the document embedding for a vacancy.
func (r *VacanciesRepository) SetEmbedding(ctx context.Context, id int64, embedding []float32) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE vacancies SET embedding = $1, updated_at = $2 WHERE id = $3`,
		pgvector.NewVector(embedding), time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("set vacancy embedding: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrVacancyNotFound
	}

	return nil
}

// NearestByEmbedding returns up to limit vacancies ordered by ascending
// cosine distance to queryEmbedding. Rows without an embedding are never
// eligible. An empty table yields an empty slice, not an error. All relevance
// judgment is deferred downstream; rows come back with their raw distance.
func (r *VacanciesRepository) NearestByEmbedding(
	ctx context.Context, queryEmbedding []float32, limit int,
) ([]models.Candidate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, content, attributes, embedding, embedding <=> $1 AS distance
		FROM vacancies
		WHERE embedding IS NOT NULL
		ORDER BY distance
		LIMIT $2`,
		pgvector.NewVector(queryEmbedding), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("nearest vacancies: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows, true)
}

// ListIDsForEmbedding returns ids of vacancies that still need an embedding.
// With force, every id is returned (model or convention changed, all vectors
// stale).
func (r *VacanciesRepository) ListIDsForEmbedding(ctx context.Context, force bool) ([]int64, error) {
	query := `SELECT id FROM vacancies WHERE embedding IS NULL ORDER BY id`
	if force {
		query = `SELECT id FROM vacancies ORDER BY id`
	}

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list vacancy ids for embedding: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

// scanCandidates reads retrieval rows. withAttributes controls whether the
// third column is the attributes JSONB (vacancies) or absent (profiles).
func scanCandidates(rows pgx.Rows, withAttributes bool) ([]models.Candidate, error) {
	var candidates []models.Candidate

	for rows.Next() {
		var (
			cand      models.Candidate
			attrsJSON []byte
			embRaw    any
			err       error
		)

		if withAttributes {
			err = rows.Scan(&cand.ID, &cand.Content, &attrsJSON, &embRaw, &cand.Distance)
		} else {
			err = rows.Scan(&cand.ID, &cand.Content, &embRaw, &cand.Distance)
		}

		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}

		if len(attrsJSON) > 0 {
			var attrs models.VacancyAttributes
			if err := json.Unmarshal(attrsJSON, &attrs); err != nil {
				return nil, fmt.Errorf("decode candidate attributes: %w", err)
			}

			cand.Attributes = &attrs
		}

		cand.Embedding, err = ParseVector(embRaw)
		if err != nil {
			return nil, fmt.Errorf("candidate %d embedding: %w", cand.ID, err)
		}

		candidates = append(candidates, cand)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating candidates: %w", err)
	}

	return candidates, nil
}

func scanIDs(rows pgx.Rows) ([]int64, error) {
	var ids []int64

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ids: %w", err)
	}

	return ids, nil
}
