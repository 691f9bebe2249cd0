package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/joblens/matcher/internal/models"
)

// ErrProfileNotFound is returned when no profile row exists for the given id.
var ErrProfileNotFound = errors.New("profile not found")

// ProfilesRepository handles data access for the profiles table.
type ProfilesRepository struct {
	db *pgxpool.Pool
}

// NewProfilesRepository creates a new profiles repository.
func NewProfilesRepository(db *pgxpool.Pool) *ProfilesRepository {
	return &ProfilesRepository{db: db}
}

// Create inserts a profile with raw content only.
func (r *ProfilesRepository) Create(ctx context.Context, content string) (int64, error) {
	var id int64

	now := time.Now()

	err := r.db.QueryRow(ctx, `
		INSERT INTO profiles (content, created_at, updated_at)
		VALUES ($1, $2, $2)
		RETURNING id`,
		content, now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("profiles insert: %w", err)
	}

	return id, nil
}

// GetByID returns the profile with the given id, or ErrProfileNotFound.
func (r *ProfilesRepository) GetByID(ctx context.Context, id int64) (*models.Profile, error) {
	var (
		p      models.Profile
		embRaw any
	)

	err := r.db.QueryRow(ctx, `
		SELECT id, content, embedding, created_at, updated_at
		FROM profiles WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Content, &embRaw, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}

		return nil, fmt.Errorf("get profile: %w", err)
	}

	p.Embedding, err = ParseVector(embRaw)
	if err != nil {
		return nil, fmt.Errorf("profile %d embedding: %w", id, err)
	}

	return &p, nil
}

// SetEmbedding stores the document embedding for a profile.
func (r *ProfilesRepository) SetEmbedding(ctx context.Context, id int64, embedding []float32) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE profiles SET embedding = $1, updated_at = $2 WHERE id = $3`,
		pgvector.NewVector(embedding), time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("set profile embedding: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}

	return nil
}

// NearestByEmbedding returns up to limit profiles ordered by ascending cosine
// distance to queryEmbedding, skipping rows without an embedding.
func (r *ProfilesRepository) NearestByEmbedding(
	ctx context.Context, queryEmbedding []float32, limit int,
) ([]models.Candidate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, content, embedding, embedding <=> $1 AS distance
		FROM profiles
		WHERE embedding IS NOT NULL
		ORDER BY distance
		LIMIT $2`,
		pgvector.NewVector(queryEmbedding), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("nearest profiles: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows, false)
}

// ListIDsForEmbedding returns ids of profiles that still need an embedding,
// or all ids with force.
func (r *ProfilesRepository) ListIDsForEmbedding(ctx context.Context, force bool) ([]int64, error) {
	query := `SELECT id FROM profiles WHERE embedding IS NULL ORDER BY id`
	if force {
		query = `SELECT id FROM profiles ORDER BY id`
	}

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list profile ids for embedding: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}
