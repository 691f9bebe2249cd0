// backfill-embeddings enqueues River embedding jobs for vacancies and profiles
// that have no stored vector. Workers in the API server process the jobs.
// --force re-enqueues every row, which is how a model or dimension change is
// rolled out.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/joblens/matcher/internal/repository"
	"github.com/joblens/matcher/internal/service"
	"github.com/joblens/matcher/pkg/database"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

func main() {
	os.Exit(run())
}

func run() int {
	force := flag.Bool("force", false, "re-enqueue all rows, embedded or not")
	kind := flag.String("kind", "all", "what to backfill: vacancies, profiles, or all")
	flag.Parse()

	if *kind != "all" && *kind != "vacancies" && *kind != "profiles" {
		slog.Error("invalid -kind", "kind", *kind)

		return exitFailure
	}

	// Load .env for consistency with the main API server (godotenv.Load() there).
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		slog.Error("DATABASE_URL is required")

		return exitFailure
	}

	ctx := context.Background()

	db, err := database.NewPostgresPool(ctx, databaseURL, database.WithAfterConnect(pgxvec.RegisterTypes))
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)

		return exitFailure
	}
	defer db.Close()

	// Insert-only client; the API server runs the workers.
	riverClient, err := river.NewClient(riverpgxv5.New(db), &river.Config{})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)

		return exitFailure
	}

	total := 0

	if *kind == "all" || *kind == "vacancies" {
		ids, err := repository.NewVacanciesRepository(db).ListIDsForEmbedding(ctx, *force)
		if err != nil {
			slog.Error("Failed to list vacancies", "error", err)

			return exitFailure
		}

		params := make([]river.InsertManyParams, len(ids))
		for i, id := range ids {
			params[i] = river.InsertManyParams{
				Args:       service.VacancyEmbeddingArgs{VacancyID: id},
				InsertOpts: &river.InsertOpts{Queue: service.EmbeddingsQueueName},
			}
		}

		n, err := enqueue(ctx, riverClient, params)
		if err != nil {
			slog.Error("Failed to enqueue vacancy jobs", "error", err)

			return exitFailure
		}

		slog.Info("Vacancy jobs enqueued", "count", n)
		total += n
	}

	if *kind == "all" || *kind == "profiles" {
		ids, err := repository.NewProfilesRepository(db).ListIDsForEmbedding(ctx, *force)
		if err != nil {
			slog.Error("Failed to list profiles", "error", err)

			return exitFailure
		}

		params := make([]river.InsertManyParams, len(ids))
		for i, id := range ids {
			params[i] = river.InsertManyParams{
				Args:       service.ProfileEmbeddingArgs{ProfileID: id},
				InsertOpts: &river.InsertOpts{Queue: service.EmbeddingsQueueName},
			}
		}

		n, err := enqueue(ctx, riverClient, params)
		if err != nil {
			slog.Error("Failed to enqueue profile jobs", "error", err)

			return exitFailure
		}

		slog.Info("Profile jobs enqueued", "count", n)
		total += n
	}

	fmt.Printf("Enqueued %d embedding job(s).\n", total)

	return exitSuccess
}

func enqueue(ctx context.Context, client *river.Client[pgx.Tx], params []river.InsertManyParams) (int, error) {
	if len(params) == 0 {
		return 0, nil
	}

	results, err := client.InsertMany(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("insert jobs: %w", err)
	}

	return len(results), nil
}
