// Package workers provides River job workers for the embedding index.
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/riverqueue/river"
	"golang.org/x/time/rate"

	"github.com/joblens/matcher/internal/embeddings"
	"github.com/joblens/matcher/internal/extract"
	"github.com/joblens/matcher/internal/models"
	"github.com/joblens/matcher/internal/observability"
	"github.com/joblens/matcher/internal/service"
	"github.com/joblens/matcher/internal/textnorm"
)

const (
	embeddingKindVacancy = "vacancy"
	embeddingKindProfile = "profile"
)

// VacancyEmbeddingWorker extracts structured attributes for a vacancy and
// stores its document embedding.
type VacancyEmbeddingWorker struct {
	river.WorkerDefaults[service.VacancyEmbeddingArgs]

	vacancies       vacancyEmbeddingStore
	embeddingClient embeddings.Client
	extractor       extract.Extractor
	limiter         *rate.Limiter
	metrics         observability.EmbeddingMetrics
}

// vacancyEmbeddingStore is the minimal repository surface needed by the worker.
type vacancyEmbeddingStore interface {
	GetByID(ctx context.Context, id int64) (*models.Vacancy, error)
	SetAttributes(ctx context.Context, id int64, attrs *models.VacancyAttributes) error
	SetEmbedding(ctx context.Context, id int64, embedding []float32) error
}

// NewVacancyEmbeddingWorker creates a worker that extracts attributes, embeds
// the rendered document, and persists both. extractor may be nil to index the
// plain text; limiter may be nil to run unthrottled; metrics may be nil when
// metrics are disabled.
func NewVacancyEmbeddingWorker(
	vacancies vacancyEmbeddingStore,
	embeddingClient embeddings.Client,
	extractor extract.Extractor,
	limiter *rate.Limiter,
	metrics observability.EmbeddingMetrics,
) *VacancyEmbeddingWorker {
	return &VacancyEmbeddingWorker{
		vacancies:       vacancies,
		embeddingClient: embeddingClient,
		extractor:       extractor,
		limiter:         limiter,
		metrics:         metrics,
	}
}

const vacancyEmbeddingTimeout = 90 * time.Second

// Timeout limits one job run, extraction and embedding together.
func (w *VacancyEmbeddingWorker) Timeout(*river.Job[service.VacancyEmbeddingArgs]) time.Duration {
	return vacancyEmbeddingTimeout
}

// Work loads the vacancy, ensures attributes exist, and stores the embedding
// of the rendered document text.
func (w *VacancyEmbeddingWorker) Work(ctx context.Context, job *river.Job[service.VacancyEmbeddingArgs]) error {
	args := job.Args
	start := time.Now()

	vacancy, err := w.vacancies.GetByID(ctx, args.VacancyID)
	if err != nil {
		w.record(ctx, "failed_final", time.Since(start))

		slog.Error("vacancy embedding: get vacancy failed",
			"vacancy_id", args.VacancyID,
			"error", err,
		)

		return nil // no retry when the row is gone
	}

	attrs := vacancy.Attributes
	if attrs == nil && w.extractor != nil {
		attrs, err = w.extractor.Extract(ctx, textnorm.Document(vacancy.Content))
		if err != nil {
			return w.handleUpstreamError(ctx, job, start, "extraction", err)
		}

		// Failure markers are stored too, so a broken extraction is visible
		// and is not retried on every reindex.
		if err := w.vacancies.SetAttributes(ctx, args.VacancyID, attrs); err != nil {
			w.record(ctx, "failed_final", time.Since(start))

			return fmt.Errorf("set vacancy attributes: %w", err)
		}
	}

	text := strings.TrimSpace(extract.DocumentText(vacancy.Content, attrs))
	if text == "" {
		w.record(ctx, "skipped", time.Since(start))

		slog.Info("vacancy embedding: skipped (empty content)",
			"vacancy_id", args.VacancyID,
		)

		return nil
	}

	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("embedding rate limit: %w", err)
		}
	}

	embedding, err := w.embeddingClient.Embed(ctx, text, embeddings.RoleDocument)
	if err != nil {
		return w.handleUpstreamError(ctx, job, start, "embedding", err)
	}

	if err := w.vacancies.SetEmbedding(ctx, args.VacancyID, embedding); err != nil {
		w.record(ctx, "failed_final", time.Since(start))

		slog.Error("vacancy embedding: set embedding failed",
			"vacancy_id", args.VacancyID,
			"error", err,
		)

		return fmt.Errorf("set vacancy embedding: %w", err)
	}

	slog.Info("vacancy embedding: stored", "vacancy_id", args.VacancyID)

	w.record(ctx, "success", time.Since(start))

	return nil
}

// handleUpstreamError retries transient model failures and gives up quietly on
// the final attempt.
func (w *VacancyEmbeddingWorker) handleUpstreamError(
	ctx context.Context,
	job *river.Job[service.VacancyEmbeddingArgs],
	start time.Time,
	stage string,
	err error,
) error {
	if job.Attempt >= job.MaxAttempts {
		w.record(ctx, "failed_final", time.Since(start))

		slog.Error("vacancy embedding: "+stage+" failed (final attempt)",
			"vacancy_id", job.Args.VacancyID,
			"error", err,
		)

		return nil
	}

	w.record(ctx, "retry", time.Since(start))

	return fmt.Errorf("vacancy %s: %w", stage, err)
}

func (w *VacancyEmbeddingWorker) record(ctx context.Context, status string, elapsed time.Duration) {
	if w.metrics == nil {
		return
	}

	w.metrics.RecordEmbeddingOutcome(ctx, embeddingKindVacancy, status)
	w.metrics.RecordEmbeddingDuration(ctx, elapsed, embeddingKindVacancy)
}
