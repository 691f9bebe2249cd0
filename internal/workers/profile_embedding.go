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
	"github.com/joblens/matcher/internal/models"
	"github.com/joblens/matcher/internal/observability"
	"github.com/joblens/matcher/internal/service"
	"github.com/joblens/matcher/internal/textnorm"
)

// ProfileEmbeddingWorker stores the document embedding for a candidate
// profile. Profiles carry no structured attributes, so the plain normalized
// text is embedded directly.
type ProfileEmbeddingWorker struct {
	river.WorkerDefaults[service.ProfileEmbeddingArgs]

	profiles        profileEmbeddingStore
	embeddingClient embeddings.Client
	limiter         *rate.Limiter
	metrics         observability.EmbeddingMetrics
}

type profileEmbeddingStore interface {
	GetByID(ctx context.Context, id int64) (*models.Profile, error)
	SetEmbedding(ctx context.Context, id int64, embedding []float32) error
}

// NewProfileEmbeddingWorker creates a worker that embeds profile text.
// limiter and metrics may be nil.
func NewProfileEmbeddingWorker(
	profiles profileEmbeddingStore,
	embeddingClient embeddings.Client,
	limiter *rate.Limiter,
	metrics observability.EmbeddingMetrics,
) *ProfileEmbeddingWorker {
	return &ProfileEmbeddingWorker{
		profiles:        profiles,
		embeddingClient: embeddingClient,
		limiter:         limiter,
		metrics:         metrics,
	}
}

const profileEmbeddingTimeout = 60 * time.Second

// Timeout limits one embedding job run.
func (w *ProfileEmbeddingWorker) Timeout(*river.Job[service.ProfileEmbeddingArgs]) time.Duration {
	return profileEmbeddingTimeout
}

// Work loads the profile and stores the embedding of its normalized text.
func (w *ProfileEmbeddingWorker) Work(ctx context.Context, job *river.Job[service.ProfileEmbeddingArgs]) error {
	args := job.Args
	start := time.Now()

	profile, err := w.profiles.GetByID(ctx, args.ProfileID)
	if err != nil {
		w.record(ctx, "failed_final", time.Since(start))

		slog.Error("profile embedding: get profile failed",
			"profile_id", args.ProfileID,
			"error", err,
		)

		return nil // no retry when the row is gone
	}

	text := strings.TrimSpace(textnorm.Document(profile.Content))
	if text == "" {
		w.record(ctx, "skipped", time.Since(start))

		slog.Info("profile embedding: skipped (empty content)",
			"profile_id", args.ProfileID,
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
		if job.Attempt >= job.MaxAttempts {
			w.record(ctx, "failed_final", time.Since(start))

			slog.Error("profile embedding: embed failed (final attempt)",
				"profile_id", args.ProfileID,
				"error", err,
			)

			return nil
		}

		w.record(ctx, "retry", time.Since(start))

		return fmt.Errorf("profile embedding: %w", err)
	}

	if err := w.profiles.SetEmbedding(ctx, args.ProfileID, embedding); err != nil {
		w.record(ctx, "failed_final", time.Since(start))

		slog.Error("profile embedding: set embedding failed",
			"profile_id", args.ProfileID,
			"error", err,
		)

		return fmt.Errorf("set profile embedding: %w", err)
	}

	slog.Info("profile embedding: stored", "profile_id", args.ProfileID)

	w.record(ctx, "success", time.Since(start))

	return nil
}

func (w *ProfileEmbeddingWorker) record(ctx context.Context, status string, elapsed time.Duration) {
	if w.metrics == nil {
		return
	}

	w.metrics.RecordEmbeddingOutcome(ctx, embeddingKindProfile, status)
	w.metrics.RecordEmbeddingDuration(ctx, elapsed, embeddingKindProfile)
}
