package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names. Kept in one place so dashboards and code cannot drift.
const (
	MetricNameSearches          = "matcher.searches.total"
	MetricNameSearchDuration    = "matcher.search.duration.seconds"
	MetricNameEmbeddingOutcomes = "matcher.embedding.outcomes.total"
	MetricNameEmbeddingDuration = "matcher.embedding.duration.seconds"
	MetricNameCacheHits         = "matcher.cache.hits.total"
	MetricNameCacheMisses       = "matcher.cache.misses.total"
)

// CacheMetrics records cache hit/miss metrics with bounded cardinality (cache name).
type CacheMetrics interface {
	RecordHit(ctx context.Context, cacheName string)
	RecordMiss(ctx context.Context, cacheName string)
}

type cacheMetrics struct {
	hits   metric.Int64Counter
	misses metric.Int64Counter
}

// NewCacheMetrics creates CacheMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewCacheMetrics(meter metric.Meter) (CacheMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	hits, err := meter.Int64Counter(
		MetricNameCacheHits,
		metric.WithDescription("Cache lookups that returned a cached value. Label cache: search_query_embedding."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cache hits counter: %w", err)
	}

	misses, err := meter.Int64Counter(
		MetricNameCacheMisses,
		metric.WithDescription("Cache lookups that missed and triggered a load."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cache misses counter: %w", err)
	}

	return &cacheMetrics{hits: hits, misses: misses}, nil
}

func (m *cacheMetrics) RecordHit(ctx context.Context, cacheName string) {
	m.hits.Add(ctx, 1, metric.WithAttributes(attribute.String("cache", cacheName)))
}

func (m *cacheMetrics) RecordMiss(ctx context.Context, cacheName string) {
	m.misses.Add(ctx, 1, metric.WithAttributes(attribute.String("cache", cacheName)))
}

// SearchMetrics records ranking pipeline outcomes. Labels: direction
// (vacancies|profiles), mode (reranked|retrieval), status (ok|error).
type SearchMetrics interface {
	RecordSearch(ctx context.Context, direction, mode, status string)
	RecordSearchDuration(ctx context.Context, duration time.Duration, direction string)
}

type searchMetrics struct {
	searches metric.Int64Counter
	duration metric.Float64Histogram
}

// NewSearchMetrics creates SearchMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewSearchMetrics(meter metric.Meter) (SearchMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	searches, err := meter.Int64Counter(
		MetricNameSearches,
		metric.WithDescription("Total search pipeline runs by direction, mode, and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("create searches counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		MetricNameSearchDuration,
		metric.WithDescription("End-to-end search pipeline duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create search duration histogram: %w", err)
	}

	return &searchMetrics{searches: searches, duration: duration}, nil
}

func (m *searchMetrics) RecordSearch(ctx context.Context, direction, mode, status string) {
	m.searches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("direction", direction),
		attribute.String("mode", mode),
		attribute.String("status", status),
	))
}

func (m *searchMetrics) RecordSearchDuration(ctx context.Context, duration time.Duration, direction string) {
	m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("direction", direction),
	))
}

// EmbeddingMetrics records indexing worker outcomes.
type EmbeddingMetrics interface {
	RecordEmbeddingOutcome(ctx context.Context, kind, status string)
	RecordEmbeddingDuration(ctx context.Context, duration time.Duration, kind string)
}

type embeddingMetrics struct {
	outcomes metric.Int64Counter
	duration metric.Float64Histogram
}

// NewEmbeddingMetrics creates EmbeddingMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewEmbeddingMetrics(meter metric.Meter) (EmbeddingMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	outcomes, err := meter.Int64Counter(
		MetricNameEmbeddingOutcomes,
		metric.WithDescription("Embedding job outcomes by kind (vacancy|profile) and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding outcomes counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		MetricNameEmbeddingDuration,
		metric.WithDescription("Embedding job duration by kind"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding duration histogram: %w", err)
	}

	return &embeddingMetrics{outcomes: outcomes, duration: duration}, nil
}

func (m *embeddingMetrics) RecordEmbeddingOutcome(ctx context.Context, kind, status string) {
	m.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
}

func (m *embeddingMetrics) RecordEmbeddingDuration(ctx context.Context, duration time.Duration, kind string) {
	m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("kind", kind),
	))
}
