package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wokeornotsite/wokeornot-sub000/internal/domain"
	"github.com/wokeornotsite/wokeornot-sub000/internal/repository"
	apperrors "github.com/wokeornotsite/wokeornot-sub000/pkg/errors"
)

var recomputeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "aggregate_recompute_duration_seconds",
	Help:    "Time spent recomputing a content aggregate.",
	Buckets: prometheus.DefBuckets,
}, []string{"status"})

// Aggregator keeps a content item's score, review count and category
// breakdown in step with its live reviews.
type Aggregator struct {
	logger *slog.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(logger *slog.Logger) *Aggregator {
	return &Aggregator{logger: logger}
}

// Recompute derives the aggregate of contentID from repos and writes it back.
// repos must be bound to the transaction that changed the reviews: the
// content row is locked first, so concurrent recomputes of one item run one
// after the other and each sees the committed review set.
//
// A content id that is malformed or missing yields a NotFound error without
// touching the database.
func (a *Aggregator) Recompute(ctx context.Context, repos repository.Repositories, contentID string) (_ domain.Aggregate, err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		recomputeDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}()

	canonical, ok := canonicalID(contentID)
	if !ok {
		return domain.Aggregate{}, apperrors.NotFound("content", contentID)
	}
	contentID = canonical
	if _, err = repos.Contents.LockByID(ctx, contentID); err != nil {
		return domain.Aggregate{}, fmt.Errorf("lock content: %w", err)
	}

	stats, err := repos.Reviews.RatingStats(ctx, contentID)
	if err != nil {
		return domain.Aggregate{}, fmt.Errorf("load rating stats: %w", err)
	}
	counts, err := repos.Reviews.CategoryCounts(ctx, contentID)
	if err != nil {
		return domain.Aggregate{}, fmt.Errorf("load category counts: %w", err)
	}

	agg := domain.ComputeAggregate(contentID, stats, counts)

	if err = repos.Contents.UpdateAggregate(ctx, contentID, agg.Score, agg.ReviewCount); err != nil {
		return domain.Aggregate{}, fmt.Errorf("store aggregate: %w", err)
	}
	if err = repos.CategoryScores.Replace(ctx, contentID, agg.Categories); err != nil {
		return domain.Aggregate{}, fmt.Errorf("store category scores: %w", err)
	}

	a.logger.DebugContext(ctx, "aggregate recomputed",
		slog.String("content_id", contentID),
		slog.Int("review_count", agg.ReviewCount),
		slog.Float64("score", agg.Score),
	)
	return agg, nil
}
