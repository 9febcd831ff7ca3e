package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wokeornotsite/wokeornot-sub000/internal/domain"
	"github.com/wokeornotsite/wokeornot-sub000/internal/repository"
	apperrors "github.com/wokeornotsite/wokeornot-sub000/pkg/errors"
)

var (
	maintenanceScanned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maintenance_reviews_scanned_total",
		Help: "Reviews examined by the maintenance scanner.",
	})
	maintenanceFlagged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_reviews_flagged_total",
		Help: "Reviews flagged by the maintenance scanner, by reason.",
	}, []string{"reason"})
	maintenancePurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maintenance_reviews_purged_total",
		Help: "Reviews deleted by maintenance purges.",
	})
)

// MaxPurgeIDs bounds one purge request.
const MaxPurgeIDs = 10000

// MaintenanceService finds and removes reviews whose content reference is
// malformed or dangling. Scanning never deletes; purging deletes exactly the
// ids it is given.
type MaintenanceService struct {
	store      repository.Store
	aggregator *Aggregator
	logger     *slog.Logger
	batchSize  int
	sampleSize int
}

// NewMaintenanceService creates a maintenance service. Non-positive sizes
// fall back to the defaults.
func NewMaintenanceService(store repository.Store, aggregator *Aggregator, logger *slog.Logger, batchSize, sampleSize int) *MaintenanceService {
	if batchSize <= 0 {
		batchSize = domain.DefaultScanBatchSize
	}
	if sampleSize < 0 {
		sampleSize = domain.DefaultScanSampleSize
	}
	return &MaintenanceService{
		store:      store,
		aggregator: aggregator,
		logger:     logger,
		batchSize:  batchSize,
		sampleSize: sampleSize,
	}
}

// Scan pages through every review by id and reports the malformed and
// orphaned ones.
func (s *MaintenanceService) Scan(ctx context.Context, opts domain.ScanOptions) (*domain.ScanReport, error) {
	if opts.Limit < 0 {
		return nil, apperrors.InvalidInput("limit must not be negative")
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = s.batchSize
	}
	sampleSize := opts.SampleSize
	if sampleSize <= 0 {
		sampleSize = s.sampleSize
	}

	repos := s.store.Repos()
	report := &domain.ScanReport{
		Sample: domain.ScanSample{
			Malformed: []domain.SampleEntry{},
			Orphaned:  []domain.SampleEntry{},
		},
		IDs: []string{},
	}
	seen := make(map[string]struct{})
	flag := func(ref domain.ReviewRef, sample *[]domain.SampleEntry) {
		if len(*sample) < sampleSize {
			*sample = append(*sample, domain.SampleEntry{ID: ref.ID, ContentID: ref.ContentID})
		}
		if _, ok := seen[ref.ID]; !ok {
			seen[ref.ID] = struct{}{}
			report.IDs = append(report.IDs, ref.ID)
		}
	}

	after := ""
	for {
		n := batchSize
		if opts.Limit > 0 {
			n = min(n, opts.Limit-report.TotalScanned)
			if n <= 0 {
				break
			}
		}

		batch, err := repos.Reviews.ScanBatch(ctx, after, n)
		if err != nil {
			return nil, fmt.Errorf("scan reviews after %q: %w", after, err)
		}
		if len(batch) == 0 {
			break
		}
		report.TotalScanned += len(batch)
		after = batch[len(batch)-1].ID

		var candidates []domain.ReviewRef
		contentIDs := make([]string, 0, len(batch))
		for _, ref := range batch {
			if !domain.IsWellFormedContentID(ref.ContentID) {
				report.MalformedCount++
				flag(ref, &report.Sample.Malformed)
				continue
			}
			candidates = append(candidates, ref)
			contentIDs = append(contentIDs, *ref.ContentID)
		}

		if len(candidates) > 0 {
			existing, err := repos.Contents.ExistingIDs(ctx, dedupe(contentIDs))
			if err != nil {
				return nil, fmt.Errorf("look up content ids: %w", err)
			}
			for _, ref := range candidates {
				if _, ok := existing[*ref.ContentID]; !ok {
					report.OrphanedCount++
					flag(ref, &report.Sample.Orphaned)
				}
			}
		}

		if len(batch) < n {
			break
		}
	}
	report.ToDeleteCount = len(report.IDs)

	maintenanceScanned.Add(float64(report.TotalScanned))
	maintenanceFlagged.WithLabelValues("malformed").Add(float64(report.MalformedCount))
	maintenanceFlagged.WithLabelValues("orphaned").Add(float64(report.OrphanedCount))

	s.logger.InfoContext(ctx, "maintenance scan finished",
		slog.Int("total_scanned", report.TotalScanned),
		slog.Int("malformed", report.MalformedCount),
		slog.Int("orphaned", report.OrphanedCount),
		slog.Int("to_delete", report.ToDeleteCount),
	)
	return report, nil
}

// Purge deletes exactly ids and recomputes every surviving content item the
// deleted reviews referenced, all in one transaction.
func (s *MaintenanceService) Purge(ctx context.Context, ids []string) (*domain.PurgeResult, error) {
	ids = dedupe(ids)
	if len(ids) > MaxPurgeIDs {
		return nil, apperrors.InvalidInput(fmt.Sprintf("at most %d ids per purge", MaxPurgeIDs))
	}
	for i, id := range ids {
		u, err := uuid.Parse(id)
		if err != nil {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid review id %q", id))
		}
		ids[i] = u.String()
	}
	ids = dedupe(ids)

	result := &domain.PurgeResult{RecomputedContentIDs: []string{}}
	if len(ids) == 0 {
		return result, nil
	}

	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		refs, err := repos.Reviews.RefsByIDs(ctx, ids)
		if err != nil {
			return err
		}
		// Content rows are locked before any review is deleted, in sorted
		// order, matching the review write paths.
		contentIDs := referencedContent(refs)
		for _, contentID := range contentIDs {
			if _, err := repos.Contents.LockByID(ctx, contentID); err != nil && !isNotFound(err) {
				return err
			}
		}

		deleted, err := repos.Reviews.DeleteByIDs(ctx, ids)
		if err != nil {
			return err
		}
		result.Deleted = len(deleted)

		for _, contentID := range referencedContent(deleted) {
			_, err := s.aggregator.Recompute(ctx, repos, contentID)
			if isNotFound(err) {
				continue
			}
			if err != nil {
				return err
			}
			result.RecomputedContentIDs = append(result.RecomputedContentIDs, contentID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("purge reviews: %w", err)
	}

	maintenancePurged.Add(float64(result.Deleted))
	s.logger.InfoContext(ctx, "maintenance purge finished",
		slog.Int("requested", len(ids)),
		slog.Int("deleted", result.Deleted),
		slog.Int("recomputed", len(result.RecomputedContentIDs)),
	)
	return result, nil
}

// referencedContent returns the distinct well-formed content ids refs point
// at, sorted.
func referencedContent(refs []domain.ReviewRef) []string {
	var ids []string
	for _, ref := range refs {
		if domain.IsWellFormedContentID(ref.ContentID) {
			ids = append(ids, *ref.ContentID)
		}
	}
	ids = dedupe(ids)
	sort.Strings(ids)
	return ids
}

// normalizeUUID returns the canonical text form Postgres uses for a uuid.
func normalizeUUID(id string) string {
	u, err := uuid.Parse(id)
	if err != nil {
		return id
	}
	return u.String()
}

func isNotFound(err error) bool {
	return err != nil && errors.Is(err, apperrors.ErrNotFound)
}
