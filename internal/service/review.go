package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wokeornotsite/wokeornot-sub000/internal/domain"
	"github.com/wokeornotsite/wokeornot-sub000/internal/event"
	"github.com/wokeornotsite/wokeornot-sub000/internal/repository"
	apperrors "github.com/wokeornotsite/wokeornot-sub000/pkg/errors"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/pagination"
)

// ReviewService implements review submission, editing and deletion. Every
// mutation and the recompute of the affected aggregate commit together.
type ReviewService struct {
	store       repository.Store
	aggregator  *Aggregator
	publisher   event.Publisher
	logger      *slog.Logger
	allowGuests bool
}

// NewReviewService creates a new review service. allowGuests permits
// anonymous submissions.
func NewReviewService(store repository.Store, aggregator *Aggregator, publisher event.Publisher, logger *slog.Logger, allowGuests bool) *ReviewService {
	return &ReviewService{
		store:       store,
		aggregator:  aggregator,
		publisher:   publisher,
		logger:      logger,
		allowGuests: allowGuests,
	}
}

// CreateReviewInput holds the parameters for submitting a review.
type CreateReviewInput struct {
	ContentID   string
	Rating      int
	Text        string
	CategoryIDs []string
	GuestName   string
}

// UpdateReviewInput holds the fields an author may change. Nil fields are
// left as they are.
type UpdateReviewInput struct {
	Rating      *int
	Text        *string
	CategoryIDs *[]string
}

// CreateReview submits a review for a content item. caller is nil for guests.
func (s *ReviewService) CreateReview(ctx context.Context, caller *domain.CallerIdentity, input *CreateReviewInput) (*domain.Review, error) {
	if caller == nil && !s.allowGuests {
		return nil, apperrors.Unauthorized("authentication required")
	}
	if err := checkID("content", input.ContentID); err != nil {
		return nil, err
	}
	contentID := normalizeUUID(input.ContentID)
	categoryIDs := dedupe(input.CategoryIDs)
	if err := domain.ValidateRating(input.Rating, len(categoryIDs)); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:        uuid.New().String(),
		ContentID: contentID,
		Rating:    input.Rating,
		Text:      strings.TrimSpace(input.Text),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if caller != nil {
		id := caller.ID
		review.UserID = &id
	} else {
		review.GuestName = strings.TrimSpace(input.GuestName)
	}

	var agg domain.Aggregate
	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Contents.LockByID(ctx, contentID); err != nil {
			return err
		}

		cats, err := resolveCategories(ctx, repos, categoryIDs)
		if err != nil {
			return err
		}
		review.Categories = cats

		if caller != nil {
			exists, err := repos.Reviews.ExistsForUser(ctx, caller.ID, contentID)
			if err != nil {
				return err
			}
			if exists {
				return domain.DuplicateReviewError()
			}
		}

		if err := repos.Reviews.Create(ctx, review); err != nil {
			return err
		}
		agg, err = s.aggregator.Recompute(ctx, repos, contentID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	if err := s.publisher.PublishReviewCreated(ctx, review); err != nil {
		s.logPublishError(ctx, "review.created", review.ID, err)
	}
	s.publishAggregate(ctx, agg)

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("content_id", review.ContentID),
		slog.Int("rating", review.Rating),
		slog.Bool("guest", review.IsGuest()),
	)
	return review, nil
}

// GetReview returns a review with its categories and reaction counts.
func (s *ReviewService) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	if err := checkID("review", id); err != nil {
		return nil, err
	}
	review, err := s.store.Repos().Reviews.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

// ListReviews returns one page of a content item's reviews, newest first.
func (s *ReviewService) ListReviews(ctx context.Context, contentID string, p pagination.Params) ([]domain.Review, int, error) {
	if err := checkID("content", contentID); err != nil {
		return nil, 0, err
	}
	contentID = normalizeUUID(contentID)
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PerPage <= 0 {
		p.PerPage = pagination.DefaultParams().PerPage
	}

	repos := s.store.Repos()
	if _, err := repos.Contents.GetByID(ctx, contentID); err != nil {
		return nil, 0, fmt.Errorf("get content: %w", err)
	}
	reviews, total, err := repos.Reviews.ListByContent(ctx, contentID, p)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, total, nil
}

// UpdateReview applies an author's edit. The category rule is checked
// against the resulting rating and category set.
func (s *ReviewService) UpdateReview(ctx context.Context, caller *domain.CallerIdentity, id string, input *UpdateReviewInput) (*domain.Review, error) {
	if caller == nil {
		return nil, apperrors.Unauthorized("authentication required")
	}
	if err := checkID("review", id); err != nil {
		return nil, err
	}

	var (
		review *domain.Review
		agg    domain.Aggregate
	)
	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		var err error
		review, err = loadForWrite(ctx, repos, id)
		if err != nil {
			return err
		}
		if !caller.CanEdit(review) {
			return apperrors.Forbidden("only the author can edit this review")
		}

		if input.Rating != nil {
			review.Rating = *input.Rating
		}
		if input.Text != nil {
			review.Text = strings.TrimSpace(*input.Text)
		}
		if input.CategoryIDs != nil {
			cats, err := resolveCategories(ctx, repos, dedupe(*input.CategoryIDs))
			if err != nil {
				return err
			}
			review.Categories = cats
		}
		if err := domain.ValidateRating(review.Rating, len(review.Categories)); err != nil {
			return err
		}

		review.UpdatedAt = time.Now().UTC()
		if err := repos.Reviews.Update(ctx, review); err != nil {
			return err
		}
		agg, err = s.aggregator.Recompute(ctx, repos, review.ContentID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	if err := s.publisher.PublishReviewUpdated(ctx, review); err != nil {
		s.logPublishError(ctx, "review.updated", review.ID, err)
	}
	s.publishAggregate(ctx, agg)

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", review.ID),
		slog.String("content_id", review.ContentID),
		slog.Int("rating", review.Rating),
	)
	return review, nil
}

// DeleteReview removes a review. Its author or an admin may delete it. A
// review whose content item no longer exists is deleted without a recompute.
func (s *ReviewService) DeleteReview(ctx context.Context, caller *domain.CallerIdentity, id string) error {
	if caller == nil {
		return apperrors.Unauthorized("authentication required")
	}
	if err := checkID("review", id); err != nil {
		return err
	}

	var (
		review     *domain.Review
		agg        domain.Aggregate
		recomputed bool
	)
	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		var err error
		review, err = loadForWrite(ctx, repos, id)
		if err != nil {
			return err
		}
		if !caller.CanDelete(review) {
			return apperrors.Forbidden("only the author or an admin can delete this review")
		}
		if err := repos.Reviews.Delete(ctx, id); err != nil {
			return err
		}

		agg, err = s.aggregator.Recompute(ctx, repos, review.ContentID)
		if isNotFound(err) {
			return nil
		}
		recomputed = err == nil
		return err
	})
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	if err := s.publisher.PublishReviewDeleted(ctx, review, caller.ID); err != nil {
		s.logPublishError(ctx, "review.deleted", review.ID, err)
	}
	if recomputed {
		s.publishAggregate(ctx, agg)
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", review.ID),
		slog.String("content_id", review.ContentID),
		slog.String("deleted_by", caller.ID),
		slog.Bool("by_admin", !caller.Owns(review)),
	)
	return nil
}

// loadForWrite locks the content row of review id and then reads the review.
// Every path that writes reviews locks content first, so concurrent writers
// wait on the same row instead of deadlocking. A review whose content id is
// malformed or gone is returned without a content lock.
func loadForWrite(ctx context.Context, repos repository.Repositories, id string) (*domain.Review, error) {
	review, err := repos.Reviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.IsWellFormedContentID(&review.ContentID) {
		return review, nil
	}
	_, err = repos.Contents.LockByID(ctx, review.ContentID)
	if isNotFound(err) {
		return review, nil
	}
	if err != nil {
		return nil, err
	}
	// Re-read under the lock; a concurrent writer may have committed.
	return repos.Reviews.GetByID(ctx, id)
}

// resolveCategories loads ids and fails if any of them is unknown.
func resolveCategories(ctx context.Context, repos repository.Repositories, ids []string) ([]domain.Category, error) {
	if len(ids) == 0 {
		return []domain.Category{}, nil
	}
	cats, err := repos.Categories.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(cats) != len(ids) {
		known := make(map[string]struct{}, len(cats))
		for _, c := range cats {
			known[c.ID] = struct{}{}
		}
		var unknown []string
		for _, id := range ids {
			if _, ok := known[id]; !ok {
				unknown = append(unknown, id)
			}
		}
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown category: %s", strings.Join(unknown, ", ")))
	}
	return cats, nil
}

func (s *ReviewService) publishAggregate(ctx context.Context, agg domain.Aggregate) {
	if err := s.publisher.PublishAggregateUpdated(ctx, agg); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish content.aggregate_updated event",
			slog.String("content_id", agg.ContentID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ReviewService) logPublishError(ctx context.Context, eventType, reviewID string, err error) {
	s.logger.ErrorContext(ctx, "failed to publish "+eventType+" event",
		slog.String("review_id", reviewID),
		slog.String("error", err.Error()),
	)
}
