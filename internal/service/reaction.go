package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wokeornotsite/wokeornot-sub000/internal/domain"
	"github.com/wokeornotsite/wokeornot-sub000/internal/event"
	"github.com/wokeornotsite/wokeornot-sub000/internal/repository"
	apperrors "github.com/wokeornotsite/wokeornot-sub000/pkg/errors"
)

// ReactionService toggles likes and dislikes on reviews. Reactions never
// change a content item's aggregate.
type ReactionService struct {
	store     repository.Store
	publisher event.Publisher
	logger    *slog.Logger
}

// NewReactionService creates a new reaction service.
func NewReactionService(store repository.Store, publisher event.Publisher, logger *slog.Logger) *ReactionService {
	return &ReactionService{store: store, publisher: publisher, logger: logger}
}

// Toggle applies reaction for the caller: repeating the held reaction
// clears it, anything else sets it. Authors may react to their own reviews.
func (s *ReactionService) Toggle(ctx context.Context, caller *domain.CallerIdentity, reviewID string, reaction domain.ReactionType) (*domain.ReactionSummary, error) {
	if caller == nil {
		return nil, apperrors.Unauthorized("authentication required")
	}
	if err := checkID("review", reviewID); err != nil {
		return nil, err
	}

	summary := &domain.ReactionSummary{}
	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Reviews.GetByID(ctx, reviewID); err != nil {
			return err
		}

		current, err := repos.Reactions.GetForUpdate(ctx, reviewID, caller.ID)
		if err != nil {
			return err
		}

		next := domain.ToggleReaction(current, reaction)
		if next == nil {
			err = repos.Reactions.Delete(ctx, reviewID, caller.ID)
		} else {
			err = repos.Reactions.Upsert(ctx, reviewID, caller.ID, *next)
		}
		if err != nil {
			return err
		}

		summary.UserReaction = next
		summary.Likes, summary.Dislikes, err = repos.Reactions.Counts(ctx, reviewID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("toggle reaction: %w", err)
	}

	if err := s.publisher.PublishReactionToggled(ctx, reviewID, caller.ID, *summary); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.reaction_toggled event",
			slog.String("review_id", reviewID),
			slog.String("error", err.Error()),
		)
	}
	return summary, nil
}
