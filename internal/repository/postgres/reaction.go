package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wokeornotsite/wokeornot-sub000/internal/domain"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/database"
)

// ReactionRepository implements repository.ReactionRepository.
type ReactionRepository struct {
	pool database.DBTX
}

// NewReactionRepository creates a PostgreSQL-backed reaction repository.
func NewReactionRepository(pool database.DBTX) *ReactionRepository {
	return &ReactionRepository{pool: pool}
}

// GetForUpdate returns the caller's reaction, or nil when there is none.
func (r *ReactionRepository) GetForUpdate(ctx context.Context, reviewID, userID string) (_ *domain.ReactionType, err error) {
	query := `SELECT type FROM review_reactions WHERE review_id = $1 AND user_id = $2 FOR UPDATE`

	ctx, end := database.TraceQuery(ctx, "GetReactionForUpdate", query)
	defer func() { end(err) }()

	var t string
	err = r.pool.QueryRow(ctx, query, reviewID, userID).Scan(&t)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reaction: %w", err)
	}
	rt := domain.ReactionType(t)
	return &rt, nil
}

// Upsert sets the caller's reaction.
func (r *ReactionRepository) Upsert(ctx context.Context, reviewID, userID string, t domain.ReactionType) (err error) {
	query := `
		INSERT INTO review_reactions (review_id, user_id, type)
		VALUES ($1, $2, $3)
		ON CONFLICT (review_id, user_id) DO UPDATE SET type = EXCLUDED.type, updated_at = NOW()`

	ctx, end := database.TraceQuery(ctx, "UpsertReaction", query)
	defer func() { end(err) }()

	if _, err = r.pool.Exec(ctx, query, reviewID, userID, string(t)); err != nil {
		return fmt.Errorf("upsert reaction: %w", err)
	}
	return nil
}

// Delete clears the caller's reaction. Clearing a missing reaction is a no-op.
func (r *ReactionRepository) Delete(ctx context.Context, reviewID, userID string) (err error) {
	query := `DELETE FROM review_reactions WHERE review_id = $1 AND user_id = $2`

	ctx, end := database.TraceQuery(ctx, "DeleteReaction", query)
	defer func() { end(err) }()

	if _, err = r.pool.Exec(ctx, query, reviewID, userID); err != nil {
		return fmt.Errorf("delete reaction: %w", err)
	}
	return nil
}

// Counts returns like and dislike totals for a review.
func (r *ReactionRepository) Counts(ctx context.Context, reviewID string) (likes, dislikes int, err error) {
	query := `
		SELECT COUNT(*) FILTER (WHERE type = 'like'),
		       COUNT(*) FILTER (WHERE type = 'dislike')
		FROM review_reactions
		WHERE review_id = $1`

	ctx, end := database.TraceQuery(ctx, "CountReactions", query)
	defer func() { end(err) }()

	if err = r.pool.QueryRow(ctx, query, reviewID).Scan(&likes, &dislikes); err != nil {
		return 0, 0, fmt.Errorf("count reactions: %w", err)
	}
	return likes, dislikes, nil
}
