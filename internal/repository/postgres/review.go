package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wokeornotsite/wokeornot-sub000/internal/domain"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/database"
	apperrors "github.com/wokeornotsite/wokeornot-sub000/pkg/errors"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/pagination"
)

const reviewSelect = `
		SELECT r.id::text, r.content_id, r.user_id, r.guest_name, r.rating, r.text,
		       r.created_at, r.updated_at,
		       COUNT(rr.review_id) FILTER (WHERE rr.type = 'like'),
		       COUNT(rr.review_id) FILTER (WHERE rr.type = 'dislike')
		FROM reviews r
		LEFT JOIN review_reactions rr ON rr.review_id = r.id`

// ReviewRepository implements repository.ReviewRepository.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts the review and links its categories.
func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) (err error) {
	query := `
		INSERT INTO reviews (id, content_id, user_id, guest_name, rating, text, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	ctx, end := database.TraceQuery(ctx, "CreateReview", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		rv.ID, rv.ContentID, rv.UserID, rv.GuestName, rv.Rating, rv.Text, rv.CreatedAt, rv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.DuplicateReviewError()
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return r.linkCategories(ctx, rv.ID, rv.CategoryIDs())
}

// GetByID returns the review with its categories and reaction counts.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (_ *domain.Review, err error) {
	query := reviewSelect + `
		WHERE r.id = $1
		GROUP BY r.id`

	ctx, end := database.TraceQuery(ctx, "GetReview", query)
	defer func() { end(err) }()

	rv, err := scanReview(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("get review: %w", err)
	}

	reviews := []domain.Review{*rv}
	if err := r.attachCategories(ctx, reviews); err != nil {
		return nil, err
	}
	return &reviews[0], nil
}

// Update writes rating, text and updated_at, then replaces the category set.
func (r *ReviewRepository) Update(ctx context.Context, rv *domain.Review) (err error) {
	query := `
		UPDATE reviews
		SET rating = $2, text = $3, updated_at = $4
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "UpdateReview", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, rv.ID, rv.Rating, rv.Text, rv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("review", rv.ID)
	}

	if _, err = r.pool.Exec(ctx, `DELETE FROM review_categories WHERE review_id = $1`, rv.ID); err != nil {
		return fmt.Errorf("clear review categories: %w", err)
	}
	return r.linkCategories(ctx, rv.ID, rv.CategoryIDs())
}

// Delete removes the review. Categories and reactions cascade.
func (r *ReviewRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM reviews WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "DeleteReview", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("review", id)
	}
	return nil
}

// ExistsForUser reports whether userID already reviewed contentID.
func (r *ReviewRepository) ExistsForUser(ctx context.Context, userID, contentID string) (_ bool, err error) {
	query := `SELECT EXISTS (SELECT 1 FROM reviews WHERE user_id = $1 AND content_id = $2)`

	ctx, end := database.TraceQuery(ctx, "ReviewExistsForUser", query)
	defer func() { end(err) }()

	var exists bool
	if err = r.pool.QueryRow(ctx, query, userID, contentID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check existing review: %w", err)
	}
	return exists, nil
}

// ListByContent returns one page of reviews, newest first.
func (r *ReviewRepository) ListByContent(ctx context.Context, contentID string, p pagination.Params) (_ []domain.Review, _ int, err error) {
	query := reviewSelect + `
		WHERE r.content_id = $1
		GROUP BY r.id
		ORDER BY r.created_at DESC, r.id
		LIMIT $2 OFFSET $3`

	ctx, end := database.TraceQuery(ctx, "ListReviewsByContent", query)
	defer func() { end(err) }()

	var total int
	if err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reviews WHERE content_id = $1`, contentID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, contentID, p.Limit(), p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, *rv)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate reviews: %w", err)
	}
	rows.Close()

	if err = r.attachCategories(ctx, reviews); err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

// RatingStats returns the count and sum of ratings for contentID.
func (r *ReviewRepository) RatingStats(ctx context.Context, contentID string) (_ domain.RatingStats, err error) {
	query := `SELECT COUNT(*), COALESCE(SUM(rating), 0) FROM reviews WHERE content_id = $1`

	ctx, end := database.TraceQuery(ctx, "ReviewRatingStats", query)
	defer func() { end(err) }()

	var stats domain.RatingStats
	if err = r.pool.QueryRow(ctx, query, contentID).Scan(&stats.Count, &stats.Sum); err != nil {
		return domain.RatingStats{}, fmt.Errorf("rating stats: %w", err)
	}
	return stats, nil
}

// CategoryCounts tallies category tags over the reviews of contentID.
func (r *ReviewRepository) CategoryCounts(ctx context.Context, contentID string) (_ map[string]int, err error) {
	query := `
		SELECT rc.category_id, COUNT(*)
		FROM review_categories rc
		JOIN reviews r ON r.id = rc.review_id
		WHERE r.content_id = $1
		GROUP BY rc.category_id`

	ctx, end := database.TraceQuery(ctx, "ReviewCategoryCounts", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, contentID)
	if err != nil {
		return nil, fmt.Errorf("category counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category counts: %w", err)
	}
	return counts, nil
}

// ScanBatch pages through every review by id. An empty afterID starts at
// the beginning.
func (r *ReviewRepository) ScanBatch(ctx context.Context, afterID string, limit int) (_ []domain.ReviewRef, err error) {
	query := `SELECT id::text, content_id FROM reviews ORDER BY id LIMIT $1`
	args := []any{limit}
	if afterID != "" {
		query = `SELECT id::text, content_id FROM reviews WHERE id > $1::uuid ORDER BY id LIMIT $2`
		args = []any{afterID, limit}
	}

	ctx, end := database.TraceQuery(ctx, "ScanReviews", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scan reviews: %w", err)
	}
	return collectRefs(rows)
}

// RefsByIDs reads the content reference of each existing review in ids.
func (r *ReviewRepository) RefsByIDs(ctx context.Context, ids []string) (_ []domain.ReviewRef, err error) {
	if len(ids) == 0 {
		return []domain.ReviewRef{}, nil
	}
	query := `SELECT id::text, content_id FROM reviews WHERE id = ANY($1::uuid[]) ORDER BY id`

	ctx, end := database.TraceQuery(ctx, "GetReviewRefs", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get review refs: %w", err)
	}
	return collectRefs(rows)
}

// DeleteByIDs deletes exactly ids and returns what each row referenced.
func (r *ReviewRepository) DeleteByIDs(ctx context.Context, ids []string) (_ []domain.ReviewRef, err error) {
	if len(ids) == 0 {
		return []domain.ReviewRef{}, nil
	}
	query := `DELETE FROM reviews WHERE id = ANY($1::uuid[]) RETURNING id::text, content_id`

	ctx, end := database.TraceQuery(ctx, "DeleteReviewsByIDs", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("delete reviews: %w", err)
	}
	return collectRefs(rows)
}

func (r *ReviewRepository) linkCategories(ctx context.Context, reviewID string, categoryIDs []string) error {
	if len(categoryIDs) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO review_categories (review_id, category_id) SELECT $1, unnest($2::text[]) ON CONFLICT DO NOTHING`,
		reviewID, categoryIDs,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.InvalidInput("unknown category")
		}
		return fmt.Errorf("link review categories: %w", err)
	}
	return nil
}

// attachCategories fills Categories on every review with one query.
func (r *ReviewRepository) attachCategories(ctx context.Context, reviews []domain.Review) error {
	if len(reviews) == 0 {
		return nil
	}
	ids := make([]string, len(reviews))
	index := make(map[string]int, len(reviews))
	for i := range reviews {
		ids[i] = reviews[i].ID
		index[reviews[i].ID] = i
		reviews[i].Categories = []domain.Category{}
	}

	rows, err := r.pool.Query(ctx, `
		SELECT rc.review_id::text, c.id, c.name, c.description
		FROM review_categories rc
		JOIN categories c ON c.id = rc.category_id
		WHERE rc.review_id = ANY($1::uuid[])
		ORDER BY c.sort_order, c.name`, ids)
	if err != nil {
		return fmt.Errorf("query review categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			reviewID string
			c        domain.Category
		)
		if err := rows.Scan(&reviewID, &c.ID, &c.Name, &c.Description); err != nil {
			return fmt.Errorf("scan review category: %w", err)
		}
		if i, ok := index[reviewID]; ok {
			reviews[i].Categories = append(reviews[i].Categories, c)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate review categories: %w", err)
	}
	return nil
}

func scanReview(row pgx.Row) (*domain.Review, error) {
	var (
		rv        domain.Review
		contentID *string
	)
	if err := row.Scan(
		&rv.ID,
		&contentID,
		&rv.UserID,
		&rv.GuestName,
		&rv.Rating,
		&rv.Text,
		&rv.CreatedAt,
		&rv.UpdatedAt,
		&rv.Likes,
		&rv.Dislikes,
	); err != nil {
		return nil, err
	}
	if contentID != nil {
		rv.ContentID = *contentID
	}
	return &rv, nil
}

func collectRefs(rows pgx.Rows) ([]domain.ReviewRef, error) {
	defer rows.Close()

	refs := []domain.ReviewRef{}
	for rows.Next() {
		var ref domain.ReviewRef
		if err := rows.Scan(&ref.ID, &ref.ContentID); err != nil {
			return nil, fmt.Errorf("scan review ref: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review refs: %w", err)
	}
	return refs, nil
}
