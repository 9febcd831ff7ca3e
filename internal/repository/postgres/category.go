package postgres

import (
	"context"
	"fmt"

	"github.com/wokeornotsite/wokeornot-sub000/internal/domain"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/database"
)

// CategoryRepository implements repository.CategoryRepository.
type CategoryRepository struct {
	pool database.DBTX
}

// NewCategoryRepository creates a PostgreSQL-backed category repository.
func NewCategoryRepository(pool database.DBTX) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// List returns every category in display order.
func (r *CategoryRepository) List(ctx context.Context) (_ []domain.Category, err error) {
	query := `SELECT id, name, description FROM categories ORDER BY sort_order, name`

	ctx, end := database.TraceQuery(ctx, "ListCategories", query)
	defer func() { end(err) }()

	return r.query(ctx, query)
}

// GetByIDs returns the categories whose id is in ids. Unknown ids are
// silently absent from the result.
func (r *CategoryRepository) GetByIDs(ctx context.Context, ids []string) (_ []domain.Category, err error) {
	if len(ids) == 0 {
		return []domain.Category{}, nil
	}
	query := `SELECT id, name, description FROM categories WHERE id = ANY($1) ORDER BY sort_order, name`

	ctx, end := database.TraceQuery(ctx, "GetCategoriesByIDs", query)
	defer func() { end(err) }()

	return r.query(ctx, query, ids)
}

func (r *CategoryRepository) query(ctx context.Context, query string, args ...any) ([]domain.Category, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

// CategoryScoreRepository implements repository.CategoryScoreRepository.
type CategoryScoreRepository struct {
	pool database.DBTX
}

// NewCategoryScoreRepository creates a PostgreSQL-backed score repository.
func NewCategoryScoreRepository(pool database.DBTX) *CategoryScoreRepository {
	return &CategoryScoreRepository{pool: pool}
}

// ListByContent returns the breakdown for contentID, largest first.
func (r *CategoryScoreRepository) ListByContent(ctx context.Context, contentID string) (_ []domain.CategoryScore, err error) {
	query := `
		SELECT s.category_id, c.name, s.count, s.percentage
		FROM category_scores s
		JOIN categories c ON c.id = s.category_id
		WHERE s.content_id = $1
		ORDER BY s.count DESC, c.sort_order`

	ctx, end := database.TraceQuery(ctx, "ListCategoryScores", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, contentID)
	if err != nil {
		return nil, fmt.Errorf("list category scores: %w", err)
	}
	defer rows.Close()

	scores := []domain.CategoryScore{}
	for rows.Next() {
		var s domain.CategoryScore
		if err := rows.Scan(&s.CategoryID, &s.CategoryName, &s.Count, &s.Percentage); err != nil {
			return nil, fmt.Errorf("scan category score: %w", err)
		}
		scores = append(scores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category scores: %w", err)
	}
	return scores, nil
}

// Replace swaps the whole breakdown of contentID for tallies.
func (r *CategoryScoreRepository) Replace(ctx context.Context, contentID string, tallies []domain.CategoryTally) (err error) {
	insert := `
		INSERT INTO category_scores (content_id, category_id, count, percentage, updated_at)
		SELECT $1, t.category_id, t.count, t.percentage, NOW()
		FROM unnest($2::text[], $3::int[], $4::int[]) AS t(category_id, count, percentage)`

	ctx, end := database.TraceQuery(ctx, "ReplaceCategoryScores", insert)
	defer func() { end(err) }()

	if _, err = r.pool.Exec(ctx, `DELETE FROM category_scores WHERE content_id = $1`, contentID); err != nil {
		return fmt.Errorf("clear category scores: %w", err)
	}
	if len(tallies) == 0 {
		return nil
	}

	ids := make([]string, len(tallies))
	counts := make([]int32, len(tallies))
	percentages := make([]int32, len(tallies))
	for i, t := range tallies {
		ids[i] = t.CategoryID
		counts[i] = int32(t.Count)
		percentages[i] = int32(t.Percentage)
	}

	if _, err = r.pool.Exec(ctx, insert, contentID, ids, counts, percentages); err != nil {
		return fmt.Errorf("insert category scores: %w", err)
	}
	return nil
}
