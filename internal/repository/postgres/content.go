package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/wokeornotsite/wokeornot-sub000/internal/domain"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/database"
	apperrors "github.com/wokeornotsite/wokeornot-sub000/pkg/errors"
)

const contentColumns = `id, external_id, kind, title, slug, overview, poster_path, release_date,
		       aggregate_score, review_count, created_at, updated_at`

// ContentRepository implements repository.ContentRepository.
type ContentRepository struct {
	pool database.DBTX
}

// NewContentRepository creates a PostgreSQL-backed content repository.
func NewContentRepository(pool database.DBTX) *ContentRepository {
	return &ContentRepository{pool: pool}
}

// Create inserts a new content item.
func (r *ContentRepository) Create(ctx context.Context, c *domain.Content) (err error) {
	query := `
		INSERT INTO contents (id, external_id, kind, title, slug, overview, poster_path, release_date,
		                      aggregate_score, review_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0, $9, $10)`

	ctx, end := database.TraceQuery(ctx, "CreateContent", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		c.ID, c.ExternalID, string(c.Kind), c.Title, c.Slug, c.Overview, c.PosterPath, c.ReleaseDate,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("content", string(c.Kind)+" external_id", strconv.FormatInt(c.ExternalID, 10))
		}
		return fmt.Errorf("insert content: %w", err)
	}
	return nil
}

// Upsert inserts c unless (external_id, kind) exists, and returns the
// stored row either way. The no-op DO UPDATE makes RETURNING yield the
// existing row on conflict.
func (r *ContentRepository) Upsert(ctx context.Context, c *domain.Content) (_ *domain.Content, err error) {
	query := `
		INSERT INTO contents (id, external_id, kind, title, slug, overview, poster_path, release_date,
		                      aggregate_score, review_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0, $9, $10)
		ON CONFLICT (external_id, kind) DO UPDATE SET external_id = EXCLUDED.external_id
		RETURNING ` + contentColumns

	ctx, end := database.TraceQuery(ctx, "UpsertContent", query)
	defer func() { end(err) }()

	row := r.pool.QueryRow(ctx, query,
		c.ID, c.ExternalID, string(c.Kind), c.Title, c.Slug, c.Overview, c.PosterPath, c.ReleaseDate,
		c.CreatedAt, c.UpdatedAt,
	)
	stored, err := scanContent(row)
	if err != nil {
		return nil, fmt.Errorf("upsert content: %w", err)
	}
	return stored, nil
}

// GetByID returns the content item with id.
func (r *ContentRepository) GetByID(ctx context.Context, id string) (_ *domain.Content, err error) {
	query := `SELECT ` + contentColumns + ` FROM contents WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetContent", query)
	defer func() { end(err) }()

	return r.getOne(ctx, query, id)
}

// GetByExternalID looks a content item up by its catalog key.
func (r *ContentRepository) GetByExternalID(ctx context.Context, kind domain.ContentKind, externalID int64) (_ *domain.Content, err error) {
	query := `SELECT ` + contentColumns + ` FROM contents WHERE kind = $1 AND external_id = $2`

	ctx, end := database.TraceQuery(ctx, "GetContentByExternalID", query)
	defer func() { end(err) }()

	c, err := scanContent(r.pool.QueryRow(ctx, query, string(kind), externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("content", fmt.Sprintf("%s/%d", kind, externalID))
		}
		return nil, fmt.Errorf("get content by external id: %w", err)
	}
	return c, nil
}

// LockByID reads the row FOR UPDATE.
func (r *ContentRepository) LockByID(ctx context.Context, id string) (_ *domain.Content, err error) {
	query := `SELECT ` + contentColumns + ` FROM contents WHERE id = $1 FOR UPDATE`

	ctx, end := database.TraceQuery(ctx, "LockContent", query)
	defer func() { end(err) }()

	return r.getOne(ctx, query, id)
}

func (r *ContentRepository) getOne(ctx context.Context, query, id string) (*domain.Content, error) {
	c, err := scanContent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("content", id)
		}
		return nil, fmt.Errorf("get content: %w", err)
	}
	return c, nil
}

// UpdateAggregate writes the cached score and review count.
func (r *ContentRepository) UpdateAggregate(ctx context.Context, id string, score float64, reviewCount int) (err error) {
	query := `
		UPDATE contents
		SET aggregate_score = $2, review_count = $3, updated_at = NOW()
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "UpdateContentAggregate", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, id, score, reviewCount)
	if err != nil {
		return fmt.Errorf("update content aggregate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("content", id)
	}
	return nil
}

// Delete removes the content item's reviews, then the item itself. Reaction,
// tag and score rows go with them through ON DELETE CASCADE.
func (r *ContentRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM contents WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "DeleteContent", query)
	defer func() { end(err) }()

	if _, err = r.pool.Exec(ctx, `DELETE FROM reviews WHERE content_id = $1`, id); err != nil {
		return fmt.Errorf("delete content reviews: %w", err)
	}
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("content", id)
	}
	return nil
}

// ExistingIDs returns which of ids exist in contents.
func (r *ContentRepository) ExistingIDs(ctx context.Context, ids []string) (_ map[string]struct{}, err error) {
	found := make(map[string]struct{}, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	query := `SELECT id::text FROM contents WHERE id = ANY($1::uuid[])`

	ctx, end := database.TraceQuery(ctx, "ExistingContentIDs", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("query existing content ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan content id: %w", err)
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content ids: %w", err)
	}
	return found, nil
}

func scanContent(row pgx.Row) (*domain.Content, error) {
	var (
		c    domain.Content
		kind string
	)
	if err := row.Scan(
		&c.ID,
		&c.ExternalID,
		&kind,
		&c.Title,
		&c.Slug,
		&c.Overview,
		&c.PosterPath,
		&c.ReleaseDate,
		&c.AggregateScore,
		&c.ReviewCount,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.Kind = domain.ContentKind(kind)
	return &c, nil
}
