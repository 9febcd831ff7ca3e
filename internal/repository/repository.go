package repository

import (
	"context"

	"github.com/wokeornotsite/wokeornot-sub000/internal/domain"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/pagination"
)

// ContentRepository persists content items.
type ContentRepository interface {
	// Create inserts a content item. A clash on (external_id, kind) returns
	// an AlreadyExists error.
	Create(ctx context.Context, c *domain.Content) error

	// Upsert inserts c or, if (external_id, kind) already exists, returns the
	// stored row untouched.
	Upsert(ctx context.Context, c *domain.Content) (*domain.Content, error)

	GetByID(ctx context.Context, id string) (*domain.Content, error)
	GetByExternalID(ctx context.Context, kind domain.ContentKind, externalID int64) (*domain.Content, error)

	// LockByID reads the row with SELECT ... FOR UPDATE. Only meaningful
	// inside a transaction.
	LockByID(ctx context.Context, id string) (*domain.Content, error)

	UpdateAggregate(ctx context.Context, id string, score float64, reviewCount int) error

	// Delete removes the content item and every review that references it.
	Delete(ctx context.Context, id string) error

	// ExistingIDs returns the subset of ids that exist. Every id must be a
	// well-formed UUID.
	ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error)
}

// CategoryRepository reads the category catalogue.
type CategoryRepository interface {
	List(ctx context.Context) ([]domain.Category, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Category, error)
}

// CategoryScoreRepository stores the derived per-category breakdown.
type CategoryScoreRepository interface {
	ListByContent(ctx context.Context, contentID string) ([]domain.CategoryScore, error)

	// Replace deletes every score row of contentID and writes tallies.
	Replace(ctx context.Context, contentID string, tallies []domain.CategoryTally) error
}

// ReviewRepository persists reviews and their category tags.
type ReviewRepository interface {
	// Create inserts r and its category links. A second review by the same
	// user for the same content returns domain.ErrDuplicateReview.
	Create(ctx context.Context, r *domain.Review) error

	// GetByID returns the review with categories and reaction counts.
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// Update writes rating, text and the category set of r.
	Update(ctx context.Context, r *domain.Review) error

	Delete(ctx context.Context, id string) error

	ExistsForUser(ctx context.Context, userID, contentID string) (bool, error)

	// ListByContent returns a newest-first page and the total count.
	ListByContent(ctx context.Context, contentID string, p pagination.Params) ([]domain.Review, int, error)

	// RatingStats returns the count and sum of ratings for contentID.
	RatingStats(ctx context.Context, contentID string) (domain.RatingStats, error)

	// CategoryCounts returns, per category, how many reviews of contentID
	// carry it.
	CategoryCounts(ctx context.Context, contentID string) (map[string]int, error)

	// ScanBatch returns up to limit reviews with id > afterID, ordered by id.
	ScanBatch(ctx context.Context, afterID string, limit int) ([]domain.ReviewRef, error)

	// RefsByIDs returns what each existing review among ids references,
	// ordered by id. It takes no locks.
	RefsByIDs(ctx context.Context, ids []string) ([]domain.ReviewRef, error)

	// DeleteByIDs deletes exactly ids and returns the content ids the
	// deleted rows referenced.
	DeleteByIDs(ctx context.Context, ids []string) ([]domain.ReviewRef, error)
}

// ReactionRepository persists per-user reactions to reviews.
type ReactionRepository interface {
	// GetForUpdate returns the caller's current reaction, locking the row.
	// nil means no reaction.
	GetForUpdate(ctx context.Context, reviewID, userID string) (*domain.ReactionType, error)
	Upsert(ctx context.Context, reviewID, userID string, t domain.ReactionType) error
	Delete(ctx context.Context, reviewID, userID string) error
	Counts(ctx context.Context, reviewID string) (likes, dislikes int, err error)
}

// Repositories groups every repository bound to one connection or
// transaction.
type Repositories struct {
	Contents       ContentRepository
	Categories     CategoryRepository
	CategoryScores CategoryScoreRepository
	Reviews        ReviewRepository
	Reactions      ReactionRepository
}

// Store hands out repositories and runs units of work.
type Store interface {
	// Repos returns repositories that run each statement on its own.
	Repos() Repositories

	// InTx runs fn with repositories bound to a single transaction. The
	// transaction commits when fn returns nil.
	InTx(ctx context.Context, fn func(Repositories) error) error
}
