package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/wokeornotsite/wokeornot-sub000/internal/repository"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/database"
)

// Store implements repository.Store on PostgreSQL.
type Store struct {
	db database.DBTX
}

// NewStore creates a Store over a pool (or pgxmock in tests).
func NewStore(db database.DBTX) *Store {
	return &Store{db: db}
}

// Repos returns repositories that run outside any explicit transaction.
func (s *Store) Repos() repository.Repositories {
	return newRepositories(s.db)
}

// InTx runs fn inside one transaction.
func (s *Store) InTx(ctx context.Context, fn func(repository.Repositories) error) error {
	return database.InTx(ctx, s.db, func(tx pgx.Tx) error {
		return fn(newRepositories(tx))
	})
}

func newRepositories(db database.DBTX) repository.Repositories {
	return repository.Repositories{
		Contents:       NewContentRepository(db),
		Categories:     NewCategoryRepository(db),
		CategoryScores: NewCategoryScoreRepository(db),
		Reviews:        NewReviewRepository(db),
		Reactions:      NewReactionRepository(db),
	}
}

// isUniqueViolation checks for SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}

// isForeignKeyViolation checks for SQLSTATE 23503.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23503")
}
