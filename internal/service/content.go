package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wokeornotsite/wokeornot-sub000/internal/domain"
	"github.com/wokeornotsite/wokeornot-sub000/internal/event"
	"github.com/wokeornotsite/wokeornot-sub000/internal/repository"
	apperrors "github.com/wokeornotsite/wokeornot-sub000/pkg/errors"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/slug"
)

// CatalogLookup fetches metadata for content not yet stored locally.
type CatalogLookup interface {
	Lookup(ctx context.Context, kind domain.ContentKind, externalID int64) (*domain.CatalogEntry, error)
}

// ContentService manages content items and the category catalogue.
type ContentService struct {
	store      repository.Store
	catalog    CatalogLookup
	aggregator *Aggregator
	publisher  event.Publisher
	logger     *slog.Logger
}

// NewContentService creates a new content service.
func NewContentService(store repository.Store, catalog CatalogLookup, aggregator *Aggregator, publisher event.Publisher, logger *slog.Logger) *ContentService {
	return &ContentService{
		store:      store,
		catalog:    catalog,
		aggregator: aggregator,
		publisher:  publisher,
		logger:     logger,
	}
}

// CreateContentInput holds the metadata of a manually created item.
type CreateContentInput struct {
	Kind        string
	ExternalID  int64
	Title       string
	Overview    string
	PosterPath  string
	ReleaseDate *time.Time
}

// EnsureContent returns the item stored under (kind, externalID), creating
// it from catalog metadata on first access. Concurrent first accesses
// converge on one row.
func (s *ContentService) EnsureContent(ctx context.Context, kind domain.ContentKind, externalID int64) (*domain.ContentDetail, error) {
	if externalID <= 0 {
		return nil, apperrors.InvalidInput("external id must be positive")
	}

	repos := s.store.Repos()
	c, err := repos.Contents.GetByExternalID(ctx, kind, externalID)
	if err == nil {
		return s.detail(ctx, repos, c)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("get content by external id: %w", err)
	}

	entry, err := s.catalog.Lookup(ctx, kind, externalID)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}

	now := time.Now().UTC()
	candidate := &domain.Content{
		ID:          uuid.New().String(),
		ExternalID:  externalID,
		Kind:        kind,
		Title:       entry.Title,
		Slug:        slug.Generate(entry.Title),
		Overview:    entry.Overview,
		PosterPath:  entry.PosterPath,
		ReleaseDate: entry.ReleaseDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	stored, err := repos.Contents.Upsert(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("upsert content: %w", err)
	}

	if stored.ID == candidate.ID {
		s.logger.InfoContext(ctx, "content created from catalog",
			slog.String("content_id", stored.ID),
			slog.String("kind", string(kind)),
			slog.Int64("external_id", externalID),
		)
	}
	return s.detail(ctx, repos, stored)
}

// GetContent returns an item with its category breakdown.
func (s *ContentService) GetContent(ctx context.Context, id string) (*domain.ContentDetail, error) {
	if err := checkID("content", id); err != nil {
		return nil, err
	}
	repos := s.store.Repos()
	c, err := repos.Contents.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get content: %w", err)
	}
	return s.detail(ctx, repos, c)
}

func (s *ContentService) detail(ctx context.Context, repos repository.Repositories, c *domain.Content) (*domain.ContentDetail, error) {
	scores, err := repos.CategoryScores.ListByContent(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("list category scores: %w", err)
	}
	return &domain.ContentDetail{Content: *c, Categories: scores}, nil
}

// CreateContent stores an item with operator-supplied metadata.
func (s *ContentService) CreateContent(ctx context.Context, input *CreateContentInput) (*domain.Content, error) {
	kind, ok := domain.ParseContentKind(input.Kind)
	if !ok {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid content kind %q, must be one of: movie, tv, kids", input.Kind))
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.InvalidInput("title is required")
	}
	if input.ExternalID <= 0 {
		return nil, apperrors.InvalidInput("external id must be positive")
	}

	now := time.Now().UTC()
	c := &domain.Content{
		ID:          uuid.New().String(),
		ExternalID:  input.ExternalID,
		Kind:        kind,
		Title:       title,
		Slug:        slug.Generate(title),
		Overview:    input.Overview,
		PosterPath:  input.PosterPath,
		ReleaseDate: input.ReleaseDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Repos().Contents.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create content: %w", err)
	}

	s.logger.InfoContext(ctx, "content created",
		slog.String("content_id", c.ID),
		slog.String("kind", string(kind)),
		slog.Int64("external_id", c.ExternalID),
	)
	return c, nil
}

// DeleteContent removes an item together with its reviews.
func (s *ContentService) DeleteContent(ctx context.Context, id string) error {
	if err := checkID("content", id); err != nil {
		return err
	}
	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		return repos.Contents.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete content: %w", err)
	}

	s.logger.InfoContext(ctx, "content deleted", slog.String("content_id", id))
	return nil
}

// RecomputeContent rebuilds the aggregate of one item on demand.
func (s *ContentService) RecomputeContent(ctx context.Context, id string) (*domain.ContentDetail, error) {
	if err := checkID("content", id); err != nil {
		return nil, err
	}

	var agg domain.Aggregate
	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		var err error
		agg, err = s.aggregator.Recompute(ctx, repos, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("recompute content: %w", err)
	}

	if err := s.publisher.PublishAggregateUpdated(ctx, agg); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish content.aggregate_updated event",
			slog.String("content_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "content aggregate recomputed",
		slog.String("content_id", id),
		slog.Int("review_count", agg.ReviewCount),
	)
	return s.GetContent(ctx, id)
}

// ListCategories returns every category.
func (s *ContentService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	cats, err := s.store.Repos().Categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}
