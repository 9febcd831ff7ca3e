package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strconv"

	"github.com/stretchr/testify/mock"

	"github.com/wokeornotsite/wokeornot-sub000/internal/domain"
	"github.com/wokeornotsite/wokeornot-sub000/internal/repository"
	apperrors "github.com/wokeornotsite/wokeornot-sub000/pkg/errors"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/pagination"
)

// ---------------------------------------------------------------------------
// in-memory store
// ---------------------------------------------------------------------------

type memReview struct {
	review    domain.Review
	contentID *string
}

type memState struct {
	contents  map[string]domain.Content
	scores    map[string][]domain.CategoryTally
	reviews   map[string]memReview
	reactions map[string]map[string]domain.ReactionType
}

func (st memState) clone() memState {
	c := memState{
		contents:  make(map[string]domain.Content, len(st.contents)),
		scores:    make(map[string][]domain.CategoryTally, len(st.scores)),
		reviews:   make(map[string]memReview, len(st.reviews)),
		reactions: make(map[string]map[string]domain.ReactionType, len(st.reactions)),
	}
	for k, v := range st.contents {
		c.contents[k] = v
	}
	for k, v := range st.scores {
		c.scores[k] = append([]domain.CategoryTally(nil), v...)
	}
	for k, v := range st.reviews {
		v.review.Categories = append([]domain.Category(nil), v.review.Categories...)
		c.reviews[k] = v
	}
	for k, v := range st.reactions {
		m := make(map[string]domain.ReactionType, len(v))
		for u, t := range v {
			m[u] = t
		}
		c.reactions[k] = m
	}
	return c
}

// memStore implements repository.Store in memory. InTx restores the state
// captured before fn when fn fails.
type memStore struct {
	memState
	categories []domain.Category
	fail       map[string]error

	commits   int
	rollbacks int
	// writes records row locks and review writes in the order they happen,
	// as "content:<id>" and "review:<id>".
	writes []string
}

func newMemStore() *memStore {
	return &memStore{
		memState: memState{
			contents:  map[string]domain.Content{},
			scores:    map[string][]domain.CategoryTally{},
			reviews:   map[string]memReview{},
			reactions: map[string]map[string]domain.ReactionType{},
		},
		categories: []domain.Category{
			{ID: "cat-a", Name: "Category A"},
			{ID: "cat-b", Name: "Category B"},
			{ID: "cat-c", Name: "Category C"},
		},
		fail: map[string]error{},
	}
}

func (s *memStore) failOn(op string, err error) { s.fail[op] = err }

func (s *memStore) err(op string) error { return s.fail[op] }

func (s *memStore) Repos() repository.Repositories {
	return repository.Repositories{
		Contents:       memContents{s},
		Categories:     memCategories{s},
		CategoryScores: memScores{s},
		Reviews:        memReviews{s},
		Reactions:      memReactions{s},
	}
}

func (s *memStore) InTx(_ context.Context, fn func(repository.Repositories) error) error {
	snapshot := s.memState.clone()
	if err := fn(s.Repos()); err != nil {
		s.memState = snapshot
		s.rollbacks++
		return err
	}
	s.commits++
	return nil
}

// addContent stores a content item with the given id.
func (s *memStore) addContent(id string) domain.Content {
	c := domain.Content{ID: id, ExternalID: int64(len(s.contents) + 1), Kind: domain.KindMovie, Title: "Title " + id}
	s.contents[id] = c
	return c
}

// addRawReview stores a review pointing at contentID exactly as given.
func (s *memStore) addRawReview(id string, contentID *string) {
	s.reviews[id] = memReview{review: domain.Review{ID: id}, contentID: contentID}
}

type memContents struct{ s *memStore }

func (r memContents) Create(_ context.Context, c *domain.Content) error {
	if err := r.s.err("Contents.Create"); err != nil {
		return err
	}
	for _, existing := range r.s.contents {
		if existing.ExternalID == c.ExternalID && existing.Kind == c.Kind {
			return apperrors.AlreadyExists("content", "external_id", strconv.FormatInt(c.ExternalID, 10))
		}
	}
	r.s.contents[c.ID] = *c
	return nil
}

func (r memContents) Upsert(_ context.Context, c *domain.Content) (*domain.Content, error) {
	if err := r.s.err("Contents.Upsert"); err != nil {
		return nil, err
	}
	for _, existing := range r.s.contents {
		if existing.ExternalID == c.ExternalID && existing.Kind == c.Kind {
			out := existing
			return &out, nil
		}
	}
	r.s.contents[c.ID] = *c
	out := *c
	return &out, nil
}

func (r memContents) GetByID(_ context.Context, id string) (*domain.Content, error) {
	if err := r.s.err("Contents.GetByID"); err != nil {
		return nil, err
	}
	c, ok := r.s.contents[id]
	if !ok {
		return nil, apperrors.NotFound("content", id)
	}
	return &c, nil
}

func (r memContents) GetByExternalID(_ context.Context, kind domain.ContentKind, externalID int64) (*domain.Content, error) {
	if err := r.s.err("Contents.GetByExternalID"); err != nil {
		return nil, err
	}
	for _, c := range r.s.contents {
		if c.Kind == kind && c.ExternalID == externalID {
			out := c
			return &out, nil
		}
	}
	return nil, apperrors.NotFound("content", strconv.FormatInt(externalID, 10))
}

func (r memContents) LockByID(ctx context.Context, id string) (*domain.Content, error) {
	c, err := r.GetByID(ctx, id)
	if err == nil {
		r.s.writes = append(r.s.writes, "content:"+id)
	}
	return c, err
}

func (r memContents) UpdateAggregate(_ context.Context, id string, score float64, reviewCount int) error {
	if err := r.s.err("Contents.UpdateAggregate"); err != nil {
		return err
	}
	c, ok := r.s.contents[id]
	if !ok {
		return apperrors.NotFound("content", id)
	}
	c.AggregateScore = score
	c.ReviewCount = reviewCount
	r.s.contents[id] = c
	return nil
}

func (r memContents) Delete(_ context.Context, id string) error {
	if _, ok := r.s.contents[id]; !ok {
		return apperrors.NotFound("content", id)
	}
	for rid, rv := range r.s.reviews {
		if rv.contentID != nil && *rv.contentID == id {
			delete(r.s.reviews, rid)
			delete(r.s.reactions, rid)
		}
	}
	delete(r.s.scores, id)
	delete(r.s.contents, id)
	return nil
}

func (r memContents) ExistingIDs(_ context.Context, ids []string) (map[string]struct{}, error) {
	if err := r.s.err("Contents.ExistingIDs"); err != nil {
		return nil, err
	}
	out := map[string]struct{}{}
	for _, id := range ids {
		if _, ok := r.s.contents[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

type memCategories struct{ s *memStore }

func (r memCategories) List(context.Context) ([]domain.Category, error) {
	return append([]domain.Category{}, r.s.categories...), nil
}

func (r memCategories) GetByIDs(_ context.Context, ids []string) ([]domain.Category, error) {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := []domain.Category{}
	for _, c := range r.s.categories {
		if want[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}

type memScores struct{ s *memStore }

func (r memScores) ListByContent(_ context.Context, contentID string) ([]domain.CategoryScore, error) {
	out := []domain.CategoryScore{}
	for _, t := range r.s.scores[contentID] {
		out = append(out, domain.CategoryScore{CategoryID: t.CategoryID, Count: t.Count, Percentage: t.Percentage})
	}
	return out, nil
}

func (r memScores) Replace(_ context.Context, contentID string, tallies []domain.CategoryTally) error {
	if err := r.s.err("CategoryScores.Replace"); err != nil {
		return err
	}
	r.s.scores[contentID] = append([]domain.CategoryTally(nil), tallies...)
	return nil
}

type memReviews struct{ s *memStore }

func (r memReviews) Create(_ context.Context, rv *domain.Review) error {
	if err := r.s.err("Reviews.Create"); err != nil {
		return err
	}
	if rv.UserID != nil {
		for _, existing := range r.s.reviews {
			if existing.review.UserID != nil && *existing.review.UserID == *rv.UserID &&
				existing.contentID != nil && *existing.contentID == rv.ContentID {
				return domain.DuplicateReviewError()
			}
		}
	}
	cid := rv.ContentID
	stored := *rv
	stored.Categories = append([]domain.Category{}, rv.Categories...)
	r.s.reviews[rv.ID] = memReview{review: stored, contentID: &cid}
	return nil
}

func (r memReviews) GetByID(_ context.Context, id string) (*domain.Review, error) {
	if err := r.s.err("Reviews.GetByID"); err != nil {
		return nil, err
	}
	rv, ok := r.s.reviews[id]
	if !ok {
		return nil, apperrors.NotFound("review", id)
	}
	out := r.materialize(rv)
	return &out, nil
}

func (r memReviews) materialize(rv memReview) domain.Review {
	out := rv.review
	out.Categories = append([]domain.Category{}, rv.review.Categories...)
	if rv.contentID != nil {
		out.ContentID = *rv.contentID
	}
	for _, t := range r.s.reactions[rv.review.ID] {
		if t == domain.ReactionLike {
			out.Likes++
		} else {
			out.Dislikes++
		}
	}
	return out
}

func (r memReviews) Update(_ context.Context, rv *domain.Review) error {
	if err := r.s.err("Reviews.Update"); err != nil {
		return err
	}
	existing, ok := r.s.reviews[rv.ID]
	if !ok {
		return apperrors.NotFound("review", rv.ID)
	}
	existing.review.Rating = rv.Rating
	existing.review.Text = rv.Text
	existing.review.UpdatedAt = rv.UpdatedAt
	existing.review.Categories = append([]domain.Category{}, rv.Categories...)
	r.s.reviews[rv.ID] = existing
	r.s.writes = append(r.s.writes, "review:"+rv.ID)
	return nil
}

func (r memReviews) Delete(_ context.Context, id string) error {
	if err := r.s.err("Reviews.Delete"); err != nil {
		return err
	}
	if _, ok := r.s.reviews[id]; !ok {
		return apperrors.NotFound("review", id)
	}
	delete(r.s.reviews, id)
	delete(r.s.reactions, id)
	r.s.writes = append(r.s.writes, "review:"+id)
	return nil
}

func (r memReviews) ExistsForUser(_ context.Context, userID, contentID string) (bool, error) {
	for _, rv := range r.s.reviews {
		if rv.review.UserID != nil && *rv.review.UserID == userID && rv.contentID != nil && *rv.contentID == contentID {
			return true, nil
		}
	}
	return false, nil
}

func (r memReviews) forContent(contentID string) []domain.Review {
	var out []domain.Review
	for _, rv := range r.s.reviews {
		if rv.contentID != nil && *rv.contentID == contentID {
			out = append(out, r.materialize(rv))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r memReviews) ListByContent(_ context.Context, contentID string, p pagination.Params) ([]domain.Review, int, error) {
	all := r.forContent(contentID)
	start := min(p.Offset(), len(all))
	end := min(start+p.Limit(), len(all))
	return append([]domain.Review{}, all[start:end]...), len(all), nil
}

func (r memReviews) RatingStats(_ context.Context, contentID string) (domain.RatingStats, error) {
	if err := r.s.err("Reviews.RatingStats"); err != nil {
		return domain.RatingStats{}, err
	}
	var st domain.RatingStats
	for _, rv := range r.forContent(contentID) {
		st.Count++
		st.Sum += int64(rv.Rating)
	}
	return st, nil
}

func (r memReviews) CategoryCounts(_ context.Context, contentID string) (map[string]int, error) {
	out := map[string]int{}
	for _, rv := range r.forContent(contentID) {
		for _, c := range rv.Categories {
			out[c.ID]++
		}
	}
	return out, nil
}

func (r memReviews) ScanBatch(_ context.Context, afterID string, limit int) ([]domain.ReviewRef, error) {
	if err := r.s.err("Reviews.ScanBatch"); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(r.s.reviews))
	for id := range r.s.reviews {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	refs := make([]domain.ReviewRef, len(ids))
	for i, id := range ids {
		refs[i] = domain.ReviewRef{ID: id, ContentID: r.s.reviews[id].contentID}
	}
	return refs, nil
}

func (r memReviews) RefsByIDs(_ context.Context, ids []string) ([]domain.ReviewRef, error) {
	if err := r.s.err("Reviews.RefsByIDs"); err != nil {
		return nil, err
	}
	refs := []domain.ReviewRef{}
	for _, id := range ids {
		if rv, ok := r.s.reviews[id]; ok {
			refs = append(refs, domain.ReviewRef{ID: id, ContentID: rv.contentID})
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs, nil
}

func (r memReviews) DeleteByIDs(_ context.Context, ids []string) ([]domain.ReviewRef, error) {
	if err := r.s.err("Reviews.DeleteByIDs"); err != nil {
		return nil, err
	}
	refs := []domain.ReviewRef{}
	for _, id := range ids {
		rv, ok := r.s.reviews[id]
		if !ok {
			continue
		}
		refs = append(refs, domain.ReviewRef{ID: id, ContentID: rv.contentID})
		delete(r.s.reviews, id)
		delete(r.s.reactions, id)
		r.s.writes = append(r.s.writes, "review:"+id)
	}
	return refs, nil
}

type memReactions struct{ s *memStore }

func (r memReactions) GetForUpdate(_ context.Context, reviewID, userID string) (*domain.ReactionType, error) {
	t, ok := r.s.reactions[reviewID][userID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r memReactions) Upsert(_ context.Context, reviewID, userID string, t domain.ReactionType) error {
	if err := r.s.err("Reactions.Upsert"); err != nil {
		return err
	}
	if r.s.reactions[reviewID] == nil {
		r.s.reactions[reviewID] = map[string]domain.ReactionType{}
	}
	r.s.reactions[reviewID][userID] = t
	return nil
}

func (r memReactions) Delete(_ context.Context, reviewID, userID string) error {
	delete(r.s.reactions[reviewID], userID)
	return nil
}

func (r memReactions) Counts(_ context.Context, reviewID string) (int, int, error) {
	likes, dislikes := 0, 0
	for _, t := range r.s.reactions[reviewID] {
		if t == domain.ReactionLike {
			likes++
		} else {
			dislikes++
		}
	}
	return likes, dislikes, nil
}

// ---------------------------------------------------------------------------
// mocks
// ---------------------------------------------------------------------------

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishReviewCreated(ctx context.Context, r *domain.Review) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockPublisher) PublishReviewUpdated(ctx context.Context, r *domain.Review) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockPublisher) PublishReviewDeleted(ctx context.Context, r *domain.Review, deletedBy string) error {
	return m.Called(ctx, r, deletedBy).Error(0)
}

func (m *mockPublisher) PublishAggregateUpdated(ctx context.Context, agg domain.Aggregate) error {
	return m.Called(ctx, agg).Error(0)
}

func (m *mockPublisher) PublishReactionToggled(ctx context.Context, reviewID, userID string, s domain.ReactionSummary) error {
	return m.Called(ctx, reviewID, userID, s).Error(0)
}

// newQuietPublisher accepts every event.
func newQuietPublisher() *mockPublisher {
	p := &mockPublisher{}
	p.On("PublishReviewCreated", mock.Anything, mock.Anything).Return(nil).Maybe()
	p.On("PublishReviewUpdated", mock.Anything, mock.Anything).Return(nil).Maybe()
	p.On("PublishReviewDeleted", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	p.On("PublishAggregateUpdated", mock.Anything, mock.Anything).Return(nil).Maybe()
	p.On("PublishReactionToggled", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return p
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) Lookup(ctx context.Context, kind domain.ContentKind, externalID int64) (*domain.CatalogEntry, error) {
	args := m.Called(ctx, kind, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CatalogEntry), args.Error(1)
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

var errStorage = errors.New("storage unavailable")

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func user(id string) *domain.CallerIdentity {
	return &domain.CallerIdentity{ID: id, Role: domain.RoleUser}
}

func admin(id string) *domain.CallerIdentity {
	return &domain.CallerIdentity{ID: id, Role: domain.RoleAdmin}
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }
