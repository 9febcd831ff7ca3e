package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wokeornotsite/wokeornot-sub000/internal/domain"
	"github.com/wokeornotsite/wokeornot-sub000/internal/service"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/httputil"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/middleware"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/pagination"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/validator"
)

// ContentService is the content API the handlers call.
type ContentService interface {
	EnsureContent(ctx context.Context, kind domain.ContentKind, externalID int64) (*domain.ContentDetail, error)
	GetContent(ctx context.Context, id string) (*domain.ContentDetail, error)
	CreateContent(ctx context.Context, input *service.CreateContentInput) (*domain.Content, error)
	DeleteContent(ctx context.Context, id string) error
	RecomputeContent(ctx context.Context, id string) (*domain.ContentDetail, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

// ReviewService is the review API the handlers call.
type ReviewService interface {
	CreateReview(ctx context.Context, caller *domain.CallerIdentity, input *service.CreateReviewInput) (*domain.Review, error)
	GetReview(ctx context.Context, id string) (*domain.Review, error)
	ListReviews(ctx context.Context, contentID string, p pagination.Params) ([]domain.Review, int, error)
	UpdateReview(ctx context.Context, caller *domain.CallerIdentity, id string, input *service.UpdateReviewInput) (*domain.Review, error)
	DeleteReview(ctx context.Context, caller *domain.CallerIdentity, id string) error
}

// ReactionService toggles reactions on reviews.
type ReactionService interface {
	Toggle(ctx context.Context, caller *domain.CallerIdentity, reviewID string, reaction domain.ReactionType) (*domain.ReactionSummary, error)
}

// MaintenanceService runs the review scanner.
type MaintenanceService interface {
	Scan(ctx context.Context, opts domain.ScanOptions) (*domain.ScanReport, error)
	Purge(ctx context.Context, ids []string) (*domain.PurgeResult, error)
}

// callerFromContext converts verified token claims into the caller the
// services authorize against. nil means anonymous.
func callerFromContext(ctx context.Context) *domain.CallerIdentity {
	c := middleware.ClaimsFromContext(ctx)
	if c == nil {
		return nil
	}
	role := c.Role
	if role == "" {
		role = domain.RoleUser
	}
	return &domain.CallerIdentity{ID: c.UserID, Role: role, Email: c.Email}
}

// uuidParam reads a UUID path parameter in canonical form. On failure it
// writes a 400 and returns false.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id, ok := httputil.ParseUUID(w, r, name, chi.URLParam(r, name))
	if !ok {
		return "", false
	}
	return id.String(), true
}

// decode reads and validates a JSON body, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := validator.DecodeAndValidate(r, dst); err != nil {
		httputil.WriteValidationError(w, r, err)
		return false
	}
	return true
}
