package http

import (
	"log/slog"
	"net/http"

	"github.com/wokeornotsite/wokeornot-sub000/internal/domain"
	"github.com/wokeornotsite/wokeornot-sub000/internal/service"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/httputil"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/pagination"
)

// ReviewHandler serves reviews and reactions.
type ReviewHandler struct {
	reviews   ReviewService
	reactions ReactionService
	logger    *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(reviews ReviewService, reactions ReactionService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, reactions: reactions, logger: logger}
}

// --- Request DTOs ---

// CreateReviewRequest is the JSON body for submitting a review. The rating
// range and category rule are enforced by the service so they surface with
// their own error codes.
type CreateReviewRequest struct {
	Rating      *int     `json:"rating" validate:"required"`
	Text        string   `json:"text" validate:"max=5000"`
	CategoryIDs []string `json:"category_ids" validate:"max=20,dive,required,max=64"`
	GuestName   string   `json:"guest_name" validate:"max=100"`
}

// UpdateReviewRequest is the JSON body for editing a review. Omitted fields
// are left unchanged.
type UpdateReviewRequest struct {
	Rating      *int      `json:"rating"`
	Text        *string   `json:"text" validate:"omitempty,max=5000"`
	CategoryIDs *[]string `json:"category_ids" validate:"omitempty,max=20"`
}

// ReactionRequest is the JSON body for reacting to a review.
type ReactionRequest struct {
	Reaction string `json:"reaction" validate:"required,oneof=like dislike"`
}

// --- Handlers ---

// ListReviews handles GET /api/v1/contents/{contentId}/reviews
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	contentID, ok := uuidParam(w, r, "contentId")
	if !ok {
		return
	}
	p := pagination.FromRequest(r)

	reviews, total, err := h.reviews.ListReviews(r.Context(), contentID, p)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(reviews, total, p))
}

// CreateReview handles POST /api/v1/contents/{contentId}/reviews
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	contentID, ok := uuidParam(w, r, "contentId")
	if !ok {
		return
	}
	var req CreateReviewRequest
	if !decode(w, r, &req) {
		return
	}

	review, err := h.reviews.CreateReview(r.Context(), callerFromContext(r.Context()), &service.CreateReviewInput{
		ContentID:   contentID,
		Rating:      *req.Rating,
		Text:        req.Text,
		CategoryIDs: req.CategoryIDs,
		GuestName:   req.GuestName,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, review)
}

// GetReview handles GET /api/v1/reviews/{reviewId}
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "reviewId")
	if !ok {
		return
	}
	review, err := h.reviews.GetReview(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, review)
}

// UpdateReview handles PATCH /api/v1/reviews/{reviewId}
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "reviewId")
	if !ok {
		return
	}
	var req UpdateReviewRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Rating == nil && req.Text == nil && req.CategoryIDs == nil {
		httputil.WriteErrorCode(w, r, http.StatusBadRequest, "INVALID_INPUT", "nothing to update")
		return
	}

	review, err := h.reviews.UpdateReview(r.Context(), callerFromContext(r.Context()), id, &service.UpdateReviewInput{
		Rating:      req.Rating,
		Text:        req.Text,
		CategoryIDs: req.CategoryIDs,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, review)
}

// DeleteReview handles DELETE /api/v1/reviews/{reviewId}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "reviewId")
	if !ok {
		return
	}
	if err := h.reviews.DeleteReview(r.Context(), callerFromContext(r.Context()), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// React handles POST /api/v1/reviews/{reviewId}/reactions
func (h *ReviewHandler) React(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "reviewId")
	if !ok {
		return
	}
	var req ReactionRequest
	if !decode(w, r, &req) {
		return
	}
	reaction, _ := domain.ParseReactionType(req.Reaction)

	summary, err := h.reactions.Toggle(r.Context(), callerFromContext(r.Context()), id, reaction)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, summary)
}
