package domain

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/wokeornotsite/wokeornot-sub000/pkg/errors"
)

// Business-rule sentinels. Each is surfaced as a 400 with its own code so
// clients can tell them apart from generic validation failures.
var (
	ErrDuplicateReview = errors.New("duplicate review")
	ErrMissingCategory = errors.New("missing category")
	ErrInvalidRating   = errors.New("invalid rating")
)

// DuplicateReviewError is returned when the caller already reviewed the content.
func DuplicateReviewError() *apperrors.AppError {
	return apperrors.New("DUPLICATE_REVIEW", "you have already reviewed this content", http.StatusBadRequest, ErrDuplicateReview)
}

// MissingCategoryError is returned when a rating above 1 has no categories.
func MissingCategoryError() *apperrors.AppError {
	return apperrors.New("MISSING_CATEGORY",
		fmt.Sprintf("at least one category is required for ratings above %d", CategoryRequiredAbove),
		http.StatusBadRequest, ErrMissingCategory)
}

// InvalidRatingError is returned for ratings outside [0,10].
func InvalidRatingError(rating int) *apperrors.AppError {
	return apperrors.New("INVALID_RATING",
		fmt.Sprintf("rating %d is out of range [%d,%d]", rating, MinRating, MaxRating),
		http.StatusBadRequest, ErrInvalidRating)
}
