package domain

import "time"

// Rating bounds.
const (
	MinRating = 0
	MaxRating = 10

	// Ratings above this need at least one category.
	CategoryRequiredAbove = 1
)

// Review is one rating, with optional text and category tags, for one
// content item. UserID is nil for guest reviews.
type Review struct {
	ID         string     `json:"id"`
	ContentID  string     `json:"content_id"`
	UserID     *string    `json:"user_id,omitempty"`
	GuestName  string     `json:"guest_name,omitempty"`
	Rating     int        `json:"rating"`
	Text       string     `json:"text,omitempty"`
	Categories []Category `json:"categories"`
	Likes      int        `json:"likes"`
	Dislikes   int        `json:"dislikes"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsGuest reports whether the review has no owning user.
func (r *Review) IsGuest() bool {
	return r.UserID == nil
}

// CategoryIDs returns the ids of the review's categories.
func (r *Review) CategoryIDs() []string {
	ids := make([]string, len(r.Categories))
	for i, c := range r.Categories {
		ids[i] = c.ID
	}
	return ids
}

// ValidateRating enforces the rating range and the category requirement.
func ValidateRating(rating, categoryCount int) error {
	if rating < MinRating || rating > MaxRating {
		return InvalidRatingError(rating)
	}
	if rating > CategoryRequiredAbove && categoryCount == 0 {
		return MissingCategoryError()
	}
	return nil
}
