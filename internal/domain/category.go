package domain

// Category is a tag a reviewer can attach to a review.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CategoryScore is the derived tally of one category for one content item.
type CategoryScore struct {
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
	Count        int    `json:"count"`
	Percentage   int    `json:"percentage"`
}
