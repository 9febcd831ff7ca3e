package domain

import "time"

// ContentKind is the catalog section a ContentItem belongs to.
type ContentKind string

// Content kinds.
const (
	KindMovie ContentKind = "movie"
	KindTV    ContentKind = "tv"
	KindKids  ContentKind = "kids"
)

// ParseContentKind validates a kind taken from a URL or request body.
func ParseContentKind(s string) (ContentKind, bool) {
	switch k := ContentKind(s); k {
	case KindMovie, KindTV, KindKids:
		return k, true
	}
	return "", false
}

// Content is a ratable catalog entry. AggregateScore and ReviewCount are
// caches of the live review set and are only written by the aggregator.
type Content struct {
	ID             string      `json:"id"`
	ExternalID     int64       `json:"external_id"`
	Kind           ContentKind `json:"kind"`
	Title          string      `json:"title"`
	Slug           string      `json:"slug"`
	Overview       string      `json:"overview,omitempty"`
	PosterPath     string      `json:"poster_path,omitempty"`
	ReleaseDate    *time.Time  `json:"release_date,omitempty"`
	AggregateScore float64     `json:"aggregate_score"`
	ReviewCount    int         `json:"review_count"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// ContentDetail is a Content with its per-category breakdown.
type ContentDetail struct {
	Content
	Categories []CategoryScore `json:"categories"`
}

// CatalogEntry is the metadata a catalog lookup returns for one item.
type CatalogEntry struct {
	ExternalID  int64
	Kind        ContentKind
	Title       string
	Overview    string
	PosterPath  string
	ReleaseDate *time.Time
}
