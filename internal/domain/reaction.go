package domain

// ReactionType is a like or a dislike.
type ReactionType string

// Reaction types.
const (
	ReactionLike    ReactionType = "like"
	ReactionDislike ReactionType = "dislike"
)

// ParseReactionType validates a reaction from a request body.
func ParseReactionType(s string) (ReactionType, bool) {
	switch t := ReactionType(s); t {
	case ReactionLike, ReactionDislike:
		return t, true
	}
	return "", false
}

// ToggleReaction returns the caller's reaction after requesting next while
// holding current. Repeating the held reaction clears it; any other request
// replaces it.
func ToggleReaction(current *ReactionType, next ReactionType) *ReactionType {
	if current != nil && *current == next {
		return nil
	}
	return &next
}

// ReactionSummary is the state returned after a toggle.
type ReactionSummary struct {
	Likes        int           `json:"likes"`
	Dislikes     int           `json:"dislikes"`
	UserReaction *ReactionType `json:"user_reaction"`
}
