package domain

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/wokeornotsite/wokeornot-sub000/pkg/errors"
)

func strPtr(s string) *string { return &s }

func TestComputeAggregate_ExampleScenario(t *testing.T) {
	// Ratings 8, 4, 6; A tagged twice, B once.
	agg := ComputeAggregate("c-1", RatingStats{Count: 3, Sum: 18}, map[string]int{"A": 2, "B": 1})

	assert.Equal(t, 3, agg.ReviewCount)
	assert.InDelta(t, 6.0, agg.Score, 1e-9)
	require.Len(t, agg.Categories, 2)
	assert.Equal(t, CategoryTally{CategoryID: "A", Count: 2, Percentage: 67}, agg.Categories[0])
	assert.Equal(t, CategoryTally{CategoryID: "B", Count: 1, Percentage: 33}, agg.Categories[1])

	// The 8 (tagged A) is deleted.
	agg = ComputeAggregate("c-1", RatingStats{Count: 2, Sum: 10}, map[string]int{"A": 1, "B": 1})
	assert.Equal(t, 2, agg.ReviewCount)
	assert.InDelta(t, 5.0, agg.Score, 1e-9)
	require.Len(t, agg.Categories, 2)
	assert.Equal(t, 50, agg.Categories[0].Percentage)
	assert.Equal(t, 50, agg.Categories[1].Percentage)
}

func TestComputeAggregate_Empty(t *testing.T) {
	agg := ComputeAggregate("c-1", RatingStats{}, nil)
	assert.Equal(t, 0, agg.ReviewCount)
	assert.Zero(t, agg.Score)
	assert.NotNil(t, agg.Categories)
	assert.Empty(t, agg.Categories)
}

func TestComputeAggregate_DropsZeroCounts(t *testing.T) {
	agg := ComputeAggregate("c-1", RatingStats{Count: 1, Sum: 7}, map[string]int{"A": 0, "B": 3})
	require.Len(t, agg.Categories, 1)
	assert.Equal(t, "B", agg.Categories[0].CategoryID)
	assert.Equal(t, 100, agg.Categories[0].Percentage)
}

func TestComputeAggregate_KeepsFullPrecision(t *testing.T) {
	agg := ComputeAggregate("c-1", RatingStats{Count: 3, Sum: 10}, nil)
	assert.InDelta(t, 3.3333333333, agg.Score, 1e-9)
}

func TestComputeAggregate_PercentagesSumNearHundred(t *testing.T) {
	tags := map[string]int{"A": 1, "B": 1, "C": 1, "D": 4, "E": 2}
	agg := ComputeAggregate("c-1", RatingStats{Count: 5, Sum: 25}, tags)

	sum := 0
	for _, c := range agg.Categories {
		sum += c.Percentage
	}
	assert.InDelta(t, 100, sum, float64(len(tags)))
}

func TestValidateRating(t *testing.T) {
	tests := []struct {
		name       string
		rating     int
		categories int
		wantIs     error
	}{
		{"zero without categories", 0, 0, nil},
		{"one without categories", 1, 0, nil},
		{"two needs category", 2, 0, ErrMissingCategory},
		{"two with category", 2, 1, nil},
		{"ten with category", 10, 3, nil},
		{"negative", -1, 1, ErrInvalidRating},
		{"eleven", 11, 1, ErrInvalidRating},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRating(tt.rating, tt.categories)
			if tt.wantIs == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantIs), "got %v", err)
			assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatus(err))
		})
	}
}

func TestDomainErrorCodes(t *testing.T) {
	assert.Equal(t, "DUPLICATE_REVIEW", DuplicateReviewError().Code)
	assert.Equal(t, "MISSING_CATEGORY", MissingCategoryError().Code)
	assert.Equal(t, "INVALID_RATING", InvalidRatingError(12).Code)
	assert.Equal(t, http.StatusBadRequest, DuplicateReviewError().Status)
}

func TestToggleReaction(t *testing.T) {
	like, dislike := ReactionLike, ReactionDislike

	got := ToggleReaction(nil, ReactionLike)
	require.NotNil(t, got)
	assert.Equal(t, ReactionLike, *got)

	assert.Nil(t, ToggleReaction(&like, ReactionLike))

	got = ToggleReaction(&like, ReactionDislike)
	require.NotNil(t, got)
	assert.Equal(t, ReactionDislike, *got)

	got = ToggleReaction(&dislike, ReactionLike)
	require.NotNil(t, got)
	assert.Equal(t, ReactionLike, *got)
}

func TestParse(t *testing.T) {
	k, ok := ParseContentKind("tv")
	assert.True(t, ok)
	assert.Equal(t, KindTV, k)
	_, ok = ParseContentKind("book")
	assert.False(t, ok)

	r, ok := ParseReactionType("dislike")
	assert.True(t, ok)
	assert.Equal(t, ReactionDislike, r)
	_, ok = ParseReactionType("love")
	assert.False(t, ok)
}

func TestCallerIdentity(t *testing.T) {
	author := &CallerIdentity{ID: "u-1", Role: RoleUser}
	other := &CallerIdentity{ID: "u-2", Role: RoleUser}
	admin := &CallerIdentity{ID: "a-1", Role: RoleAdmin}
	var anon *CallerIdentity

	review := &Review{UserID: strPtr("u-1")}
	guest := &Review{}

	assert.True(t, author.CanEdit(review))
	assert.False(t, other.CanEdit(review))
	assert.False(t, admin.CanEdit(review))
	assert.False(t, anon.CanEdit(review))

	assert.True(t, author.CanDelete(review))
	assert.True(t, admin.CanDelete(review))
	assert.False(t, other.CanDelete(review))

	assert.False(t, author.CanDelete(guest))
	assert.True(t, admin.CanDelete(guest))
	assert.False(t, anon.IsAdmin())
}

func TestIsWellFormedContentID(t *testing.T) {
	assert.True(t, IsWellFormedContentID(strPtr("0b8e3c2e-4f0e-4c1d-9a55-6f6d3f1d2a10")))
	assert.False(t, IsWellFormedContentID(strPtr("not-a-uuid")))
	assert.False(t, IsWellFormedContentID(strPtr("")))
	assert.False(t, IsWellFormedContentID(nil))

	// Other spellings of a valid uuid never match a stored content id.
	for _, id := range []string{
		"0B8E3C2E-4F0E-4C1D-9A55-6F6D3F1D2A10",
		"{0b8e3c2e-4f0e-4c1d-9a55-6f6d3f1d2a10}",
		"urn:uuid:0b8e3c2e-4f0e-4c1d-9a55-6f6d3f1d2a10",
		"0b8e3c2e4f0e4c1d9a556f6d3f1d2a10",
	} {
		assert.False(t, IsWellFormedContentID(strPtr(id)), id)
	}
}
