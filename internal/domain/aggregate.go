package domain

import (
	"math"
	"sort"
)

// CategoryTally is one computed row of a content item's breakdown.
type CategoryTally struct {
	CategoryID string
	Count      int
	Percentage int
}

// Aggregate is the derived state of a content item computed from its live
// reviews.
type Aggregate struct {
	ContentID   string
	ReviewCount int
	Score       float64
	Categories  []CategoryTally
}

// RatingStats is the count and sum of ratings over a review set.
type RatingStats struct {
	Count int
	Sum   int64
}

// ComputeAggregate derives the score and category breakdown. Score is the
// unrounded mean rating, or 0 with no reviews. Each category's percentage is
// its share of all tag instances, rounded to an integer. Categories with a
// zero count are dropped. Tallies are ordered by count desc, then id.
func ComputeAggregate(contentID string, stats RatingStats, tagCounts map[string]int) Aggregate {
	agg := Aggregate{ContentID: contentID, ReviewCount: stats.Count}
	if stats.Count > 0 {
		agg.Score = float64(stats.Sum) / float64(stats.Count)
	}

	total := 0
	for _, n := range tagCounts {
		if n > 0 {
			total += n
		}
	}

	agg.Categories = make([]CategoryTally, 0, len(tagCounts))
	if total == 0 {
		return agg
	}
	for id, n := range tagCounts {
		if n <= 0 {
			continue
		}
		agg.Categories = append(agg.Categories, CategoryTally{
			CategoryID: id,
			Count:      n,
			Percentage: int(math.Round(float64(n) / float64(total) * 100)),
		})
	}
	sort.Slice(agg.Categories, func(i, j int) bool {
		a, b := agg.Categories[i], agg.Categories[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.CategoryID < b.CategoryID
	})
	return agg
}
