package models

import (
	"time"

	"github.com/google/uuid"
)

// RatingCategory is the closed set of aspects a counterparty can be rated on.
type RatingCategory string

const (
	RatingCategoryService       RatingCategory = "Service Quality"
	RatingCategoryCommunication RatingCategory = "Communication"
	RatingCategoryReliability   RatingCategory = "Reliability"
	RatingCategoryValue         RatingCategory = "Value for Money"
	RatingCategoryOverall       RatingCategory = "Overall Experience"
)

// AllRatingCategories lists every valid RatingCategory.
var AllRatingCategories = []RatingCategory{
	RatingCategoryService,
	RatingCategoryCommunication,
	RatingCategoryReliability,
	RatingCategoryValue,
	RatingCategoryOverall,
}

// IsValid reports whether c is one of the known rating categories.
func (c RatingCategory) IsValid() bool {
	for _, v := range AllRatingCategories {
		if c == v {
			return true
		}
	}
	return false
}

// Rating is a single star rating from one user to another. At most one
// rating per (from, to) pair is retained; submitting again replaces the
// previous one.
type Rating struct {
	ID         uuid.UUID      `bson:"_id" json:"id"`
	FromUserID uuid.UUID      `bson:"from_user_id" json:"from_user_id"`
	ToUserID   uuid.UUID      `bson:"to_user_id" json:"to_user_id"`
	Rating     int            `bson:"rating" json:"rating"`
	Review     string         `bson:"review,omitempty" json:"review,omitempty"`
	Category   RatingCategory `bson:"category" json:"category"`
	CreatedAt  time.Time      `bson:"created_at" json:"created_at"`
}

// NewRating constructs a Rating, clamping the star value into [1,5].
// Out-of-range input is corrected rather than rejected; callers that need
// strict validation must check before construction.
func NewRating(fromUserID, toUserID uuid.UUID, stars int, review string, category RatingCategory) Rating {
	return Rating{
		ID:         uuid.New(),
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Rating:     ClampStars(stars),
		Review:     review,
		Category:   category,
		CreatedAt:  time.Now().UTC(),
	}
}

// ClampStars forces a star value into the valid [1,5] range.
func ClampStars(stars int) int {
	if stars < 1 {
		return 1
	}
	if stars > 5 {
		return 5
	}
	return stars
}

// UserRatingSummary is a derived view over all ratings targeting a user.
// It is recomputed from scratch on demand and never stored as the source
// of truth.
type UserRatingSummary struct {
	UserID          uuid.UUID                  `bson:"user_id" json:"user_id"`
	AverageRating   float64                    `bson:"average_rating" json:"average_rating"`
	TotalRatings    int                        `bson:"total_ratings" json:"total_ratings"`
	RatingBreakdown map[int]int                `bson:"rating_breakdown" json:"rating_breakdown"`
	CategoryRatings map[RatingCategory]float64 `bson:"category_ratings" json:"category_ratings"`
	LastUpdated     time.Time                  `bson:"last_updated" json:"last_updated"`
}

// NewUserRatingSummary derives a summary from the given ratings, which must
// already be filtered to the target user. An empty input yields a
// well-formed zero summary, never an error.
func NewUserRatingSummary(userID uuid.UUID, ratings []Rating) UserRatingSummary {
	summary := UserRatingSummary{
		UserID:          userID,
		TotalRatings:    len(ratings),
		RatingBreakdown: map[int]int{},
		CategoryRatings: map[RatingCategory]float64{},
		LastUpdated:     time.Now().UTC(),
	}
	if len(ratings) == 0 {
		return summary
	}

	total := 0
	for _, r := range ratings {
		total += r.Rating
		summary.RatingBreakdown[r.Rating]++
	}
	summary.AverageRating = float64(total) / float64(len(ratings))

	// Category means exist only for categories with at least one rating.
	for _, category := range AllRatingCategories {
		sum, count := 0, 0
		for _, r := range ratings {
			if r.Category == category {
				sum += r.Rating
				count++
			}
		}
		if count > 0 {
			summary.CategoryRatings[category] = float64(sum) / float64(count)
		}
	}

	return summary
}
