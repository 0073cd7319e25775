package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AgronAfrica/LeedsLink/internal/db"
	"github.com/AgronAfrica/LeedsLink/internal/models"
)

// IRatingService stores ratings and derives rating summaries. Summarize
// and CanRate are pure functions over the rating slices they receive; the
// ctx-based variants fetch those slices from the store first.
type IRatingService interface {
	SubmitRating(ctx context.Context, rating models.Rating) error
	GetRatingsForUser(ctx context.Context, userID uuid.UUID) ([]models.Rating, error)
	GetAllRatings(ctx context.Context) ([]models.Rating, error)

	Summarize(userID uuid.UUID, allRatings []models.Rating) models.UserRatingSummary
	CanRate(fromUserID, toUserID uuid.UUID, existing []models.Rating) bool

	SummaryForUser(ctx context.Context, userID uuid.UUID) (models.UserRatingSummary, error)
	CanRateUser(ctx context.Context, fromUserID, toUserID uuid.UUID) (bool, error)
}

const ratingsCollection = "ratings"

// ratingService implements IRatingService.
type ratingService struct {
	db *mongo.Database
}

// NewRatingService creates a new RatingService.
func NewRatingService(db *mongo.Database) IRatingService {
	return &ratingService{db: db}
}

// SubmitRating stores a rating, replacing any previous rating from the
// same rater to the same target so the store never holds more than one
// rating per (from, to) pair.
func (s *ratingService) SubmitRating(ctx context.Context, rating models.Rating) error {
	if rating.FromUserID == rating.ToUserID {
		return fmt.Errorf("users cannot rate themselves")
	}
	if !rating.Category.IsValid() {
		return fmt.Errorf("invalid rating category: %q", rating.Category)
	}

	collection := s.db.Collection(ratingsCollection)

	_, err := collection.DeleteMany(ctx, bson.M{
		"from_user_id": rating.FromUserID,
		"to_user_id":   rating.ToUserID,
	})
	if err != nil {
		return fmt.Errorf("failed to replace existing rating from %s to %s: %w",
			rating.FromUserID, rating.ToUserID, err)
	}

	operation := func() error {
		if rating.ID == uuid.Nil {
			rating.ID = uuid.New()
		}
		_, insertErr := collection.InsertOne(ctx, rating)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		return fmt.Errorf("failed to insert rating from %s to %s: %w",
			rating.FromUserID, rating.ToUserID, err)
	}

	return nil
}

// GetRatingsForUser returns all ratings targeting a user. An unknown user
// has zero ratings; that is not an error.
func (s *ratingService) GetRatingsForUser(ctx context.Context, userID uuid.UUID) ([]models.Rating, error) {
	return s.findRatings(ctx, bson.M{"to_user_id": userID})
}

// GetAllRatings returns the full rating pool.
func (s *ratingService) GetAllRatings(ctx context.Context) ([]models.Rating, error) {
	return s.findRatings(ctx, bson.M{})
}

// Summarize derives a user's rating summary from a raw rating collection.
// Ratings targeting other users are filtered out first, so callers may pass
// either the full pool or a pre-filtered slice.
func (s *ratingService) Summarize(userID uuid.UUID, allRatings []models.Rating) models.UserRatingSummary {
	var targeting []models.Rating
	for _, r := range allRatings {
		if r.ToUserID == userID {
			targeting = append(targeting, r)
		}
	}
	return models.NewUserRatingSummary(userID, targeting)
}

// CanRate reports whether fromUserID may rate toUserID: never themselves,
// and never twice (an existing rating must be replaced via SubmitRating).
func (s *ratingService) CanRate(fromUserID, toUserID uuid.UUID, existing []models.Rating) bool {
	if fromUserID == toUserID {
		return false
	}
	for _, r := range existing {
		if r.FromUserID == fromUserID && r.ToUserID == toUserID {
			return false
		}
	}
	return true
}

// SummaryForUser fetches the user's ratings and derives the summary.
func (s *ratingService) SummaryForUser(ctx context.Context, userID uuid.UUID) (models.UserRatingSummary, error) {
	ratings, err := s.GetRatingsForUser(ctx, userID)
	if err != nil {
		return models.UserRatingSummary{}, err
	}
	return models.NewUserRatingSummary(userID, ratings), nil
}

// CanRateUser checks the store for an existing (from, to) rating.
func (s *ratingService) CanRateUser(ctx context.Context, fromUserID, toUserID uuid.UUID) (bool, error) {
	if fromUserID == toUserID {
		return false, nil
	}
	count, err := s.db.Collection(ratingsCollection).CountDocuments(ctx, bson.M{
		"from_user_id": fromUserID,
		"to_user_id":   toUserID,
	})
	if err != nil {
		return false, fmt.Errorf("failed to check existing rating: %w", err)
	}
	return count == 0, nil
}

func (s *ratingService) findRatings(ctx context.Context, filter bson.M) ([]models.Rating, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	})
	cursor, err := s.db.Collection(ratingsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}
	defer cursor.Close(ctx)

	ratings := []models.Rating{}
	if err := cursor.All(ctx, &ratings); err != nil {
		return nil, fmt.Errorf("failed to decode ratings: %w", err)
	}
	return ratings, nil
}
