package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AgronAfrica/LeedsLink/internal/config"
	"github.com/AgronAfrica/LeedsLink/internal/db"
	"github.com/AgronAfrica/LeedsLink/internal/models"
)

// IListingService defines the interface for listing storage operations.
// Reads return consistent snapshots in a deterministic order (newest first,
// id as tie-break) so that derived aggregates recompute identically for an
// unchanged pool.
type IListingService interface {
	CreateListing(ctx context.Context, input CreateListingInput) (*models.Listing, error)
	FindListingByID(ctx context.Context, listingID uuid.UUID) (*models.Listing, error)
	DeleteListing(ctx context.Context, listingID, userID uuid.UUID) error
	GetAllListings(ctx context.Context) ([]models.Listing, error)
	FindListingsByUserID(ctx context.Context, userID uuid.UUID) ([]models.Listing, error)
	GetFilteredListings(ctx context.Context, role *models.UserRole, category *models.ListingCategory) ([]models.Listing, error)
	UrgentListings(ctx context.Context) ([]models.Listing, error)
	ActiveListings(ctx context.Context, limit int) ([]models.Listing, error)
}

const listingsCollection = "listings"

// CreateListingInput carries the user-supplied fields of a new listing.
type CreateListingInput struct {
	UserID       uuid.UUID
	Title        string
	Category     models.ListingCategory
	Tags         []string
	Budget       string
	Price        string
	Availability string
	Description  string
	Type         models.ListingType
	IsUrgent     bool
}

// listingService implements IListingService.
type listingService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewListingService creates a new ListingService.
func NewListingService(db *mongo.Database, cfg *config.Config) IListingService {
	return &listingService{db: db, cfg: cfg}
}

// CreateListing validates and inserts a new listing.
func (s *listingService) CreateListing(ctx context.Context, input CreateListingInput) (*models.Listing, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("listing title is required")
	}
	if !input.Category.IsValid() {
		return nil, fmt.Errorf("invalid listing category: %q", input.Category)
	}
	if input.Type != models.ListingTypeOffer && input.Type != models.ListingTypeRequest {
		return nil, fmt.Errorf("invalid listing type: %q", input.Type)
	}

	collection := s.db.Collection(listingsCollection)
	now := time.Now().UTC()

	var newListing *models.Listing
	operation := func() error {
		newListing = &models.Listing{
			ID:           uuid.New(),
			UserID:       input.UserID,
			Title:        input.Title,
			Category:     input.Category,
			Tags:         input.Tags,
			Budget:       input.Budget,
			Price:        input.Price,
			Availability: input.Availability,
			Description:  input.Description,
			Type:         input.Type,
			IsUrgent:     input.IsUrgent,
			CreatedAt:    now,
		}
		_, insertErr := collection.InsertOne(ctx, newListing)
		return insertErr
	}

	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert listing for user %s: %w", input.UserID, err)
	}

	return newListing, nil
}

// FindListingByID finds a listing by its id.
func (s *listingService) FindListingByID(ctx context.Context, listingID uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := s.db.Collection(listingsCollection).FindOne(ctx, bson.M{"_id": listingID}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding listing %s: %w", listingID, err)
	}
	return &listing, nil
}

// DeleteListing removes a listing owned by the given user.
func (s *listingService) DeleteListing(ctx context.Context, listingID, userID uuid.UUID) error {
	result, err := s.db.Collection(listingsCollection).DeleteOne(ctx, bson.M{"_id": listingID, "user_id": userID})
	if err != nil {
		return fmt.Errorf("db error deleting listing %s: %w", listingID, err)
	}
	if result.DeletedCount == 0 {
		var listing models.Listing
		checkErr := s.db.Collection(listingsCollection).FindOne(ctx, bson.M{"_id": listingID}).Decode(&listing)
		if errors.Is(checkErr, mongo.ErrNoDocuments) {
			return fmt.Errorf("listing %s not found", listingID)
		}
		return fmt.Errorf("listing %s does not belong to user %s", listingID, userID)
	}
	return nil
}

// GetAllListings returns the full pool, newest first.
func (s *listingService) GetAllListings(ctx context.Context) ([]models.Listing, error) {
	return s.findListings(ctx, bson.M{}, 0)
}

// FindListingsByUserID returns every listing owned by a user, newest first.
func (s *listingService) FindListingsByUserID(ctx context.Context, userID uuid.UUID) ([]models.Listing, error) {
	return s.findListings(ctx, bson.M{"user_id": userID}, 0)
}

// GetFilteredListings returns the browse view for a role: suppliers and
// service providers see requests they could fulfil, customers see offers.
// A nil role applies no type filter; a nil category no category filter.
func (s *listingService) GetFilteredListings(ctx context.Context, role *models.UserRole, category *models.ListingCategory) ([]models.Listing, error) {
	filter := bson.M{}
	if role != nil {
		switch *role {
		case models.RoleSupplier, models.RoleServiceProvider:
			filter["type"] = models.ListingTypeRequest
		case models.RoleCustomer:
			filter["type"] = models.ListingTypeOffer
		default:
			return nil, fmt.Errorf("invalid user role: %q", *role)
		}
	}
	if category != nil {
		filter["category"] = *category
	}
	return s.findListings(ctx, filter, 0)
}

// UrgentListings returns all urgent listings, newest first.
func (s *listingService) UrgentListings(ctx context.Context) ([]models.Listing, error) {
	return s.findListings(ctx, bson.M{"is_urgent": true}, 0)
}

// ActiveListings returns the most recent listings, capped at limit.
func (s *listingService) ActiveListings(ctx context.Context, limit int) ([]models.Listing, error) {
	if limit <= 0 {
		limit = s.cfg.ActiveListingsMax
	}
	return s.findListings(ctx, bson.M{}, int64(limit))
}

func (s *listingService) findListings(ctx context.Context, filter bson.M, limit int64) ([]models.Listing, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: 1},
	})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := s.db.Collection(listingsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer cursor.Close(ctx)

	listings := []models.Listing{}
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode listings: %w", err)
	}
	return listings, nil
}
