package handlers_test

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"

	"github.com/AgronAfrica/LeedsLink/internal/api/middleware"
	"github.com/AgronAfrica/LeedsLink/internal/models"
	"github.com/AgronAfrica/LeedsLink/internal/services"
	"github.com/AgronAfrica/LeedsLink/internal/ws"
)

// --- Shared mocks for handler tests ---

// MockListingService implements services.IListingService
type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) CreateListing(ctx context.Context, input services.CreateListingInput) (*models.Listing, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) FindListingByID(ctx context.Context, listingID uuid.UUID) (*models.Listing, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) DeleteListing(ctx context.Context, listingID, userID uuid.UUID) error {
	args := m.Called(ctx, listingID, userID)
	return args.Error(0)
}

func (m *MockListingService) GetAllListings(ctx context.Context) ([]models.Listing, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockListingService) FindListingsByUserID(ctx context.Context, userID uuid.UUID) ([]models.Listing, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockListingService) GetFilteredListings(ctx context.Context, role *models.UserRole, category *models.ListingCategory) ([]models.Listing, error) {
	args := m.Called(ctx, role, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockListingService) UrgentListings(ctx context.Context) ([]models.Listing, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockListingService) ActiveListings(ctx context.Context, limit int) ([]models.Listing, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

// MockMatchService implements services.IMatchService
type MockMatchService struct {
	mock.Mock
}

func (m *MockMatchService) TopMatches(listing models.Listing, pool []models.Listing, limit int) []models.Listing {
	args := m.Called(listing, pool, limit)
	return args.Get(0).([]models.Listing)
}

func (m *MockMatchService) MatchesForUser(userID uuid.UUID, pool []models.Listing) []models.Listing {
	args := m.Called(userID, pool)
	return args.Get(0).([]models.Listing)
}

func (m *MockMatchService) MatchCount(userID uuid.UUID, pool []models.Listing) int {
	args := m.Called(userID, pool)
	return args.Int(0)
}

func (m *MockMatchService) HasLocalPartnerBadge(userID uuid.UUID, pool []models.Listing) bool {
	args := m.Called(userID, pool)
	return args.Bool(0)
}

func (m *MockMatchService) TopMatchesForListing(ctx context.Context, listingID uuid.UUID, limit int) ([]models.Listing, error) {
	args := m.Called(ctx, listingID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockMatchService) MatchesForUserID(ctx context.Context, userID uuid.UUID) ([]models.Listing, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockMatchService) MatchCountForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

// MockRatingService implements services.IRatingService
type MockRatingService struct {
	mock.Mock
}

func (m *MockRatingService) SubmitRating(ctx context.Context, rating models.Rating) error {
	args := m.Called(ctx, rating)
	return args.Error(0)
}

func (m *MockRatingService) GetRatingsForUser(ctx context.Context, userID uuid.UUID) ([]models.Rating, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Rating), args.Error(1)
}

func (m *MockRatingService) GetAllRatings(ctx context.Context) ([]models.Rating, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Rating), args.Error(1)
}

func (m *MockRatingService) Summarize(userID uuid.UUID, allRatings []models.Rating) models.UserRatingSummary {
	args := m.Called(userID, allRatings)
	return args.Get(0).(models.UserRatingSummary)
}

func (m *MockRatingService) CanRate(fromUserID, toUserID uuid.UUID, existing []models.Rating) bool {
	args := m.Called(fromUserID, toUserID, existing)
	return args.Bool(0)
}

func (m *MockRatingService) SummaryForUser(ctx context.Context, userID uuid.UUID) (models.UserRatingSummary, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.UserRatingSummary), args.Error(1)
}

func (m *MockRatingService) CanRateUser(ctx context.Context, fromUserID, toUserID uuid.UUID) (bool, error) {
	args := m.Called(ctx, fromUserID, toUserID)
	return args.Bool(0), args.Error(1)
}

// MockUserService implements services.IUserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, input services.RegisterInput) (*models.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockAsynqClient implements handlers.IAsynqClient
type MockAsynqClient struct {
	mock.Mock
}

func (m *MockAsynqClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}

// MockDerivedCache implements handlers.IDerivedCache
type MockDerivedCache struct {
	mock.Mock
}

func (m *MockDerivedCache) MatchCount(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockDerivedCache) SetMatchCount(ctx context.Context, userID uuid.UUID, count int) error {
	args := m.Called(ctx, userID, count)
	return args.Error(0)
}

func (m *MockDerivedCache) RatingSummary(ctx context.Context, userID uuid.UUID) (*models.UserRatingSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserRatingSummary), args.Error(1)
}

func (m *MockDerivedCache) SetRatingSummary(ctx context.Context, summary models.UserRatingSummary) error {
	args := m.Called(ctx, summary)
	return args.Error(0)
}

// stubBroadcaster records broadcast events.
type stubBroadcaster struct {
	events []ws.Event
}

func (s *stubBroadcaster) Broadcast(event ws.Event) {
	s.events = append(s.events, event)
}

// authAs returns a middleware that injects the given user into the request
// context the way AuthMiddleware would.
func authAs(userID uuid.UUID, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, userID)
		c.Set(middleware.ContextKeyUserName, name)
		c.Next()
	}
}
