package tasks_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/AgronAfrica/LeedsLink/internal/cache"
	"github.com/AgronAfrica/LeedsLink/internal/config"
	"github.com/AgronAfrica/LeedsLink/internal/models"
	"github.com/AgronAfrica/LeedsLink/internal/notify"
	"github.com/AgronAfrica/LeedsLink/internal/tasks"
)

// --- Mocks ---

// MockMatchService
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

// MockRatingService
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

// MockDerivedCache
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

func (m *MockDerivedCache) SetRatingSummary(ctx context.Context, summary models.UserRatingSummary) error {
	args := m.Called(ctx, summary)
	return args.Error(0)
}

// recordingNotifier collects notifications instead of delivering them.
type recordingNotifier struct {
	received []notify.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, n notify.Notification) error {
	r.received = append(r.received, n)
	return nil
}

func kinds(ns []notify.Notification) []notify.Kind {
	out := make([]notify.Kind, len(ns))
	for i, n := range ns {
		out[i] = n.Kind
	}
	return out
}

// --- Tests ---

func recountTask(t *testing.T, userID uuid.UUID) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(tasks.MatchRecountPayload{UserID: userID.String()})
	assert.NoError(t, err)
	return asynq.NewTask(tasks.TypeMatchRecount, payload)
}

func TestHandleMatchRecountTask_NotifiesOnGrowth(t *testing.T) {
	mockMatch := new(MockMatchService)
	mockDerived := new(MockDerivedCache)
	notifier := &recordingNotifier{}
	userID := uuid.New()

	p := tasks.NewTaskProcessor(&config.Config{}, mockMatch, nil, mockDerived, notifier)

	mockMatch.On("MatchCountForUser", mock.Anything, userID).Return(2, nil)
	mockDerived.On("MatchCount", mock.Anything, userID).Return(1, nil)
	mockDerived.On("SetMatchCount", mock.Anything, userID, 2).Return(nil)

	err := p.HandleMatchRecountTask(context.Background(), recountTask(t, userID))

	assert.NoError(t, err)
	assert.Equal(t, []notify.Kind{notify.KindNewMatches}, kinds(notifier.received))
	mockMatch.AssertExpectations(t)
	mockDerived.AssertExpectations(t)
}

func TestHandleMatchRecountTask_BadgeOnThresholdCrossing(t *testing.T) {
	mockMatch := new(MockMatchService)
	mockDerived := new(MockDerivedCache)
	notifier := &recordingNotifier{}
	userID := uuid.New()

	p := tasks.NewTaskProcessor(&config.Config{}, mockMatch, nil, mockDerived, notifier)

	mockMatch.On("MatchCountForUser", mock.Anything, userID).Return(3, nil)
	mockDerived.On("MatchCount", mock.Anything, userID).Return(2, nil)
	mockDerived.On("SetMatchCount", mock.Anything, userID, 3).Return(nil)

	err := p.HandleMatchRecountTask(context.Background(), recountTask(t, userID))

	assert.NoError(t, err)
	assert.Equal(t, []notify.Kind{notify.KindNewMatches, notify.KindLocalPartnerBadge}, kinds(notifier.received))
}

func TestHandleMatchRecountTask_NoBadgeAboveThreshold(t *testing.T) {
	mockMatch := new(MockMatchService)
	mockDerived := new(MockDerivedCache)
	notifier := &recordingNotifier{}
	userID := uuid.New()

	p := tasks.NewTaskProcessor(&config.Config{}, mockMatch, nil, mockDerived, notifier)

	// Already past the threshold: growth notifies, but no second badge.
	mockMatch.On("MatchCountForUser", mock.Anything, userID).Return(5, nil)
	mockDerived.On("MatchCount", mock.Anything, userID).Return(4, nil)
	mockDerived.On("SetMatchCount", mock.Anything, userID, 5).Return(nil)

	err := p.HandleMatchRecountTask(context.Background(), recountTask(t, userID))

	assert.NoError(t, err)
	assert.Equal(t, []notify.Kind{notify.KindNewMatches}, kinds(notifier.received))
}

func TestHandleMatchRecountTask_SilentWhenUnchanged(t *testing.T) {
	mockMatch := new(MockMatchService)
	mockDerived := new(MockDerivedCache)
	notifier := &recordingNotifier{}
	userID := uuid.New()

	p := tasks.NewTaskProcessor(&config.Config{}, mockMatch, nil, mockDerived, notifier)

	mockMatch.On("MatchCountForUser", mock.Anything, userID).Return(2, nil)
	mockDerived.On("MatchCount", mock.Anything, userID).Return(2, nil)
	mockDerived.On("SetMatchCount", mock.Anything, userID, 2).Return(nil)

	err := p.HandleMatchRecountTask(context.Background(), recountTask(t, userID))

	assert.NoError(t, err)
	assert.Empty(t, notifier.received)
}

func TestHandleMatchRecountTask_CacheMissTreatedAsZero(t *testing.T) {
	mockMatch := new(MockMatchService)
	mockDerived := new(MockDerivedCache)
	notifier := &recordingNotifier{}
	userID := uuid.New()

	p := tasks.NewTaskProcessor(&config.Config{}, mockMatch, nil, mockDerived, notifier)

	mockMatch.On("MatchCountForUser", mock.Anything, userID).Return(4, nil)
	mockDerived.On("MatchCount", mock.Anything, userID).Return(0, cache.ErrMiss)
	mockDerived.On("SetMatchCount", mock.Anything, userID, 4).Return(nil)

	err := p.HandleMatchRecountTask(context.Background(), recountTask(t, userID))

	assert.NoError(t, err)
	// First recount after a cache flush both notifies and grants the badge.
	assert.Equal(t, []notify.Kind{notify.KindNewMatches, notify.KindLocalPartnerBadge}, kinds(notifier.received))
}

func TestHandleMatchRecountTask_InvalidPayload(t *testing.T) {
	p := tasks.NewTaskProcessor(&config.Config{}, new(MockMatchService), nil, new(MockDerivedCache), &recordingNotifier{})

	payload, _ := json.Marshal(tasks.MatchRecountPayload{UserID: "not-a-uuid"})
	err := p.HandleMatchRecountTask(context.Background(), asynq.NewTask(tasks.TypeMatchRecount, payload))

	assert.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry), "Malformed payloads should not be retried")
}

func TestHandleRatingSummaryRefreshTask(t *testing.T) {
	mockRating := new(MockRatingService)
	mockDerived := new(MockDerivedCache)
	userID := uuid.New()

	p := tasks.NewTaskProcessor(&config.Config{}, nil, mockRating, mockDerived, &recordingNotifier{})

	summary := models.UserRatingSummary{UserID: userID, AverageRating: 4.5, TotalRatings: 2}
	mockRating.On("SummaryForUser", mock.Anything, userID).Return(summary, nil)
	mockDerived.On("SetRatingSummary", mock.Anything, summary).Return(nil)

	payload, err := json.Marshal(tasks.RatingSummaryPayload{UserID: userID.String()})
	assert.NoError(t, err)
	err = p.HandleRatingSummaryRefreshTask(context.Background(), asynq.NewTask(tasks.TypeRatingSummaryRefresh, payload))

	assert.NoError(t, err)
	mockRating.AssertExpectations(t)
	mockDerived.AssertExpectations(t)
}

func TestHandleRatingSummaryRefreshTask_ServiceError(t *testing.T) {
	mockRating := new(MockRatingService)
	mockDerived := new(MockDerivedCache)
	userID := uuid.New()

	p := tasks.NewTaskProcessor(&config.Config{}, nil, mockRating, mockDerived, &recordingNotifier{})

	mockRating.On("SummaryForUser", mock.Anything, userID).Return(models.UserRatingSummary{}, errors.New("db down"))

	payload, _ := json.Marshal(tasks.RatingSummaryPayload{UserID: userID.String()})
	err := p.HandleRatingSummaryRefreshTask(context.Background(), asynq.NewTask(tasks.TypeRatingSummaryRefresh, payload))

	assert.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry), "Transient store errors should be retried")
	mockDerived.AssertNotCalled(t, "SetRatingSummary", mock.Anything, mock.Anything)
}
