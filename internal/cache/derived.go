package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/AgronAfrica/LeedsLink/internal/models"
)

// ErrMiss is returned when a derived value is not cached.
var ErrMiss = errors.New("cache miss")

// DerivedStore caches recomputed aggregates (match counts, rating
// summaries) in Redis. The engine itself never reads these; they exist so
// the notification path can compare "before" and "after" counts, and so
// read-heavy endpoints can skip recomputation within the TTL window.
type DerivedStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewDerivedStore creates a DerivedStore with the given entry TTL.
// A zero TTL means entries never expire.
func NewDerivedStore(rdb *redis.Client, ttl time.Duration) *DerivedStore {
	return &DerivedStore{rdb: rdb, ttl: ttl}
}

func matchCountKey(userID uuid.UUID) string {
	return fmt.Sprintf("matchcount:%s", userID)
}

func summaryKey(userID uuid.UUID) string {
	return fmt.Sprintf("ratingsummary:%s", userID)
}

// MatchCount returns the cached match count for a user, or ErrMiss.
func (s *DerivedStore) MatchCount(ctx context.Context, userID uuid.UUID) (int, error) {
	n, err := s.rdb.Get(ctx, matchCountKey(userID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, ErrMiss
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cached match count: %w", err)
	}
	return n, nil
}

// SetMatchCount stores a user's match count. Match counts deliberately do
// not expire: the recount task needs the previous value to detect growth.
func (s *DerivedStore) SetMatchCount(ctx context.Context, userID uuid.UUID, count int) error {
	if err := s.rdb.Set(ctx, matchCountKey(userID), count, 0).Err(); err != nil {
		return fmt.Errorf("failed to cache match count: %w", err)
	}
	return nil
}

// RatingSummary returns the cached summary for a user, or ErrMiss.
func (s *DerivedStore) RatingSummary(ctx context.Context, userID uuid.UUID) (*models.UserRatingSummary, error) {
	data, err := s.rdb.Get(ctx, summaryKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached rating summary: %w", err)
	}
	var summary models.UserRatingSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to decode cached rating summary: %w", err)
	}
	return &summary, nil
}

// SetRatingSummary stores a freshly computed summary with the store's TTL.
func (s *DerivedStore) SetRatingSummary(ctx context.Context, summary models.UserRatingSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode rating summary: %w", err)
	}
	if err := s.rdb.Set(ctx, summaryKey(summary.UserID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache rating summary: %w", err)
	}
	return nil
}
