package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisNotifier stores notifications in Redis instead of delivering them.
// Integration tests poll the key to assert that a notification was raised;
// the TTL keeps the mock inbox from accumulating.
type RedisNotifier struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisNotifier creates a RedisNotifier with a 5 minute inbox TTL.
func NewRedisNotifier(client *redis.Client) Notifier {
	return &RedisNotifier{client: client, ttl: 5 * time.Minute}
}

// Key returns the Redis key a notification of the given kind for the given
// user is stored under.
func Key(userID, kind string) string {
	return fmt.Sprintf("mocknotify:%s:%s", userID, kind)
}

// Notify stores the notification as JSON under a per-user, per-kind key.
func (s *RedisNotifier) Notify(ctx context.Context, n Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	key := Key(n.UserID.String(), string(n.Kind))
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store notification in Redis key %q: %w", key, err)
	}
	return nil
}
