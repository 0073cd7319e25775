package notify

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// Kind identifies why a notification was raised.
type Kind string

const (
	KindNewMatches        Kind = "new_matches"
	KindLocalPartnerBadge Kind = "local_partner_badge"
	KindNewMessage        Kind = "new_message"
)

// Notification is a user-facing alert. The engine only decides whether one
// should be raised; composing and delivering it is this package's job.
type Notification struct {
	UserID    uuid.UUID `json:"user_id"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier delivers notifications. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the application log. It is the
// default delivery path when no push transport is configured.
type LogNotifier struct{}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier() Notifier {
	return &LogNotifier{}
}

// Notify logs the notification instead of delivering it.
func (s *LogNotifier) Notify(ctx context.Context, n Notification) error {
	log.Printf("notify user=%s kind=%s title=%q body=%q", n.UserID, n.Kind, n.Title, n.Body)
	return nil
}
