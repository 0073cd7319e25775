package notify

import (
	"context"
	"fmt"
	"strings"
)

// CompositeNotifier fans a notification out to multiple delivery paths.
type CompositeNotifier struct {
	notifiers []Notifier
}

// NewCompositeNotifier creates a CompositeNotifier. The concrete type is
// returned so callers can keep adding delivery paths.
func NewCompositeNotifier(notifiers ...Notifier) *CompositeNotifier {
	return &CompositeNotifier{notifiers: notifiers}
}

// AddNotifier appends a delivery path.
func (c *CompositeNotifier) AddNotifier(n Notifier) {
	if n != nil {
		c.notifiers = append(c.notifiers, n)
	}
}

// Notify delivers through every registered path, collecting failures into
// a single error so one failing path does not hide the others.
func (c *CompositeNotifier) Notify(ctx context.Context, n Notification) error {
	if len(c.notifiers) == 0 {
		return fmt.Errorf("no notifiers configured")
	}

	var failures []string
	for _, notifier := range c.notifiers {
		if err := notifier.Notify(ctx, n); err != nil {
			failures = append(failures, err.Error())
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("notification delivery failed: [ %s ]", strings.Join(failures, "; "))
	}
	return nil
}
