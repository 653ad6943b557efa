package service

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/team-presence/internal/queue"
)

// Notifier announces committed changes to other viewers.
type Notifier interface {
	Publish(ctx context.Context, ev queue.ChangeEvent) error
}

// notify publishes ev after a successful write.  A failed publish is
// logged and never fails the write that triggered it.
func notify(ctx context.Context, n Notifier, ev queue.ChangeEvent) {
	if n == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	if err := n.Publish(ctx, ev); err != nil {
		log.Printf("presence: publish %s/%s for user %d on %s failed: %v", ev.Table, ev.Op, ev.UserID, ev.Date, err)
	}
}
