package queue

import "context"

// EventPublisher sends change events to the other instances.
type EventPublisher interface {
	Publish(ctx context.Context, ev ChangeEvent) error
}

// Relay applies each event on this instance before forwarding it to
// the broker.  By the time a write request returns, its own instance
// has already invalidated cached reads and pushed to its clients; the
// broker only carries the event to everyone else.
type Relay struct {
	origin string
	local  func(ChangeEvent)
	remote EventPublisher
}

// NewRelay stamps events with origin, runs local synchronously and then
// publishes to remote.  Either side may be nil.
func NewRelay(origin string, local func(ChangeEvent), remote EventPublisher) *Relay {
	return &Relay{origin: origin, local: local, remote: remote}
}

// Publish applies ev locally, then forwards it.  Only the forward can
// fail.
func (r *Relay) Publish(ctx context.Context, ev ChangeEvent) error {
	ev.Origin = r.origin
	if r.local != nil {
		r.local(ev)
	}
	if r.remote == nil {
		return nil
	}
	return r.remote.Publish(ctx, ev)
}
