package realtime

import (
	"context"
	"encoding/json"
)

// Handler receives the JSON-encoded payload of one event delivery.
type Handler func(ctx context.Context, payload json.RawMessage)

// Subscription identifies one attached handler so it can be detached.
type Subscription struct {
	event string
	id    int
}

// Channel is the bidirectional real-time event boundary. Implementations
// deliver events at most once; consumers de-duplicate.
type Channel interface {
	// Emit publishes an event. The payload is JSON-encoded before delivery.
	Emit(ctx context.Context, event string, payload any) error
	// On attaches a handler for an event and returns its subscription.
	On(event string, handler Handler) Subscription
	// Off detaches a previously attached handler. Detaching never signals
	// the other side of the channel.
	Off(sub Subscription)
	Close() error
}
