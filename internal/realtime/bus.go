package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Bus is an in-process Channel. Handlers run synchronously on the emitting
// goroutine, so delivery order matches emit order.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[string]map[int]Handler
	closed   bool
	logger   *slog.Logger
}

// NewBus creates an empty in-process channel.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		handlers: make(map[string]map[int]Handler),
		logger:   logger,
	}
}

func (b *Bus) Emit(ctx context.Context, event string, payload any) error {
	raw, err := encodePayload(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", event, err)
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("channel closed")
	}
	attached := make([]Handler, 0, len(b.handlers[event]))
	for _, h := range b.handlers[event] {
		attached = append(attached, h)
	}
	b.mu.RUnlock()

	for _, h := range attached {
		h(ctx, raw)
	}
	return nil
}

func (b *Bus) On(event string, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	if b.handlers[event] == nil {
		b.handlers[event] = make(map[int]Handler)
	}
	b.handlers[event][b.nextID] = handler
	return Subscription{event: event, id: b.nextID}
}

func (b *Bus) Off(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers[sub.event], sub.id)
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = make(map[string]map[int]Handler)
	return nil
}

func encodePayload(payload any) (json.RawMessage, error) {
	switch v := payload.(type) {
	case json.RawMessage:
		return v, nil
	case []byte:
		return json.RawMessage(v), nil
	default:
		return json.Marshal(payload)
	}
}
