// Package memory provides the in-process event bus.
package memory

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"ideaclient/application/ports"
	"ideaclient/domain/events"
)

type subscription struct {
	id      uint64
	handler ports.EventHandler
}

// Bus manages event subscriptions and publishing.
// Handlers run synchronously on the publishing goroutine, in subscription order.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]subscription
	nextID   uint64
	logger   *zap.Logger
}

// NewBus creates a new event bus instance
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		handlers: make(map[string][]subscription),
		logger:   logger,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType string, handler ports.EventHandler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[eventType] = append(b.handlers[eventType], subscription{id: id, handler: handler})
	total := len(b.handlers[eventType])
	b.mu.Unlock()

	b.logger.Debug("Event handler subscribed",
		zap.String("event_type", eventType),
		zap.Int("total_handlers", total))

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(eventType, id) })
	}
}

func (b *Bus) unsubscribe(eventType string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[eventType]
	for i, sub := range subs {
		if sub.id == id {
			b.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.handlers[eventType]) == 0 {
		delete(b.handlers, eventType)
	}
}

// Publish sends an event to every handler registered for its type.
// Errors from handlers are logged but don't stop other handlers from executing.
func (b *Bus) Publish(ctx context.Context, event events.Event) error {
	b.mu.RLock()
	subs := append([]subscription(nil), b.handlers[event.GetEventType()]...)
	b.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.handler(ctx, event); err != nil {
			b.logger.Error("Event handler failed",
				zap.String("event_type", event.GetEventType()),
				zap.String("aggregate_id", event.GetAggregateID()),
				zap.Error(err))
		}
	}
	return nil
}

// HandlerCount returns the number of handlers for a given event type
func (b *Bus) HandlerCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}

// Clear removes all registered handlers
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[string][]subscription)
}
