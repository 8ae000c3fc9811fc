// Package eventbus provides implementations of the EventBus interface.
// This package contains the synchronous event bus implementation, which also
// serves as the per-engine event emitter.
package eventbus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/cuedeck/cuedeck/internal/domain"
	"github.com/cuedeck/cuedeck/internal/ports"
)

// SyncEventBus is a synchronous implementation of the EventBus interface.
// Events are delivered to handlers in the order they were subscribed, on the
// publishing goroutine.
//
// Thread-safety: multiple goroutines can publish events and subscribe or
// unsubscribe handlers concurrently. One-shot subscriptions are removed
// before their handler runs, so a handler that publishes further events
// cannot be delivered twice.
type SyncEventBus struct {
	logger *slog.Logger

	// subscribers map event types to their subscriptions
	subscribers map[domain.EventType][]subscription

	// allSubscribers receive every event
	allSubscribers []subscription

	mu     sync.RWMutex
	closed bool
}

// a subscription represents a single event subscription.
type subscription struct {
	id      domain.SubscriptionID
	handler domain.EventHandler
	once    bool
}

// NewSyncEventBus creates a new synchronous event bus.
func NewSyncEventBus() *SyncEventBus {
	return &SyncEventBus{
		subscribers:    make(map[domain.EventType][]subscription),
		allSubscribers: make([]subscription, 0),
	}
}

// SetLogger sets the logger for this event bus.
// Call after construction, before publishing.
func (bus *SyncEventBus) SetLogger(logger *slog.Logger) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.logger = logger
}

// Publish delivers an event to all subscribers of its type, then to wildcard
// subscribers. One-shot subscriptions are detached before their handler runs.
//
// Panics in handlers are recovered and logged, but do not stop other handlers
// from being called. Publishing on a closed bus does nothing.
func (bus *SyncEventBus) Publish(event domain.Event) {
	if event == nil {
		return
	}

	bus.mu.Lock()
	if bus.closed {
		bus.mu.Unlock()
		return
	}

	eventType := event.Type()

	typeSubscribers := make([]subscription, len(bus.subscribers[eventType]))
	copy(typeSubscribers, bus.subscribers[eventType])

	wildcardSubscribers := make([]subscription, len(bus.allSubscribers))
	copy(wildcardSubscribers, bus.allSubscribers)

	// Drop one-shot subscriptions before releasing the lock so a concurrent
	// publish cannot deliver to them again.
	remaining := bus.subscribers[eventType][:0]
	for _, sub := range bus.subscribers[eventType] {
		if !sub.once {
			remaining = append(remaining, sub)
		}
	}
	bus.subscribers[eventType] = remaining
	bus.mu.Unlock()

	for _, sub := range typeSubscribers {
		bus.callHandler(sub.handler, event)
	}
	for _, sub := range wildcardSubscribers {
		bus.callHandler(sub.handler, event)
	}
}

// callHandler calls an event handler and recovers from panics.
func (bus *SyncEventBus) callHandler(handler domain.EventHandler, event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			if bus.logger != nil {
				bus.logger.Error("event handler panicked",
					slog.Any("panic", r),
					slog.String("event_type", string(event.Type())))
			}
		}
	}()

	handler(event)
}

// Subscribe registers a handler for events of the specified type.
// Returns a unique subscription ID that can be used to unsubscribe.
func (bus *SyncEventBus) Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID {
	return bus.subscribe(eventType, handler, false)
}

// SubscribeOnce registers a handler that is removed after its first delivery.
func (bus *SyncEventBus) SubscribeOnce(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID {
	return bus.subscribe(eventType, handler, true)
}

func (bus *SyncEventBus) subscribe(eventType domain.EventType, handler domain.EventHandler, once bool) domain.SubscriptionID {
	if handler == nil {
		panic("event handler cannot be nil")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		panic("cannot subscribe to closed event bus")
	}

	id := domain.SubscriptionID(uuid.NewString())
	bus.subscribers[eventType] = append(bus.subscribers[eventType], subscription{
		id:      id,
		handler: handler,
		once:    once,
	})

	return id
}

// Unsubscribe removes a previously registered event handler.
// If the subscription ID is invalid or already removed, this is a no-op.
func (bus *SyncEventBus) Unsubscribe(id domain.SubscriptionID) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	for eventType, subs := range bus.subscribers {
		for i, sub := range subs {
			if sub.id == id {
				bus.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}

	for i, sub := range bus.allSubscribers {
		if sub.id == id {
			bus.allSubscribers = append(bus.allSubscribers[:i], bus.allSubscribers[i+1:]...)
			return
		}
	}
}

// SubscribeAll registers a handler that receives all events regardless of type.
func (bus *SyncEventBus) SubscribeAll(handler domain.EventHandler) domain.SubscriptionID {
	if handler == nil {
		panic("event handler cannot be nil")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		panic("cannot subscribe to closed event bus")
	}

	id := domain.SubscriptionID(uuid.NewString())
	bus.allSubscribers = append(bus.allSubscribers, subscription{
		id:      id,
		handler: handler,
	})

	return id
}

// HasSubscribers returns true if there are any active subscriptions for the
// given event type.
func (bus *SyncEventBus) HasSubscribers(eventType domain.EventType) bool {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	if len(bus.subscribers[eventType]) > 0 {
		return true
	}
	return len(bus.allSubscribers) > 0
}

// Close shuts down the event bus and clears all subscriptions.
// Returns an error if already closed.
func (bus *SyncEventBus) Close() error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		return fmt.Errorf("event bus already closed")
	}

	bus.closed = true
	bus.subscribers = make(map[domain.EventType][]subscription)
	bus.allSubscribers = make([]subscription, 0)

	return nil
}

// SubscriberCount returns the number of active subscriptions for debugging.
func (bus *SyncEventBus) SubscriberCount() int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	count := len(bus.allSubscribers)
	for _, subs := range bus.subscribers {
		count += len(subs)
	}
	return count
}

// Verify that SyncEventBus implements the EventBus interface
var _ ports.EventBus = (*SyncEventBus)(nil)
