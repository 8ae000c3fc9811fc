// Package ports defines the EventBus interface for event-driven communication.
// The event bus replaces callbacks and enables loose coupling between the
// state store, the sync service and UI surfaces.
package ports

import (
	"github.com/cuedeck/cuedeck/internal/domain"
)

// EventBus is the interface for publishing and subscribing to events.
//
// The bus decouples event producers (the store) from consumers (sync service,
// UI surfaces). Multiple subscribers can listen to the same event type, and
// subscribers don't know about publishers.
//
// Thread-safety: implementations must be thread-safe as events may be
// published and subscribed from multiple goroutines simultaneously.
type EventBus interface {
	// Publish delivers an event to all subscribers of its type.
	// Handlers should process events quickly; for synchronous
	// implementations a slow handler blocks delivery.
	Publish(event domain.Event)

	// Subscribe registers a handler for events of the specified type.
	// The same handler can be registered multiple times; each subscription
	// gets a unique ID.
	Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID

	// SubscribeOnce registers a handler that is removed after its first
	// delivery.
	SubscribeOnce(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID

	// Unsubscribe removes a previously registered handler.
	// Unknown or already-removed IDs are a no-op.
	Unsubscribe(id domain.SubscriptionID)

	// SubscribeAll registers a handler that receives every event regardless
	// of type. Useful for logging and debugging.
	SubscribeAll(handler domain.EventHandler) domain.SubscriptionID

	// HasSubscribers reports whether anyone is listening for the given type.
	HasSubscribers(eventType domain.EventType) bool

	// Close shuts down the bus and clears all subscriptions.
	Close() error
}
