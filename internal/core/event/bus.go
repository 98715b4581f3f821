package event

import (
	"reflect"
	"sync"
)

// Bus is a typed publish/subscribe hub. Workers emit domain events
// (steps, captures, expiries) and the gateway fans them out to clients.
// Dispatch is synchronous: Emit calls every registered handler for the
// event's type before returning, so handlers must be cheap (queue a
// frame, never block on the socket).
type Bus struct {
	mu       sync.RWMutex
	handlers map[reflect.Type][]any
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[reflect.Type][]any)}
}

// Emit delivers an event to all handlers subscribed to its type.
func Emit[T any](b *Bus, event T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.mu.RLock()
	handlers := b.handlers[t]
	b.mu.RUnlock()
	for _, h := range handlers {
		h.(func(T))(event)
	}
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.handlers[t] = append(b.handlers[t], fn)
}
