package bus

import (
	"context"
	"sync"
)

// Bus routes events to topic subscribers. Emission is buffered and
// decoupled from handler execution; a single Dispatch loop invokes
// handlers in emission order.
type Bus struct {
	events chan Event

	mu       sync.RWMutex
	handlers map[string][]Handler
}

// New creates a bus with a buffered event queue.
func New() *Bus {
	return &Bus{
		events:   make(chan Event, 100),
		handlers: make(map[string][]Handler),
	}
}

// Emit publishes an event. It blocks only if the queue is full.
func (b *Bus) Emit(evt Event) {
	b.events <- evt
}

// On registers a handler for a topic for the lifetime of the process,
// or until Off is called for that topic.
func (b *Bus) On(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

// Off removes every handler registered for a topic.
func (b *Bus) Off(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, topic)
}

// Dispatch runs the dispatch loop. Blocks until ctx is cancelled.
func (b *Bus) Dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-b.events:
			b.mu.RLock()
			subs := b.handlers[evt.Type]
			b.mu.RUnlock()
			for _, h := range subs {
				h(evt)
			}
		}
	}
}

// Pending returns the number of queued, not yet dispatched events.
func (b *Bus) Pending() int {
	return len(b.events)
}
