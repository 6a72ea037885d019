// Package eventbus implements a small fan-out publish/subscribe bus used to
// decouple the allocation engine from the notification emitter and other
// consumers.
package eventbus

import "sync"

// Event is an arbitrary domain event passed on the bus.
type Event any

// EventBus is the publish/subscribe contract consumed by the engine.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

const defaultBuffer = 16

// Bus is the default EventBus implementation. Publish never blocks: a
// subscriber that falls behind its buffer misses events rather than stalling
// the engine.
type Bus struct {
	mu     sync.RWMutex
	buffer int
	subs   []chan Event
	closed bool
}

// New creates a Bus with the default subscriber buffer.
func New() *Bus { return NewBuffered(defaultBuffer) }

// NewBuffered creates a Bus whose subscriber channels hold up to n events.
func NewBuffered(n int) *Bus {
	if n < 1 {
		n = 1
	}
	return &Bus{buffer: n}
}

// Publish delivers the event to every subscriber without blocking.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a subscriber and returns its channel. The channel is
// closed when the subscriber is removed or the bus shuts down.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, b.buffer)
	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subs = append(b.subs, ch)
	}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(sub <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, ch := range b.subs {
		if ch == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			if !b.closed {
				close(ch)
			}
			return
		}
	}
}

// Close closes all subscriber channels and rejects further publishes.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
	b.mu.Unlock()
}
