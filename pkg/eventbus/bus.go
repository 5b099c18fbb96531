// Package eventbus is an in-process fan-out of events to filtered subscribers.
package eventbus

import (
	"sync"
	"sync/atomic"
)

type subscriber[T any] struct {
	ch    chan T
	match func(T) bool
}

// Bus delivers every published event to each subscriber whose filter matches.
// Delivery never blocks the publisher: a subscriber with a full buffer misses
// the event and the drop is counted.
type Bus[T any] struct {
	mu      sync.RWMutex
	subs    map[uint64]*subscriber[T]
	nextID  uint64
	closed  bool
	dropped atomic.Uint64
}

func New[T any]() *Bus[T] {
	return &Bus[T]{
		subs: make(map[uint64]*subscriber[T]),
	}
}

// Subscribe registers a subscriber. A nil match receives everything. The
// returned cancel func closes the channel and is safe to call repeatedly.
func (b *Bus[T]) Subscribe(match func(T) bool, buffer int) (<-chan T, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan T, buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = &subscriber[T]{ch: ch, match: match}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if s, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(s.ch)
			}
		})
	}
}

// Publish fans ev out to matching subscribers.
func (b *Bus[T]) Publish(ev T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, s := range b.subs {
		if s.match != nil && !s.match(ev) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

// Len returns the number of active subscribers.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped on full buffers.
func (b *Bus[T]) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes every subscriber channel. Later subscriptions get a closed channel.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, s := range b.subs {
		close(s.ch)
		delete(b.subs, id)
	}
}
