package model

import "sync"

// broadcaster fans snapshots out to subscribers. Listeners are called on the
// goroutine that committed the change, after the owner released its lock.
//
// Owners stamp each snapshot while still holding their own lock, so stamps
// follow commit order. Delivery is serialized and a snapshot older than the
// last one delivered is dropped: listeners see snapshots in commit order and
// the last one they see is the latest. A listener must not synchronously
// change the owner that notified it.
type broadcaster[T any] struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]func(T)
	stamped   uint64

	deliver   sync.Mutex
	delivered uint64
}

func (b *broadcaster[T]) subscribe(fn func(T)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.listeners == nil {
		b.listeners = make(map[int]func(T))
	}
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

// stamp returns the sequence number for a snapshot taken under the owner's lock.
func (b *broadcaster[T]) stamp() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stamped++
	return b.stamped
}

// publish delivers v unless a snapshot with a later stamp already went out.
func (b *broadcaster[T]) publish(seq uint64, v T) {
	b.deliver.Lock()
	defer b.deliver.Unlock()

	if seq <= b.delivered {
		return
	}
	b.delivered = seq

	b.mu.Lock()
	listeners := make([]func(T), 0, len(b.listeners))
	for _, fn := range b.listeners {
		listeners = append(listeners, fn)
	}
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(v)
	}
}

// notify stamps and publishes in one step, for values that carry no state.
func (b *broadcaster[T]) notify(v T) {
	b.publish(b.stamp(), v)
}

func (b *broadcaster[T]) clear() {
	b.mu.Lock()
	b.listeners = nil
	b.mu.Unlock()
}
