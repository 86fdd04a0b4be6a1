package engine

import "sync"

// Bus fans immutable snapshots out to local consumers (UI views, the demo
// CLI). One bus exists per mirrored collection; every remote delivery is
// republished here after the mirror is replaced.
//
// Handlers receive the snapshot on the delivering goroutine and must not
// block. Consumers that need diffs compute them locally; the bus itself
// only ever carries full snapshots.
type Bus[T any] struct {
	mu      sync.Mutex
	subs    map[int]func(T)
	nextID  int
	last    T
	hasLast bool
}

// NewBus creates an empty bus.
func NewBus[T any]() *Bus[T] {
	return &Bus[T]{subs: map[int]func(T){}}
}

// Subscribe registers a handler. If a snapshot has already been published,
// the handler immediately receives the latest one, so late subscribers do
// not wait for the next remote change.
func (b *Bus[T]) Subscribe(h func(T)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = h
	replay, hasReplay := b.last, b.hasLast
	b.mu.Unlock()

	if hasReplay {
		h(replay)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers a snapshot to all handlers and retains it for late
// subscribers.
func (b *Bus[T]) Publish(snap T) {
	b.mu.Lock()
	b.last = snap
	b.hasLast = true
	hs := make([]func(T), 0, len(b.subs))
	for _, h := range b.subs {
		hs = append(hs, h)
	}
	b.mu.Unlock()

	for _, h := range hs {
		h(snap)
	}
}
