// Package notify is a small in-process fan-out of values to registered callbacks.
package notify

import "sync"

// Hub delivers published values to every live subscriber.
// Callbacks run on the publishing goroutine, outside the hub's lock,
// in subscription order.
type Hub[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]func(T)
	order  []uint64
}

// Handle releases one subscription.
type Handle struct {
	once    sync.Once
	release func()
}

// Unsubscribe stops further deliveries. It is safe to call more than once.
func (h *Handle) Unsubscribe() {
	if h == nil {
		return
	}
	h.once.Do(h.release)
}

// Subscribe registers fn and returns the handle that removes it.
func (h *Hub[T]) Subscribe(fn func(T)) *Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[uint64]func(T))
	}
	h.nextID++
	id := h.nextID
	h.subs[id] = fn
	h.order = append(h.order, id)

	return &Handle{release: func() { h.remove(id) }}
}

func (h *Hub[T]) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
	for i, v := range h.order {
		if v == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Publish calls every subscriber with v.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	fns := make([]func(T), 0, len(h.order))
	for _, id := range h.order {
		fns = append(fns, h.subs[id])
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len reports the number of live subscriptions.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
