package bookings

import "sync"

// Hub fans change notifications out to subscriptions. Signals coalesce:
// a subscriber that has not consumed the previous signal is not sent
// another, it will re-read the store anyway.
type Hub struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]chan struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[uint64]chan struct{}{}}
}

// Subscribe registers a listener. The returned func unregisters it and is
// safe to call more than once.
func (h *Hub) Subscribe() (<-chan struct{}, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	id := h.next
	ch := make(chan struct{}, 1)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Publish signals every listener without blocking.
func (h *Hub) Publish() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Len returns the number of registered listeners.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
