package feed

import (
	"sync"

	"github.com/zhouzirui/contact-desk/backend/internal/metrics"
	"github.com/zhouzirui/contact-desk/backend/internal/model/contact"
)

// Hub fans accepted messages out to live subscribers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uint64]chan contact.Message
	nextID      uint64
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[uint64]chan contact.Message)}
}

// Subscribe registers a subscriber with the given buffer size. The returned
// cancel func must be called to release it; it closes the channel.
func (h *Hub) Subscribe(buffer int) (<-chan contact.Message, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan contact.Message, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subscribers[id] = ch
	h.mu.Unlock()
	metrics.LiveSubscribers.Inc()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, id)
			h.mu.Unlock()
			close(ch)
			metrics.LiveSubscribers.Dec()
		})
	}
	return ch, cancel
}

// Publish delivers msg to every subscriber without blocking. Slow
// subscribers miss messages rather than stall intake.
func (h *Hub) Publish(msg contact.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
