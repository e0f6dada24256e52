package sse

import (
	"log/slog"
	"sync"
)

const defaultBuffer = 16

// Event is one server-sent event. ID increases across the hub.
type Event struct {
	ID    uint64
	Event string
	Data  interface{}
}

// Hub fans events out to the subscribers of a topic (one topic per report session).
type Hub struct {
	mu          sync.RWMutex
	seq         uint64
	buffer      int
	subscribers map[string]map[chan Event]struct{}
}

// NewHub creates a Hub whose subscriber channels hold buffer events (16 when <= 0).
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		buffer:      buffer,
		subscribers: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers a subscriber for topic and returns its channel and an
// idempotent cleanup function.
func (h *Hub) Subscribe(topic string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.buffer)
	if h.subscribers[topic] == nil {
		h.subscribers[topic] = make(map[chan Event]struct{})
	}
	h.subscribers[topic][ch] = struct{}{}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.removeLocked(topic, ch)
		})
	}

	return ch, cleanup
}

// Publish sends an event to every subscriber of topic and returns its id. A
// subscriber whose buffer is full misses the event.
func (h *Hub) Publish(topic string, name string, data interface{}) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	event := Event{ID: h.seq, Event: name, Data: data}

	for ch := range h.subscribers[topic] {
		select {
		case ch <- event:
		default:
			slog.Debug("SSE subscriber buffer full, event dropped", "topic", topic, "event", name, "id", event.ID)
		}
	}
	return event.ID
}

// Close disconnects every subscriber of topic.
func (h *Hub) Close(topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers[topic] {
		h.removeLocked(topic, ch)
	}
}

func (h *Hub) removeLocked(topic string, ch chan Event) {
	subs, ok := h.subscribers[topic]
	if !ok {
		return
	}
	if _, ok := subs[ch]; !ok {
		return
	}
	delete(subs, ch)
	close(ch)
	if len(subs) == 0 {
		delete(h.subscribers, topic)
	}
}

// SubscriberCount returns the number of active subscribers for a topic
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[topic])
}
