package watch

import (
	"sync"
	"time"
)

// Event types published on the hub.
const (
	EventTeamRegistered = "team_registered"
	EventGroupAdded     = "group_added"
	EventTitleAdded     = "title_added"
)

// Event is one change notification streamed to admin watchers.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
	At   time.Time   `json:"at"`
}

// subscriberBuffer is the per-subscriber channel depth. A watcher that
// falls further behind than this starts losing events rather than
// blocking publishers.
const subscriberBuffer = 16

// Hub fans change events out to connected admin watchers. Publishing
// never blocks: slow subscribers drop events.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe registers a watcher. The returned cancel function must be
// called when the watcher disconnects.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++

	ch := make(chan Event, subscriberBuffer)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}

	return ch, cancel
}

// Publish delivers event to every subscriber, dropping it for watchers
// whose buffer is full.
func (h *Hub) Publish(eventType string, data interface{}) {
	event := Event{Type: eventType, Data: data, At: time.Now().UTC()}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribers returns the number of connected watchers
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
