package telemetry

import (
	"sync"
	"time"
)

// Event is one station lifecycle fact: a connect attempt outcome, an IP
// acquisition, a disconnect, a scan completion.
type Event struct {
	ID   int64          `json:"id"`
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
	TS   time.Time      `json:"ts"`
}

// Hub fans lifecycle events out to subscribers and retains a bounded
// ring of recent events for late joiners.
//
// Publish never blocks: the station manager's event bridge calls it from
// driver callback context, so a slow subscriber loses events rather than
// stalling the publisher.
type Hub struct {
	mu      sync.RWMutex
	seq     int64
	ring    []Event
	cap     int
	subs    map[int]chan Event
	nextSub int
	closed  bool
}

// NewHub creates a hub retaining up to capacity recent events.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 50
	}
	return &Hub{
		cap:  capacity,
		subs: make(map[int]chan Event),
	}
}

// Publish records an event and delivers it to every subscriber whose
// channel has room.
func (h *Hub) Publish(typ string, data map[string]any) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.seq++
	ev := Event{
		ID:   h.seq,
		Type: typ,
		Data: data,
		TS:   time.Now().UTC(),
	}
	h.ring = append(h.ring, ev)
	if len(h.ring) > h.cap {
		h.ring = h.ring[len(h.ring)-h.cap:]
	}
	subs := make([]chan Event, 0, len(h.subs))
	for _, ch := range h.subs {
		subs = append(subs, ch)
	}
	h.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a new subscriber. The returned cancel func must be
// called when done; the channel is closed by it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 64)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextSub
	h.nextSub++
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Recent returns a copy of the retained events, oldest first.
func (h *Hub) Recent() []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Event, len(h.ring))
	copy(out, h.ring)
	return out
}

// Close stops the hub and closes all subscriber channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
