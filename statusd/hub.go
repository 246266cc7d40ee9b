// Package statusd exposes the engine's running state over HTTP: a JSON
// snapshot endpoint and a WebSocket stream of round-transition events, in
// the style of the corpus's own log-streaming server.
package statusd

import "sync"

// RoundEvent is one round-transition notification broadcast to subscribers.
type RoundEvent struct {
	Level  int    `json:"level"`
	QSPNID uint32 `json:"qspn_id"`
	Phase  string `json:"phase"`
}

// Hub fans a stream of RoundEvents out to every registered WebSocket
// client, mirroring the corpus's broadcast-worker pattern: registration is
// separate from the actual send so the send path never blocks on a single
// slow client.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]chan RoundEvent
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]chan RoundEvent)}
}

// Register adds a client channel under id; pass the same id to Unregister.
func (h *Hub) Register(id string, ch chan RoundEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[id] = ch
}

// Unregister removes a client.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
}

// ClientCount reports how many clients are currently subscribed.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast fans ev out to every registered client, dropping it for any
// client whose channel is full rather than blocking the round-transition
// caller.
func (h *Hub) Broadcast(ev RoundEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.clients {
		select {
		case ch <- ev:
		default:
		}
	}
}
