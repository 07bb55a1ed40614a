// Package stream pushes audit events to websocket subscribers, the live
// feed consumed by monitoring and reporting.
package stream

import (
	"encoding/json"
	"sync"

	"coreledger/internal/audit"
)

type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
}

// BroadcastEvent fans an audit event out to every subscriber. Slow clients
// drop messages rather than blocking the ledger path.
func (h *Hub) BroadcastEvent(event audit.Event) {
	payload, _ := json.Marshal(event)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
		}
	}
}
