// Package realtime pushes document change events to connected dashboards.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/metrics"
)

// Event is one change notification.
type Event struct {
	Type       string `json:"type"`
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Data       any    `json:"data,omitempty"`
}

// Publisher is implemented by Hub. Services depend on it so they can run without one.
type Publisher interface {
	Publish(evt Event)
}

// Hub maintains the set of active clients and broadcasts events to them.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	metrics    *metrics.Metrics
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		metrics:    m,
	}
}

// Run is the hub's main loop. It owns the client set and must be called once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.metrics.ClientConnected(1)

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.metrics.ClientConnected(-1)
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow client: drop it rather than stall everyone.
					delete(h.clients, c)
					close(c.send)
					h.metrics.ClientConnected(-1)
				}
			}
		}
	}
}

// attach hands c to the running hub. It reports false once the hub stopped.
func (h *Hub) attach(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// detach removes c unless the hub already stopped and closed every client.
func (h *Hub) detach(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish queues an event for broadcast. It never blocks; events are dropped
// when the broadcast buffer is full.
func (h *Hub) Publish(evt Event) {
	msg, err := json.Marshal(evt)
	if err != nil {
		slog.Warn("realtime event not serializable", "type", evt.Type, "error", err)
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		slog.Warn("realtime broadcast buffer full, event dropped", "type", evt.Type, "id", evt.ID)
	}
}

// Discard is a Publisher that drops every event.
type Discard struct{}

func (Discard) Publish(Event) {}
