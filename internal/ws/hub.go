// Package ws maintains WebSocket subscriptions and fans marketplace events
// out to connected clients. Clients only listen; all mutations go through
// the HTTP API, and the hub tells everyone else what changed.
package ws

import (
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
)

// Event is a broadcast payload pushed to every subscriber.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Event types pushed by the API layer.
const (
	EventListingCreated = "listing_created"
	EventListingDeleted = "listing_deleted"
	EventRatingUpdated  = "rating_updated"
	EventNewMessage     = "new_message"
)

// client is a single subscriber. The write mutex serializes outbound frames
// so concurrent broadcasts do not interleave bytes.
type client struct {
	id      uuid.UUID
	conn    net.Conn
	writeMu sync.Mutex
}

func (c *client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wsutil.WriteServerMessage(c.conn, ws.OpText, data)
}

// Hub is a thread-safe registry of WebSocket subscribers.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*client
}

// NewHub creates an empty Hub ready for use.
func NewHub() *Hub {
	return &Hub{clients: make(map[uuid.UUID]*client)}
}

// Count returns the current number of subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	n := len(h.clients)
	h.mu.RUnlock()
	return n
}

// HandleUpgrade upgrades an HTTP request to a WebSocket subscription and
// starts a reader goroutine for it. The reader only consumes control frames;
// data frames from clients are ignored.
func (h *Hub) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}

	c := &client{id: uuid.New(), conn: conn}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	log.Printf("ws: new subscriber %s (total=%d)", c.id, h.Count())
	go h.readLoop(c)
}

// readLoop drains inbound frames until the peer closes or errors out. Any
// read failure drops the subscription.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c.id)
	for {
		header, reader, err := wsutil.NextReader(c.conn, ws.StateServerSide)
		if err != nil {
			return
		}
		if header.OpCode == ws.OpClose {
			return
		}
		if _, err := io.Copy(io.Discard, reader); err != nil {
			return
		}
	}
}

func (h *Hub) remove(id uuid.UUID) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	h.mu.Unlock()

	if ok {
		_ = c.conn.Close()
		log.Printf("ws: subscriber %s disconnected (total=%d)", id, h.Count())
	}
}

// Broadcast pushes an event to every subscriber. Write failures drop the
// failing subscriber; everyone else still receives the event.
func (h *Hub) Broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("ws: failed to marshal event %q: %v", event.Type, err)
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			h.remove(c.id)
		}
	}
}

// Shutdown closes every subscription. Clients are expected to reconnect.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[uuid.UUID]*client)
	h.mu.Unlock()

	deadline := time.Now().Add(2 * time.Second)
	for _, c := range clients {
		_ = c.conn.SetWriteDeadline(deadline)
		_ = wsutil.WriteServerMessage(c.conn, ws.OpClose, nil)
		_ = c.conn.Close()
	}
}
