// Package ws provides WebSocket connection handling and message routing.
package ws

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ConnState is the lifecycle state of a client connection.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Client represents a WebSocket client connection.
type Client struct {
	id         string
	conn       *websocket.Conn
	send       chan []byte
	mu         sync.Mutex
	state      ConnState
	lastActive atomic.Int64
}

// NewClient creates a new WebSocket client in the connecting state.
func NewClient(conn *websocket.Conn, sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	c := &Client{
		id:    uuid.New().String(),
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		state: StateConnecting,
	}
	c.Touch()
	return c
}

// ID returns the connection id used in logs.
func (c *Client) ID() string {
	return c.id
}

// Send queues a message to be sent to the client.
// It returns false when the client is not open or its buffer is full;
// a full buffer closes the client.
func (c *Client) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateOpen {
		return false
	}

	select {
	case c.send <- data:
		return true
	default:
		// Slow peer, give up on it
		c.closeLocked()
		return false
	}
}

// Close moves the client to closing and stops its write pump.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.state >= StateClosing {
		return
	}
	c.state = StateClosing
	close(c.send)
}

// markOpen moves a connecting client to open and reports whether the
// client is open afterwards.
func (c *Client) markOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateConnecting {
		c.state = StateOpen
	}
	return c.state == StateOpen
}

func (c *Client) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	c.state = StateClosed
}

// State returns the current lifecycle state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsOpen returns true if the client can receive messages.
func (c *Client) IsOpen() bool {
	return c.State() == StateOpen
}

// Touch records inbound activity.
func (c *Client) Touch() {
	c.lastActive.Store(time.Now().UnixNano())
}

// LastActive returns the time of the last inbound activity.
func (c *Client) LastActive() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

// Conn returns the underlying WebSocket connection.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

// SendChan returns the send channel for the client.
func (c *Client) SendChan() <-chan []byte {
	return c.send
}

// Hub is the registry of open client connections.
type Hub struct {
	clients map[*Client]struct{}
	mu      sync.RWMutex
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
	}
}

// Register opens the client and makes it a broadcast target.
// A client that is already closing or closed is not added; Register
// reports whether the client was added.
func (h *Hub) Register(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !client.markOpen() {
		return false
	}
	h.clients[client] = struct{}{}
	return true
}

// Unregister removes a client from the hub and closes it.
// It is safe to call more than once and for clients that were never registered.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()

	client.markClosed()
}

// Snapshot returns the registered clients at this instant.
func (h *Hub) Snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// BroadcastExcluding sends data to every open client except origin.
// A nil origin sends to everyone. Clients that cannot take the message are
// removed once the iteration is done. It returns the number of deliveries.
func (h *Hub) BroadcastExcluding(data []byte, origin *Client) int {
	var stale []*Client
	delivered := 0

	for _, client := range h.Snapshot() {
		if client == origin {
			continue
		}
		if client.Send(data) {
			delivered++
		} else {
			stale = append(stale, client)
		}
	}

	for _, client := range stale {
		h.Unregister(client)
	}
	return delivered
}

// Broadcast sends data to all registered clients.
func (h *Hub) Broadcast(data []byte) int {
	return h.BroadcastExcluding(data, nil)
}

// BroadcastJSON marshals v and sends it to all registered clients.
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(data)
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close closes all client connections.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for _, client := range clients {
		client.markClosed()
	}
}
