package ws

import (
	"context"
	"log"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Default maximum message size allowed from peer. Image frames are large.
	defaultMaxMessageSize = 1 << 20
)

// HandlerOptions configures connection handling.
type HandlerOptions struct {
	MaxMessageSize int64
	SendBuffer     int
	// AllowedOrigins restricts the Origin header. Empty allows any origin.
	AllowedOrigins []string
}

// Handler upgrades HTTP requests and runs the per-connection pumps.
type Handler struct {
	hub        *Hub
	dispatcher *Dispatcher
	upgrader   websocket.Upgrader
	opts       HandlerOptions
	ctx        context.Context
}

// NewHandler creates a new WebSocket handler.
func NewHandler(ctx context.Context, hub *Hub, dispatcher *Dispatcher, opts HandlerOptions) *Handler {
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = defaultMaxMessageSize
	}
	h := &Handler{
		hub:        hub,
		dispatcher: dispatcher,
		opts:       opts,
		ctx:        ctx,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(h.opts.AllowedOrigins, r.Header.Get("Origin"))
}

// HandleConnection upgrades the request and registers the new client.
// On upgrade failure the upgrader has already replied to the request.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := NewClient(conn, h.opts.SendBuffer)
	h.hub.Register(client)
	log.Printf("Client connected: %s (%s), %d connected", client.ID(), r.RemoteAddr, h.hub.ClientCount())

	go h.writePump(client)
	go h.readPump(client)

	return nil
}

// readPump handles frames from one client strictly in arrival order.
func (h *Handler) readPump(client *Client) {
	defer func() {
		h.hub.Unregister(client)
		client.Conn().Close()
		log.Printf("Client disconnected: %s, %d connected", client.ID(), h.hub.ClientCount())
	}()

	client.Conn().SetReadLimit(h.opts.MaxMessageSize)
	client.Conn().SetReadDeadline(time.Now().Add(pongWait))
	client.Conn().SetPongHandler(func(string) error {
		client.Conn().SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := client.Conn().ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
		client.Touch()
		client.Conn().SetReadDeadline(time.Now().Add(pongWait))

		h.dispatcher.HandleInbound(h.ctx, message, client)
	}
}

// writePump pumps queued messages to the WebSocket connection.
func (h *Handler) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.hub.Unregister(client)
		client.Conn().Close()
	}()

	for {
		select {
		case message, ok := <-client.SendChan():
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				client.Conn().WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Each envelope goes in its own frame so the browser can JSON.parse it
			if err := client.Conn().WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn().WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
