package handlers

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/autito-icc/relay/internal/ws"
)

// RelayHandler serves the relay WebSocket endpoint.
type RelayHandler struct {
	wsHandler *ws.Handler
}

// NewRelayHandler creates a new RelayHandler.
func NewRelayHandler(wsHandler *ws.Handler) *RelayHandler {
	return &RelayHandler{
		wsHandler: wsHandler,
	}
}

// Connect handles GET <path> - upgrades the request to a relay connection.
func (h *RelayHandler) Connect(c *gin.Context) {
	if err := h.wsHandler.HandleConnection(c.Writer, c.Request); err != nil {
		// The upgrader has already written the HTTP error
		log.Printf("WebSocket upgrade failed from %s: %v", c.Request.RemoteAddr, err)
	}
}

// RegisterRoutes registers the relay endpoint at path.
func (h *RelayHandler) RegisterRoutes(r gin.IRoutes, path string) {
	r.GET(path, h.Connect)
}
