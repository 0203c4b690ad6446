package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/autito-icc/relay/internal/command"
	"github.com/autito-icc/relay/internal/device"
	"github.com/autito-icc/relay/internal/model"
)

// ClientCounter reports the number of live relay connections.
type ClientCounter interface {
	ClientCount() int
}

// StatusHandler reports relay and device state.
type StatusHandler struct {
	relay     ClientCounter
	processor *command.Processor
	device    *device.Client
}

// NewStatusHandler creates a new StatusHandler. deviceClient may be nil.
func NewStatusHandler(relay ClientCounter, processor *command.Processor, deviceClient *device.Client) *StatusHandler {
	return &StatusHandler{
		relay:     relay,
		processor: processor,
		device:    deviceClient,
	}
}

// StatusResponse represents the relay status.
type StatusResponse struct {
	Status      string         `json:"status"`
	Clients     int            `json:"clients"`
	LastCommand *model.Command `json:"lastCommand,omitempty"`
	Device      *device.State  `json:"device,omitempty"`
	Timestamp   string         `json:"timestamp"`
}

// Get handles GET /api/status.
func (h *StatusHandler) Get(c *gin.Context) {
	resp := StatusResponse{
		Status:      "running",
		Clients:     h.relay.ClientCount(),
		LastCommand: h.processor.Last(),
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	if h.device != nil {
		state := h.device.State()
		resp.Device = &state
	}

	c.JSON(http.StatusOK, resp)
}

// RegisterRoutes registers the status route on a Gin router group.
func (h *StatusHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/status", h.Get)
}
