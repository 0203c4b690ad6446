package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/autito-icc/relay/internal/command"
	"github.com/autito-icc/relay/internal/device"
	"github.com/autito-icc/relay/internal/model"
	"github.com/autito-icc/relay/internal/repository"
)

const (
	defaultListLimit = 20
	maxListLimit     = 500
)

// CommandHandler handles HTTP requests that issue or inspect device commands.
type CommandHandler struct {
	processor *command.Processor
	journal   *repository.CommandRepository
	forwarder *device.Forwarder
}

// NewCommandHandler creates a new CommandHandler. journal and forwarder may be nil.
func NewCommandHandler(processor *command.Processor, journal *repository.CommandRepository, forwarder *device.Forwarder) *CommandHandler {
	return &CommandHandler{
		processor: processor,
		journal:   journal,
		forwarder: forwarder,
	}
}

// CommandResponse is returned for accepted commands.
type CommandResponse struct {
	Success   bool                 `json:"success"`
	Message   string               `json:"message"`
	Timestamp string               `json:"timestamp"`
	Command   string               `json:"command"`
	ID        string               `json:"id"`
	Outcome   model.CommandOutcome `json:"outcome"`
}

// Create handles POST /api/commands - issues a command to the device.
// The request waits for the device: 200 once it acknowledged the command,
// 503 if it could not be reached. Without a device the command is only
// recorded and 202 is returned.
func (h *CommandHandler) Create(c *gin.Context) {
	var req model.CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	if err := req.Validate(); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if !device.IsKnown(req.Value) {
		sendErrorDetails(c, http.StatusBadRequest, "INVALID_COMMAND",
			"Invalid command: "+model.NormalizeDirective(req.Value),
			map[string]any{"validCommands": device.Directives()})
		return
	}

	cmd := req.ToCommand()
	var delivery command.Delivery
	if h.forwarder != nil {
		delivery = h.forwarder.Client()
	}
	if err := h.processor.ProcessVia(c.Request.Context(), cmd, delivery); err != nil && !cmd.Delivered() {
		sendErrorDetails(c, http.StatusServiceUnavailable, "COMMAND_NOT_DELIVERED",
			"Failed to deliver command: "+err.Error(),
			map[string]any{"id": cmd.ID})
		return
	}

	status := http.StatusOK
	message := "Command " + cmd.Directive + " sent"
	if cmd.Outcome == model.OutcomeLogged {
		status = http.StatusAccepted
		message = "Command " + cmd.Directive + " recorded, no device configured"
	}

	c.JSON(status, CommandResponse{
		Success:   true,
		Message:   message,
		Timestamp: cmd.ReceivedAt.Format(time.RFC3339),
		Command:   cmd.Directive,
		ID:        cmd.ID,
		Outcome:   cmd.Outcome,
	})
}

// List handles GET /api/commands - lists the most recent commands, newest first.
func (h *CommandHandler) List(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxListLimit {
			sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be between 1 and "+strconv.Itoa(maxListLimit))
			return
		}
		limit = n
	}

	if h.journal == nil {
		c.JSON(http.StatusOK, h.processor.Recent(limit))
		return
	}

	commands, err := h.journal.ListRecent(c.Request.Context(), limit)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list commands: "+err.Error())
		return
	}
	if commands == nil {
		commands = []*model.Command{}
	}

	c.JSON(http.StatusOK, commands)
}

// Get handles GET /api/commands/:id - gets a journaled command.
func (h *CommandHandler) Get(c *gin.Context) {
	id := c.Param("id")

	if h.journal == nil {
		for _, cmd := range h.processor.Recent(0) {
			if cmd.ID == id {
				c.JSON(http.StatusOK, cmd)
				return
			}
		}
		sendError(c, http.StatusNotFound, "COMMAND_NOT_FOUND", "Command "+id+" not found")
		return
	}

	cmd, err := h.journal.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrCommandNotFound) {
			sendError(c, http.StatusNotFound, "COMMAND_NOT_FOUND", "Command "+id+" not found")
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get command: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, cmd)
}

// EmergencyStop handles POST /api/emergency-stop.
// Pending device commands are discarded and STOP goes straight to the
// device, bypassing the queue.
func (h *CommandHandler) EmergencyStop(c *gin.Context) {
	dropped := 0
	var delivery command.Delivery
	if h.forwarder != nil {
		dropped = h.forwarder.Flush()
		client := h.forwarder.Client()
		delivery = command.DeliveryFunc(func(ctx context.Context, _ *model.Command) error {
			return client.EmergencyStop(ctx)
		})
	}

	cmd := (&model.CommandRequest{Type: model.TypeCommand, Value: "STOP"}).ToCommand()
	cmd.Raw = "EMERGENCY_STOP"
	if err := h.processor.ProcessVia(c.Request.Context(), cmd, delivery); err != nil && !cmd.Delivered() {
		sendErrorDetails(c, http.StatusServiceUnavailable, "COMMAND_NOT_DELIVERED",
			"Emergency stop failed: "+err.Error(),
			map[string]any{"dropped": dropped})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Emergency stop activated",
		"dropped":   dropped,
		"timestamp": cmd.ReceivedAt.Format(time.RFC3339),
	})
}

// RegisterRoutes registers the command handler routes on a Gin router group.
func (h *CommandHandler) RegisterRoutes(rg *gin.RouterGroup) {
	commands := rg.Group("/commands")
	{
		commands.POST("", h.Create)
		commands.GET("", h.List)
		commands.GET("/:id", h.Get)
	}
	rg.POST("/emergency-stop", h.EmergencyStop)
}
