package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/autito-icc/relay/internal/device"
	"github.com/autito-icc/relay/internal/model"
)

// DeviceHandler serves the device camera and lets operators repoint the
// relay at another device.
type DeviceHandler struct {
	client *device.Client
}

// NewDeviceHandler creates a new DeviceHandler. client may be nil when no
// device is configured; every route then answers 503.
func NewDeviceHandler(client *device.Client) *DeviceHandler {
	return &DeviceHandler{client: client}
}

// DeviceResponse describes the device the relay talks to.
type DeviceResponse struct {
	URL            string       `json:"url"`
	State          device.State `json:"state"`
	ConnectionTest string       `json:"connectionTest,omitempty"`
}

var noCacheHeaders = map[string]string{
	"Cache-Control": "no-cache, no-store, must-revalidate",
	"Pragma":        "no-cache",
	"Expires":       "0",
}

func (h *DeviceHandler) configured(c *gin.Context) bool {
	if h.client == nil {
		sendError(c, http.StatusServiceUnavailable, "DEVICE_NOT_CONFIGURED", "No device is configured")
		return false
	}
	return true
}

// Camera handles GET /api/camera - streams the current camera image.
func (h *DeviceHandler) Camera(c *gin.Context) {
	if !h.configured(c) {
		return
	}

	frame, err := h.client.Camera(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusServiceUnavailable, "CAMERA_UNAVAILABLE", "Camera not available: "+err.Error())
		return
	}
	defer frame.Body.Close()

	c.DataFromReader(http.StatusOK, frame.ContentLength, frame.ContentType, frame.Body, noCacheHeaders)
}

// Snapshot handles GET /api/camera/snapshot - asks the camera to capture a still.
func (h *DeviceHandler) Snapshot(c *gin.Context) {
	if !h.configured(c) {
		return
	}

	if err := h.client.Snapshot(c.Request.Context()); err != nil {
		sendError(c, http.StatusServiceUnavailable, "CAMERA_UNAVAILABLE", "Failed to capture snapshot: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Snapshot captured",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// Get handles GET /api/device - reports the device address and state.
func (h *DeviceHandler) Get(c *gin.Context) {
	if !h.configured(c) {
		return
	}

	c.JSON(http.StatusOK, DeviceResponse{
		URL:   h.client.BaseURL(),
		State: h.client.State(),
	})
}

// Update handles PUT /api/device - points the relay at a new device address
// and checks that the device answers. An unreachable device still keeps the
// new address; the result is reported in connectionTest.
func (h *DeviceHandler) Update(c *gin.Context) {
	if !h.configured(c) {
		return
	}

	var req model.DeviceAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	if err := req.Validate(); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	h.client.SetBaseURL(req.BaseURL())

	test := "ok"
	if err := h.client.Ping(c.Request.Context()); err != nil {
		test = "failed: " + err.Error()
	}

	c.JSON(http.StatusOK, DeviceResponse{
		URL:            h.client.BaseURL(),
		State:          h.client.State(),
		ConnectionTest: test,
	})
}

// RegisterRoutes registers the device handler routes on a Gin router group.
func (h *DeviceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	camera := rg.Group("/camera")
	{
		camera.GET("", h.Camera)
		camera.GET("/snapshot", h.Snapshot)
	}
	rg.GET("/device", h.Get)
	rg.PUT("/device", h.Update)
}
