// Package device forwards relay commands to the controlled vehicle over HTTP.
package device

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/autito-icc/relay/internal/model"
)

// endpoints maps directives to device paths.
var endpoints = map[string]string{
	"FORWARD":   "/forward",
	"BACKWARD":  "/backward",
	"LEFT":      "/left",
	"RIGHT":     "/right",
	"STOP":      "/stop",
	"FLASH_ON":  "/flash/on",
	"FLASH_OFF": "/flash/off",
}

// Directives returns the directives the device understands.
func Directives() []string {
	return []string{"FORWARD", "BACKWARD", "LEFT", "RIGHT", "STOP", "FLASH_ON", "FLASH_OFF"}
}

// IsKnown reports whether the directive has a device endpoint.
func IsKnown(directive string) bool {
	_, ok := endpoints[model.NormalizeDirective(directive)]
	return ok
}

// State is the last known device state.
type State struct {
	Connected   bool       `json:"connected"`
	LastCommand string     `json:"lastCommand"`
	FlashOn     bool       `json:"flashOn"`
	LastPing    *time.Time `json:"lastPing,omitempty"`
}

// Client sends directives to the device HTTP API.
// The base URL can be changed at runtime; every request reads it under mu.
type Client struct {
	httpClient *http.Client

	mu      sync.RWMutex
	baseURL string
	state   State
}

// NewClient creates a Client for the device at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		state:      State{LastCommand: "STOP"},
	}
}

// BaseURL returns the current device address.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SetBaseURL points the client at a new device. The connection state is
// reset until the new device answers.
func (c *Client) SetBaseURL(baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = strings.TrimRight(baseURL, "/")
	c.state.Connected = false
}

// Send forwards one command to the device.
func (c *Client) Send(ctx context.Context, cmd *model.Command) error {
	path, ok := endpoints[cmd.Directive]
	if !ok {
		return fmt.Errorf("%w: %q", model.ErrUnknownDirective, cmd.Directive)
	}

	if err := c.call(ctx, path, queryParams(cmd)); err != nil {
		return err
	}
	c.markSent(cmd.Directive)
	return nil
}

// Handle sends the command synchronously, so a Client can deliver commands
// for callers that wait on the device.
func (c *Client) Handle(ctx context.Context, cmd *model.Command) error {
	return c.Send(ctx, cmd)
}

// Outcome is the outcome of a command the Client accepted.
func (c *Client) Outcome() model.CommandOutcome {
	return model.OutcomeSent
}

// EmergencyStop stops the device immediately.
func (c *Client) EmergencyStop(ctx context.Context) error {
	if err := c.call(ctx, endpoints["STOP"], nil); err != nil {
		return err
	}
	c.markSent("EMERGENCY_STOP")
	return nil
}

// Ping checks that the device answers on /status.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.call(ctx, "/status", nil); err != nil {
		return err
	}
	c.markAlive()
	return nil
}

// Snapshot asks the device camera to capture a still image.
func (c *Client) Snapshot(ctx context.Context) error {
	if err := c.call(ctx, "/capture", nil); err != nil {
		return err
	}
	c.markAlive()
	return nil
}

// Frame is one camera image. The caller must close Body.
type Frame struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// Camera fetches the current high resolution camera image.
func (c *Client) Camera(ctx context.Context) (*Frame, error) {
	resp, err := c.get(ctx, "/cam-hi.jpg", nil)
	if err != nil {
		return nil, err
	}
	c.markAlive()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return &Frame{
		Body:          resp.Body,
		ContentType:   contentType,
		ContentLength: resp.ContentLength,
	}, nil
}

// State returns a copy of the last known device state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// call issues a GET and discards the body.
func (c *Client) call(ctx context.Context, path string, params url.Values) error {
	resp, err := c.get(ctx, path, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}

// get issues a GET against the device. Non-2xx responses are closed and
// reported as ErrDeviceUnavailable.
func (c *Client) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	u := c.BaseURL() + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build device request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.markDisconnected()
		return nil, fmt.Errorf("%w: %v", model.ErrDeviceUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		c.markDisconnected()
		return nil, fmt.Errorf("%w: %s returned status %d", model.ErrDeviceUnavailable, path, resp.StatusCode)
	}
	return resp, nil
}

func (c *Client) markDisconnected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Connected = false
}

func (c *Client) markAlive() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	c.state.Connected = true
	c.state.LastPing = &now
}

func (c *Client) markSent(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.state.Connected = true
	c.state.LastPing = &now
	c.state.LastCommand = label
	switch label {
	case "FLASH_ON":
		c.state.FlashOn = true
	case "FLASH_OFF":
		c.state.FlashOn = false
	}
}

// queryParams builds the optional speed, turn and duration parameters.
func queryParams(cmd *model.Command) url.Values {
	params := url.Values{}
	switch cmd.Directive {
	case "FORWARD", "BACKWARD":
		if cmd.Speed != nil && *cmd.Speed != 0 {
			params.Set("speed", strconv.Itoa(clamp(*cmd.Speed)))
		}
	case "LEFT", "RIGHT":
		if cmd.Turn != nil && *cmd.Turn != 0 {
			params.Set("turn", strconv.Itoa(clamp(*cmd.Turn)))
		}
	}
	if cmd.Duration != nil && *cmd.Duration != 0 {
		params.Set("duration", strconv.Itoa(*cmd.Duration))
	}
	return params
}

func clamp(v int) int {
	return min(max(v, 0), 100)
}
