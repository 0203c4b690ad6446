package ws

import (
	"context"
	"log"

	"github.com/autito-icc/relay/internal/model"
)

// CommandHandler receives command envelopes. It is a write-only sink:
// nothing it returns is sent back to the client.
type CommandHandler interface {
	Process(ctx context.Context, cmd *model.Command) error
}

// Dispatcher routes inbound envelopes by type.
type Dispatcher struct {
	hub      *Hub
	commands CommandHandler
}

// NewDispatcher creates a Dispatcher broadcasting through hub.
// commands may be nil, in which case commands are only logged.
func NewDispatcher(hub *Hub, commands CommandHandler) *Dispatcher {
	return &Dispatcher{
		hub:      hub,
		commands: commands,
	}
}

// HandleInbound parses one raw frame from origin and dispatches it.
// Errors never propagate: malformed frames are logged and dropped.
func (d *Dispatcher) HandleInbound(ctx context.Context, raw []byte, origin *Client) {
	env, err := model.ParseEnvelope(raw)
	if err != nil {
		log.Printf("Failed to unmarshal message from %s: %v", clientID(origin), err)
		return
	}

	switch env.Kind().Class() {
	case model.ClassRelay:
		d.relay(env)
	case model.ClassCommand:
		d.command(ctx, env)
	case model.ClassIgnore:
		// Unknown types are dropped for forward compatibility
	}
}

// relay re-encodes the envelope and sends it to every client, origin included.
func (d *Dispatcher) relay(env *model.Envelope) {
	frame, err := env.RelayFrame()
	if err != nil {
		log.Printf("Failed to marshal relay frame: %v", err)
		return
	}
	d.hub.Broadcast(frame)
}

func (d *Dispatcher) command(ctx context.Context, env *model.Envelope) {
	cmd := model.CommandFromEnvelope(env, model.CommandSourceWS)
	if d.commands == nil {
		log.Printf("Command: %s", cmd.Raw)
		return
	}
	// Sink failures are logged by the handler
	_ = d.commands.Process(ctx, cmd)
}

func clientID(c *Client) string {
	if c == nil {
		return "unknown"
	}
	return c.ID()
}
