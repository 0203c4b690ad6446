package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CommandSource identifies where a command entered the relay.
type CommandSource string

const (
	CommandSourceWS   CommandSource = "ws"
	CommandSourceHTTP CommandSource = "http"
)

// CommandOutcome records what happened to a command on its way to the device.
type CommandOutcome string

const (
	// OutcomeLogged means no device is configured; the command was only recorded.
	OutcomeLogged CommandOutcome = "logged"
	// OutcomeQueued means the command is waiting in the device queue.
	OutcomeQueued CommandOutcome = "queued"
	// OutcomeSent means the device acknowledged the command.
	OutcomeSent CommandOutcome = "sent"
	// OutcomeFailed means the command never reached the device.
	OutcomeFailed CommandOutcome = "failed"
)

// Command is a directive addressed to the controlled device.
type Command struct {
	ID         string         `json:"id"`
	Directive  string         `json:"directive"`
	Raw        string         `json:"raw"`
	Speed      *int           `json:"speed,omitempty"`
	Turn       *int           `json:"turn,omitempty"`
	Duration   *int           `json:"duration,omitempty"`
	Source     CommandSource  `json:"source"`
	Outcome    CommandOutcome `json:"outcome,omitempty"`
	ReceivedAt time.Time      `json:"receivedAt"`
}

// Delivered reports whether the command reached the device or its queue.
func (c *Command) Delivered() bool {
	return c.Outcome != OutcomeFailed
}

// CommandFromEnvelope builds a Command from a "command" envelope.
// A string value becomes the upper-cased directive; any other value is kept
// verbatim so the operator still sees it.
func CommandFromEnvelope(env *Envelope, source CommandSource) *Command {
	cmd := &Command{
		ID:         uuid.New().String(),
		Raw:        string(env.Value),
		Source:     source,
		ReceivedAt: time.Now(),
	}

	var directive string
	if err := json.Unmarshal(env.Value, &directive); err == nil {
		cmd.Raw = directive
		cmd.Directive = NormalizeDirective(directive)
	} else {
		cmd.Directive = cmd.Raw
	}

	cmd.Speed = extraInt(env.Extra, "speed")
	cmd.Turn = extraInt(env.Extra, "turn")
	cmd.Duration = extraInt(env.Extra, "duration")

	return cmd
}

// NormalizeDirective trims and upper-cases a directive.
func NormalizeDirective(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func extraInt(extra map[string]json.RawMessage, key string) *int {
	raw, ok := extra[key]
	if !ok {
		return nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil
	}
	return &n
}

// CommandRequest is the HTTP body accepted by the command endpoint.
type CommandRequest struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Speed    *int   `json:"speed"`
	Turn     *int   `json:"turn"`
	Duration *int   `json:"duration"`
}

// Validate validates the command request.
func (r *CommandRequest) Validate() error {
	if strings.TrimSpace(r.Value) == "" {
		return ErrDirectiveRequired
	}
	return nil
}

// ToCommand converts the request into a Command.
func (r *CommandRequest) ToCommand() *Command {
	return &Command{
		ID:         uuid.New().String(),
		Directive:  NormalizeDirective(r.Value),
		Raw:        r.Value,
		Speed:      r.Speed,
		Turn:       r.Turn,
		Duration:   r.Duration,
		Source:     CommandSourceHTTP,
		ReceivedAt: time.Now(),
	}
}
