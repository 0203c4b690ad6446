package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EnvelopeType is the closed set of envelope kinds the relay understands.
type EnvelopeType int

const (
	// EnvelopeUnknown covers every type string the relay does not recognize.
	EnvelopeUnknown EnvelopeType = iota
	EnvelopeImage
	EnvelopeCommand
)

// Wire names of the known envelope types.
const (
	TypeImage   = "image"
	TypeCommand = "command"
)

// DispatchClass tells the dispatcher what to do with an envelope.
type DispatchClass int

const (
	ClassIgnore DispatchClass = iota
	ClassRelay
	ClassCommand
)

// String returns the wire name of the type.
func (t EnvelopeType) String() string {
	switch t {
	case EnvelopeImage:
		return TypeImage
	case EnvelopeCommand:
		return TypeCommand
	default:
		return "unknown"
	}
}

// Class returns the dispatch class for the type.
func (t EnvelopeType) Class() DispatchClass {
	switch t {
	case EnvelopeImage:
		return ClassRelay
	case EnvelopeCommand:
		return ClassCommand
	default:
		return ClassIgnore
	}
}

// Envelope is the {type, value} unit exchanged over a connection.
// Fields other than type and value stay available in Extra for command parsing.
type Envelope struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// ParseEnvelope parses one inbound text frame.
// Frames that are not JSON objects, or whose type is not a string, are malformed.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformedEnvelope)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	env := &Envelope{}
	if rawType, ok := fields["type"]; ok {
		if err := json.Unmarshal(rawType, &env.Type); err != nil {
			return nil, fmt.Errorf("%w: type must be a string", ErrMalformedEnvelope)
		}
		delete(fields, "type")
	}
	if rawValue, ok := fields["value"]; ok {
		env.Value = rawValue
		delete(fields, "value")
	}
	if len(fields) > 0 {
		env.Extra = fields
	}

	return env, nil
}

// Kind maps the wire type onto the closed enumeration.
func (e *Envelope) Kind() EnvelopeType {
	switch e.Type {
	case TypeImage:
		return EnvelopeImage
	case TypeCommand:
		return EnvelopeCommand
	default:
		return EnvelopeUnknown
	}
}

// RelayFrame re-encodes the envelope for broadcast.
// Only type and value survive; a missing value stays missing.
func (e *Envelope) RelayFrame() ([]byte, error) {
	return json.Marshal(&Envelope{
		Type:  e.Kind().String(),
		Value: e.Value,
	})
}
