package model

import "errors"

var (
	// ErrMalformedEnvelope is returned when an inbound frame is not a JSON object.
	ErrMalformedEnvelope = errors.New("malformed envelope")

	// ErrDirectiveRequired is returned when a command request carries no directive.
	ErrDirectiveRequired = errors.New("command directive is required")

	// ErrUnknownDirective is returned when a directive has no device mapping.
	ErrUnknownDirective = errors.New("unknown command directive")

	// ErrDeviceUnavailable is returned when the controlled device cannot be reached.
	ErrDeviceUnavailable = errors.New("device unavailable")

	// ErrInvalidDeviceAddress is returned when a device address update is rejected.
	ErrInvalidDeviceAddress = errors.New("invalid device address")

	// ErrCommandNotFound is returned when a journaled command is not found.
	ErrCommandNotFound = errors.New("command not found")
)
