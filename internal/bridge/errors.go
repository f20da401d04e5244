package bridge

import "errors"

// Bridge errors.
var (
	// ErrConnectionFailed indicates the peripheral daemon could not be
	// reached or the ready handshake failed.
	ErrConnectionFailed = errors.New("bridge: connection failed")

	// ErrNotConnected indicates a command was attempted without a live
	// daemon connection.
	ErrNotConnected = errors.New("bridge: not connected")

	// ErrCommandFailed indicates a command could not be written to the
	// daemon.
	ErrCommandFailed = errors.New("bridge: command failed")

	// ErrMalformedEvent indicates an event line could not be decoded.
	ErrMalformedEvent = errors.New("bridge: malformed event")

	// ErrUnknownCharacteristic indicates traffic for a characteristic
	// outside the service definition.
	ErrUnknownCharacteristic = errors.New("bridge: unknown characteristic")
)
