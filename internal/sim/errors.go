package sim

import "errors"

// Simulation errors.
var (
	// ErrInvalidRequest indicates a requested state cannot be entered
	// from the current state.
	ErrInvalidRequest = errors.New("sim: invalid state request")

	// ErrGHCBlocked indicates the group head controller refused a
	// remotely requested operation.
	ErrGHCBlocked = errors.New("sim: blocked by group head controller")

	// ErrMalformedPayload indicates a settings payload was too short.
	ErrMalformedPayload = errors.New("sim: malformed payload")

	// ErrEngineStopped indicates a command was posted after shutdown.
	ErrEngineStopped = errors.New("sim: engine stopped")
)
