package mmr

import "errors"

// Register bank errors.
var (
	// ErrMalformedRequest indicates a register request payload was too
	// short to carry an address (and value, for writes).
	ErrMalformedRequest = errors.New("mmr: malformed request")
)
