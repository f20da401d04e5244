package profile

import "errors"

// Profile errors.
var (
	// ErrMalformedPayload indicates a header or frame payload was too
	// short to decode.
	ErrMalformedPayload = errors.New("profile: malformed payload")

	// ErrNoHeader indicates a frame write arrived before any header.
	ErrNoHeader = errors.New("profile: no header written")
)
