package codec

import "errors"

// Codec errors.
var (
	// ErrDecodingFailed indicates a payload could not be decoded
	// (typically too short for the requested format).
	ErrDecodingFailed = errors.New("codec: decoding failed")
)
