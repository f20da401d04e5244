package influxdb

import "errors"

// Sentinel errors, matched with errors.Is. Write failures are not among
// them: the batching API reports those asynchronously via SetOnError.
var (
	ErrNotConnected     = errors.New("influxdb: not connected")
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
