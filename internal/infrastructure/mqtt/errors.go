package mqtt

import "errors"

// Sentinel errors for broker operations. Callers match them with errors.Is;
// wrapped variants carry the underlying paho error or timeout detail.
var (
	ErrNotConnected     = errors.New("mqtt: client not connected")
	ErrConnectionFailed = errors.New("mqtt: connection failed")
	ErrPublishFailed    = errors.New("mqtt: publish failed")
	ErrSubscribeFailed  = errors.New("mqtt: subscribe failed")

	// ErrInvalidQoS rejects QoS levels above 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic rejects empty topic strings before they reach the broker.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
