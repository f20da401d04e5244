package bridge

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Command names sent to the peripheral daemon.
const (
	// CmdStart asks the daemon to begin advertising.
	CmdStart = "start"

	// CmdStop asks the daemon to stop advertising and drop the central.
	CmdStop = "stop"

	// CmdNotify pushes a characteristic value to the central.
	CmdNotify = "notify"
)

// Event names received from the peripheral daemon.
const (
	// EventReady is the daemon's greeting after the socket opens.
	EventReady = "ready"

	// EventAdvertising reports that advertising started.
	EventAdvertising = "advertising"

	// EventConnected reports a central connecting.
	EventConnected = "connected"

	// EventDisconnected reports the central disconnecting.
	EventDisconnected = "disconnected"

	// EventWrite carries a characteristic write from the central.
	EventWrite = "write"

	// EventRead carries a characteristic read request from the central.
	EventRead = "read"

	// EventError carries a daemon-side failure report.
	EventError = "error"
)

// Command is one JSON line sent to the daemon.
type Command struct {
	// Cmd is the command name (start, stop, notify).
	Cmd string `json:"cmd"`

	// Char is the target characteristic short ID (notify only).
	Char Char `json:"char,omitempty"`

	// Data is the hex-encoded payload (notify only).
	Data string `json:"data,omitempty"`
}

// Event is one JSON line received from the daemon.
type Event struct {
	// Event is the event name.
	Event string `json:"event"`

	// Version is the daemon version (ready only).
	Version string `json:"version,omitempty"`

	// Client identifies the central (connected only).
	Client string `json:"client,omitempty"`

	// Char is the characteristic short ID (write and read).
	Char Char `json:"char,omitempty"`

	// Data is the hex-encoded payload (write only).
	Data string `json:"data,omitempty"`

	// Code is the daemon's numeric failure code (error only).
	Code int `json:"code,omitempty"`

	// Message is the failure description (error only).
	Message string `json:"message,omitempty"`
}

// Payload decodes the event's hex data field.
//
// Returns:
//   - []byte: Decoded payload (empty if the event carries none)
//   - error: If the hex is invalid
func (e Event) Payload() ([]byte, error) {
	if e.Data == "" {
		return nil, nil
	}
	data, err := hex.DecodeString(strings.ToLower(e.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: bad hex in %s event: %w", ErrMalformedEvent, e.Event, err)
	}
	return data, nil
}

// ParseEvent decodes one event line.
//
// Parameters:
//   - line: Raw JSON line without the trailing newline
//
// Returns:
//   - Event: Decoded event
//   - error: If the JSON is invalid or the event name is missing
func ParseEvent(line []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(line, &e); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	if e.Event == "" {
		return Event{}, fmt.Errorf("%w: missing event name", ErrMalformedEvent)
	}
	return e, nil
}

// NotifyCommand builds a notify command for a characteristic payload.
func NotifyCommand(char Char, payload []byte) Command {
	return Command{
		Cmd:  CmdNotify,
		Char: char,
		Data: strings.ToUpper(hex.EncodeToString(payload)),
	}
}
