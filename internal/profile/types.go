package profile

import (
	"fmt"

	"github.com/decenza/de1-sim-core/internal/codec"
)

// Payload layout constants.
const (
	// headerLen is the length of a profile header payload.
	headerLen = 5

	// frameLen is the length of a frame write payload.
	frameLen = 8

	// extensionLen is the minimum length of an extension frame payload.
	extensionLen = 3

	// tailLen is the minimum length of a tail frame payload.
	tailLen = 3

	// extensionBase is the index offset marking extension frames.
	extensionBase = 32
)

// FrameFlags is the bitfield controlling a frame's pump mode, exit
// condition and transition behaviour.
type FrameFlags uint8

// Frame flag bits.
const (
	// FlagFlowPump selects flow control; clear means pressure control.
	FlagFlowPump FrameFlags = 1 << iota

	// FlagHasExit enables the frame's exit condition.
	FlagHasExit

	// FlagExitGreater exits when the sensed value rises above the
	// trigger; clear exits when it falls below.
	FlagExitGreater

	// FlagExitOnFlow compares flow against the trigger; clear compares
	// pressure.
	FlagExitOnFlow

	// FlagSenseWater reads the mix water temperature sensor; clear
	// reads the group head sensor.
	FlagSenseWater

	// FlagSmooth interpolates setpoint changes over the frame; clear
	// steps immediately.
	FlagSmooth

	// FlagIgnoreLimit exempts the frame from the profile limiter.
	FlagIgnoreLimit
)

// FlowPump reports whether the frame drives the pump by flow.
func (f FrameFlags) FlowPump() bool { return f&FlagFlowPump != 0 }

// HasExit reports whether the frame has an exit condition.
func (f FrameFlags) HasExit() bool { return f&FlagHasExit != 0 }

// ExitGreater reports whether the exit comparator is "rises above".
func (f FrameFlags) ExitGreater() bool { return f&FlagExitGreater != 0 }

// ExitOnFlow reports whether the exit condition senses flow.
func (f FrameFlags) ExitOnFlow() bool { return f&FlagExitOnFlow != 0 }

// SenseWater reports whether temperature is sensed at the mix water.
func (f FrameFlags) SenseWater() bool { return f&FlagSenseWater != 0 }

// Smooth reports whether setpoint transitions interpolate.
func (f FrameFlags) Smooth() bool { return f&FlagSmooth != 0 }

// IgnoreLimit reports whether the frame bypasses the limiter.
func (f FrameFlags) IgnoreLimit() bool { return f&FlagIgnoreLimit != 0 }

// Header describes an incoming profile upload.
type Header struct {
	// Version is the profile format version byte.
	Version uint8

	// FrameCount is the number of primary frames that follow.
	FrameCount uint8

	// PreinfuseCount is the number of leading preinfusion frames.
	PreinfuseCount uint8

	// MinimumPressure is the low-pressure abort threshold in bar.
	MinimumPressure float64

	// MaximumFlow is the profile-wide flow ceiling in mL/s.
	MaximumFlow float64
}

// Frame is one step of a shot profile.
type Frame struct {
	// Index is the frame's position (0-based).
	Index uint8

	// Flags controls pump mode, exit condition and transition.
	Flags FrameFlags

	// SetValue is the pressure (bar) or flow (mL/s) setpoint,
	// depending on Flags.FlowPump.
	SetValue float64

	// Temperature is the target water temperature in °C.
	Temperature float64

	// Duration is the frame length in seconds.
	Duration float64

	// TriggerValue is the exit condition threshold.
	TriggerValue float64

	// MaxVolume is the frame's volume ceiling in mL (0 = none).
	MaxVolume int

	// HasLimiter is set once an extension frame arrives for this frame.
	HasLimiter bool

	// LimiterValue is the limiter setpoint from the extension frame.
	LimiterValue float64

	// LimiterRange is the limiter response range from the extension
	// frame.
	LimiterRange float64
}

// DecodeHeader parses a 5-byte profile header payload.
//
// Parameters:
//   - data: Header payload (at least 5 bytes)
//
// Returns:
//   - Header: Decoded header
//   - error: If the payload is too short
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < headerLen {
		return Header{}, fmt.Errorf("%w: header requires %d bytes, got %d", ErrMalformedPayload, headerLen, len(data))
	}

	minPressure, err := codec.DecodeU8P4(data[3:])
	if err != nil {
		return Header{}, err
	}
	maxFlow, err := codec.DecodeU8P4(data[4:])
	if err != nil {
		return Header{}, err
	}

	return Header{
		Version:         data[0],
		FrameCount:      data[1],
		PreinfuseCount:  data[2],
		MinimumPressure: minPressure,
		MaximumFlow:     maxFlow,
	}, nil
}

// decodeFrame parses a primary frame body. The caller has already
// validated length and routed by index.
func decodeFrame(data []byte) (Frame, error) {
	setValue, err := codec.DecodeU8P4(data[2:])
	if err != nil {
		return Frame{}, err
	}
	temperature, err := codec.DecodeU8P1(data[3:])
	if err != nil {
		return Frame{}, err
	}
	duration, err := codec.DecodeF8_1_7(data[4:])
	if err != nil {
		return Frame{}, err
	}
	trigger, err := codec.DecodeU8P4(data[5:])
	if err != nil {
		return Frame{}, err
	}
	maxVolume, err := codec.DecodeU10P0(data[6:])
	if err != nil {
		return Frame{}, err
	}

	return Frame{
		Index:        data[0],
		Flags:        FrameFlags(data[1]),
		SetValue:     setValue,
		Temperature:  temperature,
		Duration:     duration,
		TriggerValue: trigger,
		MaxVolume:    maxVolume,
	}, nil
}
