package bridge

import "fmt"

// Char is a characteristic's 16-bit short ID in upper-case hex, as
// carried in daemon messages.
type Char string

// Service characteristics.
const (
	// CharVersion reports firmware and API versions (read only).
	CharVersion Char = "A001"

	// CharRequestedState receives client state requests.
	CharRequestedState Char = "A002"

	// CharReadFromMMR receives register read requests and notifies
	// replies.
	CharReadFromMMR Char = "A005"

	// CharWriteToMMR receives register writes.
	CharWriteToMMR Char = "A006"

	// CharShotSettings receives steam/hot-water/espresso targets.
	CharShotSettings Char = "A00B"

	// CharShotSample notifies live samples while operating.
	CharShotSample Char = "A00D"

	// CharStateInfo notifies state and substate changes.
	CharStateInfo Char = "A00E"

	// CharHeaderWrite receives profile headers.
	CharHeaderWrite Char = "A00F"

	// CharFrameWrite receives profile frames.
	CharFrameWrite Char = "A010"

	// CharWaterLevels notifies the tank level.
	CharWaterLevels Char = "A011"
)

var charNames = map[Char]string{
	CharVersion:        "version",
	CharRequestedState: "requested_state",
	CharReadFromMMR:    "read_from_mmr",
	CharWriteToMMR:     "write_to_mmr",
	CharShotSettings:   "shot_settings",
	CharShotSample:     "shot_sample",
	CharStateInfo:      "state_info",
	CharHeaderWrite:    "header_write",
	CharFrameWrite:     "frame_write",
	CharWaterLevels:    "water_levels",
}

// Name returns the characteristic's log-friendly name.
func (c Char) Name() string {
	if name, ok := charNames[c]; ok {
		return name
	}
	return "unknown"
}

// UUID expands the short ID to the full 128-bit Bluetooth base UUID
// form used by the daemon.
func (c Char) UUID() string {
	return fmt.Sprintf("0000%s-0000-1000-8000-00805F9B34FB", string(c))
}
