package sim

import (
	"fmt"

	"github.com/decenza/de1-sim-core/internal/codec"
)

// shotSettingsLen is the length of a shot settings payload.
const shotSettingsLen = 9

// ShotSettings carries the client's steam, hot water and espresso
// targets.
type ShotSettings struct {
	// SteamBits is the raw steam behaviour flag byte.
	SteamBits uint8

	// SteamTemp is the steam target temperature in °C.
	SteamTemp uint8

	// SteamDuration is the steam timeout in seconds.
	SteamDuration uint8

	// HotWaterTemp is the hot water target temperature in °C.
	HotWaterTemp uint8

	// HotWaterVolume is the hot water dispense volume in mL.
	HotWaterVolume uint8

	// EspressoVolume is the espresso stop-at volume in mL.
	EspressoVolume uint8

	// GroupTemp is the brew group target temperature in °C.
	GroupTemp float64
}

// DecodeShotSettings parses a 9-byte shot settings payload.
//
// Layout: steam flag byte, steam temp, steam duration, hot water temp,
// hot water volume, (reserved), espresso volume, group temp U16P8.
//
// Parameters:
//   - data: Settings payload (at least 9 bytes)
//
// Returns:
//   - ShotSettings: Decoded settings
//   - error: If the payload is too short
func DecodeShotSettings(data []byte) (ShotSettings, error) {
	if len(data) < shotSettingsLen {
		return ShotSettings{}, fmt.Errorf("%w: shot settings require %d bytes, got %d", ErrMalformedPayload, shotSettingsLen, len(data))
	}

	groupTemp, err := codec.DecodeU16P8(data[7:])
	if err != nil {
		return ShotSettings{}, err
	}

	return ShotSettings{
		SteamBits:      data[0],
		SteamTemp:      data[1],
		SteamDuration:  data[2],
		HotWaterTemp:   data[3],
		HotWaterVolume: data[4],
		EspressoVolume: data[6],
		GroupTemp:      groupTemp,
	}, nil
}
