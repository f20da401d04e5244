package bridge

import (
	"math"

	"github.com/decenza/de1-sim-core/internal/codec"
	"github.com/decenza/de1-sim-core/internal/sim"
)

// Payload layout constants.
const (
	// shotSampleLen is the notify length of a live sample.
	shotSampleLen = 19

	// sampleTimeScale converts seconds to the sample's time field.
	sampleTimeScale = 100

	// tankDepthMM is the usable tank depth represented by 100%.
	tankDepthMM = 40.0

	// tankSensorOffsetMM sits between the level probe and the tank
	// floor; reported levels subtract it.
	tankSensorOffsetMM = 5.0

	// byteShift is the bit shift for byte extraction.
	byteShift = 8
)

// EncodeStateInfo builds the 2-byte state notification.
func EncodeStateInfo(state sim.State, sub sim.SubState) []byte {
	return []byte{byte(state), byte(sub)}
}

// EncodeShotSample builds the 19-byte live sample notification.
//
// Layout: elapsed time ×100 (u16 BE), pressure U16P12, flow U16P12,
// mix temp U16P8, head temp U24P16, set mix temp U16P8, set head temp
// U16P8, set pressure U8P4, set flow U8P4, frame number, steam temp.
func EncodeShotSample(s sim.Sample) []byte {
	payload := make([]byte, 0, shotSampleLen)

	ticks := s.Time * sampleTimeScale
	if ticks > math.MaxUint16 {
		ticks = math.MaxUint16
	}
	if ticks < 0 {
		ticks = 0
	}
	t := uint16(ticks)
	payload = append(payload, byte(t>>byteShift), byte(t))

	payload = append(payload, codec.EncodeU16P12(s.Pressure)...)
	payload = append(payload, codec.EncodeU16P12(s.Flow)...)
	payload = append(payload, codec.EncodeU16P8(s.MixTemp)...)
	payload = append(payload, codec.EncodeU24P16(s.HeadTemp)...)
	payload = append(payload, codec.EncodeU16P8(s.SetMixTemp)...)
	payload = append(payload, codec.EncodeU16P8(s.SetHeadTemp)...)
	payload = append(payload, codec.EncodeU8P4(s.SetPressure)...)
	payload = append(payload, codec.EncodeU8P4(s.SetFlow)...)
	payload = append(payload, s.FrameNumber, s.SteamTemp)
	return payload
}

// WaterLevelMM converts a tank percentage to the sensor's millimetre
// reading.
func WaterLevelMM(percent float64) float64 {
	mm := percent/100*tankDepthMM - tankSensorOffsetMM
	if mm < 0 {
		mm = 0
	}
	return mm
}

// EncodeWaterLevels builds the 2-byte water level notification: the
// sensor reading in millimetres as U16P8.
func EncodeWaterLevels(percent float64) []byte {
	return codec.EncodeU16P8(WaterLevelMM(percent))
}

// EncodeVersion builds the version characteristic payload: API and
// firmware version blocks of {api, release, commits u16, changes,
// sha u32}, big-endian.
func EncodeVersion(apiVersion, release uint8) []byte {
	block := func(api, rel uint8) []byte {
		return []byte{api, rel, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	}
	payload := make([]byte, 0, 18)
	payload = append(payload, block(apiVersion, release)...)
	payload = append(payload, block(apiVersion, release)...)
	return payload
}
