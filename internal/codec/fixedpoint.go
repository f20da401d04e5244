package codec

import (
	"fmt"
	"math"
)

// Fixed-point format constants.
const (
	// u8p4Scale is the scale factor for U8P4 (4 fractional bits).
	u8p4Scale = 16

	// u8p1Scale is the scale factor for U8P1 (1 fractional bit).
	u8p1Scale = 2

	// u16p8Scale is the scale factor for U16P8 (8 fractional bits).
	u16p8Scale = 256

	// u16p12Scale is the scale factor for U16P12 (12 fractional bits).
	u16p12Scale = 4096

	// u24p16Scale is the scale factor for U24P16 (16 fractional bits).
	u24p16Scale = 65536

	// u24MaxRaw is the maximum raw value for a 3-byte unsigned integer.
	u24MaxRaw = 0xFFFFFF

	// f8SecondsFlag marks an F8_1_7 value as whole seconds.
	f8SecondsFlag = 0x80

	// f8ValueMask extracts the 7-bit magnitude from an F8_1_7 byte.
	f8ValueMask = 0x7F

	// f8TenthsMax is the largest duration representable in tenths (12.7 s).
	f8TenthsMax = 12.7

	// u10Mask extracts the 10-bit value from a U10P0 pair.
	u10Mask = 0x03FF

	// byteShift is the bit shift for byte extraction.
	byteShift = 8
)

// clampRaw rounds value*scale and saturates it to [0, maxRaw].
func clampRaw(value float64, scale, maxRaw float64) uint32 {
	raw := math.Round(value * scale)
	if raw < 0 {
		return 0
	}
	if raw > maxRaw {
		return uint32(maxRaw)
	}
	return uint32(raw)
}

// EncodeU8P4 encodes a value to 1-byte fixed point with 4 fractional bits.
//
// Used for: pressure and flow setpoints, limiter values.
//
// Parameters:
//   - value: Value to encode (saturated to 0-15.9375)
//
// Returns:
//   - []byte: Single byte, value × 16
func EncodeU8P4(value float64) []byte {
	return []byte{byte(clampRaw(value, u8p4Scale, math.MaxUint8))}
}

// DecodeU8P4 decodes a 1-byte U8P4 value.
//
// Parameters:
//   - data: Payload (at least 1 byte)
//
// Returns:
//   - float64: Decoded value
//   - error: If data is empty
func DecodeU8P4(data []byte) (float64, error) {
	if len(data) < 1 {
		return 0, fmt.Errorf("%w: U8P4 requires 1 byte, got %d", ErrDecodingFailed, len(data))
	}
	return float64(data[0]) / u8p4Scale, nil
}

// EncodeU8P1 encodes a value to 1-byte fixed point with 1 fractional bit.
//
// Used for: dose and stop-at volumes.
//
// Parameters:
//   - value: Value to encode (saturated to 0-127.5)
//
// Returns:
//   - []byte: Single byte, value × 2
func EncodeU8P1(value float64) []byte {
	return []byte{byte(clampRaw(value, u8p1Scale, math.MaxUint8))}
}

// DecodeU8P1 decodes a 1-byte U8P1 value.
//
// Parameters:
//   - data: Payload (at least 1 byte)
//
// Returns:
//   - float64: Decoded value
//   - error: If data is empty
func DecodeU8P1(data []byte) (float64, error) {
	if len(data) < 1 {
		return 0, fmt.Errorf("%w: U8P1 requires 1 byte, got %d", ErrDecodingFailed, len(data))
	}
	return float64(data[0]) / u8p1Scale, nil
}

// EncodeU16P8 encodes a value to 2-byte big-endian fixed point with
// 8 fractional bits.
//
// Used for: mix/group temperatures, water level.
//
// Parameters:
//   - value: Value to encode (saturated to 0-255.996)
//
// Returns:
//   - []byte: Two bytes big-endian, value × 256
func EncodeU16P8(value float64) []byte {
	raw := clampRaw(value, u16p8Scale, math.MaxUint16)
	return []byte{byte(raw >> byteShift), byte(raw)}
}

// DecodeU16P8 decodes a 2-byte big-endian U16P8 value.
//
// Parameters:
//   - data: Payload (at least 2 bytes)
//
// Returns:
//   - float64: Decoded value
//   - error: If data is too short
func DecodeU16P8(data []byte) (float64, error) {
	if len(data) < 2 {
		return 0, fmt.Errorf("%w: U16P8 requires 2 bytes, got %d", ErrDecodingFailed, len(data))
	}
	raw := uint16(data[0])<<byteShift | uint16(data[1])
	return float64(raw) / u16p8Scale, nil
}

// EncodeU16P12 encodes a value to 2-byte big-endian fixed point with
// 12 fractional bits.
//
// Used for: live pressure and flow samples.
//
// Parameters:
//   - value: Value to encode (saturated to 0-15.9998)
//
// Returns:
//   - []byte: Two bytes big-endian, value × 4096
func EncodeU16P12(value float64) []byte {
	raw := clampRaw(value, u16p12Scale, math.MaxUint16)
	return []byte{byte(raw >> byteShift), byte(raw)}
}

// DecodeU16P12 decodes a 2-byte big-endian U16P12 value.
//
// Parameters:
//   - data: Payload (at least 2 bytes)
//
// Returns:
//   - float64: Decoded value
//   - error: If data is too short
func DecodeU16P12(data []byte) (float64, error) {
	if len(data) < 2 {
		return 0, fmt.Errorf("%w: U16P12 requires 2 bytes, got %d", ErrDecodingFailed, len(data))
	}
	raw := uint16(data[0])<<byteShift | uint16(data[1])
	return float64(raw) / u16p12Scale, nil
}

// EncodeU24P16 encodes a value to 3-byte big-endian fixed point with
// 16 fractional bits.
//
// Used for: high-resolution group head temperature.
//
// Parameters:
//   - value: Value to encode (saturated to 0-255.99998)
//
// Returns:
//   - []byte: Three bytes big-endian, value × 65536
func EncodeU24P16(value float64) []byte {
	raw := clampRaw(value, u24p16Scale, u24MaxRaw)
	return []byte{byte(raw >> (2 * byteShift)), byte(raw >> byteShift), byte(raw)}
}

// DecodeU24P16 decodes a 3-byte big-endian U24P16 value.
//
// Parameters:
//   - data: Payload (at least 3 bytes)
//
// Returns:
//   - float64: Decoded value
//   - error: If data is too short
func DecodeU24P16(data []byte) (float64, error) {
	if len(data) < 3 {
		return 0, fmt.Errorf("%w: U24P16 requires 3 bytes, got %d", ErrDecodingFailed, len(data))
	}
	raw := uint32(data[0])<<(2*byteShift) | uint32(data[1])<<byteShift | uint32(data[2])
	return float64(raw) / u24p16Scale, nil
}

// EncodeF8_1_7 encodes a duration in seconds to the split-range 1-byte
// format.
//
// Durations up to 12.7 s are stored in tenths of a second with bit 7
// clear; longer durations are stored as whole seconds with bit 7 set,
// saturating at 127 s.
//
// Parameters:
//   - seconds: Duration to encode (saturated to 0-127)
//
// Returns:
//   - []byte: Single byte in split-range format
func EncodeF8_1_7(seconds float64) []byte {
	if seconds < 0 {
		seconds = 0
	}
	if seconds <= f8TenthsMax {
		return []byte{byte(math.Round(seconds * 10))}
	}
	raw := math.Round(seconds)
	if raw > f8ValueMask {
		raw = f8ValueMask
	}
	return []byte{f8SecondsFlag | byte(raw)}
}

// DecodeF8_1_7 decodes a split-range duration byte to seconds.
//
// Parameters:
//   - data: Payload (at least 1 byte)
//
// Returns:
//   - float64: Duration in seconds
//   - error: If data is empty
func DecodeF8_1_7(data []byte) (float64, error) {
	if len(data) < 1 {
		return 0, fmt.Errorf("%w: F8_1_7 requires 1 byte, got %d", ErrDecodingFailed, len(data))
	}
	magnitude := float64(data[0] & f8ValueMask)
	if data[0]&f8SecondsFlag != 0 {
		return magnitude, nil
	}
	return magnitude * 0.1, nil
}

// EncodeU10P0 encodes an integer to the 2-byte big-endian 10-bit format.
//
// Parameters:
//   - value: Value to encode (saturated to 0-1023)
//
// Returns:
//   - []byte: Two bytes big-endian, upper 6 bits zero
func EncodeU10P0(value int) []byte {
	if value < 0 {
		value = 0
	}
	if value > u10Mask {
		value = u10Mask
	}
	return []byte{byte(value >> byteShift), byte(value)}
}

// DecodeU10P0 decodes a 2-byte 10-bit value, masking the upper 6 bits.
//
// Parameters:
//   - data: Payload (at least 2 bytes)
//
// Returns:
//   - int: Decoded value (0-1023)
//   - error: If data is too short
func DecodeU10P0(data []byte) (int, error) {
	if len(data) < 2 {
		return 0, fmt.Errorf("%w: U10P0 requires 2 bytes, got %d", ErrDecodingFailed, len(data))
	}
	raw := (uint16(data[0])<<byteShift | uint16(data[1])) & u10Mask
	return int(raw), nil
}
