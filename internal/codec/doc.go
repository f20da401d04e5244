// Package codec implements the fixed-point binary encodings used on the
// DE1 wire protocol.
//
// The machine represents physical quantities as unsigned fixed-point
// integers with a format-specific scale factor. Multi-byte formats are
// big-endian. Encoding saturates out-of-range values to the format's
// representable bounds rather than failing; decoding validates input
// length and returns an error for short payloads.
//
// Formats:
//
//	U8P4    1 byte,  value × 16      (0 .. 15.9375)    pressure/flow setpoints
//	U8P1    1 byte,  value × 2       (0 .. 127.5)      volumes
//	U16P8   2 bytes, value × 256     (0 .. 255.996)    temperatures, water level
//	U16P12  2 bytes, value × 4096    (0 .. 15.9998)    live pressure/flow
//	U24P16  3 bytes, value × 65536   (0 .. 255.99998)  high-resolution temperature
//	F8_1_7  1 byte,  split-range duration: bit 7 set means whole seconds
//	        (0-127 s), clear means tenths of a second (0.0-12.7 s)
//	U10P0   2 bytes, 10-bit unsigned integer, upper 6 bits masked off
package codec
