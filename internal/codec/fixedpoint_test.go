package codec

import (
	"bytes"
	"math"
	"testing"
)

// ─── U8P4 (setpoints) ──────────────────────────────────────────────

func TestEncodeU8P4(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  []byte
	}{
		{"zero", 0, []byte{0x00}},
		{"nine bar", 9.0, []byte{0x90}},
		{"quarter step", 4.25, []byte{0x44}},
		{"maximum", 15.9375, []byte{0xFF}},
		{"saturates high", 20.0, []byte{0xFF}},
		{"saturates negative", -1.0, []byte{0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeU8P4(tt.value)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeU8P4(%v) = %X, want %X", tt.value, got, tt.want)
			}
		})
	}
}

func TestDecodeU8P4(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    float64
		wantErr bool
	}{
		{"nine bar", []byte{0x90}, 9.0, false},
		{"zero", []byte{0x00}, 0, false},
		{"maximum", []byte{0xFF}, 15.9375, false},
		{"empty data", []byte{}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeU8P4(tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("DecodeU8P4() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("DecodeU8P4(%X) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}
}

// ─── U8P1 (volumes) ────────────────────────────────────────────────

func TestU8P1RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  byte
	}{
		{"zero", 0, 0x00},
		{"36 mL", 36.0, 0x48},
		{"half step", 10.5, 0x15},
		{"saturates", 200.0, 0xFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeU8P1(tt.value)
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("EncodeU8P1(%v) = %X, want [%02X]", tt.value, got, tt.want)
			}
			back, err := DecodeU8P1(got)
			if err != nil {
				t.Fatalf("DecodeU8P1() error = %v", err)
			}
			if math.Abs(back-math.Min(tt.value, 127.5)) > 0.5 {
				t.Errorf("round trip %v -> %v", tt.value, back)
			}
		})
	}
}

// ─── U16P8 (temperatures, water level) ─────────────────────────────

func TestEncodeU16P8(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  []byte
	}{
		{"zero", 0, []byte{0x00, 0x00}},
		{"93 celsius", 93.0, []byte{0x5D, 0x00}},
		{"fractional", 93.5, []byte{0x5D, 0x80}},
		{"saturates high", 300.0, []byte{0xFF, 0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeU16P8(tt.value)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeU16P8(%v) = %X, want %X", tt.value, got, tt.want)
			}
		})
	}
}

func TestDecodeU16P8(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    float64
		wantErr bool
	}{
		{"93 celsius", []byte{0x5D, 0x00}, 93.0, false},
		{"fractional", []byte{0x5D, 0x80}, 93.5, false},
		{"one byte only", []byte{0x5D}, 0, true},
		{"empty data", []byte{}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeU16P8(tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("DecodeU16P8() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("DecodeU16P8(%X) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}
}

// ─── U16P12 (live pressure/flow) ───────────────────────────────────

func TestEncodeU16P12(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  []byte
	}{
		{"zero", 0, []byte{0x00, 0x00}},
		{"nine bar", 9.0, []byte{0x90, 0x00}},
		{"two mL per s", 2.0, []byte{0x20, 0x00}},
		{"saturates high", 16.5, []byte{0xFF, 0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeU16P12(tt.value)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeU16P12(%v) = %X, want %X", tt.value, got, tt.want)
			}
		})
	}
}

func TestDecodeU16P12(t *testing.T) {
	got, err := DecodeU16P12([]byte{0x90, 0x00})
	if err != nil {
		t.Fatalf("DecodeU16P12() error = %v", err)
	}
	if got != 9.0 {
		t.Errorf("DecodeU16P12(9000) = %v, want 9.0", got)
	}

	if _, err := DecodeU16P12([]byte{0x90}); err == nil {
		t.Error("DecodeU16P12() expected error for short payload")
	}
}

// ─── U24P16 (group head temperature) ───────────────────────────────

func TestEncodeU24P16(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  []byte
	}{
		{"zero", 0, []byte{0x00, 0x00, 0x00}},
		{"93 celsius", 93.0, []byte{0x5D, 0x00, 0x00}},
		{"fractional", 93.25, []byte{0x5D, 0x40, 0x00}},
		{"saturates high", 400.0, []byte{0xFF, 0xFF, 0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeU24P16(tt.value)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeU24P16(%v) = %X, want %X", tt.value, got, tt.want)
			}
		})
	}
}

func TestDecodeU24P16(t *testing.T) {
	got, err := DecodeU24P16([]byte{0x5D, 0x40, 0x00})
	if err != nil {
		t.Fatalf("DecodeU24P16() error = %v", err)
	}
	if got != 93.25 {
		t.Errorf("DecodeU24P16() = %v, want 93.25", got)
	}

	if _, err := DecodeU24P16([]byte{0x5D, 0x40}); err == nil {
		t.Error("DecodeU24P16() expected error for short payload")
	}
}

// ─── F8_1_7 (split-range durations) ────────────────────────────────

func TestEncodeF8_1_7(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		want    byte
	}{
		{"zero", 0, 0x00},
		{"two seconds in tenths", 2.0, 0x14},
		{"tenths boundary", 12.7, 0x7F},
		{"above boundary whole seconds", 13.0, 0x8D},
		{"sixty seconds", 60.0, 0xBC},
		{"saturates at 127", 500.0, 0xFF},
		{"negative clamps to zero", -3.0, 0x00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeF8_1_7(tt.seconds)
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("EncodeF8_1_7(%v) = %X, want [%02X]", tt.seconds, got, tt.want)
			}
		})
	}
}

func TestDecodeF8_1_7(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    float64
		wantErr bool
	}{
		{"tenths", []byte{0x14}, 2.0, false},
		{"tenths max", []byte{0x7F}, 12.7, false},
		{"whole seconds", []byte{0x8D}, 13.0, false},
		{"whole seconds max", []byte{0xFF}, 127.0, false},
		{"empty data", []byte{}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeF8_1_7(tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("DecodeF8_1_7() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("DecodeF8_1_7(%X) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}
}

// ─── U10P0 (10-bit integers) ───────────────────────────────────────

func TestEncodeU10P0(t *testing.T) {
	tests := []struct {
		name  string
		value int
		want  []byte
	}{
		{"zero", 0, []byte{0x00, 0x00}},
		{"mid range", 512, []byte{0x02, 0x00}},
		{"maximum", 1023, []byte{0x03, 0xFF}},
		{"saturates high", 5000, []byte{0x03, 0xFF}},
		{"negative clamps", -1, []byte{0x00, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeU10P0(tt.value)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeU10P0(%v) = %X, want %X", tt.value, got, tt.want)
			}
		})
	}
}

func TestDecodeU10P0(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    int
		wantErr bool
	}{
		{"plain value", []byte{0x02, 0x00}, 512, false},
		{"upper bits masked", []byte{0xFF, 0xFF}, 1023, false},
		{"garbage high bits", []byte{0xFC, 0x05}, 5, false},
		{"short payload", []byte{0x02}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeU10P0(tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("DecodeU10P0() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("DecodeU10P0(%X) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}
}
