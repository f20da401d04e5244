package bridge

import (
	"bytes"
	"math"
	"testing"

	"github.com/decenza/de1-sim-core/internal/sim"
)

func TestEncodeStateInfo(t *testing.T) {
	got := EncodeStateInfo(sim.StateEspresso, sim.SubPouring)
	if !bytes.Equal(got, []byte{0x04, 0x05}) {
		t.Errorf("EncodeStateInfo() = %X, want 0405", got)
	}
}

func TestEncodeShotSampleLayout(t *testing.T) {
	s := sim.Sample{
		Time:        7.0,
		Pressure:    8.0,
		Flow:        2.0,
		MixTemp:     93.0,
		HeadTemp:    93.0,
		SetMixTemp:  93.0,
		SetHeadTemp: 93.0,
		SetPressure: 9.0,
		SetFlow:     2.0,
		FrameNumber: 1,
		SteamTemp:   0,
	}

	got := EncodeShotSample(s)
	want := []byte{
		0x02, 0xBC, // time 7.00 s ×100
		0x80, 0x00, // pressure 8.0 U16P12
		0x20, 0x00, // flow 2.0 U16P12
		0x5D, 0x00, // mix temp 93.0 U16P8
		0x5D, 0x00, 0x00, // head temp 93.0 U24P16
		0x5D, 0x00, // set mix temp
		0x5D, 0x00, // set head temp
		0x90,       // set pressure 9.0 U8P4
		0x20,       // set flow 2.0 U8P4
		0x01, 0x00, // frame number, steam temp
	}
	if !bytes.Equal(got, want) {
		t.Errorf("EncodeShotSample() =\n%X, want\n%X", got, want)
	}
	if len(got) != 19 {
		t.Errorf("sample length = %d, want 19", len(got))
	}
}

func TestEncodeShotSampleTimeSaturates(t *testing.T) {
	got := EncodeShotSample(sim.Sample{Time: 700.0})
	if got[0] != 0xFF || got[1] != 0xFF {
		t.Errorf("time bytes = %02X%02X, want FFFF", got[0], got[1])
	}
}

func TestWaterLevelMM(t *testing.T) {
	tests := []struct {
		name    string
		percent float64
		want    float64
	}{
		{"full tank", 100, 35.0},
		{"typical", 75, 25.0},
		{"at offset", 12.5, 0.0},
		{"below offset clamps", 5, 0.0},
		{"empty", 0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WaterLevelMM(tt.percent); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("WaterLevelMM(%v) = %v, want %v", tt.percent, got, tt.want)
			}
		})
	}
}

func TestEncodeWaterLevels(t *testing.T) {
	tests := []struct {
		name    string
		percent float64
		want    []byte
	}{
		// Exactly two bytes: the mm reading as U16P8.
		{"typical", 75, []byte{0x19, 0x00}},
		{"full tank", 100, []byte{0x23, 0x00}},
		{"empty clamps to zero", 0, []byte{0x00, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeWaterLevels(tt.percent)
			if len(got) != 2 {
				t.Fatalf("EncodeWaterLevels(%v) length = %d, want 2", tt.percent, len(got))
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeWaterLevels(%v) = %X, want %X", tt.percent, got, tt.want)
			}
		})
	}
}

func TestEncodeVersion(t *testing.T) {
	got := EncodeVersion(4, 1)
	if len(got) != 18 {
		t.Fatalf("version length = %d, want 18", len(got))
	}
	if got[0] != 4 || got[1] != 1 || got[9] != 4 || got[10] != 1 {
		t.Errorf("version blocks = %X", got)
	}
}
