package bridge

import (
	"encoding/json"
	"errors"
	"testing"
)

// ─── Event parsing ─────────────────────────────────────────────────

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Event
		wantErr bool
	}{
		{
			name: "ready",
			line: `{"event":"ready","version":"1.0.0"}`,
			want: Event{Event: EventReady, Version: "1.0.0"},
		},
		{
			name: "connected",
			line: `{"event":"connected","client":"AA:BB:CC:DD:EE:FF"}`,
			want: Event{Event: EventConnected, Client: "AA:BB:CC:DD:EE:FF"},
		},
		{
			name: "write",
			line: `{"event":"write","char":"A002","data":"04"}`,
			want: Event{Event: EventWrite, Char: CharRequestedState, Data: "04"},
		},
		{
			name: "error",
			line: `{"event":"error","message":"gatt failure"}`,
			want: Event{Event: EventError, Message: "gatt failure"},
		},
		{
			// The daemon reports BLE controller failures by numeric
			// code alone.
			name: "error with code",
			line: `{"event":"error","code":5}`,
			want: Event{Event: EventError, Code: 5},
		},
		{
			name:    "invalid json",
			line:    `{"event":`,
			wantErr: true,
		},
		{
			name:    "missing event name",
			line:    `{"version":"1.0.0"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEvent([]byte(tt.line))
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseEvent() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseEvent() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEventPayload(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		want    []byte
		wantErr bool
	}{
		{"upper hex", Event{Event: EventWrite, Data: "A0FF"}, []byte{0xA0, 0xFF}, false},
		{"lower hex", Event{Event: EventWrite, Data: "a0ff"}, []byte{0xA0, 0xFF}, false},
		{"empty", Event{Event: EventWrite}, nil, false},
		{"bad hex", Event{Event: EventWrite, Data: "zz"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.event.Payload()
			if (err != nil) != tt.wantErr {
				t.Errorf("Payload() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedEvent) {
					t.Errorf("error = %v, want ErrMalformedEvent", err)
				}
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Payload() = %X, want %X", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Payload()[%d] = %02X, want %02X", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// ─── Command encoding ──────────────────────────────────────────────

func TestNotifyCommand(t *testing.T) {
	cmd := NotifyCommand(CharStateInfo, []byte{0x04, 0x05})

	line, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("marshal error = %v", err)
	}
	want := `{"cmd":"notify","char":"A00E","data":"0405"}`
	if string(line) != want {
		t.Errorf("marshal = %s, want %s", line, want)
	}
}

func TestStartCommandOmitsPayloadFields(t *testing.T) {
	line, err := json.Marshal(Command{Cmd: CmdStart})
	if err != nil {
		t.Fatalf("marshal error = %v", err)
	}
	if string(line) != `{"cmd":"start"}` {
		t.Errorf("marshal = %s, want {\"cmd\":\"start\"}", line)
	}
}

// ─── Characteristics ───────────────────────────────────────────────

func TestCharUUID(t *testing.T) {
	if got := CharShotSample.UUID(); got != "0000A00D-0000-1000-8000-00805F9B34FB" {
		t.Errorf("UUID() = %q", got)
	}
}

func TestCharName(t *testing.T) {
	if got := CharHeaderWrite.Name(); got != "header_write" {
		t.Errorf("Name() = %q, want header_write", got)
	}
	if got := Char("FFFF").Name(); got != "unknown" {
		t.Errorf("Name() = %q, want unknown", got)
	}
}
