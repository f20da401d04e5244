package bridge

import (
	"context"
	"sync"
	"testing"

	"github.com/decenza/de1-sim-core/internal/mmr"
	"github.com/decenza/de1-sim-core/internal/profile"
	"github.com/decenza/de1-sim-core/internal/sim"
)

// fakeCommander records notifies instead of talking to a daemon.
type fakeCommander struct {
	mu       sync.Mutex
	notifies []Command
	onEvent  func(Event)
}

func (f *fakeCommander) Send(_ context.Context, cmd Command) error {
	f.mu.Lock()
	f.notifies = append(f.notifies, cmd)
	f.mu.Unlock()
	return nil
}

func (f *fakeCommander) Notify(ctx context.Context, char Char, payload []byte) error {
	return f.Send(ctx, NotifyCommand(char, payload))
}

func (f *fakeCommander) SetOnEvent(cb func(Event)) { f.onEvent = cb }
func (f *fakeCommander) IsConnected() bool         { return true }
func (f *fakeCommander) Stats() Stats              { return Stats{Connected: true} }
func (f *fakeCommander) Close() error              { return nil }

func (f *fakeCommander) sent() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Command, len(f.notifies))
	copy(out, f.notifies)
	return out
}

// fakeEngine records model calls.
type fakeEngine struct {
	requested []sim.State
	settings  []sim.ShotSettings
	err       error
}

func (f *fakeEngine) RequestState(target sim.State) error {
	f.requested = append(f.requested, target)
	return f.err
}

func (f *fakeEngine) ApplySettings(s sim.ShotSettings) error {
	f.settings = append(f.settings, s)
	return nil
}

func (f *fakeEngine) Status() (sim.State, sim.SubState, float64, error) {
	return sim.StateIdle, sim.SubReady, 75.0, nil
}

func newTestHandler() (*Handler, *fakeCommander, *fakeEngine, *mmr.Bank, *profile.Store) {
	cmder := &fakeCommander{}
	engine := &fakeEngine{}
	bank := mmr.NewBank(mmr.Defaults{MachineModel: 2, SerialNumber: 1, HeaterVoltage: 230}, nil)
	store := profile.NewStore(nil)
	h := NewHandler(cmder, engine, bank, store, HandlerConfig{APIVersion: 4, Release: 1}, nil)
	return h, cmder, engine, bank, store
}

// ─── Write dispatch ────────────────────────────────────────────────

func TestHandleStateRequestWrite(t *testing.T) {
	h, _, engine, _, _ := newTestHandler()

	h.HandleEvent(Event{Event: EventWrite, Char: CharRequestedState, Data: "04"})

	if len(engine.requested) != 1 || engine.requested[0] != sim.StateEspresso {
		t.Errorf("requested = %v, want [espresso]", engine.requested)
	}
}

func TestHandleStateRequestBlockedIsDropped(t *testing.T) {
	h, _, engine, _, _ := newTestHandler()
	engine.err = sim.ErrGHCBlocked

	// Must not panic or notify anything; refusal is log-only.
	h.HandleEvent(Event{Event: EventWrite, Char: CharRequestedState, Data: "05"})
}

func TestHandleRegisterReadNotifiesReply(t *testing.T) {
	h, cmder, _, bank, _ := newTestHandler()
	bank.SetGHCLevel(3)

	// Read GHC_INFO 0x80381C.
	h.HandleEvent(Event{Event: EventWrite, Char: CharReadFromMMR, Data: "0480381C"})

	sent := cmder.sent()
	if len(sent) != 1 {
		t.Fatalf("notifies = %d, want 1", len(sent))
	}
	if sent[0].Char != CharReadFromMMR {
		t.Errorf("notify char = %s, want A005", sent[0].Char)
	}
	if sent[0].Data != "0080381C03000000" {
		t.Errorf("notify data = %s, want 0080381C03000000", sent[0].Data)
	}
}

func TestHandleRegisterWrite(t *testing.T) {
	h, _, _, bank, _ := newTestHandler()

	// Write fan threshold = 0x32.
	h.HandleEvent(Event{Event: EventWrite, Char: CharWriteToMMR, Data: "048038083200000000000000"})

	if got := bank.Read(mmr.AddrFanThreshold); got != 0x32 {
		t.Errorf("fan threshold = %d, want 50", got)
	}
}

func TestHandleProfileUpload(t *testing.T) {
	h, _, _, _, store := newTestHandler()

	h.HandleEvent(Event{Event: EventWrite, Char: CharHeaderWrite, Data: "0102001060"})
	h.HandleEvent(Event{Event: EventWrite, Char: CharFrameWrite, Data: "0000905D142000C8"})
	h.HandleEvent(Event{Event: EventWrite, Char: CharFrameWrite, Data: "0101905D142000C8"})
	h.HandleEvent(Event{Event: EventWrite, Char: CharFrameWrite, Data: "0200C8"})

	snap := store.Snapshot()
	if !snap.Complete {
		t.Error("profile should be complete")
	}
	if snap.Header.FrameCount != 2 {
		t.Errorf("frame count = %d, want 2", snap.Header.FrameCount)
	}
	if snap.MaxTotalVolume != 200 {
		t.Errorf("max total volume = %d, want 200", snap.MaxTotalVolume)
	}
}

func TestHandleShotSettingsWrite(t *testing.T) {
	h, _, engine, _, _ := newTestHandler()

	h.HandleEvent(Event{Event: EventWrite, Char: CharShotSettings, Data: "80963C55C800245D80"})

	if len(engine.settings) != 1 {
		t.Fatalf("settings applied = %d, want 1", len(engine.settings))
	}
	s := engine.settings[0]
	if s.SteamTemp != 150 || s.GroupTemp != 93.5 {
		t.Errorf("settings = %+v", s)
	}
}

func TestMalformedWritesAreDropped(t *testing.T) {
	h, cmder, engine, _, _ := newTestHandler()

	tests := []struct {
		name string
		e    Event
	}{
		{"bad hex", Event{Event: EventWrite, Char: CharRequestedState, Data: "zz"}},
		{"empty state request", Event{Event: EventWrite, Char: CharRequestedState, Data: ""}},
		{"short mmr read", Event{Event: EventWrite, Char: CharReadFromMMR, Data: "0480"}},
		{"short header", Event{Event: EventWrite, Char: CharHeaderWrite, Data: "0102"}},
		{"short settings", Event{Event: EventWrite, Char: CharShotSettings, Data: "8096"}},
		{"unknown characteristic", Event{Event: EventWrite, Char: "BEEF", Data: "00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.HandleEvent(tt.e)
		})
	}

	if len(engine.requested) != 0 {
		t.Errorf("state requests = %v, want none", engine.requested)
	}
	if len(cmder.sent()) != 0 {
		t.Errorf("notifies = %v, want none", cmder.sent())
	}
}

// captureLogger records log calls for assertions.
type captureLogger struct {
	warns [][]any
}

func (l *captureLogger) Debug(string, ...any) {}
func (l *captureLogger) Info(string, ...any)  {}
func (l *captureLogger) Error(string, ...any) {}

func (l *captureLogger) Warn(_ string, keysAndValues ...any) {
	l.warns = append(l.warns, keysAndValues)
}

func TestHandleDaemonErrorLogsCode(t *testing.T) {
	cmder := &fakeCommander{}
	logger := &captureLogger{}
	h := NewHandler(cmder, &fakeEngine{}, mmr.NewBank(mmr.Defaults{}, nil), profile.NewStore(nil), HandlerConfig{}, logger)

	h.HandleEvent(Event{Event: EventError, Code: 5})

	if len(logger.warns) != 1 {
		t.Fatalf("warnings = %d, want 1", len(logger.warns))
	}
	kv := logger.warns[0]
	found := false
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i] == "code" && kv[i+1] == 5 {
			found = true
		}
	}
	if !found {
		t.Errorf("warning kv = %v, want code=5", kv)
	}
}

// ─── Read requests ─────────────────────────────────────────────────

func TestHandleReadRequests(t *testing.T) {
	h, cmder, _, _, _ := newTestHandler()

	h.HandleEvent(Event{Event: EventRead, Char: CharVersion})
	h.HandleEvent(Event{Event: EventRead, Char: CharStateInfo})
	h.HandleEvent(Event{Event: EventRead, Char: CharWaterLevels})

	sent := cmder.sent()
	if len(sent) != 3 {
		t.Fatalf("notifies = %d, want 3", len(sent))
	}
	if sent[1].Char != CharStateInfo || sent[1].Data != "0200" {
		t.Errorf("state read reply = %+v, want idle/ready", sent[1])
	}
	if sent[2].Data != "1900" {
		t.Errorf("water read reply = %s, want 1900", sent[2].Data)
	}
}

// ─── Central tracking ──────────────────────────────────────────────

func TestCentralLifecycle(t *testing.T) {
	h, _, _, _, _ := newTestHandler()

	h.HandleEvent(Event{Event: EventConnected, Client: "AA:BB"})
	h.HandleEvent(Event{Event: EventConnected, Client: "CC:DD"}) // logged, not fatal
	h.HandleEvent(Event{Event: EventDisconnected})

	h.clientMu.Lock()
	defer h.clientMu.Unlock()
	if h.central != "" {
		t.Errorf("central = %q, want empty after disconnect", h.central)
	}
}

// ─── Engine callbacks ──────────────────────────────────────────────

func TestPublishCallbacks(t *testing.T) {
	h, cmder, _, _, _ := newTestHandler()

	h.PublishState(sim.StateEspresso, sim.SubHeating)
	h.PublishSample(sim.Sample{Time: 1.0, SetPressure: 9, SetFlow: 2})
	h.PublishWaterLevel(75)

	sent := cmder.sent()
	if len(sent) != 3 {
		t.Fatalf("notifies = %d, want 3", len(sent))
	}
	if sent[0].Char != CharStateInfo || sent[0].Data != "0401" {
		t.Errorf("state notify = %+v", sent[0])
	}
	if sent[1].Char != CharShotSample || len(sent[1].Data) != 38 {
		t.Errorf("sample notify = %+v, want 19 bytes hex", sent[1])
	}
	if sent[2].Char != CharWaterLevels {
		t.Errorf("water notify = %+v", sent[2])
	}
}
