package sim

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	states []string
	ends   []ShotRecord
}

func (r *recorder) state(s State, sub SubState) {
	r.mu.Lock()
	r.states = append(r.states, s.String()+"/"+sub.String())
	r.mu.Unlock()
}

func (r *recorder) end(rec ShotRecord) {
	r.mu.Lock()
	r.ends = append(r.ends, rec)
	r.mu.Unlock()
}

func startedEngine(t *testing.T) (*Engine, *recorder, func()) {
	t.Helper()
	m := NewMachine(&fakePolicy{}, 75.0, nil)
	e := NewEngine(m, EngineConfig{SamplePeriod: time.Hour, WaterLevelPeriod: time.Hour}, nil)

	rec := &recorder{}
	e.SetOnStateChange(rec.state)
	e.SetOnShotEnd(rec.end)

	ctx, cancel := context.WithCancel(context.Background())
	e.Start(ctx)
	return e, rec, func() {
		e.Stop()
		cancel()
	}
}

func TestEngineStatus(t *testing.T) {
	e, _, stop := startedEngine(t)
	defer stop()

	state, sub, water, err := e.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if state != StateSleep || sub != SubReady {
		t.Errorf("initial state = %s/%s, want sleep/ready", state, sub)
	}
	if water != 75.0 {
		t.Errorf("water level = %v, want 75", water)
	}
}

func TestEngineStateRequestsAreOrdered(t *testing.T) {
	e, rec, stop := startedEngine(t)
	defer stop()

	if err := e.RequestState(StateIdle); err != nil {
		t.Fatalf("wake error = %v", err)
	}
	if err := e.RequestState(StateEspresso); err != nil {
		t.Fatalf("start error = %v", err)
	}
	if err := e.RequestState(StateIdle); err != nil {
		t.Fatalf("stop error = %v", err)
	}

	// Callbacks run on the engine goroutine before the request returns.
	rec.mu.Lock()
	defer rec.mu.Unlock()
	want := []string{"idle/ready", "espresso/heating", "idle/ready"}
	if len(rec.states) != len(want) {
		t.Fatalf("state changes = %v, want %v", rec.states, want)
	}
	for i, w := range want {
		if rec.states[i] != w {
			t.Errorf("state[%d] = %q, want %q", i, rec.states[i], w)
		}
	}

	if len(rec.ends) != 1 {
		t.Fatalf("shot ends = %d, want 1", len(rec.ends))
	}
	end := rec.ends[0]
	if end.State != StateEspresso || end.Reason != EndStopped {
		t.Errorf("shot end = %s/%s, want espresso/stopped", end.State, end.Reason)
	}
}

func TestEngineRejectsSecondOperation(t *testing.T) {
	e, _, stop := startedEngine(t)
	defer stop()

	if err := e.RequestState(StateSteam); err != nil {
		t.Fatalf("start error = %v", err)
	}
	err := e.RequestState(StateHotWater)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("error = %v, want ErrInvalidRequest", err)
	}
}

func TestEngineStoppedRejectsCommands(t *testing.T) {
	e, _, stop := startedEngine(t)
	stop()

	if err := e.RequestState(StateIdle); !errors.Is(err, ErrEngineStopped) {
		t.Errorf("error = %v, want ErrEngineStopped", err)
	}
}

func TestEngineSettingsRoundTrip(t *testing.T) {
	e, _, stop := startedEngine(t)
	defer stop()

	if err := e.ApplySettings(ShotSettings{GroupTemp: 90.5}); err != nil {
		t.Fatalf("ApplySettings() error = %v", err)
	}
	if err := e.SetWaterLevel(42); err != nil {
		t.Fatalf("SetWaterLevel() error = %v", err)
	}

	_, _, water, err := e.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if water != 42 {
		t.Errorf("water level = %v, want 42", water)
	}
}
