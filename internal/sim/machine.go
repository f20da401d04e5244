package sim

import (
	"fmt"
	"math"
	"time"
)

// Default operating values.
const (
	// defaultTemperature is the simulated brew water temperature in °C.
	defaultTemperature = 93.0

	// defaultSetPressure is the idle pressure setpoint in bar.
	defaultSetPressure = 9.0

	// defaultSetFlow is the idle flow setpoint in mL/s.
	defaultSetFlow = 2.0

	// steamBaseTemp is the steam temperature at operation start in °C.
	steamBaseTemp = 100.0

	// steamMaxTemp is the steam temperature ceiling in °C.
	steamMaxTemp = 150.0

	// steamRampRate is the steam heating rate in °C/s.
	steamRampRate = 2.0

	// preinfusionRampRate is the preinfusion pressure ramp in bar/s.
	preinfusionRampRate = 0.8

	// preinfusionMaxPressure caps the preinfusion ramp in bar.
	preinfusionMaxPressure = 4.0

	// pouringStart is the elapsed time at which pouring begins in
	// seconds (heating plus preinfusion).
	pouringStart = 7.0

	// pouringFrameStep is the seconds per profile frame while pouring.
	pouringFrameStep = 5.0

	// pouringMaxFrame caps the reported frame number while pouring.
	pouringMaxFrame = 5

	// endingPressureDecay is the per-sample pressure drop in bar while
	// ending.
	endingPressureDecay = 0.5

	// endingFlowDecay is the per-sample flow drop in mL/s while ending.
	endingFlowDecay = 0.3
)

// Logger is the minimal logging interface the model needs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
}

// Policy answers whether remotely requested operations are currently
// refused (group head controller takeover).
type Policy interface {
	GHCBlocksRemote() bool
}

// Sample is one reading of the machine's live values.
type Sample struct {
	// Time is seconds elapsed since the operation started.
	Time float64

	// Pressure is the group pressure in bar.
	Pressure float64

	// Flow is the water flow in mL/s.
	Flow float64

	// MixTemp is the mix water temperature in °C.
	MixTemp float64

	// HeadTemp is the group head temperature in °C.
	HeadTemp float64

	// SetMixTemp and SetHeadTemp are the temperature targets in °C.
	SetMixTemp  float64
	SetHeadTemp float64

	// SetPressure and SetFlow are the active setpoints.
	SetPressure float64
	SetFlow     float64

	// FrameNumber is the profile frame being executed.
	FrameNumber uint8

	// SteamTemp is the steam heater temperature in °C.
	SteamTemp uint8
}

// EndReason explains why an operation ended.
type EndReason string

// Operation end reasons.
const (
	EndFinished EndReason = "finished"
	EndStopped  EndReason = "stopped"
	EndSleep    EndReason = "sleep"
)

// Machine is the synchronous behaviour model. It is not safe for
// concurrent use; the Engine goroutine owns it and tests drive it
// directly with explicit clocks.
type Machine struct {
	state    State
	subState SubState

	phases        []phase
	phaseIdx      int
	opStart       time.Time
	phaseDeadline time.Time

	pressure       float64
	flow           float64
	temperature    float64
	setTemperature float64
	setPressure    float64
	setFlow        float64
	steamTemp      float64
	frameNumber    uint8
	waterLevel     float64

	settings ShotSettings
	policy   Policy
	logger   Logger
}

// NewMachine creates a model in the sleep state.
//
// Parameters:
//   - policy: Group head controller policy source
//   - waterLevel: Initial tank level in percent
//   - logger: Destination for transition logs
//
// Returns:
//   - *Machine: Ready model
func NewMachine(policy Policy, waterLevel float64, logger Logger) *Machine {
	return &Machine{
		state:          StateSleep,
		subState:       SubReady,
		temperature:    defaultTemperature,
		setTemperature: defaultTemperature,
		setPressure:    defaultSetPressure,
		setFlow:        defaultSetFlow,
		waterLevel:     waterLevel,
		policy:         policy,
		logger:         logger,
	}
}

// State returns the current state and substate.
func (m *Machine) State() (State, SubState) {
	return m.state, m.subState
}

// Active reports whether an operation is running.
func (m *Machine) Active() bool {
	return m.phases != nil
}

// WaterLevel returns the tank level in percent.
func (m *Machine) WaterLevel() float64 {
	return m.waterLevel
}

// SetWaterLevel sets the tank level in percent, clamped to 0-100.
func (m *Machine) SetWaterLevel(percent float64) {
	m.waterLevel = math.Max(0, math.Min(100, percent))
}

// Settings returns the last shot settings written by the client.
func (m *Machine) Settings() ShotSettings {
	return m.settings
}

// ApplySettings stores client shot settings. A non-zero group
// temperature becomes the active temperature target.
func (m *Machine) ApplySettings(s ShotSettings) {
	m.settings = s
	if s.GroupTemp > 0 {
		m.setTemperature = s.GroupTemp
	}
	m.logInfo("shot settings applied",
		"steam_temp", s.SteamTemp,
		"steam_duration", s.SteamDuration,
		"hot_water_temp", s.HotWaterTemp,
		"hot_water_volume", s.HotWaterVolume,
		"espresso_volume", s.EspressoVolume,
		"group_temp", s.GroupTemp)
}

// RequestState attempts a client transition to the target state.
//
// Operations start only from idle or sleep, one at a time. A group
// head controller at the blocking level refuses everything except
// sleep and idle. Requesting the current state, or idle while already
// idle, is a harmless no-op.
//
// Parameters:
//   - target: Requested state
//   - now: Current time
//
// Returns:
//   - bool: Whether the visible state changed
//   - error: ErrGHCBlocked or ErrInvalidRequest on refusal
func (m *Machine) RequestState(target State, now time.Time) (bool, error) {
	if m.policy != nil && m.policy.GHCBlocksRemote() && !ghcExempt(target) {
		m.logWarn("state request blocked by ghc", "requested", target.String())
		return false, fmt.Errorf("%w: %s requested", ErrGHCBlocked, target)
	}

	switch {
	case target == StateSleep || target == StateGoingToSleep:
		return m.enterSleep(), nil

	case target == StateIdle:
		return m.stop(), nil

	case target.IsOperation():
		return m.startOperation(target, now)

	default:
		// Maintenance and diagnostic states are acknowledged without a
		// phase sequence, matching firmware tolerance.
		if m.Active() {
			m.logWarn("state request refused while operating", "requested", target.String())
			return false, fmt.Errorf("%w: %s while %s", ErrInvalidRequest, target, m.state)
		}
		changed := m.state != target
		m.state = target
		m.subState = SubReady
		if changed {
			m.logInfo("state set", "state", target.String())
		}
		return changed, nil
	}
}

// ghcExempt lists the states a blocking group head controller still
// allows remotely.
func ghcExempt(target State) bool {
	return target == StateSleep || target == StateGoingToSleep || target == StateIdle
}

func (m *Machine) enterSleep() bool {
	changed := m.Active() || m.state != StateSleep
	m.clearOperation()
	m.state = StateSleep
	m.subState = SubReady
	if changed {
		m.logInfo("entering sleep")
	}
	return changed
}

// stop ends any running operation and returns to idle. Stopping while
// already idle does nothing.
func (m *Machine) stop() bool {
	if m.state == StateIdle && !m.Active() {
		return false
	}
	m.clearOperation()
	m.state = StateIdle
	m.subState = SubReady
	m.logInfo("stopped to idle")
	return true
}

// clearOperation zeroes everything a stop must reset, in one place so
// stop and sleep cannot drift apart.
func (m *Machine) clearOperation() {
	m.phases = nil
	m.phaseIdx = 0
	m.phaseDeadline = time.Time{}
	m.pressure = 0
	m.flow = 0
	m.steamTemp = 0
	m.frameNumber = 0
}

func (m *Machine) startOperation(target State, now time.Time) (bool, error) {
	if m.state != StateIdle && m.state != StateSleep {
		m.logWarn("operation refused", "requested", target.String(), "current", m.state.String())
		return false, fmt.Errorf("%w: %s while %s", ErrInvalidRequest, target, m.state)
	}

	phases := phaseTable[target]
	m.clearOperation()
	m.state = target
	m.phases = phases
	m.phaseIdx = 0
	m.subState = phases[0].sub
	m.opStart = now
	m.phaseDeadline = now.Add(phases[0].duration)

	m.logInfo("operation started", "state", target.String(), "substate", m.subState.String())
	return true, nil
}

// AdvanceDue walks one phase transition if its deadline has passed.
//
// The engine calls this in a loop before servicing sample ticks, so a
// transition and a sample due at the same instant are ordered
// transition first.
//
// Parameters:
//   - now: Current time
//
// Returns:
//   - changed: Whether a transition happened
//   - done: Whether the operation finished and the machine is idle
func (m *Machine) AdvanceDue(now time.Time) (changed, done bool) {
	if !m.Active() || now.Before(m.phaseDeadline) {
		return false, false
	}

	m.phaseIdx++
	if m.phaseIdx >= len(m.phases) {
		op := m.state
		m.clearOperation()
		m.state = StateIdle
		m.subState = SubReady
		m.logInfo("operation finished", "state", op.String())
		return true, true
	}

	next := m.phases[m.phaseIdx]
	m.subState = next.sub
	m.phaseDeadline = m.phaseDeadline.Add(next.duration)
	m.logInfo("phase transition", "state", m.state.String(), "substate", m.subState.String())
	return true, false
}

// NextDeadline returns the next phase transition time.
func (m *Machine) NextDeadline() (time.Time, bool) {
	if !m.Active() {
		return time.Time{}, false
	}
	return m.phaseDeadline, true
}

// Sample computes the machine's live values for the current phase.
// Ending-phase decay is stateful, so samples must be taken in time
// order.
//
// Parameters:
//   - now: Current time
//
// Returns:
//   - Sample: Live values at now
func (m *Machine) Sample(now time.Time) Sample {
	t := now.Sub(m.opStart).Seconds()

	switch m.state {
	case StateEspresso:
		m.sampleEspresso(t)
	case StateSteam:
		m.pressure = 1.5
		m.flow = 0
		m.steamTemp = math.Min(steamMaxTemp, steamBaseTemp+t*steamRampRate)
	case StateHotWater:
		m.pressure = 0.5
		m.flow = 6.0
	case StateHotWaterRinse:
		m.pressure = 1.0
		m.flow = 8.0
	}

	return Sample{
		Time:        t,
		Pressure:    m.pressure,
		Flow:        m.flow,
		MixTemp:     m.temperature,
		HeadTemp:    m.temperature,
		SetMixTemp:  m.setTemperature,
		SetHeadTemp: m.setTemperature,
		SetPressure: m.setPressure,
		SetFlow:     m.setFlow,
		FrameNumber: m.frameNumber,
		SteamTemp:   uint8(m.steamTemp),
	}
}

func (m *Machine) sampleEspresso(t float64) {
	switch m.subState {
	case SubHeating:
		m.pressure = 0
		m.flow = 0
		m.setPressure = defaultSetPressure
		m.setFlow = defaultSetFlow
	case SubPreinfusion:
		m.pressure = math.Min(preinfusionMaxPressure, t*preinfusionRampRate)
		m.flow = 2.0
		m.setPressure = preinfusionMaxPressure
		m.setFlow = 2.0
	case SubPouring:
		pt := t - pouringStart
		m.pressure = 8.0 + math.Sin(pt*0.5)
		m.flow = 2.0 + math.Sin(pt*0.3)*0.5
		m.setPressure = defaultSetPressure
		m.setFlow = 2.0
		frame := 1 + int(pt/pouringFrameStep)
		if frame > pouringMaxFrame {
			frame = pouringMaxFrame
		}
		m.frameNumber = uint8(frame)
	case SubEnding:
		m.pressure = math.Max(0, m.pressure-endingPressureDecay)
		m.flow = math.Max(0, m.flow-endingFlowDecay)
	}
}

func (m *Machine) logInfo(msg string, keysAndValues ...any) {
	if m.logger != nil {
		m.logger.Info(msg, keysAndValues...)
	}
}

func (m *Machine) logWarn(msg string, keysAndValues ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, keysAndValues...)
	}
}
