package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/decenza/de1-sim-core/internal/bridge"
	"github.com/decenza/de1-sim-core/internal/history"
	"github.com/decenza/de1-sim-core/internal/infrastructure/mqtt"
	"github.com/decenza/de1-sim-core/internal/sim"
)

// recordTimeout bounds the SQLite insert for a finished shot.
const recordTimeout = 5 * time.Second

// sampleQoS is the QoS for high-rate sample publishes. Fire and forget:
// a dropped sample is cheaper than a blocked engine callback.
const sampleQoS = 0

// Engine is the subset of the simulation engine the service drives.
type Engine interface {
	SetOnStateChange(fn func(sim.State, sim.SubState))
	SetOnSample(fn func(sim.Sample))
	SetOnWaterLevel(fn func(percent float64))
	SetOnShotEnd(fn func(sim.ShotRecord))
	RequestState(target sim.State) error
	SetWaterLevel(percent float64) error
}

// Broker is the subset of the MQTT client the service publishes through.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Metrics is the subset of the InfluxDB client the service writes to.
type Metrics interface {
	WriteShotSample(shotID, state string, elapsed, pressure, flow, mixTemp, headTemp float64, frame uint8)
	WriteWaterLevel(percent, millimetres float64)
	WriteStateChange(state, substate string)
}

// Registers is the subset of the MMR bank the control surface touches.
type Registers interface {
	GHCLevel() uint32
	SetGHCLevel(level uint32)
}

// Logger is the minimal logging interface used by this package.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Service fans engine events out to MQTT, InfluxDB, and the shot
// history repository, and feeds MQTT control commands back into the
// engine.
//
// All sinks are optional: pass nil for any of broker, metrics, or
// shots and that sink is skipped.
type Service struct {
	engine    Engine
	broker    Broker
	metrics   Metrics
	shots     history.Repository
	registers Registers
	logger    Logger
	qos       byte

	// mu guards the per-shot bookkeeping below. Engine callbacks run
	// on the engine goroutine; MQTT control handlers run on broker
	// goroutines.
	mu        sync.Mutex
	shotID    string
	lastState sim.State
}

// New creates a telemetry service.
//
// Parameters:
//   - engine: The simulation engine to bind callbacks to
//   - broker: MQTT client for publish/subscribe (nil disables MQTT)
//   - metrics: InfluxDB client for time-series points (nil disables)
//   - shots: Shot history repository (nil disables persistence)
//   - registers: MMR bank for GHC control commands
//   - qos: QoS for state and control traffic (samples always use QoS 0)
//   - logger: Structured logger (nil disables logging)
//
// Returns:
//   - *Service: Service ready for Bind
func New(engine Engine, broker Broker, metrics Metrics, shots history.Repository, registers Registers, qos byte, logger Logger) *Service {
	return &Service{
		engine:    engine,
		broker:    broker,
		metrics:   metrics,
		shots:     shots,
		registers: registers,
		logger:    logger,
		qos:       qos,
	}
}

// Bind registers the engine callbacks and, when a broker is configured,
// subscribes to the operator control topics.
//
// Call once before Engine.Start.
//
// Returns:
//   - error: If the control subscription fails
func (s *Service) Bind() error {
	s.engine.SetOnStateChange(s.handleStateChange)
	s.engine.SetOnSample(s.handleSample)
	s.engine.SetOnWaterLevel(s.handleWaterLevel)
	s.engine.SetOnShotEnd(s.handleShotEnd)

	if s.broker == nil {
		return nil
	}

	if err := s.broker.Subscribe(mqtt.Topics{}.AllControl(), s.qos, s.handleControl); err != nil {
		return fmt.Errorf("subscribing to control topics: %w", err)
	}

	return nil
}

// ─── Outbound: engine callbacks ──────────────────────────────────────────────

// statePayload is the JSON published on the state topic.
type statePayload struct {
	State    string `json:"state"`
	SubState string `json:"substate"`
	ShotID   string `json:"shot_id,omitempty"`
}

// samplePayload is the JSON published per shot sample.
type samplePayload struct {
	ShotID      string  `json:"shot_id"`
	Time        float64 `json:"time"`
	Pressure    float64 `json:"pressure"`
	Flow        float64 `json:"flow"`
	MixTemp     float64 `json:"mix_temp"`
	HeadTemp    float64 `json:"head_temp"`
	SetPressure float64 `json:"set_pressure"`
	SetFlow     float64 `json:"set_flow"`
	Frame       uint8   `json:"frame"`
	SteamTemp   uint8   `json:"steam_temp"`
}

// waterPayload is the JSON published on the water topic.
type waterPayload struct {
	Percent     float64 `json:"percent"`
	Millimetres float64 `json:"mm"`
}

// shotEndPayload is the JSON published when an operation ends.
type shotEndPayload struct {
	ShotID    string  `json:"shot_id"`
	State     string  `json:"state"`
	StartedAt string  `json:"started_at"`
	EndedAt   string  `json:"ended_at"`
	Duration  float64 `json:"duration_s"`
	Reason    string  `json:"reason"`
	Frames    uint8   `json:"frames"`
}

func (s *Service) handleStateChange(state sim.State, sub sim.SubState) {
	s.mu.Lock()
	if state.IsOperation() && state != s.lastState {
		// A fresh operation gets a new shot ID so samples and the
		// eventual history row correlate.
		s.shotID = uuid.New().String()
	}
	s.lastState = state
	shotID := s.shotID
	s.mu.Unlock()

	s.publish(mqtt.Topics{}.State(), statePayload{
		State:    state.String(),
		SubState: sub.String(),
		ShotID:   shotID,
	}, s.qos, true)

	if s.metrics != nil {
		s.metrics.WriteStateChange(state.String(), sub.String())
	}
}

func (s *Service) handleSample(sample sim.Sample) {
	s.mu.Lock()
	shotID := s.shotID
	state := s.lastState
	s.mu.Unlock()

	s.publish(mqtt.Topics{}.ShotSample(), samplePayload{
		ShotID:      shotID,
		Time:        sample.Time,
		Pressure:    sample.Pressure,
		Flow:        sample.Flow,
		MixTemp:     sample.MixTemp,
		HeadTemp:    sample.HeadTemp,
		SetPressure: sample.SetPressure,
		SetFlow:     sample.SetFlow,
		Frame:       sample.FrameNumber,
		SteamTemp:   sample.SteamTemp,
	}, sampleQoS, false)

	if s.metrics != nil {
		s.metrics.WriteShotSample(shotID, state.String(),
			sample.Time, sample.Pressure, sample.Flow,
			sample.MixTemp, sample.HeadTemp, sample.FrameNumber)
	}
}

func (s *Service) handleWaterLevel(percent float64) {
	mm := bridge.WaterLevelMM(percent)

	s.publish(mqtt.Topics{}.WaterLevel(), waterPayload{
		Percent:     percent,
		Millimetres: mm,
	}, s.qos, true)

	if s.metrics != nil {
		s.metrics.WriteWaterLevel(percent, mm)
	}
}

func (s *Service) handleShotEnd(rec sim.ShotRecord) {
	s.mu.Lock()
	shotID := s.shotID
	s.shotID = ""
	s.mu.Unlock()

	if shotID == "" {
		shotID = uuid.New().String()
	}

	duration := rec.EndedAt.Sub(rec.StartedAt).Seconds()

	s.publish(mqtt.Topics{}.ShotEnd(), shotEndPayload{
		ShotID:    shotID,
		State:     rec.State.String(),
		StartedAt: rec.StartedAt.UTC().Format(time.RFC3339),
		EndedAt:   rec.EndedAt.UTC().Format(time.RFC3339),
		Duration:  duration,
		Reason:    string(rec.Reason),
		Frames:    rec.Frames,
	}, s.qos, false)

	if s.shots == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	err := s.shots.Record(ctx, history.Shot{
		ID:        shotID,
		State:     rec.State.String(),
		StartedAt: rec.StartedAt,
		EndedAt:   rec.EndedAt,
		Duration:  duration,
		EndReason: string(rec.Reason),
		Frames:    int(rec.Frames),
	})
	if err != nil {
		s.logError("recording shot history", "shot_id", shotID, "error", err)
		return
	}

	s.logInfo("shot recorded",
		"shot_id", shotID,
		"state", rec.State.String(),
		"duration_s", duration,
		"reason", string(rec.Reason),
	)
}

// publish marshals and publishes a payload, logging failures.
func (s *Service) publish(topic string, payload any, qos byte, retained bool) {
	if s.broker == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.logError("marshalling telemetry payload", "topic", topic, "error", err)
		return
	}

	if err := s.broker.Publish(topic, data, qos, retained); err != nil {
		s.logDebug("publish failed", "topic", topic, "error", err)
	}
}

// ─── Inbound: operator control ───────────────────────────────────────────────

// controlStates maps control payload names to requestable states.
// "flush" is an operator-friendly alias for the hot water rinse state.
var controlStates = map[string]sim.State{
	"sleep":           sim.StateSleep,
	"going_to_sleep":  sim.StateGoingToSleep,
	"idle":            sim.StateIdle,
	"stop":            sim.StateIdle,
	"espresso":        sim.StateEspresso,
	"steam":           sim.StateSteam,
	"hot_water":       sim.StateHotWater,
	"flush":           sim.StateHotWaterRinse,
	"hot_water_rinse": sim.StateHotWaterRinse,
	"clean":           sim.StateClean,
	"descale":         sim.StateDescale,
}

// stateCommand is the JSON accepted on the control state topic.
// A bare state name is also accepted.
type stateCommand struct {
	State string `json:"state"`
}

// levelCommand is the JSON accepted on the GHC and water level topics.
// A bare number is also accepted.
type levelCommand struct {
	Level   *uint32  `json:"level,omitempty"`
	Percent *float64 `json:"percent,omitempty"`
}

// handleControl dispatches an inbound control message by topic suffix.
func (s *Service) handleControl(topic string, payload []byte) error {
	topics := mqtt.Topics{}

	switch topic {
	case topics.ControlState():
		return s.controlState(payload)
	case topics.ControlGHC():
		return s.controlGHC(payload)
	case topics.ControlWaterLevel():
		return s.controlWaterLevel(payload)
	default:
		s.logDebug("ignoring unknown control topic", "topic", topic)
		return nil
	}
}

func (s *Service) controlState(payload []byte) error {
	name := strings.TrimSpace(string(payload))
	var cmd stateCommand
	if err := json.Unmarshal(payload, &cmd); err == nil && cmd.State != "" {
		name = cmd.State
	}
	name = strings.ToLower(name)

	target, ok := controlStates[name]
	if !ok {
		return fmt.Errorf("unknown state %q", name)
	}

	if err := s.engine.RequestState(target); err != nil {
		return fmt.Errorf("requesting state %s: %w", target, err)
	}

	s.logInfo("control state request", "state", target.String())
	return nil
}

func (s *Service) controlGHC(payload []byte) error {
	text := strings.TrimSpace(string(payload))
	var level uint64

	var cmd levelCommand
	if err := json.Unmarshal(payload, &cmd); err == nil && cmd.Level != nil {
		level = uint64(*cmd.Level)
	} else {
		parsed, err := strconv.ParseUint(text, 10, 32)
		if err != nil {
			return fmt.Errorf("parsing GHC level %q: %w", text, err)
		}
		level = parsed
	}

	s.registers.SetGHCLevel(uint32(level))
	s.logInfo("control GHC level", "level", s.registers.GHCLevel())
	return nil
}

func (s *Service) controlWaterLevel(payload []byte) error {
	text := strings.TrimSpace(string(payload))
	var percent float64

	var cmd levelCommand
	if err := json.Unmarshal(payload, &cmd); err == nil && cmd.Percent != nil {
		percent = *cmd.Percent
	} else {
		parsed, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return fmt.Errorf("parsing water level %q: %w", text, err)
		}
		percent = parsed
	}

	if err := s.engine.SetWaterLevel(percent); err != nil {
		return fmt.Errorf("setting water level: %w", err)
	}

	s.logInfo("control water level", "percent", percent)
	return nil
}

// ─── Logging helpers ─────────────────────────────────────────────────────────

func (s *Service) logDebug(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, keysAndValues...)
	}
}

func (s *Service) logInfo(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Info(msg, keysAndValues...)
	}
}

func (s *Service) logError(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Error(msg, keysAndValues...)
	}
}
