package bridge

import (
	"context"
	"errors"
	"sync"

	"github.com/decenza/de1-sim-core/internal/mmr"
	"github.com/decenza/de1-sim-core/internal/profile"
	"github.com/decenza/de1-sim-core/internal/sim"
)

// Engine is the behaviour model surface the handler drives.
type Engine interface {
	RequestState(target sim.State) error
	ApplySettings(s sim.ShotSettings) error
	Status() (sim.State, sim.SubState, float64, error)
}

// Registers is the register bank surface the handler drives.
type Registers interface {
	ReadReply(addr mmr.Address) []byte
	Write(addr mmr.Address, value uint32)
}

// Profiles is the profile store surface the handler drives.
type Profiles interface {
	Begin(h profile.Header)
	ApplyFrameWrite(data []byte) (profile.WriteResult, error)
}

// HandlerConfig carries the handler's reported identity.
type HandlerConfig struct {
	// APIVersion and Release fill the version characteristic.
	APIVersion uint8
	Release    uint8
}

// Handler routes daemon events to the model and model callbacks back
// to the daemon.
//
// All event handling runs on the client's single callback goroutine,
// so per-characteristic processing is naturally serialised.
type Handler struct {
	cmder    Commander
	engine   Engine
	regs     Registers
	profiles Profiles
	cfg      HandlerConfig
	logger   Logger

	// Central tracking. The daemon accepts one central; a second
	// connected event without a disconnect means daemon and model
	// disagree, which is worth a warning.
	clientMu sync.Mutex
	central  string
}

// NewHandler wires the protocol handler.
//
// Parameters:
//   - cmder: Daemon transport
//   - engine: Behaviour model
//   - regs: Register bank
//   - profiles: Profile store
//   - cfg: Version identity
//   - logger: Destination for protocol logs
//
// Returns:
//   - *Handler: Handler ready to Bind
func NewHandler(cmder Commander, engine Engine, regs Registers, profiles Profiles, cfg HandlerConfig, logger Logger) *Handler {
	return &Handler{
		cmder:    cmder,
		engine:   engine,
		regs:     regs,
		profiles: profiles,
		cfg:      cfg,
		logger:   logger,
	}
}

// Bind registers the handler as the client's event callback.
func (h *Handler) Bind() {
	h.cmder.SetOnEvent(h.HandleEvent)
}

// HandleEvent processes one daemon event.
func (h *Handler) HandleEvent(e Event) {
	switch e.Event {
	case EventReady:
		h.logInfo("daemon ready", "version", e.Version)
	case EventAdvertising:
		h.logInfo("advertising started")
	case EventConnected:
		h.handleConnected(e.Client)
	case EventDisconnected:
		h.handleDisconnected()
	case EventWrite:
		h.handleWrite(e)
	case EventRead:
		h.handleRead(e)
	case EventError:
		h.logWarn("daemon error", "code", e.Code, "message", e.Message)
	default:
		h.logWarn("unknown event", "event", e.Event)
	}
}

func (h *Handler) handleConnected(client string) {
	h.clientMu.Lock()
	prev := h.central
	h.central = client
	h.clientMu.Unlock()

	if prev != "" && prev != client {
		h.logWarn("central replaced without disconnect", "previous", prev, "client", client)
		return
	}
	h.logInfo("central connected", "client", client)
}

func (h *Handler) handleDisconnected() {
	h.clientMu.Lock()
	h.central = ""
	h.clientMu.Unlock()

	h.logInfo("central disconnected")
}

// handleWrite dispatches a characteristic write to the model. Decode
// failures are logged and dropped; they never disturb machine state.
func (h *Handler) handleWrite(e Event) {
	data, err := e.Payload()
	if err != nil {
		h.logWarn("write with invalid payload", "char", e.Char.Name(), "error", err)
		return
	}

	switch e.Char {
	case CharRequestedState:
		h.handleStateRequest(data)

	case CharReadFromMMR:
		h.handleRegisterRead(data)

	case CharWriteToMMR:
		addr, value, err := mmr.ParseWriteRequest(data)
		if err != nil {
			h.logWarn("register write dropped", "error", err)
			return
		}
		h.regs.Write(addr, value)

	case CharShotSettings:
		settings, err := sim.DecodeShotSettings(data)
		if err != nil {
			h.logWarn("shot settings dropped", "error", err)
			return
		}
		if err := h.engine.ApplySettings(settings); err != nil {
			h.logError("apply shot settings failed", err)
		}

	case CharHeaderWrite:
		header, err := profile.DecodeHeader(data)
		if err != nil {
			h.logWarn("profile header dropped", "error", err)
			return
		}
		h.profiles.Begin(header)

	case CharFrameWrite:
		result, err := h.profiles.ApplyFrameWrite(data)
		if err != nil {
			h.logWarn("profile frame dropped", "error", err, "result", result.String())
		}

	default:
		h.logWarn("write to unexpected characteristic", "char", string(e.Char))
	}
}

func (h *Handler) handleStateRequest(data []byte) {
	if len(data) < 1 {
		h.logWarn("empty state request")
		return
	}

	target := sim.State(data[0])
	err := h.engine.RequestState(target)
	switch {
	case err == nil:
	case errors.Is(err, sim.ErrGHCBlocked):
		h.logWarn("state request blocked by ghc", "requested", target.String())
	case errors.Is(err, sim.ErrInvalidRequest):
		h.logWarn("state request refused", "requested", target.String())
	default:
		h.logError("state request failed", err)
	}
}

func (h *Handler) handleRegisterRead(data []byte) {
	addr, err := mmr.ParseReadRequest(data)
	if err != nil {
		h.logWarn("register read dropped", "error", err)
		return
	}
	h.notify(CharReadFromMMR, h.regs.ReadReply(addr))
}

// handleRead answers central read requests with the current value.
func (h *Handler) handleRead(e Event) {
	switch e.Char {
	case CharVersion:
		h.notify(CharVersion, EncodeVersion(h.cfg.APIVersion, h.cfg.Release))

	case CharStateInfo:
		state, sub, _, err := h.engine.Status()
		if err != nil {
			h.logError("status read failed", err)
			return
		}
		h.notify(CharStateInfo, EncodeStateInfo(state, sub))

	case CharWaterLevels:
		_, _, water, err := h.engine.Status()
		if err != nil {
			h.logError("status read failed", err)
			return
		}
		h.notify(CharWaterLevels, EncodeWaterLevels(water))

	default:
		h.logDebug("read of uncached characteristic", "char", e.Char.Name())
	}
}

// PublishState notifies a state change. Wire it to the engine's state
// callback.
func (h *Handler) PublishState(state sim.State, sub sim.SubState) {
	h.notify(CharStateInfo, EncodeStateInfo(state, sub))
}

// PublishSample notifies a live sample. Wire it to the engine's sample
// callback.
func (h *Handler) PublishSample(s sim.Sample) {
	h.notify(CharShotSample, EncodeShotSample(s))
}

// PublishWaterLevel notifies the tank level. Wire it to the engine's
// water level callback.
func (h *Handler) PublishWaterLevel(percent float64) {
	h.notify(CharWaterLevels, EncodeWaterLevels(percent))
}

func (h *Handler) notify(char Char, payload []byte) {
	if err := h.cmder.Notify(context.Background(), char, payload); err != nil {
		if errors.Is(err, ErrNotConnected) {
			h.logDebug("notify skipped, daemon offline", "char", char.Name())
			return
		}
		h.logError("notify failed", err)
	}
}

func (h *Handler) logDebug(msg string, keysAndValues ...any) {
	if h.logger != nil {
		h.logger.Debug(msg, keysAndValues...)
	}
}

func (h *Handler) logInfo(msg string, keysAndValues ...any) {
	if h.logger != nil {
		h.logger.Info(msg, keysAndValues...)
	}
}

func (h *Handler) logWarn(msg string, keysAndValues ...any) {
	if h.logger != nil {
		h.logger.Warn(msg, keysAndValues...)
	}
}

func (h *Handler) logError(msg string, err error) {
	if h.logger != nil {
		h.logger.Error(msg, "error", err)
	}
}
