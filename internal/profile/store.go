package profile

import (
	"fmt"
	"sync"

	"github.com/decenza/de1-sim-core/internal/codec"
)

// Logger is the minimal logging interface the store needs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
}

// WriteResult classifies the outcome of a frame write.
type WriteResult int

// Frame write outcomes.
const (
	// FrameStored means a primary frame was decoded and stored.
	FrameStored WriteResult = iota

	// ExtensionStored means a limiter extension was merged into its
	// primary frame.
	ExtensionStored

	// ProfileComplete means the tail frame arrived and the upload is
	// finished.
	ProfileComplete

	// FrameIgnored means the index was out of range (or no header has
	// been written) and the payload was dropped.
	FrameIgnored
)

// String returns the outcome name for logs.
func (r WriteResult) String() string {
	switch r {
	case FrameStored:
		return "frame_stored"
	case ExtensionStored:
		return "extension_stored"
	case ProfileComplete:
		return "profile_complete"
	case FrameIgnored:
		return "frame_ignored"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only copy of the stored profile.
type Snapshot struct {
	Header         Header
	Frames         []Frame
	MaxTotalVolume int
	Complete       bool
}

// Store holds the profile currently uploaded by the client.
//
// A header write resets the store; frame writes fill it in. The store
// is safe for concurrent use.
type Store struct {
	mu             sync.RWMutex
	header         Header
	haveHeader     bool
	frames         []Frame
	maxTotalVolume int
	complete       bool
	logger         Logger
}

// NewStore creates an empty profile store.
func NewStore(logger Logger) *Store {
	return &Store{logger: logger}
}

// Begin starts a new profile upload, discarding any stored frames.
//
// Parameters:
//   - h: Decoded profile header
func (s *Store) Begin(h Header) {
	s.mu.Lock()
	s.header = h
	s.haveHeader = true
	s.frames = make([]Frame, h.FrameCount)
	s.maxTotalVolume = 0
	s.complete = false
	s.mu.Unlock()

	s.logInfo("profile upload started",
		"frames", h.FrameCount,
		"preinfuse", h.PreinfuseCount,
		"min_pressure", h.MinimumPressure,
		"max_flow", h.MaximumFlow)
}

// ApplyFrameWrite decodes and routes one frame write payload.
//
// The index byte decides the meaning: primary frame, limiter extension
// or tail frame. Out-of-range indexes are dropped with a warning and
// reported as FrameIgnored, not as an error; errors are reserved for
// payloads that cannot be decoded at all.
//
// Parameters:
//   - data: Frame write payload (at least 8 bytes for primary frames,
//     3 for extensions and tails)
//
// Returns:
//   - WriteResult: How the payload was handled
//   - error: If the payload is too short to carry an index
func (s *Store) ApplyFrameWrite(data []byte) (WriteResult, error) {
	if len(data) < 1 {
		return FrameIgnored, fmt.Errorf("%w: empty frame write", ErrMalformedPayload)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.haveHeader {
		s.logWarn("frame write before header", "index", data[0])
		return FrameIgnored, ErrNoHeader
	}

	index := data[0]
	count := s.header.FrameCount

	switch {
	case index < count:
		return s.storeFrame(data)
	case index == count:
		return s.storeTail(data)
	case index >= extensionBase && index < extensionBase+count:
		return s.storeExtension(data)
	default:
		s.logWarn("frame index out of range", "index", index, "frame_count", count)
		return FrameIgnored, nil
	}
}

func (s *Store) storeFrame(data []byte) (WriteResult, error) {
	if len(data) < frameLen {
		return FrameIgnored, fmt.Errorf("%w: frame requires %d bytes, got %d", ErrMalformedPayload, frameLen, len(data))
	}

	frame, err := decodeFrame(data)
	if err != nil {
		return FrameIgnored, err
	}

	// Preserve a limiter already written for this slot, frame and
	// extension order is not guaranteed.
	prev := s.frames[frame.Index]
	frame.HasLimiter = prev.HasLimiter
	frame.LimiterValue = prev.LimiterValue
	frame.LimiterRange = prev.LimiterRange

	s.frames[frame.Index] = frame
	s.logDebug("frame stored",
		"index", frame.Index,
		"flow_pump", frame.Flags.FlowPump(),
		"set_value", frame.SetValue,
		"temperature", frame.Temperature,
		"duration", frame.Duration)
	return FrameStored, nil
}

func (s *Store) storeExtension(data []byte) (WriteResult, error) {
	if len(data) < extensionLen {
		return FrameIgnored, fmt.Errorf("%w: extension requires %d bytes, got %d", ErrMalformedPayload, extensionLen, len(data))
	}

	target := data[0] - extensionBase
	limiterValue, err := codec.DecodeU8P4(data[1:])
	if err != nil {
		return FrameIgnored, err
	}
	limiterRange, err := codec.DecodeU8P4(data[2:])
	if err != nil {
		return FrameIgnored, err
	}

	frame := &s.frames[target]
	frame.HasLimiter = true
	frame.LimiterValue = limiterValue
	frame.LimiterRange = limiterRange

	s.logDebug("extension stored", "index", target, "limiter_value", limiterValue, "limiter_range", limiterRange)
	return ExtensionStored, nil
}

func (s *Store) storeTail(data []byte) (WriteResult, error) {
	if len(data) < tailLen {
		return FrameIgnored, fmt.Errorf("%w: tail requires %d bytes, got %d", ErrMalformedPayload, tailLen, len(data))
	}

	maxVolume, err := codec.DecodeU10P0(data[1:])
	if err != nil {
		return FrameIgnored, err
	}

	s.maxTotalVolume = maxVolume
	s.complete = true

	s.logInfo("profile upload complete", "frames", s.header.FrameCount, "max_total_volume", maxVolume)
	return ProfileComplete, nil
}

// Snapshot returns a copy of the stored profile for telemetry and
// diagnostics.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	frames := make([]Frame, len(s.frames))
	copy(frames, s.frames)

	return Snapshot{
		Header:         s.header,
		Frames:         frames,
		MaxTotalVolume: s.maxTotalVolume,
		Complete:       s.complete,
	}
}

// FrameCount returns the number of primary frame slots, zero before
// any header write.
func (s *Store) FrameCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.frames)
}

func (s *Store) logDebug(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, keysAndValues...)
	}
}

func (s *Store) logInfo(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Info(msg, keysAndValues...)
	}
}

func (s *Store) logWarn(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, keysAndValues...)
	}
}
