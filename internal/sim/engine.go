package sim

import (
	"context"
	"sync"
	"time"
)

// Engine timing defaults.
const (
	// defaultSamplePeriod is the live sample interval while operating.
	defaultSamplePeriod = 200 * time.Millisecond

	// defaultWaterPeriod is the water level report interval.
	defaultWaterPeriod = 5 * time.Second
)

// EngineConfig tunes the engine's timers.
type EngineConfig struct {
	// SamplePeriod is the interval between live samples (default 200ms).
	SamplePeriod time.Duration

	// WaterLevelPeriod is the interval between water level reports
	// (default 5s).
	WaterLevelPeriod time.Duration
}

func (c *EngineConfig) applyDefaults() {
	if c.SamplePeriod <= 0 {
		c.SamplePeriod = defaultSamplePeriod
	}
	if c.WaterLevelPeriod <= 0 {
		c.WaterLevelPeriod = defaultWaterPeriod
	}
}

// ShotRecord summarises a completed or aborted operation.
type ShotRecord struct {
	// State is the operation that ran.
	State State

	// StartedAt and EndedAt bound the operation.
	StartedAt time.Time
	EndedAt   time.Time

	// Reason explains the ending.
	Reason EndReason

	// Frames is the last profile frame number reached.
	Frames uint8
}

// command is one unit of work posted to the engine goroutine.
type command struct {
	apply  func(now time.Time) error
	reason EndReason
	reply  chan error
}

// Engine runs the Machine on a single goroutine.
//
// All commands, timer fires and callbacks execute on that goroutine,
// so observers see a strict ordering of state changes and samples.
type Engine struct {
	machine *Machine
	cfg     EngineConfig
	logger  Logger

	cmds chan command

	// Callbacks run on the engine goroutine; keep them fast.
	onStateChange func(State, SubState)
	onSample      func(Sample)
	onWaterLevel  func(percent float64)
	onShotEnd     func(ShotRecord)

	shotStart  time.Time
	lastFrames uint8
	endReason  EndReason

	closed    chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

// NewEngine wraps a machine in an event loop.
//
// Parameters:
//   - machine: Model to own (no other goroutine may touch it)
//   - cfg: Timer configuration (zero values take defaults)
//   - logger: Destination for engine logs
//
// Returns:
//   - *Engine: Engine ready to Start
func NewEngine(machine *Machine, cfg EngineConfig, logger Logger) *Engine {
	cfg.applyDefaults()
	return &Engine{
		machine: machine,
		cfg:     cfg,
		logger:  logger,
		cmds:    make(chan command),
		closed:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// SetOnStateChange registers the state transition callback. Set
// callbacks before Start.
func (e *Engine) SetOnStateChange(fn func(State, SubState)) { e.onStateChange = fn }

// SetOnSample registers the live sample callback.
func (e *Engine) SetOnSample(fn func(Sample)) { e.onSample = fn }

// SetOnWaterLevel registers the periodic water level callback.
func (e *Engine) SetOnWaterLevel(fn func(percent float64)) { e.onWaterLevel = fn }

// SetOnShotEnd registers the operation end callback.
func (e *Engine) SetOnShotEnd(fn func(ShotRecord)) { e.onShotEnd = fn }

// Start launches the engine goroutine. It returns immediately; the
// engine runs until ctx is cancelled or Stop is called.
func (e *Engine) Start(ctx context.Context) {
	go e.loop(ctx)
}

// Stop terminates the engine goroutine and waits for it to exit.
func (e *Engine) Stop() {
	e.closeOnce.Do(func() { close(e.closed) })
	<-e.done
}

// RequestState posts a client state request and waits for the outcome.
//
// Parameters:
//   - target: Requested state
//
// Returns:
//   - error: ErrGHCBlocked, ErrInvalidRequest, or ErrEngineStopped
func (e *Engine) RequestState(target State) error {
	reason := EndStopped
	if target == StateSleep || target == StateGoingToSleep {
		reason = EndSleep
	}
	return e.post(command{
		apply: func(now time.Time) error {
			_, err := e.machine.RequestState(target, now)
			return err
		},
		reason: reason,
	})
}

// ApplySettings posts client shot settings to the model.
func (e *Engine) ApplySettings(s ShotSettings) error {
	return e.post(command{apply: func(time.Time) error {
		e.machine.ApplySettings(s)
		return nil
	}})
}

// SetWaterLevel posts an operator water level change and reports the
// new level immediately.
func (e *Engine) SetWaterLevel(percent float64) error {
	return e.post(command{apply: func(time.Time) error {
		e.machine.SetWaterLevel(percent)
		e.emitWaterLevel()
		return nil
	}})
}

// Status returns the current state, substate and water level.
func (e *Engine) Status() (state State, sub SubState, waterLevel float64, err error) {
	err = e.post(command{apply: func(time.Time) error {
		state, sub = e.machine.State()
		waterLevel = e.machine.WaterLevel()
		return nil
	}})
	return state, sub, waterLevel, err
}

func (e *Engine) post(c command) error {
	c.reply = make(chan error, 1)
	select {
	case e.cmds <- c:
	case <-e.closed:
		return ErrEngineStopped
	}
	select {
	case err := <-c.reply:
		return err
	case <-e.closed:
		return ErrEngineStopped
	}
}

func (e *Engine) loop(ctx context.Context) {
	defer close(e.done)

	sampleTick := time.NewTicker(e.cfg.SamplePeriod)
	defer sampleTick.Stop()
	waterTick := time.NewTicker(e.cfg.WaterLevelPeriod)
	defer waterTick.Stop()

	// The phase timer is armed only while an operation runs.
	phaseTimer := time.NewTimer(time.Hour)
	stopTimer(phaseTimer)
	defer phaseTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.closed:
			return

		case c := <-e.cmds:
			e.handleCommand(c, phaseTimer)

		case now := <-phaseTimer.C:
			e.advance(now)
			e.rearm(phaseTimer)

		case now := <-sampleTick.C:
			// Transitions due at this instant outrank the sample.
			e.advance(now)
			e.rearm(phaseTimer)
			if e.machine.Active() {
				e.emitSample(e.machine.Sample(now))
			}

		case <-waterTick.C:
			e.emitWaterLevel()
		}
	}
}

func (e *Engine) handleCommand(c command, phaseTimer *time.Timer) {
	now := time.Now()
	prevState, prevSub := e.machine.State()
	prevActive := e.machine.Active()

	err := c.apply(now)

	state, sub := e.machine.State()
	if state != prevState || sub != prevSub {
		e.emitState(state, sub)
	}

	if !prevActive && e.machine.Active() {
		e.shotStart = now
		e.lastFrames = 0
	}
	if prevActive && !e.machine.Active() {
		e.emitShotEnd(prevState, now, c.reason)
	}

	e.rearm(phaseTimer)
	c.reply <- err
}

// advance drains every phase transition due at now, emitting each.
func (e *Engine) advance(now time.Time) {
	for {
		prevState, _ := e.machine.State()
		changed, finished := e.machine.AdvanceDue(now)
		if !changed {
			return
		}
		state, sub := e.machine.State()
		e.emitState(state, sub)
		if finished {
			e.emitShotEnd(prevState, now, EndFinished)
			return
		}
	}
}

func (e *Engine) rearm(t *time.Timer) {
	stopTimer(t)
	if deadline, ok := e.machine.NextDeadline(); ok {
		t.Reset(time.Until(deadline))
	}
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func (e *Engine) emitState(state State, sub SubState) {
	if e.onStateChange != nil {
		e.onStateChange(state, sub)
	}
}

func (e *Engine) emitSample(s Sample) {
	e.lastFrames = s.FrameNumber
	if e.onSample != nil {
		e.onSample(s)
	}
}

func (e *Engine) emitWaterLevel() {
	if e.onWaterLevel != nil {
		e.onWaterLevel(e.machine.WaterLevel())
	}
}

func (e *Engine) emitShotEnd(op State, now time.Time, reason EndReason) {
	if reason == "" {
		reason = EndStopped
	}
	if e.onShotEnd != nil {
		e.onShotEnd(ShotRecord{
			State:     op,
			StartedAt: e.shotStart,
			EndedAt:   now,
			Reason:    reason,
			Frames:    e.lastFrames,
		})
	}
}
