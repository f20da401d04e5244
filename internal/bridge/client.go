package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// Default timeouts and intervals for daemon communication.
const (
	// defaultConnectTimeout is the maximum time to wait for the socket
	// and the ready handshake.
	defaultConnectTimeout = 10 * time.Second

	// defaultReadTimeout is the timeout for individual line reads.
	defaultReadTimeout = 30 * time.Second

	// defaultWriteTimeout is the timeout for command writes.
	defaultWriteTimeout = 5 * time.Second

	// defaultReconnectInterval is the initial delay between
	// reconnection attempts.
	defaultReconnectInterval = 5 * time.Second

	// maxReconnectInterval is the maximum delay between reconnection
	// attempts.
	maxReconnectInterval = 2 * time.Minute

	// maxLineSize bounds one event line; anything longer is a daemon
	// fault.
	maxLineSize = 64 * 1024

	// eventQueueSize is the buffer size for the event callback queue.
	eventQueueSize = 100
)

// Config holds peripheral daemon connection configuration.
type Config struct {
	// Address is the daemon's TCP address, e.g. "localhost:12345".
	Address string

	// ConnectTimeout is the maximum time to wait for connection.
	// Default: 10 seconds.
	ConnectTimeout time.Duration

	// ReadTimeout is the timeout for read operations.
	// Default: 30 seconds.
	ReadTimeout time.Duration

	// ReconnectInterval is the initial delay between reconnection
	// attempts. Default: 5 seconds.
	ReconnectInterval time.Duration
}

// Stats holds operational statistics.
type Stats struct {
	CommandsTx      uint64
	EventsRx        uint64
	EventsDropped   uint64 // Events dropped due to full callback queue
	ErrorsTotal     uint64
	ReconnectsTotal uint64 // Successful reconnections
	LastActivity    time.Time
	Connected       bool
	Reconnecting    bool // True if currently attempting to reconnect
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Commander interface for testability.
// This allows mocking the daemon client in tests.
type Commander interface {
	Send(ctx context.Context, cmd Command) error
	Notify(ctx context.Context, char Char, payload []byte) error
	SetOnEvent(callback func(Event))
	IsConnected() bool
	Stats() Stats
	Close() error
}

// Ensure Client implements Commander.
var _ Commander = (*Client)(nil)

// Client provides the connection to the BLE peripheral daemon.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Event callbacks are invoked on a single dedicated goroutine, in
//     the order the daemon emitted them.
//
// Auto-Reconnection:
//   - When the connection is lost, the client automatically attempts
//     to reconnect with exponential backoff up to maxReconnectInterval.
//   - Each successful reconnect repeats the ready handshake and the
//     start command, so the daemon resumes advertising.
type Client struct {
	cfg  Config
	conn net.Conn
	rd   *bufio.Reader

	// Connection state
	connMu    sync.RWMutex
	connected bool

	// writeMu serialises line writes. The engine goroutine and the
	// callback goroutine both send notifies; interleaved writes would
	// corrupt the newline framing.
	writeMu sync.Mutex

	// Reconnection state
	reconnecting   atomic.Bool
	reconnectCount atomic.Int32

	// Event handler callback
	onEvent    func(Event)
	callbackMu sync.RWMutex

	// Single-worker event queue: daemon ordering is part of the
	// protocol contract, so events may not be handled concurrently.
	eventQueue chan Event

	// Shutdown coordination (closeOnce prevents double-close panics)
	done *closeOnce
	wg   sync.WaitGroup

	// Logger (optional)
	logger   Logger
	loggerMu sync.RWMutex

	// Statistics (atomic for performance)
	commandsTx      atomic.Uint64
	eventsRx        atomic.Uint64
	eventsDropped   atomic.Uint64
	errorsTotal     atomic.Uint64
	reconnectsTotal atomic.Uint64
	lastActivity    atomic.Int64 // Unix timestamp
}

// Connect establishes the connection to the peripheral daemon.
//
// After the socket opens the client waits for the daemon's ready
// greeting, sends the start command so advertising begins, and starts
// the receive loop.
//
// Parameters:
//   - ctx: Context for cancellation (used for initial connection)
//   - cfg: Connection configuration
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: If connection or handshake fails
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.ReconnectInterval == 0 {
		cfg.ReconnectInterval = defaultReconnectInterval
	}

	connectCtx := ctx
	if connectCtx == nil {
		connectCtx = context.Background()
	}
	connectCtx, cancel := context.WithTimeout(connectCtx, cfg.ConnectTimeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(connectCtx, "tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: dial failed: %w", ErrConnectionFailed, err)
	}

	client := &Client{
		cfg:        cfg,
		conn:       conn,
		rd:         bufio.NewReaderSize(conn, maxLineSize),
		done:       newCloseOnce(),
		eventQueue: make(chan Event, eventQueueSize),
	}
	client.lastActivity.Store(time.Now().Unix())

	if err := client.handshake(connectCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: handshake failed: %w", ErrConnectionFailed, err)
	}

	client.connMu.Lock()
	client.connected = true
	client.connMu.Unlock()

	// Single callback worker preserves event ordering.
	client.wg.Add(1)
	go client.callbackWorker()

	client.wg.Add(1)
	go client.receiveLoop()

	return client, nil
}

// handshake waits for the ready greeting and starts advertising. It
// respects the context deadline so the overall connect timeout holds.
func (c *Client) handshake(ctx context.Context) error {
	readDeadline := time.Now().Add(c.cfg.ReadTimeout)
	if deadline, ok := ctx.Deadline(); ok && deadline.Before(readDeadline) {
		readDeadline = deadline
	}
	if err := c.conn.SetReadDeadline(readDeadline); err != nil {
		return fmt.Errorf("set read deadline: %w", err)
	}

	line, err := c.rd.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("read greeting: %w", err)
	}

	event, err := ParseEvent(line)
	if err != nil {
		return fmt.Errorf("parse greeting: %w", err)
	}
	if event.Event != EventReady {
		return fmt.Errorf("unexpected greeting event %q", event.Event)
	}
	c.logInfo("peripheral daemon ready", "version", event.Version)

	writeDeadline := time.Now().Add(defaultWriteTimeout)
	if deadline, ok := ctx.Deadline(); ok && deadline.Before(writeDeadline) {
		writeDeadline = deadline
	}
	if err := c.writeCommand(Command{Cmd: CmdStart}, writeDeadline); err != nil {
		return fmt.Errorf("start advertising: %w", err)
	}
	return nil
}

// receiveLoop continuously reads event lines from the daemon.
// On connection loss, it automatically attempts reconnection with
// exponential backoff.
func (c *Client) receiveLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.done.Done():
			return
		default:
		}

		event, err := c.readEvent()
		if err != nil {
			if c.handleReadError(err) {
				if c.isClosed() {
					return
				}
				if !c.reconnect() {
					return
				}
				continue
			}
			continue
		}

		c.handleEvent(event)
	}
}

// readEvent reads and parses a single event line.
func (c *Client) readEvent() (Event, error) {
	c.connMu.RLock()
	conn, rd := c.conn, c.rd
	c.connMu.RUnlock()

	if conn == nil {
		return Event{}, ErrNotConnected
	}

	if err := conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
		return Event{}, fmt.Errorf("set deadline: %w", err)
	}

	line, err := rd.ReadBytes('\n')
	if err != nil {
		return Event{}, fmt.Errorf("read line: %w", err)
	}

	event, err := ParseEvent(line)
	if err != nil {
		// Recoverable: skip the bad line, stay on the stream.
		c.logError("event parse failed", err)
		c.errorsTotal.Add(1)
		return Event{}, nil
	}
	return event, nil
}

// handleReadError processes a read error and returns true if the
// connection is lost and the loop should reconnect.
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false // Skipped line, continue
	}

	if c.isClosed() {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return false // Timeout between events is normal, continue
	}

	c.logError("read failed", err)
	c.errorsTotal.Add(1)
	c.handleDisconnect()
	return true
}

// handleEvent queues a received event for the callback worker.
func (c *Client) handleEvent(event Event) {
	if event.Event == "" {
		return // Skipped line
	}

	c.eventsRx.Add(1)
	c.lastActivity.Store(time.Now().Unix())

	c.callbackMu.RLock()
	hasCallback := c.onEvent != nil
	c.callbackMu.RUnlock()

	if hasCallback {
		select {
		case c.eventQueue <- event:
		default:
			// Queue full, drop to protect the receive loop. Ordering of
			// delivered events is still preserved.
			c.logError("event queue full, dropping event", nil)
			c.eventsDropped.Add(1)
			c.errorsTotal.Add(1)
		}
	}
}

// callbackWorker delivers events to the registered callback, one at a
// time and in arrival order. Panics in the callback are recovered.
func (c *Client) callbackWorker() {
	defer c.wg.Done()

	for {
		select {
		case <-c.done.Done():
			c.drainEventQueue()
			return
		case event := <-c.eventQueue:
			c.callbackMu.RLock()
			callback := c.onEvent
			c.callbackMu.RUnlock()

			if callback != nil {
				func() {
					defer func() {
						if r := recover(); r != nil {
							c.logError("event callback panic", fmt.Errorf("%v", r))
						}
					}()
					callback(event)
				}()
			}
		}
	}
}

// handleDisconnect handles connection loss and triggers reconnection.
func (c *Client) handleDisconnect() {
	c.connMu.Lock()
	wasConnected := c.connected
	c.connected = false
	c.connMu.Unlock()

	if wasConnected {
		c.logInfo("daemon connection lost, will attempt reconnection")
	}
}

// reconnect attempts to re-establish the daemon connection with
// exponential backoff. Returns true if reconnection succeeded, false
// if shutdown was signalled.
func (c *Client) reconnect() bool {
	if !c.reconnecting.CompareAndSwap(false, true) {
		return c.waitForReconnection()
	}
	defer c.reconnecting.Store(false)

	backoff := c.cfg.ReconnectInterval
	if backoff == 0 {
		backoff = defaultReconnectInterval
	}

	for {
		if c.isClosed() {
			return false
		}

		attempt := c.reconnectCount.Add(1)
		c.logInfo("attempting reconnection", "attempt", attempt, "backoff", backoff.String())

		c.closeOldConnection()

		conn, err := c.dialWithTimeout()
		if err != nil {
			backoff = c.handleReconnectFailure("dial failed", err, backoff)
			if backoff == 0 {
				return false
			}
			continue
		}

		if err := c.establishConnection(conn); err != nil {
			backoff = c.handleReconnectFailure("handshake failed", err, backoff)
			if backoff == 0 {
				return false
			}
			continue
		}

		c.finalizeReconnection()
		return true
	}
}

// waitForReconnection waits for another goroutine to complete
// reconnection.
func (c *Client) waitForReconnection() bool {
	for c.reconnecting.Load() && !c.isClosed() {
		time.Sleep(100 * time.Millisecond)
	}
	return !c.isClosed() && c.IsConnected()
}

// closeOldConnection closes the existing connection if any.
func (c *Client) closeOldConnection() {
	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.rd = nil
	}
	c.connMu.Unlock()
}

// dialWithTimeout attempts to dial the daemon with timeout.
func (c *Client) dialWithTimeout() (net.Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ConnectTimeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.cfg.Address, err)
	}
	return conn, nil
}

// establishConnection installs the new socket and repeats the ready
// handshake.
func (c *Client) establishConnection(conn net.Conn) error {
	c.connMu.Lock()
	c.conn = conn
	c.rd = bufio.NewReaderSize(conn, maxLineSize)
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ConnectTimeout)
	defer cancel()

	if err := c.handshake(ctx); err != nil {
		conn.Close()
		c.connMu.Lock()
		c.conn = nil
		c.rd = nil
		c.connMu.Unlock()
		return err
	}
	return nil
}

// handleReconnectFailure handles a failed reconnection attempt.
// Returns the new backoff duration, or 0 if shutdown was signalled.
func (c *Client) handleReconnectFailure(reason string, err error, backoff time.Duration) time.Duration {
	c.logError("reconnect: "+reason, err)
	c.errorsTotal.Add(1)

	select {
	case <-c.done.Done():
		return 0
	case <-time.After(backoff):
	}

	newBackoff := time.Duration(float64(backoff) * 1.5)
	if newBackoff > maxReconnectInterval {
		newBackoff = maxReconnectInterval
	}
	return newBackoff
}

// finalizeReconnection marks the connection as established and updates
// stats.
func (c *Client) finalizeReconnection() {
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	c.reconnectCount.Store(0)
	c.reconnectsTotal.Add(1)
	c.lastActivity.Store(time.Now().Unix())

	c.logInfo("reconnection successful", "total_reconnects", c.reconnectsTotal.Load())
}

// drainEventQueue discards queued events during shutdown.
func (c *Client) drainEventQueue() {
	for {
		select {
		case <-c.eventQueue:
		default:
			return
		}
	}
}

// isClosed returns true if the client has been closed.
func (c *Client) isClosed() bool {
	select {
	case <-c.done.Done():
		return true
	default:
		return false
	}
}

// Close gracefully closes the connection.
//
// It signals the loops to stop and closes the underlying socket. Safe
// to call multiple times.
//
// Returns:
//   - error: nil (closing is best-effort)
func (c *Client) Close() error {
	c.done.Close()

	c.connMu.Lock()
	c.connected = false
	conn := c.conn
	c.connMu.Unlock()

	if conn != nil {
		conn.Close()
	}

	c.wg.Wait()

	c.logInfo("daemon connection closed")
	return nil
}

// Send sends a command to the daemon.
//
// Parameters:
//   - ctx: Context for cancellation
//   - cmd: Command to send
//
// Returns:
//   - error: If sending fails or the client is not connected
func (c *Client) Send(ctx context.Context, cmd Command) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrCommandFailed, ctx.Err())
	default:
	}

	deadline := time.Now().Add(defaultWriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := c.writeCommand(cmd, deadline); err != nil {
		c.errorsTotal.Add(1)
		return fmt.Errorf("%w: %w", ErrCommandFailed, err)
	}

	c.commandsTx.Add(1)
	c.lastActivity.Store(time.Now().Unix())
	return nil
}

// Notify pushes a characteristic payload to the central.
//
// Parameters:
//   - ctx: Context for cancellation
//   - char: Characteristic to notify
//   - payload: Raw payload bytes (hex-encoded on the wire)
//
// Returns:
//   - error: If sending fails or the client is not connected
func (c *Client) Notify(ctx context.Context, char Char, payload []byte) error {
	return c.Send(ctx, NotifyCommand(char, payload))
}

// writeCommand marshals and writes one command line.
func (c *Client) writeCommand(cmd Command, deadline time.Time) error {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}

	line, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	line = append(line, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}
	if _, err := conn.Write(line); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// SetOnEvent sets the callback for received events.
//
// The callback is invoked on a single dedicated goroutine in daemon
// order. Panics in the callback are recovered and logged.
//
// Parameters:
//   - callback: Function to call when an event is received
func (c *Client) SetOnEvent(callback func(Event)) {
	c.callbackMu.Lock()
	c.onEvent = callback
	c.callbackMu.Unlock()
}

// SetLogger sets the logger for this client.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// IsConnected returns true if connected to the daemon.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected
}

// Stats returns current operational statistics.
func (c *Client) Stats() Stats {
	return Stats{
		CommandsTx:      c.commandsTx.Load(),
		EventsRx:        c.eventsRx.Load(),
		EventsDropped:   c.eventsDropped.Load(),
		ErrorsTotal:     c.errorsTotal.Load(),
		ReconnectsTotal: c.reconnectsTotal.Load(),
		LastActivity:    time.Unix(c.lastActivity.Load(), 0),
		Connected:       c.IsConnected(),
		Reconnecting:    c.reconnecting.Load(),
	}
}

// HealthCheck verifies the connection is alive.
func (c *Client) HealthCheck(_ context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// logInfo logs an info message if logger is set.
func (c *Client) logInfo(msg string, keysAndValues ...any) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (c *Client) logError(msg string, err error) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
