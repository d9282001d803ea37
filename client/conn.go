package client

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/amictl/protocol"
	"github.com/luma/amictl/transport"
)

const readChunkSize = 64 * 1024

type State int

const (
	Disconnected State = iota
	Connected
	Authenticated
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connected:
		return "Connected"
	case Authenticated:
		return "Authenticated"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// Action is anything that can be sent to the manager: a *protocol.Action or
// any of the typed actions that embed one.
type Action interface {
	ID() string
	Name() string
	String() string
}

// EventListener is called, on the event dispatch worker, for every event.
type EventListener func(event *protocol.Event)

// DisconnectListener is called once per transition to Disconnected. err is nil
// for an explicit Disconnect and the transport failure otherwise.
type DisconnectListener func(err error)

// ConnectError is returned when Connect fails to open the transport. It
// matches ErrConnect with errors.Is.
type ConnectError struct {
	Address string
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("%s to %s: %v", ErrConnect, e.Address, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

func (e *ConnectError) Is(target error) bool {
	return target == ErrConnect
}

// Conn is a single session with the manager.
//
// Responses and events are decoded and delivered on two dispatch workers, one
// each, so callbacks never hold up reading from the network. Callbacks may
// call Send, SendAction and Disconnect, but must not call SyncSendAction for
// a response that would be delivered on the same worker, nor Close.
type Conn struct {
	opts Options

	// mu guards the state and the transport, which change together
	mu        sync.Mutex
	state     State
	transport transport.Transport
	stopRead  context.CancelFunc
	readDone  chan struct{}
	closed    bool

	versionMu sync.RWMutex
	version   protocol.Version

	pending   *correlationTable
	responses *pipeline
	events    *pipeline

	listenerMu          sync.RWMutex
	eventListeners      []EventListener
	disconnectListeners []DisconnectListener

	metrics *Metrics
	log     *zap.Logger
}

func New(opts Options) *Conn {
	opts = opts.withDefaults()

	c := &Conn{
		opts:    opts,
		metrics: opts.Metrics,
		log:     opts.Log.Named("conn"),
	}

	c.pending = newCorrelationTable(func(actionID string) {
		c.metrics.Timeouts.Inc()
		c.log.Warn("Timed out waiting for response", zap.String("actionID", actionID))
	})

	c.responses = newPipeline("responses", c.dispatchResponse, c.log)
	c.events = newPipeline("events", c.dispatchEvent, c.log)

	c.responses.start()
	c.events.start()

	return c
}

// Connect opens the transport to host:port and starts reading from it. An
// empty host or a zero port fall back to the configured ones.
//
// If Connect fails the Conn is left Disconnected.
func (c *Conn) Connect(ctx context.Context, host string, port int) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	if c.state != Disconnected {
		from := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: %s => %s", ErrInvalidTransition, from, Connected)
	}

	if host != "" {
		c.opts.Host = host
	}

	if port > 0 {
		c.opts.Port = port
	}

	addr := net.JoinHostPort(c.opts.Host, strconv.Itoa(c.opts.Port))
	c.mu.Unlock()

	c.log.Info("Connecting", zap.String("address", addr))

	tr, err := c.opts.Dialer.Open(ctx, addr)
	if err != nil {
		c.log.Warn("Failed to connect",
			zap.String("address", addr),
			zap.Bool("temporary", IsTemporary(err)),
			zap.Error(err))

		return &ConnectError{Address: addr, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		// closed while dialing
		tr.Close()
		return ErrClosed
	}

	if c.state != Disconnected {
		// lost a race with another Connect
		tr.Close()
		return fmt.Errorf("%w: %s => %s", ErrInvalidTransition, c.state, Connected)
	}

	c.transport = tr

	if err := c.setStateLocked(Connected); err != nil {
		c.transport = nil
		tr.Close()
		return err
	}

	return nil
}

// Disconnect stops reading and closes the transport, then waits for the read
// loop to exit. It does nothing if the Conn is already Disconnected, which is
// always the case inside a disconnect listener.
func (c *Conn) Disconnect() error {
	c.mu.Lock()
	if c.state == Disconnected {
		c.mu.Unlock()
		return nil
	}

	done := c.readDone
	err := c.setStateLocked(Disconnected)
	c.mu.Unlock()

	// Wait for the read loop so nothing it framed is queued after the discard
	// below
	<-done
	c.discardQueued()

	c.notifyDisconnect(nil)

	return err
}

// Close disconnects, fails every pending action with ErrClosed and stops the
// dispatch workers. The Conn cannot be reused.
func (c *Conn) Close() error {
	// refuse new connections before tearing down the current one
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	err := c.Disconnect()

	c.pending.failAll(ErrClosed)

	c.responses.stop()
	c.events.stop()

	return err
}

func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Version is the banner the manager sent on connect.
func (c *Conn) Version() protocol.Version {
	c.versionMu.RLock()
	defer c.versionMu.RUnlock()

	return c.version
}

func (c *Conn) Metrics() *Metrics {
	return c.metrics
}

// Pending returns the number of actions awaiting a response.
func (c *Conn) Pending() int {
	return c.pending.len()
}

// AddEventListener registers l for every subsequent event. Listeners are
// called in the order they were added.
func (c *Conn) AddEventListener(l EventListener) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()

	c.eventListeners = append(c.eventListeners, l)
}

func (c *Conn) OnDisconnect(l DisconnectListener) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()

	c.disconnectListeners = append(c.disconnectListeners, l)
}

// Send writes raw to the manager. It does nothing while Disconnected. A write
// failure disconnects the Conn and is returned.
func (c *Conn) Send(raw string) error {
	c.mu.Lock()
	if c.state == Disconnected {
		c.mu.Unlock()
		c.log.Debug("Not sending while disconnected")
		return nil
	}

	tr := c.transport
	err := tr.Write([]byte(raw))
	c.mu.Unlock()

	if err != nil {
		c.log.Error("Failed to send", zap.Error(err))
		c.transportFailed(tr, err, false)
		return err
	}

	return nil
}

// SendAction sends action and arranges for callback to be called, on the
// response dispatch worker, with its response. If no response arrives within
// the default response timeout, callback is called with ErrTimeout. A nil
// callback discards the response.
func (c *Conn) SendAction(action Action, callback ResponseCallback) error {
	return c.sendAction(action, &asyncListener{callback: callback}, c.opts.ResponseTimeout)
}

// SyncSendAction sends action and waits for its response. A timeout <= 0 uses
// the default response timeout. If the timeout elapses, or ctx is done, the
// wait is abandoned and a late response is dropped.
func (c *Conn) SyncSendAction(ctx context.Context, action Action, timeout time.Duration) (*protocol.Response, error) {
	if timeout <= 0 {
		timeout = c.opts.ResponseTimeout
	}

	l := newSyncListener()
	if err := c.sendAction(action, l, timeout); err != nil {
		return nil, err
	}

	select {
	case o := <-l.done:
		return o.resp, o.err

	case <-ctx.Done():
		if c.pending.drop(action.ID()) {
			return nil, ctx.Err()
		}

		// resolved or expired while we were giving up
		o := <-l.done
		return o.resp, o.err
	}
}

func (c *Conn) sendAction(action Action, l listener, timeout time.Duration) error {
	id := action.ID()

	if err := c.pending.register(id, l, timeout); err != nil {
		return err
	}

	c.log.Debug("Sending action",
		zap.String("action", action.Name()),
		zap.String("actionID", id))

	if err := c.Send(action.String()); err != nil {
		c.pending.drop(id)
		return err
	}

	return nil
}

// setStateLocked moves to state to, starting or tearing down the read loop and
// transport as needed. c.mu must be held.
func (c *Conn) setStateLocked(to State) error {
	from := c.state
	if from == to {
		return nil
	}

	log := c.log.With(
		zap.Stringer("from", from),
		zap.Stringer("to", to))

	switch from {
	case Disconnected:
		if to != Connected || c.transport == nil {
			return fmt.Errorf("%w: %s => %s", ErrInvalidTransition, from, to)
		}

		c.startReadLoopLocked()
		log.Info("Connected")

	case Connected:
		if to == Disconnected {
			c.teardownLocked()
			log.Info("Disconnected")
		} else {
			log.Info("Authenticated")
		}

	case Authenticated:
		if to == Connected {
			log.Info("Logged off")
		} else {
			// share the teardown with Connected => Disconnected
			if err := c.setStateLocked(Connected); err != nil {
				return err
			}
			return c.setStateLocked(Disconnected)
		}

	default:
		return fmt.Errorf("%w: %s => %s", ErrInvalidTransition, from, to)
	}

	c.state = to

	return nil
}

func (c *Conn) startReadLoopLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.stopRead = cancel
	c.readDone = done

	framer := protocol.NewFramer(&session{ctx: ctx, conn: c}, c.log.Named("framer"))

	go c.readLoop(ctx, c.transport, framer, done)
}

func (c *Conn) teardownLocked() {
	c.stopRead()

	if err := c.transport.Close(); err != nil {
		c.log.Warn("Transport did not close cleanly", zap.Error(err))
	}

	c.transport = nil
	c.metrics.Disconnects.Inc()

	// the next connection sends its own banner
	c.versionMu.Lock()
	c.version = protocol.Version{}
	c.versionMu.Unlock()
}

func (c *Conn) readLoop(ctx context.Context, tr transport.Transport, framer *protocol.Framer, done chan struct{}) {
	log := c.log.Named("readLoop")

	defer func() {
		close(done)
		log.Debug("Read loop exited")
	}()

	buf := make([]byte, readChunkSize)

	for {
		select {
		case <-ctx.Done():
			return

		default:
			ready, err := tr.PollReadable(c.opts.PollInterval)
			if err == nil && ready {
				var n int
				n, err = tr.Read(buf)
				if n > 0 {
					framer.Feed(buf[:n])
				}
			}

			if err != nil {
				if ctx.Err() != nil {
					// we closed the transport ourselves
					return
				}

				log.Warn("Transport failed", zap.Error(err))
				c.transportFailed(tr, err, true)
				return
			}
		}
	}
}

// transportFailed disconnects after a read or write on tr failed, unless the
// Conn has already moved on from tr. Outside the read loop it waits for the
// loop to exit, as Disconnect does.
func (c *Conn) transportFailed(tr transport.Transport, cause error, inReadLoop bool) {
	c.mu.Lock()
	if c.transport != tr || c.state == Disconnected {
		c.mu.Unlock()
		return
	}

	done := c.readDone
	err := c.setStateLocked(Disconnected)
	c.mu.Unlock()

	if err != nil {
		cause = multierr.Append(cause, err)
	}

	if !inReadLoop {
		<-done
	}

	c.discardQueued()
	c.notifyDisconnect(cause)
}

func (c *Conn) discardQueued() {
	n := c.responses.discard() + c.events.discard()
	if n > 0 {
		c.metrics.DiscardedMessages.Add(float64(n))
		c.log.Info("Discarded queued messages", zap.Int("count", n))
	}
}

func (c *Conn) notifyDisconnect(err error) {
	c.listenerMu.RLock()
	listeners := c.disconnectListeners
	c.listenerMu.RUnlock()

	for _, l := range listeners {
		l(err)
	}
}

// setVersion records the banner of the connection ctx belongs to. ctx is
// checked under the lock so a banner can't outlive the teardown reset.
func (c *Conn) setVersion(ctx context.Context, v protocol.Version) {
	c.versionMu.Lock()
	if ctx.Err() != nil {
		c.versionMu.Unlock()
		return
	}
	c.version = v
	c.versionMu.Unlock()

	c.log.Info("Manager version", zap.String("version", v.Raw))
}

func (c *Conn) dispatchResponse(raw string) {
	id := protocol.ExtractActionID(raw)
	if id == "" {
		c.metrics.UnresolvedResponses.Inc()
		c.log.Debug("Dropping response without an ActionID", zap.String("response", raw))
		return
	}

	l, ok := c.pending.resolve(id)
	if !ok {
		c.metrics.UnresolvedResponses.Inc()
		c.log.Debug("Dropping response nobody is waiting for", zap.String("actionID", id))
		return
	}

	c.metrics.ResponsesDispatched.Inc()
	l.deliver(protocol.ParseResponse(raw))
}

func (c *Conn) dispatchEvent(raw string) {
	event := protocol.ParseEvent(raw)

	c.listenerMu.RLock()
	listeners := c.eventListeners
	c.listenerMu.RUnlock()

	for _, l := range listeners {
		c.fireEvent(l, event)
	}

	c.metrics.EventsDispatched.Inc()
}

func (c *Conn) fireEvent(l EventListener, event *protocol.Event) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Event listener panicked",
				zap.Any("panic", r),
				zap.String("event", event.Name()))
		}
	}()

	l(event)
}

// session feeds one connection's framed messages into the dispatch
// pipelines, and stops doing so once that connection is torn down.
type session struct {
	ctx  context.Context
	conn *Conn
}

func (s *session) HandleVersion(v protocol.Version) {
	s.conn.setVersion(s.ctx, v)
}

func (s *session) HandleResponse(raw string) {
	if s.ctx.Err() == nil {
		s.conn.responses.put(raw)
	}
}

func (s *session) HandleEvent(raw string) {
	if s.ctx.Err() == nil {
		s.conn.events.put(raw)
	}
}

var _ protocol.Sink = (*session)(nil)
