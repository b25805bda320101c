package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Connection is a persistent websocket channel to the voice service. It
// reconnects with linear backoff after unexpected closes and never holds
// more than one live channel.
type Connection struct {
	cfg      Config
	dialer   *websocket.Dialer
	logger   *slog.Logger
	dispatch *dispatcher

	mu         sync.Mutex
	state      State
	identity   *Identity
	channel    *channel
	generation uint64
	backoff    *time.Timer
	cancelDial context.CancelFunc

	onStateChange func(State, error)
	onDecodeError func(error)

	// notices are delivered in transition order by whichever goroutine
	// holds delivering.
	notices    []stateNotice
	delivering bool
}

type stateNotice struct {
	callback func(State, error)
	state    State
	cause    error
}

type channel struct {
	conn     *websocket.Conn
	outbound chan outboundFrame
	done     chan struct{}

	closeOnce sync.Once
}

type outboundFrame struct {
	messageType int
	data        []byte
}

func (ch *channel) close() {
	ch.closeOnce.Do(func() {
		close(ch.done)
		_ = ch.conn.Close()
	})
}

func New(opts ...Option) *Connection {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = DefaultSendQueueSize
	}

	connLogger := cfg.Logger
	if connLogger == nil {
		connLogger = logger
	}

	return &Connection{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		logger:   connLogger.With("component", "transport"),
		dispatch: newDispatcher(),
	}
}

// Connect dials the endpoint for identity and returns once the service has
// accepted the websocket upgrade.
func (c *Connection) Connect(ctx context.Context, identity Identity) error {
	if err := identity.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.state.Phase != Disconnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.generation++
	generation := c.generation
	dialCtx, cancel := context.WithCancel(ctx)
	c.cancelDial = cancel
	notify := c.transitionLocked(State{Phase: Connecting}, nil)
	c.mu.Unlock()
	notify()
	defer cancel()

	conn, err := c.dial(dialCtx, identity, 0)

	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return ErrConnectionClosed
	}
	c.cancelDial = nil
	if err != nil {
		notify = c.transitionLocked(State{Phase: Disconnected}, err)
		c.mu.Unlock()
		notify()
		return err
	}

	c.identity = &identity
	c.openChannelLocked(conn)
	notify = c.transitionLocked(State{Phase: Connected}, nil)
	c.mu.Unlock()
	notify()

	c.logger.Info("connected to voice service", "user_id", identity.UserID)
	return nil
}

func (c *Connection) dial(ctx context.Context, identity Identity, attempt int) (*websocket.Conn, error) {
	ctx, span := tracer.Start(ctx, "dial voice service", trace.WithAttributes(
		attribute.String("transport.user_id", identity.UserID),
		attribute.Int("transport.attempt", attempt),
	))
	defer span.End()

	endpoint, err := c.endpointURL(identity)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, NewConnectionError("invalid endpoint", err, false)
	}

	header := http.Header{}
	if identity.Token != "" {
		header.Set("Authorization", "Bearer "+identity.Token)
	}

	conn, resp, err := c.dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		connErr := NewConnectionError("failed to reach voice service", err, true)
		if resp != nil {
			connErr.Reason = "voice service rejected handshake"
			connErr.StatusCode = resp.StatusCode
			connErr.Retryable = resp.StatusCode != http.StatusUnauthorized &&
				resp.StatusCode != http.StatusForbidden
		}
		span.RecordError(connErr)
		span.SetStatus(codes.Error, connErr.Error())
		return nil, connErr
	}

	if c.cfg.ReadLimit > 0 {
		conn.SetReadLimit(c.cfg.ReadLimit)
	}
	return conn, nil
}

func (c *Connection) endpointURL(identity Identity) (string, error) {
	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to parse endpoint %q: %w", c.cfg.Endpoint, err)
	}

	u = u.JoinPath(identity.UserID)
	if identity.Token != "" {
		query := u.Query()
		query.Set("token", identity.Token)
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

// openChannelLocked must be called with mu held.
func (c *Connection) openChannelLocked(conn *websocket.Conn) {
	ch := &channel{
		conn:     conn,
		outbound: make(chan outboundFrame, c.cfg.SendQueueSize),
		done:     make(chan struct{}),
	}
	c.channel = ch

	if c.cfg.PingInterval > 0 && c.cfg.PongWait > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		})
	}

	go c.readLoop(ch)
	go c.writeLoop(ch)
}

func (c *Connection) readLoop(ch *channel) {
	var readErr error
	defer func() { c.channelClosed(ch, readErr) }()

	for {
		messageType, frame, err := ch.conn.ReadMessage()
		if err != nil {
			readErr = err
			return
		}
		if c.cfg.PingInterval > 0 && c.cfg.PongWait > 0 {
			_ = ch.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		}

		messages, err := Decode(messageType, frame)
		if err != nil {
			c.reportDecodeError(err)
			continue
		}

		for _, message := range messages {
			c.dispatch.dispatch(message)
		}
	}
}

func (c *Connection) reportDecodeError(err error) {
	decodeErrors.Add(context.Background(), 1)
	c.logger.Warn("dropping inbound message", "error", err)

	c.mu.Lock()
	onDecodeError := c.onDecodeError
	c.mu.Unlock()
	if onDecodeError != nil {
		onDecodeError(err)
	}
}

func (c *Connection) writeLoop(ch *channel) {
	var ping <-chan time.Time
	if c.cfg.PingInterval > 0 {
		ticker := time.NewTicker(c.cfg.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-ch.done:
			return
		case frame := <-ch.outbound:
			if c.cfg.WriteTimeout > 0 {
				_ = ch.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			}
			if err := ch.conn.WriteMessage(frame.messageType, frame.data); err != nil {
				c.logger.Warn("failed to write frame, closing channel", "error", err)
				framesDropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", "write_failed")))
				ch.close()
				return
			}
			framesSent.Add(context.Background(), 1)
		case <-ping:
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			if err := ch.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Warn("failed to send ping, closing channel", "error", err)
				ch.close()
				return
			}
		}
	}
}

// channelClosed runs once per channel when its read loop exits. Closes that
// Disconnect did not ask for start the reconnect sequence.
func (c *Connection) channelClosed(ch *channel, cause error) {
	ch.close()

	c.mu.Lock()
	if c.channel != ch {
		c.mu.Unlock()
		return
	}
	c.channel = nil

	lost := NewConnectionError("connection lost", cause, true)
	if websocket.IsCloseError(cause, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		lost.Reason = "connection closed by voice service"
	}

	if c.cfg.MaxReconnectAttempts <= 0 || c.identity == nil {
		notify := c.transitionLocked(State{Phase: Disconnected}, fmt.Errorf("%w: %w", ErrReconnectExhausted, lost))
		c.mu.Unlock()
		notify()
		return
	}

	c.logger.Warn("connection lost, reconnecting", "error", cause)
	notify := c.transitionLocked(State{Phase: Reconnecting, Attempt: 1}, lost)
	c.scheduleReconnectLocked(c.generation, 1)
	c.mu.Unlock()
	notify()
}

// scheduleReconnectLocked must be called with mu held.
func (c *Connection) scheduleReconnectLocked(generation uint64, attempt int) {
	delay := c.cfg.BaseBackoffDelay * time.Duration(attempt)
	c.backoff = time.AfterFunc(delay, func() {
		c.reconnect(generation, attempt)
	})
}

func (c *Connection) reconnect(generation uint64, attempt int) {
	c.mu.Lock()
	if generation != c.generation || c.state.Phase != Reconnecting || c.identity == nil {
		c.mu.Unlock()
		return
	}
	identity := *c.identity
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelDial = cancel
	c.backoff = nil
	c.mu.Unlock()
	defer cancel()

	reconnectAttempts.Add(ctx, 1)
	conn, err := c.dial(ctx, identity, attempt)

	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	c.cancelDial = nil

	if err == nil {
		c.openChannelLocked(conn)
		notify := c.transitionLocked(State{Phase: Connected}, nil)
		c.mu.Unlock()
		c.logger.Info("reconnected to voice service", "attempt", attempt)
		notify()
		return
	}

	if attempt >= c.cfg.MaxReconnectAttempts || !IsRetryable(err) {
		notify := c.transitionLocked(State{Phase: Disconnected}, fmt.Errorf("%w after %d attempts: %w", ErrReconnectExhausted, attempt, err))
		c.mu.Unlock()
		c.logger.Error("giving up on voice service", "attempts", attempt, "error", err)
		notify()
		return
	}

	next := attempt + 1
	notify := c.transitionLocked(State{Phase: Reconnecting, Attempt: next}, err)
	c.scheduleReconnectLocked(generation, next)
	c.mu.Unlock()
	c.logger.Warn("reconnect attempt failed", "attempt", attempt, "error", err)
	notify()
}

// transitionLocked must be called with mu held. The returned func delivers
// the queued changes and must be called after mu is released.
func (c *Connection) transitionLocked(state State, cause error) func() {
	if c.state == state && cause == nil {
		return func() {}
	}
	c.state = state

	if c.onStateChange != nil {
		c.notices = append(c.notices, stateNotice{callback: c.onStateChange, state: state, cause: cause})
	}
	return c.deliverNotices
}

// deliverNotices drains the notice queue unless another goroutine is
// already draining it, in which case that goroutine delivers ours too.
func (c *Connection) deliverNotices() {
	c.mu.Lock()
	if c.delivering {
		c.mu.Unlock()
		return
	}
	c.delivering = true
	for len(c.notices) > 0 {
		notice := c.notices[0]
		c.notices[0] = stateNotice{}
		c.notices = c.notices[1:]
		c.mu.Unlock()
		notice.callback(notice.state, notice.cause)
		c.mu.Lock()
	}
	c.delivering = false
	c.mu.Unlock()
}

// SendBinary queues a binary frame. It never blocks: frames are dropped with
// a warning while the connection is not open or the queue is full.
func (c *Connection) SendBinary(frame []byte) {
	c.enqueue(outboundFrame{messageType: websocket.BinaryMessage, data: frame})
}

// SendControl queues msg as a JSON text frame with the same policy as
// SendBinary.
func (c *Connection) SendControl(msg map[string]any) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Warn("dropping control message", "error", err)
		return
	}
	c.enqueue(outboundFrame{messageType: websocket.TextMessage, data: data})
}

func (c *Connection) enqueue(frame outboundFrame) {
	c.mu.Lock()
	ch := c.channel
	connected := c.state.Phase == Connected
	c.mu.Unlock()

	if !connected || ch == nil {
		c.logger.Warn("dropping outbound frame, not connected")
		framesDropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", "not_connected")))
		return
	}

	select {
	case <-ch.done:
		c.logger.Warn("dropping outbound frame, channel closed")
		framesDropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", "closed")))
	case ch.outbound <- frame:
	default:
		c.logger.Warn("dropping outbound frame, send queue full")
		framesDropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", "queue_full")))
	}
}

// OnMessage registers handler for kind, replacing any previous handler.
// Handlers registered with KindAny are appended to the wildcard observers,
// which run before the typed handler. Handlers run on the read loop and
// delay the next inbound frame until they return.
func (c *Connection) OnMessage(kind Kind, handler Handler) {
	c.dispatch.register(kind, handler)
}

// OnStateChange registers the callback for connection phase changes. cause
// is non-nil when a failure caused the change and wraps
// ErrReconnectExhausted on the terminal give-up. Calls never overlap and
// arrive in the order the changes happened.
func (c *Connection) OnStateChange(callback func(state State, cause error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStateChange = callback
}

func (c *Connection) OnDecodeError(callback func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDecodeError = callback
}

// Disconnect closes the channel, cancels any pending reconnect and clears
// every registered handler. Calling it again is a no-op.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	c.generation++
	if c.backoff != nil {
		c.backoff.Stop()
		c.backoff = nil
	}
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	ch := c.channel
	c.channel = nil
	wasOpen := c.state.Phase != Disconnected
	c.state = State{Phase: Disconnected}
	c.identity = nil
	c.onStateChange = nil
	c.onDecodeError = nil
	c.notices = nil
	c.dispatch.reset()
	c.mu.Unlock()

	if ch != nil {
		deadline := time.Now().Add(time.Second)
		_ = ch.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		ch.close()
	}
	if wasOpen {
		c.logger.Info("disconnected from voice service")
	}
}

func (c *Connection) IsConnected() bool {
	return c.State().Phase == Connected
}

func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

