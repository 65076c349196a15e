package presence

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"path"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/vectorspace/vectorspace-sdk-go/presence/internal"
)

// Client is the transport adapter: it bridges the viewport tracker and the
// presence roster to the duplex connection scoped to one conversation.
//
// Scroll reports are best-effort. While the connection is not open they are
// silently dropped; a later report eventually corrects the remote view.
type Client struct {
	cfg        Config
	logger     Logger
	writeCh    chan any
	dispatcher Dispatcher
	onState    func(StateEvent)

	mu             sync.Mutex
	state          ConnectionState
	conn           *internal.Conn
	cancel         context.CancelFunc
	conversationID string
	token          string
	sessionID      string
}

// NewClient constructs a client with provided config.
// Use DefaultConfig() as a starting point and modify as needed.
//
// Register callbacks (On*, OnStateChanged) before Connect; the setters are
// not synchronized with the running read loop.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:     cfg,
		logger:  noopLogger{},
		writeCh: make(chan any, 16),
		state:   StateDisconnected,
	}
}

// SetLogger overrides logger (optional).
func (c *Client) SetLogger(l Logger) {
	if l == nil {
		return
	}
	c.logger = l
}

// OnPresenceUpdate registers callback for roster sync events.
func (c *Client) OnPresenceUpdate(fn func(PresenceEvent)) { c.dispatcher.SetOnPresenceUpdate(fn) }

// OnUserJoined registers callback for user joined events.
func (c *Client) OnUserJoined(fn func(UserEvent)) { c.dispatcher.SetOnUserJoined(fn) }

// OnUserLeft registers callback for user left events.
func (c *Client) OnUserLeft(fn func(UserEvent)) { c.dispatcher.SetOnUserLeft(fn) }

// OnScrollUpdate registers callback for remote scroll position events.
func (c *Client) OnScrollUpdate(fn func(ScrollEvent)) { c.dispatcher.SetOnScrollUpdate(fn) }

// OnError registers callback for errors.
func (c *Client) OnError(fn func(error)) { c.dispatcher.SetOnError(fn) }

// OnStateChanged registers callback for connection state transitions.
func (c *Client) OnStateChanged(fn func(StateEvent)) { c.onState = fn }

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials the presence endpoint for one conversation, announces the
// session, and starts internal loops. The token authenticates the handshake.
func (c *Client) Connect(ctx context.Context, conversationID, token string) error {
	if c.cfg.URL == "" {
		return NewError(ErrorInvalidConfig, "empty URL")
	}
	if conversationID == "" {
		return NewError(ErrorInvalidConfig, "empty conversation id")
	}
	if token == "" {
		return NewError(ErrorUnauthorized, "missing auth token")
	}

	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return NewError(ErrorConnection, "already connected")
	}
	c.conversationID = conversationID
	c.token = token
	c.sessionID = uuid.NewString()
	c.mu.Unlock()

	c.setState(StateConnecting, nil)
	if err := c.dial(ctx); err != nil {
		c.setState(StateDisconnected, err)
		return WrapError(ErrorConnection, "dial presence endpoint", err)
	}
	return nil
}

// SendScrollReport transmits the local reading position. Dropped silently
// when the connection is not open or the write queue is full.
func (c *Client) SendScrollReport(messageID string, messageIndex int) {
	c.mu.Lock()
	open := c.state == StateOpen
	c.mu.Unlock()
	if !open {
		c.logger.Debug("scroll report dropped: not connected", map[string]any{"message_id": messageID})
		return
	}

	intent := scrollIntent{
		Type:                outboundScroll,
		CurrentMessageIndex: messageIndex,
		CurrentMessageID:    messageID,
		Timestamp:           millisFromTime(time.Now()),
	}
	select {
	case c.writeCh <- intent:
	default:
		c.logger.Debug("scroll report dropped: write queue full", map[string]any{"message_id": messageID})
	}
}

// Disconnect closes the connection. Idempotent; safe to call on a client
// that never connected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	old := c.state
	c.state = StateClosed
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	conn := c.conn
	c.conn = nil
	fn := c.onState
	c.mu.Unlock()

	if fn != nil {
		fn(StateEvent{OldState: old, NewState: StateClosed})
	}
	if conn != nil {
		_ = conn.CloseNormal("client close")
	}
}

func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", err
	}
	u.Path = path.Join(u.Path, "conversations", c.conversationID, "presence")
	q := u.Query()
	q.Set("token", c.token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) dial(ctx context.Context) error {
	endpoint, err := c.endpoint()
	if err != nil {
		return err
	}

	dialCtx := ctx
	if c.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()
	}

	ws, _, err := websocket.Dial(dialCtx, endpoint, nil)
	if err != nil {
		return err
	}
	conn := internal.NewConn(ws, c.cfg.ReadTimeout, c.cfg.WriteTimeout)

	join := joinIntent{
		Type:      outboundJoin,
		SessionID: c.sessionID,
		Timestamp: millisFromTime(time.Now()),
	}
	if err := conn.Announce(ctx, join); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	if c.state == StateClosed {
		// Disconnected while the dial was in flight.
		c.mu.Unlock()
		cancel()
		_ = conn.CloseNormal("client close")
		return nil
	}
	if c.cancel != nil {
		// Stop loops still attached to the previous connection.
		c.cancel()
	}
	c.conn = conn
	c.cancel = cancel
	c.mu.Unlock()

	c.setState(StateOpen, nil)
	go c.readLoop(runCtx, conn)
	go c.writeLoop(runCtx, conn)
	return nil
}

func (c *Client) readLoop(ctx context.Context, conn *internal.Conn) {
	for {
		var raw json.RawMessage
		if err := conn.Read(ctx, &raw); err != nil {
			if isExpectedDisconnect(ctx, err) {
				if ctx.Err() == nil {
					// Server closed the conversation; not a failure.
					c.setState(StateDisconnected, nil)
				}
				return
			}
			c.dispatcher.fireError(WrapError(ErrorConnection, "read presence socket", err))
			c.logger.Warn("read loop exit", map[string]any{"error": err.Error()})
			go c.reconnect(err)
			return
		}
		c.dispatcher.Dispatch(raw)
	}
}

func (c *Client) writeLoop(ctx context.Context, conn *internal.Conn) {
	for {
		select {
		case intent := <-c.writeCh:
			if err := conn.Write(ctx, intent); err != nil {
				c.logger.Warn("write loop exit", map[string]any{"error": err.Error()})
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// reconnect runs the bounded backoff policy after an unexpected close. The
// roster is deliberately not cleared while disconnected; remote participants
// are assumed present until a fresh roster sync after reconnect.
func (c *Client) reconnect(cause error) {
	if !c.cfg.AutoReconnect {
		c.setState(StateDisconnected, cause)
		return
	}

	delay := c.cfg.ReconnectInterval
	for attempt := 1; c.cfg.MaxReconnectTries <= 0 || attempt <= c.cfg.MaxReconnectTries; attempt++ {
		c.mu.Lock()
		closed := c.state == StateClosed
		c.mu.Unlock()
		if closed {
			return
		}

		c.setState(StateReconnecting, cause)
		c.logger.Info("reconnecting", map[string]any{"attempt": attempt})
		time.Sleep(delay)
		delay *= 2
		if c.cfg.MaxReconnectDelay > 0 && delay > c.cfg.MaxReconnectDelay {
			delay = c.cfg.MaxReconnectDelay
		}

		c.mu.Lock()
		closed = c.state == StateClosed
		c.mu.Unlock()
		if closed {
			return
		}

		if err := c.dial(context.Background()); err != nil {
			cause = err
			continue
		}
		return
	}

	c.setState(StateFailed, cause)
	c.dispatcher.fireError(WrapError(ErrorDisconnected, "reconnect attempts exhausted", cause))
}

func (c *Client) setState(next ConnectionState, cause error) {
	c.mu.Lock()
	old := c.state
	if old == next || old == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = next
	fn := c.onState
	c.mu.Unlock()

	if fn != nil {
		fn(StateEvent{OldState: old, NewState: next, Error: cause})
	}
}

func isExpectedDisconnect(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	// A bare EOF is the server dying mid-session, which is an unexpected
	// close: it feeds the reconnect policy rather than a silent exit.
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	default:
		return false
	}
}
