// Package wsconn provides a WebSocket client with reconnection, used by
// market makers to hold their RFQ session with the quoter.
package wsconn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

var (
	ErrNotConnected = errors.New("wsconn: not connected")
	ErrClosed       = errors.New("wsconn: client closed")
)

// Config holds WebSocket client configuration.
type Config struct {
	URL            string
	Name           string
	Header         http.Header
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int // 0 = infinite
	AutoReconnect  bool
	PingInterval   time.Duration // 0 disables pings
	PongTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(rawURL, name string) Config {
	return Config{
		URL:            rawURL,
		Name:           name,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		AutoReconnect:  true,
		PingInterval:   20 * time.Second,
		PongTimeout:    10 * time.Second,
		WriteTimeout:   5 * time.Second,
		MaxMessageSize: 1 << 20,
	}
}

// MessageHandler receives every inbound text or binary frame.
type MessageHandler func(ctx context.Context, msg []byte)

// StateHandler observes state transitions; err is the cause of a drop.
type StateHandler func(state State, err error)

// ConnectHandler runs after every successful dial, before the client reports
// StateConnected; returning an error drops the connection.
type ConnectHandler func(ctx context.Context) error

// Client is a WebSocket client that owns at most one live connection.
type Client struct {
	config Config

	mu          sync.RWMutex
	conn        *websocket.Conn
	state       State
	reconnects  int
	onMessage   MessageHandler
	onState     StateHandler
	onConnect   ConnectHandler
	cancelConn  context.CancelFunc
	closed      bool
	reconnectMu sync.Mutex
}

// New creates a new WebSocket client.
func New(config Config) (*Client, error) {
	u, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("wsconn: invalid url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return nil, fmt.Errorf("wsconn: unsupported scheme %q", u.Scheme)
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = 500 * time.Millisecond
	}
	if config.MaxBackoff < config.InitialBackoff {
		config.MaxBackoff = config.InitialBackoff
	}

	return &Client{config: config, state: StateDisconnected}, nil
}

// OnMessage sets the inbound message handler. Must be called before Connect.
func (c *Client) OnMessage(h MessageHandler) {
	c.mu.Lock()
	c.onMessage = h
	c.mu.Unlock()
}

// OnStateChange sets the state observer.
func (c *Client) OnStateChange(h StateHandler) {
	c.mu.Lock()
	c.onState = h
	c.mu.Unlock()
}

// OnConnect sets a hook run after every dial, e.g. to authenticate.
func (c *Client) OnConnect(h ConnectHandler) {
	c.mu.Lock()
	c.onConnect = h
	c.mu.Unlock()
}

// Connect dials once.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	c.setState(StateConnecting, nil)

	opts := &websocket.DialOptions{HTTPHeader: c.config.Header}
	conn, _, err := websocket.Dial(ctx, c.config.URL, opts)
	if err != nil {
		c.setState(StateDisconnected, err)
		return fmt.Errorf("wsconn: dial %s: %w", c.config.Name, err)
	}
	if c.config.MaxMessageSize > 0 {
		conn.SetReadLimit(c.config.MaxMessageSize)
	}

	connCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancel()
		conn.Close(websocket.StatusNormalClosure, "")
		return ErrClosed
	}
	c.conn = conn
	c.cancelConn = cancel
	onConnect := c.onConnect
	c.mu.Unlock()

	go c.readLoop(connCtx, conn)
	if c.config.PingInterval > 0 {
		go c.pingLoop(connCtx, conn)
	}

	if onConnect != nil {
		if err := onConnect(ctx); err != nil {
			c.drop(conn, err)
			return fmt.Errorf("wsconn: on connect %s: %w", c.config.Name, err)
		}
	}

	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return fmt.Errorf("wsconn: %s dropped during setup", c.config.Name)
	}
	c.reconnects = 0
	c.state = StateConnected
	h := c.onState
	c.mu.Unlock()

	if h != nil {
		h(StateConnected, nil)
	}
	return nil
}

// ConnectWithRetry dials until it succeeds, ctx ends or MaxReconnects is hit,
// backing off exponentially between attempts.
func (c *Client) ConnectWithRetry(ctx context.Context) error {
	backoff := c.config.InitialBackoff
	for attempt := 1; ; attempt++ {
		err := c.Connect(ctx)
		if err == nil || errors.Is(err, ErrClosed) {
			return err
		}
		if c.config.MaxReconnects > 0 && attempt >= c.config.MaxReconnects {
			return fmt.Errorf("wsconn: giving up after %d attempts: %w", attempt, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, c.config.MaxBackoff)
	}
}

// Send writes a text frame.
func (c *Client) Send(ctx context.Context, msg []byte) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	if c.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.WriteTimeout)
		defer cancel()
	}
	return conn.Write(ctx, websocket.MessageText, msg)
}

// SendJSON marshals v and writes it as a text frame.
func (c *Client) SendJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("wsconn: marshal: %w", err)
	}
	return c.Send(ctx, data)
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected reports whether a connection is live.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Close closes the connection and stops reconnecting. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn, cancel := c.conn, c.cancelConn
	c.conn, c.cancelConn = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if conn != nil {
		err = conn.Close(websocket.StatusNormalClosure, "client closing")
	}
	c.setState(StateClosed, nil)
	return ignoreCloseErr(err)
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			c.drop(conn, err)
			return
		}

		c.mu.RLock()
		handler := c.onMessage
		c.mu.RUnlock()
		if handler != nil {
			handler(ctx, data)
		}
	}
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, c.config.PongTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				c.drop(conn, fmt.Errorf("ping: %w", err))
				return
			}
		}
	}
}

// drop tears down conn if it is still the current connection and schedules
// a reconnect when enabled.
func (c *Client) drop(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.conn != conn || c.closed {
		c.mu.Unlock()
		return
	}
	cancel := c.cancelConn
	c.conn, c.cancelConn = nil, nil
	c.reconnects++
	attempts := c.reconnects
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	conn.Close(websocket.StatusGoingAway, "")
	c.setState(StateDisconnected, cause)

	if !c.config.AutoReconnect {
		return
	}
	if c.config.MaxReconnects > 0 && attempts > c.config.MaxReconnects {
		return
	}
	go c.reconnect(attempts)
}

func (c *Client) reconnect(attempt int) {
	if !c.reconnectMu.TryLock() {
		return
	}
	defer c.reconnectMu.Unlock()

	backoff := c.config.InitialBackoff << min(attempt-1, 16)
	if backoff > c.config.MaxBackoff || backoff <= 0 {
		backoff = c.config.MaxBackoff
	}
	time.Sleep(backoff)

	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return
	}

	c.setState(StateReconnecting, nil)
	ctx, cancel := context.WithTimeout(context.Background(), c.config.MaxBackoff)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		c.mu.Lock()
		c.reconnects++
		next := c.reconnects
		c.mu.Unlock()
		if c.config.MaxReconnects == 0 || next <= c.config.MaxReconnects {
			go c.reconnect(next)
		}
	}
}

func ignoreCloseErr(err error) error {
	if err == nil || errors.Is(err, net.ErrClosed) || websocket.CloseStatus(err) != -1 {
		return nil
	}
	return err
}

func (c *Client) setState(s State, err error) {
	c.mu.Lock()
	if c.state == StateClosed && s != StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = s
	h := c.onState
	c.mu.Unlock()

	if h != nil {
		h(s, err)
	}
}
