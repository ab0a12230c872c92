// Package mmclient is a market maker client for the quoter's RFQ
// websocket. It signs the handshake, reconnects, and answers quote
// requests through a callback.
package mmclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/fd1az/swap-quoter/business/marketmaker/app"
	"github.com/fd1az/swap-quoter/business/marketmaker/domain"
	"github.com/fd1az/swap-quoter/internal/asset"
	"github.com/fd1az/swap-quoter/internal/logger"
	"github.com/fd1az/swap-quoter/internal/wsconn"
)

// ClientVersion is sent in the handshake.
const ClientVersion = "swap-quoter-mmclient/1"

// ErrAuthTimeout is returned when the server does not acknowledge the
// handshake in time.
var ErrAuthTimeout = errors.New("mmclient: handshake not acknowledged")

// QuoteFunc prices the legs of one request. The result must be index
// aligned with req.Legs; returning an error skips the request.
type QuoteFunc func(ctx context.Context, req domain.QuoteRequest) ([][]domain.WireOrder, error)

// Config holds the market maker identity and connection settings.
type Config struct {
	URL          string
	AccountID    string
	PrivateKey   *secp256k1.PrivateKey
	QuotedAssets []asset.ChainAsset
	AuthTimeout  time.Duration
	// Reconnect keeps the session alive across drops.
	Reconnect bool
}

// Client is a connected market maker.
type Client struct {
	cfg   Config
	ws    *wsconn.Client
	quote QuoteFunc
	log   logger.LoggerInterface
	now   func() time.Time

	mu      sync.Mutex
	waiting chan error
}

// New creates a client. Call Connect to dial and authenticate.
func New(cfg Config, quote QuoteFunc, log logger.LoggerInterface) (*Client, error) {
	if cfg.PrivateKey == nil || cfg.AccountID == "" {
		return nil, errors.New("mmclient: account id and private key are required")
	}
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = 5 * time.Second
	}

	wsCfg := wsconn.DefaultConfig(cfg.URL, "mm:"+cfg.AccountID)
	wsCfg.AutoReconnect = cfg.Reconnect
	ws, err := wsconn.New(wsCfg)
	if err != nil {
		return nil, err
	}

	c := &Client{cfg: cfg, ws: ws, quote: quote, log: log, now: time.Now}
	ws.OnConnect(c.authenticate)
	ws.OnMessage(c.handle)
	ws.OnStateChange(c.stateChanged)
	return c, nil
}

// Connect dials the quoter and completes the handshake.
func (c *Client) Connect(ctx context.Context) error {
	return c.ws.Connect(ctx)
}

// Connected reports whether the session is authenticated and live.
func (c *Client) Connected() bool {
	return c.ws.IsConnected()
}

// Close ends the session.
func (c *Client) Close() error {
	return c.ws.Close()
}

func (c *Client) authenticate(ctx context.Context) error {
	ch := make(chan error, 1)
	c.mu.Lock()
	c.waiting = ch
	c.mu.Unlock()

	ts := c.now().UnixMilli()
	env, err := domain.NewEnvelope(domain.TypeHandshake, domain.Handshake{
		ClientVersion: ClientVersion,
		AccountID:     c.cfg.AccountID,
		Timestamp:     &ts,
		Signature:     app.Sign(c.cfg.PrivateKey, c.cfg.AccountID, ts),
		QuotedAssets:  c.cfg.QuotedAssets,
	})
	if err != nil {
		return err
	}
	if err := c.ws.SendJSON(ctx, env); err != nil {
		return err
	}

	timer := time.NewTimer(c.cfg.AuthTimeout)
	defer timer.Stop()
	select {
	case err := <-ch:
		return err
	case <-timer.C:
		return ErrAuthTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// settle completes a pending handshake wait.
func (c *Client) settle(err error) {
	c.mu.Lock()
	ch := c.waiting
	c.waiting = nil
	c.mu.Unlock()
	if ch != nil {
		ch <- err
	}
}

func (c *Client) stateChanged(state wsconn.State, err error) {
	if state != wsconn.StateDisconnected || err == nil {
		return
	}
	var ce websocket.CloseError
	if errors.As(err, &ce) && ce.Reason != "" {
		err = fmt.Errorf("mmclient: rejected: %s", ce.Reason)
	}
	c.settle(err)
}

func (c *Client) handle(ctx context.Context, msg []byte) {
	env, err := domain.DecodeEnvelope(msg)
	if err != nil {
		c.log.Warn(ctx, "undecodable message from quoter", "error", err)
		return
	}

	switch env.Type {
	case domain.TypeAuthOK:
		c.settle(nil)
	case domain.TypeQuoteRequest:
		var req domain.QuoteRequest
		if err := env.Unmarshal(&req); err != nil {
			c.log.Warn(ctx, "bad quote request", "error", err)
			return
		}
		go c.answer(ctx, req)
	case domain.TypeError:
		var p domain.ErrorPayload
		_ = env.Unmarshal(&p)
		c.log.Warn(ctx, "quoter reported an error", "code", p.Code, "message", p.Message)
	default:
		c.log.Debug(ctx, "ignoring message", "type", env.Type)
	}
}

func (c *Client) answer(ctx context.Context, req domain.QuoteRequest) {
	legs, err := c.quote(ctx, req)
	if err != nil {
		c.log.Debug(ctx, "not quoting", "request_id", req.RequestID, "error", err)
		return
	}
	env, err := domain.NewEnvelope(domain.TypeQuoteResponse, domain.QuoteResponse{RequestID: req.RequestID, Legs: legs})
	if err != nil {
		c.log.Error(ctx, "encode quote response", "error", err)
		return
	}
	if err := c.ws.SendJSON(ctx, env); err != nil {
		c.log.Warn(ctx, "quote response not sent", "request_id", req.RequestID, "error", err)
	}
}

// Flat quotes every leg with a single order at tick for amount base units.
func Flat(tick int32, amount string) QuoteFunc {
	return func(ctx context.Context, req domain.QuoteRequest) ([][]domain.WireOrder, error) {
		legs := make([][]domain.WireOrder, len(req.Legs))
		for i := range legs {
			legs[i] = []domain.WireOrder{{Tick: tick, Amount: amount}}
		}
		return legs, nil
	}
}
