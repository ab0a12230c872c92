package ws

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/fd1az/swap-quoter/business/marketmaker/app"
	"github.com/fd1az/swap-quoter/business/marketmaker/domain"
	statechain "github.com/fd1az/swap-quoter/business/statechain/domain"
	"github.com/fd1az/swap-quoter/internal/asset"
	"github.com/fd1az/swap-quoter/internal/logger"
)

type memStore map[string]*domain.MarketMaker

func (s memStore) MarketMaker(ctx context.Context, id string) (*domain.MarketMaker, error) {
	if mm, ok := s[id]; ok {
		return mm, nil
	}
	return nil, domain.ErrMarketMakerNotFound
}

type staticBalances struct{ balances statechain.Balances }

func (b staticBalances) Add(string)    {}
func (b staticBalances) Remove(string) {}
func (b staticBalances) Balances(context.Context) (statechain.Balances, error) {
	return b.balances, nil
}

type server struct {
	url      string
	priv     *secp256k1.PrivateKey
	registry *app.Registry
	exchange *app.Exchange
}

func newServer(t *testing.T, cfg Config) *server {
	t.Helper()
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	store := memStore{"cFmm": {AccountID: "cFmm", PublicKey: hex.EncodeToString(priv.PubKey().SerializeCompressed())}}
	balances := staticBalances{statechain.Balances{"cFmm": {asset.Usdc: big.NewInt(1_000_000_000)}}}

	log := logger.NewNop()
	registry := app.NewRegistry(balances, log, nil, nil)
	exchange := app.NewExchange(app.ExchangeConfig{QuoteTimeout: 2 * time.Second}, registry, asset.DefaultRegistry(), balances, log, nil)
	auth := app.NewAuthenticator(store, asset.DefaultRegistry(), 0)

	srv := httptest.NewServer(NewHandler(cfg, auth, registry, exchange, log))
	t.Cleanup(srv.Close)
	return &server{
		url:      "ws" + strings.TrimPrefix(srv.URL, "http"),
		priv:     priv,
		registry: registry,
		exchange: exchange,
	}
}

func (s *server) dial(t *testing.T, ctx context.Context) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.Dial(ctx, s.url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.CloseNow() })
	return c
}

func write(t *testing.T, ctx context.Context, c *websocket.Conn, msgType string, payload any) {
	t.Helper()
	env, err := domain.NewEnvelope(msgType, payload)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := json.Marshal(env)
	if err := c.Write(ctx, websocket.MessageText, b); err != nil {
		t.Fatal(err)
	}
}

func read(t *testing.T, ctx context.Context, c *websocket.Conn) *domain.Envelope {
	t.Helper()
	_, b, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	env, err := domain.DecodeEnvelope(b)
	if err != nil {
		t.Fatal(err)
	}
	return env
}

func handshake(priv *secp256k1.PrivateKey, account string, ts time.Time) domain.Handshake {
	ms := ts.UnixMilli()
	return domain.Handshake{
		ClientVersion: "test/1",
		AccountID:     account,
		Timestamp:     &ms,
		Signature:     app.Sign(priv, account, ms),
		QuotedAssets:  []asset.ChainAsset{asset.BTC.ChainAsset()},
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandler_RejectsBadHandshake(t *testing.T) {
	s := newServer(t, Config{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tests := []struct {
		name   string
		send   func(t *testing.T, c *websocket.Conn)
		reason string
	}{
		{
			name: "stale timestamp",
			send: func(t *testing.T, c *websocket.Conn) {
				write(t, ctx, c, domain.TypeHandshake, handshake(s.priv, "cFmm", time.Now().Add(-time.Minute)))
			},
			reason: "invalid timestamp",
		},
		{
			name: "unknown account",
			send: func(t *testing.T, c *websocket.Conn) {
				write(t, ctx, c, domain.TypeHandshake, handshake(s.priv, "cFother", time.Now()))
			},
			reason: "market maker not found",
		},
		{
			name: "wrong first message",
			send: func(t *testing.T, c *websocket.Conn) {
				write(t, ctx, c, domain.TypeQuoteResponse, domain.QuoteResponse{})
			},
			reason: "invalid auth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := s.dial(t, ctx)
			tt.send(t, c)

			_, _, err := c.Read(ctx)
			var ce websocket.CloseError
			if !errors.As(err, &ce) {
				t.Fatalf("expected close, got %v", err)
			}
			if ce.Code != websocket.StatusPolicyViolation || ce.Reason != tt.reason {
				t.Errorf("close = %d %q, want %q", ce.Code, ce.Reason, tt.reason)
			}
		})
	}
	if s.registry.Count() != 0 {
		t.Errorf("registry count = %d", s.registry.Count())
	}
}

func TestHandler_HandshakeTimeout(t *testing.T) {
	s := newServer(t, Config{HandshakeTimeout: 50 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := s.dial(t, ctx)
	_, _, err := c.Read(ctx)
	if websocket.CloseStatus(err) != websocket.StatusPolicyViolation {
		t.Fatalf("err = %v", err)
	}
}

func TestHandler_QuoteRound(t *testing.T) {
	s := newServer(t, Config{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := s.dial(t, ctx)
	write(t, ctx, c, domain.TypeHandshake, handshake(s.priv, "cFmm", time.Now()))
	if env := read(t, ctx, c); env.Type != domain.TypeAuthOK {
		t.Fatalf("got %s", env.Type)
	}
	waitFor(t, func() bool { return s.registry.Count() == 1 })

	go func() {
		_, b, err := c.Read(ctx)
		if err != nil {
			t.Error(err)
			return
		}
		var env domain.Envelope
		var req domain.QuoteRequest
		if err := json.Unmarshal(b, &env); err != nil || env.Unmarshal(&req) != nil {
			t.Errorf("bad quote request %s", b)
			return
		}
		resp, _ := domain.NewEnvelope(domain.TypeQuoteResponse, domain.QuoteResponse{
			RequestID: req.RequestID,
			Legs:      [][]domain.WireOrder{{{Tick: -5, Amount: "123"}}},
		})
		out, _ := json.Marshal(resp)
		if err := c.Write(ctx, websocket.MessageText, out); err != nil {
			t.Error(err)
		}
	}()

	leg, err := domain.NewLeg(asset.Btc, asset.Usdc, big.NewInt(1000))
	if err != nil {
		t.Fatal(err)
	}
	orders, err := s.exchange.Request(ctx, leg)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 1 || orders[0].Amount.Int64() != 123 || orders[0].AccountID != "cFmm" {
		t.Fatalf("orders = %+v", orders)
	}

	write(t, ctx, c, "subscribe", nil)
	env := read(t, ctx, c)
	var errPayload domain.ErrorPayload
	if env.Type != domain.TypeError || env.Unmarshal(&errPayload) != nil || errPayload.Code != "INVALID_MARKET_MAKER_MESSAGE" {
		t.Errorf("reply = %s %s", env.Type, env.Payload)
	}

	c.Close(websocket.StatusNormalClosure, "")
	waitFor(t, func() bool { return s.registry.Count() == 0 })
}

func TestHandler_PacesMessages(t *testing.T) {
	s := newServer(t, Config{MessagesPerSecond: 0.001, MessageBurst: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := s.dial(t, ctx)
	write(t, ctx, c, domain.TypeHandshake, handshake(s.priv, "cFmm", time.Now()))
	read(t, ctx, c)

	write(t, ctx, c, "ping", nil)
	write(t, ctx, c, "ping", nil)

	var codes []string
	for range 2 {
		var p domain.ErrorPayload
		if err := read(t, ctx, c).Unmarshal(&p); err != nil {
			t.Fatal(err)
		}
		codes = append(codes, p.Code)
	}
	if codes[0] != "INVALID_MARKET_MAKER_MESSAGE" || codes[1] != "MARKET_MAKER_RATE_LIMITED" {
		t.Errorf("codes = %v", codes)
	}
}

func TestHandler_PacesHandshakesPerHost(t *testing.T) {
	s := newServer(t, Config{HandshakesPerSecond: 0.001, HandshakeBurst: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.dial(t, ctx)

	_, resp, err := websocket.Dial(ctx, s.url, nil)
	if err == nil {
		t.Fatal("second handshake from the same host should be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Header.Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q", resp.Header.Get("Retry-After"))
	}
}
