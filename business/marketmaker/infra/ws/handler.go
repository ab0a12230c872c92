// Package ws serves the market maker websocket endpoint.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/fd1az/swap-quoter/business/marketmaker/app"
	"github.com/fd1az/swap-quoter/business/marketmaker/domain"
	"github.com/fd1az/swap-quoter/internal/apperror"
	"github.com/fd1az/swap-quoter/internal/logger"
	"github.com/fd1az/swap-quoter/internal/ratelimit"
)

// Authenticator verifies the handshake frame.
type Authenticator interface {
	Authenticate(ctx context.Context, raw json.RawMessage) (*domain.Session, error)
}

// Sessions tracks live connections.
type Sessions interface {
	Connect(ctx context.Context, session *domain.Session, conn app.Conn)
	Disconnect(ctx context.Context, session *domain.Session, conn app.Conn)
}

// Responses consumes quote responses.
type Responses interface {
	HandleResponse(ctx context.Context, accountID string, resp *domain.QuoteResponse) error
}

// Config holds per-connection limits.
type Config struct {
	HandshakeTimeout  time.Duration
	WriteTimeout      time.Duration
	MessagesPerSecond float64
	MessageBurst      int
	MaxMessageSize    int64
	// HandshakesPerSecond paces upgrade attempts per remote IP; zero
	// disables it.
	HandshakesPerSecond float64
	HandshakeBurst      int
}

// maxTrackedHosts bounds the handshake limiter before idle hosts are swept.
const maxTrackedHosts = 1024

// Handler upgrades market maker connections and runs their sessions.
type Handler struct {
	cfg       Config
	auth      Authenticator
	sessions  Sessions
	responses Responses
	log       logger.LoggerInterface

	handshakes *ratelimit.KeyedLimiter
}

// NewHandler creates the websocket handler.
func NewHandler(cfg Config, auth Authenticator, sessions Sessions, responses Responses, log logger.LoggerInterface) *Handler {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 5 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.MessagesPerSecond <= 0 {
		cfg.MessagesPerSecond, cfg.MessageBurst = 20, 40
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 1 << 20
	}
	h := &Handler{cfg: cfg, auth: auth, sessions: sessions, responses: responses, log: log}
	if cfg.HandshakesPerSecond > 0 {
		h.handshakes = ratelimit.NewKeyed(cfg.HandshakesPerSecond, cfg.HandshakeBurst, time.Minute)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.allowHandshake(r) {
		w.Header().Set("Retry-After", "1")
		http.Error(w, "too many handshakes", http.StatusTooManyRequests)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		h.log.Warn(r.Context(), "websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	c.SetReadLimit(h.cfg.MaxMessageSize)

	ctx := r.Context()
	session, err := h.handshake(ctx, c)
	if err != nil {
		h.log.Info(ctx, "market maker handshake rejected",
			"remote", r.RemoteAddr, "code", apperror.GetCode(err), "error", err)
		c.Close(websocket.StatusPolicyViolation, apperror.Message(err))
		return
	}

	conn := &conn{ws: c, writeTimeout: h.cfg.WriteTimeout}
	if err := conn.Send(ctx, mustEnvelope(domain.TypeAuthOK, domain.AuthOK{AccountID: session.AccountID})); err != nil {
		c.CloseNow()
		return
	}

	h.sessions.Connect(ctx, session, conn)
	defer h.sessions.Disconnect(context.WithoutCancel(ctx), session, conn)

	h.readLoop(ctx, session, conn)
}

func (h *Handler) allowHandshake(r *http.Request) bool {
	if h.handshakes == nil {
		return true
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if h.handshakes.Len() > maxTrackedHosts {
		h.handshakes.Sweep()
	}
	return h.handshakes.Allow(host)
}

func (h *Handler) handshake(ctx context.Context, c *websocket.Conn) (*domain.Session, error) {
	hsCtx, cancel := context.WithTimeout(ctx, h.cfg.HandshakeTimeout)
	defer cancel()

	_, data, err := c.Read(hsCtx)
	if err != nil {
		return nil, apperror.Unauthorized(apperror.CodeInvalidAuth, "no handshake: "+err.Error())
	}
	env, err := domain.DecodeEnvelope(data)
	if err != nil || env.Type != domain.TypeHandshake {
		return nil, apperror.Unauthorized(apperror.CodeInvalidAuth, "first message is not a handshake")
	}
	return h.auth.Authenticate(ctx, env.Payload)
}

func (h *Handler) readLoop(ctx context.Context, session *domain.Session, conn *conn) {
	limiter := ratelimit.New(h.cfg.MessagesPerSecond, h.cfg.MessageBurst)

	for {
		_, data, err := conn.ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				h.log.Debug(ctx, "market maker read failed", "account_id", session.AccountID, "error", err)
			}
			return
		}

		if !limiter.Allow() {
			h.reply(ctx, conn, apperror.RateLimited(apperror.CodeMarketMakerRateLimit, 1))
			continue
		}

		env, err := domain.DecodeEnvelope(data)
		if err != nil {
			h.reply(ctx, conn, apperror.Validation(apperror.CodeMarketMakerMessage, err.Error()))
			continue
		}

		switch env.Type {
		case domain.TypeQuoteResponse:
			var resp domain.QuoteResponse
			if err := env.Unmarshal(&resp); err != nil {
				h.reply(ctx, conn, apperror.Validation(apperror.CodeMarketMakerMessage, err.Error()))
				continue
			}
			if err := h.responses.HandleResponse(ctx, session.AccountID, &resp); err != nil {
				h.log.Debug(ctx, "quote response rejected",
					"account_id", session.AccountID, "request_id", resp.RequestID, "error", err)
				h.reply(ctx, conn, err)
			}
		default:
			h.reply(ctx, conn, apperror.Validation(apperror.CodeMarketMakerMessage, "unexpected message type "+env.Type))
		}
	}
}

func (h *Handler) reply(ctx context.Context, conn *conn, err error) {
	var ctxMsg string
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Context != "" {
		ctxMsg = appErr.Context
	} else {
		ctxMsg = apperror.Message(err)
	}
	payload := domain.ErrorPayload{Code: string(apperror.GetCode(err)), Message: ctxMsg}
	if sendErr := conn.Send(ctx, mustEnvelope(domain.TypeError, payload)); sendErr != nil {
		h.log.Debug(ctx, "error reply not delivered", "error", sendErr)
	}
}

func mustEnvelope(msgType string, payload any) *domain.Envelope {
	env, err := domain.NewEnvelope(msgType, payload)
	if err != nil {
		panic(err)
	}
	return env
}

// conn adapts a websocket connection to app.Conn.
type conn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
}

func (c *conn) Send(ctx context.Context, env *domain.Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()

	if err := c.ws.Write(ctx, websocket.MessageText, b); err != nil {
		return apperror.New(apperror.CodeWebSocketSendError, apperror.WithCause(err))
	}
	return nil
}

func (c *conn) Close(reason string) {
	c.ws.Close(websocket.StatusNormalClosure, reason)
}
