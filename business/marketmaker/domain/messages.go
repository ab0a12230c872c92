package domain

import (
	"encoding/json"
	"fmt"

	"github.com/fd1az/swap-quoter/internal/asset"
)

// Message types exchanged on a market maker connection.
const (
	TypeHandshake     = "handshake"
	TypeAuthOK        = "auth_ok"
	TypeQuoteRequest  = "quote_request"
	TypeQuoteResponse = "quote_response"
	TypeError         = "error"
)

// Envelope frames every websocket message.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope encodes payload under msgType.
func NewEnvelope(msgType string, payload any) (*Envelope, error) {
	env := &Envelope{Type: msgType}
	if payload == nil {
		return env, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msgType, err)
	}
	env.Payload = b
	return env, nil
}

// DecodeEnvelope parses one inbound frame.
func DecodeEnvelope(b []byte) (*Envelope, error) {
	env := new(Envelope)
	if err := json.Unmarshal(b, env); err != nil {
		return nil, err
	}
	if env.Type == "" {
		return nil, fmt.Errorf("message without type")
	}
	return env, nil
}

// Unmarshal decodes the payload into v.
func (e *Envelope) Unmarshal(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", e.Type)
	}
	return json.Unmarshal(e.Payload, v)
}

// Handshake is the first frame a market maker sends. Timestamp is epoch
// milliseconds and Signature is the hex DER signature over
// sha256(AccountID + decimal Timestamp).
type Handshake struct {
	ClientVersion string             `json:"client_version"`
	AccountID     string             `json:"account_id"`
	Timestamp     *int64             `json:"timestamp"`
	Signature     string             `json:"signature"`
	QuotedAssets  []asset.ChainAsset `json:"quoted_assets"`
}

// SignedMessage is the byte string covered by the handshake signature.
func SignedMessage(accountID string, timestampMs int64) []byte {
	return fmt.Appendf(nil, "%s%d", accountID, timestampMs)
}

// AuthOK acknowledges a successful handshake.
type AuthOK struct {
	AccountID string `json:"account_id"`
}

// ErrorPayload reports a protocol error to the market maker.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WireLeg is a leg as sent to market makers.
type WireLeg struct {
	BaseAsset  asset.ChainAsset `json:"base_asset"`
	QuoteAsset asset.ChainAsset `json:"quote_asset"`
	Side       Side             `json:"side"`
	Amount     string           `json:"amount"`
}

// QuoteRequest asks market makers to price every leg.
type QuoteRequest struct {
	RequestID string    `json:"request_id"`
	Legs      []WireLeg `json:"legs"`
}

// WireOrder is one price level quoted by a market maker.
type WireOrder struct {
	Tick   int32  `json:"tick"`
	Amount string `json:"amount"`
}

// QuoteResponse answers a QuoteRequest; Legs is index aligned with the
// request's legs.
type QuoteResponse struct {
	RequestID string        `json:"request_id"`
	Legs      [][]WireOrder `json:"legs"`
}
