package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/fd1az/swap-quoter/business/marketmaker/domain"
	"github.com/fd1az/swap-quoter/internal/apperror"
	"github.com/fd1az/swap-quoter/internal/asset"
)

// DefaultMaxTimestampSkew bounds how far a handshake timestamp may be from
// server time.
const DefaultMaxTimestampSkew = 30 * time.Second

// Authenticator verifies market maker handshakes.
type Authenticator struct {
	store    MarketMakerStore
	registry *asset.Registry
	maxSkew  time.Duration
	now      func() time.Time
}

// AuthOption configures an Authenticator.
type AuthOption func(*Authenticator)

// WithAuthClock replaces the clock used for the timestamp check.
func WithAuthClock(now func() time.Time) AuthOption {
	return func(a *Authenticator) { a.now = now }
}

// NewAuthenticator creates an Authenticator. A non-positive maxSkew uses
// DefaultMaxTimestampSkew.
func NewAuthenticator(store MarketMakerStore, registry *asset.Registry, maxSkew time.Duration, opts ...AuthOption) *Authenticator {
	if maxSkew <= 0 {
		maxSkew = DefaultMaxTimestampSkew
	}
	a := &Authenticator{store: store, registry: registry, maxSkew: maxSkew, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate runs the handshake checks in order and stops at the first
// failure. The error message is the reason sent back to the market maker.
func (a *Authenticator) Authenticate(ctx context.Context, raw json.RawMessage) (*domain.Session, error) {
	hs, quoted, err := a.parse(raw)
	if err != nil {
		return nil, err
	}

	if !a.fresh(*hs.Timestamp) {
		return nil, apperror.Unauthorized(apperror.CodeInvalidTimestamp, "timestamp "+strconv.FormatInt(*hs.Timestamp, 10))
	}

	mm, err := a.store.MarketMaker(ctx, hs.AccountID)
	if errors.Is(err, domain.ErrMarketMakerNotFound) {
		return nil, apperror.Unauthorized(apperror.CodeMarketMakerNotFound, hs.AccountID)
	}
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeStoreQueryFailed, "market maker lookup")
	}

	pub, err := parsePublicKey(mm.PublicKey)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidPublicKey,
			apperror.WithContext(hs.AccountID), apperror.WithCause(err))
	}

	if !verify(pub, hs.Signature, domain.SignedMessage(hs.AccountID, *hs.Timestamp)) {
		return nil, apperror.Unauthorized(apperror.CodeInvalidSignature, hs.AccountID)
	}

	return &domain.Session{
		AccountID:     mm.AccountID,
		ClientVersion: hs.ClientVersion,
		PublicKey:     pub,
		QuotedAssets:  quoted,
		Beta:          mm.Beta,
		UseMevFactor:  mm.UseMevFactor,
		MevFactors:    mm.MevFactors,
	}, nil
}

// fresh reports whether ts, in epoch milliseconds, is within maxSkew of
// now. Bounds are compared in milliseconds so extreme timestamps cannot
// overflow a time.Duration.
func (a *Authenticator) fresh(ts int64) bool {
	now := a.now().UnixMilli()
	skew := a.maxSkew.Milliseconds()
	return ts >= now-skew && ts <= now+skew
}

func (a *Authenticator) parse(raw json.RawMessage) (*domain.Handshake, asset.Bitmap, error) {
	invalid := func(context string) (*domain.Handshake, asset.Bitmap, error) {
		return nil, 0, apperror.Unauthorized(apperror.CodeInvalidAuth, context)
	}

	var hs domain.Handshake
	if err := json.Unmarshal(raw, &hs); err != nil {
		return invalid(err.Error())
	}
	switch {
	case hs.ClientVersion == "":
		return invalid("missing client_version")
	case hs.AccountID == "":
		return invalid("missing account_id")
	case hs.Timestamp == nil:
		return invalid("missing timestamp")
	case hs.Signature == "":
		return invalid("missing signature")
	case len(hs.QuotedAssets) == 0:
		return invalid("missing quoted_assets")
	}

	var quoted asset.Bitmap
	for _, ca := range hs.QuotedAssets {
		known, ok := a.registry.Resolve(ca)
		if !ok {
			return invalid("unknown asset " + ca.String())
		}
		quoted = quoted.With(known)
	}
	return &hs, quoted, nil
}

func parsePublicKey(s string) (*secp256k1.PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return secp256k1.ParsePubKey(b)
}

func verify(pub *secp256k1.PublicKey, sigHex string, msg []byte) bool {
	der, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(der)
	if err != nil {
		return false
	}
	h := sha256.Sum256(msg)
	return sig.Verify(h[:], pub)
}

// Sign produces the hex handshake signature for accountID at timestampMs.
func Sign(priv *secp256k1.PrivateKey, accountID string, timestampMs int64) string {
	h := sha256.Sum256(domain.SignedMessage(accountID, timestampMs))
	return hex.EncodeToString(ecdsa.Sign(priv, h[:]).Serialize())
}
