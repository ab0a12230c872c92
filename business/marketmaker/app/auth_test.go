package app

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/fd1az/swap-quoter/business/marketmaker/domain"
	"github.com/fd1az/swap-quoter/internal/apperror"
	"github.com/fd1az/swap-quoter/internal/asset"
)

type memStore struct {
	mms map[string]*domain.MarketMaker
	err error
}

func (s *memStore) MarketMaker(ctx context.Context, accountID string) (*domain.MarketMaker, error) {
	if s.err != nil {
		return nil, s.err
	}
	mm, ok := s.mms[accountID]
	if !ok {
		return nil, domain.ErrMarketMakerNotFound
	}
	return mm, nil
}

var authNow = time.UnixMilli(1_700_000_000_000)

func newKey(t *testing.T) *secp256k1.PrivateKey {
	t.Helper()
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	return priv
}

func handshakeJSON(t *testing.T, hs map[string]any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(hs)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func validHandshake(priv *secp256k1.PrivateKey, account string, ts int64) map[string]any {
	return map[string]any{
		"client_version": "1.0.0",
		"account_id":     account,
		"timestamp":      ts,
		"signature":      Sign(priv, account, ts),
		"quoted_assets": []map[string]string{
			{"chain": "Bitcoin", "asset": "BTC"},
			{"chain": "Ethereum", "asset": "ETH"},
		},
	}
}

func TestAuthenticator_Authenticate(t *testing.T) {
	priv := newKey(t)
	other := newKey(t)
	ts := authNow.UnixMilli()

	store := &memStore{mms: map[string]*domain.MarketMaker{
		"cFmm": {
			AccountID:    "cFmm",
			PublicKey:    hex.EncodeToString(priv.PubKey().SerializeCompressed()),
			UseMevFactor: true,
			MevFactors:   map[asset.InternalAsset]int32{asset.Btc: 12},
		},
		"cFbroken": {AccountID: "cFbroken", PublicKey: "02deadbeef"},
	}}
	auth := NewAuthenticator(store, asset.DefaultRegistry(), 0, WithAuthClock(func() time.Time { return authNow }))

	tests := []struct {
		name   string
		mutate func(hs map[string]any)
		raw    json.RawMessage
		want   apperror.Code
	}{
		{name: "valid"},
		{name: "not json", raw: json.RawMessage(`{"account_id":`), want: apperror.CodeInvalidAuth},
		{
			name: "timestamp as string",
			mutate: func(hs map[string]any) {
				hs["timestamp"] = "now"
			},
			want: apperror.CodeInvalidAuth,
		},
		{
			name: "missing account",
			mutate: func(hs map[string]any) {
				delete(hs, "account_id")
			},
			want: apperror.CodeInvalidAuth,
		},
		{
			name: "missing client version",
			mutate: func(hs map[string]any) {
				delete(hs, "client_version")
			},
			want: apperror.CodeInvalidAuth,
		},
		{
			name: "missing timestamp",
			mutate: func(hs map[string]any) {
				delete(hs, "timestamp")
			},
			want: apperror.CodeInvalidAuth,
		},
		{
			name: "empty quoted assets",
			mutate: func(hs map[string]any) {
				hs["quoted_assets"] = []any{}
			},
			want: apperror.CodeInvalidAuth,
		},
		{
			name:   "unknown quoted asset",
			mutate: func(hs map[string]any) { hs["quoted_assets"] = []map[string]string{{"chain": "Bitcoin", "asset": "DOGE"}} },
			want:   apperror.CodeInvalidAuth,
		},
		{
			name: "stale timestamp with valid signature",
			mutate: func(hs map[string]any) {
				old := ts - 30_001
				hs["timestamp"] = old
				hs["signature"] = Sign(priv, "cFmm", old)
			},
			want: apperror.CodeInvalidTimestamp,
		},
		{
			name: "future timestamp",
			mutate: func(hs map[string]any) {
				hs["timestamp"] = ts + 31_000
			},
			want: apperror.CodeInvalidTimestamp,
		},
		{
			name: "far future timestamp with valid signature",
			mutate: func(hs map[string]any) {
				var far int64 = 1 << 62
				hs["timestamp"] = far
				hs["signature"] = Sign(priv, "cFmm", far)
			},
			want: apperror.CodeInvalidTimestamp,
		},
		{
			name: "far past timestamp with valid signature",
			mutate: func(hs map[string]any) {
				var far int64 = -1 << 62
				hs["timestamp"] = far
				hs["signature"] = Sign(priv, "cFmm", far)
			},
			want: apperror.CodeInvalidTimestamp,
		},
		{
			name: "edge of window",
			mutate: func(hs map[string]any) {
				edge := ts - 30_000
				hs["timestamp"] = edge
				hs["signature"] = Sign(priv, "cFmm", edge)
			},
		},
		{
			name: "unknown account",
			mutate: func(hs map[string]any) {
				hs["account_id"] = "cFnobody"
			},
			want: apperror.CodeMarketMakerNotFound,
		},
		{
			name: "unparseable stored key",
			mutate: func(hs map[string]any) {
				hs["account_id"] = "cFbroken"
			},
			want: apperror.CodeInvalidPublicKey,
		},
		{
			name: "signed by another key",
			mutate: func(hs map[string]any) {
				hs["signature"] = Sign(other, "cFmm", ts)
			},
			want: apperror.CodeInvalidSignature,
		},
		{
			name: "signature over other timestamp",
			mutate: func(hs map[string]any) {
				hs["signature"] = Sign(priv, "cFmm", ts+1)
			},
			want: apperror.CodeInvalidSignature,
		},
		{
			name: "signature not hex",
			mutate: func(hs map[string]any) {
				hs["signature"] = "zz"
			},
			want: apperror.CodeInvalidSignature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := tt.raw
			if raw == nil {
				hs := validHandshake(priv, "cFmm", ts)
				if tt.mutate != nil {
					tt.mutate(hs)
				}
				raw = handshakeJSON(t, hs)
			}

			session, err := auth.Authenticate(context.Background(), raw)
			if tt.want != "" {
				if apperror.GetCode(err) != tt.want {
					t.Fatalf("err = %v, want %s", err, tt.want)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if session.AccountID != "cFmm" || session.ClientVersion != "1.0.0" {
				t.Errorf("session = %+v", session)
			}
			if !session.Quotes(asset.BTC, asset.ETH) || session.Quotes(asset.SOL) {
				t.Errorf("quoted assets = %b", session.QuotedAssets)
			}
			if session.MevFactor(asset.Btc) != 12 {
				t.Errorf("mev factor = %d", session.MevFactor(asset.Btc))
			}
		})
	}
}

func TestAuthenticator_ProtocolReasons(t *testing.T) {
	auth := NewAuthenticator(&memStore{}, asset.DefaultRegistry(), 0, WithAuthClock(func() time.Time { return authNow }))
	_, err := auth.Authenticate(context.Background(), json.RawMessage(`{}`))
	if got := apperror.Message(err); got != "invalid auth" {
		t.Errorf("reason = %q, want %q", got, "invalid auth")
	}

	priv := newKey(t)
	raw := handshakeJSON(t, validHandshake(priv, "cFmm", authNow.UnixMilli()))
	_, err = auth.Authenticate(context.Background(), raw)
	if got := apperror.Message(err); got != "market maker not found" {
		t.Errorf("reason = %q", got)
	}
}

func TestAuthenticator_StoreFailure(t *testing.T) {
	store := &memStore{err: errors.New("connection reset")}
	auth := NewAuthenticator(store, asset.DefaultRegistry(), 0, WithAuthClock(func() time.Time { return authNow }))

	priv := newKey(t)
	_, err := auth.Authenticate(context.Background(), handshakeJSON(t, validHandshake(priv, "cFmm", authNow.UnixMilli())))
	if apperror.GetCode(err) != apperror.CodeStoreQueryFailed {
		t.Fatalf("err = %v", err)
	}
}
