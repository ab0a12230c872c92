package domain

import (
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/fd1az/swap-quoter/internal/asset"
)

// ErrMarketMakerNotFound is returned by stores for unknown accounts.
var ErrMarketMakerNotFound = errors.New("market maker not found")

// MarketMaker is the stored registration of a liquidity provider.
type MarketMaker struct {
	AccountID    string
	PublicKey    string // hex, compressed secp256k1
	Beta         bool
	UseMevFactor bool
	MevFactors   map[asset.InternalAsset]int32
}

// Session is an authenticated market maker connection. It lives as long as
// the connection does.
type Session struct {
	AccountID     string
	ClientVersion string
	PublicKey     *secp256k1.PublicKey
	QuotedAssets  asset.Bitmap
	Beta          bool
	UseMevFactor  bool
	MevFactors    map[asset.InternalAsset]int32
}

// Quotes reports whether the session quotes every given base asset.
func (s *Session) Quotes(bases ...*asset.Asset) bool {
	for _, b := range bases {
		if !s.QuotedAssets.Has(b) {
			return false
		}
	}
	return true
}

// MevFactor returns the tick adjustment for base, zero when the session has
// not opted in.
func (s *Session) MevFactor(base asset.InternalAsset) int32 {
	if !s.UseMevFactor {
		return 0
	}
	return s.MevFactors[base]
}
