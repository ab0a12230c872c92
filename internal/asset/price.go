package asset

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// USDPrice is the index price of one whole unit of an asset in USD.
type USDPrice struct {
	asset     *Asset
	usd       decimal.Decimal
	timestamp time.Time
}

// NewUSDPrice creates an index price observation.
func NewUSDPrice(a *Asset, usd decimal.Decimal, timestamp time.Time) USDPrice {
	if a == nil {
		panic(ErrNilAsset)
	}
	if usd.IsNegative() {
		panic("asset: negative price")
	}
	return USDPrice{asset: a, usd: usd, timestamp: timestamp}
}

// Asset returns the priced asset.
func (p USDPrice) Asset() *Asset {
	return p.asset
}

// USD returns the price of one unit.
func (p USDPrice) USD() decimal.Decimal {
	return p.usd
}

// Timestamp returns when this price was observed.
func (p USDPrice) Timestamp() time.Time {
	return p.timestamp
}

// IsZero returns true if the price is zero.
func (p USDPrice) IsZero() bool {
	return p.usd.IsZero()
}

// Notional values amount in USD.
func (p USDPrice) Notional(amount Amount) (decimal.Decimal, error) {
	if amount.Asset() == nil || p.asset == nil {
		return decimal.Zero, ErrNilAsset
	}
	if amount.Asset().ID() != p.asset.ID() {
		return decimal.Zero, fmt.Errorf("%w: price for %s, amount in %s", ErrAssetMismatch, p.asset.ID(), amount.Asset().ID())
	}
	return amount.ToDecimal().Mul(p.usd), nil
}

// ToAmount converts a USD notional to base units, rounding down.
func (p USDPrice) ToAmount(usd decimal.Decimal) (Amount, error) {
	if p.IsZero() {
		return Amount{}, fmt.Errorf("asset: zero price for %s", p.asset.ID())
	}
	units := usd.DivRound(p.usd, int32(p.asset.Decimals())+8).Shift(int32(p.asset.Decimals())).Floor()
	if units.IsNegative() {
		return Amount{}, ErrNegativeAmount
	}
	return NewAmount(p.asset, units.BigInt()), nil
}

// Age returns how old this price is.
func (p USDPrice) Age() time.Duration {
	return time.Since(p.timestamp)
}

// IsStale returns true if the price is older than maxAge.
func (p USDPrice) IsStale(maxAge time.Duration) bool {
	return p.Age() > maxAge
}

// String returns "ETH=$2000.5".
func (p USDPrice) String() string {
	return fmt.Sprintf("%s=$%s", p.asset.Symbol(), p.usd.String())
}
