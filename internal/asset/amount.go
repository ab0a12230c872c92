package asset

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrNilAsset        = errors.New("asset: nil asset")
	ErrNegativeAmount  = errors.New("asset: negative amount")
	ErrAssetMismatch   = errors.New("asset: cannot operate on different assets")
	ErrNegativeResult  = errors.New("asset: operation would result in negative amount")
	ErrTooManyDecimals = errors.New("asset: too many decimal places for asset")
	ErrInvalidAmount   = errors.New("asset: invalid amount")
)

// HundredthPipDenominator is the scale of on-chain fee rates: 1_000_000
// hundredth-pips equal 100%.
const HundredthPipDenominator = 1_000_000

// BpsDenominator is the scale of basis points.
const BpsDenominator = 10_000

var (
	bigHundredthPip = big.NewInt(HundredthPipDenominator)
	bigBps          = big.NewInt(BpsDenominator)
)

// Amount is an immutable quantity of an asset in base units (wei,
// satoshi, planck...).
type Amount struct {
	raw   *big.Int
	asset *Asset
}

// NewAmount creates an Amount. raw must be non-negative.
func NewAmount(asset *Asset, raw *big.Int) Amount {
	if asset == nil {
		panic(ErrNilAsset)
	}
	if raw == nil || raw.Sign() < 0 {
		panic(ErrNegativeAmount)
	}
	return Amount{raw: new(big.Int).Set(raw), asset: asset}
}

// Zero creates a zero Amount for the given asset.
func Zero(asset *Asset) Amount {
	return NewAmount(asset, new(big.Int))
}

// ParseBaseUnits parses a non-negative integer amount in base units, as sent
// over the wire ("1500000"). Hex ("0x...") is accepted as well.
func ParseBaseUnits(asset *Asset, s string) (Amount, error) {
	if asset == nil {
		return Amount{}, ErrNilAsset
	}
	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if v.Sign() < 0 {
		return Amount{}, ErrNegativeAmount
	}
	return Amount{raw: v, asset: asset}, nil
}

// Raw returns a copy of the raw big.Int value.
func (a Amount) Raw() *big.Int {
	if a.raw == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.raw)
}

// Asset returns the asset this amount is denominated in.
func (a Amount) Asset() *Asset {
	return a.asset
}

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool {
	return a.raw == nil || a.raw.Sign() == 0
}

// Add adds two amounts of the same asset.
func (a Amount) Add(b Amount) (Amount, error) {
	if err := a.checkSameAsset(b); err != nil {
		return Amount{}, err
	}
	return Amount{raw: new(big.Int).Add(a.raw, b.raw), asset: a.asset}, nil
}

// Sub subtracts b from a (same asset only).
func (a Amount) Sub(b Amount) (Amount, error) {
	if err := a.checkSameAsset(b); err != nil {
		return Amount{}, err
	}
	if a.raw.Cmp(b.raw) < 0 {
		return Amount{}, ErrNegativeResult
	}
	return Amount{raw: new(big.Int).Sub(a.raw, b.raw), asset: a.asset}, nil
}

// SaturatingSub is Sub clamped at zero.
func (a Amount) SaturatingSub(b Amount) Amount {
	diff, err := a.Sub(b)
	if err != nil {
		return Zero(a.asset)
	}
	return diff
}

// Cmp compares two amounts of the same asset.
func (a Amount) Cmp(b Amount) (int, error) {
	if err := a.checkSameAsset(b); err != nil {
		return 0, err
	}
	return a.raw.Cmp(b.raw), nil
}

// Min returns the smaller of a and b. Both must be the same asset.
func (a Amount) Min(b Amount) Amount {
	if c, err := a.Cmp(b); err == nil && c > 0 {
		return b
	}
	return a
}

// Equals returns true if both amounts are equal (same asset and value).
func (a Amount) Equals(b Amount) bool {
	return a.checkSameAsset(b) == nil && a.raw.Cmp(b.raw) == 0
}

// FeeHundredthPips returns floor(a * rate / 1_000_000).
func (a Amount) FeeHundredthPips(rate uint32) Amount {
	fee := new(big.Int).Mul(a.Raw(), new(big.Int).SetUint64(uint64(rate)))
	return Amount{raw: fee.Quo(fee, bigHundredthPip), asset: a.asset}
}

// FeeBps returns floor(a * bps / 10_000).
func (a Amount) FeeBps(bps uint16) Amount {
	fee := new(big.Int).Mul(a.Raw(), big.NewInt(int64(bps)))
	return Amount{raw: fee.Quo(fee, bigBps), asset: a.asset}
}

// ToDecimal converts the amount to whole units for display and USD maths.
func (a Amount) ToDecimal() decimal.Decimal {
	if a.raw == nil || a.asset == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(a.raw, -int32(a.asset.Decimals()))
}

// ParseDecimal creates an Amount from a whole-unit decimal ("1.5" ETH).
func ParseDecimal(asset *Asset, d decimal.Decimal) (Amount, error) {
	if asset == nil {
		return Amount{}, ErrNilAsset
	}
	if d.IsNegative() {
		return Amount{}, ErrNegativeAmount
	}

	scaled := d.Shift(int32(asset.Decimals()))
	if !scaled.Equal(scaled.Truncate(0)) {
		return Amount{}, ErrTooManyDecimals
	}
	return NewAmount(asset, scaled.BigInt()), nil
}

// ParseString creates an Amount from a whole-unit decimal string.
func ParseString(asset *Asset, s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("asset: invalid decimal string: %w", err)
	}
	return ParseDecimal(asset, d)
}

// String returns a human-readable representation (e.g., "1.5 ETH").
func (a Amount) String() string {
	if a.asset == nil {
		return "0 ???"
	}
	return fmt.Sprintf("%s %s", a.ToDecimal().String(), a.asset.Symbol())
}

// BaseUnits returns the decimal integer string used on the wire.
func (a Amount) BaseUnits() string {
	return a.Raw().String()
}

func (a Amount) checkSameAsset(b Amount) error {
	if a.asset == nil || b.asset == nil {
		return ErrNilAsset
	}
	if a.asset.ID() != b.asset.ID() {
		return fmt.Errorf("%w: %s vs %s", ErrAssetMismatch, a.asset.ID(), b.asset.ID())
	}
	return nil
}
