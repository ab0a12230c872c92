// Package domain contains the market maker RFQ model.
package domain

import (
	"fmt"
	"math/big"

	"github.com/fd1az/swap-quoter/internal/apperror"
	"github.com/fd1az/swap-quoter/internal/asset"
)

// Side is the swapper's direction on a leg.
type Side string

const (
	// SideBuy spends Usdc to acquire the base asset.
	SideBuy Side = "BUY"
	// SideSell spends the base asset to acquire Usdc.
	SideSell Side = "SELL"
)

// Leg is one single-sided price request against Usdc.
type Leg struct {
	base   asset.InternalAsset
	quote  asset.InternalAsset
	side   Side
	amount *big.Int
}

// NewLeg normalizes the pair (from, to) against Usdc. The amount is in base
// units of from, the asset being spent. A nil amount yields a nil leg.
func NewLeg(from, to asset.InternalAsset, amount *big.Int) (*Leg, error) {
	if amount == nil {
		return nil, nil
	}
	if from == to {
		return nil, apperror.Validation(apperror.CodeInvalidLeg, fmt.Sprintf("%s to itself", from))
	}
	if amount.Sign() < 0 {
		return nil, apperror.Validation(apperror.CodeInvalidLeg, "negative amount")
	}

	switch {
	case from.IsStable():
		return &Leg{base: to, quote: from, side: SideBuy, amount: new(big.Int).Set(amount)}, nil
	case to.IsStable():
		return &Leg{base: from, quote: to, side: SideSell, amount: new(big.Int).Set(amount)}, nil
	default:
		return nil, apperror.Validation(apperror.CodeInvalidLeg,
			fmt.Sprintf("%s/%s has no %s side", from, to, asset.Stable))
	}
}

func (l *Leg) Base() asset.InternalAsset  { return l.base }
func (l *Leg) Quote() asset.InternalAsset { return l.quote }
func (l *Leg) Side() Side                 { return l.side }

// Amount returns a copy of the amount spent by the swapper.
func (l *Leg) Amount() *big.Int { return new(big.Int).Set(l.amount) }

// MakerSells is the asset a market maker gives up to fill this leg.
func (l *Leg) MakerSells() asset.InternalAsset {
	if l.side == SideBuy {
		return l.base
	}
	return l.quote
}

func (l *Leg) String() string {
	return fmt.Sprintf("%s %s/%s %s", l.side, l.base, l.quote, l.amount)
}
