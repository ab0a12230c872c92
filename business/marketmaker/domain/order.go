package domain

import (
	"fmt"
	"math/big"

	"github.com/fd1az/swap-quoter/internal/apperror"
	"github.com/fd1az/swap-quoter/internal/asset"
)

// Tick bounds of the pool price grid.
const (
	MinTick int32 = -887272
	MaxTick int32 = 887272
)

// Order is a validated market maker limit order for one leg. Amount is in
// base units of the asset the market maker sells.
type Order struct {
	AccountID string
	LegIndex  int
	Base      asset.InternalAsset
	Side      Side
	Tick      int32
	Amount    *big.Int
}

// Sells is the asset the order gives up.
func (o Order) Sells() asset.InternalAsset {
	if o.Side == SideBuy {
		return o.Base
	}
	return asset.Stable
}

// ParseOrders validates a quote response against the legs it answers.
func ParseOrders(accountID string, legs []*Leg, resp *QuoteResponse) ([]Order, error) {
	if len(resp.Legs) != len(legs) {
		return nil, apperror.Validation(apperror.CodeMarketMakerMessage,
			fmt.Sprintf("expected %d legs, got %d", len(legs), len(resp.Legs)))
	}

	var orders []Order
	for i, quoted := range resp.Legs {
		for _, w := range quoted {
			if w.Tick < MinTick || w.Tick > MaxTick {
				return nil, apperror.Validation(apperror.CodeMarketMakerMessage,
					fmt.Sprintf("tick %d out of range", w.Tick))
			}
			amount, ok := new(big.Int).SetString(w.Amount, 10)
			if !ok || amount.Sign() < 0 {
				return nil, apperror.Validation(apperror.CodeMarketMakerMessage,
					fmt.Sprintf("invalid amount %q", w.Amount))
			}
			if amount.Sign() == 0 {
				continue
			}
			orders = append(orders, Order{
				AccountID: accountID,
				LegIndex:  i,
				Base:      legs[i].Base(),
				Side:      legs[i].Side(),
				Tick:      w.Tick,
				Amount:    amount,
			})
		}
	}
	return orders, nil
}

// ShiftTick moves the order's tick against the swapper by factor, staying
// within the tick bounds.
func (o Order) ShiftTick(factor int32) Order {
	if factor == 0 {
		return o
	}
	tick := int64(o.Tick)
	if o.Side == SideSell {
		tick -= int64(factor)
	} else {
		tick += int64(factor)
	}
	o.Tick = int32(max(int64(MinTick), min(int64(MaxTick), tick)))
	return o
}
