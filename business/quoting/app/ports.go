// Package app contains the quote orchestration services.
package app

import (
	"context"

	mmdomain "github.com/fd1az/swap-quoter/business/marketmaker/domain"
	scdomain "github.com/fd1az/swap-quoter/business/statechain/domain"
	"github.com/fd1az/swap-quoter/internal/asset"
)

// PriceSource returns index prices in USD.
type PriceSource interface {
	USDPrice(ctx context.Context, a *asset.Asset) (asset.USDPrice, error)
}

// Pools simulates swaps against the state chain pools.
type Pools interface {
	Environment(ctx context.Context) (*scdomain.Environment, error)
	SwapRate(ctx context.Context, req scdomain.SwapRateRequest) (*scdomain.SwapRate, error)
}

// MarketMakers solicits limit orders for legs.
type MarketMakers interface {
	Request(ctx context.Context, legs ...*mmdomain.Leg) ([]mmdomain.Order, error)
}
