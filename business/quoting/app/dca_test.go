package app

import (
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/swap-quoter/internal/asset"
	"github.com/fd1az/swap-quoter/internal/config"
)

func dcaConfig(precedence string) config.DCAConfig {
	return config.DCAConfig{
		DefaultChunkSizeUSD: 2000,
		BuyChunkSizeUSD:     map[string]float64{"eth": 5000},
		SellChunkSizeUSD:    map[string]float64{"btc": 3000},
		ChunkIntervalBlocks: 2,
		MaxChunks:           50,
		Precedence:          precedence,
	}
}

func TestChunkSizer_ChunkSizeUSD(t *testing.T) {
	tests := []struct {
		name       string
		precedence string
		src, dst   asset.InternalAsset
		want       int64
	}{
		{"sell table", config.PrecedenceBuyFirst, asset.Btc, asset.Usdc, 3000},
		{"buy table", config.PrecedenceBuyFirst, asset.Usdc, asset.Eth, 5000},
		{"buy wins under buy_first", config.PrecedenceBuyFirst, asset.Btc, asset.Eth, 5000},
		{"sell wins under sell_first", config.PrecedenceSellFirst, asset.Btc, asset.Eth, 3000},
		{"default", config.PrecedenceBuyFirst, asset.Dot, asset.Usdc, 2000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewChunkSizer(dcaConfig(tt.precedence)).ChunkSizeUSD(tt.src, tt.dst)
			if !got.Equal(decimal.NewFromInt(tt.want)) {
				t.Errorf("chunk size = %s, want %d", got, tt.want)
			}
		})
	}
}

func TestChunkSizer_Plan(t *testing.T) {
	sizer := NewChunkSizer(dcaConfig(config.PrecedenceBuyFirst))
	threeBtc := big.NewInt(300_000_000)

	plan := sizer.Plan(asset.Btc, asset.Usdc, threeBtc, decimal.RequireFromString("9060"))
	if plan == nil {
		t.Fatal("expected a DCA plan")
	}
	if plan.NumberOfChunks != 4 || plan.ChunkSize.Int64() != 75_000_000 {
		t.Errorf("plan = %+v", plan)
	}
	if plan.AdditionalDuration != 3*2*6*time.Second {
		t.Errorf("additional duration = %v", plan.AdditionalDuration)
	}

	if p := sizer.Plan(asset.Btc, asset.Usdc, threeBtc, decimal.RequireFromString("300")); p != nil {
		t.Errorf("small swap planned: %+v", p)
	}
	if p := sizer.Plan(asset.Btc, asset.Usdc, threeBtc, decimal.RequireFromString("1000000")); p != nil {
		t.Errorf("oversized swap planned: %+v", p)
	}
}
