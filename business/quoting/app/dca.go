package app

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/swap-quoter/business/quoting/domain"
	"github.com/fd1az/swap-quoter/internal/asset"
	"github.com/fd1az/swap-quoter/internal/config"
)

// ChunkSizer picks DCA chunk sizes from the configured tables.
type ChunkSizer struct {
	cfg config.DCAConfig
}

// NewChunkSizer creates a ChunkSizer.
func NewChunkSizer(cfg config.DCAConfig) *ChunkSizer {
	return &ChunkSizer{cfg: cfg}
}

// ChunkSizeUSD returns the chunk size for swapping src to dst. With
// buy_first precedence a buy-side entry for dst wins over a sell-side entry
// for src; sell_first reverses that. The global default applies when
// neither table has an entry.
func (s *ChunkSizer) ChunkSizeUSD(src, dst asset.InternalAsset) decimal.Decimal {
	buy := func() (decimal.Decimal, bool) { return s.cfg.BuyChunkSize(dst) }
	sell := func() (decimal.Decimal, bool) { return s.cfg.SellChunkSize(src) }

	order := []func() (decimal.Decimal, bool){buy, sell}
	if s.cfg.Precedence == config.PrecedenceSellFirst {
		order = []func() (decimal.Decimal, bool){sell, buy}
	}
	for _, lookup := range order {
		if v, ok := lookup(); ok {
			return v
		}
	}
	return s.cfg.DefaultChunkSize()
}

// Plan returns the DCA parameters for amount worth notional USD, or nil
// when the swap should not be chunked.
func (s *ChunkSizer) Plan(src, dst asset.InternalAsset, amount *big.Int, notional decimal.Decimal) *domain.DCAParams {
	n, ok := domain.NumberOfChunks(notional, s.ChunkSizeUSD(src, dst), s.cfg.MaxChunks)
	if !ok {
		return nil
	}
	return &domain.DCAParams{
		NumberOfChunks:      n,
		ChunkSize:           new(big.Int).Quo(amount, big.NewInt(int64(n))),
		ChunkIntervalBlocks: s.cfg.ChunkIntervalBlocks,
		AdditionalDuration:  time.Duration(n-1) * time.Duration(s.cfg.ChunkIntervalBlocks) * asset.StateChainBlockTime,
	}
}
