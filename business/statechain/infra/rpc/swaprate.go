package rpc

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/fd1az/swap-quoter/business/statechain/domain"
	"github.com/fd1az/swap-quoter/internal/asset"
	"github.com/fd1az/swap-quoter/internal/version"
)

// swapRateVariant is one generation of the swap simulation RPC.
type swapRateVariant struct {
	method string
	params func(req domain.SwapRateRequest) []any
}

func newSwapRateTable() *version.Table[swapRateVariant] {
	t := version.NewTable[swapRateVariant]()
	t.Register(methodSwapRate,
		version.Variant[swapRateVariant]{
			Since: version.New(1, 0, 0),
			Value: swapRateVariant{method: "cf_swap_rate_v2", params: swapRateV2Params},
		},
		version.Variant[swapRateVariant]{
			Since: version.New(1, 9, 0),
			Value: swapRateVariant{method: "cf_swap_rate_v3", params: swapRateV3Params},
		},
	)
	return t
}

// cf_swap_rate_v2(from, to, amount, additional_orders)
func swapRateV2Params(req domain.SwapRateRequest) []any {
	return []any{req.From, req.To, hexutil.EncodeBig(req.Amount), encodeOrders(req.AdditionalOrders)}
}

// cf_swap_rate_v3(from, to, amount, broker_commission, dca_parameters,
// ccm_data, exclude_fees, additional_orders). Broker commission is already
// taken out of the amount by the caller.
func swapRateV3Params(req domain.SwapRateRequest) []any {
	var dca *dcaParams
	if req.DCA != nil {
		dca = &dcaParams{
			NumberOfChunks: req.DCA.NumberOfChunks,
			ChunkInterval:  req.DCA.ChunkIntervalBlocks,
		}
	}
	return []any{
		req.From,
		req.To,
		hexutil.EncodeBig(req.Amount),
		0,
		dca,
		nil,
		[]string{},
		encodeOrders(req.AdditionalOrders),
	}
}

type dcaParams struct {
	NumberOfChunks uint32 `json:"number_of_chunks"`
	ChunkInterval  uint32 `json:"chunk_interval"`
}

type limitOrderParams struct {
	BaseAsset  asset.ChainAsset `json:"base_asset"`
	QuoteAsset asset.ChainAsset `json:"quote_asset"`
	Side       domain.OrderSide `json:"side"`
	Tick       int32            `json:"tick"`
	SellAmount string           `json:"sell_amount"`
}

type additionalOrder struct {
	LimitOrder limitOrderParams `json:"LimitOrder"`
}

func encodeOrders(orders []domain.LimitOrder) []additionalOrder {
	if len(orders) == 0 {
		return nil
	}
	out := make([]additionalOrder, 0, len(orders))
	for _, o := range orders {
		if o.SellAmount == nil || o.SellAmount.Sign() <= 0 {
			continue
		}
		out = append(out, additionalOrder{LimitOrder: limitOrderParams{
			BaseAsset:  o.Base,
			QuoteAsset: o.Quote,
			Side:       o.Side,
			Tick:       o.Tick,
			SellAmount: hexutil.EncodeBig(o.SellAmount),
		}})
	}
	return out
}

type feeResult struct {
	Amount domain.U256 `json:"amount"`
}

type swapRateResult struct {
	Intermediary domain.U256 `json:"intermediary"`
	Output       domain.U256 `json:"output"`
	NetworkFee   *feeResult  `json:"network_fee"`
}

func (r swapRateResult) toDomain() *domain.SwapRate {
	rate := &domain.SwapRate{
		Intermediary: r.Intermediary.Int,
		Output:       r.Output.Big(),
		NetworkFee:   new(big.Int),
	}
	if r.NetworkFee != nil {
		rate.NetworkFee = r.NetworkFee.Amount.Big()
	}
	return rate
}
