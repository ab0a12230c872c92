package httpapi

import (
	"math/big"

	"github.com/fd1az/swap-quoter/business/quoting/domain"
	"github.com/fd1az/swap-quoter/internal/asset"
)

// feeResponse is one included fee. Amounts are base-unit integer strings.
type feeResponse struct {
	Type   domain.FeeType `json:"type"`
	Chain  asset.Chain    `json:"chain"`
	Asset  string         `json:"asset"`
	Amount string         `json:"amount"`
}

type dcaResponse struct {
	NumberOfChunks      int    `json:"numberOfChunks"`
	ChunkIntervalBlocks uint32 `json:"chunkIntervalBlocks"`
	ChunkSize           string `json:"chunkSize"`
}

type quoteResponse struct {
	Type                                domain.QuoteType `json:"type"`
	SrcAsset                            asset.ChainAsset `json:"srcAsset"`
	DestAsset                           asset.ChainAsset `json:"destAsset"`
	DepositAmount                       string           `json:"depositAmount"`
	IntermediateAmount                  string           `json:"intermediateAmount,omitempty"`
	EgressAmount                        string           `json:"egressAmount"`
	IncludedFees                        []feeResponse    `json:"includedFees"`
	RecommendedSlippageTolerancePercent float64          `json:"recommendedSlippageTolerancePercent"`
	EstimatedDurationSeconds            float64          `json:"estimatedDurationSeconds"`
	LowLiquidityWarning                 bool             `json:"lowLiquidityWarning"`
	DCAParams                           *dcaResponse     `json:"dcaParams,omitempty"`
}

// toResponse lists the regular quote first, followed by the DCA quote when
// one was produced.
func toResponse(res *domain.Result) []quoteResponse {
	out := []quoteResponse{toQuote(res.Regular)}
	if res.DCA != nil {
		out = append(out, toQuote(res.DCA))
	}
	return out
}

func toQuote(q *domain.Quote) quoteResponse {
	r := quoteResponse{
		Type:                                q.Type,
		SrcAsset:                            q.Src.ChainAsset(),
		DestAsset:                           q.Dst.ChainAsset(),
		DepositAmount:                       baseUnits(q.Input),
		EgressAmount:                        baseUnits(q.Output),
		IncludedFees:                        make([]feeResponse, 0, len(q.Fees)),
		RecommendedSlippageTolerancePercent: q.SlippagePercent.InexactFloat64(),
		EstimatedDurationSeconds:            q.EstimatedDuration.Seconds(),
		LowLiquidityWarning:                 q.LowLiquidityWarning,
	}
	if q.Intermediate != nil {
		r.IntermediateAmount = q.Intermediate.String()
	}
	for _, f := range q.Fees {
		ca := f.Asset.ChainAsset()
		r.IncludedFees = append(r.IncludedFees, feeResponse{
			Type:   f.Type,
			Chain:  ca.Chain,
			Asset:  ca.Asset,
			Amount: baseUnits(f.Amount),
		})
	}
	if q.DCA != nil {
		r.DCAParams = &dcaResponse{
			NumberOfChunks:      q.DCA.NumberOfChunks,
			ChunkIntervalBlocks: q.DCA.ChunkIntervalBlocks,
			ChunkSize:           baseUnits(q.DCA.ChunkSize),
		}
	}
	return r
}

func baseUnits(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
