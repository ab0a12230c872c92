// Package domain contains the quote model.
package domain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/swap-quoter/internal/asset"
)

// Request is one inbound quote request. Amount is in base units of Src.
type Request struct {
	Src                 *asset.Asset
	Dst                 *asset.Asset
	Amount              *big.Int
	BrokerCommissionBps uint16
	DCAEnabled          bool
	// IsOnChain swaps settle on the state chain without deposit or egress.
	IsOnChain bool
}

// Routed reports whether the swap passes through the stable asset.
func (r *Request) Routed() bool {
	return !r.Src.IsStable() && !r.Dst.IsStable()
}

// FeeType classifies an included fee.
type FeeType string

const (
	FeeNetwork   FeeType = "NETWORK"
	FeeLiquidity FeeType = "LIQUIDITY"
	FeeBroker    FeeType = "BROKER"
)

// Fee is one included fee in base units of Asset.
type Fee struct {
	Type   FeeType
	Asset  *asset.Asset
	Amount *big.Int
}

// QuoteType distinguishes the regular quote from its DCA alternative.
type QuoteType string

const (
	QuoteRegular QuoteType = "REGULAR"
	QuoteDCA     QuoteType = "DCA"
)

// DCAParams describes how a DCA swap is chunked.
type DCAParams struct {
	NumberOfChunks      int
	ChunkSize           *big.Int
	ChunkIntervalBlocks uint32
	// AdditionalDuration is the time spent waiting between chunks.
	AdditionalDuration time.Duration
}

// Quote is one priced way to execute the request.
type Quote struct {
	Type                QuoteType
	Src                 *asset.Asset
	Dst                 *asset.Asset
	Input               *big.Int
	Intermediate        *big.Int // nil unless routed
	Output              *big.Int
	Fees                []Fee
	SlippagePercent     decimal.Decimal
	EstimatedDuration   time.Duration
	LowLiquidityWarning bool
	MarketMakerOrders   int
	DCA                 *DCAParams
}

// Fee returns the total of fees of type t.
func (q *Quote) Fee(t FeeType) *big.Int {
	total := new(big.Int)
	for _, f := range q.Fees {
		if f.Type == t {
			total.Add(total, f.Amount)
		}
	}
	return total
}

// Result holds the quotes produced for one request.
type Result struct {
	Regular *Quote
	DCA     *Quote
}

// Diagnostics is logged for every request, successful or not. Fields may
// be empty.
type Diagnostics struct {
	Src         asset.InternalAsset
	Dst         asset.InternalAsset
	Amount      string
	Prices      map[asset.InternalAsset]decimal.Decimal
	Duration    time.Duration
	Success     bool
	Error       string
	DCAError    string
	RFQOrders   int
	UsedRFQ     bool
	PoolFailure string
}

// KeyValues flattens the record for structured logging.
func (d *Diagnostics) KeyValues() []any {
	kv := []any{
		"src", d.Src,
		"dst", d.Dst,
		"amount", d.Amount,
		"duration_ms", d.Duration.Milliseconds(),
		"success", d.Success,
		"rfq_orders", d.RFQOrders,
		"used_rfq", d.UsedRFQ,
	}
	for a, p := range d.Prices {
		kv = append(kv, "price_"+string(a), p.String())
	}
	if d.Error != "" {
		kv = append(kv, "error", d.Error)
	}
	if d.DCAError != "" {
		kv = append(kv, "dca_error", d.DCAError)
	}
	if d.PoolFailure != "" {
		kv = append(kv, "pool_failure", d.PoolFailure)
	}
	return kv
}
