package asset

import "time"

// Asset holds the metadata of a supported asset.
type Asset struct {
	id       InternalAsset
	chain    Chain
	symbol   string
	name     string
	decimals uint8
	index    uint // position in quoted-asset bitmaps
}

// NewAsset creates an Asset. index is the bit the asset occupies in a Bitmap.
func NewAsset(id InternalAsset, chain Chain, symbol, name string, decimals uint8, index uint) *Asset {
	if id == "" || symbol == "" {
		panic("asset: empty id or symbol")
	}
	if decimals > 30 {
		panic("asset: suspicious decimals (>30)")
	}
	if index >= 64 {
		panic("asset: bitmap index out of range")
	}

	return &Asset{
		id:       id,
		chain:    chain,
		symbol:   symbol,
		name:     name,
		decimals: decimals,
		index:    index,
	}
}

// ID returns the internal identity.
func (a *Asset) ID() InternalAsset {
	return a.id
}

// Chain returns the chain the asset lives on.
func (a *Asset) Chain() Chain {
	return a.chain
}

// Symbol returns the ticker symbol (e.g., "ETH", "USDC").
func (a *Asset) Symbol() string {
	return a.symbol
}

// Name returns the human-readable name, falling back to the symbol.
func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

// Decimals returns the number of decimal places of one unit.
func (a *Asset) Decimals() uint8 {
	return a.decimals
}

// ChainAsset returns the wire identity.
func (a *Asset) ChainAsset() ChainAsset {
	return ChainAsset{Chain: a.chain, Asset: a.symbol}
}

// IsStable reports whether this is the stable reference asset.
func (a *Asset) IsStable() bool {
	return a.id.IsStable()
}

// String returns the internal id.
func (a *Asset) String() string {
	return string(a.id)
}

// Equals compares two Assets by identity.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.id == other.id
}

// ChainInfo holds the timing parameters of an external chain used to
// estimate swap durations.
type ChainInfo struct {
	Chain                Chain
	BlockTime            time.Duration
	DepositConfirmations int // blocks before a deposit is witnessed
}

// DepositDuration is the expected time until a deposit is witnessed.
func (c ChainInfo) DepositDuration() time.Duration {
	return time.Duration(c.DepositConfirmations) * c.BlockTime
}

// EgressDuration is the expected time until an egress lands (one block).
func (c ChainInfo) EgressDuration() time.Duration {
	return c.BlockTime
}
