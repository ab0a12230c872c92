// Package asset models the cross-chain assets the quoter prices.
// Amounts are exact big.Int base units; decimal.Decimal is only used for
// USD notionals and display.
package asset

import (
	"encoding/json"
	"fmt"
)

// Chain identifies an external chain.
type Chain string

const (
	ChainEthereum Chain = "Ethereum"
	ChainPolkadot Chain = "Polkadot"
	ChainBitcoin  Chain = "Bitcoin"
	ChainArbitrum Chain = "Arbitrum"
	ChainSolana   Chain = "Solana"
	ChainAssethub Chain = "Assethub"
)

// InternalAsset is the chain-qualified asset identity used everywhere inside
// the quoter, e.g. "Usdc" (USDC on Ethereum) or "ArbUsdc" (USDC on Arbitrum).
// The symbol is NOT identity: USDC exists on several chains.
type InternalAsset string

const (
	Eth     InternalAsset = "Eth"
	Flip    InternalAsset = "Flip"
	Usdc    InternalAsset = "Usdc"
	Usdt    InternalAsset = "Usdt"
	Dot     InternalAsset = "Dot"
	Btc     InternalAsset = "Btc"
	ArbEth  InternalAsset = "ArbEth"
	ArbUsdc InternalAsset = "ArbUsdc"
	Sol     InternalAsset = "Sol"
	SolUsdc InternalAsset = "SolUsdc"
	HubDot  InternalAsset = "HubDot"
	HubUsdc InternalAsset = "HubUsdc"
	HubUsdt InternalAsset = "HubUsdt"
)

// Stable is the reference asset every pool is quoted against.
const Stable = Usdc

// IsStable reports whether a is the stable reference asset.
func (a InternalAsset) IsStable() bool {
	return a == Stable
}

// ChainAsset is the wire identity {chain, asset} used by the state chain
// RPC and the market maker protocol, e.g. {"chain":"Arbitrum","asset":"USDC"}.
type ChainAsset struct {
	Chain Chain  `json:"chain"`
	Asset string `json:"asset"`
}

// String returns "Arbitrum.USDC".
func (c ChainAsset) String() string {
	return fmt.Sprintf("%s.%s", c.Chain, c.Asset)
}

// UnmarshalJSON rejects objects with missing fields.
func (c *ChainAsset) UnmarshalJSON(data []byte) error {
	var raw struct {
		Chain *Chain  `json:"chain"`
		Asset *string `json:"asset"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Chain == nil || raw.Asset == nil {
		return fmt.Errorf("asset: chain and asset are required")
	}
	c.Chain, c.Asset = *raw.Chain, *raw.Asset
	return nil
}
