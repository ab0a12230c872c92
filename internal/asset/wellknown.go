package asset

import "time"

// StateChainBlockTime is the block time of the chain that executes swaps.
const StateChainBlockTime = 6 * time.Second

// Supported assets. The bitmap index is part of the market maker protocol
// and must never be reused.
var (
	ETH      = NewAsset(Eth, ChainEthereum, "ETH", "Ether", 18, 0)
	FLIP     = NewAsset(Flip, ChainEthereum, "FLIP", "Chainflip", 18, 1)
	USDC     = NewAsset(Usdc, ChainEthereum, "USDC", "USD Coin", 6, 2)
	USDT     = NewAsset(Usdt, ChainEthereum, "USDT", "Tether USD", 6, 3)
	DOT      = NewAsset(Dot, ChainPolkadot, "DOT", "Polkadot", 10, 4)
	BTC      = NewAsset(Btc, ChainBitcoin, "BTC", "Bitcoin", 8, 5)
	ARBETH   = NewAsset(ArbEth, ChainArbitrum, "ETH", "Arbitrum Ether", 18, 6)
	ARBUSDC  = NewAsset(ArbUsdc, ChainArbitrum, "USDC", "Arbitrum USD Coin", 6, 7)
	SOL      = NewAsset(Sol, ChainSolana, "SOL", "Solana", 9, 8)
	SOLUSDC  = NewAsset(SolUsdc, ChainSolana, "USDC", "Solana USD Coin", 6, 9)
	HUBDOT   = NewAsset(HubDot, ChainAssethub, "DOT", "Assethub DOT", 10, 10)
	HUBUSDC  = NewAsset(HubUsdc, ChainAssethub, "USDC", "Assethub USD Coin", 6, 11)
	HUBUSDT  = NewAsset(HubUsdt, ChainAssethub, "USDT", "Assethub Tether USD", 6, 12)
	allAsset = []*Asset{ETH, FLIP, USDC, USDT, DOT, BTC, ARBETH, ARBUSDC, SOL, SOLUSDC, HUBDOT, HUBUSDC, HUBUSDT}
)

// Supported chains.
var allChains = []ChainInfo{
	{Chain: ChainEthereum, BlockTime: 12 * time.Second, DepositConfirmations: 2},
	{Chain: ChainPolkadot, BlockTime: 6 * time.Second, DepositConfirmations: 1},
	{Chain: ChainBitcoin, BlockTime: 10 * time.Minute, DepositConfirmations: 3},
	{Chain: ChainArbitrum, BlockTime: 250 * time.Millisecond, DepositConfirmations: 2},
	{Chain: ChainSolana, BlockTime: 400 * time.Millisecond, DepositConfirmations: 1},
	{Chain: ChainAssethub, BlockTime: 12 * time.Second, DepositConfirmations: 1},
}

// DefaultRegistry returns a registry holding every supported asset and chain.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, a := range allAsset {
		r.Register(a)
	}
	for _, c := range allChains {
		r.RegisterChain(c)
	}
	return r
}
