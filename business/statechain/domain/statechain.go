// Package domain contains the state chain read models consumed by quoting.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/fd1az/swap-quoter/internal/asset"
)

// U256 decodes the node's NumberOrHex amounts: "0x..." strings, decimal
// strings or plain JSON numbers.
type U256 struct {
	*big.Int
}

// UnmarshalJSON implements json.Unmarshaler.
func (u *U256) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		u.Int = nil
		return nil
	}

	s := string(data)
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := hexutil.DecodeBig(s)
		if err != nil {
			return fmt.Errorf("decode u256 %q: %w", s, err)
		}
		u.Int = v
		return nil
	}

	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return fmt.Errorf("decode u256 %q: not an unsigned integer", s)
	}
	u.Int = v
	return nil
}

// MarshalJSON encodes as a 0x-prefixed hex string.
func (u U256) MarshalJSON() ([]byte, error) {
	if u.Int == nil {
		return []byte("null"), nil
	}
	return json.Marshal(hexutil.EncodeBig(u.Int))
}

// Big returns the value or zero when unset.
func (u U256) Big() *big.Int {
	if u.Int == nil {
		return new(big.Int)
	}
	return u.Int
}

// Environment is the subset of cf_environment the quoter needs.
type Environment struct {
	NetworkFeeHundredthPips uint32
	// PoolFees is keyed by the pool's base asset; every pool quotes Usdc.
	PoolFees map[asset.InternalAsset]uint32
}

// PoolFee returns the pool fee for base, in hundredths of a pip.
func (e *Environment) PoolFee(base asset.InternalAsset) (uint32, bool) {
	fee, ok := e.PoolFees[base]
	return fee, ok
}

// OrderSide is the side of a limit order as the node spells it.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// LimitOrder is an order injected into a swap simulation.
type LimitOrder struct {
	Base       asset.ChainAsset
	Quote      asset.ChainAsset
	Side       OrderSide
	Tick       int32
	SellAmount *big.Int
}

// DCAParams asks the node to simulate a chunked swap.
type DCAParams struct {
	NumberOfChunks      uint32
	ChunkIntervalBlocks uint32
}

// SwapRateRequest is one simulated swap.
type SwapRateRequest struct {
	From             asset.ChainAsset
	To               asset.ChainAsset
	Amount           *big.Int
	AdditionalOrders []LimitOrder
	DCA              *DCAParams
}

// SwapRate is the simulated result. Intermediary is nil for single-hop swaps.
type SwapRate struct {
	Intermediary *big.Int
	Output       *big.Int
	NetworkFee   *big.Int
}

// IsRouted reports whether the swap passed through Usdc.
func (r *SwapRate) IsRouted() bool {
	return r.Intermediary != nil
}

// AccountBalances maps asset to free balance.
type AccountBalances map[asset.InternalAsset]*big.Int

// Balances maps account id to its free balances.
type Balances map[string]AccountBalances

// Get returns the balance of account in a, zero when unknown.
func (b Balances) Get(account string, a asset.InternalAsset) *big.Int {
	if v, ok := b[account][a]; ok && v != nil {
		return v
	}
	return new(big.Int)
}
