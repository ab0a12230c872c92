package app

import (
	"math/big"

	"github.com/fd1az/swap-quoter/business/quoting/domain"
	scdomain "github.com/fd1az/swap-quoter/business/statechain/domain"
	"github.com/fd1az/swap-quoter/internal/asset"
)

// brokerSplit deducts the broker commission from the input and returns the
// commission and the amount left to swap.
func brokerSplit(src *asset.Asset, amount *big.Int, bps uint16) (fee, rest *big.Int) {
	fee = asset.NewAmount(src, amount).FeeBps(bps).Raw()
	return fee, new(big.Int).Sub(amount, fee)
}

// feeBreakdown lists the fees included in a simulated swap. The network
// fee reported by the node is used when present; otherwise it is derived
// from networkRate and the stable-denominated amount. Each pool hop
// charges its fee on the amount entering it; a pool missing from env is
// left out rather than reported as free.
func feeBreakdown(req *domain.Request, stable *asset.Asset, env *scdomain.Environment, networkRate uint32,
	brokerFee, swapInput *big.Int, rate *scdomain.SwapRate) []domain.Fee {

	var fees []domain.Fee
	if req.BrokerCommissionBps > 0 {
		fees = append(fees, domain.Fee{Type: domain.FeeBroker, Asset: req.Src, Amount: brokerFee})
	}

	network := rate.NetworkFee
	if network == nil || network.Sign() == 0 {
		var stableAmount *big.Int
		switch {
		case req.Src.IsStable():
			stableAmount = swapInput
		case rate.IsRouted():
			stableAmount = rate.Intermediary
		default:
			stableAmount = rate.Output
		}
		network = asset.NewAmount(stable, stableAmount).FeeHundredthPips(networkRate).Raw()
	}
	fees = append(fees, domain.Fee{Type: domain.FeeNetwork, Asset: stable, Amount: network})

	firstPool := req.Src
	if req.Src.IsStable() {
		firstPool = req.Dst
	}
	if fee, ok := liquidityFee(env, firstPool.ID(), req.Src, swapInput); ok {
		fees = append(fees, fee)
	}
	if req.Routed() && rate.Intermediary != nil {
		if fee, ok := liquidityFee(env, req.Dst.ID(), stable, rate.Intermediary); ok {
			fees = append(fees, fee)
		}
	}
	return fees
}

func liquidityFee(env *scdomain.Environment, pool asset.InternalAsset, entering *asset.Asset, amount *big.Int) (domain.Fee, bool) {
	rate, ok := env.PoolFee(pool)
	if !ok {
		return domain.Fee{}, false
	}
	return domain.Fee{
		Type:   domain.FeeLiquidity,
		Asset:  entering,
		Amount: asset.NewAmount(entering, amount).FeeHundredthPips(rate).Raw(),
	}, true
}
