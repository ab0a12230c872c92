package app

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	mmdomain "github.com/fd1az/swap-quoter/business/marketmaker/domain"
	"github.com/fd1az/swap-quoter/business/quoting/domain"
	scdomain "github.com/fd1az/swap-quoter/business/statechain/domain"
	"github.com/fd1az/swap-quoter/internal/apperror"
	"github.com/fd1az/swap-quoter/internal/asset"
	"github.com/fd1az/swap-quoter/internal/config"
	"github.com/fd1az/swap-quoter/internal/logger"
)

type fakePools struct {
	env    *scdomain.Environment
	envErr error
	rate   func(req scdomain.SwapRateRequest) (*scdomain.SwapRate, error)

	mu       sync.Mutex
	requests []scdomain.SwapRateRequest
}

func (f *fakePools) Environment(ctx context.Context) (*scdomain.Environment, error) {
	return f.env, f.envErr
}

func (f *fakePools) SwapRate(ctx context.Context, req scdomain.SwapRateRequest) (*scdomain.SwapRate, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.rate(req)
}

func (f *fakePools) withOrders() []scdomain.SwapRateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []scdomain.SwapRateRequest
	for _, r := range f.requests {
		if len(r.AdditionalOrders) > 0 {
			out = append(out, r)
		}
	}
	return out
}

type fakeMarketMakers struct {
	orders []mmdomain.Order

	mu   sync.Mutex
	legs []*mmdomain.Leg
}

func (f *fakeMarketMakers) Request(ctx context.Context, legs ...*mmdomain.Leg) ([]mmdomain.Order, error) {
	f.mu.Lock()
	f.legs = legs
	f.mu.Unlock()
	return f.orders, nil
}

type fakePrices map[asset.InternalAsset]float64

func (f fakePrices) USDPrice(ctx context.Context, a *asset.Asset) (asset.USDPrice, error) {
	p, ok := f[a.ID()]
	if !ok {
		return asset.USDPrice{}, errors.New("no price")
	}
	return asset.NewUSDPrice(a, decimal.NewFromFloat(p), time.Now()), nil
}

func testEnv() *scdomain.Environment {
	return &scdomain.Environment{
		NetworkFeeHundredthPips: 1000,
		PoolFees:                map[asset.InternalAsset]uint32{asset.Btc: 1500, asset.Eth: 500},
	}
}

// fixedRate answers every simulation with the same output, plus bonus when
// market maker orders are included.
func fixedRate(intermediary, output, bonus int64) func(scdomain.SwapRateRequest) (*scdomain.SwapRate, error) {
	return func(req scdomain.SwapRateRequest) (*scdomain.SwapRate, error) {
		out := big.NewInt(output)
		if len(req.AdditionalOrders) > 0 {
			out.Add(out, big.NewInt(bonus))
		}
		rate := &scdomain.SwapRate{Output: out}
		if intermediary > 0 {
			rate.Intermediary = big.NewInt(intermediary)
		}
		return rate, nil
	}
}

func newTestOrchestrator(pools Pools, prices PriceSource, opts ...Option) *Orchestrator {
	cfg := Config{
		RequestTimeout:          time.Second,
		NetworkFeeHundredthPips: 2000,
		MaxBrokerCommissionBps:  1000,
		LiquidityWarningPercent: decimal.NewFromInt(2),
	}
	slippage := func(src, dst asset.InternalAsset) decimal.Decimal { return decimal.NewFromInt(2) }
	return NewOrchestrator(cfg, pools, prices, NewChunkSizer(dcaConfig(config.PrecedenceBuyFirst)), slippage,
		asset.DefaultRegistry(), logger.NewNop(), nil, opts...)
}

func wantBig(t *testing.T, name string, got *big.Int, want string) {
	t.Helper()
	if got == nil || got.String() != want {
		t.Errorf("%s = %v, want %s", name, got, want)
	}
}

func TestOrchestrator_Validation(t *testing.T) {
	o := newTestOrchestrator(&fakePools{env: testEnv(), rate: fixedRate(0, 1, 0)}, fakePrices{})

	tests := []struct {
		name string
		req  *domain.Request
		code apperror.Code
	}{
		{"same asset", &domain.Request{Src: asset.ETH, Dst: asset.ETH, Amount: big.NewInt(1)}, apperror.CodeInvalidAsset},
		{"missing asset", &domain.Request{Src: asset.ETH, Amount: big.NewInt(1)}, apperror.CodeInvalidAsset},
		{"zero amount", &domain.Request{Src: asset.ETH, Dst: asset.USDC, Amount: big.NewInt(0)}, apperror.CodeInvalidAmount},
		{"commission too high", &domain.Request{Src: asset.ETH, Dst: asset.USDC, Amount: big.NewInt(1), BrokerCommissionBps: 1001}, apperror.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.Quote(context.Background(), tt.req)
			if got := apperror.GetCode(err); got != tt.code {
				t.Errorf("code = %s, want %s (err %v)", got, tt.code, err)
			}
		})
	}
}

func TestOrchestrator_SingleHopQuote(t *testing.T) {
	pools := &fakePools{env: testEnv(), rate: fixedRate(0, 5e17, 0)}
	o := newTestOrchestrator(pools, fakePrices{asset.Usdc: 1, asset.Eth: 2000})

	res, err := o.Quote(context.Background(), &domain.Request{Src: asset.USDC, Dst: asset.ETH, Amount: big.NewInt(1_000_000_000)})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	q := res.Regular
	wantBig(t, "output", q.Output, "500000000000000000")
	if q.Intermediate != nil {
		t.Errorf("intermediate = %v, want nil", q.Intermediate)
	}
	wantBig(t, "network fee", q.Fee(domain.FeeNetwork), "1000000")
	wantBig(t, "liquidity fee", q.Fee(domain.FeeLiquidity), "500000")
	wantBig(t, "broker fee", q.Fee(domain.FeeBroker), "0")
	if want := 24*time.Second + 6*time.Second + 12*time.Second; q.EstimatedDuration != want {
		t.Errorf("duration = %v, want %v", q.EstimatedDuration, want)
	}
	if q.LowLiquidityWarning {
		t.Error("unexpected low liquidity warning")
	}
	if !q.SlippagePercent.Equal(decimal.NewFromInt(2)) {
		t.Errorf("slippage = %s", q.SlippagePercent)
	}
	if res.DCA != nil {
		t.Error("DCA quote without DCA enabled")
	}
}

func TestOrchestrator_RoutedQuoteFees(t *testing.T) {
	pools := &fakePools{env: testEnv(), rate: fixedRate(60_000_000_000, 2e18, 0)}
	mms := &fakeMarketMakers{}
	o := newTestOrchestrator(pools, fakePrices{asset.Usdc: 1, asset.Btc: 60000, asset.Eth: 3000}, WithMarketMakers(mms))

	res, err := o.Quote(context.Background(), &domain.Request{
		Src: asset.BTC, Dst: asset.ETH, Amount: big.NewInt(100_000_000), BrokerCommissionBps: 10,
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	q := res.Regular
	wantBig(t, "intermediate", q.Intermediate, "60000000000")
	wantBig(t, "broker fee", q.Fee(domain.FeeBroker), "100000")
	wantBig(t, "network fee", q.Fee(domain.FeeNetwork), "60000000")

	var liquidity []string
	for _, f := range q.Fees {
		if f.Type == domain.FeeLiquidity {
			liquidity = append(liquidity, f.Asset.Symbol()+":"+f.Amount.String())
		}
	}
	if len(liquidity) != 2 || liquidity[0] != "BTC:149850" || liquidity[1] != "USDC:30000000" {
		t.Errorf("liquidity fees = %v", liquidity)
	}
	if want := 30*time.Minute + 6*time.Second + 12*time.Second; q.EstimatedDuration != want {
		t.Errorf("duration = %v, want %v", q.EstimatedDuration, want)
	}

	mms.mu.Lock()
	defer mms.mu.Unlock()
	if len(mms.legs) != 2 {
		t.Fatalf("legs = %v", mms.legs)
	}
	if l := mms.legs[0]; l.Side() != mmdomain.SideSell || l.Base() != asset.Btc || l.Amount().String() != "99900000" {
		t.Errorf("sell leg = %s", l)
	}
	if l := mms.legs[1]; l.Side() != mmdomain.SideBuy || l.Base() != asset.Eth || l.Amount().String() != "59940000000" {
		t.Errorf("buy leg = %s", l)
	}
}

func TestOrchestrator_MarketMakerOrders(t *testing.T) {
	order := mmdomain.Order{AccountID: "cFmm", Base: asset.Eth, Side: mmdomain.SideBuy, Tick: 100, Amount: big.NewInt(1e17)}

	tests := []struct {
		name       string
		bonus      int64
		wantOutput string
		wantUsed   int
	}{
		{"better output wins", 1e16, "510000000000000000", 1},
		{"worse output ignored", -1e16, "500000000000000000", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pools := &fakePools{env: testEnv(), rate: fixedRate(0, 5e17, tt.bonus)}
			mms := &fakeMarketMakers{orders: []mmdomain.Order{order}}
			o := newTestOrchestrator(pools, fakePrices{}, WithMarketMakers(mms))

			res, err := o.Quote(context.Background(), &domain.Request{Src: asset.USDC, Dst: asset.ETH, Amount: big.NewInt(1e9)})
			if err != nil {
				t.Fatalf("Quote: %v", err)
			}
			wantBig(t, "output", res.Regular.Output, tt.wantOutput)
			if res.Regular.MarketMakerOrders != tt.wantUsed {
				t.Errorf("orders used = %d, want %d", res.Regular.MarketMakerOrders, tt.wantUsed)
			}

			sims := pools.withOrders()
			if len(sims) != 1 {
				t.Fatalf("simulations with orders = %d", len(sims))
			}
			lo := sims[0].AdditionalOrders[0]
			if lo.Side != scdomain.OrderSideSell || lo.Base != asset.ETH.ChainAsset() || lo.Tick != 100 || lo.SellAmount.String() != "100000000000000000" {
				t.Errorf("limit order = %+v", lo)
			}
		})
	}
}

func TestOrchestrator_PoolFailures(t *testing.T) {
	rpcErr := apperror.New(apperror.CodeStateChainRPCError, apperror.WithContext("no route"))
	connErr := apperror.External(apperror.CodeStateChainConnectionFailed, "dial", errors.New("refused"))

	tests := []struct {
		name     string
		rate     func(scdomain.SwapRateRequest) (*scdomain.SwapRate, error)
		orders   []mmdomain.Order
		wantCode apperror.Code
	}{
		{
			name:     "rpc error is insufficient liquidity",
			rate:     func(scdomain.SwapRateRequest) (*scdomain.SwapRate, error) { return nil, rpcErr },
			wantCode: apperror.CodeInsufficientLiquidity,
		},
		{
			name:     "connection error passes through",
			rate:     func(scdomain.SwapRateRequest) (*scdomain.SwapRate, error) { return nil, connErr },
			wantCode: apperror.CodeStateChainConnectionFailed,
		},
		{
			name:     "zero output",
			rate:     fixedRate(0, 0, 0),
			wantCode: apperror.CodeInsufficientLiquidity,
		},
		{
			name: "market makers rescue an empty pool",
			rate: func(req scdomain.SwapRateRequest) (*scdomain.SwapRate, error) {
				if len(req.AdditionalOrders) == 0 {
					return nil, rpcErr
				}
				return &scdomain.SwapRate{Output: big.NewInt(42)}, nil
			},
			orders: []mmdomain.Order{{AccountID: "cFmm", Base: asset.Eth, Side: mmdomain.SideBuy, Tick: 1, Amount: big.NewInt(50)}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pools := &fakePools{env: testEnv(), rate: tt.rate}
			o := newTestOrchestrator(pools, fakePrices{}, WithMarketMakers(&fakeMarketMakers{orders: tt.orders}))

			res, err := o.Quote(context.Background(), &domain.Request{Src: asset.USDC, Dst: asset.ETH, Amount: big.NewInt(1e9)})
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Quote: %v", err)
				}
				wantBig(t, "output", res.Regular.Output, "42")
				return
			}
			if got := apperror.GetCode(err); got != tt.wantCode {
				t.Errorf("code = %s, want %s (err %v)", got, tt.wantCode, err)
			}
		})
	}
}

func TestOrchestrator_EnvironmentFailure(t *testing.T) {
	pools := &fakePools{envErr: apperror.External(apperror.CodeStateChainConnectionFailed, "dial", errors.New("refused"))}
	o := newTestOrchestrator(pools, fakePrices{})

	_, err := o.Quote(context.Background(), &domain.Request{Src: asset.USDC, Dst: asset.ETH, Amount: big.NewInt(1e9)})
	if apperror.StatusCode(err) != 503 {
		t.Errorf("status = %d, want 503 (err %v)", apperror.StatusCode(err), err)
	}
}

func TestOrchestrator_NetworkFeeFallback(t *testing.T) {
	env := testEnv()
	env.NetworkFeeHundredthPips = 0
	o := newTestOrchestrator(&fakePools{env: env, rate: fixedRate(0, 5e17, 0)}, fakePrices{})

	res, err := o.Quote(context.Background(), &domain.Request{Src: asset.USDC, Dst: asset.ETH, Amount: big.NewInt(1e9)})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	wantBig(t, "network fee", res.Regular.Fee(domain.FeeNetwork), "2000000")
}

func TestOrchestrator_LowLiquidityWarning(t *testing.T) {
	tests := []struct {
		name   string
		output int64
		prices fakePrices
		want   bool
	}{
		{"within threshold", 49e16, fakePrices{asset.Usdc: 1, asset.Eth: 2000}, false},
		{"above threshold", 45e16, fakePrices{asset.Usdc: 1, asset.Eth: 2000}, true},
		{"no prices", 1e16, fakePrices{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOrchestrator(&fakePools{env: testEnv(), rate: fixedRate(0, tt.output, 0)}, tt.prices)
			res, err := o.Quote(context.Background(), &domain.Request{Src: asset.USDC, Dst: asset.ETH, Amount: big.NewInt(1e9)})
			if err != nil {
				t.Fatalf("Quote: %v", err)
			}
			if res.Regular.LowLiquidityWarning != tt.want {
				t.Errorf("warning = %v, want %v", res.Regular.LowLiquidityWarning, tt.want)
			}
		})
	}
}

func TestOrchestrator_DCA(t *testing.T) {
	rate := func(req scdomain.SwapRateRequest) (*scdomain.SwapRate, error) {
		if req.DCA != nil {
			if req.DCA.NumberOfChunks != 20 || req.DCA.ChunkIntervalBlocks != 2 {
				return nil, errors.New("unexpected dca params")
			}
			return &scdomain.SwapRate{Output: big.NewInt(60_100_000_000)}, nil
		}
		return &scdomain.SwapRate{Output: big.NewInt(59_000_000_000)}, nil
	}
	req := &domain.Request{Src: asset.BTC, Dst: asset.USDC, Amount: big.NewInt(100_000_000), DCAEnabled: true}

	t.Run("chunked", func(t *testing.T) {
		o := newTestOrchestrator(&fakePools{env: testEnv(), rate: rate}, fakePrices{asset.Btc: 60000, asset.Usdc: 1})
		res, err := o.Quote(context.Background(), req)
		if err != nil {
			t.Fatalf("Quote: %v", err)
		}
		if res.DCA == nil {
			t.Fatal("missing DCA quote")
		}
		wantBig(t, "dca output", res.DCA.Output, "60100000000")
		if res.DCA.DCA.NumberOfChunks != 20 {
			t.Errorf("chunks = %d", res.DCA.DCA.NumberOfChunks)
		}
		wantBig(t, "chunk size", res.DCA.DCA.ChunkSize, "5000000")
		if got := res.DCA.EstimatedDuration - res.Regular.EstimatedDuration; got != 228*time.Second {
			t.Errorf("additional duration = %v", got)
		}
	})

	t.Run("no price skips dca", func(t *testing.T) {
		var diag *domain.Diagnostics
		o := newTestOrchestrator(&fakePools{env: testEnv(), rate: rate}, fakePrices{},
			WithObserver(func(_ *domain.Request, _ *domain.Result, d *domain.Diagnostics) { diag = d }))
		res, err := o.Quote(context.Background(), req)
		if err != nil {
			t.Fatalf("Quote: %v", err)
		}
		if res.DCA != nil {
			t.Error("DCA quote without a price")
		}
		if diag == nil || diag.DCAError == "" {
			t.Errorf("diagnostics = %+v, want dca error", diag)
		}
	})

	t.Run("small swap is not chunked", func(t *testing.T) {
		o := newTestOrchestrator(&fakePools{env: testEnv(), rate: rate}, fakePrices{asset.Btc: 60000, asset.Usdc: 1})
		small := *req
		small.Amount = big.NewInt(1_000_000)
		res, err := o.Quote(context.Background(), &small)
		if err != nil {
			t.Fatalf("Quote: %v", err)
		}
		if res.DCA != nil {
			t.Errorf("DCA quote for a %s BTC swap", small.Amount)
		}
	})
}

func TestOrchestrator_ObserverSeesFailures(t *testing.T) {
	var (
		calls int
		diag  *domain.Diagnostics
	)
	o := newTestOrchestrator(&fakePools{env: testEnv(), rate: fixedRate(0, 0, 0)}, fakePrices{asset.Usdc: 1},
		WithObserver(func(_ *domain.Request, res *domain.Result, d *domain.Diagnostics) {
			calls++
			diag = d
			if res != nil {
				t.Error("result on failure")
			}
		}))

	if _, err := o.Quote(context.Background(), &domain.Request{Src: asset.USDC, Dst: asset.ETH, Amount: big.NewInt(1e9)}); err == nil {
		t.Fatal("expected failure")
	}
	if calls != 1 {
		t.Fatalf("observer calls = %d", calls)
	}
	if diag.Success || diag.Error == "" || diag.Src != asset.Usdc || diag.Amount != "1000000000" {
		t.Errorf("diagnostics = %+v", diag)
	}
	if !diag.Prices[asset.Usdc].Equal(decimal.NewFromInt(1)) {
		t.Errorf("prices = %v", diag.Prices)
	}
}
