package app

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	mmdomain "github.com/fd1az/swap-quoter/business/marketmaker/domain"
	"github.com/fd1az/swap-quoter/business/quoting/domain"
	scdomain "github.com/fd1az/swap-quoter/business/statechain/domain"
	"github.com/fd1az/swap-quoter/internal/apm"
	"github.com/fd1az/swap-quoter/internal/apperror"
	"github.com/fd1az/swap-quoter/internal/asset"
	"github.com/fd1az/swap-quoter/internal/logger"
	"github.com/fd1az/swap-quoter/internal/metrics"
)

// Config holds the orchestrator settings.
type Config struct {
	RequestTimeout time.Duration
	// NetworkFeeHundredthPips is used when the node reports no network fee.
	NetworkFeeHundredthPips uint32
	MaxBrokerCommissionBps  uint16
	// LiquidityWarningPercent is the USD value loss above which a quote is
	// flagged as low liquidity.
	LiquidityWarningPercent decimal.Decimal
}

// SlippageFunc recommends a slippage tolerance in percent for a pair.
type SlippageFunc func(src, dst asset.InternalAsset) decimal.Decimal

// QuoteObserver sees every finished request. res is nil on failure.
type QuoteObserver func(req *domain.Request, res *domain.Result, diag *domain.Diagnostics)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMarketMakers enables RFQs.
func WithMarketMakers(mms MarketMakers) Option {
	return func(o *Orchestrator) { o.mms = mms }
}

// WithObserver registers a QuoteObserver.
func WithObserver(fn QuoteObserver) Option {
	return func(o *Orchestrator) { o.observe = fn }
}

// Orchestrator produces quotes by combining pool simulation, market maker
// orders and DCA sizing.
type Orchestrator struct {
	cfg         Config
	pools       Pools
	prices      PriceSource
	mms         MarketMakers
	sizer       *ChunkSizer
	slippage    SlippageFunc
	assets      *asset.Registry
	log         logger.LoggerInterface
	instruments *metrics.Instruments
	tracer      *apm.Tracer
	observe     QuoteObserver
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(cfg Config, pools Pools, prices PriceSource, sizer *ChunkSizer, slippage SlippageFunc,
	assets *asset.Registry, log logger.LoggerInterface, instruments *metrics.Instruments, opts ...Option) *Orchestrator {
	if instruments == nil {
		instruments = metrics.NewNoopInstruments()
	}
	o := &Orchestrator{
		cfg:         cfg,
		pools:       pools,
		prices:      prices,
		sizer:       sizer,
		slippage:    slippage,
		assets:      assets,
		log:         log,
		instruments: instruments,
		tracer:      apm.NewTracer("github.com/fd1az/swap-quoter/business/quoting"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Quote prices req. The DCA quote is best effort and never fails the
// request.
func (o *Orchestrator) Quote(ctx context.Context, req *domain.Request) (*domain.Result, error) {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "quoting.quote", attribute.Bool("dca_enabled", req.DCAEnabled))
	defer span.End()

	diag := &domain.Diagnostics{Prices: make(map[asset.InternalAsset]decimal.Decimal)}
	if req.Src != nil && req.Dst != nil && req.Amount != nil {
		diag.Src, diag.Dst, diag.Amount = req.Src.ID(), req.Dst.ID(), req.Amount.String()
		span.Set(attribute.String("src", string(diag.Src)), attribute.String("dst", string(diag.Dst)))
	}

	res, err := o.quote(ctx, req, diag)
	span.Fail(err)
	span.Set(attribute.Int("rfq_orders", diag.RFQOrders), attribute.Bool("used_rfq", diag.UsedRFQ))
	if diag.DCAError != "" {
		span.Event("dca unavailable", attribute.String("error", diag.DCAError))
	}

	diag.Duration = time.Since(start)
	diag.Success = err == nil
	outcome := "ok"
	if err != nil {
		diag.Error = err.Error()
		outcome = string(apperror.GetCode(err))
		o.log.Warn(ctx, "quote failed", diag.KeyValues()...)
	} else {
		o.log.Info(ctx, "quote computed", diag.KeyValues()...)
	}
	o.instruments.Quote(ctx, outcome, diag.Duration)
	if o.observe != nil {
		o.observe(req, res, diag)
	}
	return res, err
}

func (o *Orchestrator) quote(ctx context.Context, req *domain.Request, diag *domain.Diagnostics) (*domain.Result, error) {
	if err := o.validate(req); err != nil {
		return nil, err
	}
	if o.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.RequestTimeout)
		defer cancel()
	}

	stable := o.assets.MustGet(asset.Stable)
	prices := o.fetchPrices(ctx, req.Src, req.Dst, stable)
	for id, p := range prices {
		diag.Prices[id] = p.USD()
	}

	env, err := o.pools.Environment(ctx)
	if err != nil {
		return nil, liquidityError(err)
	}

	brokerFee, swapInput := brokerSplit(req.Src, req.Amount, req.BrokerCommissionBps)
	if swapInput.Sign() <= 0 {
		return nil, apperror.Validation(apperror.CodeInvalidAmount, "amount does not cover the broker commission")
	}

	s := &quoteState{
		req:        req,
		stable:     stable,
		env:        env,
		prices:     prices,
		networkFee: env.NetworkFeeHundredthPips,
		brokerFee:  brokerFee,
		swapInput:  swapInput,
	}
	if s.networkFee == 0 {
		s.networkFee = o.cfg.NetworkFeeHundredthPips
	}

	var (
		g          errgroup.Group
		regular    *domain.Quote
		regularErr error
		dca        *domain.Quote
		dcaErr     error
	)
	g.Go(func() error {
		regular, regularErr = o.regular(ctx, s, diag)
		return nil
	})
	if req.DCAEnabled {
		g.Go(func() error {
			dca, dcaErr = o.dca(ctx, s)
			return nil
		})
	}
	_ = g.Wait()

	if regularErr != nil {
		return nil, regularErr
	}
	if dcaErr != nil {
		diag.DCAError = dcaErr.Error()
	}
	return &domain.Result{Regular: regular, DCA: dca}, nil
}

// quoteState is the per-request data shared by the regular and DCA paths.
type quoteState struct {
	req        *domain.Request
	stable     *asset.Asset
	env        *scdomain.Environment
	prices     map[asset.InternalAsset]asset.USDPrice
	networkFee uint32
	brokerFee  *big.Int
	swapInput  *big.Int
}

func (o *Orchestrator) validate(req *domain.Request) error {
	switch {
	case req.Src == nil || req.Dst == nil:
		return apperror.Validation(apperror.CodeInvalidAsset, "unknown asset")
	case req.Src.ID() == req.Dst.ID():
		return apperror.Validation(apperror.CodeInvalidAsset, "source and destination are the same asset")
	case req.Amount == nil || req.Amount.Sign() <= 0:
		return apperror.Validation(apperror.CodeInvalidAmount, "amount must be positive")
	case req.BrokerCommissionBps > o.cfg.MaxBrokerCommissionBps:
		return apperror.Validation(apperror.CodeInvalidInput, "broker commission too high")
	}
	return nil
}

// fetchPrices loads index prices concurrently. Missing prices only disable
// the features that need them.
func (o *Orchestrator) fetchPrices(ctx context.Context, assets ...*asset.Asset) map[asset.InternalAsset]asset.USDPrice {
	var (
		mu  sync.Mutex
		g   errgroup.Group
		out = make(map[asset.InternalAsset]asset.USDPrice, len(assets))
	)
	for _, a := range assets {
		g.Go(func() error {
			p, err := o.prices.USDPrice(ctx, a)
			if err != nil || p.IsZero() {
				o.log.Warn(ctx, "index price unavailable", "asset", a.ID(), "error", err)
				return nil
			}
			mu.Lock()
			out[a.ID()] = p
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// regular simulates the swap against the pools while market makers are
// asked for orders, then re-simulates with their orders and keeps the
// better output.
func (o *Orchestrator) regular(ctx context.Context, s *quoteState, diag *domain.Diagnostics) (*domain.Quote, error) {
	simulation := scdomain.SwapRateRequest{
		From:   s.req.Src.ChainAsset(),
		To:     s.req.Dst.ChainAsset(),
		Amount: s.swapInput,
	}

	var (
		g       errgroup.Group
		pool    *scdomain.SwapRate
		poolErr error
		orders  []mmdomain.Order
	)
	g.Go(func() error {
		pool, poolErr = o.pools.SwapRate(ctx, simulation)
		return nil
	})
	if legs := o.legs(s); o.mms != nil && len(legs) > 0 {
		g.Go(func() error {
			var err error
			orders, err = o.mms.Request(ctx, legs...)
			if err != nil {
				o.log.Warn(ctx, "market maker round failed", "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	diag.RFQOrders = len(orders)
	var best *scdomain.SwapRate
	if poolErr == nil && pool.Output != nil && pool.Output.Sign() > 0 {
		best = pool
	}
	if poolErr != nil {
		diag.PoolFailure = poolErr.Error()
	}

	used := 0
	if len(orders) > 0 {
		withOrders := simulation
		withOrders.AdditionalOrders = o.limitOrders(orders, s.stable)
		rate, err := o.pools.SwapRate(ctx, withOrders)
		switch {
		case err != nil:
			o.log.Warn(ctx, "simulation with market maker orders failed", "error", err)
		case rate.Output != nil && (best == nil || rate.Output.Cmp(best.Output) > 0):
			best = rate
			used = len(orders)
			diag.UsedRFQ = true
		}
	}

	if best == nil {
		if poolErr != nil {
			return nil, liquidityError(poolErr)
		}
		return nil, apperror.New(apperror.CodeInsufficientLiquidity, apperror.WithContext("no pool route and no market maker orders"))
	}

	q := o.build(domain.QuoteRegular, s, best)
	q.MarketMakerOrders = used
	return q, nil
}

// dca prices the chunked alternative. A nil quote with a nil error means
// the swap is not worth chunking.
func (o *Orchestrator) dca(ctx context.Context, s *quoteState) (*domain.Quote, error) {
	price, ok := s.prices[s.req.Src.ID()]
	if !ok {
		return nil, apperror.New(apperror.CodePriceUnavailable, apperror.WithContext(string(s.req.Src.ID())))
	}
	notional, err := price.Notional(asset.NewAmount(s.req.Src, s.swapInput))
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeDCAUnavailable, "notional")
	}

	plan := o.sizer.Plan(s.req.Src.ID(), s.req.Dst.ID(), s.swapInput, notional)
	if plan == nil {
		return nil, nil
	}

	rate, err := o.pools.SwapRate(ctx, scdomain.SwapRateRequest{
		From:   s.req.Src.ChainAsset(),
		To:     s.req.Dst.ChainAsset(),
		Amount: s.swapInput,
		DCA: &scdomain.DCAParams{
			NumberOfChunks:      uint32(plan.NumberOfChunks),
			ChunkIntervalBlocks: plan.ChunkIntervalBlocks,
		},
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeDCAUnavailable, apperror.WithCause(err), apperror.WithContext(err.Error()))
	}
	if rate.Output == nil || rate.Output.Sign() <= 0 {
		return nil, apperror.New(apperror.CodeDCAUnavailable, apperror.WithContext("zero output"))
	}

	q := o.build(domain.QuoteDCA, s, rate)
	q.DCA = plan
	q.EstimatedDuration += plan.AdditionalDuration
	return q, nil
}

// legs builds one leg per non-stable side of the request. The buy leg of
// a routed swap is sized from index prices and is skipped without them.
func (o *Orchestrator) legs(s *quoteState) []*mmdomain.Leg {
	var legs []*mmdomain.Leg
	if !s.req.Src.IsStable() {
		if leg, err := mmdomain.NewLeg(s.req.Src.ID(), asset.Stable, s.swapInput); err == nil && leg != nil {
			legs = append(legs, leg)
		}
	}
	if !s.req.Dst.IsStable() {
		stableIn := s.swapInput
		if !s.req.Src.IsStable() {
			stableIn = o.estimateStable(s)
		}
		if leg, err := mmdomain.NewLeg(asset.Stable, s.req.Dst.ID(), stableIn); err == nil && leg != nil {
			legs = append(legs, leg)
		}
	}
	return legs
}

func (o *Orchestrator) estimateStable(s *quoteState) *big.Int {
	src, ok := s.prices[s.req.Src.ID()]
	if !ok {
		return nil
	}
	stable, ok := s.prices[s.stable.ID()]
	if !ok {
		return nil
	}
	usd, err := src.Notional(asset.NewAmount(s.req.Src, s.swapInput))
	if err != nil {
		return nil
	}
	amount, err := stable.ToAmount(usd)
	if err != nil || amount.IsZero() {
		return nil
	}
	return amount.Raw()
}

// limitOrders converts market maker orders to pool orders. A market maker
// filling a SELL leg buys the base asset, and sells it on a BUY leg.
func (o *Orchestrator) limitOrders(orders []mmdomain.Order, stable *asset.Asset) []scdomain.LimitOrder {
	out := make([]scdomain.LimitOrder, 0, len(orders))
	for _, ord := range orders {
		base, ok := o.assets.Get(ord.Base)
		if !ok {
			continue
		}
		side := scdomain.OrderSideSell
		if ord.Side == mmdomain.SideSell {
			side = scdomain.OrderSideBuy
		}
		out = append(out, scdomain.LimitOrder{
			Base:       base.ChainAsset(),
			Quote:      stable.ChainAsset(),
			Side:       side,
			Tick:       ord.Tick,
			SellAmount: ord.Amount,
		})
	}
	return out
}

func (o *Orchestrator) build(t domain.QuoteType, s *quoteState, rate *scdomain.SwapRate) *domain.Quote {
	return &domain.Quote{
		Type:                t,
		Src:                 s.req.Src,
		Dst:                 s.req.Dst,
		Input:               s.req.Amount,
		Intermediate:        rate.Intermediary,
		Output:              rate.Output,
		Fees:                feeBreakdown(s.req, s.stable, s.env, s.networkFee, s.brokerFee, s.swapInput, rate),
		SlippagePercent:     o.slippage(s.req.Src.ID(), s.req.Dst.ID()),
		EstimatedDuration:   o.duration(s.req),
		LowLiquidityWarning: o.lowLiquidity(s, rate.Output),
	}
}

// duration estimates deposit, one state chain block for the swap, and
// egress. On-chain swaps skip both external legs.
func (o *Orchestrator) duration(req *domain.Request) time.Duration {
	d := asset.StateChainBlockTime
	if req.IsOnChain {
		return d
	}
	if c, ok := o.assets.Chain(req.Src.Chain()); ok {
		d += c.DepositDuration()
	}
	if c, ok := o.assets.Chain(req.Dst.Chain()); ok {
		d += c.EgressDuration()
	}
	return d
}

// lowLiquidity reports whether output is worth less than the input at
// index prices by more than the configured percentage.
func (o *Orchestrator) lowLiquidity(s *quoteState, output *big.Int) bool {
	src, ok := s.prices[s.req.Src.ID()]
	if !ok {
		return false
	}
	dst, ok := s.prices[s.req.Dst.ID()]
	if !ok {
		return false
	}
	in, err := src.Notional(asset.NewAmount(s.req.Src, s.req.Amount))
	if err != nil || !in.IsPositive() {
		return false
	}
	out, err := dst.Notional(asset.NewAmount(s.req.Dst, output))
	if err != nil {
		return false
	}
	loss := in.Sub(out).Div(in).Mul(decimal.NewFromInt(100))
	return loss.GreaterThan(o.cfg.LiquidityWarningPercent)
}

// liquidityError hides node error details behind insufficient liquidity.
// Transport failures and validation errors pass through.
func liquidityError(err error) error {
	switch apperror.GetCode(err) {
	case apperror.CodeStateChainRPCError:
		return apperror.New(apperror.CodeInsufficientLiquidity, apperror.WithCause(err))
	case apperror.CodeStateChainConnectionFailed, apperror.CodeCircuitOpen,
		apperror.CodeUnsupportedRuntime, apperror.CodeInvalidAmount:
		return err
	}
	return apperror.New(apperror.CodeInsufficientLiquidity, apperror.WithCause(err))
}
