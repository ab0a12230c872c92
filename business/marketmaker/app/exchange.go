package app

import (
	"context"
	"math/big"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fd1az/swap-quoter/business/marketmaker/domain"
	"github.com/fd1az/swap-quoter/internal/apm"
	"github.com/fd1az/swap-quoter/internal/asset"
	"github.com/fd1az/swap-quoter/internal/logger"
	"github.com/fd1az/swap-quoter/internal/metrics"
)

// ExchangeConfig controls who is asked and how answers are adjusted.
type ExchangeConfig struct {
	QuoteTimeout     time.Duration
	BetaEnabled      bool
	MevFactorEnabled bool
}

// Exchange runs request-for-quote rounds against the connected market
// makers.
type Exchange struct {
	cfg         ExchangeConfig
	registry    *Registry
	assets      *asset.Registry
	balances    BalanceReader
	pending     *pendingTable
	log         logger.LoggerInterface
	instruments *metrics.Instruments
	tracer      *apm.Tracer
}

// NewExchange creates an Exchange.
func NewExchange(cfg ExchangeConfig, registry *Registry, assets *asset.Registry, balances BalanceReader, log logger.LoggerInterface, instruments *metrics.Instruments) *Exchange {
	if instruments == nil {
		instruments = metrics.NewNoopInstruments()
	}
	return &Exchange{
		cfg:         cfg,
		registry:    registry,
		assets:      assets,
		balances:    balances,
		pending:     newPendingTable(),
		log:         log,
		instruments: instruments,
		tracer:      apm.NewTracer("github.com/fd1az/swap-quoter/business/marketmaker"),
	}
}

// Request asks every eligible session to quote legs and returns the
// adjusted, balance-capped orders received before the quote timeout.
// Nil legs are ignored. No eligible session is not an error.
func (e *Exchange) Request(ctx context.Context, legs ...*domain.Leg) ([]domain.Order, error) {
	legs = compact(legs)
	if len(legs) == 0 {
		return nil, nil
	}

	bases := make([]*asset.Asset, len(legs))
	wire := make([]domain.WireLeg, len(legs))
	for i, leg := range legs {
		base, ok := e.assets.Get(leg.Base())
		if !ok {
			return nil, nil
		}
		bases[i] = base
		wire[i] = domain.WireLeg{
			BaseAsset:  base.ChainAsset(),
			QuoteAsset: e.assets.MustGet(leg.Quote()).ChainAsset(),
			Side:       leg.Side(),
			Amount:     leg.Amount().String(),
		}
	}

	peers := e.registry.eligible(bases, e.cfg.BetaEnabled)
	if len(peers) == 0 {
		return nil, nil
	}

	id := uuid.NewString()
	ctx, span := e.tracer.Start(ctx, "marketmaker.rfq",
		attribute.String("request_id", id),
		attribute.Int("legs", len(legs)),
		attribute.Int("asked", len(peers)),
	)
	defer span.End()

	env, err := domain.NewEnvelope(domain.TypeQuoteRequest, domain.QuoteRequest{RequestID: id, Legs: wire})
	if err != nil {
		return nil, err
	}

	sessions := make([]*domain.Session, len(peers))
	for i, p := range peers {
		sessions[i] = p.session
	}
	req := e.pending.open(id, legs, sessions, e.cfg.QuoteTimeout)

	for _, p := range peers {
		go func(p peer) {
			if err := p.conn.Send(ctx, env); err != nil {
				e.log.Warn(ctx, "quote request not delivered",
					"account_id", p.session.AccountID, "request_id", id, "error", err)
				e.instruments.RFQResponse(ctx, "send_failed")
				e.pending.withdraw(id, p.session.AccountID)
			}
		}(p)
	}

	select {
	case <-req.done:
	case <-ctx.Done():
		e.pending.finish(id)
		span.Fail(ctx.Err())
		return nil, ctx.Err()
	}
	span.Set(attribute.Int("answered", req.answered), attribute.Int("orders", len(req.orders)))
	for range req.sessions {
		e.instruments.RFQResponse(ctx, "timeout")
	}

	e.log.Debug(ctx, "quote round finished",
		"request_id", id, "asked", len(peers), "answered", req.answered, "orders", len(req.orders))
	if len(req.orders) == 0 {
		return nil, nil
	}

	orders := req.orders
	if e.cfg.MevFactorEnabled {
		bySession := make(map[string]*domain.Session, len(peers))
		for _, p := range peers {
			bySession[p.session.AccountID] = p.session
		}
		for i, o := range orders {
			orders[i] = o.ShiftTick(bySession[o.AccountID].MevFactor(o.Base))
		}
	}
	return e.capByBalance(ctx, orders)
}

// capByBalance limits each order to what the market maker can still pay
// out of its free balance, consuming the balance in order. Orders left
// with nothing are dropped.
func (e *Exchange) capByBalance(ctx context.Context, orders []domain.Order) ([]domain.Order, error) {
	balances, err := e.balances.Balances(ctx)
	if err != nil {
		return nil, err
	}

	type key struct {
		account string
		asset   asset.InternalAsset
	}
	remaining := make(map[key]*big.Int)

	out := orders[:0]
	for _, o := range orders {
		k := key{o.AccountID, o.Sells()}
		left, ok := remaining[k]
		if !ok {
			left = new(big.Int).Set(balances.Get(o.AccountID, k.asset))
			remaining[k] = left
		}
		if left.Sign() <= 0 {
			continue
		}
		if o.Amount.Cmp(left) > 0 {
			o.Amount = new(big.Int).Set(left)
		}
		left.Sub(left, o.Amount)
		out = append(out, o)
	}
	return out, nil
}

// HandleResponse routes a market maker's quote response to its request.
func (e *Exchange) HandleResponse(ctx context.Context, accountID string, resp *domain.QuoteResponse) error {
	if err := e.pending.deliver(resp.RequestID, accountID, resp); err != nil {
		e.instruments.RFQResponse(ctx, "rejected")
		return err
	}
	e.instruments.RFQResponse(ctx, "ok")
	return nil
}

// Pending returns the number of open quote rounds.
func (e *Exchange) Pending() int {
	return e.pending.len()
}

func compact(legs []*domain.Leg) []*domain.Leg {
	out := make([]*domain.Leg, 0, len(legs))
	for _, l := range legs {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}
