// Package balances implements the market maker balance tracking context.
package balances

import (
	"context"

	"github.com/fd1az/swap-quoter/business/balances/app"
	balancesDI "github.com/fd1az/swap-quoter/business/balances/di"
	statechainDI "github.com/fd1az/swap-quoter/business/statechain/di"
	"github.com/fd1az/swap-quoter/internal/config"
	"github.com/fd1az/swap-quoter/internal/di"
	"github.com/fd1az/swap-quoter/internal/logger"
	"github.com/fd1az/swap-quoter/internal/metrics"
	"github.com/fd1az/swap-quoter/internal/monolith"
)

// Module implements the balances bounded context.
type Module struct{}

// RegisterServices registers the tracker. It depends on the state chain module.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, balancesDI.Tracker, func(sr di.ServiceRegistry) *app.Tracker {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		instruments := sr.Get("instruments").(*metrics.Instruments)

		return app.NewTracker(statechainDI.GetStateChain(sr), app.Config{
			Attempts:  cfg.StateChain.BalanceAttempts,
			Freshness: cfg.StateChain.BalanceFreshness,
		}, log, instruments)
	})
	return nil
}

// Startup only resolves the tracker; accounts arrive with market makers.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	balancesDI.GetTracker(mono.Services())
	mono.Logger().Info(ctx, "balances module started")
	return nil
}
