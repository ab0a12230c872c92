// Package marketmaker implements the market maker context: handshake
// authentication, the session registry and request-for-quote rounds.
package marketmaker

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	balancesDI "github.com/fd1az/swap-quoter/business/balances/di"
	"github.com/fd1az/swap-quoter/business/marketmaker/app"
	mmDI "github.com/fd1az/swap-quoter/business/marketmaker/di"
	"github.com/fd1az/swap-quoter/business/marketmaker/domain"
	"github.com/fd1az/swap-quoter/business/marketmaker/infra/postgres"
	"github.com/fd1az/swap-quoter/business/marketmaker/infra/ws"
	"github.com/fd1az/swap-quoter/internal/asset"
	"github.com/fd1az/swap-quoter/internal/config"
	"github.com/fd1az/swap-quoter/internal/di"
	"github.com/fd1az/swap-quoter/internal/logger"
	"github.com/fd1az/swap-quoter/internal/metrics"
	"github.com/fd1az/swap-quoter/internal/monolith"
	"github.com/fd1az/swap-quoter/pkg/ui"
)

// Module implements the market maker bounded context. It depends on the
// balances module.
type Module struct{}

// RegisterServices registers all market maker services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, mmDI.Store, func(sr di.ServiceRegistry) *postgres.Store {
		return postgres.NewStore(sr.Get("db").(*pgxpool.Pool))
	})

	di.RegisterToken(c, mmDI.Authenticator, func(sr di.ServiceRegistry) *app.Authenticator {
		cfg := sr.Get("config").(*config.Config)
		return app.NewAuthenticator(mmDI.GetStore(sr), sr.Get("assetRegistry").(*asset.Registry), cfg.MarketMaker.MaxTimestampSkew)
	})

	di.RegisterToken(c, mmDI.Registry, func(sr di.ServiceRegistry) *app.Registry {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		instruments := sr.Get("instruments").(*metrics.Instruments)

		var observe app.SessionObserver
		if cfg.App.TUIMode {
			observe = func(s *domain.Session, connected bool) {
				ui.Send(ui.SessionMsg{AccountID: s.AccountID, Connected: connected, Beta: s.Beta})
			}
		}
		return app.NewRegistry(balancesDI.GetTracker(sr), log, instruments, observe)
	})

	di.RegisterToken(c, mmDI.Exchange, func(sr di.ServiceRegistry) *app.Exchange {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		instruments := sr.Get("instruments").(*metrics.Instruments)

		return app.NewExchange(app.ExchangeConfig{
			QuoteTimeout:     cfg.MarketMaker.QuoteTimeout,
			BetaEnabled:      cfg.MarketMaker.BetaEnabled,
			MevFactorEnabled: cfg.MarketMaker.MevFactorEnabled,
		}, mmDI.GetRegistry(sr), sr.Get("assetRegistry").(*asset.Registry), balancesDI.GetTracker(sr), log, instruments)
	})

	di.RegisterToken(c, mmDI.Handler, func(sr di.ServiceRegistry) *ws.Handler {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return ws.NewHandler(ws.Config{
			HandshakeTimeout:  cfg.MarketMaker.HandshakeTimeout,
			WriteTimeout:      cfg.MarketMaker.QuoteTimeout,
			MessagesPerSecond: cfg.MarketMaker.MessagesPerSecond,
			MessageBurst:      cfg.MarketMaker.MessageBurst,

			HandshakesPerSecond: cfg.MarketMaker.HandshakesPerSecond,
			HandshakeBurst:      cfg.MarketMaker.HandshakeBurst,
		}, mmDI.GetAuthenticator(sr), mmDI.GetRegistry(sr), mmDI.GetExchange(sr), log)
	})

	return nil
}

// Startup resolves the services and reports the session count as a health
// detail. Zero sessions is healthy: pool quotes still work.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	registry := mmDI.GetRegistry(mono.Services())
	mmDI.GetHandler(mono.Services())

	mono.Health().RegisterCheck("market_makers", func(ctx context.Context) (bool, string) {
		return true, strconv.Itoa(registry.Count()) + " connected"
	})

	mono.Logger().Info(ctx, "marketmaker module started",
		"path", mono.Config().MarketMaker.Path,
		"beta", mono.Config().MarketMaker.BetaEnabled,
		"mev_factor", mono.Config().MarketMaker.MevFactorEnabled)
	ui.Send(ui.StartupMsg{Component: "market makers", Detail: mono.Config().MarketMaker.Path})
	return nil
}
