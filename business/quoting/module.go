// Package quoting implements the quote context: the orchestrator that
// combines pool simulation, market maker orders and DCA sizing, and the
// public HTTP API in front of it.
package quoting

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	admissionDI "github.com/fd1az/swap-quoter/business/admission/di"
	mmDI "github.com/fd1az/swap-quoter/business/marketmaker/di"
	"github.com/fd1az/swap-quoter/business/quoting/app"
	quotingDI "github.com/fd1az/swap-quoter/business/quoting/di"
	"github.com/fd1az/swap-quoter/business/quoting/domain"
	"github.com/fd1az/swap-quoter/business/quoting/infra/httpapi"
	"github.com/fd1az/swap-quoter/business/quoting/infra/prices"
	statechainDI "github.com/fd1az/swap-quoter/business/statechain/di"
	"github.com/fd1az/swap-quoter/internal/asset"
	"github.com/fd1az/swap-quoter/internal/config"
	"github.com/fd1az/swap-quoter/internal/di"
	"github.com/fd1az/swap-quoter/internal/logger"
	"github.com/fd1az/swap-quoter/internal/metrics"
	"github.com/fd1az/swap-quoter/internal/monolith"
	"github.com/fd1az/swap-quoter/pkg/ui"
)

// Module implements the quoting bounded context. It depends on the state
// chain, admission and market maker modules.
type Module struct{}

// RegisterServices registers all quoting services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, quotingDI.Prices, func(sr di.ServiceRegistry) *prices.Client {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		client, err := prices.NewClient(prices.Config{
			BaseURL: cfg.Prices.BaseURL,
			TTL:     cfg.Prices.TTL,
			Timeout: cfg.Prices.Timeout,
		}, sr.Get("assetRegistry").(*asset.Registry), log)
		if err != nil {
			panic("failed to create price client: " + err.Error())
		}
		return client
	})

	di.RegisterToken(c, quotingDI.Orchestrator, func(sr di.ServiceRegistry) *app.Orchestrator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		instruments := sr.Get("instruments").(*metrics.Instruments)

		opts := []app.Option{app.WithMarketMakers(mmDI.GetExchange(sr))}
		if cfg.App.TUIMode {
			opts = append(opts, app.WithObserver(func(req *domain.Request, res *domain.Result, d *domain.Diagnostics) {
				ui.Send(quoteMsg(d, res))
			}))
		}

		return app.NewOrchestrator(app.Config{
			RequestTimeout:          cfg.Quoting.RequestTimeout,
			NetworkFeeHundredthPips: cfg.Quoting.NetworkFeeHundredthPips,
			MaxBrokerCommissionBps:  cfg.Quoting.MaxBrokerCommissionBps,
			LiquidityWarningPercent: cfg.Quoting.LiquidityWarningThresholdDecimal(),
		},
			statechainDI.GetStateChain(sr),
			quotingDI.GetPrices(sr),
			app.NewChunkSizer(cfg.Quoting.DCA),
			cfg.Quoting.Slippage,
			sr.Get("assetRegistry").(*asset.Registry),
			log, instruments, opts...)
	})

	di.RegisterToken(c, quotingDI.Router, func(sr di.ServiceRegistry) *gin.Engine {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		gin.SetMode(gin.ReleaseMode)
		r, err := httpapi.NewRouter(httpapi.RouterConfig{
			ServiceName:     cfg.Telemetry.ServiceName,
			TrustedProxies:  cfg.Server.TrustedProxies,
			Admission:       admissionDI.GetMiddleware(sr),
			MarketMakerPath: cfg.MarketMaker.Path,
			MarketMakers:    mmDI.GetHandler(sr),
		}, httpapi.NewQuoteHandler(quotingDI.GetOrchestrator(sr), sr.Get("assetRegistry").(*asset.Registry), log))
		if err != nil {
			panic("failed to build quote router: " + err.Error())
		}
		return r
	})

	return nil
}

// Startup serves the HTTP API until ctx ends.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config().Server
	log := mono.Logger()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           quotingDI.GetRouter(mono.Services()),
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "quote server stopped", "error", err)
			ui.Send(ui.ErrorMsg{Error: err})
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn(shutdownCtx, "quote server shutdown", "error", err)
		}
		quotingDI.GetPrices(mono.Services()).Close()
	}()

	log.Info(ctx, "quoting module started", "addr", cfg.Addr, "path", httpapi.QuotePath)
	ui.Send(ui.StartupMsg{Component: "quote api", Detail: cfg.Addr})
	return nil
}

func quoteMsg(d *domain.Diagnostics, res *domain.Result) ui.QuoteMsg {
	msg := ui.QuoteMsg{
		Src:      string(d.Src),
		Dst:      string(d.Dst),
		Amount:   d.Amount,
		Duration: d.Duration,
		UsedRFQ:  d.UsedRFQ,
		Error:    d.Error,
		At:       time.Now(),
	}
	if res != nil && res.Regular != nil {
		msg.Output = res.Regular.Output.String()
		msg.LowLiquidity = res.Regular.LowLiquidityWarning
		msg.DCA = res.DCA != nil
	}
	return msg
}
