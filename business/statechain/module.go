// Package statechain implements the state chain bounded context: pool
// simulation, fee environment and market maker balances read from the node.
package statechain

import (
	"context"

	"github.com/fd1az/swap-quoter/business/statechain/app"
	statechainDI "github.com/fd1az/swap-quoter/business/statechain/di"
	"github.com/fd1az/swap-quoter/business/statechain/infra/rpc"
	"github.com/fd1az/swap-quoter/internal/asset"
	"github.com/fd1az/swap-quoter/internal/config"
	"github.com/fd1az/swap-quoter/internal/di"
	"github.com/fd1az/swap-quoter/internal/logger"
	"github.com/fd1az/swap-quoter/internal/monolith"
	"github.com/fd1az/swap-quoter/pkg/ui"
)

// Module implements the state chain bounded context.
type Module struct{}

// RegisterServices registers the node client with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, statechainDI.StateChain, func(sr di.ServiceRegistry) app.StateChain {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		client, err := rpc.New(context.Background(), rpc.Config{
			URL:            cfg.StateChain.RPCURL,
			RequestTimeout: cfg.StateChain.RequestTimeout,
			EnvironmentTTL: cfg.StateChain.EnvironmentTTL,
			RuntimeTTL:     cfg.StateChain.RuntimeTTL,
		}, registry, log)
		if err != nil {
			panic("failed to create state chain client: " + err.Error())
		}
		return client
	})

	return nil
}

// Startup resolves the runtime version once so a misconfigured node shows
// up in the logs at boot. It never fails startup. The node connection is
// closed when ctx ends.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	sc := statechainDI.GetStateChain(mono.Services())

	v, err := sc.RuntimeVersion(ctx)
	if err != nil {
		log.Error(ctx, "state chain unreachable at startup", "error", err)
		ui.Send(ui.ErrorMsg{Error: err})
		ui.Send(ui.StartupMsg{Component: "state chain", Detail: "unreachable"})
	} else {
		log.Info(ctx, "state chain module started", "runtime", v.String())
		ui.Send(ui.StartupMsg{Component: "state chain", Detail: "runtime " + v.String()})
	}

	mono.Health().RegisterCheck("statechain", func(ctx context.Context) (bool, string) {
		v, err := sc.RuntimeVersion(ctx)
		if err != nil {
			return false, err.Error()
		}
		return true, "runtime " + v.String()
	})
	monolith.OnShutdown(ctx, sc.Close)
	return nil
}
