// Package admission implements the admission control context: IP
// blacklisting, per-IP rate limiting and API key exemption.
package admission

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fd1az/swap-quoter/business/admission/app"
	admissionDI "github.com/fd1az/swap-quoter/business/admission/di"
	"github.com/fd1az/swap-quoter/business/admission/domain"
	"github.com/fd1az/swap-quoter/business/admission/infra/httpapi"
	"github.com/fd1az/swap-quoter/business/admission/infra/postgres"
	"github.com/fd1az/swap-quoter/internal/config"
	"github.com/fd1az/swap-quoter/internal/di"
	"github.com/fd1az/swap-quoter/internal/logger"
	"github.com/fd1az/swap-quoter/internal/metrics"
	"github.com/fd1az/swap-quoter/internal/monolith"
	"github.com/fd1az/swap-quoter/internal/ratelimit"
	"github.com/fd1az/swap-quoter/pkg/ui"
)

// Module implements the admission bounded context.
type Module struct{}

// RegisterServices registers all admission services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, admissionDI.Store, func(sr di.ServiceRegistry) *postgres.Store {
		return postgres.NewStore(sr.Get("db").(*pgxpool.Pool))
	})

	di.RegisterToken(c, admissionDI.APIKeyChecker, func(sr di.ServiceRegistry) *app.APIKeyChecker {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewAPIKeyChecker(admissionDI.GetStore(sr), cfg.Admission.RefreshInterval, log)
	})

	di.RegisterToken(c, admissionDI.IPGuard, func(sr di.ServiceRegistry) *app.IPGuard {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		opts := []app.GuardOption{
			app.WithExemption(admissionDI.GetAPIKeyChecker(sr).IsExempt),
		}
		if cfg.Admission.RateLimitEnabled {
			opts = append(opts, app.WithRateLimit(ratelimit.NewFixedWindow(ratelimit.FixedWindowConfig{
				Window:      cfg.Admission.Window,
				MaxRequests: cfg.Admission.MaxRequests,
			})))
		}
		return app.NewIPGuard(admissionDI.GetStore(sr), cfg.Admission.RefreshInterval, log, nil, opts...)
	})

	di.RegisterToken(c, admissionDI.Middleware, func(sr di.ServiceRegistry) gin.HandlerFunc {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		instruments := sr.Get("instruments").(*metrics.Instruments)

		var observe httpapi.RejectionObserver
		if cfg.App.TUIMode {
			observe = func(caller domain.Caller, d domain.Decision) {
				ui.Send(ui.RejectionMsg{IP: caller.IP, Reason: d.Reason(), RetryAfter: d.RetryAfter})
			}
		}
		return httpapi.Admission(admissionDI.GetIPGuard(sr), log, instruments, observe)
	})

	return nil
}

// Startup warms both access lists so the first request does not pay for
// the store round trip, and stops the rate limiter sweep when ctx ends.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	guard := admissionDI.GetIPGuard(mono.Services())
	keys := admissionDI.GetAPIKeyChecker(mono.Services())

	guard.Warm(ctx)
	keys.Warm(ctx)
	monolith.OnShutdown(ctx, guard.Dispose)

	mono.Logger().Info(ctx, "admission module started",
		"rate_limit", mono.Config().Admission.RateLimitEnabled,
		"max_requests", mono.Config().Admission.MaxRequests,
		"window", mono.Config().Admission.Window.String())
	detail := "rate limit off"
	if mono.Config().Admission.RateLimitEnabled {
		detail = strconv.Itoa(mono.Config().Admission.MaxRequests) + " req / " + mono.Config().Admission.Window.String()
	}
	ui.Send(ui.StartupMsg{Component: "admission", Detail: detail})
	return nil
}
