package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fd1az/swap-quoter/business/admission"
	"github.com/fd1az/swap-quoter/business/balances"
	"github.com/fd1az/swap-quoter/business/marketmaker"
	"github.com/fd1az/swap-quoter/business/quoting"
	"github.com/fd1az/swap-quoter/business/statechain"
	"github.com/fd1az/swap-quoter/internal/apm"
	"github.com/fd1az/swap-quoter/internal/config"
	"github.com/fd1az/swap-quoter/internal/health"
	"github.com/fd1az/swap-quoter/internal/logger"
	"github.com/fd1az/swap-quoter/internal/metrics"
	"github.com/fd1az/swap-quoter/internal/monolith"
	"github.com/fd1az/swap-quoter/pkg/ui"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the quote API and the market maker endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			tuiMode, _ := cmd.Flags().GetBool("tui")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, configPath, tuiMode)
		},
	}
	cmd.Flags().Bool("tui", false, "show the operator dashboard instead of logs")
	return cmd
}

func serve(ctx context.Context, configPath string, tuiMode bool) error {
	cfg, err := config.Load(configPath, config.WithTUIMode(tuiMode))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var out io.Writer = os.Stderr
	if cfg.App.TUIMode {
		// In TUI mode, suppress logs (discard output)
		out = io.Discard
	}
	log := logger.New(out, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	defer log.Sync()

	log.Info(ctx, "starting swap quoter",
		"version", version,
		"environment", cfg.App.Environment,
	)

	traceProvider, err := apm.NewTraceProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer traceProvider.Stop()

	meterProvider, err := metrics.NewMetricProvider(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to init metrics: %w", err)
	}
	defer meterProvider.Shutdown(context.WithoutCancel(ctx))

	instruments, err := metrics.NewInstruments(meterProvider)
	if err != nil {
		return fmt.Errorf("failed to register instruments: %w", err)
	}

	promServer := metrics.NewPrometheusServer(cfg.Telemetry.PrometheusPort)
	go func() {
		if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(ctx, "prometheus server stopped", "error", err)
		}
	}()
	defer promServer.Close()
	log.Info(ctx, "prometheus metrics server started", "port", cfg.Telemetry.PrometheusPort)

	healthServer := health.NewServer(cfg.Server.HealthPort, version, log)
	healthServer.Start()
	defer healthServer.Stop(context.WithoutCancel(ctx))

	mono, err := monolith.New(ctx, cfg, log, instruments, healthServer)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	err = mono.Register(
		&statechain.Module{},
		&balances.Module{},    // reads balances through the state chain
		&admission.Module{},   // needs the database
		&marketmaker.Module{}, // depends on balances
		&quoting.Module{},     // depends on all of the above; serves HTTP
	)
	if err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	if cfg.App.TUIMode {
		return runTUI(ctx, func() error { return mono.Start(ctx) })
	}

	if err := mono.Start(ctx); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}
	log.Info(ctx, "all modules started", "addr", cfg.Server.Addr)

	<-ctx.Done()
	log.Info(ctx, "shutting down")
	return nil
}

// runTUI shows the dashboard immediately and starts the modules once the
// welcome screen is dismissed.
func runTUI(ctx context.Context, start func() error) error {
	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	p := tea.NewProgram(ui.New(), tea.WithAltScreen(), tea.WithContext(ctx))
	ui.Program = p

	errCh := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		if err := start(); err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- fmt.Errorf("failed to start modules: %w", err)
			return
		}
		errCh <- nil
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
