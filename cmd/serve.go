package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	_ "crescer/docs"
	"crescer/internal/config"
	"crescer/internal/controller"
	"crescer/internal/handler"

	"github.com/gin-gonic/gin"
	"github.com/google/subcommands"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type serveCmd struct {
	envFile string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the HTTP API and the price feeds" }
func (*serveCmd) Usage() string {
	return `crescer serve [-env <file>]

  Starts the API on APP_PORT, refreshing the spot price and exchange rates
  in the background until interrupted.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.envFile, "env", ".env", "Environment file loaded before reading the configuration.")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.Load(c.envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	logger := cfg.Logger()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := a.rates.Start(); err != nil {
		logger.Error("failed to start exchange rate service", "error", err)
		return subcommands.ExitFailure
	}
	defer a.rates.Stop()
	if err := a.livePrices.Start(); err != nil {
		logger.Error("failed to start live price service", "error", err)
		return subcommands.ExitFailure
	}
	defer a.livePrices.Stop()

	ctrl, err := controller.New(
		controller.WithLogger(logger),
		controller.WithAuthService(a.authSvc),
		controller.WithTokens(a.tokens),
		controller.WithLedgerService(a.ledger),
		controller.WithImportService(a.imports),
		controller.WithLivePriceService(a.livePrices),
		controller.WithRates(a.rates),
		controller.WithHistoric(a.historic),
		controller.WithContentService(a.content),
		controller.WithUsers(a.repo),
		controller.WithImportProgress(a.importPubSub),
		controller.WithDisplayCurrency(cfg.DisplayCurrency),
		controller.WithLocation(cfg.Location),
		controller.WithMaxUploadBytes(cfg.MaxUploadBytes),
	)
	if err != nil {
		logger.Error("failed to create controller", "error", err)
		return subcommands.ExitFailure
	}

	r := gin.Default()
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	opts := []handler.Option{
		handler.WithEngine(r),
		handler.WithController(ctrl),
		handler.WithPriceStream(a.pricePubSub),
	}
	if cfg.AdminEnabled {
		opts = append(opts, handler.WithAdmin(cfg.AdminUsername, cfg.AdminPassword))
	}
	h, err := handler.New(opts...)
	if err != nil {
		logger.Error("failed to create handler", "error", err)
		return subcommands.ExitFailure
	}
	if err := h.Setup(); err != nil {
		logger.Error("failed to setup routes", "error", err)
		return subcommands.ExitFailure
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting Crescer", "port", cfg.Port, "display_currency", cfg.DisplayCurrency)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", "error", err)
			return subcommands.ExitFailure
		}
	case <-ctx.Done():
		logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}
	return subcommands.ExitSuccess
}
