package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"homescope/server/config"
	"homescope/server/internal/app"
	"homescope/server/internal/cli"
	"homescope/server/internal/comparables"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open property store")
	}
	defer store.Close()

	market, err := config.NewMarketStore(cfg.Comparables.MarketAssumptionsFile, cfg.Comparables.BaseRatePerSqft, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load market assumptions")
	}

	cli.SetServices(&cli.Services{
		Store:  store,
		Engine: comparables.NewEngine(store, logger, nil),
		Config: cfg,
		Market: market,
	})

	if err := cli.Execute(ctx); err != nil {
		store.Close()
		os.Exit(1)
	}
}
