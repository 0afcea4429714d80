package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"homescope/server/config"
	"homescope/server/internal/api"
	"homescope/server/internal/app"
	"homescope/server/internal/comparables"
	"homescope/server/internal/geocoding"
	"homescope/server/internal/metrics"
	"homescope/server/internal/processor"
	"homescope/server/internal/queue"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	level, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.WithError(err).Warn("Invalid LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if level < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
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
	if cfg.Comparables.MarketAssumptionsFile != "" {
		go func() {
			if err := market.Watch(ctx); err != nil {
				logger.WithError(err).Error("Market assumptions watcher stopped")
			}
		}()
	}

	recorder := metrics.New()
	engine := comparables.NewEngine(store, logger, recorder)

	importQueue := queue.NewPropertyQueue(cfg.BatchProcessing.QueueSize, logger)
	importer := processor.NewBatchProcessor(store, importQueue, cfg, logger, recorder)
	importer.Start()

	opts := api.Options{Importer: importer, Market: market}
	if cfg.Geocoding.Enabled {
		opts.Geocoder = geocoding.NewGeocoder(geocoding.Options{
			BaseURL:   cfg.Geocoding.BaseURL,
			UserAgent: cfg.Geocoding.UserAgent,
			CacheDir:  filepath.Join(os.TempDir(), "homescope", "geocode_cache"),
		}, logger)
	}

	handler := api.NewHandler(store, engine, cfg, opts, logger)
	router := api.NewRouter(handler, recorder)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}
	importer.Stop(shutdownCtx)
	logger.Info("Server stopped")
}
