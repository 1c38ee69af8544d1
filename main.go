package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"mlserve/config"
	"mlserve/db"
	mhttp "mlserve/http"
	"mlserve/logging"
	"mlserve/ml"
	"mlserve/monitoring"
	"mlserve/serving"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Logger
	logger, level, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := os.Stat(*configPath); err == nil {
		if err := config.Watch(ctx, *configPath, level, logger); err != nil {
			logger.Warn("config watch disabled", zap.Error(err))
		}
	}

	// 3. Storage
	gateway, err := cfg.OpenGateway(ctx, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
	}

	// 4. Cache, journal, metrics
	var cache *serving.ModelCache
	metrics := monitoring.NewMetrics(func() int { return cache.Stats().Loaded })
	opts := []serving.CacheOption{
		serving.WithLogger(logger),
		serving.WithLoadTimeout(cfg.Serving.LoadTimeout),
		serving.WithRecorder(metrics),
	}
	apiOpts := []mhttp.APIOption{mhttp.WithMetrics(metrics)}
	if cfg.Journal.Path != "" {
		journal, err := db.Open(cfg.Journal.Path)
		if err != nil {
			logger.Fatal("failed to open load journal", zap.String("path", cfg.Journal.Path), zap.Error(err))
		}
		defer journal.Close()
		opts = append(opts, serving.WithRecorder(journal))
		apiOpts = append(apiOpts, mhttp.WithLoadHistory(journal))
		logger.Info("load journal enabled", zap.String("path", cfg.Journal.Path))
	}

	registry := ml.NewDefaultRegistry()
	cache = serving.NewModelCache(gateway, registry, opts...)
	service := serving.NewPredictionService(cache, logger)
	logger.Info("adapters registered", zap.Strings("adapters", registry.Adapters()))

	// 5. HTTP server
	server := mhttp.NewServer(mhttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		MaxBodyBytes:   cfg.Http.MaxBodyBytes,
		AllowedOrigins: cfg.Http.AllowedOrigins,
	}, mhttp.NewAPI(service, logger, apiOpts...), logger)

	errc := make(chan error, 1)
	go func() {
		errc <- server.Start()
	}()

	// 6. Graceful shutdown
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errc:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("exiting")
}
