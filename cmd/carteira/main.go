package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"carteira/internal/amqp"
	"carteira/internal/cache"
	"carteira/internal/cli"
	apphttp "carteira/internal/http"
	"carteira/internal/log"
	"carteira/internal/services"
)

func main() {
	cfg, logger := cli.MustLoad()
	logger.Info("Starting carteira server", log.FieldOperation, log.OpStartup, "backend", cfg.DataBackend)

	be, err := cli.InitBackend(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize data backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer be.Close()

	// Events are optional: without a broker the API still serves every request.
	var events services.EventPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, transaction events disabled", log.FieldError, err)
		} else {
			events = amqpClient
			defer amqpClient.Close()
		}
	}

	loc := cli.Location(cfg, logger)
	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		CORSOrigins:        cfg.CORSOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		JWTSecret:          cfg.JWTSecret,
	}, apphttp.Services{
		Transactions: services.NewTransactionService(be.Transactions, be.Categories, events, logger),
		Categories:   services.NewCategoryService(be.Categories, logger),
		Reports:      services.NewReportService(be.Transactions, loc, logger),
	}, logger)

	cacheManager := cache.NewManager(logger.WithComponent(log.ComponentCache))
	for _, c := range be.Caches {
		cacheManager.Register(c)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})
	go cacheManager.Run(ctx, 10*time.Minute)

	if cfg.JWTSecret == "" {
		logger.Warn("AUTH_JWT_SECRET is empty, requests run as the anonymous user")
	}
	logger.Info("Listening", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
