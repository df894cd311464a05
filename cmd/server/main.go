package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/mcoot/soulpit/internal/api"
	"github.com/mcoot/soulpit/internal/api/middleware"
	"github.com/mcoot/soulpit/internal/factory"
)

// envOptions applies to every configuration struct read at startup
var envOptions = env.Options{Prefix: "SOULPIT_"}

func main() {
	os.Exit(run())
}

func run() int {
	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := factory.LoadConfig()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		return 1
	}
	cfg.Logger = logger

	var serverConfig api.ServerConfig
	var rateLimitConfig middleware.RateLimitConfig
	for _, target := range []any{&serverConfig, &rateLimitConfig} {
		if err := env.ParseWithOptions(target, envOptions); err != nil {
			logger.Error("invalid configuration", slog.String("error", err.Error()))
			return 1
		}
	}

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := factory.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("failed to close application", slog.String("error", err.Error()))
		}
	}()

	limiter := middleware.NewIPRateLimiter(rateLimitConfig)
	go limiter.RunCleanup(ctx, time.Minute)
	go app.HubManager.RunCleanup(ctx, time.Minute)

	router := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		Resolver:    app.Resolver,
		AuthService: app.Auth,
		Characters:  app.Characters,
		Collections: app.Collections,
		Lists:       app.Lists,
		Ledger:      app.Ledger,
		Join:        app.Join,
		Catalog:     app.Catalog,
		HubManager:  app.HubManager,
		RateLimiter: limiter,
	})

	server := api.NewServer(router, serverConfig, logger)
	// event streams never finish on their own
	server.RegisterOnShutdown(app.HubManager.Close)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.StorageType),
		slog.String("lookup", cfg.Lookup),
	)

	// Wait for shutdown or error
	exitCode := 0
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			exitCode = 1
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			exitCode = 1
		}
	}

	logger.Info("server stopped")
	return exitCode
}
