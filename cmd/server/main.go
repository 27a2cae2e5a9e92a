package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/catalogconsole/internal/cache"
	"github.com/JonMunkholm/catalogconsole/internal/config"
	"github.com/JonMunkholm/catalogconsole/internal/logging"
	"github.com/JonMunkholm/catalogconsole/internal/remote"
	"github.com/JonMunkholm/catalogconsole/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"catalog", cfg.Catalog.BaseURL,
		"page_size", cfg.Console.PageSize,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	client, err := remote.New(remote.Options{
		BaseURL: cfg.Catalog.BaseURL,
		Timeout: cfg.Catalog.Timeout,
		Limiter: remote.NewLimiter(cfg.Catalog.MaxConcurrent, cfg.Catalog.MaxWait),
	})
	if err != nil {
		slog.Error("failed to create catalog client", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Verify the catalog answers; the console still starts when it does not.
	if err := client.Ping(ctx); err != nil {
		slog.Warn("catalog API not reachable at startup", "url", client.BaseURL(), "error", err)
	}

	// Category cache: Redis when configured, otherwise in process
	var store cache.Store = cache.NewMemoryStore()
	if cfg.Cache.RedisURL != "" {
		rs, err := cache.NewRedisStore(ctx, cfg.Cache.RedisURL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rs.Close()
		store = rs
		slog.Info("category cache using redis")
	}
	catalog := cache.NewCatalog(client, store, cfg.Cache.TTL)

	server := web.NewServer(cfg, catalog, client)

	// Graceful shutdown; main waits for it once Start returns.
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		gracefulShutdown(shutdownCtx, server, client)
	}()

	// Start server (uses addr from config internally)
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-stopped
	slog.Info("server stopped")
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

type drainer interface {
	Drain(ctx context.Context) error
}

// gracefulShutdown stops accepting requests, then waits for catalog requests
// that outlived theirs (saves run to completion) until ctx expires.
func gracefulShutdown(ctx context.Context, srv shutdowner, catalog drainer) {
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	if err := catalog.Drain(ctx); err != nil {
		slog.Warn("catalog requests did not complete in time", "error", err)
	}
}
