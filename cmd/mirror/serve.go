package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/mirror/api"
	"github.com/use-agent/mirror/browser"
	"github.com/use-agent/mirror/cache"
	"github.com/use-agent/mirror/config"
	"github.com/use-agent/mirror/metrics"
	"github.com/use-agent/mirror/scraper"
	"github.com/use-agent/mirror/webhook"
)

// shutdownTimeout is how long in-flight requests get to drain.
const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API (POST /crawl, POST /crawl/batch, GET /health)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	slog.Info("mirror starting",
		"version", Version,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"headless", cfg.Browser.Headless,
	)

	// ── 1. Launch browser ──
	rb, err := browser.LaunchRod(cfg.Browser)
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer rb.Close()

	httpBrowser := browser.NewHTTPBrowser()
	defer httpBrowser.Close()

	// ── 2. Metrics ──
	deps := api.Deps{}
	if cfg.Metrics.Enabled {
		reg := metrics.NewRegistry()
		deps.Metrics = metrics.New(reg)
		deps.Gatherer = reg
	}

	// ── 3. Crawler ──
	cr := scraper.New(rb, cfg.Crawler, cfg.Browser)
	cr.SetHTTPBrowser(httpBrowser)
	cr.SetMetrics(deps.Metrics)

	// ── 4. Cache and webhooks ──
	deps.Cache = newCacheStore(cmd.Context(), cfg.Cache)
	defer deps.Cache.Close()
	deps.Notifier = webhook.NewNotifier(cfg.Webhook.Timeout, cfg.Webhook.MaxRetries)

	// ── 5. Start HTTP server ──
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(cr, cfg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// ── 6. Graceful shutdown ──
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig.String())
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully", "inFlight", cr.InFlight())
	}

	// Webhooks may still be sleeping before a retry.
	if pending := deps.Notifier.Pending(); pending > 0 {
		slog.Info("waiting for webhook deliveries", "pending", pending)
		drainCtx, cancelDrain := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelDrain()
		if left := deps.Notifier.Drain(drainCtx); left > 0 {
			slog.Warn("abandoned webhook deliveries", "count", left)
		}
	}

	// Deferred closes kill Chrome and remove its profile directory.
	slog.Info("mirror stopped")
	return nil
}

// newCacheStore picks Redis when configured and reachable, otherwise an
// in-process store.
func newCacheStore(ctx context.Context, cfg config.CacheConfig) cache.Store {
	if cfg.RedisURL != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		store, err := cache.NewRedis(pingCtx, cfg.RedisURL, cfg.KeyPrefix, cfg.TTL)
		if err == nil {
			slog.Info("result cache backed by redis")
			return store
		}
		slog.Warn("redis cache unavailable, falling back to memory", "error", err)
	}
	return cache.NewMemory(cfg.MaxEntries, cfg.TTL)
}
