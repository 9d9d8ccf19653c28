package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/mkalinowski/storefront-finalizer/internal/config"
	"github.com/mkalinowski/storefront-finalizer/internal/finalizer"
	"github.com/mkalinowski/storefront-finalizer/internal/infrastructure/cartref"
	"github.com/mkalinowski/storefront-finalizer/internal/infrastructure/schedule"
	"github.com/mkalinowski/storefront-finalizer/internal/infrastructure/store"
	"github.com/mkalinowski/storefront-finalizer/internal/interfaces/rest"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting finalizer service",
		"port", cfg.Server.Port,
		"store_url", cfg.Store.BaseURL,
		"log_level", cfg.Logger.Level,
	)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(ctx).Err(); err != nil {
		cancel()
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	cancel()

	refs := cartref.NewRedisStore(rdb)
	storeClient := store.NewClient(cfg.Store)
	sched := schedule.NewTimerScheduler()

	svc := finalizer.NewService(storeClient, refs, sched, cfg.Finalize, cfg.Poller, logger)

	e := echo.New()
	e.HideBanner = true
	e.Use(rest.Recovery(logger))
	e.Use(rest.Logging(logger))

	handler := rest.NewHandler(svc, refs, cfg.Finalize.DisplayDelay, logger)
	handler.Register(e)

	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	// Finalization holds the request open through settling delays and the
	// retry loop; the write timeout must outlast the worst case.
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	go func() {
		addr := "0.0.0.0:" + cfg.Server.Port
		logger.Info("server starting", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
