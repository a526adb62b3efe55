package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"clubdesk/internal/auth"
	"clubdesk/internal/cache"
	"clubdesk/internal/config"
	"clubdesk/internal/entitlements"
	"clubdesk/internal/httpapi"
	"clubdesk/internal/logging"
	"clubdesk/internal/observability"
	"clubdesk/internal/reconcile"
	"clubdesk/internal/store"
)

func main() {
	cfg, err := config.Load(os.Getenv("CD_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error().Err(err).Msg("clubdeskd failed")
		os.Exit(1)
	}
	logger.Info().Msg("clubdeskd stopped")
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	st, err := store.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := store.Migrate(ctx, st.DB()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var (
		subCache  entitlements.SubscriptionCache
		cachePing httpapi.Pinger
	)
	if cfg.Redis.URL != "" {
		c, err := cache.New(cfg.Redis.URL, cfg.Cache.TTL)
		if err != nil {
			return fmt.Errorf("redis url: %w", err)
		}
		defer c.Close()
		subCache, cachePing = c, c
	} else {
		logger.Warn().Msg("redis not configured, subscription cache disabled")
	}

	observer := observability.NewEntitlementObserver(logger, prometheus.DefaultRegisterer)
	entSvc := entitlements.NewService(st, subCache, observer, logger)
	authSvc := auth.NewService(cfg)
	health := httpapi.NewHealthChecker(st, cachePing)
	handler := httpapi.NewHandler(authSvc, entSvc, st, observer, health, logger)

	if cfg.Reconcile.Interval > 0 {
		rec := reconcile.NewService(st, logger)
		rec.Apply = cfg.Reconcile.Apply
		rec.Invalidator = entSvc
		go rec.Loop(ctx, cfg.Reconcile.Interval)
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown")
		}
	}()

	logger.Info().Str("addr", cfg.HTTP.Addr).Bool("dev_mode", cfg.Dev.Mode).Msg("clubdeskd listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
