// Package main is the entry point for the quotegate service: a tier-gated
// market-data gateway that fronts a rate-limited upstream provider with a
// short-TTL cache and resolves caller subscription tiers to feature sets.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/marketdesk/quotegate/internal/cache"
	"github.com/marketdesk/quotegate/internal/clients/logodev"
	"github.com/marketdesk/quotegate/internal/clients/stockapi"
	"github.com/marketdesk/quotegate/internal/config"
	"github.com/marketdesk/quotegate/internal/database"
	"github.com/marketdesk/quotegate/internal/entitlement"
	"github.com/marketdesk/quotegate/internal/marketdata"
	"github.com/marketdesk/quotegate/internal/server"
	"github.com/marketdesk/quotegate/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting quotegate")

	// Missing credentials are reported loudly here, not deferred silently
	// to the first failing request.
	for _, warning := range cfg.Warnings() {
		log.Warn().Msg(warning)
	}

	// Accounts database (tier storage)
	db, err := database.New(filepath.Join(cfg.DataDir, "accounts.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open accounts database")
	}
	defer db.Close()

	tierStore := entitlement.NewStore(db.Conn(), log)

	// Cache store
	var store cache.Store
	if cfg.CacheBackend == config.BackendRedis {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		store, err = cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, log)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis cache")
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis cache store")
	} else {
		store = cache.NewMemory()
		log.Info().Msg("Using in-memory cache store")
	}
	defer store.Close()

	// Upstream provider clients
	quotesClient := stockapi.NewClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.UpstreamTimeout, log)
	logoClient := logodev.NewClient(cfg.LogoAPIKey, log)

	gateway := marketdata.NewGateway(marketdata.Config{
		Store:     store,
		Quotes:    quotesClient,
		Logos:     logoClient,
		QuoteTTL:  cfg.QuoteTTL,
		SearchTTL: cfg.SearchTTL,
		Log:       log,
	})

	// Periodic sweep of expired cache entries. Reads already treat expired
	// entries as absent; the sweep only bounds memory under key churn.
	scheduler := cron.New()
	cleanupJob := cache.NewCleanupJob(store, log)
	if _, err := scheduler.AddJob(cfg.CleanupSchedule, cleanupJob); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.CleanupSchedule).Msg("Invalid cache cleanup schedule")
	}
	if _, err := scheduler.AddJob("@daily", database.NewMaintenanceJob(db, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule database maintenance")
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		AdminKey:  cfg.AdminKey,
		Gateway:   gateway,
		TierStore: tierStore,
		Cache:     store,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("quotegate stopped")
}
